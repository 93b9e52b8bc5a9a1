package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Participants struct{ coll *mongo.Collection }

func NewParticipants(coll *mongo.Collection) *Participants {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("conversation_user_idx"),
	}
	_, _ = coll.Indexes().CreateOne(context.Background(), idx)
	return &Participants{coll: coll}
}

// Add upserts on the (conversation, user) pair, so a repeated join cannot
// create a duplicate row.
func (s *Participants) Add(ctx context.Context, conversationID, userID string) error {
	filter := bson.M{"conversation_id": conversationID, "user_id": userID}
	update := bson.M{"$setOnInsert": bson.M{
		"conversation_id": conversationID,
		"user_id":         userID,
		"joined_at":       time.Now().UTC(),
	}}
	_, err := s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (s *Participants) Remove(ctx context.Context, conversationID, userID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"conversation_id": conversationID, "user_id": userID})
	return err
}

func (s *Participants) IsMember(ctx context.Context, conversationID, userID string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"conversation_id": conversationID, "user_id": userID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Participants) ConversationsOf(ctx context.Context, userID string) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var row struct {
			ConversationID string `bson:"conversation_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.ConversationID)
	}
	return out, cur.Err()
}

func (s *Participants) MembersOf(ctx context.Context, conversationID string) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []string
	for cur.Next(ctx) {
		var row struct {
			UserID string `bson:"user_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.UserID)
	}
	return out, cur.Err()
}

func (s *Participants) RemoveAll(ctx context.Context, conversationID string) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	return err
}
