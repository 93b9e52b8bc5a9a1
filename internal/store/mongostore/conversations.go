package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

type Conversations struct{ coll *mongo.Collection }

func NewConversations(coll *mongo.Collection) *Conversations {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("kind_updated_idx"),
	}
	_, _ = coll.Indexes().CreateOne(context.Background(), idx)
	return &Conversations{coll: coll}
}

func (s *Conversations) Insert(ctx context.Context, c *model.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, c)
	return err
}

func (s *Conversations) Get(ctx context.Context, id string) (*model.Conversation, error) {
	var c model.Conversation
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Conversations) ListByKind(ctx context.Context, kind model.Kind) ([]*model.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"kind": kind}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeConversations(ctx, cur)
}

func (s *Conversations) ListByOwner(ctx context.Context, ownerID string) ([]*model.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.coll.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	return decodeConversations(ctx, cur)
}

func (s *Conversations) Update(ctx context.Context, id string, title, description string) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"title":       title,
		"description": description,
		"updated_at":  time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Conversations) SetLastMessage(ctx context.Context, id string, lm model.LastMessage) error {
	_, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"last_message": lm,
		"updated_at":   time.Now().UTC(),
	}})
	return err
}

func (s *Conversations) Delete(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func decodeConversations(ctx context.Context, cur *mongo.Cursor) ([]*model.Conversation, error) {
	var out []*model.Conversation
	for cur.Next(ctx) {
		var c model.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}
