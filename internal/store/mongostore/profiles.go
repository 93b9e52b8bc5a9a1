package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

type Profiles struct{ coll *mongo.Collection }

func NewProfiles(coll *mongo.Collection) *Profiles {
	return &Profiles{coll: coll}
}

func (s *Profiles) Get(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Profiles) Upsert(ctx context.Context, p *model.Profile) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	update := bson.M{
		"$set": bson.M{
			"username":   p.Username,
			"prefecture": p.Prefecture,
			"age_group":  p.AgeGroup,
			"occupation": p.Occupation,
			"hearing":    p.Hearing,
			"avatar_url": p.AvatarURL,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := s.coll.UpdateByID(ctx, p.ID, update, options.Update().SetUpsert(true))
	return err
}

func (s *Profiles) List(ctx context.Context) ([]*model.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*model.Profile
	for cur.Next(ctx) {
		var p model.Profile
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

func (s *Profiles) SetAvatarURL(ctx context.Context, id, url string) error {
	res, err := s.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"avatar_url": url,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
