package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/dropDatabas3/identitystore/internal/domain/repository"
)

func (s *UserStore) GetClaims(ctx context.Context, u *repository.User) ([]repository.Claim, error) {
	if err := begin(ctx); err != nil {
		return nil, err
	}
	if u == nil {
		return nil, repository.InvalidArgument("user")
	}
	out := make([]repository.Claim, len(u.Claims))
	copy(out, u.Claims)
	return out, nil
}

func (s *UserStore) AddClaims(ctx context.Context, u *repository.User, claims ...repository.Claim) (err error) {
	const op = "add_claims"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	if len(claims) == 0 {
		return nil
	}
	for _, c := range claims {
		if c.Type == "" {
			return repository.InvalidArgument("claim.type")
		}
	}
	update := bson.D{{Key: "$push", Value: bson.D{
		{Key: "claims", Value: bson.D{{Key: "$each", Value: claims}}},
	}}}
	if err := s.updateByID(ctx, op, u, update); err != nil {
		return err
	}
	u.Claims = append(u.Claims, claims...)
	return nil
}

// RemoveClaim quita todas las ocurrencias del par (type, value).
func (s *UserStore) RemoveClaim(ctx context.Context, u *repository.User, claim repository.Claim) (err error) {
	const op = "remove_claim"
	defer track(op, time.Now(), &err)

	if err := check(ctx, u); err != nil {
		return err
	}
	update := bson.D{{Key: "$pull", Value: bson.D{
		{Key: "claims", Value: bson.D{
			{Key: "type", Value: claim.Type},
			{Key: "value", Value: claim.Value},
		}},
	}}}
	if err := s.updateByID(ctx, op, u, update); err != nil {
		return err
	}
	kept := make([]repository.Claim, 0, len(u.Claims))
	for _, c := range u.Claims {
		if c != claim {
			kept = append(kept, c)
		}
	}
	u.Claims = kept
	return nil
}
