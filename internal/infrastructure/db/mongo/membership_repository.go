package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/famlio/budget-api/internal/core/domain"
)

const collectionMemberships = "account_members"

type MembershipRepository struct {
	col *mongo.Collection
}

func NewMembershipRepository(db *mongo.Database) *MembershipRepository {
	return &MembershipRepository{col: db.Collection(collectionMemberships)}
}

// Upsert inserts the membership or leaves an existing (account_id, user_id)
// row untouched. $setOnInsert keeps the original role and joined_at on
// repeat calls, which is what makes acceptance retry-safe.
func (r *MembershipRepository) Upsert(ctx context.Context, m *domain.Membership) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"account_id": m.AccountID, "user_id": m.UserID}
	update := bson.M{"$setOnInsert": bson.M{
		"account_id": m.AccountID,
		"user_id":    m.UserID,
		"role":       string(m.Role),
		"joined_at":  m.JoinedAt.UTC(),
	}}

	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// A concurrent upsert can still trip the unique index; that means
		// the row exists, which is the desired end state.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return storeErr("upsert membership", err)
	}
	return nil
}

// ListByUser returns the user's memberships ordered by joined_at ascending.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID string) ([]domain.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, storeErr("list memberships", err)
	}
	defer cur.Close(ctx)

	var members []domain.Membership
	if err := cur.All(ctx, &members); err != nil {
		return nil, storeErr("decode memberships", err)
	}
	return members, nil
}

func (r *MembershipRepository) Find(ctx context.Context, accountID, userID string) (*domain.Membership, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var m domain.Membership
	err := r.col.FindOne(ctx, bson.M{"account_id": accountID, "user_id": userID}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotAMember
		}
		return nil, storeErr("find membership", err)
	}
	return &m, nil
}

// EnsureIndexes creates the unique (account_id, user_id) index the
// membership invariant relies on.
func (r *MembershipRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "joined_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
