package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/famlio/budget-api/internal/core/domain"
)

const collectionAccounts = "accounts"

type AccountRepository struct {
	col *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{col: db.Collection(collectionAccounts)}
}

// Create inserts a new account document. A duplicate-key error on the
// bootstrap owner index is translated to domain.ErrAccountExists so the
// directory can resolve the race.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, a)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAccountExists
		}
		return storeErr("insert account", err)
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var a domain.Account
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeErr("find account", err)
	}
	return &a, nil
}

// FindBootstrapByOwner returns the auto-created personal account, if any.
func (r *AccountRepository) FindBootstrapByOwner(ctx context.Context, userID string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"owner_user_id": userID, "origin": string(domain.OriginBootstrap)}

	var a domain.Account
	err := r.col.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, storeErr("find bootstrap account", err)
	}
	return &a, nil
}

// SetPendingInvitation updates the denormalized pending pointer; an empty
// invitationID unsets the field.
func (r *AccountRepository) SetPendingInvitation(ctx context.Context, accountID, invitationID string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"pending_invitation_id": invitationID}}
	if invitationID == "" {
		update = bson.M{"$unset": bson.M{"pending_invitation_id": ""}}
	}

	_, err := r.col.UpdateOne(ctx, bson.M{"_id": accountID}, update)
	if err != nil {
		return storeErr("set pending invitation", err)
	}
	return nil
}

// EnsureIndexes creates the unique partial index that makes bootstrap
// account creation race-safe: at most one origin=bootstrap account per owner.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"origin": string(domain.OriginBootstrap)}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// storeErr wraps infrastructure failures so callers can match the retryable
// class with errors.Is(err, domain.ErrStoreUnavailable).
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}
