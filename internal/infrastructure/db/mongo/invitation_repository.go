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

const collectionInvitations = "invitations"

type InvitationRepository struct {
	col *mongo.Collection
}

func NewInvitationRepository(db *mongo.Database) *InvitationRepository {
	return &InvitationRepository{col: db.Collection(collectionInvitations)}
}

// invitationDoc carries the open marker alongside the domain fields. Partial
// indexes cannot filter on "accepted_at is null", so unaccepted rows carry
// open=true and MarkAccepted unsets it, taking the row out of the unique
// (account_id, target) index.
type invitationDoc struct {
	domain.Invitation `bson:",inline"`
	Open              bool `bson:"open"`
}

// Create inserts a new invitation document. A duplicate-key error on the
// open (account_id, target) index is translated to
// domain.ErrInvitationExists so the lifecycle manager can resolve the race.
func (r *InvitationRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := invitationDoc{Invitation: *inv, Open: true}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrInvitationExists
		}
		return storeErr("insert invitation", err)
	}
	return nil
}

func (r *InvitationRepository) FindByID(ctx context.Context, id string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var inv domain.Invitation
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&inv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, storeErr("find invitation", err)
	}
	return &inv, nil
}

// FindUnacceptedByAccountTarget returns the row occupying the unique
// (account_id, target) slot, expired or not.
func (r *InvitationRepository) FindUnacceptedByAccountTarget(ctx context.Context, accountID, target string) (*domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"account_id":  accountID,
		"target":      target,
		"accepted_at": nil,
	}

	var inv domain.Invitation
	err := r.col.FindOne(ctx, filter).Decode(&inv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvitationNotFound
		}
		return nil, storeErr("find unaccepted invitation", err)
	}
	return &inv, nil
}

func (r *InvitationRepository) ListPendingByTarget(ctx context.Context, target string, now time.Time) ([]domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"target":      target,
		"accepted_at": nil,
		"expires_at":  bson.M{"$gt": now.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr("list pending invitations", err)
	}
	defer cur.Close(ctx)

	var invs []domain.Invitation
	if err := cur.All(ctx, &invs); err != nil {
		return nil, storeErr("decode invitations", err)
	}
	return invs, nil
}

// ListPending returns every unaccepted invitation regardless of expiry, for
// the orphan sweep.
func (r *InvitationRepository) ListPending(ctx context.Context) ([]domain.Invitation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{"accepted_at": nil})
	if err != nil {
		return nil, storeErr("list pending invitations", err)
	}
	defer cur.Close(ctx)

	var invs []domain.Invitation
	if err := cur.All(ctx, &invs); err != nil {
		return nil, storeErr("decode invitations", err)
	}
	return invs, nil
}

// MarkAccepted is the conditional update that serializes acceptance across
// processes: accepted_at is set only when currently null. A zero match means
// the invitation was consumed or removed in the meantime.
func (r *InvitationRepository) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "accepted_at": nil}
	update := bson.M{
		"$set":   bson.M{"accepted_at": at.UTC()},
		"$unset": bson.M{"open": ""},
	}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return storeErr("mark invitation accepted", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

// Delete removes an invitation; deleting a missing one succeeds.
func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return storeErr("delete invitation", err)
	}
	return nil
}

// EnsureIndexes creates the unique partial index that makes concurrent
// creates for one (account_id, target) converge on a single row. Accepting
// unsets the open marker and takes the row out of the index, freeing the
// slot; expired occupants are replaced by the lifecycle manager.
func (r *InvitationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "target", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{Keys: bson.D{{Key: "target", Value: 1}, {Key: "expires_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
