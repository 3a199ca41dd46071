package domain

import "time"

// Role is the role a user holds within one account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// AccountOrigin records how an account came to exist.
type AccountOrigin string

const (
	// OriginBootstrap marks the single personal account auto-created on
	// first resolution of a user with no memberships.
	OriginBootstrap AccountOrigin = "bootstrap"
	// OriginExplicit marks an account created through an explicit request.
	OriginExplicit AccountOrigin = "explicit"
)

// Account is one shared budget context that multiple users can belong to.
// Accounts are never deleted by this core.
type Account struct {
	ID           string        `json:"id" bson:"_id"`
	Name         string        `json:"name" bson:"name"`
	PlanSlug     string        `json:"plan_slug" bson:"plan_slug"`
	BillingState string        `json:"billing_state" bson:"billing_state"`
	Origin       AccountOrigin `json:"-" bson:"origin"`
	// OwnerUserID is set for bootstrap accounts only; a unique partial index
	// on it guarantees at most one auto-created account per user.
	OwnerUserID string `json:"-" bson:"owner_user_id,omitempty"`
	// PendingInvitationID is a denormalized pointer to the most recently
	// created pending invitation, cleared on accept/revoke.
	PendingInvitationID string    `json:"-" bson:"pending_invitation_id,omitempty"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
}

// Membership links a user to an account with a role.
// The (AccountID, UserID) pair is unique.
type Membership struct {
	AccountID string    `json:"account_id" bson:"account_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Role      Role      `json:"role" bson:"role"`
	JoinedAt  time.Time `json:"joined_at" bson:"joined_at"`
}

// Profile is the per-user row carrying the only durable trace of the
// account-selection policy: the preferred account id.
type Profile struct {
	UserID             string    `bson:"_id"`
	Email              string    `bson:"email,omitempty"`
	DisplayName        string    `bson:"display_name,omitempty"`
	PreferredAccountID string    `bson:"preferred_account_id,omitempty"`
	UpdatedAt          time.Time `bson:"updated_at"`
}
