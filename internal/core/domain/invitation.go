package domain

import (
	"strings"
	"time"
)

// InvitationTTL is how long a newly created invitation stays acceptable.
const InvitationTTL = 48 * time.Hour

// InvitationStatus is the derived lifecycle state of an invitation. It is
// never persisted: status is computed from the timestamps at read time so
// every call site shares one definition of validity.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
	// InvitationOrphaned means the referenced account no longer exists.
	// It is detected by callers that hold both the invitation and the
	// account lookup result, not derivable from the invitation alone.
	InvitationOrphaned InvitationStatus = "orphaned"
)

// Invitation is a time-boxed offer for a target identifier (email or phone)
// to join an account as a member.
type Invitation struct {
	ID         string     `json:"id" bson:"_id"`
	AccountID  string     `json:"account_id" bson:"account_id"`
	Target     string     `json:"target" bson:"target"`
	InviterID  string     `json:"inviter_id" bson:"inviter_id"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at" bson:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" bson:"accepted_at,omitempty"`
}

// StatusAt derives the invitation status from its timestamps at the given
// instant. Orphan detection needs the account lookup and is handled by the
// lifecycle manager.
func (i Invitation) StatusAt(now time.Time) InvitationStatus {
	if i.AcceptedAt != nil {
		return InvitationAccepted
	}
	if !now.Before(i.ExpiresAt) {
		return InvitationExpired
	}
	return InvitationPending
}

// AcceptableBy reports whether the given identifier matches the invitation
// target. Matching is case-insensitive per the invitation contract.
func (i Invitation) AcceptableBy(identifier string) bool {
	return strings.EqualFold(strings.TrimSpace(identifier), strings.TrimSpace(i.Target))
}

// NormalizeTarget canonicalizes a target identifier for storage and lookup.
func NormalizeTarget(target string) string {
	return strings.ToLower(strings.TrimSpace(target))
}
