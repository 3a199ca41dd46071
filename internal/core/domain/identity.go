package domain

import "time"

// User models an authenticated actor. Users are created and owned by the
// external identity provider; this core only ever reads them.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// AccountRoster partitions a user's accounts by role: owned (admin) versus
// shared (plain member). Ordering within each slice is stable: earliest
// join first.
type AccountRoster struct {
	Owned  []Account `json:"owned"`
	Shared []Account `json:"shared"`
}

// Contains reports whether the roster includes the given account id.
func (r AccountRoster) Contains(accountID string) bool {
	for _, a := range r.Owned {
		if a.ID == accountID {
			return true
		}
	}
	for _, a := range r.Shared {
		if a.ID == accountID {
			return true
		}
	}
	return false
}

// Empty reports whether the user belongs to no account at all.
func (r AccountRoster) Empty() bool {
	return len(r.Owned) == 0 && len(r.Shared) == 0
}

// ResolvedIdentity is the cached outcome of one identity resolution: who the
// caller is, which account is active, and everything they belong to. It lives
// only in the ephemeral cache and is rebuilt from the store on miss.
type ResolvedIdentity struct {
	User          *User         `json:"user,omitempty"`
	ActiveAccount *Account      `json:"active_account,omitempty"`
	Roster        AccountRoster `json:"roster"`
	// PendingInvitations is non-zero when matching pending invitations were
	// found at resolution time; it is the signal that suppresses automatic
	// account bootstrap.
	PendingInvitations int       `json:"pending_invitations"`
	ResolvedAt         time.Time `json:"resolved_at"`
}

// Authenticated reports whether the resolution found a signed-in user.
// "Not logged in" is a normal state, not an error.
func (r ResolvedIdentity) Authenticated() bool {
	return r.User != nil
}

// FreshAt reports whether the snapshot is still within its freshness window.
func (r ResolvedIdentity) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.ResolvedAt) < ttl
}
