package ports

import (
	"context"

	"github.com/famlio/budget-api/internal/core/domain"
)

// DirectoryService is the membership directory: pure roster logic plus the
// account-selection policy and the raced-safe default-account bootstrap.
type DirectoryService interface {
	// ListMemberships returns the user's accounts partitioned by role.
	// An empty roster is a valid result for a brand-new user.
	ListMemberships(ctx context.Context, userID string) (domain.AccountRoster, error)

	// SelectActiveAccount applies the selection policy:
	//  1. stored preference, if still present in the roster
	//  2. first owned account
	//  3. first shared account
	//  4. none → domain.ErrAccountNotFound (caller decides whether to bootstrap)
	// When falling back to 2/3 the chosen id is persisted as the new
	// preference so repeated resolutions do not flap.
	SelectActiveAccount(ctx context.Context, userID string, roster domain.AccountRoster) (*domain.Account, error)

	// BootstrapDefaultAccount creates exactly one personal account plus an
	// admin membership. Safe to race: concurrent calls for the same user
	// converge on a single account.
	BootstrapDefaultAccount(ctx context.Context, userID, displayName string) (*domain.Account, error)
}
