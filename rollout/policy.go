package rollout

import "github.com/input-output-hk/catalyst-forge-delivery/domain"

// AccountPolicy decides whether the deploy to an account waits for a manual
// approval.
type AccountPolicy interface {
	Gated(account domain.Account) bool
}

// PolicyFunc adapts a function to AccountPolicy.
type PolicyFunc func(domain.Account) bool

// Gated calls f(account).
func (f PolicyFunc) Gated(account domain.Account) bool {
	return f(account)
}

// GatedPolicy gates every account.
type GatedPolicy struct{}

// Gated implements AccountPolicy.
func (GatedPolicy) Gated(domain.Account) bool { return true }

// AutoPolicy promotes to every account without approval.
type AutoPolicy struct{}

// Gated implements AccountPolicy.
func (AutoPolicy) Gated(domain.Account) bool { return false }

// DefaultPolicy honors Account.RequiresApproval and otherwise gates every
// stage except dev.
type DefaultPolicy struct{}

// Gated implements AccountPolicy.
func (DefaultPolicy) Gated(account domain.Account) bool { return account.Gated() }
