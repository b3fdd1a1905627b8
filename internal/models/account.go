package models

import (
	"fmt"
	"strings"
)

// AccountStatus is the lifecycle status reported by AWS Organizations for a
// member account. Values other than ACTIVE and SUSPENDED (for example
// PENDING_CLOSURE) are carried through verbatim.
type AccountStatus string

const (
	StatusActive    AccountStatus = "ACTIVE"
	StatusSuspended AccountStatus = "SUSPENDED"
)

// Account is a snapshot of one organization member account taken at listing
// time. The YAML keys match the persisted account-list format
// ({accounts: [{Id, Name, Status}]}).
type Account struct {
	ID     string        `yaml:"Id"     json:"id"`
	Name   string        `yaml:"Name"   json:"name"`
	Status AccountStatus `yaml:"Status" json:"status"`
}

// AccountScope selects which accounts of the organization an operation
// targets.
type AccountScope string

const (
	ScopeAll       AccountScope = "all"
	ScopeActive    AccountScope = "active"
	ScopeSuspended AccountScope = "suspended"
)

// ParseAccountScope converts a flag or menu value into an AccountScope.
// Matching is case-insensitive; an empty string selects ScopeAll.
func ParseAccountScope(s string) (AccountScope, error) {
	switch AccountScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeActive:
		return ScopeActive, nil
	case ScopeSuspended:
		return ScopeSuspended, nil
	}
	return "", fmt.Errorf("unknown account scope %q (want all, active or suspended)", s)
}

// Matches reports whether an account with the given status belongs to the
// scope.
func (s AccountScope) Matches(status AccountStatus) bool {
	switch s {
	case ScopeActive:
		return status == StatusActive
	case ScopeSuspended:
		return status == StatusSuspended
	default:
		return true
	}
}

// FilterAccounts returns the accounts that belong to scope, preserving input
// order. The input slice is not modified.
func FilterAccounts(accounts []Account, scope AccountScope) []Account {
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		if scope.Matches(a.Status) {
			out = append(out, a)
		}
	}
	return out
}

// AccountIDs returns the IDs of accounts in order.
func AccountIDs(accounts []Account) []string {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	return ids
}
