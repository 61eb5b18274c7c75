// Package ledger adapts the external token-ledger collaborator described
// in spec §6: fungible balance transfers between user, vault, and miner
// wallets. Minting/burning and account allocation mechanics live outside
// this core (§1 Non-goals); this package only moves balances of an
// already-allocated token between already-allocated accounts.
package ledger

import (
	"fmt"
	"sync"
)

// Account identifies a balance holder by its 32-byte principal id, hex
// encoded so it is usable as a map key without importing the coordinator
// package (avoiding a cyclic shared-state dependency per §9 design notes).
type Account string

// Ledger is the token-ledger collaborator interface (§6).
type Ledger interface {
	// Transfer moves amount from `from` to `to`. Fails with
	// ErrInsufficientFunds if `from`'s balance is insufficient.
	Transfer(from, to Account, amount uint64) error
	// TransferWithAuthority moves amount out of the vault account, which is
	// otherwise only debited by the coordinator's own signing authority.
	// The vault authority is conceptually derived from seeds
	// ("vault", globalStateId); this in-process adapter does not need to
	// model seed derivation since there is only one process-local vault.
	TransferWithAuthority(vault, to Account, amount uint64) error
	// Balance returns the current balance of an account (diagnostic / test use).
	Balance(acct Account) uint64
}

// ErrInsufficientFunds mirrors the coordinator's own taxonomy so call
// sites can propagate it directly.
var ErrInsufficientFunds = fmt.Errorf("ledger: insufficient funds")

// InMemory is a process-local ledger backed by a map, sufficient for the
// coordinator's own bookkeeping (actual custody of funds is someone else's
// concern per §1 Non-goals — "token-ledger primitives... are external
// collaborators").
type InMemory struct {
	mu       sync.Mutex
	balances map[Account]uint64
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[Account]uint64)}
}

// Credit deposits funds into an account without requiring a source — used
// to seed a user's wallet in tests. It is not part of the Ledger interface.
func (l *InMemory) Credit(acct Account, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[acct] += amount
}

func (l *InMemory) Balance(acct Account) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[acct]
}

func (l *InMemory) Transfer(from, to Account, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

func (l *InMemory) TransferWithAuthority(vault, to Account, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(vault, to, amount)
}

func (l *InMemory) transferLocked(from, to Account, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if l.balances[from] < amount {
		return ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
