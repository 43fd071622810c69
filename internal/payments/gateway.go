package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientFunds is returned when a debit exceeds the account's
// balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrUnknownAccount is returned for transfers naming an empty account.
var ErrUnknownAccount = errors.New("unknown account")

// Gateway moves funds between holder accounts and the escrow custody
// account. Implementations hand control to external logic, so callers
// must commit their own state before invoking either method.
type Gateway interface {
	// Debit moves amount cents from account into escrow custody.
	Debit(ctx context.Context, account string, amount int64) error
	// Credit moves amount cents out of escrow custody to account.
	Credit(ctx context.Context, account string, amount int64) error
}

// MemoryGateway is an in-process account ledger. It backs development
// setups and tests; the escrow balance it tracks lets callers assert
// that custody accounting and real balances never drift apart.
type MemoryGateway struct {
	mu       sync.Mutex
	balances map[string]int64
	escrow   int64
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{balances: make(map[string]int64)}
}

// Fund adds amount cents to an account.
func (g *MemoryGateway) Fund(account string, amount int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.balances[account] += amount
}

// Balance reports an account's balance.
func (g *MemoryGateway) Balance(account string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.balances[account]
}

// Escrow reports the funds currently held in custody.
func (g *MemoryGateway) Escrow() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.escrow
}

func (g *MemoryGateway) Debit(ctx context.Context, account string, amount int64) error {
	if account == "" {
		return ErrUnknownAccount
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.balances[account] < amount {
		return fmt.Errorf("%w: account %s has %d, need %d", ErrInsufficientFunds, account, g.balances[account], amount)
	}
	g.balances[account] -= amount
	g.escrow += amount
	return nil
}

func (g *MemoryGateway) Credit(ctx context.Context, account string, amount int64) error {
	if account == "" {
		return ErrUnknownAccount
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.escrow < amount {
		return fmt.Errorf("escrow holds %d, cannot release %d", g.escrow, amount)
	}
	g.escrow -= amount
	g.balances[account] += amount
	return nil
}
