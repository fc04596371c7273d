// Package ledger computes per-account balances over a user's
// transactions. A transaction books amount from its source account to
// its destination account, so an account's balance is the sum of
// amounts received minus the sum of amounts paid out.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rongwang/expenses-server/internal/models"
	"github.com/shopspring/decimal"
)

// ErrAggregation marks a balance computation that failed for
// infrastructure reasons, as opposed to one that legitimately produced
// no matching accounts.
var ErrAggregation = errors.New("balance aggregation failed")

// TransactionStore provides the transactions the aggregator runs over.
type TransactionStore interface {
	ListTransactions(ctx context.Context, username string) ([]models.Transaction, error)
}

// Aggregator computes account balances with a two-phase map/reduce
// pass over the ledger.
type Aggregator struct {
	store TransactionStore
}

// NewAggregator creates a new Aggregator over the given store.
func NewAggregator(store TransactionStore) *Aggregator {
	return &Aggregator{store: store}
}

// emission is one intermediate (account, value) pair produced by the
// map phase.
type emission struct {
	account string
	value   decimal.Decimal
}

// ComputeBalances returns the net balance of each filtered account over
// the transactions owned by username. Filter matching is
// case-insensitive; result keys keep the casing the accounts carry on
// the transactions themselves. Accounts with no matching transactions
// are absent from the result, and an empty filter yields an empty
// result.
func (a *Aggregator) ComputeBalances(ctx context.Context, username string, accountFilter []string) (map[string]decimal.Decimal, error) {
	transactions, err := a.store.ListTransactions(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAggregation, err)
	}

	filter := make(map[string]struct{}, len(accountFilter))
	for _, account := range accountFilter {
		filter[strings.ToLower(account)] = struct{}{}
	}

	// Map phase: split each transaction into up to two emissions, the
	// source with a negative amount and the destination with a positive
	// one. A self-transfer that passes the filter emits both.
	var emissions []emission
	for _, tx := range transactions {
		if _, ok := filter[strings.ToLower(tx.Source)]; ok {
			emissions = append(emissions, emission{account: tx.Source, value: tx.Amount.Neg()})
		}
		if _, ok := filter[strings.ToLower(tx.Destination)]; ok {
			emissions = append(emissions, emission{account: tx.Destination, value: tx.Amount})
		}
	}

	// Reduce phase: group emissions by account and sum each group.
	balances := make(map[string]decimal.Decimal)
	for _, e := range emissions {
		balances[e.account] = balances[e.account].Add(e.value)
	}

	return balances, nil
}
