package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/rongwang/expenses-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	transactions []models.Transaction
	err          error
}

func (s *fakeStore) ListTransactions(ctx context.Context, username string) ([]models.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	var owned []models.Transaction
	for _, tx := range s.transactions {
		if tx.Username == username {
			owned = append(owned, tx)
		}
	}
	return owned, nil
}

func tx(username, source, destination string, amount int64) models.Transaction {
	return models.Transaction{
		Username:    username,
		Source:      source,
		Destination: destination,
		Amount:      decimal.NewFromInt(amount),
	}
}

func TestComputeBalances(t *testing.T) {
	store := &fakeStore{transactions: []models.Transaction{
		tx("u", "A", "B", 50),
		tx("u", "B", "C", 20),
	}}
	aggregator := NewAggregator(store)

	balances, err := aggregator.ComputeBalances(context.Background(), "u", []string{"A", "B", "C"})
	assert.NoError(t, err)
	assert.Len(t, balances, 3)
	assert.True(t, balances["A"].Equal(decimal.NewFromInt(-50)), "A should be -50, got %s", balances["A"])
	assert.True(t, balances["B"].Equal(decimal.NewFromInt(30)), "B should be 30, got %s", balances["B"])
	assert.True(t, balances["C"].Equal(decimal.NewFromInt(20)), "C should be 20, got %s", balances["C"])
}

func TestComputeBalancesUnmatchedFilterIsEmpty(t *testing.T) {
	store := &fakeStore{transactions: []models.Transaction{
		tx("u", "A", "B", 50),
		tx("u", "B", "C", 20),
	}}
	aggregator := NewAggregator(store)

	// An account with no matching transactions must be absent, not
	// present with a zero balance.
	balances, err := aggregator.ComputeBalances(context.Background(), "u", []string{"D"})
	assert.NoError(t, err)
	assert.Empty(t, balances)
	_, present := balances["D"]
	assert.False(t, present)
}

func TestComputeBalancesSelfTransfer(t *testing.T) {
	store := &fakeStore{transactions: []models.Transaction{
		tx("u", "A", "A", 10),
	}}
	aggregator := NewAggregator(store)

	// Both emissions land in the same group and cancel out, so the
	// account is present with an exact zero.
	balances, err := aggregator.ComputeBalances(context.Background(), "u", []string{"A"})
	assert.NoError(t, err)
	assert.Len(t, balances, 1)
	assert.True(t, balances["A"].IsZero(), "self-transfer should net to zero, got %s", balances["A"])
}

func TestComputeBalancesEmptyFilter(t *testing.T) {
	store := &fakeStore{transactions: []models.Transaction{
		tx("u", "A", "B", 50),
	}}
	aggregator := NewAggregator(store)

	balances, err := aggregator.ComputeBalances(context.Background(), "u", nil)
	assert.NoError(t, err)
	assert.Empty(t, balances)
}

func TestComputeBalancesFilterIsCaseInsensitive(t *testing.T) {
	store := &fakeStore{transactions: []models.Transaction{
		tx("u", "Bank", "Groceries", 25),
	}}
	aggregator := NewAggregator(store)

	balances, err := aggregator.ComputeBalances(context.Background(), "u", []string{"BANK", "groceries"})
	assert.NoError(t, err)

	// Matching ignores case, but result keys keep the casing from the
	// transactions themselves.
	assert.Len(t, balances, 2)
	assert.True(t, balances["Bank"].Equal(decimal.NewFromInt(-25)))
	assert.True(t, balances["Groceries"].Equal(decimal.NewFromInt(25)))
}

func TestComputeBalancesScopedToOwner(t *testing.T) {
	store := &fakeStore{transactions: []models.Transaction{
		tx("u", "A", "B", 50),
		tx("other", "A", "B", 999),
	}}
	aggregator := NewAggregator(store)

	balances, err := aggregator.ComputeBalances(context.Background(), "u", []string{"B"})
	assert.NoError(t, err)
	assert.True(t, balances["B"].Equal(decimal.NewFromInt(50)))
}

func TestComputeBalancesExactDecimalSummation(t *testing.T) {
	cents := decimal.RequireFromString("0.10")
	var transactions []models.Transaction
	for i := 0; i < 1000; i++ {
		transactions = append(transactions, models.Transaction{
			Username:    "u",
			Source:      "wallet",
			Destination: "coffee",
			Amount:      cents,
		})
	}
	aggregator := NewAggregator(&fakeStore{transactions: transactions})

	// 1000 * 0.10 must be exactly 100.00; binary floating point would
	// drift here.
	balances, err := aggregator.ComputeBalances(context.Background(), "u", []string{"coffee"})
	assert.NoError(t, err)
	assert.True(t, balances["coffee"].Equal(decimal.RequireFromString("100")),
		"expected exactly 100, got %s", balances["coffee"])
}

func TestComputeBalancesStoreFailure(t *testing.T) {
	aggregator := NewAggregator(&fakeStore{err: errors.New("connection refused")})

	_, err := aggregator.ComputeBalances(context.Background(), "u", []string{"A"})
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrAggregation)
}
