package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rongwang/expenses-server/internal/api/testutils"
	"github.com/rongwang/expenses-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func seedLedger(t *testing.T, testCtx *testutils.TestContext) {
	createExpense(t, testCtx, models.ExpenseRequest{
		Source:      "A",
		Destination: "B",
		Amount:      decimal.NewFromInt(50),
	})
	createExpense(t, testCtx, models.ExpenseRequest{
		Source:      "B",
		Destination: "C",
		Amount:      decimal.NewFromInt(20),
	})
}

func getBalances(t *testing.T, testCtx *testutils.TestContext, query string) models.BalancesResponse {
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/accounts/"+testutils.TestUsername+"?auth_token="+testCtx.TestUserToken+query,
		nil,
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.BalancesResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAccountBalances(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	seedLedger(t, testCtx)

	resp := getBalances(t, testCtx, "&filter=A,B,C")

	assert.Len(t, resp.Balances, 3)
	expected := map[string]string{"A": "-50", "B": "30", "C": "20"}
	for _, balance := range resp.Balances {
		assert.True(t, balance.Balance.Equal(decimal.RequireFromString(expected[balance.Account])),
			"account %s: expected %s, got %s", balance.Account, expected[balance.Account], balance.Balance)
	}
}

func TestAccountBalancesUnmatchedFilter(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	seedLedger(t, testCtx)

	// No transaction touches D: it is absent, not zero.
	resp := getBalances(t, testCtx, "&filter=D")
	assert.Empty(t, resp.Balances)
}

func TestAccountBalancesNoFilter(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	seedLedger(t, testCtx)

	resp := getBalances(t, testCtx, "")
	assert.Empty(t, resp.Balances)
}

func TestAccountBalancesCaseInsensitiveFilter(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	seedLedger(t, testCtx)

	resp := getBalances(t, testCtx, "&filter=a,b,c")
	assert.Len(t, resp.Balances, 3)
}

func TestAccountBalancesSelfTransfer(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	createExpense(t, testCtx, models.ExpenseRequest{
		Source:      "A",
		Destination: "A",
		Amount:      decimal.NewFromInt(10),
	})

	resp := getBalances(t, testCtx, "&filter=A")
	assert.Len(t, resp.Balances, 1)
	assert.Equal(t, "A", resp.Balances[0].Account)
	assert.True(t, resp.Balances[0].Balance.IsZero())
}

func TestAccountBalancesRequireAuthorization(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/accounts/"+testutils.TestUsername+"?auth_token=bogus&filter=A",
		nil,
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccountBalancesStoreFailure(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	seedLedger(t, testCtx)

	testCtx.Repository.Err = assert.AnError

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/accounts/"+testutils.TestUsername+"?auth_token="+testCtx.TestUserToken+"&filter=A",
		nil,
		nil,
	)

	// With the store down the token lookup itself fails, and a failing
	// authorization check denies rather than grants.
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
