package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/rongwang/expenses-server/internal/api/testutils"
	"github.com/rongwang/expenses-server/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestIssueAuthToken(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// Test case 1: Successful authentication
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/users/"+testutils.TestUsername+"/auth_token",
		models.AuthTokenRequest{Password: testutils.TestPassword},
		nil,
	)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.AuthTokenResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.AuthToken, 96, "token should be 48 hex-encoded bytes")

	// The freshly issued token authorizes operations
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		testutils.AuthPath("/expenses/"+testutils.TestUsername, resp.AuthToken),
		nil,
		nil,
	)
	assert.Equal(t, http.StatusOK, w.Code)

	// Test case 2: Wrong password
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/users/"+testutils.TestUsername+"/auth_token",
		models.AuthTokenRequest{Password: "wrongpassword"},
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	wrongPasswordBody := w.Body.String()

	// Test case 3: Unknown user looks exactly like a wrong password
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/users/nonexistent/auth_token",
		models.AuthTokenRequest{Password: testutils.TestPassword},
		nil,
	)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, wrongPasswordBody, w.Body.String(),
		"unknown user and wrong password must be indistinguishable")

	// Test case 4: Missing password
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/users/"+testutils.TestUsername+"/auth_token",
		map[string]string{},
		nil,
	)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRepeatedLoginsYieldIndependentTokens(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	issue := func() string {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodPost,
			"/users/"+testutils.TestUsername+"/auth_token",
			models.AuthTokenRequest{Password: testutils.TestPassword},
			nil,
		)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp models.AuthTokenResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.AuthToken
	}

	first := issue()
	second := issue()
	assert.NotEqual(t, first, second)

	// Both stay valid at the same time (one user, several devices).
	for _, token := range []string{first, second} {
		w := testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			testutils.AuthPath("/expenses/"+testutils.TestUsername, token),
			nil,
			nil,
		)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestAuthorizationDenied(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)

	// No token at all
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/expenses/"+testutils.TestUsername,
		nil,
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A token that was never issued
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		testutils.AuthPath("/expenses/"+testutils.TestUsername, "not-a-real-token"),
		nil,
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A valid token presented for a different username
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		testutils.AuthPath("/expenses/someoneelse", testCtx.TestUserToken),
		nil,
		nil,
	)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
