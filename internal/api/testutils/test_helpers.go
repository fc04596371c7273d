package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rongwang/expenses-server/internal/accesscontrol"
	"github.com/rongwang/expenses-server/internal/api"
	"github.com/rongwang/expenses-server/internal/ledger"
	"github.com/rongwang/expenses-server/internal/models"
	"github.com/rongwang/expenses-server/internal/notify"
	"github.com/rongwang/expenses-server/internal/service"
	"github.com/rongwang/expenses-server/internal/utils"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

const (
	TestUsername = "testuser"
	TestPassword = "testpassword"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router        *gin.Engine
	Repository    *MemoryRepository
	Service       service.Service
	AccessControl *accesscontrol.AccessControl
	Sender        *RecordingSender
	TestUserToken string
}

// RecordingSender is a notify.Sender that records delivered
// registration ids instead of talking to a push gateway.
type RecordingSender struct {
	deliveries chan string
}

func NewRecordingSender() *RecordingSender {
	return &RecordingSender{deliveries: make(chan string, 64)}
}

func (s *RecordingSender) Send(ctx context.Context, registrationID, collapseKey string) error {
	s.deliveries <- registrationID
	return nil
}

// WaitForDelivery returns the next delivered registration id, or "" if
// none arrives in time. The fan-out runs on its own goroutine, so
// assertions on it have to wait.
func (s *RecordingSender) WaitForDelivery(timeout time.Duration) string {
	select {
	case registrationID := <-s.deliveries:
		return registrationID
	case <-time.After(timeout):
		return ""
	}
}

// SetupTestContext creates a new test context with initialized dependencies
func SetupTestContext(t *testing.T) *TestContext {
	logger := utils.NewLogger()
	repo := NewMemoryRepository()

	ac := accesscontrol.NewAccessControl(repo, repo, logger, 5*time.Second)
	aggregator := ledger.NewAggregator(repo)
	sender := NewRecordingSender()
	notifier := notify.NewNotifier(repo, sender, logger, 5*time.Second)
	svc := service.NewDefaultService(repo, aggregator, notifier, logger)
	handler := api.NewHandler(svc, ac, logger)

	gin.SetMode(gin.TestMode)
	router := gin.Default()
	handler.SetupRoutes(router)

	token := createTestUser(t, repo, ac)

	return &TestContext{
		Router:        router,
		Repository:    repo,
		Service:       svc,
		AccessControl: ac,
		Sender:        sender,
		TestUserToken: token,
	}
}

// createTestUser stores the standard test user and returns a valid
// auth token for it.
func createTestUser(t *testing.T, repo *MemoryRepository, ac *accesscontrol.AccessControl) string {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	assert.NoError(t, err, "Failed to hash test password")

	user := &models.User{
		Username:  TestUsername,
		Password:  string(hashedPassword),
		CreatedAt: time.Now().UTC(),
	}

	err = repo.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	token, err := ac.Authenticate(context.Background(), TestUsername, TestPassword)
	assert.NoError(t, err, "Failed to authenticate test user")

	return token
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthPath appends the auth_token query parameter to a path.
func AuthPath(path, token string) string {
	return fmt.Sprintf("%s?auth_token=%s", path, token)
}
