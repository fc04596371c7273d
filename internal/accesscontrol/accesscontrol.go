// Package accesscontrol implements token-based access control: it
// authenticates username/password pairs against stored bcrypt hashes
// and authorizes operations by matching opaque tokens against the
// token store. Both checks fail closed: any internal fault is reported
// to the caller as a plain denial and logged here.
package accesscontrol

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rongwang/expenses-server/internal/models"
	"github.com/rongwang/expenses-server/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the entropy of a newly minted token before hex encoding.
const tokenBytes = 48

var (
	// ErrInvalidCredentials is returned for any failed authentication.
	// Unknown user, wrong password and store faults are deliberately
	// indistinguishable to prevent user enumeration.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrTokenNotFound is returned for any failed authorization.
	ErrTokenNotFound = errors.New("token not found")
)

// Verb identifies the kind of operation being authorized. All verbs
// currently share one implementation; a valid token grants every
// operation. The parameter keeps the four call sites distinguishable so
// per-verb ACLs stay a local change.
type Verb int

const (
	VerbCreate Verb = iota
	VerbRead
	VerbUpdate
	VerbDelete
)

func (v Verb) String() string {
	switch v {
	case VerbCreate:
		return "create"
	case VerbRead:
		return "read"
	case VerbUpdate:
		return "update"
	case VerbDelete:
		return "delete"
	}
	return "unknown"
}

// CredentialStore is where user credentials live. FindUser returns
// (nil, nil) when no user matches.
type CredentialStore interface {
	FindUser(ctx context.Context, username string) (*models.User, error)
}

// TokenStore persists issued tokens. FindToken returns (nil, nil) when
// no record matches both username and token exactly.
type TokenStore interface {
	InsertToken(ctx context.Context, token *models.AuthToken) error
	FindToken(ctx context.Context, username, token string) (*models.AuthToken, error)
}

// AccessControl implements the authenticator and the authorizer over
// injected credential and token stores.
type AccessControl struct {
	creds        CredentialStore
	tokens       TokenStore
	logger       *utils.Logger
	storeTimeout time.Duration
}

// NewAccessControl creates a new AccessControl. storeTimeout bounds
// every store call; a timed-out call denies, it never grants.
func NewAccessControl(creds CredentialStore, tokens TokenStore, logger *utils.Logger, storeTimeout time.Duration) *AccessControl {
	return &AccessControl{
		creds:        creds,
		tokens:       tokens,
		logger:       logger.Named("accesscontrol"),
		storeTimeout: storeTimeout,
	}
}

// Authenticate verifies the password for username and, on success,
// mints and persists a new token. Each successful call issues an
// independent token, so one user can stay logged in on several devices
// at once.
func (a *AccessControl) Authenticate(ctx context.Context, username, password string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()

	user, err := a.creds.FindUser(ctx, username)
	if err != nil {
		a.logger.Error("credential lookup failed for %q: %v", username, err)
		return "", ErrInvalidCredentials
	}

	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		a.logger.Error("token generation failed: %v", err)
		return "", ErrInvalidCredentials
	}

	authToken := &models.AuthToken{
		Username:  username,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.tokens.InsertToken(ctx, authToken); err != nil {
		a.logger.Error("token insert failed for %q: %v", username, err)
		return "", ErrInvalidCredentials
	}

	return token, nil
}

// Authorize checks that the (username, token) pair identifies an issued
// token. The match is byte-exact, tokens never expire, and the check is
// read-only. A nil return means granted.
func (a *AccessControl) Authorize(ctx context.Context, username, token string, verb Verb) error {
	ctx, cancel := context.WithTimeout(ctx, a.storeTimeout)
	defer cancel()

	authToken, err := a.tokens.FindToken(ctx, username, token)
	if err != nil {
		a.logger.Error("token lookup failed for %q (%s): %v", username, verb, err)
		return ErrTokenNotFound
	}

	if authToken == nil {
		return ErrTokenNotFound
	}

	return nil
}

// newToken returns a fresh hex-encoded token with tokenBytes of
// entropy. Fails rather than ever returning a short or empty token.
func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
