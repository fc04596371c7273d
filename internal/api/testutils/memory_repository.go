package testutils

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expenses-server/internal/models"
	"github.com/rongwang/expenses-server/internal/repository"
)

// MemoryRepository is an in-memory implementation of
// repository.Repository so the API suite can run without Postgres. It
// is safe for concurrent use.
type MemoryRepository struct {
	mu           sync.Mutex
	users        map[string]models.User
	tokens       map[string]models.AuthToken // keyed by username+"\x00"+token
	transactions map[string]models.Transaction
	mobiles      map[string]models.Mobile // keyed by registration id

	// Err, when set, is returned by every method; used to exercise the
	// fail-closed paths.
	Err error
}

// NewMemoryRepository creates an empty MemoryRepository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[string]models.User),
		tokens:       make(map[string]models.AuthToken),
		transactions: make(map[string]models.Transaction),
		mobiles:      make(map[string]models.Mobile),
	}
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.users[user.Username] = *user
	return nil
}

func (r *MemoryRepository) FindUser(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	user, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (r *MemoryRepository) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	user, ok := r.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	user.Password = passwordHash
	r.users[username] = user
	return nil
}

func (r *MemoryRepository) DeleteUser(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.users[username]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, username)
	return nil
}

func (r *MemoryRepository) InsertToken(ctx context.Context, token *models.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.tokens[token.Username+"\x00"+token.Token] = *token
	return nil
}

func (r *MemoryRepository) FindToken(ctx context.Context, username, token string) (*models.AuthToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	authToken, ok := r.tokens[username+"\x00"+token]
	if !ok {
		return nil, nil
	}
	return &authToken, nil
}

func (r *MemoryRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	r.transactions[tx.ID] = *tx
	return nil
}

func (r *MemoryRepository) GetTransaction(ctx context.Context, username, id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	tx, ok := r.transactions[id]
	if !ok || tx.Username != username {
		return nil, nil
	}
	return &tx, nil
}

func (r *MemoryRepository) ListTransactions(ctx context.Context, username string) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var transactions []models.Transaction
	for _, tx := range r.transactions {
		if tx.Username == username {
			transactions = append(transactions, tx)
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		return transactions[i].Timestamp.After(transactions[j].Timestamp)
	})
	return transactions, nil
}

func (r *MemoryRepository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	existing, ok := r.transactions[tx.ID]
	if !ok || existing.Username != tx.Username {
		return repository.ErrNotFound
	}
	r.transactions[tx.ID] = *tx
	return nil
}

func (r *MemoryRepository) DeleteTransaction(ctx context.Context, username, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	existing, ok := r.transactions[id]
	if !ok || existing.Username != username {
		return repository.ErrNotFound
	}
	delete(r.transactions, id)
	return nil
}

func (r *MemoryRepository) UpsertMobile(ctx context.Context, mobile *models.Mobile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if existing, ok := r.mobiles[mobile.RegistrationID]; ok {
		mobile.ID = existing.ID
		mobile.Notifications = existing.Notifications
	} else if mobile.ID == "" {
		mobile.ID = uuid.New().String()
	}
	if mobile.LastSeen.IsZero() {
		mobile.LastSeen = time.Now().UTC()
	}
	r.mobiles[mobile.RegistrationID] = *mobile
	return nil
}

func (r *MemoryRepository) ListMobiles(ctx context.Context, username string) ([]models.Mobile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var mobiles []models.Mobile
	for _, mobile := range r.mobiles {
		if mobile.Username == username {
			mobiles = append(mobiles, mobile)
		}
	}
	sort.Slice(mobiles, func(i, j int) bool {
		return mobiles[i].RegistrationID < mobiles[j].RegistrationID
	})
	return mobiles, nil
}

func (r *MemoryRepository) IncrementNotifications(ctx context.Context, mobileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	for key, mobile := range r.mobiles {
		if mobile.ID == mobileID {
			mobile.Notifications++
			r.mobiles[key] = mobile
			return nil
		}
	}
	return repository.ErrNotFound
}

// Mobile returns a copy of the stored mobile with the given
// registration id, for assertions.
func (r *MemoryRepository) Mobile(registrationID string) (models.Mobile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mobile, ok := r.mobiles[registrationID]
	return mobile, ok
}
