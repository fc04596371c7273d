package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/expenses-server/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, username string) (*models.User, error)
	UpdateUserPassword(ctx context.Context, username, passwordHash string) error
	DeleteUser(ctx context.Context, username string) error

	// Auth token operations
	InsertToken(ctx context.Context, token *models.AuthToken) error
	FindToken(ctx context.Context, username, token string) (*models.AuthToken, error)

	// Transaction operations
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, username, id string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, username string) ([]models.Transaction, error)
	UpdateTransaction(ctx context.Context, tx *models.Transaction) error
	DeleteTransaction(ctx context.Context, username, id string) error

	// Mobile operations
	UpsertMobile(ctx context.Context, mobile *models.Mobile) error
	ListMobiles(ctx context.Context, username string) ([]models.Mobile, error)
	IncrementNotifications(ctx context.Context, mobileID string) error
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password, created_at)
		VALUES ($1, $2, $3)
	`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query, user.Username, user.Password, user.CreatedAt)
	return err
}

func (r *PostgresRepository) FindUser(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) UpdateUserPassword(ctx context.Context, username, passwordHash string) error {
	query := `UPDATE users SET password = $1 WHERE username = $2`

	res, err := r.db.ExecContext(ctx, query, passwordHash, username)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Auth token repository methods
func (r *PostgresRepository) InsertToken(ctx context.Context, token *models.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (username, token, created_at)
		VALUES ($1, $2, $3)
	`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query, token.Username, token.Token, token.CreatedAt)
	return err
}

func (r *PostgresRepository) FindToken(ctx context.Context, username, token string) (*models.AuthToken, error) {
	query := `SELECT * FROM auth_tokens WHERE username = $1 AND token = $2`

	var authToken models.AuthToken
	err := r.db.GetContext(ctx, &authToken, query, username, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Token not found
		}
		return nil, err
	}

	return &authToken, nil
}

// Transaction repository methods
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, username, source, destination, amount, timestamp, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// Generate a new UUID if not provided
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.Username, tx.Source, tx.Destination, tx.Amount, tx.Timestamp, tx.Notes)

	return err
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, username, id string) (*models.Transaction, error) {
	query := `SELECT * FROM transactions WHERE username = $1 AND id = $2`

	var tx models.Transaction
	err := r.db.GetContext(ctx, &tx, query, username, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Transaction not found
		}
		return nil, err
	}

	return &tx, nil
}

func (r *PostgresRepository) ListTransactions(ctx context.Context, username string) ([]models.Transaction, error) {
	query := `
		SELECT * FROM transactions
		WHERE username = $1
		ORDER BY timestamp DESC
	`

	var transactions []models.Transaction
	err := r.db.SelectContext(ctx, &transactions, query, username)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		UPDATE transactions
		SET source = $1, destination = $2, amount = $3, timestamp = $4, notes = $5
		WHERE username = $6 AND id = $7
	`

	res, err := r.db.ExecContext(ctx, query,
		tx.Source, tx.Destination, tx.Amount, tx.Timestamp, tx.Notes, tx.Username, tx.ID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, username, id string) error {
	query := `DELETE FROM transactions WHERE username = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, username, id)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Mobile repository methods
func (r *PostgresRepository) UpsertMobile(ctx context.Context, mobile *models.Mobile) error {
	// Registrations are keyed by the push registration id: re-registering
	// an existing device moves it to the new username and refreshes
	// last_seen, matching the original upsert semantics.
	query := `
		INSERT INTO mobiles (id, username, registration_id, name, last_seen, notifications)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (registration_id)
		DO UPDATE SET username = $2, name = $4, last_seen = $5
	`

	if mobile.ID == "" {
		mobile.ID = uuid.New().String()
	}

	if mobile.LastSeen.IsZero() {
		mobile.LastSeen = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		mobile.ID, mobile.Username, mobile.RegistrationID, mobile.Name, mobile.LastSeen)

	return err
}

func (r *PostgresRepository) ListMobiles(ctx context.Context, username string) ([]models.Mobile, error) {
	query := `SELECT * FROM mobiles WHERE username = $1`

	var mobiles []models.Mobile
	err := r.db.SelectContext(ctx, &mobiles, query, username)
	if err != nil {
		return nil, err
	}

	return mobiles, nil
}

func (r *PostgresRepository) IncrementNotifications(ctx context.Context, mobileID string) error {
	query := `UPDATE mobiles SET notifications = notifications + 1 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, mobileID)
	return err
}
