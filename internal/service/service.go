package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/expenses-server/internal/ledger"
	"github.com/rongwang/expenses-server/internal/models"
	"github.com/rongwang/expenses-server/internal/notify"
	"github.com/rongwang/expenses-server/internal/repository"
	"github.com/rongwang/expenses-server/internal/utils"
)

var (
	// ErrNotFound is returned when the requested expense does not exist
	// under the given user.
	ErrNotFound = errors.New("expense not found")

	// ErrInvalidExpense is returned when the submitted expense data is
	// unusable (negative amount, unparsable timestamp).
	ErrInvalidExpense = errors.New("invalid expense data")
)

// Service defines all the business logic operations
type Service interface {
	// Expense operations
	ListExpenses(ctx context.Context, username string) ([]models.Transaction, error)
	GetExpense(ctx context.Context, username, id string) (*models.Transaction, error)
	CreateExpense(ctx context.Context, username string, req models.ExpenseRequest) (*models.Transaction, error)
	UpdateExpense(ctx context.Context, username, id string, req models.ExpenseRequest) (*models.Transaction, error)
	DeleteExpense(ctx context.Context, username, id string) error

	// Balance query
	AccountBalances(ctx context.Context, username string, accountFilter []string) ([]models.AccountBalance, error)

	// Mobile operations
	RegisterMobile(ctx context.Context, username string, req models.RegisterMobileRequest) (*models.Mobile, error)
	ListMobiles(ctx context.Context, username string) ([]models.Mobile, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo       repository.Repository
	aggregator *ledger.Aggregator
	notifier   *notify.Notifier
	logger     *utils.Logger
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, aggregator *ledger.Aggregator, notifier *notify.Notifier, logger *utils.Logger) Service {
	return &DefaultService{
		repo:       repo,
		aggregator: aggregator,
		notifier:   notifier,
		logger:     logger.Named("service"),
	}
}

// Expense operations
func (s *DefaultService) ListExpenses(ctx context.Context, username string) ([]models.Transaction, error) {
	transactions, err := s.repo.ListTransactions(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error listing expenses: %w", err)
	}

	return transactions, nil
}

func (s *DefaultService) GetExpense(ctx context.Context, username, id string) (*models.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, username, id)
	if err != nil {
		return nil, fmt.Errorf("error getting expense: %w", err)
	}

	if tx == nil {
		return nil, ErrNotFound
	}

	return tx, nil
}

func (s *DefaultService) CreateExpense(
	ctx context.Context,
	username string,
	req models.ExpenseRequest,
) (*models.Transaction, error) {
	tx, err := expenseFromRequest(username, req)
	if err != nil {
		return nil, err
	}
	tx.ID = uuid.New().String()

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("error creating expense: %w", err)
	}

	// Tell the user's other devices; the reporting device already knows.
	go s.notifier.NotifyUserMobiles(username, req.ReporterRegistrationID)

	return tx, nil
}

func (s *DefaultService) UpdateExpense(
	ctx context.Context,
	username string,
	id string,
	req models.ExpenseRequest,
) (*models.Transaction, error) {
	tx, err := expenseFromRequest(username, req)
	if err != nil {
		return nil, err
	}
	tx.ID = id

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error updating expense: %w", err)
	}

	go s.notifier.NotifyUserMobiles(username, "")

	return tx, nil
}

func (s *DefaultService) DeleteExpense(ctx context.Context, username, id string) error {
	if err := s.repo.DeleteTransaction(ctx, username, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error deleting expense: %w", err)
	}

	go s.notifier.NotifyUserMobiles(username, "")

	return nil
}

// Balance query
func (s *DefaultService) AccountBalances(
	ctx context.Context,
	username string,
	accountFilter []string,
) ([]models.AccountBalance, error) {
	balances, err := s.aggregator.ComputeBalances(ctx, username, accountFilter)
	if err != nil {
		return nil, err
	}

	// Deterministic order for the API response.
	result := make([]models.AccountBalance, 0, len(balances))
	for account, balance := range balances {
		result = append(result, models.AccountBalance{Account: account, Balance: balance})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Account < result[j].Account
	})

	return result, nil
}

// Mobile operations
func (s *DefaultService) RegisterMobile(
	ctx context.Context,
	username string,
	req models.RegisterMobileRequest,
) (*models.Mobile, error) {
	mobile := &models.Mobile{
		Username:       username,
		RegistrationID: req.RegistrationID,
		Name:           req.Mobile,
		LastSeen:       time.Now().UTC(),
	}

	if err := s.repo.UpsertMobile(ctx, mobile); err != nil {
		return nil, fmt.Errorf("error registering mobile: %w", err)
	}

	return mobile, nil
}

func (s *DefaultService) ListMobiles(ctx context.Context, username string) ([]models.Mobile, error) {
	mobiles, err := s.repo.ListMobiles(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("error listing mobiles: %w", err)
	}

	return mobiles, nil
}

// expenseFromRequest validates the request and builds the transaction
// it describes. The ledger owner always comes from the URL, never from
// the request body.
func expenseFromRequest(username string, req models.ExpenseRequest) (*models.Transaction, error) {
	if req.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidExpense)
	}

	timestamp := time.Now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp: %v", ErrInvalidExpense, err)
		}
		timestamp = parsed.UTC()
	}

	return &models.Transaction{
		Username:    username,
		Source:      req.Source,
		Destination: req.Destination,
		Amount:      req.Amount,
		Timestamp:   timestamp,
		Notes:       req.Notes,
	}, nil
}
