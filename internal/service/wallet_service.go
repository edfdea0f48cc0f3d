package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parkpay/internal/models"
	"parkpay/internal/repository"
)

var (
	// ErrNonPositiveAmount rejects zero or negative transaction amounts.
	ErrNonPositiveAmount = errors.New("wallet: amount must be positive")
	// ErrUnsupportedTransactionType rejects types outside the ledger taxonomy.
	ErrUnsupportedTransactionType = errors.New("wallet: unsupported transaction type")
)

// WalletStore is the persistence contract the ledger needs. Implementations
// must serialize Apply calls per wallet.
type WalletStore interface {
	Create(ctx context.Context, userID int64, currency string) (*models.Wallet, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error)
	Apply(ctx context.Context, in repository.ApplyInput) (*repository.ApplyResult, error)
	ListTransactions(ctx context.Context, userID int64, limit int) ([]models.WalletTransaction, error)
}

// WalletService owns per-user balances and their transaction ledger.
type WalletService struct {
	store    WalletStore
	currency string
	logger   *zap.Logger
}

// NewWalletService builds service.
func NewWalletService(store WalletStore, currency string, logger *zap.Logger) *WalletService {
	if currency == "" {
		currency = "VND"
	}
	return &WalletService{store: store, currency: currency, logger: logger}
}

// CreateWallet opens the user's single wallet.
func (s *WalletService) CreateWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet, err := s.store.Create(ctx, userID, s.currency)
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet created",
		zap.Int64("user_id", userID),
		zap.Int64("wallet_id", wallet.ID),
	)
	return wallet, nil
}

// GetBalance returns the user's wallet with its current balance.
func (s *WalletService) GetBalance(ctx context.Context, userID int64) (*models.Wallet, error) {
	return s.store.GetByUserID(ctx, userID)
}

// Apply debits or credits the wallet and records the ledger entry atomically.
// Debit types require sufficient balance; a failed check changes nothing.
func (s *WalletService) Apply(ctx context.Context, userID int64, txType string, amount decimal.Decimal, reference, description string) (*repository.ApplyResult, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if !models.IsDebitType(txType) && !models.IsCreditType(txType) {
		return nil, ErrUnsupportedTransactionType
	}

	result, err := s.store.Apply(ctx, repository.ApplyInput{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Fee:         decimal.Zero,
		Reference:   reference,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("wallet transaction applied",
		zap.Int64("user_id", userID),
		zap.String("type", txType),
		zap.String("amount", amount.String()),
		zap.String("reference", reference),
		zap.String("balance_after", result.BalanceAfter.String()),
	)
	return result, nil
}

// Transactions returns the user's ledger history.
func (s *WalletService) Transactions(ctx context.Context, userID int64, limit int) ([]models.WalletTransaction, error) {
	return s.store.ListTransactions(ctx, userID, limit)
}
