package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"parkpay/internal/models"
)

var (
	// ErrWalletNotFound indicates no wallet exists for the user.
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrWalletAlreadyExists indicates the one-wallet-per-user invariant would be violated.
	ErrWalletAlreadyExists = errors.New("wallet already exists")
	// ErrWalletInactive indicates the wallet is disabled for transactions.
	ErrWalletInactive = errors.New("wallet is inactive")
	// ErrInsufficientBalance indicates a debit exceeding the current balance. Nothing is written.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrTransactionNotFound indicates no ledger entry matches the given reference.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// ApplyInput describes one balance-affecting ledger application.
type ApplyInput struct {
	UserID      int64
	Type        string
	Amount      decimal.Decimal
	Fee         decimal.Decimal
	Reference   string
	Description string
}

// ApplyResult reports the balance movement of a successful application.
type ApplyResult struct {
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Transaction   *models.WalletTransaction
}

// ReconcileOutcome reports how a gateway callback was applied to the ledger.
type ReconcileOutcome struct {
	Status   string
	Replayed bool
	Credited decimal.Decimal
}

// WalletRepository owns wallets and their transaction ledger.
//
// Every mutation runs inside a single SQL transaction with the wallet row
// locked (SELECT ... FOR UPDATE), so concurrent applications against one
// wallet serialize while distinct wallets stay independent.
type WalletRepository struct {
	db *sql.DB
}

// NewWalletRepository returns repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Create inserts a wallet for the user, enforcing one wallet per user.
func (r *WalletRepository) Create(ctx context.Context, userID int64, currency string) (*models.Wallet, error) {
	const query = `
		INSERT INTO wallets (user_id, balance, currency, is_active, created_at, updated_at)
		VALUES ($1, 0, $2, TRUE, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id, user_id, balance, currency, is_active, created_at, updated_at
	`
	w := &models.Wallet{}
	err := r.db.QueryRowContext(ctx, query, userID, currency).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetByUserID returns the user's wallet.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	const query = `
		SELECT id, user_id, balance, currency, is_active, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`
	w := &models.Wallet{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.IsActive, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Apply debits or credits the wallet and writes the COMPLETED ledger row as a
// single atomic unit. A failed balance check writes nothing.
func (r *WalletRepository) Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		walletID int64
		balance  decimal.Decimal
		isActive bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, balance, is_active FROM wallets WHERE user_id = $1 FOR UPDATE`,
		in.UserID,
	).Scan(&walletID, &balance, &isActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isActive {
		return nil, ErrWalletInactive
	}

	// Fees ride on credits only (gateway cut on a top-up); a debit moves
	// exactly its amount, so the guard and the mutation use the same figure.
	net := in.Amount.Sub(in.Fee)
	var newBalance decimal.Decimal
	if models.IsDebitType(in.Type) {
		net = in.Amount
		if balance.LessThan(in.Amount) {
			return nil, ErrInsufficientBalance
		}
		newBalance = balance.Sub(in.Amount)
	} else {
		newBalance = balance.Add(net)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`,
		walletID, newBalance,
	); err != nil {
		return nil, err
	}

	entry := &models.WalletTransaction{
		UserID:      in.UserID,
		WalletID:    walletID,
		Reference:   in.Reference,
		Type:        in.Type,
		Amount:      in.Amount,
		Fee:         in.Fee,
		NetAmount:   net,
		Status:      models.TransactionStatusCompleted,
		Description: in.Description,
	}
	const insert = `
		INSERT INTO wallet_transactions
			(user_id, wallet_id, reference, type, amount, fee, net_amount, status, description, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, processed_at, created_at
	`
	if err := tx.QueryRowContext(ctx, insert,
		entry.UserID, entry.WalletID, entry.Reference, entry.Type,
		entry.Amount, entry.Fee, entry.NetAmount, entry.Status, entry.Description,
	).Scan(&entry.ID, &entry.ProcessedAt, &entry.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ApplyResult{
		BalanceBefore: balance,
		BalanceAfter:  newBalance,
		Transaction:   entry,
	}, nil
}

// CreatePending writes a PENDING ledger row for a gateway-bound flow, keyed by
// its order reference, before the external call is made.
func (r *WalletRepository) CreatePending(ctx context.Context, entry *models.WalletTransaction) error {
	const query = `
		INSERT INTO wallet_transactions
			(user_id, wallet_id, reference, type, amount, fee, net_amount, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, NOW())
		RETURNING id, created_at
	`
	entry.Status = models.TransactionStatusPending
	return r.db.QueryRowContext(ctx, query,
		entry.UserID, entry.WalletID, entry.Reference, entry.Type,
		entry.Amount, entry.Fee, entry.Status, entry.Description,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// MarkFailed moves a still-pending entry to FAILED, storing the gateway's raw
// synchronous response.
func (r *WalletRepository) MarkFailed(ctx context.Context, reference, rawResponse string) error {
	const query = `
		UPDATE wallet_transactions
		SET status = $2, gateway_response = $3, processed_at = NOW()
		WHERE reference = $1 AND status = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		reference, models.TransactionStatusFailed, rawResponse, models.TransactionStatusPending)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// Reconcile applies a gateway callback's final result to the ledger.
//
// The pending row is locked by its order reference before inspection, so two
// concurrently replayed callbacks cannot both observe PENDING. A row already
// in a terminal state is reported as a replay and left untouched.
func (r *WalletRepository) Reconcile(ctx context.Context, orderID string, success bool, amount decimal.Decimal, externalID, rawPayload string) (*ReconcileOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var (
		txID     int64
		walletID int64
		fee      decimal.Decimal
		status   string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, wallet_id, fee, status
		FROM wallet_transactions
		WHERE reference = $1
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`, orderID).Scan(&txID, &walletID, &fee, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	if models.IsTerminalStatus(status) {
		// Replay of an already-handled callback. Acknowledge, re-apply nothing.
		return &ReconcileOutcome{Status: status, Replayed: true}, tx.Commit()
	}

	if !success {
		if _, err := tx.ExecContext(ctx, `
			UPDATE wallet_transactions
			SET status = $2, gateway_response = $3, processed_at = NOW()
			WHERE id = $1
		`, txID, models.TransactionStatusFailed, rawPayload); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &ReconcileOutcome{Status: models.TransactionStatusFailed}, nil
	}

	var balance decimal.Decimal
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE id = $1 FOR UPDATE`, walletID,
	).Scan(&balance); err != nil {
		return nil, fmt.Errorf("reconcile: lock wallet %d: %w", walletID, err)
	}

	net := amount.Sub(fee)
	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = $2, updated_at = NOW() WHERE id = $1`,
		walletID, balance.Add(net),
	); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE wallet_transactions
		SET status = $2, amount = $3, net_amount = $4,
		    external_transaction_id = $5, gateway_response = $6, processed_at = NOW()
		WHERE id = $1
	`, txID, models.TransactionStatusCompleted, amount, net, externalID, rawPayload); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ReconcileOutcome{Status: models.TransactionStatusCompleted, Credited: net}, nil
}

// ListTransactions returns the user's latest ledger entries.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, user_id, wallet_id, reference, type, amount, fee, net_amount,
		       external_transaction_id, gateway_response, status, description, processed_at, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WalletTransaction
	for rows.Next() {
		var e models.WalletTransaction
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.WalletID, &e.Reference, &e.Type,
			&e.Amount, &e.Fee, &e.NetAmount,
			&e.ExternalTransactionID, &e.GatewayResponse,
			&e.Status, &e.Description, &e.ProcessedAt, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
