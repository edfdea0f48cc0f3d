package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"parkpay/internal/models"
	"parkpay/internal/repository"
	"parkpay/internal/ws"
)

// fakeWalletStore is an in-memory WalletStore and PaymentStore. Like the SQL
// implementation it serializes every mutation on one lock, so concurrent
// applications against the same wallet never interleave.
type fakeWalletStore struct {
	mu      sync.Mutex
	nextID  int64
	wallets map[int64]*models.Wallet
	ledger  []*models.WalletTransaction
}

func newFakeWalletStore() *fakeWalletStore {
	return &fakeWalletStore{wallets: make(map[int64]*models.Wallet)}
}

// seed opens a wallet holding the given balance, backed by a COMPLETED
// top-up ledger row so the balance stays reproducible from the ledger.
func (f *fakeWalletStore) seed(userID int64, balance decimal.Decimal) *models.Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	w := &models.Wallet{
		ID:       f.nextID,
		UserID:   userID,
		Balance:  balance,
		Currency: "VND",
		IsActive: true,
	}
	f.wallets[userID] = w
	if balance.IsPositive() {
		now := time.Now().UTC()
		f.nextID++
		f.ledger = append(f.ledger, &models.WalletTransaction{
			ID:          f.nextID,
			UserID:      userID,
			WalletID:    w.ID,
			Type:        models.TransactionTypeTopUp,
			Amount:      balance,
			NetAmount:   balance,
			Status:      models.TransactionStatusCompleted,
			Description: "initial top-up",
			ProcessedAt: &now,
			CreatedAt:   now,
		})
	}
	return w
}

func (f *fakeWalletStore) Create(ctx context.Context, userID int64, currency string) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.wallets[userID]; ok {
		return nil, repository.ErrWalletAlreadyExists
	}
	f.nextID++
	w := &models.Wallet{
		ID:       f.nextID,
		UserID:   userID,
		Balance:  decimal.Zero,
		Currency: currency,
		IsActive: true,
	}
	f.wallets[userID] = w
	return w, nil
}

func (f *fakeWalletStore) GetByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	copied := *w
	return &copied, nil
}

func (f *fakeWalletStore) Apply(ctx context.Context, in repository.ApplyInput) (*repository.ApplyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w, ok := f.wallets[in.UserID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	if !w.IsActive {
		return nil, repository.ErrWalletInactive
	}

	// Same convention as the SQL store: fees apply to credits only.
	net := in.Amount.Sub(in.Fee)
	before := w.Balance
	if models.IsDebitType(in.Type) {
		net = in.Amount
		if w.Balance.LessThan(in.Amount) {
			return nil, repository.ErrInsufficientBalance
		}
		w.Balance = w.Balance.Sub(in.Amount)
	} else {
		w.Balance = w.Balance.Add(net)
	}

	now := time.Now().UTC()
	f.nextID++
	entry := &models.WalletTransaction{
		ID:          f.nextID,
		UserID:      in.UserID,
		WalletID:    w.ID,
		Reference:   in.Reference,
		Type:        in.Type,
		Amount:      in.Amount,
		Fee:         in.Fee,
		NetAmount:   net,
		Status:      models.TransactionStatusCompleted,
		Description: in.Description,
		ProcessedAt: &now,
		CreatedAt:   now,
	}
	f.ledger = append(f.ledger, entry)

	return &repository.ApplyResult{
		BalanceBefore: before,
		BalanceAfter:  w.Balance,
		Transaction:   entry,
	}, nil
}

func (f *fakeWalletStore) CreatePending(ctx context.Context, entry *models.WalletTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	entry.ID = f.nextID
	entry.Status = models.TransactionStatusPending
	entry.CreatedAt = time.Now().UTC()
	f.ledger = append(f.ledger, entry)
	return nil
}

func (f *fakeWalletStore) MarkFailed(ctx context.Context, reference, rawResponse string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.ledger {
		if e.Reference == reference && e.Status == models.TransactionStatusPending {
			e.Status = models.TransactionStatusFailed
			e.GatewayResponse = &rawResponse
			return nil
		}
	}
	return repository.ErrTransactionNotFound
}

func (f *fakeWalletStore) Reconcile(ctx context.Context, orderID string, success bool, amount decimal.Decimal, externalID, rawPayload string) (*repository.ReconcileOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var entry *models.WalletTransaction
	for i := len(f.ledger) - 1; i >= 0; i-- {
		if f.ledger[i].Reference == orderID {
			entry = f.ledger[i]
			break
		}
	}
	if entry == nil {
		return nil, repository.ErrTransactionNotFound
	}
	if models.IsTerminalStatus(entry.Status) {
		return &repository.ReconcileOutcome{Status: entry.Status, Replayed: true}, nil
	}

	if !success {
		entry.Status = models.TransactionStatusFailed
		entry.GatewayResponse = &rawPayload
		return &repository.ReconcileOutcome{Status: models.TransactionStatusFailed}, nil
	}

	net := amount.Sub(entry.Fee)
	for _, w := range f.wallets {
		if w.ID == entry.WalletID {
			w.Balance = w.Balance.Add(net)
		}
	}
	entry.Status = models.TransactionStatusCompleted
	entry.Amount = amount
	entry.NetAmount = net
	entry.ExternalTransactionID = &externalID
	entry.GatewayResponse = &rawPayload
	return &repository.ReconcileOutcome{Status: models.TransactionStatusCompleted, Credited: net}, nil
}

func (f *fakeWalletStore) ListTransactions(ctx context.Context, userID int64, limit int) ([]models.WalletTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WalletTransaction
	for i := len(f.ledger) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if f.ledger[i].UserID == userID {
			out = append(out, *f.ledger[i])
		}
	}
	return out, nil
}

// signedSum folds the user's ledger into the balance it implies.
func (f *fakeWalletStore) signedSum(userID int64) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, e := range f.ledger {
		if e.UserID == userID && e.Status == models.TransactionStatusCompleted {
			sum = sum.Add(e.SignedNet())
		}
	}
	return sum
}

// fakeSessionStore keeps sessions in memory with the same guarded status
// transitions as the SQL repository.
type fakeSessionStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*models.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[int64]*models.Session)}
}

func (f *fakeSessionStore) Create(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = time.Now().UTC()
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, id int64) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) Complete(ctx context.Context, id int64, exitTime time.Time, durationMinutes int, total decimal.Decimal, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if s.Status != models.SessionStatusActive {
		return repository.ErrSessionNotActive
	}
	s.Status = models.SessionStatusCompleted
	s.ExitTime = &exitTime
	s.DurationMinutes = &durationMinutes
	s.TotalAmount = total
	if note != "" {
		s.Note = note
	}
	return nil
}

func (f *fakeSessionStore) Cancel(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if s.Status != models.SessionStatusActive {
		return repository.ErrSessionNotActive
	}
	s.Status = models.SessionStatusDeleted
	return nil
}

func (f *fakeSessionStore) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) ListActive(ctx context.Context, limit int) ([]models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Session
	for _, s := range f.sessions {
		if s.Status == models.SessionStatusActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

// fakeDirectory serves fixed lots and vehicles.
type fakeDirectory struct {
	lots     map[int64]*models.ParkingLot
	vehicles map[int64]*models.Vehicle
}

func (f *fakeDirectory) GetLot(ctx context.Context, id int64) (*models.ParkingLot, error) {
	lot, ok := f.lots[id]
	if !ok {
		return nil, repository.ErrLotNotFound
	}
	return lot, nil
}

func (f *fakeDirectory) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	v, ok := f.vehicles[id]
	if !ok {
		return nil, repository.ErrVehicleNotFound
	}
	return v, nil
}

// fakeRuleStore resolves every lookup to one rule.
type fakeRuleStore struct {
	rule *models.PricingRule
}

func (f *fakeRuleStore) Resolve(ctx context.Context, lotID int64, vehicleType string, at time.Time) (*models.PricingRule, error) {
	if f.rule == nil {
		return nil, repository.ErrPricingRuleNotFound
	}
	return f.rule, nil
}

func (f *fakeRuleStore) GetByID(ctx context.Context, id int64) (*models.PricingRule, error) {
	if f.rule == nil || f.rule.ID != id {
		return nil, repository.ErrPricingRuleNotFound
	}
	return f.rule, nil
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.Type)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
