package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/sharka/internal/models"
)

// ErrInsufficientFunds is returned by wallet debits and conversions
// that would overdraw.
var ErrInsufficientFunds = errors.New("insufficient funds")

// MemoryStore backs all three store interfaces for local runs and
// tests; the Postgres store takes over when PG_DSN is set.
type MemoryStore struct {
	mu         sync.RWMutex
	rides      map[string]*models.Ride
	passengers map[string][]models.RidePassenger
	wallets    map[string]*models.Wallet
	txns       map[string][]models.WalletTransaction
	earnings   map[string][]models.DriverEarning
	seq        int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rides:      make(map[string]*models.Ride),
		passengers: make(map[string][]models.RidePassenger),
		wallets:    make(map[string]*models.Wallet),
		txns:       make(map[string][]models.WalletTransaction),
		earnings:   make(map[string][]models.DriverEarning),
	}
}

func (m *MemoryStore) SaveRide(r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateRideStatus(id string, status models.RideStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return fmt.Errorf("ride %s not found", id)
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) GetRide(id string) (*models.Ride, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

func (m *MemoryStore) SavePassenger(p *models.RidePassenger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passengers[p.RideID] = append(m.passengers[p.RideID], *p)
	return nil
}

func (m *MemoryStore) GetWallet(userID string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.walletLocked(userID)
	cp := *w
	return &cp, nil
}

func (m *MemoryStore) Credit(userID string, amount int64, kind models.WalletTransactionKind, rideID, note string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.walletLocked(userID)
	w.Balance += amount
	w.UpdatedAt = time.Now()
	m.appendTxnLocked(userID, rideID, kind, amount, note)
	return nil
}

func (m *MemoryStore) Debit(userID string, amount int64, note string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.walletLocked(userID)
	if w.Balance < amount {
		return ErrInsufficientFunds
	}
	w.Balance -= amount
	w.UpdatedAt = time.Now()
	m.appendTxnLocked(userID, "", models.TxnDebit, amount, note)
	return nil
}

func (m *MemoryStore) AddEcoCredits(userID string, credits int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.walletLocked(userID)
	w.EcoCredits += credits
	w.UpdatedAt = time.Now()
	return nil
}

// ConvertEcoCredits moves eco credits into the spendable balance at
// 1 credit = 1 rupee.
func (m *MemoryStore) ConvertEcoCredits(userID string, credits int64) error {
	if credits <= 0 {
		return fmt.Errorf("credits must be positive, got %d", credits)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.walletLocked(userID)
	if w.EcoCredits < credits {
		return ErrInsufficientFunds
	}
	w.EcoCredits -= credits
	w.Balance += credits
	w.UpdatedAt = time.Now()
	m.appendTxnLocked(userID, "", models.TxnCredit, credits, "eco credits conversion")
	return nil
}

func (m *MemoryStore) Transactions(userID string, limit int) ([]models.WalletTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txns := m.txns[userID]
	if limit > 0 && len(txns) > limit {
		txns = txns[len(txns)-limit:]
	}
	return append([]models.WalletTransaction(nil), txns...), nil
}

func (m *MemoryStore) SaveEarning(e *models.DriverEarning) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		m.seq++
		e.ID = fmt.Sprintf("earning-%d", m.seq)
	}
	m.earnings[e.DriverID] = append(m.earnings[e.DriverID], *e)
	return nil
}

func (m *MemoryStore) EarningsSince(driverID string, sinceUnix int64) ([]models.DriverEarning, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.DriverEarning
	for _, e := range m.earnings[driverID] {
		if e.EarnedAt.Unix() >= sinceUnix {
			out = append(out, e)
		}
	}
	return out, nil
}

// caller holds m.mu
func (m *MemoryStore) walletLocked(userID string) *models.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w = &models.Wallet{UserID: userID, UpdatedAt: time.Now()}
		m.wallets[userID] = w
	}
	return w
}

// caller holds m.mu
func (m *MemoryStore) appendTxnLocked(userID, rideID string, kind models.WalletTransactionKind, amount int64, note string) {
	m.seq++
	m.txns[userID] = append(m.txns[userID], models.WalletTransaction{
		ID:        fmt.Sprintf("txn-%d", m.seq),
		WalletID:  userID,
		RideID:    rideID,
		Kind:      kind,
		Amount:    amount,
		Note:      note,
		CreatedAt: time.Now(),
	})
}
