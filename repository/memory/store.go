// Package memory is an in-process implementation of the repository
// interfaces. Account locks are per-account semaphores held for the lifetime
// of a unit of work, and a commit publishes all of its writes at once.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go-ledger-api/model"
	"go-ledger-api/repository"

	"golang.org/x/sync/semaphore"
)

var (
	_ repository.IAccountRepository     = (*Store)(nil)
	_ repository.ITransactionRepository = (*Store)(nil)
	_ repository.IClientRepository      = (*Store)(nil)
	_ repository.ILedgerStore           = (*Store)(nil)
	_ repository.IAccountHistoryReader  = (*Store)(nil)
)

var errAccountNotLocked = errors.New("account must be locked before it is updated")

type Store struct {
	mu           sync.RWMutex
	accounts     map[string]model.Account
	clients      map[string]model.Client
	transactions []model.Transaction

	locksMu sync.Mutex
	locks   map[string]*semaphore.Weighted
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]model.Account),
		clients:  make(map[string]model.Client),
		locks:    make(map[string]*semaphore.Weighted),
	}
}

// AddClient stores or replaces a client record.
func (s *Store) AddClient(client model.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = client
}

// AddAccount stores or replaces an account outside of the ledger, e.g. to seed balances.
func (s *Store) AddAccount(account model.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

func (s *Store) lockFor(id string) *semaphore.Weighted {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = semaphore.NewWeighted(1)
		s.locks[id] = l
	}
	return l
}

func (s *Store) CreateAccount(_ context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.ID]; ok {
		return errors.New("account id already exists")
	}
	for _, existing := range s.accounts {
		if existing.Number == account.Number {
			return errors.New("account number already exists")
		}
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return nil
}

func (s *Store) GetAccountByID(_ context.Context, id string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &acc, nil
}

func (s *Store) GetAccountsByIDs(_ context.Context, ids []string) ([]*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Account
	for _, id := range ids {
		if acc, ok := s.accounts[id]; ok {
			out = append(out, &acc)
		}
	}
	return out, nil
}

func (s *Store) AccountNumberExists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetClientByID(_ context.Context, id string) (*model.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &c, nil
}

func (s *Store) GetTransactionsByAccountID(_ context.Context, accountID string) ([]*model.Transaction, error) {
	return s.selectTransactions(func(t *model.Transaction) bool {
		return t.IsSource(accountID) || t.IsDestination(accountID)
	}), nil
}

func (s *Store) GetTransactionsByAccountSide(_ context.Context, accountID string, side model.Side, start, end time.Time) ([]*model.Transaction, error) {
	return s.selectTransactions(func(t *model.Transaction) bool {
		if t.CreatedAt.Before(start) || t.CreatedAt.After(end) {
			return false
		}
		if side == model.SideSource {
			return t.IsSource(accountID)
		}
		return t.IsDestination(accountID)
	}), nil
}

// GetAccountWithHistory reads the account and its history under a single read
// lock. Commits publish under the write lock, so the pair is always consistent.
func (s *Store) GetAccountWithHistory(_ context.Context, accountID string) (*model.Account, []*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[accountID]
	if !ok {
		return nil, nil, repository.ErrRecordNotFound
	}
	history := s.filterTransactions(func(t *model.Transaction) bool {
		return t.IsSource(accountID) || t.IsDestination(accountID)
	})
	return &acc, history, nil
}

func (s *Store) selectTransactions(match func(*model.Transaction) bool) []*model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterTransactions(match)
}

// filterTransactions requires s.mu to be held.
func (s *Store) filterTransactions(match func(*model.Transaction) bool) []*model.Transaction {
	var out []*model.Transaction
	for i := range s.transactions {
		t := s.transactions[i]
		if match(&t) {
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Begin never blocks; locks are taken by GetAccountForUpdate.
func (s *Store) Begin(_ context.Context) (repository.IUnitOfWork, error) {
	return &unitOfWork{
		store:    s,
		held:     make(map[string]*semaphore.Weighted),
		accounts: make(map[string]model.Account),
	}, nil
}

type unitOfWork struct {
	store        *Store
	held         map[string]*semaphore.Weighted
	accounts     map[string]model.Account
	transactions []model.Transaction
	done         bool
}

// GetAccountForUpdate waits for the account lock until ctx is done.
func (u *unitOfWork) GetAccountForUpdate(ctx context.Context, id string) (*model.Account, error) {
	if u.done {
		return nil, errors.New("unit of work already finished")
	}
	if pending, ok := u.accounts[id]; ok {
		return &pending, nil
	}
	if _, ok := u.held[id]; !ok {
		l := u.store.lockFor(id)
		if err := l.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		u.held[id] = l
	}
	acc, err := u.store.GetAccountByID(context.Background(), id)
	if err != nil {
		u.held[id].Release(1)
		delete(u.held, id)
		return nil, err
	}
	return acc, nil
}

func (u *unitOfWork) UpdateAccountBalance(_ context.Context, account *model.Account) error {
	if _, ok := u.held[account.ID]; !ok {
		return errAccountNotLocked
	}
	current, ok := u.accounts[account.ID]
	if !ok {
		committed, err := u.store.GetAccountByID(context.Background(), account.ID)
		if err != nil {
			return err
		}
		current = *committed
	}
	if current.Version != account.Version {
		return repository.ErrConcurrencyConflict
	}
	account.Version++
	updated := current
	updated.Balance = account.Balance
	updated.Version = account.Version
	updated.UpdatedAt = time.Now().UTC()
	u.accounts[account.ID] = updated
	return nil
}

func (u *unitOfWork) CreateTransaction(_ context.Context, transaction *model.Transaction) error {
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.transactions = append(u.transactions, *transaction)
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.store.mu.Lock()
	for id, acc := range u.accounts {
		u.store.accounts[id] = acc
	}
	u.store.transactions = append(u.store.transactions, u.transactions...)
	u.store.mu.Unlock()
	u.release()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.release()
	return nil
}

func (u *unitOfWork) release() {
	for id, l := range u.held {
		l.Release(1)
		delete(u.held, id)
	}
	u.done = true
}
