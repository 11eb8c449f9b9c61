package usecases

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"pixgate/internal/application/charge/gateway"
	"pixgate/internal/domain/charge"
	"pixgate/internal/domain/charge/valueobjects"
	"pixgate/internal/shared/errors"
	"pixgate/internal/shared/logger"
)

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeChargeRepo is an in-memory repository with real compare-and-swap
// semantics, so concurrency behavior under test matches production.
type fakeChargeRepo struct {
	mu      sync.Mutex
	charges map[string]*charge.Charge // keyed by external id
}

func newFakeChargeRepo() *fakeChargeRepo {
	return &fakeChargeRepo{charges: make(map[string]*charge.Charge)}
}

func (r *fakeChargeRepo) Create(_ context.Context, c *charge.Charge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.charges[c.ExternalID()]; ok {
		return errors.NewConflictError("external id already in use")
	}
	r.charges[c.ExternalID()] = c
	return nil
}

func (r *fakeChargeRepo) GetBySID(_ context.Context, sid string) (*charge.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.charges {
		if c.SID() == sid {
			return c, nil
		}
	}
	return nil, errors.NewNotFoundError("charge")
}

func (r *fakeChargeRepo) GetByExternalID(_ context.Context, externalID string) (*charge.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.charges[externalID]
	if !ok {
		return nil, errors.NewNotFoundError("charge")
	}
	return c, nil
}

func (r *fakeChargeRepo) GetByTransactionID(_ context.Context, transactionID string) (*charge.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.charges {
		if c.TransactionID() == transactionID {
			return c, nil
		}
	}
	return nil, errors.NewNotFoundError("charge")
}

func (r *fakeChargeRepo) SettleIfPending(_ context.Context, externalID string, s charge.Settlement) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.charges[externalID]
	if !ok {
		return false, errors.NewNotFoundError("charge")
	}
	if !c.Status().IsPending() {
		return false, nil
	}
	if err := c.Settle(s.PaymentID, s.PaymentDate, s.PayerName, s.PayerTaxID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *fakeChargeRepo) List(_ context.Context, filter charge.ListFilter) ([]*charge.Charge, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*charge.Charge
	for _, c := range r.charges {
		if filter.Status != "" && c.Status().String() != filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, int64(len(out)), nil
}

func (r *fakeChargeRepo) ListStalePending(_ context.Context, now time.Time, limit int) ([]*charge.Charge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*charge.Charge
	for _, c := range r.charges {
		if c.Status().IsPending() && !c.IsExpired(now) {
			out = append(out, c)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeChargeRepo) Delete(_ context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ext, c := range r.charges {
		if c.SID() == sid {
			delete(r.charges, ext)
			return nil
		}
	}
	return errors.NewNotFoundError("charge")
}

// directTxManager runs the function without a real transaction; the fake
// repo's mutex already gives each operation atomicity.
type directTxManager struct{}

func (directTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// countingTxManager records how many transactions were opened.
type countingTxManager struct {
	mu    sync.Mutex
	calls int
}

func (m *countingTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx)
}

func (m *countingTxManager) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockGateway is a testify mock for the provider contract.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateCharge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeCreated, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeCreated), args.Error(1)
}

func (m *mockGateway) GetChargeByTransactionID(ctx context.Context, transactionID string) (*gateway.ChargeSnapshot, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeSnapshot), args.Error(1)
}

func (m *mockGateway) GetChargeByExternalID(ctx context.Context, externalID string) (*gateway.ChargeSnapshot, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeSnapshot), args.Error(1)
}

func (m *mockGateway) GetChargeDetail(ctx context.Context, transactionID string) (*gateway.ChargeSnapshot, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.ChargeSnapshot), args.Error(1)
}

// mockNotifier records amount-mismatch alerts.
type mockNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *mockNotifier) NotifyAmountMismatch(_ context.Context, _ *charge.Charge, _ int64, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
}

func (n *mockNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// seedPendingCharge puts a pending charge with attached gateway ids into the repo.
func seedPendingCharge(repo *fakeChargeRepo, externalID, transactionID string, cents int64) *charge.Charge {
	amount := valueobjects.ReconstructMoney(cents, "BRL")
	c, err := charge.NewCharge(externalID, amount, "seed", 3600)
	if err != nil {
		panic(err)
	}
	if err := c.AttachGatewayCharge(transactionID, "000201br.gov.bcb.pix", ""); err != nil {
		panic(err)
	}
	if err := repo.Create(context.Background(), c); err != nil {
		panic(err)
	}
	return c
}
