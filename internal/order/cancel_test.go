package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/enum"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// blockingKitchen holds every batch until release is closed.
type blockingKitchen struct {
	started chan struct{}
	release chan struct{}

	mu      sync.Mutex
	batches []DispatchBatch
}

func newBlockingKitchen() *blockingKitchen {
	return &blockingKitchen{started: make(chan struct{}, 4), release: make(chan struct{})}
}

func (k *blockingKitchen) EnqueueDispatch(ctx context.Context, owner uuid.UUID, b DispatchBatch) error {
	k.started <- struct{}{}
	<-k.release
	k.mu.Lock()
	k.batches = append(k.batches, b)
	k.mu.Unlock()
	return nil
}

func TestRegisterPayment_CancelledCallerKeepsGuardUntilStoreAnswers(t *testing.T) {
	store, started, release := blockingSettlements()
	e := newTestEngine(t, store, &mockKitchen{}, Options{})
	readyForPayment(t, e, "Mesa 1")

	ctx, cancel := context.WithCancel(context.Background())
	var (
		first    *Order
		firstErr error
		wg       sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, firstErr = e.RegisterPayment(ctx, "Mesa 1")
	}()
	<-started
	cancel()

	if _, err := e.RegisterPayment(context.Background(), "Mesa 1"); !errors.Is(err, ErrReentrancyRejected) {
		t.Errorf("expected ErrReentrancyRejected while the first write is outstanding, got %v", err)
	}
	close(release)
	wg.Wait()

	if firstErr != nil || first == nil {
		t.Fatalf("expected the persisted payment to be reported as success, got %v", firstErr)
	}
	if n := store.count("InsertSettlement"); n != 1 {
		t.Errorf("expected exactly one persisted settlement, got %d", n)
	}
	if got := len(e.Lines("Mesa 1")); got != 0 {
		t.Errorf("expected paid lines removed locally, got %d", got)
	}
}

func TestRegisterPayment_AlreadyCancelledWritesNothing(t *testing.T) {
	store := &mockStore{}
	e := newTestEngine(t, store, &mockKitchen{}, Options{})
	readyForPayment(t, e, "Mesa 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.RegisterPayment(ctx, "Mesa 1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := store.count("InsertSettlement"); n != 0 {
		t.Errorf("expected no settlement write, got %d", n)
	}
	if got := len(e.Lines("Mesa 1")); got != 1 {
		t.Errorf("expected lines untouched, got %d", got)
	}

	if _, err := e.RegisterPayment(context.Background(), "Mesa 1"); err != nil {
		t.Errorf("expected the guard to be free afterwards, got %v", err)
	}
}

func TestDispatchSelected_CancelledCallerSeesAcceptedBatch(t *testing.T) {
	kitchen := newBlockingKitchen()
	e := NewEngine(Options{Owner: uuid.New(), Store: &mockStore{}, Kitchen: kitchen, Logger: zerolog.Nop()})
	t.Cleanup(e.Close)
	e.Replace([]Table{{Name: "Mesa 1"}}, nil)
	l := mustAddLine(t, e, "Mesa 1", "Coffee", "1", "1500")
	_ = e.Toggle(enum.SelectionKitchen, "Mesa 1", l.ID)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		batch *DispatchBatch
		err   error
		wg    sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		batch, err = e.DispatchSelected(ctx, "Mesa 1")
	}()
	<-kitchen.started
	cancel()
	close(kitchen.release)
	wg.Wait()

	if err != nil || batch == nil {
		t.Fatalf("expected the accepted batch to be reported, got %v", err)
	}
	if got := e.Dispatched("Mesa 1"); len(got) != 1 {
		t.Errorf("expected dispatched log to follow the queue, got %+v", got)
	}
	if len(kitchen.batches) != 1 {
		t.Errorf("expected one batch in the queue, got %d", len(kitchen.batches))
	}
}

func TestPessimistic_CancelledCallerAppliesCommittedWrite(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	store := &mockStore{
		insertLineFn: func(ctx context.Context, line LineItem) error {
			started <- struct{}{}
			<-release
			return nil
		},
	}
	e := newTestEngine(t, store, &mockKitchen{}, Options{WritePolicy: enum.WritePolicyPessimistic})

	ctx, cancel := context.WithCancel(context.Background())
	var (
		err error
		wg  sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err = e.AddLine(ctx, NewLine{
			Table: "Mesa 1", ProductName: "Coffee", Unit: enum.UnitCount,
			Quantity: dec("1"), UnitPrice: dec("1500"),
		})
	}()
	<-started
	cancel()
	close(release)
	wg.Wait()

	if err != nil {
		t.Fatalf("expected committed write to be reported as success, got %v", err)
	}
	if got := len(e.Lines("Mesa 1")); got != 1 {
		t.Errorf("expected local line after remote commit, got %d", got)
	}
}

func TestPessimistic_AlreadyCancelledAppliesNothing(t *testing.T) {
	store := &mockStore{}
	e := newTestEngine(t, store, &mockKitchen{}, Options{WritePolicy: enum.WritePolicyPessimistic})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.AddLine(ctx, NewLine{
		Table: "Mesa 1", ProductName: "Coffee", Unit: enum.UnitCount,
		Quantity: dec("1"), UnitPrice: dec("1500"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.count("InsertLine") != 0 || len(e.Lines("Mesa 1")) != 0 {
		t.Errorf("expected no write and no local line, calls %v", store.Calls())
	}
}

func TestSetOpeningFloat_CancelledCallerSeesStoreResult(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var saved decimal.Decimal
	store := &mockStore{
		setOpeningFloatFn: func(ctx context.Context, date string, amount decimal.Decimal) error {
			started <- struct{}{}
			<-release
			saved = amount
			return nil
		},
	}
	e := newTestEngine(t, store, &mockKitchen{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- e.SetOpeningFloat(ctx, dec("20000")) }()
	<-started
	cancel()
	close(release)

	if err := <-errc; err != nil {
		t.Fatalf("expected stored float to be reported as success, got %v", err)
	}
	if !saved.Equal(dec("20000")) {
		t.Errorf("expected float 20000 persisted, got %s", saved)
	}
}
