package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/micaja/api/internal/enum"
)

func TestAddLine_Validation(t *testing.T) {
	e := newTestEngine(t, &mockStore{}, &mockKitchen{}, Options{})

	valid := NewLine{Table: "Mesa 1", ProductName: "Coffee", Unit: enum.UnitCount, Quantity: dec("1"), UnitPrice: dec("1500")}
	tests := []struct {
		name    string
		mutate  func(*NewLine)
		wantErr error
	}{
		{"empty product", func(n *NewLine) { n.ProductName = "  " }, ErrEmptyProductName},
		{"zero quantity", func(n *NewLine) { n.Quantity = dec("0") }, ErrInvalidQuantity},
		{"negative quantity", func(n *NewLine) { n.Quantity = dec("-1") }, ErrInvalidQuantity},
		{"zero price", func(n *NewLine) { n.UnitPrice = dec("0") }, ErrInvalidUnitPrice},
		{"bad unit", func(n *NewLine) { n.Unit = "LITER" }, ErrInvalidUnit},
		{"unknown table", func(n *NewLine) { n.Table = "Nope" }, ErrTableNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nl := valid
			tt.mutate(&nl)
			_, err := e.AddLine(context.Background(), nl)
			if !IsValidation(err) || !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
	if got := len(e.Lines("Mesa 1")); got != 0 {
		t.Errorf("expected no lines after failed adds, got %d", got)
	}
}

func TestAddLine_WeightSubtotal(t *testing.T) {
	e := newTestEngine(t, &mockStore{}, &mockKitchen{}, Options{})

	l, err := e.AddLine(context.Background(), NewLine{
		Table: "Mesa 1", ProductName: "Queso", Unit: enum.UnitWeight,
		Quantity: dec("0.355"), UnitPrice: dec("12990"), Comments: "sin sal",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !l.Subtotal.Equal(dec("4611.45")) {
		t.Errorf("expected subtotal 4611.45, got %s", l.Subtotal)
	}
	if l.Comments != "SIN SAL" {
		t.Errorf("expected upper-cased comments, got %q", l.Comments)
	}
	if l.ID == "" {
		t.Error("expected line id")
	}
}

func TestUpdateComments_DebouncedToLastValue(t *testing.T) {
	var last string
	store := &mockStore{
		updateLineCommentsFn: func(ctx context.Context, lineID, comments string) error {
			last = comments
			return nil
		},
	}
	e := newTestEngine(t, store, &mockKitchen{}, Options{CommentDebounce: time.Hour})
	l := mustAddLine(t, e, "Mesa 1", "Coffee", "1", "1500")
	ctx := context.Background()

	for _, text := range []string{"s", "si", "sin azucar"} {
		if err := e.UpdateComments(ctx, "Mesa 1", l.ID, text); err != nil {
			t.Fatal(err)
		}
	}
	if got := e.Lines("Mesa 1")[0].Comments; got != "SIN AZUCAR" {
		t.Errorf("expected local comments updated immediately, got %q", got)
	}
	if store.count("UpdateLineComments") != 0 {
		t.Errorf("expected remote write deferred, got %v", store.Calls())
	}

	flush(t, e)
	if n := store.count("UpdateLineComments"); n != 1 {
		t.Errorf("expected one coalesced write, got %d", n)
	}
	if last != "SIN AZUCAR" {
		t.Errorf("expected last value persisted, got %q", last)
	}
}

func TestUpdateComments_DebounceFires(t *testing.T) {
	fired := make(chan string, 1)
	store := &mockStore{
		updateLineCommentsFn: func(ctx context.Context, lineID, comments string) error {
			fired <- comments
			return nil
		},
	}
	e := newTestEngine(t, store, &mockKitchen{}, Options{CommentDebounce: 20 * time.Millisecond})
	l := mustAddLine(t, e, "Mesa 1", "Coffee", "1", "1500")

	_ = e.UpdateComments(context.Background(), "Mesa 1", l.ID, "doble")
	select {
	case got := <-fired:
		if got != "DOBLE" {
			t.Errorf("expected DOBLE, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debounced comment write never fired")
	}
}

func TestUpdateComments_RemovedLineDropsPendingWrite(t *testing.T) {
	store := &mockStore{}
	e := newTestEngine(t, store, &mockKitchen{}, Options{CommentDebounce: time.Hour})
	l := mustAddLine(t, e, "Mesa 1", "Coffee", "1", "1500")
	ctx := context.Background()

	_ = e.UpdateComments(ctx, "Mesa 1", l.ID, "frio")
	if err := e.RemoveLine(ctx, "Mesa 1", l.ID); err != nil {
		t.Fatal(err)
	}
	flush(t, e)
	if n := store.count("UpdateLineComments"); n != 0 {
		t.Errorf("expected pending comment write dropped, got %d", n)
	}
}

func TestUpdateComments_UnknownLine(t *testing.T) {
	e := newTestEngine(t, &mockStore{}, &mockKitchen{}, Options{})
	err := e.UpdateComments(context.Background(), "Mesa 1", "missing", "x")
	if !errors.Is(err, ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got %v", err)
	}
}

// After removing a line its id is in neither selection set.
func TestRemoveLine_PrunesSelections(t *testing.T) {
	e := newTestEngine(t, &mockStore{}, &mockKitchen{}, Options{})
	a := mustAddLine(t, e, "Mesa 1", "Coffee", "2", "1500")
	b := mustAddLine(t, e, "Mesa 1", "Cake", "1", "3000")
	for _, kind := range []string{enum.SelectionKitchen, enum.SelectionPayment} {
		_ = e.Toggle(kind, "Mesa 1", a.ID)
		_ = e.Toggle(kind, "Mesa 1", b.ID)
	}

	if err := e.RemoveLine(context.Background(), "Mesa 1", a.ID); err != nil {
		t.Fatal(err)
	}
	for _, kind := range []string{enum.SelectionKitchen, enum.SelectionPayment} {
		got := e.Selected(kind, "Mesa 1")
		if len(got) != 1 || got[0] != b.ID {
			t.Errorf("%s selection = %v, want [%s]", kind, got, b.ID)
		}
	}
}

func TestSelectAll_TogglesAll(t *testing.T) {
	e := newTestEngine(t, &mockStore{}, &mockKitchen{}, Options{})
	a := mustAddLine(t, e, "Mesa 1", "Coffee", "2", "1500")
	mustAddLine(t, e, "Mesa 1", "Cake", "1", "3000")

	_ = e.Toggle(enum.SelectionPayment, "Mesa 1", a.ID)
	if err := e.SelectAll(enum.SelectionPayment, "Mesa 1"); err != nil {
		t.Fatal(err)
	}
	if got := len(e.Selected(enum.SelectionPayment, "Mesa 1")); got != 2 {
		t.Errorf("expected partial selection to become full, got %d", got)
	}
	if err := e.SelectAll(enum.SelectionPayment, "Mesa 1"); err != nil {
		t.Fatal(err)
	}
	if got := len(e.Selected(enum.SelectionPayment, "Mesa 1")); got != 0 {
		t.Errorf("expected full selection to clear, got %d", got)
	}
}

func TestToggle_FlipsAndValidates(t *testing.T) {
	e := newTestEngine(t, &mockStore{}, &mockKitchen{}, Options{})
	a := mustAddLine(t, e, "Mesa 1", "Coffee", "2", "1500")

	_ = e.Toggle(enum.SelectionKitchen, "Mesa 1", a.ID)
	if e.LineState("Mesa 1", a.ID) != enum.LineStateQueuedForKitchen {
		t.Errorf("expected QUEUED_FOR_KITCHEN, got %s", e.LineState("Mesa 1", a.ID))
	}
	_ = e.Toggle(enum.SelectionKitchen, "Mesa 1", a.ID)
	if e.LineState("Mesa 1", a.ID) != enum.LineStateNew {
		t.Errorf("expected NEW, got %s", e.LineState("Mesa 1", a.ID))
	}

	if err := e.Toggle("bar", "Mesa 1", a.ID); !errors.Is(err, ErrInvalidSelection) {
		t.Errorf("expected ErrInvalidSelection, got %v", err)
	}
	if err := e.Toggle(enum.SelectionKitchen, "Mesa 1", "missing"); !errors.Is(err, ErrLineNotFound) {
		t.Errorf("expected ErrLineNotFound, got %v", err)
	}
}

func TestClear_EmptiesSet(t *testing.T) {
	e := newTestEngine(t, &mockStore{}, &mockKitchen{}, Options{})
	a := mustAddLine(t, e, "Mesa 1", "Coffee", "2", "1500")
	_ = e.Toggle(enum.SelectionPayment, "Mesa 1", a.ID)

	if err := e.Clear(enum.SelectionPayment, "Mesa 1"); err != nil {
		t.Fatal(err)
	}
	if got := e.Selected(enum.SelectionPayment, "Mesa 1"); len(got) != 0 {
		t.Errorf("expected empty selection, got %v", got)
	}
}
