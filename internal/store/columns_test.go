package store

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"tablero/internal/model"
)

func newStoreABC(t *testing.T) *ColumnStore {
	t.Helper()
	s := NewColumnStore()
	s.SetColumns([]model.Column{
		{ID: "a", Name: "A", Type: model.ColumnText, Position: 0, ColumnWidth: 150},
		{ID: "b", Name: "B", Type: model.ColumnStatus, Position: 1, ColumnWidth: 150},
		{ID: "c", Name: "C", Type: model.ColumnDate, Position: 2, ColumnWidth: 150},
	})
	return s
}

func names(cols []model.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func positions(cols []model.Column) []int {
	out := make([]int, len(cols))
	for i, c := range cols {
		out[i] = c.Position
	}
	return out
}

func assertDense(t *testing.T, cols []model.Column) {
	t.Helper()
	for i, c := range cols {
		if c.Position != i {
			t.Fatalf("positions not dense: %v", positions(cols))
		}
	}
}

func TestMoveColumn_LastToFirst(t *testing.T) {
	s := newStoreABC(t)

	if !s.MoveColumn("c", 0) {
		t.Fatal("MoveColumn returned false")
	}

	cols := s.Columns()
	if got := names(cols); !reflect.DeepEqual(got, []string{"C", "A", "B"}) {
		t.Errorf("order = %v, want [C A B]", got)
	}
	if got := positions(cols); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("positions = %v, want [0 1 2]", got)
	}
}

func TestMoveColumn_FirstToLast(t *testing.T) {
	s := newStoreABC(t)

	if !s.MoveColumn("a", 2) {
		t.Fatal("MoveColumn returned false")
	}
	if got := names(s.Columns()); !reflect.DeepEqual(got, []string{"B", "C", "A"}) {
		t.Errorf("order = %v, want [B C A]", got)
	}
}

func TestMoveColumn_OutOfRangeRejected(t *testing.T) {
	for _, pos := range []int{-1, 3, 100} {
		t.Run(fmt.Sprintf("pos_%d", pos), func(t *testing.T) {
			s := newStoreABC(t)
			before := s.Columns()

			if s.MoveColumn("a", pos) {
				t.Fatalf("MoveColumn(a, %d) should fail", pos)
			}
			if !reflect.DeepEqual(before, s.Columns()) {
				t.Errorf("store mutated by rejected move")
			}
		})
	}
}

func TestMoveColumn_UnknownID(t *testing.T) {
	s := newStoreABC(t)
	before := s.Columns()
	if s.MoveColumn("zzz", 0) {
		t.Fatal("MoveColumn should fail for unknown id")
	}
	if !reflect.DeepEqual(before, s.Columns()) {
		t.Error("store mutated by unknown-id move")
	}
}

func TestMoveColumn_SamePositionIsNoop(t *testing.T) {
	s := newStoreABC(t)
	if !s.MoveColumn("b", 1) {
		t.Fatal("moving to the current position should succeed")
	}
	if got := names(s.Columns()); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("order changed: %v", got)
	}
}

func TestDeleteColumn_Renumbers(t *testing.T) {
	s := newStoreABC(t)

	if !s.DeleteColumn("b") {
		t.Fatal("DeleteColumn returned false")
	}

	cols := s.Columns()
	if got := names(cols); !reflect.DeepEqual(got, []string{"A", "C"}) {
		t.Errorf("order = %v, want [A C]", got)
	}
	if got := positions(cols); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("positions = %v, want [0 1]", got)
	}
}

func TestDeleteColumn_UnknownID(t *testing.T) {
	s := newStoreABC(t)
	if s.DeleteColumn("nope") {
		t.Error("DeleteColumn should fail for unknown id")
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 columns, got %d", s.Len())
	}
}

func TestAddColumn(t *testing.T) {
	s := newStoreABC(t)

	added := s.AddColumn(model.NewColumn{ID: "d", Name: "D", Type: model.ColumnNumber})
	if added.ColumnWidth != model.DefaultColumnWidth {
		t.Errorf("width = %d, want default %d", added.ColumnWidth, model.DefaultColumnWidth)
	}
	if added.Position != 3 {
		t.Errorf("appended position = %d, want 3", added.Position)
	}

	pos := 1
	inserted := s.AddColumn(model.NewColumn{ID: "e", Name: "E", Type: model.ColumnText, Position: &pos})
	if inserted.Position != 1 {
		t.Errorf("inserted position = %d, want 1", inserted.Position)
	}
	if got := names(s.Columns()); !reflect.DeepEqual(got, []string{"A", "E", "B", "C", "D"}) {
		t.Errorf("order = %v", got)
	}

	far := 99
	s.AddColumn(model.NewColumn{ID: "f", Name: "F", Position: &far})
	cols := s.Columns()
	if cols[len(cols)-1].ID != "f" {
		t.Errorf("out-of-range position should clamp to the end, got %v", names(cols))
	}
	assertDense(t, cols)
}

func TestUpdateColumn_PartialFields(t *testing.T) {
	s := newStoreABC(t)

	width := 320
	name := "Estado"
	updated, ok := s.UpdateColumn("b", model.ColumnUpdate{Name: &name, ColumnWidth: &width})
	if !ok {
		t.Fatal("UpdateColumn returned false")
	}
	if updated.Name != "Estado" || updated.ColumnWidth != 320 {
		t.Errorf("unexpected column %+v", updated)
	}
	if updated.Type != model.ColumnStatus {
		t.Errorf("type should be untouched, got %q", updated.Type)
	}

	settings := `{"format":"dd/mm"}`
	typ := model.ColumnTimeline
	updated, _ = s.UpdateColumn("c", model.ColumnUpdate{Settings: &settings, Type: &typ})
	if updated.Settings == nil || *updated.Settings != settings || updated.Type != model.ColumnTimeline {
		t.Errorf("settings/type not applied: %+v", updated)
	}
}

func TestUpdateColumn_UnknownIDDoesNotMutate(t *testing.T) {
	s := newStoreABC(t)
	before := s.Columns()

	name := "X"
	if _, ok := s.UpdateColumn("missing", model.ColumnUpdate{Name: &name}); ok {
		t.Fatal("UpdateColumn should fail for unknown id")
	}
	if !reflect.DeepEqual(before, s.Columns()) {
		t.Error("store mutated by unknown-id update")
	}
}

func TestUpdateColumn_PositionMoves(t *testing.T) {
	s := newStoreABC(t)

	pos := 0
	updated, ok := s.UpdateColumn("c", model.ColumnUpdate{Position: &pos})
	if !ok || updated.Position != 0 {
		t.Fatalf("expected c at 0, got %+v ok=%v", updated, ok)
	}
	if got := names(s.Columns()); !reflect.DeepEqual(got, []string{"C", "A", "B"}) {
		t.Errorf("order = %v, want [C A B]", got)
	}

	bad := 7
	name := "Renamed"
	updated, ok = s.UpdateColumn("a", model.ColumnUpdate{Position: &bad, Name: &name})
	if !ok {
		t.Fatal("invalid position should not fail the whole update")
	}
	if updated.Name != "Renamed" || updated.Position != 1 {
		t.Errorf("expected rename without move, got %+v", updated)
	}
}

func TestSetColumns_NormalizesServerPositions(t *testing.T) {
	s := NewColumnStore()
	s.SetColumns([]model.Column{
		{ID: "x", Name: "X", Position: 7},
		{ID: "y", Name: "Y", Position: 2},
		{ID: "z", Name: "Z", Position: 4},
	})

	cols := s.Columns()
	if got := names(cols); !reflect.DeepEqual(got, []string{"Y", "Z", "X"}) {
		t.Errorf("order = %v, want [Y Z X]", got)
	}
	assertDense(t, cols)
}

func TestEditColumnSettings(t *testing.T) {
	s := newStoreABC(t)
	settings := "{}"
	col, ok := s.EditColumnSettings("a", &settings)
	if !ok || col.Settings == nil || *col.Settings != "{}" {
		t.Errorf("settings not applied: %+v ok=%v", col, ok)
	}
	if _, ok := s.EditColumnSettings("nope", nil); ok {
		t.Error("expected failure for unknown id")
	}
}

// Any sequence of add/delete/move leaves positions dense.
func TestColumnStore_RandomOperationsKeepPositionsDense(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		s := NewColumnStore()
		nextID := 0

		for step := 0; step < 200; step++ {
			cols := s.Columns()
			switch op := rng.Intn(3); {
			case op == 0 || len(cols) == 0:
				var pos *int
				if rng.Intn(2) == 0 {
					p := rng.Intn(len(cols)+3) - 1
					pos = &p
				}
				s.AddColumn(model.NewColumn{ID: fmt.Sprintf("c%d", nextID), Name: "n", Position: pos})
				nextID++
			case op == 1:
				s.DeleteColumn(cols[rng.Intn(len(cols))].ID)
			default:
				target := rng.Intn(len(cols)+4) - 2
				ok := s.MoveColumn(cols[rng.Intn(len(cols))].ID, target)
				inRange := target >= 0 && target < len(cols)
				if ok != inRange {
					t.Fatalf("MoveColumn to %d with %d columns returned %v", target, len(cols), ok)
				}
			}
			assertDense(t, s.Columns())
		}
	}
}
