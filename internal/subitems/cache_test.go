package subitems

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tablero/internal/model"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	rows  map[string][]model.SubItemRow
	err   error
	gate  chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls: map[string]int{},
		rows: map[string][]model.SubItemRow{
			"i1": {{ID: "s1", ItemParent: "i1", Name: "uno"}, {ID: "s2", ItemParent: "i1", Name: "dos"}},
			"i2": {{ID: "s3", ItemParent: "i2", Name: "tres"}},
		},
	}
}

func (f *fakeFetcher) Subitems(ctx context.Context, itemID string) ([]model.SubItemRow, error) {
	f.mu.Lock()
	f.calls[itemID]++
	gate, err := f.gate, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return f.rows[itemID], nil
}

func (f *fakeFetcher) count(itemID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[itemID]
}

func TestCache_ToggleFetchesOnce(t *testing.T) {
	api := newFakeFetcher()
	c := New(api)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := c.Toggle(ctx, "i1"); err != nil {
			t.Fatalf("Toggle %d: %v", i, err)
		}
	}

	if got := api.count("i1"); got != 1 {
		t.Errorf("expected one fetch, got %d", got)
	}
	if c.IsExpanded("i1") {
		t.Error("four toggles should end collapsed")
	}
	rows, ok := c.Get("i1")
	if !ok || len(rows) != 2 {
		t.Errorf("cache entry = %v, %v", rows, ok)
	}
}

func TestCache_FailureLeavesNoEntry(t *testing.T) {
	api := newFakeFetcher()
	api.err = fmt.Errorf("HTTP 500")
	c := New(api)
	ctx := context.Background()

	if err := c.Toggle(ctx, "i1"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Get("i1"); ok {
		t.Error("failed fetch must not leave an entry")
	}
	if c.IsExpanded("i1") || c.IsLoading("i1") {
		t.Error("failed fetch should leave the item collapsed and idle")
	}

	api.err = nil
	if err := c.Toggle(ctx, "i1"); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if api.count("i1") != 2 {
		t.Errorf("expected a retry fetch, got %d calls", api.count("i1"))
	}
}

func TestCache_InFlightNotDuplicated(t *testing.T) {
	api := newFakeFetcher()
	api.gate = make(chan struct{})
	c := New(api)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.Toggle(ctx, "i1") }()
	for !c.IsLoading("i1") {
		time.Sleep(time.Millisecond)
	}

	// Collapse and expand again while the first fetch is still running.
	_ = c.Toggle(ctx, "i1")
	_ = c.Toggle(ctx, "i1")

	close(api.gate)
	if err := <-done; err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if api.count("i1") != 1 {
		t.Errorf("expected one fetch, got %d", api.count("i1"))
	}
	if !c.IsExpanded("i1") {
		t.Error("item should be expanded")
	}
}

func TestCache_IndependentItems(t *testing.T) {
	api := newFakeFetcher()
	c := New(api)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"i1", "i2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = c.Toggle(ctx, id)
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"i1", "i2"} {
		if api.count(id) != 1 {
			t.Errorf("%s fetched %d times", id, api.count(id))
		}
		if _, ok := c.Get(id); !ok {
			t.Errorf("%s not cached", id)
		}
	}
}

func TestCache_LocalEdits(t *testing.T) {
	c := New(newFakeFetcher())
	_ = c.Toggle(context.Background(), "i1")

	c.Append("i1", model.SubItemRow{ID: "s9", Name: "nuevo"})
	c.Append("i1", model.SubItemRow{ID: "s1", Name: "uno bis"})
	rows, _ := c.Get("i1")
	if len(rows) != 3 || rows[0].Name != "uno bis" || rows[2].ID != "s9" {
		t.Errorf("after append: %+v", rows)
	}

	if !c.Rename("i1", "s2", "DOS") {
		t.Error("Rename should find s2")
	}
	if !c.Remove("i1", "s9") || c.Remove("i1", "missing") {
		t.Error("Remove result mismatch")
	}
	rows, _ = c.Get("i1")
	if len(rows) != 2 || rows[1].Name != "DOS" {
		t.Errorf("after edits: %+v", rows)
	}

	// Append to an item that was never fetched creates the entry.
	c.Append("i7", model.SubItemRow{ID: "s7"})
	if rows, ok := c.Get("i7"); !ok || len(rows) != 1 {
		t.Errorf("append to cold item: %v %v", rows, ok)
	}

	c.Reset()
	if _, ok := c.Get("i1"); ok || c.IsExpanded("i1") {
		t.Error("Reset should clear everything")
	}
}
