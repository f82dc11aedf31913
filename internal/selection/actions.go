package selection

import (
	"context"
	"sync"

	"tablero/internal/logger"
	"tablero/internal/model"
)

// ItemMutator is the slice of the API the bulk actions need.
type ItemMutator interface {
	DeleteItems(ctx context.Context, itemIDs []string) error
	MoveItems(ctx context.Context, itemIDs []string, targetGroupID string) error
	CopyItems(ctx context.Context, itemIDs []string, targetGroupID string) error
}

// Actions runs delete/move/copy over the rows of one group. Local state
// changes only after the server confirms.
type Actions struct {
	api       ItemMutator
	selection *Selection

	mu    sync.RWMutex
	items []model.Item
}

func NewActions(api ItemMutator, sel *Selection, items []model.Item) *Actions {
	a := &Actions{api: api, selection: sel}
	a.SetItems(items)
	return a
}

// SetItems replaces the local rows, e.g. after the group detail reloads.
func (a *Actions) SetItems(items []model.Item) {
	next := make([]model.Item, len(items))
	copy(next, items)
	a.mu.Lock()
	a.items = next
	a.mu.Unlock()
}

func (a *Actions) Items() []model.Item {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.Item, len(a.items))
	copy(out, a.items)
	return out
}

// Delete removes the targets of itemID (selection ∪ {itemID}) in one request.
func (a *Actions) Delete(ctx context.Context, itemID string) ([]string, error) {
	targets := a.selection.Targets(itemID)
	if err := a.api.DeleteItems(ctx, targets); err != nil {
		logger.Error("Error al eliminar items: %v", err)
		return nil, err
	}
	a.dropLocal(targets)
	a.selection.Reset()
	logger.Store("deleted %d items", len(targets))
	return targets, nil
}

// Move sends the targets to another group and drops them from this one.
func (a *Actions) Move(ctx context.Context, itemID, targetGroupID string) ([]string, error) {
	targets := a.selection.Targets(itemID)
	if err := a.api.MoveItems(ctx, targets, targetGroupID); err != nil {
		logger.Error("Error al mover item: %v", err)
		return nil, err
	}
	a.dropLocal(targets)
	a.selection.Reset()
	logger.Store("moved %d items to group %s", len(targets), targetGroupID)
	return targets, nil
}

// Copy duplicates the targets into another group. The copies are created
// server-side and are not added to the local rows.
func (a *Actions) Copy(ctx context.Context, itemID, targetGroupID string) ([]string, error) {
	targets := a.selection.Targets(itemID)
	if err := a.api.CopyItems(ctx, targets, targetGroupID); err != nil {
		logger.Error("Error al copiar item: %v", err)
		return nil, err
	}
	a.selection.Reset()
	logger.Store("copied %d items to group %s", len(targets), targetGroupID)
	return targets, nil
}

func (a *Actions) dropLocal(ids []string) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = remove(a.items, func(it model.Item) bool {
		_, ok := drop[it.ID]
		return ok
	})
}
