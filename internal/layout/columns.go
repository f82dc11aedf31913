package layout

import (
	"context"

	"tablero/internal/errors"
	"tablero/internal/logger"
	"tablero/internal/model"
	"tablero/internal/store"
)

// ColumnAPI persists column changes.
type ColumnAPI interface {
	UpdateColumn(ctx context.Context, columnID string, u model.ColumnUpdate) error
	DeleteColumn(ctx context.Context, columnID string) error
}

// Columns writes column changes to the server and then to the local store.
type Columns struct {
	api   ColumnAPI
	store *store.ColumnStore
}

func NewColumns(api ColumnAPI, s *store.ColumnStore) *Columns {
	return &Columns{api: api, store: s}
}

// SetWidth commits a resize.
func (c *Columns) SetWidth(ctx context.Context, columnID string, width int) error {
	if width < MinWidth {
		return errors.NewValidationError("columnWidth", "must be at least 100")
	}
	if err := c.api.UpdateColumn(ctx, columnID, model.ColumnUpdate{ColumnWidth: &width}); err != nil {
		logger.Error("Error updating column width: %v", err)
		return err
	}
	c.store.UpdateColumn(columnID, model.ColumnUpdate{ColumnWidth: &width})
	return nil
}

// Move places a column at position and renumbers the rest.
func (c *Columns) Move(ctx context.Context, columnID string, position int) error {
	if position < 0 || position >= c.store.Len() {
		return errors.NewValidationError("position", "is out of range")
	}
	if _, ok := c.store.Get(columnID); !ok {
		return errors.NewNotFoundError("column", columnID)
	}
	if err := c.api.UpdateColumn(ctx, columnID, model.ColumnUpdate{Position: &position}); err != nil {
		logger.Error("Error moving column %s: %v", columnID, err)
		return err
	}
	c.store.MoveColumn(columnID, position)
	return nil
}

func (c *Columns) Rename(ctx context.Context, columnID, name string) error {
	if name == "" {
		return errors.NewValidationError("name", "is required")
	}
	if err := c.api.UpdateColumn(ctx, columnID, model.ColumnUpdate{Name: &name}); err != nil {
		return err
	}
	c.store.UpdateColumn(columnID, model.ColumnUpdate{Name: &name})
	return nil
}

func (c *Columns) Delete(ctx context.Context, columnID string) error {
	if err := c.api.DeleteColumn(ctx, columnID); err != nil {
		logger.Error("Error deleting column %s: %v", columnID, err)
		return err
	}
	c.store.DeleteColumn(columnID)
	return nil
}
