package store

import (
	"strconv"
	"sync"

	"tablero/internal/model"
)

// TableValueStore caches the allowed status values of each status column.
type TableValueStore struct {
	mu       sync.RWMutex
	byColumn []model.TableValuesByColumn
}

func NewTableValueStore() *TableValueStore {
	return &TableValueStore{}
}

func (s *TableValueStore) SetTableValues(data []model.TableValuesByColumn) {
	next := cloneByColumn(data)

	s.mu.Lock()
	s.byColumn = next
	s.mu.Unlock()
}

func (s *TableValueStore) Clear() {
	s.mu.Lock()
	s.byColumn = nil
	s.mu.Unlock()
}

// InitializeColumn registers a freshly created status column with its
// server-defined values. Existing entries are left alone.
func (s *TableValueStore) InitializeColumn(columnID, columnName string, defined []model.DefinedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.byColumn {
		if c.ColumnID == columnID {
			return
		}
	}

	values := make([]model.TableValue, 0, len(defined))
	for _, v := range defined {
		values = append(values, model.TableValue{
			ID:       strconv.Itoa(v.ID),
			ColumnID: columnID,
			Value:    v.Value,
		})
	}
	s.byColumn = append(s.byColumn, model.TableValuesByColumn{
		ColumnID:   columnID,
		ColumnName: columnName,
		Values:     values,
	})
}

// Upsert replaces the value with the same id in its column, or appends it.
// A value for a column with no entry creates one.
func (s *TableValueStore) Upsert(v model.TableValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ci := range s.byColumn {
		col := &s.byColumn[ci]
		if col.ColumnID != v.ColumnID {
			continue
		}
		for vi := range col.Values {
			if col.Values[vi].ID == v.ID {
				col.Values[vi] = v
				return
			}
		}
		col.Values = append(col.Values, v)
		return
	}
	s.byColumn = append(s.byColumn, model.TableValuesByColumn{
		ColumnID: v.ColumnID,
		Values:   []model.TableValue{v},
	})
}

// ForColumn returns the allowed values of one column.
func (s *TableValueStore) ForColumn(columnID string) []model.TableValue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.byColumn {
		if c.ColumnID == columnID {
			out := make([]model.TableValue, len(c.Values))
			copy(out, c.Values)
			return out
		}
	}
	return nil
}

func (s *TableValueStore) All() []model.TableValuesByColumn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneByColumn(s.byColumn)
}

// cloneByColumn deep-copies the per-column value slices so the store never
// shares backing arrays with its callers.
func cloneByColumn(in []model.TableValuesByColumn) []model.TableValuesByColumn {
	out := make([]model.TableValuesByColumn, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Values = append([]model.TableValue(nil), c.Values...)
	}
	return out
}
