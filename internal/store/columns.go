// Package store keeps the in-memory board state mirrored from the API.
package store

import (
	"sort"
	"sync"

	"tablero/internal/logger"
	"tablero/internal/model"
)

// ColumnStore is the ordered set of a board's columns. Positions always form
// a dense 0..N-1 sequence matching slice order: every insert, delete and move
// renumbers all columns by their index.
type ColumnStore struct {
	mu      sync.RWMutex
	columns []model.Column
}

func NewColumnStore() *ColumnStore {
	return &ColumnStore{}
}

// SetColumns replaces the store contents with a server response. Incoming
// positions only decide the order; they are renumbered afterwards so a
// sparse or duplicated server sequence still yields 0..N-1.
func (s *ColumnStore) SetColumns(columns []model.Column) {
	next := make([]model.Column, len(columns))
	copy(next, columns)
	sort.SliceStable(next, func(i, j int) bool { return next[i].Position < next[j].Position })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.columns = next
	s.renumber()
	logger.Store("set %d columns", len(next))
}

// AddColumn inserts a column with the default width. Without a position it
// is appended; otherwise it lands at the clamped position.
func (s *ColumnStore) AddColumn(nc model.NewColumn) model.Column {
	column := model.Column{
		ID:          nc.ID,
		BoardID:     nc.BoardID,
		Name:        nc.Name,
		Type:        nc.Type,
		Settings:    nc.Settings,
		ColumnWidth: model.DefaultColumnWidth,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := len(s.columns)
	if nc.Position != nil {
		at = clamp(*nc.Position, 0, len(s.columns))
	}
	s.columns = append(s.columns, model.Column{})
	copy(s.columns[at+1:], s.columns[at:])
	s.columns[at] = column
	s.renumber()

	logger.Store("added column %s at %d", column.ID, at)
	return s.columns[at]
}

// UpdateColumn applies the provided fields. An unknown id logs a warning and
// returns false without touching any column. A position change goes through
// the same bounds check as MoveColumn; an invalid position is skipped while
// the other fields still apply.
func (s *ColumnStore) UpdateColumn(id string, u model.ColumnUpdate) (model.Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		logger.Warn("Column with id %s not found", id)
		return model.Column{}, false
	}

	column := &s.columns[idx]
	if u.Name != nil {
		column.Name = *u.Name
	}
	if u.ColumnWidth != nil {
		column.ColumnWidth = *u.ColumnWidth
	}
	if u.Settings != nil {
		settings := *u.Settings
		column.Settings = &settings
	}
	if u.Type != nil {
		column.Type = *u.Type
	}
	if u.BoardID != nil {
		column.BoardID = *u.BoardID
	}

	if u.Position != nil && *u.Position != idx {
		if !s.move(idx, *u.Position) {
			logger.Warn("Invalid position %d for column %s", *u.Position, id)
		}
	}

	return s.columns[s.indexOf(id)], true
}

// EditColumnSettings replaces only the settings blob.
func (s *ColumnStore) EditColumnSettings(id string, settings *string) (model.Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		logger.Warn("Column with id %s not found", id)
		return model.Column{}, false
	}
	s.columns[idx].Settings = settings
	return s.columns[idx], true
}

// DeleteColumn removes a column and renumbers the rest.
func (s *ColumnStore) DeleteColumn(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		logger.Warn("Column with id %s not found", id)
		return false
	}

	s.columns = append(s.columns[:idx], s.columns[idx+1:]...)
	s.renumber()
	logger.Store("deleted column %s", id)
	return true
}

// MoveColumn moves a column to position. Unknown ids and positions outside
// [0, N-1] return false and leave the store unchanged.
func (s *ColumnStore) MoveColumn(id string, position int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx == -1 {
		logger.Warn("Column with id %s not found", id)
		return false
	}
	if !s.move(idx, position) {
		logger.Warn("Invalid position %d", position)
		return false
	}
	logger.Store("moved column %s from %d to %d", id, idx, position)
	return true
}

// Get returns a copy of one column.
func (s *ColumnStore) Get(id string) (model.Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx == -1 {
		return model.Column{}, false
	}
	return s.columns[idx], true
}

// Columns returns a copy of the columns in position order.
func (s *ColumnStore) Columns() []model.Column {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Column, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s *ColumnStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.columns)
}

func (s *ColumnStore) Reset() {
	s.mu.Lock()
	s.columns = nil
	s.mu.Unlock()
}

// move relocates the column at idx. Callers hold the lock.
func (s *ColumnStore) move(idx, position int) bool {
	if position < 0 || position >= len(s.columns) {
		return false
	}
	if idx == position {
		return true
	}

	column := s.columns[idx]
	s.columns = append(s.columns[:idx], s.columns[idx+1:]...)
	s.columns = append(s.columns, model.Column{})
	copy(s.columns[position+1:], s.columns[position:])
	s.columns[position] = column
	s.renumber()
	return true
}

func (s *ColumnStore) renumber() {
	for i := range s.columns {
		s.columns[i].Position = i
	}
}

func (s *ColumnStore) indexOf(id string) int {
	for i := range s.columns {
		if s.columns[i].ID == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
