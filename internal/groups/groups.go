// Package groups implements the board sidebar's group actions: create,
// edit, delete, and moving or copying a group to another board.
package groups

import (
	"context"
	"strings"
	"sync"

	"tablero/internal/errors"
	"tablero/internal/logger"
	"tablero/internal/model"
)

// API is the slice of the board API the group actions need.
type API interface {
	ListBoards(ctx context.Context) ([]model.Board, error)
	CreateGroup(ctx context.Context, g model.NewGroup) (model.Group, error)
	UpdateGroup(ctx context.Context, groupID, name, color string) error
	DeleteGroup(ctx context.Context, groupID string) error
	MoveGroup(ctx context.Context, groupID, targetBoardID string) error
	CopyGroup(ctx context.Context, groupID, targetBoardID string) error
}

// Listener receives the group list after each confirmed change.
type Listener interface {
	GroupsChanged(ctx context.Context, groups []model.Group) error
	SelectGroup(ctx context.Context, groupID string) error
}

// List is the local copy of one board's groups.
type List struct {
	api      API
	listener Listener
	boardID  string

	mu     sync.Mutex
	groups []model.Group
	boards []model.Board
}

func NewList(api API, listener Listener, boardID string, groups []model.Group) *List {
	l := &List{api: api, listener: listener, boardID: boardID}
	l.groups = append([]model.Group(nil), groups...)
	return l
}

func (l *List) Groups() []model.Group {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Group(nil), l.groups...)
}

// Create adds a group to the board. Name and color are required.
func (l *List) Create(ctx context.Context, name, color string) (model.Group, error) {
	name = strings.TrimSpace(name)
	color = strings.TrimSpace(color)
	if name == "" {
		return model.Group{}, errors.NewValidationError("name", "is required")
	}
	if color == "" {
		return model.Group{}, errors.NewValidationError("color", "is required")
	}

	created, err := l.api.CreateGroup(ctx, model.NewGroup{BoardID: l.boardID, Name: name, Color: color})
	if err != nil {
		logger.Error("Error al crear grupo: %v", err)
		return model.Group{}, err
	}

	l.mu.Lock()
	l.groups = append(l.groups, created)
	l.mu.Unlock()
	logger.Store("created group %s (%s)", created.ID, created.Name)
	return created, l.changed(ctx, "")
}

// Edit renames and recolors a group.
func (l *List) Edit(ctx context.Context, groupID, name, color string) error {
	if err := l.api.UpdateGroup(ctx, groupID, name, color); err != nil {
		logger.Error("Error al editar grupo %s: %v", groupID, err)
		return err
	}
	l.mu.Lock()
	for i := range l.groups {
		if l.groups[i].ID == groupID {
			l.groups[i].Name = name
			l.groups[i].Color = color
		}
	}
	l.mu.Unlock()
	return l.changed(ctx, "")
}

func (l *List) Delete(ctx context.Context, groupID string) error {
	if err := l.api.DeleteGroup(ctx, groupID); err != nil {
		logger.Error("Error al eliminar grupo %s: %v", groupID, err)
		return err
	}
	return l.changed(ctx, l.drop(groupID))
}

// Move sends a group to another board and drops it from this one.
func (l *List) Move(ctx context.Context, groupID, targetBoardID string) error {
	if targetBoardID == "" {
		return errors.NewValidationError("targetBoardId", "is required")
	}
	if err := l.api.MoveGroup(ctx, groupID, targetBoardID); err != nil {
		logger.Error("Error al mover grupo %s: %v", groupID, err)
		return err
	}
	return l.changed(ctx, l.drop(groupID))
}

// Copy duplicates a group into another board. The local list is unchanged.
func (l *List) Copy(ctx context.Context, groupID, targetBoardID string) error {
	if targetBoardID == "" {
		return errors.NewValidationError("targetBoardId", "is required")
	}
	if err := l.api.CopyGroup(ctx, groupID, targetBoardID); err != nil {
		logger.Error("Error al copiar grupo %s: %v", groupID, err)
		return err
	}
	logger.Store("copied group %s to board %s", groupID, targetBoardID)
	return nil
}

// Boards lists move/copy targets. The list is fetched once; a failed or
// empty fetch is retried on the next call.
func (l *List) Boards(ctx context.Context) ([]model.Board, error) {
	l.mu.Lock()
	if len(l.boards) > 0 {
		defer l.mu.Unlock()
		return append([]model.Board(nil), l.boards...), nil
	}
	l.mu.Unlock()

	boards, err := l.api.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.boards = boards
	l.mu.Unlock()
	return append([]model.Board(nil), boards...), nil
}

// drop removes groupID locally and returns the id of the first remaining
// group.
func (l *List) drop(groupID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.groups[:0:0]
	for _, g := range l.groups {
		if g.ID != groupID {
			kept = append(kept, g)
		}
	}
	l.groups = kept
	if len(kept) == 0 {
		return ""
	}
	return kept[0].ID
}

func (l *List) changed(ctx context.Context, selectID string) error {
	if l.listener == nil {
		return nil
	}
	if err := l.listener.GroupsChanged(ctx, l.Groups()); err != nil {
		return err
	}
	if selectID != "" {
		return l.listener.SelectGroup(ctx, selectID)
	}
	return nil
}
