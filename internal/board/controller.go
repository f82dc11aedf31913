// Package board drives the board view: it loads a board's columns, groups,
// metadata and status values together, tracks the selected group and its
// detail, and owns the search highlight timer.
package board

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tablero/internal/errors"
	"tablero/internal/logger"
	"tablero/internal/model"
	"tablero/internal/store"
	"tablero/internal/timer"
)

// DefaultHighlight is how long a searched item stays highlighted.
const DefaultHighlight = 20 * time.Second

// State is the board load state.
type State int

const (
	Loading State = iota
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return "unknown"
}

// GroupState is the load state of the selected group's detail.
type GroupState int

const (
	GroupIdle GroupState = iota
	GroupLoading
	GroupReady
	GroupError
)

// API is what the controller reads from the server.
type API interface {
	ListColumns(ctx context.Context, boardID string) ([]model.Column, error)
	ListGroups(ctx context.Context, boardID string) ([]model.Group, error)
	GetBoard(ctx context.Context, boardID string) (model.Board, error)
	StatusTableValues(ctx context.Context, boardID string) ([]model.TableValuesByColumn, error)
	GetGroup(ctx context.Context, groupID string) (model.GroupDetail, error)
}

type Options struct {
	Clock     timer.Clock
	Highlight time.Duration
	// OnChange is called after any state change, outside the controller lock.
	OnChange func()
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	Route       model.Route
	State       State
	Err         error
	Board       model.Board
	Groups      []model.Group
	GroupID     string
	GroupState  GroupState
	GroupErr    error
	Group       *model.GroupDetail
	Highlighted string
}

type Controller struct {
	api       API
	columns   *store.ColumnStore
	values    *store.TableValueStore
	clock     timer.Clock
	highlight time.Duration
	onChange  func()

	mu            sync.Mutex
	route         model.Route
	state         State
	err           error
	board         model.Board
	groups        []model.Group
	groupID       string
	groupState    GroupState
	groupErr      error
	group         *model.GroupDetail
	highlighted   string
	highlightStop timer.Stopper
	gen           uint64
	groupGen      uint64
	closed        bool
}

func NewController(api API, columns *store.ColumnStore, values *store.TableValueStore, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = timer.Real{}
	}
	if opts.Highlight <= 0 {
		opts.Highlight = DefaultHighlight
	}
	return &Controller{
		api:       api,
		columns:   columns,
		values:    values,
		clock:     opts.Clock,
		highlight: opts.Highlight,
		onChange:  opts.OnChange,
		state:     Loading,
	}
}

func (c *Controller) Columns() *store.ColumnStore   { return c.columns }
func (c *Controller) Values() *store.TableValueStore { return c.values }

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	groups := make([]model.Group, len(c.groups))
	copy(groups, c.groups)
	return Snapshot{
		Route:       c.route,
		State:       c.state,
		Err:         c.err,
		Board:       c.board,
		Groups:      groups,
		GroupID:     c.groupID,
		GroupState:  c.groupState,
		GroupErr:    c.groupErr,
		Group:       c.group,
		Highlighted: c.highlighted,
	}
}

// SetRoute applies a navigation. A different board resets everything and
// reloads. On the same board a new group id re-selects the group and a new
// search item id re-highlights.
func (c *Controller) SetRoute(ctx context.Context, r model.Route) error {
	if r.BoardID == "" {
		return errors.NewValidationError("boardId", "is required")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	prev := c.route
	c.route = r

	if r.BoardID != prev.BoardID {
		logger.TUI("route: board %s -> %s", prev.BoardID, r.BoardID)
		gen := c.resetLocked()
		c.mu.Unlock()
		c.notify()
		return c.load(ctx, gen, r.BoardID)
	}

	reloadGroup := false
	if c.state == Ready {
		if r.GroupID != "" && r.GroupID != c.groupID {
			c.groupID = r.GroupID
			reloadGroup = true
		}
		if r.SearchItemID != "" && r.SearchItemID != prev.SearchItemID {
			c.highlightLocked(r.SearchItemID)
		}
	}
	c.mu.Unlock()
	c.notify()

	if reloadGroup {
		return c.loadGroup(ctx)
	}
	return nil
}

// Retry reloads the board after a failed load. It is a no-op in any other state.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Error || c.closed {
		c.mu.Unlock()
		return nil
	}
	gen := c.resetLocked()
	boardID := c.route.BoardID
	c.mu.Unlock()
	c.notify()
	return c.load(ctx, gen, boardID)
}

// RetryGroup refetches the selected group's detail.
func (c *Controller) RetryGroup(ctx context.Context) error {
	return c.loadGroup(ctx)
}

// SelectGroup switches the selected group and loads its detail.
func (c *Controller) SelectGroup(ctx context.Context, groupID string) error {
	c.mu.Lock()
	if c.groupID == groupID && c.groupState == GroupReady {
		c.mu.Unlock()
		return nil
	}
	c.groupID = groupID
	c.mu.Unlock()
	return c.loadGroup(ctx)
}

// GroupsChanged replaces the group list after a create/edit/delete/move. If
// the selected group is gone, the first remaining group is selected.
func (c *Controller) GroupsChanged(ctx context.Context, groups []model.Group) error {
	next := make([]model.Group, len(groups))
	copy(next, groups)

	c.mu.Lock()
	c.groups = next
	changed := false
	if !hasGroup(next, c.groupID) {
		c.groupID = ""
		if len(next) > 0 {
			c.groupID = next[0].ID
		}
		changed = true
	}
	c.mu.Unlock()

	if changed {
		return c.loadGroup(ctx)
	}
	c.notify()
	return nil
}

// Close cancels the highlight timer and discards in-flight loads.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.gen++
	c.groupGen++
	c.stopHighlightLocked()
}

func (c *Controller) resetLocked() uint64 {
	c.gen++
	c.groupGen++
	c.state = Loading
	c.err = nil
	c.board = model.Board{}
	c.groups = nil
	c.groupID = ""
	c.groupState = GroupIdle
	c.groupErr = nil
	c.group = nil
	c.stopHighlightLocked()
	return c.gen
}

func (c *Controller) load(ctx context.Context, gen uint64, boardID string) error {
	logger.API("loading board %s", boardID)

	var (
		columns []model.Column
		groups  []model.Group
		board   model.Board
		values  []model.TableValuesByColumn
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		columns, err = c.api.ListColumns(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		groups, err = c.api.ListGroups(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		board, err = c.api.GetBoard(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		values, err = c.api.StatusTableValues(gctx, boardID)
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		logger.Debug("discarding superseded load of board %s", boardID)
		return nil
	}
	if err != nil {
		loadErr := errors.NewBoardLoadError(boardID, err)
		c.state = Error
		c.err = loadErr
		c.mu.Unlock()
		logger.Error("Error al obtener los datos del tablero %s: %v", boardID, err)
		c.notify()
		return loadErr
	}

	c.columns.SetColumns(columns)
	c.values.SetTableValues(values)
	c.board = board
	c.groups = groups
	c.groupID = c.route.GroupID
	if c.groupID == "" && len(groups) > 0 {
		c.groupID = groups[0].ID
	}
	c.state = Ready
	if c.route.SearchItemID != "" {
		c.highlightLocked(c.route.SearchItemID)
	}
	hasGroup := c.groupID != ""
	c.mu.Unlock()

	logger.API("board %s ready: %d columns, %d groups", boardID, len(columns), len(groups))
	if !hasGroup {
		c.notify()
		return nil
	}
	return c.loadGroup(ctx)
}

func (c *Controller) loadGroup(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.groupGen++
	gen := c.groupGen
	groupID := c.groupID
	c.group = nil
	c.groupErr = nil
	if groupID == "" {
		c.groupState = GroupIdle
		c.mu.Unlock()
		c.notify()
		return nil
	}
	c.groupState = GroupLoading
	c.mu.Unlock()
	c.notify()

	detail, err := c.api.GetGroup(ctx, groupID)

	c.mu.Lock()
	if gen != c.groupGen {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		loadErr := errors.NewGroupLoadError(groupID, err)
		c.groupState = GroupError
		c.groupErr = loadErr
		c.mu.Unlock()
		logger.Error("Error al obtener el grupo %s: %v", groupID, err)
		c.notify()
		return loadErr
	}
	c.group = &detail
	c.groupState = GroupReady
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) highlightLocked(itemID string) {
	c.stopHighlightLocked()
	c.highlighted = itemID
	c.highlightStop = c.clock.AfterFunc(c.highlight, func() {
		c.mu.Lock()
		if c.highlighted != itemID {
			c.mu.Unlock()
			return
		}
		c.highlighted = ""
		c.highlightStop = nil
		c.mu.Unlock()
		c.notify()
	})
}

func (c *Controller) stopHighlightLocked() {
	if c.highlightStop != nil {
		c.highlightStop.Stop()
		c.highlightStop = nil
	}
	c.highlighted = ""
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

func hasGroup(groups []model.Group, id string) bool {
	if id == "" {
		return false
	}
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}
