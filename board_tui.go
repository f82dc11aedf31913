package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"tablero/internal/board"
	"tablero/internal/errors"
	"tablero/internal/layout"
	"tablero/internal/logger"
	"tablero/internal/model"
	"tablero/internal/selection"
	"tablero/internal/store"
	"tablero/internal/subitems"
	"tablero/internal/timer"
	"tablero/internal/usercfg"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/browser"
)

const (
	// Column widths are stored in pixels; the terminal draws one cell per 10.
	pxPerCell    = 10
	nameWidth    = 30
	sidebarWidth = 24
	widthStep    = 20
	headerLines  = 3
)

// boardClient is everything the board view calls on the API.
type boardClient interface {
	board.API
	layout.ColumnAPI
	selection.ItemMutator
	subitems.Fetcher
}

type boardChangedMsg struct{}

type loadDoneMsg struct{ err error }

type actionDoneMsg struct {
	verb   string
	ids    []string
	target string
	err    error
}

type subitemsDoneMsg struct {
	itemID string
	err    error
}

type columnDoneMsg struct {
	verb string
	err  error
}

type scrollMsg struct{ dx int }

// boardRow is an item, or one of its subitems when sub is set.
type boardRow struct {
	item    model.Item
	sub     *model.SubItemRow
	loading bool
}

type groupPicker struct {
	verb   string
	cursor int
	groups []model.Group
}

type boardModel struct {
	ctx     context.Context
	route   model.Route
	webURL  string
	ctl     *board.Controller
	columns *layout.Columns
	sel     *selection.Selection
	actions *selection.Actions
	subs    *subitems.Cache
	clock   timer.Clock
	send    func(tea.Msg)

	snap          board.Snapshot
	group         *model.GroupDetail
	width         int
	height        int
	cursor        int
	offset        int
	groupCursor   int
	colCursor     int
	scrollX       int
	sidebar       bool
	focusSidebar  bool
	resizer       *layout.Resizer
	picker        *groupPicker
	confirmDelete bool
	filtering     bool
	filterInput   textinput.Model
	filter        string
	status        string
	err           error
	showingHelp   bool
	helpOffset    int
	styles        boardStyles
}

type boardOptions struct {
	Clock     timer.Clock
	Highlight time.Duration
	WebURL    string
	Sidebar   bool
	// Send delivers messages from background work, normally Program.Send.
	Send func(tea.Msg)
}

func newBoardStyles() boardStyles {
	return boardStyles{
		header:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		boxStyle:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("240")),
		boxActive:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("10")),
		selected:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")),
		marked:      lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		highlight:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("226")),
		muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		help:        lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		helpOverlay: lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("255")).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("99")).Padding(1, 2),
		helpTitle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		helpKey:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		error:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

type boardStyles struct {
	header      lipgloss.Style
	title       lipgloss.Style
	boxStyle    lipgloss.Style
	boxActive   lipgloss.Style
	selected    lipgloss.Style
	marked      lipgloss.Style
	highlight   lipgloss.Style
	muted       lipgloss.Style
	help        lipgloss.Style
	helpOverlay lipgloss.Style
	helpTitle   lipgloss.Style
	helpKey     lipgloss.Style
	error       lipgloss.Style
}

func newBoardModel(ctx context.Context, client boardClient, route model.Route, opts boardOptions) boardModel {
	if opts.Clock == nil {
		opts.Clock = timer.Real{}
	}
	send := opts.Send
	if send == nil {
		send = func(tea.Msg) {}
	}
	columns := store.NewColumnStore()
	ctl := board.NewController(client, columns, store.NewTableValueStore(), board.Options{
		Clock:     opts.Clock,
		Highlight: opts.Highlight,
		OnChange:  func() { send(boardChangedMsg{}) },
	})
	sel := selection.New()
	ti := textinput.New()
	ti.Placeholder = "filter..."
	ti.CharLimit = 256
	return boardModel{
		ctx:     ctx,
		route:   route,
		webURL:  opts.WebURL,
		ctl:     ctl,
		columns: layout.NewColumns(client, columns),
		sel:     sel,
		actions: selection.NewActions(client, sel, nil),
		subs:    subitems.New(client),
		clock:   opts.Clock,
		send:    send,
		snap:    board.Snapshot{Route: route, State: board.Loading},
		sidebar:     opts.Sidebar,
		filterInput: ti,
		styles:      newBoardStyles(),
	}
}

func (m boardModel) Init() tea.Cmd {
	ctl, ctx, route := m.ctl, m.ctx, m.route
	return func() tea.Msg {
		return loadDoneMsg{err: ctl.SetRoute(ctx, route)}
	}
}

// refresh pulls a new snapshot and reseeds the rows when the group detail
// was replaced.
func (m *boardModel) refresh() {
	prevHighlight := m.snap.Highlighted
	m.snap = m.ctl.Snapshot()

	for i, g := range m.snap.Groups {
		if g.ID == m.snap.GroupID {
			m.groupCursor = i
		}
	}
	m.groupCursor = clampIndex(m.groupCursor, len(m.snap.Groups))

	if m.snap.Group != m.group {
		m.group = m.snap.Group
		var items []model.Item
		if m.group != nil {
			items = m.group.Items
		}
		m.actions.SetItems(items)
		m.sel.Reset()
		m.subs.Reset()
		m.cursor, m.offset = 0, 0
		m.jumpToHighlight()
	} else if m.snap.Highlighted != prevHighlight {
		m.jumpToHighlight()
	}
	m.ensureCursorVisible()
	m.colCursor = clampIndex(m.colCursor, m.ctl.Columns().Len())
}

func (m *boardModel) jumpToHighlight() {
	if m.snap.Highlighted == "" {
		return
	}
	for i, r := range m.rows() {
		if r.sub == nil && r.item.ID == m.snap.Highlighted {
			m.cursor = i
			return
		}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		m.ensureColumnVisible()
		return m, nil
	case boardChangedMsg:
		m.refresh()
		return m, nil
	case loadDoneMsg:
		m.refresh()
		if msg.err != nil && m.snap.State != board.Error && m.snap.GroupState != board.GroupError {
			m.err = msg.err
		}
		return m, nil
	case actionDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("%s %d item(s)", msg.verb, len(msg.ids))
		m.ensureCursorVisible()
		return m, nil
	case subitemsDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.ensureCursorVisible()
		return m, nil
	case columnDoneMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = msg.verb
		}
		m.colCursor = clampIndex(m.colCursor, m.ctl.Columns().Len())
		return m, nil
	case scrollMsg:
		m.scrollBy(msg.dx / pxPerCell)
		return m, nil
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m boardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.showingHelp {
		lines, _, viewport := m.helpLayout()
		maxOffset := max(0, len(lines)-viewport)
		switch key {
		case "q", "?", "esc":
			m.showingHelp = false
		case "up", "k":
			m.helpOffset = max(0, m.helpOffset-1)
		case "down", "j":
			m.helpOffset = min(maxOffset, m.helpOffset+1)
		}
		return m, nil
	}

	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC, tea.KeyEnter:
			m.filtering = false
			m.filterInput.Blur()
			return m, nil
		}
		// Live update as the user types; the group is not refetched.
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.filter = m.filterInput.Value()
		m.cursor, m.offset = 0, 0
		m.ensureCursorVisible()
		return m, cmd
	}

	if m.confirmDelete {
		m.confirmDelete = false
		if key != "y" {
			m.status = "Delete cancelled"
			return m, nil
		}
		return m, m.deleteCmd()
	}

	if m.picker != nil {
		switch key {
		case "esc", "q":
			m.picker = nil
		case "up", "k":
			m.picker.cursor = max(0, m.picker.cursor-1)
		case "down", "j":
			m.picker.cursor = min(len(m.picker.groups)-1, m.picker.cursor+1)
		case "enter":
			target := m.picker.groups[m.picker.cursor]
			verb := m.picker.verb
			m.picker = nil
			return m, m.transferCmd(verb, target.ID)
		}
		return m, nil
	}

	switch {
	case key == "q" || key == "ctrl+c":
		m.closeResizer()
		return m, tea.Quit
	case key == "?":
		m.showingHelp = true
		return m, nil
	case key == "r":
		return m, m.retryCmd()
	case key == "b":
		m.sidebar = !m.sidebar
		if !m.sidebar {
			m.focusSidebar = false
		}
		return m, nil
	case key == "tab":
		if m.sidebar {
			m.focusSidebar = !m.focusSidebar
		}
		return m, nil
	case key == "o":
		if m.webURL != "" {
			if err := browser.OpenURL(m.webURL); err != nil {
				m.err = err
			}
		}
		return m, nil
	}

	if m.snap.State != board.Ready {
		return m, nil
	}

	if m.focusSidebar {
		switch key {
		case "up", "k":
			m.groupCursor = max(0, m.groupCursor-1)
		case "down", "j":
			m.groupCursor = clampIndex(m.groupCursor+1, len(m.snap.Groups))
		case "enter":
			if len(m.snap.Groups) > 0 {
				return m, m.selectGroupCmd(m.snap.Groups[m.groupCursor].ID)
			}
		}
		return m, nil
	}

	rows := m.rows()
	switch key {
	case "/":
		m.filtering = true
		m.filterInput.SetValue(m.filter)
		m.filterInput.Focus()
	case "esc":
		if m.filter != "" {
			m.filter = ""
			m.filterInput.SetValue("")
			m.ensureCursorVisible()
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
	case "left", "h":
		if m.colCursor > 0 {
			m.colCursor--
			m.ensureColumnVisible()
		}
	case "right", "l":
		if m.colCursor < m.ctl.Columns().Len()-1 {
			m.colCursor++
			m.ensureColumnVisible()
		}
	case " ":
		if row, ok := m.currentRow(); ok {
			id := row.item.ID
			m.sel.Toggle(id, !m.sel.Has(id))
		}
	case "enter":
		if row, ok := m.currentRow(); ok && row.sub == nil {
			return m, m.toggleSubitemsCmd(row.item.ID)
		}
	case "d":
		if _, ok := m.currentRow(); ok {
			m.confirmDelete = true
			m.status = fmt.Sprintf("Delete %d item(s)? (y/n)", len(m.targets()))
		}
	case "m", "c":
		if _, ok := m.currentRow(); !ok {
			return m, nil
		}
		verb := map[string]string{"m": "Move", "c": "Copy"}[key]
		var others []model.Group
		for _, g := range m.snap.Groups {
			if g.ID != m.snap.GroupID {
				others = append(others, g)
			}
		}
		if len(others) == 0 {
			m.status = "No other group to " + strings.ToLower(verb) + " to"
			return m, nil
		}
		m.picker = &groupPicker{verb: verb, groups: others}
	case "<", ">":
		cols := m.ctl.Columns().Columns()
		if len(cols) == 0 {
			return m, nil
		}
		to := m.colCursor - 1
		if key == ">" {
			to = m.colCursor + 1
		}
		if to < 0 || to >= len(cols) {
			return m, nil
		}
		id := cols[m.colCursor].ID
		m.colCursor = to
		return m, m.columnCmd("Column moved", func(ctx context.Context) error {
			return m.columns.Move(ctx, id, to)
		})
	case "-", "+", "=":
		cols := m.ctl.Columns().Columns()
		if len(cols) == 0 {
			return m, nil
		}
		col := cols[m.colCursor]
		w := layout.EffectiveWidth(col.ColumnWidth) + widthStep
		if key == "-" {
			w = max(layout.MinWidth, layout.EffectiveWidth(col.ColumnWidth)-widthStep)
		}
		return m, m.columnCmd("Column resized", func(ctx context.Context) error {
			return m.columns.SetWidth(ctx, col.ID, w)
		})
	}
	return m, nil
}

func (m boardModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	viewportX := msg.X - m.tableX() - nameWidth
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		m.closeResizer()
		if msg.Y != headerLines || m.snap.State != board.Ready {
			return m, nil
		}
		col, ok := m.columnEdgeAt(viewportX + m.scrollX)
		if !ok {
			return m, nil
		}
		send := m.send
		m.resizer = layout.NewResizer(col, func(dx int) { send(scrollMsg{dx: dx}) }, layout.Options{
			Clock:    m.clock,
			Viewport: m.viewportCells() * pxPerCell,
		})
		m.resizer.Start(viewportX * pxPerCell)
	case tea.MouseActionMotion:
		if m.resizer != nil {
			m.resizer.Drag(viewportX * pxPerCell)
		}
	case tea.MouseActionRelease:
		if m.resizer == nil {
			return m, nil
		}
		id := m.resizer.ColumnID()
		w := m.resizer.Stop()
		m.resizer = nil
		return m, m.columnCmd("Column resized", func(ctx context.Context) error {
			return m.columns.SetWidth(ctx, id, w)
		})
	}
	return m, nil
}

// closeResizer abandons any drag in progress and stops its auto-scroll.
func (m *boardModel) closeResizer() {
	if m.resizer != nil {
		m.resizer.Close()
		m.resizer = nil
	}
}

// columnEdgeAt finds the column whose right edge is at x (unscrolled cells),
// allowing one cell of slack.
func (m boardModel) columnEdgeAt(x int) (model.Column, bool) {
	left := 0
	for _, col := range m.ctl.Columns().Columns() {
		edge := left + m.cellWidth(col) - 1
		if x >= edge-1 && x <= edge+1 {
			return col, true
		}
		left += m.cellWidth(col)
	}
	return model.Column{}, false
}

func (m boardModel) retryCmd() tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	switch {
	case m.snap.State == board.Error:
		return func() tea.Msg { return loadDoneMsg{err: ctl.Retry(ctx)} }
	case m.snap.State == board.Ready:
		return func() tea.Msg { return loadDoneMsg{err: ctl.RetryGroup(ctx)} }
	}
	return nil
}

func (m boardModel) selectGroupCmd(groupID string) tea.Cmd {
	ctl, ctx := m.ctl, m.ctx
	return func() tea.Msg { return loadDoneMsg{err: ctl.SelectGroup(ctx, groupID)} }
}

func (m boardModel) toggleSubitemsCmd(itemID string) tea.Cmd {
	subs, ctx := m.subs, m.ctx
	return func() tea.Msg {
		return subitemsDoneMsg{itemID: itemID, err: subs.Toggle(ctx, itemID)}
	}
}

func (m boardModel) deleteCmd() tea.Cmd {
	row, ok := m.currentRow()
	if !ok {
		return nil
	}
	actions, ctx := m.actions, m.ctx
	return func() tea.Msg {
		ids, err := actions.Delete(ctx, row.item.ID)
		return actionDoneMsg{verb: "Deleted", ids: ids, err: err}
	}
}

func (m boardModel) transferCmd(verb, targetGroupID string) tea.Cmd {
	row, ok := m.currentRow()
	if !ok {
		return nil
	}
	actions, ctx := m.actions, m.ctx
	return func() tea.Msg {
		var ids []string
		var err error
		if verb == "Move" {
			ids, err = actions.Move(ctx, row.item.ID, targetGroupID)
			return actionDoneMsg{verb: "Moved", ids: ids, target: targetGroupID, err: err}
		}
		ids, err = actions.Copy(ctx, row.item.ID, targetGroupID)
		return actionDoneMsg{verb: "Copied", ids: ids, target: targetGroupID, err: err}
	}
}

func (m boardModel) columnCmd(verb string, op func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return columnDoneMsg{verb: verb, err: op(ctx)} }
}

// targets are the ids a bulk action on the current row would touch.
func (m boardModel) targets() []string {
	row, ok := m.currentRow()
	if !ok {
		return nil
	}
	return m.sel.Targets(row.item.ID)
}

// rows flattens the visible items and their expanded subitems. A filter
// hides items whose name does not fuzzy-match it.
func (m boardModel) rows() []boardRow {
	var rows []boardRow
	filter := usercfg.NormalizeSearchText(m.filter)
	for _, it := range m.actions.Items() {
		if filter != "" && usercfg.FuzzyScore(filter, usercfg.NormalizeSearchText(it.Name)) < 0 {
			continue
		}
		rows = append(rows, boardRow{item: it})
		if !m.subs.IsExpanded(it.ID) {
			continue
		}
		subs, ok := m.subs.Get(it.ID)
		if !ok {
			rows = append(rows, boardRow{item: it, loading: true})
			continue
		}
		for i := range subs {
			rows = append(rows, boardRow{item: it, sub: &subs[i]})
		}
	}
	return rows
}

func (m boardModel) currentRow() (boardRow, bool) {
	rows := m.rows()
	if len(rows) == 0 || m.cursor >= len(rows) {
		return boardRow{}, false
	}
	return rows[m.cursor], true
}

func (m boardModel) View() string {
	title := "Loading board…"
	if m.snap.Board.Name != "" {
		title = m.snap.Board.Name
		for _, g := range m.snap.Groups {
			if g.ID == m.snap.GroupID {
				title += " — " + g.Name
			}
		}
	}
	header := m.styles.header.Render(clip(title, m.width))
	help := m.styles.help.Render(clip("(? help • q quit • / filter • space select • m/c/d move/copy/delete • enter subitems • </> move column • -/+ width)", m.width))

	var body string
	switch m.snap.State {
	case board.Loading:
		body = m.styles.muted.Render("Cargando tablero…")
	case board.Error:
		body = m.styles.error.Render(errors.Message(m.snap.Err)) + "\n" + m.styles.muted.Render("Press r to retry")
	default:
		body = m.renderTable()
		if m.sidebar {
			body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", body)
		}
	}

	footer := ""
	switch {
	case m.filtering:
		footer = "\nFilter: " + m.filterInput.View()
	case m.picker != nil:
		footer = "\n" + m.renderPicker()
	case m.err != nil:
		footer = "\n" + m.styles.error.Render("Error: "+errors.Message(m.err))
	case m.status != "":
		footer = "\n" + m.styles.muted.Render(m.status)
	}
	if m.filter != "" && !m.filtering {
		footer += "\n" + m.styles.muted.Render("Filter: "+m.filter+" (esc to clear)")
	}
	if n := m.sel.Len(); n > 0 {
		footer += "\n" + m.styles.marked.Render(fmt.Sprintf("%d selected", n))
	}

	baseView := header + "\n" + help + "\n\n" + body + footer + "\n"
	if m.showingHelp {
		return m.renderWithHelpOverlay(baseView)
	}
	return baseView
}

func (m boardModel) renderSidebar() string {
	var lines []string
	for i, g := range m.snap.Groups {
		line := clip(g.Name, sidebarWidth-4)
		switch {
		case m.focusSidebar && i == m.groupCursor:
			line = m.styles.selected.Render(line)
		case g.ID == m.snap.GroupID:
			line = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(g.Color)).Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, m.styles.muted.Render("(no groups)"))
	}
	box := m.styles.boxStyle
	if m.focusSidebar {
		box = m.styles.boxActive
	}
	return box.Width(sidebarWidth).Render(m.styles.title.Render("Groups") + "\n" + strings.Join(lines, "\n"))
}

func (m boardModel) renderTable() string {
	cols := m.ctl.Columns().Columns()
	avail := m.viewportCells()

	var head strings.Builder
	for i, col := range cols {
		mark := " "
		if i == m.colCursor {
			mark = "▸"
		}
		head.WriteString(pad(clip(mark+col.Name, m.cellWidth(col)-2), m.cellWidth(col)-1) + "│")
	}
	lines := []string{m.styles.title.Render(pad("Item", nameWidth) + hscroll(head.String(), m.scrollX, avail))}

	switch m.snap.GroupState {
	case board.GroupLoading, board.GroupIdle:
		if m.snap.GroupID == "" {
			return strings.Join(append(lines, m.styles.muted.Render("(no groups)")), "\n")
		}
		return strings.Join(append(lines, m.styles.muted.Render("(loading…)")), "\n")
	case board.GroupError:
		lines = append(lines, m.styles.error.Render(errors.Message(m.snap.GroupErr)), m.styles.muted.Render("Press r to retry"))
		return strings.Join(lines, "\n")
	}

	rows := m.rows()
	if len(rows) == 0 {
		return strings.Join(append(lines, m.styles.muted.Render("(empty)")), "\n")
	}

	window := m.itemsWindowCount()
	start := m.offset
	end := min(len(rows), start+window)
	if start > 0 {
		lines = append(lines, m.styles.muted.Render(fmt.Sprintf("… %d above", start)))
	}
	for idx := start; idx < end; idx++ {
		lines = append(lines, m.renderRow(rows[idx], idx, cols, avail))
	}
	if end < len(rows) {
		lines = append(lines, m.styles.muted.Render(fmt.Sprintf("… %d below", len(rows)-end)))
	}
	return strings.Join(lines, "\n")
}

func (m boardModel) renderRow(r boardRow, idx int, cols []model.Column, avail int) string {
	var name string
	var values []model.Value
	switch {
	case r.loading:
		return m.styles.muted.Render("    └─ (loading…)")
	case r.sub != nil:
		name = "    └─ " + r.sub.Name
		values = r.sub.Values
	default:
		mark := "  "
		if m.sel.Has(r.item.ID) {
			mark = "* "
		}
		expand := "▸ "
		if m.subs.IsExpanded(r.item.ID) {
			expand = "▾ "
		}
		name = mark + expand + r.item.Name
		values = r.item.Values
	}

	var cells strings.Builder
	for _, col := range cols {
		cells.WriteString(pad(clip(" "+m.cellText(col, values), m.cellWidth(col)-2), m.cellWidth(col)-1) + "│")
	}
	line := pad(clip(name, nameWidth-1), nameWidth) + hscroll(cells.String(), m.scrollX, avail)

	switch {
	case idx == m.cursor && !m.focusSidebar:
		return m.styles.selected.Render(line)
	case r.sub == nil && r.item.ID == m.snap.Highlighted:
		return m.styles.highlight.Render(line)
	case r.sub == nil && m.sel.Has(r.item.ID):
		return m.styles.marked.Render(line)
	}
	return line
}

func (m boardModel) renderPicker() string {
	lines := []string{m.styles.title.Render(m.picker.verb + " to group:")}
	for i, g := range m.picker.groups {
		line := "  " + g.Name
		if i == m.picker.cursor {
			line = m.styles.selected.Render("> " + g.Name)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// cellText renders a cell: status values resolve through the board's table
// values, dates use the es-MX day/month/year order.
func (m boardModel) cellText(col model.Column, values []model.Value) string {
	var v model.Value
	found := false
	for _, candidate := range values {
		if candidate.ColumnID == col.ID {
			v, found = candidate, true
			break
		}
	}
	if !found {
		return ""
	}
	switch col.Type {
	case model.ColumnStatus:
		for _, tv := range m.ctl.Values().ForColumn(col.ID) {
			if tv.ID == v.Value || tv.Value == v.Value {
				return tv.Value
			}
		}
	case model.ColumnDate:
		return formatDate(v.Value, false)
	}
	return v.Value
}

func (m boardModel) cellWidth(col model.Column) int {
	px := layout.EffectiveWidth(col.ColumnWidth)
	if m.resizer != nil && m.resizer.ColumnID() == col.ID {
		px = m.resizer.Width()
	}
	return max(layout.MinWidth/pxPerCell, px/pxPerCell)
}

func (m boardModel) tableX() int {
	if m.sidebar {
		// box border, padding and the joining space
		return sidebarWidth + 3
	}
	return 0
}

func (m boardModel) viewportCells() int {
	return max(10, m.width-m.tableX()-nameWidth)
}

func (m boardModel) contentCells() int {
	total := 0
	for _, col := range m.ctl.Columns().Columns() {
		total += m.cellWidth(col)
	}
	return total
}

func (m *boardModel) scrollBy(cells int) {
	maxScroll := max(0, m.contentCells()-m.viewportCells())
	m.scrollX = min(maxScroll, max(0, m.scrollX+cells))
}

// ensureColumnVisible scrolls horizontally so the focused column is on screen.
func (m *boardModel) ensureColumnVisible() {
	cols := m.ctl.Columns().Columns()
	if len(cols) == 0 {
		m.scrollX = 0
		return
	}
	left := 0
	for i := 0; i < m.colCursor && i < len(cols); i++ {
		left += m.cellWidth(cols[i])
	}
	right := left + m.cellWidth(cols[clampIndex(m.colCursor, len(cols))])
	if left < m.scrollX {
		m.scrollX = left
	}
	if right > m.scrollX+m.viewportCells() {
		m.scrollX = right - m.viewportCells()
	}
	m.scrollBy(0)
}

func (m boardModel) viewportItemsHeight() int {
	reserved := headerLines + 3
	avail := max(5, m.height-reserved)
	return max(1, avail-1)
}

// itemsWindowCount excludes the above/below indicator lines.
func (m boardModel) itemsWindowCount() int {
	base := m.viewportItemsHeight()
	if base <= 2 {
		return 1
	}
	return base - 2
}

func (m *boardModel) ensureCursorVisible() {
	n := len(m.rows())
	if n == 0 {
		m.cursor, m.offset = 0, 0
		return
	}
	m.cursor = clampIndex(m.cursor, n)
	vh := m.itemsWindowCount()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+vh {
		m.offset = m.cursor - vh + 1
	}
	m.offset = min(max(0, n-vh), max(0, m.offset))
}

func (m boardModel) renderWithHelpOverlay(baseView string) string {
	lines, overlayWidth, viewport := m.helpLayout()
	offset := min(max(0, len(lines)-viewport), max(0, m.helpOffset))
	end := min(len(lines), offset+viewport)
	overlayHeight := viewport + 3
	y := max(0, (m.height-overlayHeight)/2)

	pos := fmt.Sprintf("%d/%d lines — ↑/↓ scroll — q/? close", end, len(lines))
	overlay := m.styles.helpOverlay.Width(overlayWidth).Render(strings.Join(lines[offset:end], "\n") + "\n" + m.styles.muted.Render(pos))

	baseLines := strings.Split(baseView, "\n")
	overlayLines := strings.Split(overlay, "\n")
	for len(baseLines) < y+len(overlayLines) {
		baseLines = append(baseLines, "")
	}
	for i, line := range overlayLines {
		baseLines[y+i] = line
	}
	return strings.Join(baseLines, "\n")
}

// helpLayout returns wrapped help lines, overlay width and viewport height.
func (m boardModel) helpLayout() ([]string, int, int) {
	overlayWidth := min(80, max(40, m.width-8))
	wrapWidth := max(10, overlayWidth-4)
	var wrapped []string
	for _, line := range strings.Split(m.buildHelpContent(), "\n") {
		r := []rune(line)
		for len(r) > wrapWidth {
			wrapped = append(wrapped, string(r[:wrapWidth]))
			r = r[wrapWidth:]
		}
		wrapped = append(wrapped, string(r))
	}
	viewport := max(3, min(m.height-4, len(wrapped)+3)-3)
	return wrapped, overlayWidth, viewport
}

func (m boardModel) buildHelpContent() string {
	k := m.styles.helpKey.Render
	lines := []string{
		m.styles.helpTitle.Render("Board - Keyboard Shortcuts"),
		"",
		k("q/ctrl+c") + "    Quit",
		k("?") + "           Toggle this help",
		k("r") + "           Retry / reload group",
		k("b") + "           Toggle groups sidebar",
		k("tab") + "         Focus sidebar or table",
		k("o") + "           Open board in browser",
		"",
		m.styles.helpTitle.Render("Items:"),
		k("j/k") + "         Move cursor",
		k("/") + "           Filter items by name (esc clears)",
		k("space") + "       Select item",
		k("enter") + "       Expand subitems",
		k("m / c") + "       Move / copy selected items to a group",
		k("d") + "           Delete selected items",
		"",
		m.styles.helpTitle.Render("Columns:"),
		k("h/l") + "         Focus column",
		k("< / >") + "       Move focused column",
		k("- / +") + "       Narrow / widen focused column",
		k("drag") + "        Drag a header edge to resize",
	}
	return strings.Join(lines, "\n")
}

func (m boardModel) saveUIPreferences() {
	if m.snap.Route.BoardID == "" {
		return
	}
	prefs := usercfg.GetUIPrefs()
	prefs.RememberBoard(m.snap.Route.BoardID, m.snap.GroupID)
	sidebar := m.sidebar
	prefs.ShowSidebar = &sidebar
	if err := usercfg.SaveUIPrefs(prefs); err != nil {
		logger.Debug("failed to save UI preferences: %v", err)
	}
}

// StartBoard runs the board view until the user quits.
func StartBoard(ctx context.Context, cfg usercfg.Config, client boardClient, route model.Route) error {
	var p *tea.Program
	m := newBoardModel(ctx, client, route, boardOptions{
		Highlight: cfg.Highlight(),
		WebURL:    cfg.BoardWebURL(route.BoardID),
		Sidebar:   cfg.UIPrefs.SidebarVisible(),
		Send: func(msg tea.Msg) {
			if p != nil {
				p.Send(msg)
			}
		},
	})
	p = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	finalModel, err := p.Run()
	m.ctl.Close()

	if bm, ok := finalModel.(boardModel); ok {
		bm.closeResizer()
		if os.Getenv("TABLERO_IGNORE_UI_PREFS") != "1" {
			bm.saveUIPreferences()
		}
	}
	return err
}

// formatDate renders an API date as dd/mm/yyyy, with the time when asked.
// Unparseable input is returned unchanged.
func formatDate(s string, showTime bool) string {
	for _, f := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		t, err := time.Parse(f, s)
		if err != nil {
			continue
		}
		if showTime {
			return t.Format("02/01/2006, 15:04:05")
		}
		return t.Format("02/01/2006")
	}
	return s
}

func clampIndex(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// hscroll cuts a window of w cells starting at off.
func hscroll(s string, off, w int) string {
	r := []rune(s)
	if off >= len(r) {
		return ""
	}
	r = r[off:]
	if len(r) > w {
		r = r[:w]
	}
	return string(r)
}

func pad(s string, w int) string {
	n := len([]rune(s))
	if n >= w {
		return s
	}
	return s + strings.Repeat(" ", w-n)
}

func clip(s string, w int) string {
	r := []rune(s)
	if w <= 0 || len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-3]) + "..."
}
