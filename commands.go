package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tablero/internal/api"
	"tablero/internal/chattasks"
	"tablero/internal/cobranza"
	"tablero/internal/directory"
	"tablero/internal/errors"
	"tablero/internal/groups"
	"tablero/internal/layout"
	"tablero/internal/logger"
	"tablero/internal/model"
	"tablero/internal/search"
	"tablero/internal/selection"
	"tablero/internal/store"
	"tablero/internal/subitems"
	"tablero/internal/usercfg"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	boardGroupFlag string
	boardItemFlag  string
	refreshFlag    bool
	yesFlag        bool
	nameFlag       string
	colorFlag      string
	toFlag         string
	messageFlag    string
	forceFlag      bool
	openFlag       string
	pickFlag       bool
)

var boardCmd = &cobra.Command{
	Use:   "board [boardId]",
	Short: "Open a board in the terminal",
	Long: `Open a board: groups in the sidebar, the selected group's items as rows and
the board's columns at their saved widths.

Without a board id the default_board setting or the last opened board is used.

Controls:
  - j/k: Move between items
  - space: Select item (bulk actions apply to the selection plus the cursor)
  - m / c / d: Move, copy or delete items
  - enter: Expand subitems
  - h/l, < / >: Focus and move columns
  - - / +: Narrow or widen the focused column (or drag a header edge)
  - tab, b: Focus or toggle the groups sidebar
  - r: Retry after an error
  - ?: Help
  - q: Quit`,
	Example: "  tablero board b-ventas --group g-abril --item i-42",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runBoard,
}

var boardsCmd = &cobra.Command{
	Use:   "boards [query]",
	Short: "List boards, most recently opened first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBoards,
}

var openCmd = &cobra.Command{
	Use:   "open <boardId>",
	Short: "Open a board in the web UI",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List and edit a board's columns",
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List and edit a board's groups",
}

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Move, copy or delete items in bulk",
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Show and edit item chats",
}

var valuesCmd = &cobra.Command{
	Use:   "values",
	Short: "Status values and item cell values",
}

var subitemsCmd = &cobra.Command{
	Use:   "subitems <itemId>",
	Short: "List the subitems of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubitems,
}

var cobranzaCmd = &cobra.Command{
	Use:   "cobranza",
	Short: "Show the status labels of the cobranza board",
	RunE:  runCobranza,
}

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Search workspaces, boards, groups and items",
	Example: "  tablero search factura\n  tablero search factura --open item:i-42\n  tablero search factura --pick",
	Args:    cobra.ExactArgs(1),
	RunE:    runSearch,
}

// Prompts and the board view go through these so commands can run headless.
var (
	askOne     = survey.AskOne
	startBoard = StartBoard
)

func addBoardCommands(root *cobra.Command) {
	boardCmd.Flags().StringVarP(&boardGroupFlag, "group", "g", "", "Group to select")
	boardCmd.Flags().StringVarP(&boardItemFlag, "item", "i", "", "Item to highlight")
	boardsCmd.Flags().BoolVarP(&refreshFlag, "refresh", "r", false, "Ignore the cached board list")
	cobranzaCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "Refetch even if already loaded")
	searchCmd.Flags().StringVar(&openFlag, "open", "", "Open a result in the board view, as kind:id")
	searchCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose a result interactively and open it")

	columnsCmd.AddCommand(
		&cobra.Command{Use: "list <boardId>", Short: "List columns in order", Args: cobra.ExactArgs(1), RunE: runColumnsList},
		&cobra.Command{Use: "rename <boardId> <columnId> <name>", Short: "Rename a column", Args: cobra.ExactArgs(3), RunE: runColumnsRename},
		&cobra.Command{Use: "resize <boardId> <columnId> <width>", Short: "Set a column width in pixels", Args: cobra.ExactArgs(3), RunE: runColumnsResize},
		&cobra.Command{Use: "move <boardId> <columnId> <position>", Short: "Move a column to a zero-based position", Args: cobra.ExactArgs(3), RunE: runColumnsMove},
		withYes(&cobra.Command{Use: "delete <boardId> <columnId>", Short: "Delete a column", Args: cobra.ExactArgs(2), RunE: runColumnsDelete}),
	)

	groupsCreate := &cobra.Command{Use: "create <boardId>", Short: "Create a group", Args: cobra.ExactArgs(1), RunE: runGroupsCreate}
	groupsEdit := &cobra.Command{Use: "edit <boardId> <groupId>", Short: "Rename or recolor a group", Args: cobra.ExactArgs(2), RunE: runGroupsEdit}
	for _, c := range []*cobra.Command{groupsCreate, groupsEdit} {
		c.Flags().StringVarP(&nameFlag, "name", "n", "", "Group name")
		c.Flags().StringVarP(&colorFlag, "color", "c", "", "Group color, e.g. #266DD3")
	}
	groupsMove := &cobra.Command{Use: "move <boardId> <groupId>", Short: "Move a group to another board", Args: cobra.ExactArgs(2), RunE: runGroupsTransfer}
	groupsCopy := &cobra.Command{Use: "copy <boardId> <groupId>", Short: "Copy a group to another board", Args: cobra.ExactArgs(2), RunE: runGroupsTransfer}
	for _, c := range []*cobra.Command{groupsMove, groupsCopy} {
		c.Flags().StringVarP(&toFlag, "to", "t", "", "Target board id (prompted when empty)")
	}
	groupsCmd.AddCommand(
		&cobra.Command{Use: "list <boardId>", Short: "List groups", Args: cobra.ExactArgs(1), RunE: runGroupsList},
		groupsCreate,
		groupsEdit,
		withYes(&cobra.Command{Use: "delete <boardId> <groupId>", Short: "Delete a group", Args: cobra.ExactArgs(2), RunE: runGroupsDelete}),
		groupsMove,
		groupsCopy,
	)

	itemsMove := &cobra.Command{Use: "move <itemId>...", Short: "Move items to a group", Args: cobra.MinimumNArgs(1), RunE: runItemsTransfer}
	itemsCopy := &cobra.Command{Use: "copy <itemId>...", Short: "Copy items to a group", Args: cobra.MinimumNArgs(1), RunE: runItemsTransfer}
	for _, c := range []*cobra.Command{itemsMove, itemsCopy} {
		c.Flags().StringVarP(&toFlag, "to", "t", "", "Target group id")
		_ = c.MarkFlagRequired("to")
	}
	itemsCmd.AddCommand(
		itemsMove,
		itemsCopy,
		withYes(&cobra.Command{Use: "delete <itemId>...", Short: "Delete items", Args: cobra.MinimumNArgs(1), RunE: runItemsDelete}),
	)

	chatsCreate := &cobra.Command{Use: "create <itemId>", Short: "Start a chat on an item", Args: cobra.ExactArgs(1), RunE: runChatsCreate}
	chatsUpdate := &cobra.Command{Use: "update <chatId>", Short: "Edit a chat message", Args: cobra.ExactArgs(1), RunE: runChatsUpdate}
	chatsReply := &cobra.Command{Use: "reply <chatId>", Short: "Reply to a chat", Args: cobra.ExactArgs(1), RunE: runChatsReply}
	for _, c := range []*cobra.Command{chatsCreate, chatsUpdate, chatsReply} {
		c.Flags().StringVarP(&messageFlag, "message", "m", "", "Message HTML (prompted when empty)")
	}
	chatsCmd.AddCommand(
		&cobra.Command{Use: "show <groupId> <itemId>", Short: "Show an item's chats and tasks", Args: cobra.ExactArgs(2), RunE: runChatsShow},
		chatsCreate,
		chatsUpdate,
		withYes(&cobra.Command{Use: "delete <chatId>", Short: "Delete a chat", Args: cobra.ExactArgs(1), RunE: runChatsDelete}),
		chatsReply,
		withYes(&cobra.Command{Use: "unreply <chatId> <replyId>", Short: "Delete a reply", Args: cobra.ExactArgs(2), RunE: runChatsUnreply}),
	)

	valuesCmd.AddCommand(
		&cobra.Command{Use: "list <boardId>", Short: "List the status values of a board", Args: cobra.ExactArgs(1), RunE: runValuesList},
		&cobra.Command{Use: "set <itemId> <columnId> <value>", Short: "Create an item's value for a column", Args: cobra.ExactArgs(3), RunE: runValuesSet},
		&cobra.Command{Use: "update <valueId> <value>", Short: "Change an existing value", Args: cobra.ExactArgs(2), RunE: runValuesUpdate},
	)

	root.AddCommand(boardCmd, boardsCmd, openCmd, columnsCmd, groupsCmd, itemsCmd, subitemsCmd, chatsCmd, valuesCmd, cobranzaCmd, searchCmd)
}

func withYes(c *cobra.Command) *cobra.Command {
	c.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")
	return c
}

func clientFromConfig() (usercfg.Config, *api.Client) {
	cfg := usercfg.GetRuntimeConfig()
	logger.Config("api_url=%s timeout=%s retries=%d", cfg.APIURL, cfg.HTTPTimeout(), cfg.Retries())
	return cfg, newAPIClient(cfg)
}

func confirm(message string) (bool, error) {
	if yesFlag {
		return true, nil
	}
	ok := false
	err := askOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

func runBoard(cmd *cobra.Command, args []string) error {
	cfg, client := clientFromConfig()

	route := model.Route{GroupID: boardGroupFlag, SearchItemID: boardItemFlag}
	switch {
	case len(args) == 1:
		route.BoardID = args[0]
	case cfg.DefaultBoard != "":
		route.BoardID = cfg.DefaultBoard
	default:
		route.BoardID = cfg.UIPrefs.LastBoard
	}
	if route.BoardID == "" {
		return errors.NewValidationError("boardId", "is required (pass one or set default_board)")
	}
	if route.GroupID == "" {
		route.GroupID = cfg.UIPrefs.LastGroup(route.BoardID)
	}
	return startBoard(cmd.Context(), cfg, client, route)
}

func runBoards(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	dir := directory.New(client, directory.DefaultPath())

	entries, err := dir.Boards(cmd.Context(), refreshFlag)
	if err != nil {
		return err
	}
	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	ranked := directory.Rank(entries, usercfg.GetUIPrefs().RecentBoards, query)
	if len(ranked) == 0 {
		fmt.Fprintln(out, "\033[93mNo boards found.\033[0m")
		return nil
	}

	rows := make([][]string, 0, len(ranked))
	for _, e := range ranked {
		rows = append(rows, []string{e.ID, e.Name, strconv.Itoa(e.Groups)})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Board", "Groups"}, rows))
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := usercfg.GetRuntimeConfig()
	url := cfg.BoardWebURL(args[0])
	if url == "" {
		return errors.NewValidationError("web_url", "is not set (run: tablero config set web_url <url>)")
	}
	fmt.Fprintf(out, "Opening %s\n", url)
	return browser.OpenURL(url)
}

// loadColumns seeds a column store for one board.
func loadColumns(ctx context.Context, client *api.Client, boardID string) (*store.ColumnStore, error) {
	cols, err := client.ListColumns(ctx, boardID)
	if err != nil {
		return nil, err
	}
	s := store.NewColumnStore()
	s.SetColumns(cols)
	return s, nil
}

func printColumns(out io.Writer, s *store.ColumnStore) {
	rows := make([][]string, 0, s.Len())
	for _, c := range s.Columns() {
		rows = append(rows, []string{strconv.Itoa(c.Position), c.ID, c.Name, string(c.Type), strconv.Itoa(layout.EffectiveWidth(c.ColumnWidth))})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "ID", "Column", "Type", "Width"}, rows))
}

func runColumnsList(cmd *cobra.Command, args []string) error {
	_, client := clientFromConfig()
	s, err := loadColumns(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	printColumns(cmd.OutOrStdout(), s)
	return nil
}

func withColumns(cmd *cobra.Command, boardID string, op func(*layout.Columns) error) error {
	_, client := clientFromConfig()
	s, err := loadColumns(cmd.Context(), client, boardID)
	if err != nil {
		return err
	}
	if err := op(layout.NewColumns(client, s)); err != nil {
		return err
	}
	printColumns(cmd.OutOrStdout(), s)
	return nil
}

func runColumnsRename(cmd *cobra.Command, args []string) error {
	return withColumns(cmd, args[0], func(c *layout.Columns) error {
		return c.Rename(cmd.Context(), args[1], strings.TrimSpace(args[2]))
	})
}

func runColumnsResize(cmd *cobra.Command, args []string) error {
	width, err := strconv.Atoi(args[2])
	if err != nil {
		return errors.NewValidationError("width", "must be a number of pixels")
	}
	return withColumns(cmd, args[0], func(c *layout.Columns) error {
		return c.SetWidth(cmd.Context(), args[1], width)
	})
}

func runColumnsMove(cmd *cobra.Command, args []string) error {
	position, err := strconv.Atoi(args[2])
	if err != nil {
		return errors.NewValidationError("position", "must be a number")
	}
	return withColumns(cmd, args[0], func(c *layout.Columns) error {
		return c.Move(cmd.Context(), args[1], position)
	})
}

func runColumnsDelete(cmd *cobra.Command, args []string) error {
	ok, err := confirm(fmt.Sprintf("Delete column %s and all its values?", args[1]))
	if err != nil || !ok {
		return err
	}
	return withColumns(cmd, args[0], func(c *layout.Columns) error {
		return c.Delete(cmd.Context(), args[1])
	})
}

// prefsListener keeps the last opened group in the UI preferences in step
// with group changes made from the command line.
type prefsListener struct{ boardID string }

func (l prefsListener) GroupsChanged(ctx context.Context, gs []model.Group) error {
	logger.Store("board %s now has %d groups", l.boardID, len(gs))
	return nil
}

func (l prefsListener) SelectGroup(ctx context.Context, groupID string) error {
	if os.Getenv("TABLERO_IGNORE_UI_PREFS") == "1" {
		return nil
	}
	prefs := usercfg.GetUIPrefs()
	if prefs.LastBoard != l.boardID {
		return nil
	}
	if groupID == "" {
		delete(prefs.LastGroups, l.boardID)
	} else {
		prefs.RememberBoard(l.boardID, groupID)
	}
	return usercfg.SaveUIPrefs(prefs)
}

func loadGroupList(ctx context.Context, client *api.Client, boardID string) (*groups.List, error) {
	gs, err := client.ListGroups(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return groups.NewList(client, prefsListener{boardID: boardID}, boardID, gs), nil
}

func printGroups(out io.Writer, gs []model.Group) {
	if len(gs) == 0 {
		fmt.Fprintln(out, "\033[93mNo groups.\033[0m")
		return
	}
	rows := make([][]string, 0, len(gs))
	for _, g := range gs {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(g.Color)).Render("■")
		rows = append(rows, []string{g.ID, swatch + " " + g.Name, g.Color})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Group", "Color"}, rows))
}

func runGroupsList(cmd *cobra.Command, args []string) error {
	_, client := clientFromConfig()
	list, err := loadGroupList(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	printGroups(cmd.OutOrStdout(), list.Groups())
	return nil
}

// askGroupFields prompts for whichever of name and color were not given.
func askGroupFields(name, color string) (string, string, error) {
	if strings.TrimSpace(name) == "" {
		if err := askOne(&survey.Input{Message: "Group name:"}, &name, survey.WithValidator(survey.Required)); err != nil {
			return "", "", err
		}
	}
	if strings.TrimSpace(color) == "" {
		if err := askOne(&survey.Select{Message: "Color:", Options: model.GroupPalette}, &color); err != nil {
			return "", "", err
		}
	}
	return name, color, nil
}

func runGroupsCreate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	list, err := loadGroupList(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	name, color, err := askGroupFields(nameFlag, colorFlag)
	if err != nil {
		return err
	}
	g, err := list.Create(cmd.Context(), name, color)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mCreated group %s (%s)\033[0m\n", g.Name, g.ID)
	return nil
}

func runGroupsEdit(cmd *cobra.Command, args []string) error {
	_, client := clientFromConfig()
	list, err := loadGroupList(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	name, color := nameFlag, colorFlag
	for _, g := range list.Groups() {
		if g.ID != args[1] {
			continue
		}
		if name == "" {
			name = g.Name
		}
		if color == "" {
			color = g.Color
		}
	}
	if err := list.Edit(cmd.Context(), args[1], name, color); err != nil {
		return err
	}
	printGroups(cmd.OutOrStdout(), list.Groups())
	return nil
}

func runGroupsDelete(cmd *cobra.Command, args []string) error {
	ok, err := confirm(fmt.Sprintf("Delete group %s and all its items?", args[1]))
	if err != nil || !ok {
		return err
	}
	_, client := clientFromConfig()
	list, err := loadGroupList(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}
	if err := list.Delete(cmd.Context(), args[1]); err != nil {
		return err
	}
	printGroups(cmd.OutOrStdout(), list.Groups())
	return nil
}

func runGroupsTransfer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	list, err := loadGroupList(cmd.Context(), client, args[0])
	if err != nil {
		return err
	}

	target := toFlag
	if target == "" {
		boards, err := list.Boards(cmd.Context())
		if err != nil {
			return err
		}
		options := make([]string, 0, len(boards))
		byOption := make(map[string]string, len(boards))
		for _, b := range boards {
			if b.ID == args[0] {
				continue
			}
			opt := fmt.Sprintf("%s (%s)", b.Name, b.ID)
			options = append(options, opt)
			byOption[opt] = b.ID
		}
		if len(options) == 0 {
			return errors.NewValidationError("targetBoardId", "has no candidates")
		}
		var choice string
		if err := askOne(&survey.Select{Message: "Target board:", Options: options}, &choice); err != nil {
			return err
		}
		target = byOption[choice]
	}

	if cmd.Name() == "move" {
		err = list.Move(cmd.Context(), args[1], target)
	} else {
		err = list.Copy(cmd.Context(), args[1], target)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mGroup %s %s to board %s\033[0m\n", args[1], pastTense(cmd.Name()), target)
	return nil
}

func pastTense(verb string) string {
	switch verb {
	case "move":
		return "moved"
	case "copy":
		return "copied"
	}
	return verb + "d"
}

// itemActions treats the first id as the cursor row and the rest as the
// selection, so the request carries their union.
func itemActions(client *api.Client, ids []string) *selection.Actions {
	sel := selection.New()
	sel.Set(ids[1:])
	return selection.NewActions(client, sel, nil)
}

func runItemsTransfer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	actions := itemActions(client, args)
	var (
		ids []string
		err error
	)
	if cmd.Name() == "move" {
		ids, err = actions.Move(cmd.Context(), args[0], toFlag)
	} else {
		ids, err = actions.Copy(cmd.Context(), args[0], toFlag)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92m%d item(s) %s to group %s\033[0m\n", len(ids), pastTense(cmd.Name()), toFlag)
	return nil
}

func runItemsDelete(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ok, err := confirm(fmt.Sprintf("Delete %d item(s)?", len(args)))
	if err != nil || !ok {
		return err
	}
	_, client := clientFromConfig()
	ids, err := itemActions(client, args).Delete(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mDeleted %d item(s)\033[0m\n", len(ids))
	return nil
}

func runSubitems(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	cache := subitems.New(client)
	if err := cache.Toggle(cmd.Context(), args[0]); err != nil {
		return err
	}
	rows, _ := cache.Get(args[0])
	if len(rows) == 0 {
		fmt.Fprintln(out, "\033[93mNo subitems.\033[0m")
		return nil
	}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		var vals []string
		for _, v := range r.Values {
			if v.Value != "" {
				vals = append(vals, v.Value)
			}
		}
		cells = append(cells, []string{r.ID, r.Name, strings.Join(vals, ", ")})
	}
	fmt.Fprintln(out, renderTable([]string{"ID", "Subitem", "Values"}, cells))
	return nil
}

// askMessage returns the --message flag or prompts for multi-line HTML.
func askMessage() (string, error) {
	if strings.TrimSpace(messageFlag) != "" {
		return messageFlag, nil
	}
	var msg string
	err := askOne(&survey.Multiline{Message: "Message (HTML):"}, &msg, survey.WithValidator(survey.Required))
	return msg, err
}

func runChatsShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	detail, err := client.GetGroup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	var item *model.Item
	for i := range detail.Items {
		if detail.Items[i].ID == args[1] {
			item = &detail.Items[i]
		}
	}
	if item == nil {
		return errors.NewNotFoundError("item", args[1])
	}
	if len(item.Chats) == 0 {
		fmt.Fprintln(out, "\033[93mNo chats.\033[0m")
		return nil
	}

	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	for _, c := range item.Chats {
		fmt.Fprintln(out, muted.Render(fmt.Sprintf("%s · %s · %s", c.ID, c.CreatedBy, formatDate(c.CreatedAt, true))))
		fmt.Fprintln(out, chattasks.PlainText(c.HTMLContent))
		if c.Tasks != nil {
			tasks := chattasks.ParseJSON(*c.Tasks)
			done := 0
			for _, t := range tasks {
				if t.Completed {
					done++
				}
			}
			if len(tasks) > 0 {
				fmt.Fprintln(out, muted.Render(fmt.Sprintf("tasks: %d/%d done", done, len(tasks))))
			}
		}
		for _, r := range c.Replies {
			fmt.Fprintln(out, "  ↳ " + muted.Render(fmt.Sprintf("%s · %s", r.CreatedBy, formatDate(r.CreatedAt, true))))
			for _, line := range strings.Split(chattasks.PlainText(r.HTMLContent), "\n") {
				fmt.Fprintln(out, "    " + line)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runChatsCreate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	msg, err := askMessage()
	if err != nil {
		return err
	}
	_, client := clientFromConfig()
	tasks := chattasks.ToJSON(chattasks.ExtractFromHTML(msg))
	chat, err := client.CreateChat(cmd.Context(), model.CreateChatRequest{ItemID: args[0], Message: msg, Tasks: &tasks})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mCreated chat %s\033[0m\n", chat.ID)
	return nil
}

func runChatsUpdate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	msg, err := askMessage()
	if err != nil {
		return err
	}
	_, client := clientFromConfig()
	tasks := chattasks.ToJSON(chattasks.ExtractFromHTML(msg))
	if _, err := client.UpdateChat(cmd.Context(), args[0], model.UpdateChatRequest{Message: msg, Tasks: &tasks}); err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mUpdated chat %s\033[0m\n", args[0])
	return nil
}

func runChatsDelete(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ok, err := confirm(fmt.Sprintf("Delete chat %s?", args[0]))
	if err != nil || !ok {
		return err
	}
	_, client := clientFromConfig()
	if err := client.DeleteChat(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mDeleted chat %s\033[0m\n", args[0])
	return nil
}

func runChatsReply(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	msg, err := askMessage()
	if err != nil {
		return err
	}
	_, client := clientFromConfig()
	reply, err := client.CreateReply(cmd.Context(), model.CreateReplyRequest{ChatID: args[0], HTMLContent: msg})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mCreated reply %s\033[0m\n", reply.ID)
	return nil
}

func runChatsUnreply(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ok, err := confirm(fmt.Sprintf("Delete reply %s?", args[1]))
	if err != nil || !ok {
		return err
	}
	_, client := clientFromConfig()
	if err := client.DeleteReply(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mDeleted reply %s\033[0m\n", args[1])
	return nil
}

func printStatusValues(out io.Writer, values []model.TableValuesByColumn) {
	rows := [][]string{}
	for _, col := range values {
		for _, v := range col.Values {
			rows = append(rows, []string{col.ColumnName, v.ID, v.Value})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "\033[93mNo status values.\033[0m")
		return
	}
	fmt.Fprintln(out, renderTable([]string{"Column", "ID", "Value"}, rows))
}

func runValuesList(cmd *cobra.Command, args []string) error {
	_, client := clientFromConfig()
	values, err := client.StatusTableValues(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	s := store.NewTableValueStore()
	s.SetTableValues(values)
	printStatusValues(cmd.OutOrStdout(), s.All())
	return nil
}

func runValuesSet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	v, err := client.CreateTableValue(cmd.Context(), args[0], args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mCreated value %s\033[0m\n", v.ID)
	return nil
}

func runValuesUpdate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	_, client := clientFromConfig()
	if err := client.UpdateTableValue(cmd.Context(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(out, "\033[92mUpdated value %s\033[0m\n", args[0])
	return nil
}

func runCobranza(cmd *cobra.Command, args []string) error {
	_, client := clientFromConfig()
	svc := cobranza.NewService(client)
	if err := svc.Load(cmd.Context(), forceFlag); err != nil {
		fmt.Fprintln(os.Stderr, svc.Err())
		return err
	}
	printStatusValues(cmd.OutOrStdout(), svc.Values())
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, client := clientFromConfig()
	resp, err := client.Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	open := openFlag
	results := search.Filter(resp, args[0])
	if len(results) == 0 {
		results = search.Flatten(resp)
	}

	if pickFlag && open == "" {
		var options []string
		byOption := make(map[string]search.Result)
		for _, r := range results {
			if r.Kind == search.KindWorkspace {
				continue
			}
			opt := fmt.Sprintf("[%s] %s", r.Kind, r.Name)
			options = append(options, opt)
			byOption[opt] = r
		}
		if len(options) == 0 {
			fmt.Fprintln(out, "\033[93mNothing to open.\033[0m")
			return nil
		}
		var choice string
		if err := askOne(&survey.Select{Message: "Open:", Options: options, PageSize: 15}, &choice); err != nil {
			return err
		}
		r := byOption[choice]
		open = string(r.Kind) + ":" + r.ID
	}

	if open != "" {
		kindStr, id, ok := strings.Cut(open, ":")
		if !ok {
			return errors.NewValidationError("--open", "must look like kind:id")
		}
		kind, err := search.ParseKind(kindStr)
		if err != nil {
			return err
		}
		route, err := search.Resolve(resp, kind, id)
		if err != nil {
			return err
		}
		return startBoard(cmd.Context(), cfg, client, route)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "\033[93mNo results.\033[0m")
		return nil
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{string(r.Kind), r.ID, r.Name})
	}
	fmt.Fprintln(out, renderTable([]string{"Kind", "ID", "Name"}, rows))
	return nil
}
