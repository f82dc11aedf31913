package main

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"tablero/internal/errors"
	"tablero/internal/model"
	"tablero/internal/usercfg"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type apiCall struct {
	method string
	path   string
	body   string
}

// cliServer answers GETs from canned JSON and accepts every write with 204.
type cliServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls []apiCall
}

func newCLIServer(t *testing.T, responses map[string]string) *cliServer {
	t.Helper()
	s := &cliServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.calls = append(s.calls, apiCall{method: r.Method, path: r.URL.Path, body: string(body)})
		s.mu.Unlock()

		if resp, ok := responses[r.Method+" "+r.URL.Path]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}
		if r.Method == http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(s.Close)
	return s
}

// writes returns the non-GET calls in order.
func (s *cliServer) writes() []apiCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []apiCall
	for _, c := range s.calls {
		if c.method != http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func (s *cliServer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// resetFlags puts every flag back to its default so runs don't leak into
// each other through the package-level flag variables.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command against srv with a sandboxed HOME and
// returns what the command printed.
func runCLI(t *testing.T, srv *cliServer, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TABLERO_API_URL", srv.URL+"/api")
	t.Setenv("TABLERO_IGNORE_UI_PREFS", "1")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// stubPrompts replaces survey with answer for the duration of the test.
func stubPrompts(t *testing.T, answer func(p survey.Prompt, response interface{}) error) *int {
	t.Helper()
	asked := 0
	old := askOne
	askOne = func(p survey.Prompt, response interface{}, _ ...survey.AskOpt) error {
		asked++
		return answer(p, response)
	}
	t.Cleanup(func() { askOne = old })
	return &asked
}

func confirmWith(answer bool) func(survey.Prompt, interface{}) error {
	return func(p survey.Prompt, response interface{}) error {
		if _, ok := p.(*survey.Confirm); !ok {
			return stderrors.New("unexpected prompt")
		}
		*response.(*bool) = answer
		return nil
	}
}

func decodeItemIDs(t *testing.T, body string) model.ItemIDs {
	t.Helper()
	var ids model.ItemIDs
	if err := json.Unmarshal([]byte(body), &ids); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	sort.Strings(ids.ItemIDs)
	return ids
}

func TestCLI_ItemsTransferSendsEveryID(t *testing.T) {
	tests := []struct {
		verb     string
		method   string
		path     string
		wantText string
	}{
		{"move", http.MethodPut, "/api/items/move", "3 item(s) moved to group g2"},
		{"copy", http.MethodPost, "/api/items/copy", "3 item(s) copied to group g2"},
	}
	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			srv := newCLIServer(t, nil)
			out, err := runCLI(t, srv, "items", tt.verb, "i1", "i2", "i3", "--to", "g2")
			if err != nil {
				t.Fatalf("items %s: %v", tt.verb, err)
			}

			writes := srv.writes()
			if len(writes) != 1 || writes[0].method != tt.method || writes[0].path != tt.path {
				t.Fatalf("writes = %+v, want one %s %s", writes, tt.method, tt.path)
			}
			ids := decodeItemIDs(t, writes[0].body)
			if strings.Join(ids.ItemIDs, ",") != "i1,i2,i3" || ids.TargetGroupID != "g2" {
				t.Errorf("body = %+v, want i1,i2,i3 to g2", ids)
			}
			if !strings.Contains(out, tt.wantText) {
				t.Errorf("output %q missing %q", out, tt.wantText)
			}
		})
	}
}

func TestCLI_ItemsMoveRequiresTarget(t *testing.T) {
	srv := newCLIServer(t, nil)
	_, err := runCLI(t, srv, "items", "move", "i1")
	if err == nil || !strings.Contains(err.Error(), `"to"`) {
		t.Fatalf("err = %v, want required flag \"to\"", err)
	}
	if n := srv.callCount(); n != 0 {
		t.Errorf("%d requests sent without a target", n)
	}
}

func TestCLI_DeleteConfirmation(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		answer     bool
		wantAsked  int
		wantWrites int
	}{
		{"yes flag skips the prompt", []string{"items", "delete", "i1", "i2", "--yes"}, false, 0, 1},
		{"confirmed", []string{"items", "delete", "i1", "i2"}, true, 1, 1},
		{"declined", []string{"items", "delete", "i1", "i2"}, false, 1, 0},
		{"chat declined", []string{"chats", "delete", "ch1"}, false, 1, 0},
		{"reply confirmed", []string{"chats", "unreply", "ch1", "r1"}, true, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCLIServer(t, nil)
			asked := stubPrompts(t, confirmWith(tt.answer))

			if _, err := runCLI(t, srv, tt.args...); err != nil {
				t.Fatalf("run: %v", err)
			}
			if *asked != tt.wantAsked {
				t.Errorf("prompts = %d, want %d", *asked, tt.wantAsked)
			}
			if got := len(srv.writes()); got != tt.wantWrites {
				t.Errorf("writes = %d, want %d", got, tt.wantWrites)
			}
		})
	}
}

func TestCLI_ItemsDeleteUsesBulkBody(t *testing.T) {
	srv := newCLIServer(t, nil)
	out, err := runCLI(t, srv, "items", "delete", "i3", "i1", "-y")
	if err != nil {
		t.Fatalf("items delete: %v", err)
	}
	writes := srv.writes()
	if len(writes) != 1 || writes[0].method != http.MethodDelete || writes[0].path != "/api/items" {
		t.Fatalf("writes = %+v", writes)
	}
	if ids := decodeItemIDs(t, writes[0].body); strings.Join(ids.ItemIDs, ",") != "i1,i3" {
		t.Errorf("deleted = %v", ids.ItemIDs)
	}
	if !strings.Contains(out, "Deleted 2 item(s)") {
		t.Errorf("output = %q", out)
	}
}

var groupResponses = map[string]string{
	"GET /api/groups/board/b1": `[{"id":"g1","boardId":"b1","name":"Abril","color":"#266DD3"},{"id":"g2","boardId":"b1","name":"Mayo","color":"#04724D"}]`,
	"GET /api/boards":          `[{"id":"b1","name":"Ventas","workspaceId":"w1"},{"id":"b2","name":"Compras","workspaceId":"w1"}]`,
}

func TestCLI_GroupsMovePromptsForTarget(t *testing.T) {
	srv := newCLIServer(t, groupResponses)
	var offered []string
	stubPrompts(t, func(p survey.Prompt, response interface{}) error {
		sel, ok := p.(*survey.Select)
		if !ok {
			return stderrors.New("expected a select prompt")
		}
		offered = sel.Options
		*response.(*string) = sel.Options[0]
		return nil
	})

	out, err := runCLI(t, srv, "groups", "move", "b1", "g1")
	if err != nil {
		t.Fatalf("groups move: %v", err)
	}
	if len(offered) != 1 || offered[0] != "Compras (b2)" {
		t.Errorf("offered %v, want only the other board", offered)
	}

	writes := srv.writes()
	if len(writes) != 1 || writes[0].method != http.MethodPut || writes[0].path != "/api/groups/g1/move" {
		t.Fatalf("writes = %+v", writes)
	}
	if !strings.Contains(writes[0].body, `"targetBoardId":"b2"`) {
		t.Errorf("body = %s", writes[0].body)
	}
	if !strings.Contains(out, "Group g1 moved to board b2") {
		t.Errorf("output = %q", out)
	}
}

func TestCLI_GroupsCopyWithTargetFlag(t *testing.T) {
	srv := newCLIServer(t, groupResponses)
	asked := stubPrompts(t, func(survey.Prompt, interface{}) error { return nil })

	if _, err := runCLI(t, srv, "groups", "copy", "b1", "g2", "--to", "b9"); err != nil {
		t.Fatalf("groups copy: %v", err)
	}
	if *asked != 0 {
		t.Error("--to should skip the prompt")
	}
	writes := srv.writes()
	if len(writes) != 1 || writes[0].method != http.MethodPost || writes[0].path != "/api/groups/g2/copy" {
		t.Fatalf("writes = %+v", writes)
	}
}

func TestCLI_ColumnsResize(t *testing.T) {
	responses := map[string]string{
		"GET /api/columns/board/b1": `[{"id":"c1","boardId":"b1","name":"Estado","type":"status","position":0,"columnWidth":150}]`,
	}
	tests := []struct {
		name      string
		width     string
		wantValid bool
		wantCalls int
	}{
		{"not a number", "wide", false, 0},
		{"below minimum", "50", false, 1},
		{"valid", "180", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCLIServer(t, responses)
			out, err := runCLI(t, srv, "columns", "resize", "b1", "c1", tt.width)

			if tt.wantValid {
				if err != nil {
					t.Fatalf("resize: %v", err)
				}
				if !strings.Contains(out, "180") {
					t.Errorf("table should show the new width: %q", out)
				}
			} else if !stderrors.Is(err, errors.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			if n := srv.callCount(); n != tt.wantCalls {
				t.Errorf("requests = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}

var searchResponses = map[string]string{
	"GET /api/searcher": `{
		"workspaces": [{"id":"w1","name":"Finanzas"}],
		"boards": [{"id":"b1","workspaceId":"w1","name":"Ventas"}],
		"groups": [{"id":"g1","boardId":"b1","name":"Abril"}],
		"items": [{"id":"i42","groupId":"g1","name":"Factura 42"}]
	}`,
}

func stubStartBoard(t *testing.T) *[]model.Route {
	t.Helper()
	var routes []model.Route
	old := startBoard
	startBoard = func(_ context.Context, _ usercfg.Config, _ boardClient, route model.Route) error {
		routes = append(routes, route)
		return nil
	}
	t.Cleanup(func() { startBoard = old })
	return &routes
}

func TestCLI_SearchOpen(t *testing.T) {
	tests := []struct {
		open    string
		want    model.Route
		wantErr error
	}{
		{"item:i42", model.Route{BoardID: "b1", GroupID: "g1", SearchItemID: "i42"}, nil},
		{"group:g1", model.Route{BoardID: "b1", GroupID: "g1"}, nil},
		{"board:b1", model.Route{BoardID: "b1"}, nil},
		{"item:missing", model.Route{}, errors.ErrNotFound},
		{"i42", model.Route{}, errors.ErrValidation},
		{"workspace:w1", model.Route{}, errors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.open, func(t *testing.T) {
			srv := newCLIServer(t, searchResponses)
			routes := stubStartBoard(t)

			_, err := runCLI(t, srv, "search", "factura", "--open", tt.open)
			if tt.wantErr != nil {
				if !stderrors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if len(*routes) != 0 {
					t.Error("board view should not start on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(*routes) != 1 || (*routes)[0] != tt.want {
				t.Errorf("routes = %+v, want %+v", *routes, tt.want)
			}
		})
	}
}

func TestCLI_SearchPrintsResults(t *testing.T) {
	srv := newCLIServer(t, searchResponses)
	routes := stubStartBoard(t)

	out, err := runCLI(t, srv, "search", "factura")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "Factura 42") || !strings.Contains(out, "i42") {
		t.Errorf("output missing the item hit: %q", out)
	}
	if len(*routes) != 0 {
		t.Error("plain search should not open the board view")
	}
}

func TestCLI_ValuesList(t *testing.T) {
	srv := newCLIServer(t, map[string]string{
		"GET /api/tableValues/status/board/b1": `[{"columnId":"c1","columnName":"Estado","values":[{"id":"tv1","columnId":"c1","value":"Pagado"}]}]`,
	})
	out, err := runCLI(t, srv, "values", "list", "b1")
	if err != nil {
		t.Fatalf("values list: %v", err)
	}
	for _, want := range []string{"Estado", "tv1", "Pagado"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}
