package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tablero/internal/errors"
	"tablero/internal/httputil"
	"tablero/internal/model"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   string
}

// newRecordingServer answers every request with the canned response for
// "METHOD path", or 404.
func newRecordingServer(t *testing.T, responses map[string]string) (*Client, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var seen []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		mu.Unlock()

		resp, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(resp))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL+"/api/", httputil.NewRetryableClient(5*time.Second, 0))
	return client, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		out := make([]recordedRequest, len(seen))
		copy(out, seen)
		return out
	}
}

func TestClient_BoardReads(t *testing.T) {
	client, _ := newRecordingServer(t, map[string]string{
		"GET /api/boards":                      `[{"id":"b1","name":"Ventas","workspaceId":"w1"}]`,
		"GET /api/boards/b1":                   `{"id":"b1","name":"Ventas","workspaceId":"w1","description":null,"hasTimeline":true}`,
		"GET /api/boards/cobranza":             `{"id":"cb","name":"Cobranza","workspaceId":"w2"}`,
		"GET /api/columns/board/b1":            `[{"id":"c1","boardId":"b1","name":"Estado","type":"status","settings":null,"position":0,"columnWidth":180}]`,
		"GET /api/groups/board/b1":             `[{"id":"g1","boardId":"b1","name":"Q1","color":"#266DD3","position":0}]`,
		"GET /api/groups/g1":                   `{"id":"g1","boardId":"b1","name":"Q1","color":"#266DD3","position":0,"items":[{"id":"i1","groupId":"g1","name":"Factura","position":0,"values":[],"chats":[]}]}`,
		"GET /api/tableValues/status/board/b1": `[{"columnId":"c1","columnName":"Estado","values":[{"id":"1","itemId":"","columnId":"c1","value":"Listo"}]}]`,
	})
	ctx := context.Background()

	boards, err := client.ListBoards(ctx)
	if err != nil || len(boards) != 1 || boards[0].Name != "Ventas" {
		t.Fatalf("ListBoards = %+v, %v", boards, err)
	}

	board, err := client.GetBoard(ctx, "b1")
	if err != nil || !board.HasTimeline || board.Description != nil {
		t.Fatalf("GetBoard = %+v, %v", board, err)
	}

	cobranza, err := client.GetCobranzaBoard(ctx)
	if err != nil || cobranza.ID != "cb" {
		t.Fatalf("GetCobranzaBoard = %+v, %v", cobranza, err)
	}

	columns, err := client.ListColumns(ctx, "b1")
	if err != nil || len(columns) != 1 || columns[0].Type != model.ColumnStatus || columns[0].ColumnWidth != 180 {
		t.Fatalf("ListColumns = %+v, %v", columns, err)
	}

	groups, err := client.ListGroups(ctx, "b1")
	if err != nil || len(groups) != 1 || groups[0].Color != "#266DD3" {
		t.Fatalf("ListGroups = %+v, %v", groups, err)
	}

	detail, err := client.GetGroup(ctx, "g1")
	if err != nil || detail.Name != "Q1" || len(detail.Items) != 1 || detail.Items[0].Name != "Factura" {
		t.Fatalf("GetGroup = %+v, %v", detail, err)
	}

	values, err := client.StatusTableValues(ctx, "b1")
	if err != nil || len(values) != 1 || values[0].Values[0].Value != "Listo" {
		t.Fatalf("StatusTableValues = %+v, %v", values, err)
	}
}

func TestClient_ItemBulkEndpoints(t *testing.T) {
	client, requests := newRecordingServer(t, map[string]string{
		"DELETE /api/items":   ``,
		"PUT /api/items/move": `{}`,
		"POST /api/items/copy": `{}`,
	})
	ctx := context.Background()

	if err := client.DeleteItems(ctx, []string{"i1", "i2"}); err != nil {
		t.Fatalf("DeleteItems: %v", err)
	}
	if err := client.MoveItems(ctx, []string{"i3"}, "g2"); err != nil {
		t.Fatalf("MoveItems: %v", err)
	}
	if err := client.CopyItems(ctx, []string{"i4"}, "g3"); err != nil {
		t.Fatalf("CopyItems: %v", err)
	}

	got := requests()
	want := []struct {
		method, path string
		body         model.ItemIDs
	}{
		{"DELETE", "/api/items", model.ItemIDs{ItemIDs: []string{"i1", "i2"}}},
		{"PUT", "/api/items/move", model.ItemIDs{ItemIDs: []string{"i3"}, TargetGroupID: "g2"}},
		{"POST", "/api/items/copy", model.ItemIDs{ItemIDs: []string{"i4"}, TargetGroupID: "g3"}},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].method != w.method || got[i].path != w.path {
			t.Errorf("request %d = %s %s, want %s %s", i, got[i].method, got[i].path, w.method, w.path)
		}
		var body model.ItemIDs
		if err := json.Unmarshal([]byte(got[i].body), &body); err != nil {
			t.Fatalf("request %d body %q: %v", i, got[i].body, err)
		}
		if len(body.ItemIDs) != len(w.body.ItemIDs) || body.TargetGroupID != w.body.TargetGroupID {
			t.Errorf("request %d body = %+v, want %+v", i, body, w.body)
		}
	}
}

func TestClient_ColumnAndGroupWrites(t *testing.T) {
	client, requests := newRecordingServer(t, map[string]string{
		"PUT /api/columns/c1":     ``,
		"DELETE /api/columns/c1":  ``,
		"POST /api/groups":        `{"id":"g9","boardId":"b1","name":"Nuevo","color":"#04724D","position":3}`,
		"PUT /api/groups/g9":      ``,
		"PUT /api/groups/g9/move": ``,
		"POST /api/groups/g9/copy": ``,
		"DELETE /api/groups/g9":   ``,
	})
	ctx := context.Background()

	width := 240
	if err := client.UpdateColumn(ctx, "c1", model.ColumnUpdate{ColumnWidth: &width}); err != nil {
		t.Fatalf("UpdateColumn: %v", err)
	}
	if err := client.DeleteColumn(ctx, "c1"); err != nil {
		t.Fatalf("DeleteColumn: %v", err)
	}
	created, err := client.CreateGroup(ctx, model.NewGroup{BoardID: "b1", Name: "Nuevo", Color: "#04724D"})
	if err != nil || created.ID != "g9" {
		t.Fatalf("CreateGroup = %+v, %v", created, err)
	}
	if err := client.UpdateGroup(ctx, "g9", "Renombrado", "#D7263D"); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	if err := client.MoveGroup(ctx, "g9", "b2"); err != nil {
		t.Fatalf("MoveGroup: %v", err)
	}
	if err := client.CopyGroup(ctx, "g9", "b3"); err != nil {
		t.Fatalf("CopyGroup: %v", err)
	}
	if err := client.DeleteGroup(ctx, "g9"); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	got := requests()
	if got[0].body != `{"columnWidth":240}` {
		t.Errorf("column PUT body = %s", got[0].body)
	}
	if got[4].body != `{"targetBoardId":"b2"}` {
		t.Errorf("group move body = %s", got[4].body)
	}
}

func TestClient_SubitemsMapping(t *testing.T) {
	client, _ := newRecordingServer(t, map[string]string{
		"GET /api/subitems/parent/i1": `[{"id":"s1","itemParent":"i1","name":"child","values":[{"id":"v1","itemId":null,"columnId":"c1","value":null,"columnType":"text"}]}]`,
		"GET /api/subitems/parent/i2": `{"message":"no subitems"}`,
	})
	ctx := context.Background()

	rows, err := client.Subitems(ctx, "i1")
	if err != nil {
		t.Fatalf("Subitems: %v", err)
	}
	if len(rows) != 1 || rows[0].Values[0].ItemID != "s1" {
		t.Errorf("unexpected rows %+v", rows)
	}

	rows, err = client.Subitems(ctx, "i2")
	if err != nil || len(rows) != 0 {
		t.Errorf("non-array body should give empty rows, got %+v, %v", rows, err)
	}
}

func TestClient_ChatsAndSearch(t *testing.T) {
	client, requests := newRecordingServer(t, map[string]string{
		"POST /api/chats":              `{"id":"ch1","itemId":"i1","htmlContent":"<p>hola</p>","createdBy":"ana","createdAt":"2024-01-02T10:00:00Z","updatedAt":null,"replies":[]}`,
		"PUT /api/chats/ch1":           `{"id":"ch1","itemId":"i1","htmlContent":"<p>editado</p>","createdBy":"ana","createdAt":"2024-01-02T10:00:00Z","replies":[]}`,
		"POST /api/chats/ch1/replies":  `{"id":"r1","chatId":"ch1","htmlContent":"ok","createdBy":"luis","createdAt":"2024-01-02T11:00:00Z"}`,
		"DELETE /api/chats/ch1/replies/r1": ``,
		"DELETE /api/chats/ch1":        ``,
		"GET /api/searcher":            `{"workspaces":[],"boards":[{"id":"b1","workspaceId":"w1","name":"Ventas"}],"groups":[],"items":[]}`,
	})
	ctx := context.Background()

	chat, err := client.CreateChat(ctx, model.CreateChatRequest{ItemID: "i1", Message: "<p>hola</p>"})
	if err != nil || chat.ID != "ch1" {
		t.Fatalf("CreateChat = %+v, %v", chat, err)
	}
	chat, err = client.UpdateChat(ctx, "ch1", model.UpdateChatRequest{Message: "<p>editado</p>"})
	if err != nil || chat.HTMLContent != "<p>editado</p>" {
		t.Fatalf("UpdateChat = %+v, %v", chat, err)
	}
	reply, err := client.CreateReply(ctx, model.CreateReplyRequest{ChatID: "ch1", HTMLContent: "ok"})
	if err != nil || reply.ID != "r1" {
		t.Fatalf("CreateReply = %+v, %v", reply, err)
	}
	if err := client.DeleteReply(ctx, "ch1", "r1"); err != nil {
		t.Fatalf("DeleteReply: %v", err)
	}
	if err := client.DeleteChat(ctx, "ch1"); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}

	resp, err := client.Search(ctx, "ventas 2024")
	if err != nil || len(resp.Boards) != 1 {
		t.Fatalf("Search = %+v, %v", resp, err)
	}

	got := requests()
	if got[2].body != `{"htmlContent":"ok"}` {
		t.Errorf("reply body = %s", got[2].body)
	}
	if got[5].query != "query=ventas+2024" {
		t.Errorf("search query = %q", got[5].query)
	}
}

func TestClient_HTTPErrorsAreUserErrors(t *testing.T) {
	client, _ := newRecordingServer(t, map[string]string{})

	_, err := client.GetGroup(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_GetGroupLargeFlushedBody(t *testing.T) {
	const n = 10000
	detail := model.GroupDetail{Group: model.Group{ID: "g1", BoardID: "b1", Name: "Abril"}}
	for i := 0; i < n; i++ {
		detail.Items = append(detail.Items, model.Item{
			ID:      "i1",
			GroupID: "g1",
			Name:    "Factura pendiente de cobro con un nombre largo para engordar la respuesta",
			Values:  []model.Value{{ID: "v", ColumnID: "c1", Value: "tv1"}},
		})
	}
	payload, err := json.Marshal(detail)
	if err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		half := len(payload) / 2
		w.Write(payload[:half])
		w.(http.Flusher).Flush()
		time.Sleep(50 * time.Millisecond)
		w.Write(payload[half:])
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL+"/api", httputil.NewRetryableClient(5*time.Second, 0))
	got, err := client.GetGroup(context.Background(), "g1")
	if err != nil {
		t.Fatalf("GetGroup with a %d byte body: %v", len(payload), err)
	}
	if len(got.Items) != n {
		t.Errorf("items = %d, want %d", len(got.Items), n)
	}
}
