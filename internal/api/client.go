// Package api is the typed client for the board REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"tablero/internal/httputil"
	"tablero/internal/logger"
	"tablero/internal/model"
)

// DefaultBaseURL matches the development backend of the web client.
const DefaultBaseURL = "http://localhost:5267/api"

// Client talks JSON to the board API. It holds no board state.
type Client struct {
	baseURL string
	http    *httputil.RetryableClient
}

// NewClient builds a client for baseURL. A nil http client gets the default
// timeout and retry settings.
func NewClient(baseURL string, hc *httputil.RetryableClient) *Client {
	if hc == nil {
		hc = httputil.NewDefaultClient()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	req, err := httputil.NewJSONRequest(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	logger.API("%s %s", method, path)
	return c.http.DoJSONRequest(ctx, req, result)
}

func seg(id string) string { return url.PathEscape(id) }

// Boards

func (c *Client) ListBoards(ctx context.Context) ([]model.Board, error) {
	var boards []model.Board
	if err := c.do(ctx, http.MethodGet, "/boards", nil, &boards); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return boards, nil
}

func (c *Client) GetBoard(ctx context.Context, boardID string) (model.Board, error) {
	var board model.Board
	if err := c.do(ctx, http.MethodGet, "/boards/"+seg(boardID), nil, &board); err != nil {
		return model.Board{}, fmt.Errorf("get board %s: %w", boardID, err)
	}
	return board, nil
}

// GetCobranzaBoard returns the collections board whose status labels are
// shared with other views.
func (c *Client) GetCobranzaBoard(ctx context.Context) (model.Board, error) {
	var board model.Board
	if err := c.do(ctx, http.MethodGet, "/boards/cobranza", nil, &board); err != nil {
		return model.Board{}, fmt.Errorf("get cobranza board: %w", err)
	}
	return board, nil
}

// Columns

func (c *Client) ListColumns(ctx context.Context, boardID string) ([]model.Column, error) {
	var columns []model.Column
	if err := c.do(ctx, http.MethodGet, "/columns/board/"+seg(boardID), nil, &columns); err != nil {
		return nil, fmt.Errorf("list columns of board %s: %w", boardID, err)
	}
	return columns, nil
}

func (c *Client) UpdateColumn(ctx context.Context, columnID string, u model.ColumnUpdate) error {
	if err := c.do(ctx, http.MethodPut, "/columns/"+seg(columnID), u, nil); err != nil {
		return fmt.Errorf("update column %s: %w", columnID, err)
	}
	return nil
}

func (c *Client) DeleteColumn(ctx context.Context, columnID string) error {
	if err := c.do(ctx, http.MethodDelete, "/columns/"+seg(columnID), nil, nil); err != nil {
		return fmt.Errorf("delete column %s: %w", columnID, err)
	}
	return nil
}

// Groups

func (c *Client) ListGroups(ctx context.Context, boardID string) ([]model.Group, error) {
	var groups []model.Group
	if err := c.do(ctx, http.MethodGet, "/groups/board/"+seg(boardID), nil, &groups); err != nil {
		return nil, fmt.Errorf("list groups of board %s: %w", boardID, err)
	}
	return groups, nil
}

func (c *Client) GetGroup(ctx context.Context, groupID string) (model.GroupDetail, error) {
	var detail model.GroupDetail
	if err := c.do(ctx, http.MethodGet, "/groups/"+seg(groupID), nil, &detail); err != nil {
		return model.GroupDetail{}, fmt.Errorf("get group %s: %w", groupID, err)
	}
	return detail, nil
}

func (c *Client) CreateGroup(ctx context.Context, g model.NewGroup) (model.Group, error) {
	var created model.Group
	if err := c.do(ctx, http.MethodPost, "/groups", g, &created); err != nil {
		return model.Group{}, fmt.Errorf("create group: %w", err)
	}
	return created, nil
}

func (c *Client) UpdateGroup(ctx context.Context, groupID, name, color string) error {
	body := map[string]string{"name": name, "color": color}
	if err := c.do(ctx, http.MethodPut, "/groups/"+seg(groupID), body, nil); err != nil {
		return fmt.Errorf("update group %s: %w", groupID, err)
	}
	return nil
}

func (c *Client) DeleteGroup(ctx context.Context, groupID string) error {
	if err := c.do(ctx, http.MethodDelete, "/groups/"+seg(groupID), nil, nil); err != nil {
		return fmt.Errorf("delete group %s: %w", groupID, err)
	}
	return nil
}

func (c *Client) MoveGroup(ctx context.Context, groupID, targetBoardID string) error {
	body := map[string]string{"targetBoardId": targetBoardID}
	if err := c.do(ctx, http.MethodPut, "/groups/"+seg(groupID)+"/move", body, nil); err != nil {
		return fmt.Errorf("move group %s: %w", groupID, err)
	}
	return nil
}

func (c *Client) CopyGroup(ctx context.Context, groupID, targetBoardID string) error {
	body := map[string]string{"targetBoardId": targetBoardID}
	if err := c.do(ctx, http.MethodPost, "/groups/"+seg(groupID)+"/copy", body, nil); err != nil {
		return fmt.Errorf("copy group %s: %w", groupID, err)
	}
	return nil
}

// Table values

func (c *Client) StatusTableValues(ctx context.Context, boardID string) ([]model.TableValuesByColumn, error) {
	var values []model.TableValuesByColumn
	if err := c.do(ctx, http.MethodGet, "/tableValues/status/board/"+seg(boardID), nil, &values); err != nil {
		return nil, fmt.Errorf("list status values of board %s: %w", boardID, err)
	}
	return values, nil
}

func (c *Client) CreateTableValue(ctx context.Context, itemID, columnID, value string) (model.TableValue, error) {
	body := map[string]string{"itemId": itemID, "columnId": columnID, "value": value}
	var created model.TableValue
	if err := c.do(ctx, http.MethodPost, "/tableValues/", body, &created); err != nil {
		return model.TableValue{}, fmt.Errorf("create value for item %s: %w", itemID, err)
	}
	return created, nil
}

func (c *Client) UpdateTableValue(ctx context.Context, valueID, value string) error {
	body := map[string]string{"value": value}
	if err := c.do(ctx, http.MethodPut, "/tableValues/"+seg(valueID), body, nil); err != nil {
		return fmt.Errorf("update value %s: %w", valueID, err)
	}
	return nil
}

// Items

func (c *Client) DeleteItems(ctx context.Context, itemIDs []string) error {
	if err := c.do(ctx, http.MethodDelete, "/items", model.ItemIDs{ItemIDs: itemIDs}, nil); err != nil {
		return fmt.Errorf("delete %d items: %w", len(itemIDs), err)
	}
	return nil
}

func (c *Client) MoveItems(ctx context.Context, itemIDs []string, targetGroupID string) error {
	body := model.ItemIDs{ItemIDs: itemIDs, TargetGroupID: targetGroupID}
	if err := c.do(ctx, http.MethodPut, "/items/move", body, nil); err != nil {
		return fmt.Errorf("move %d items: %w", len(itemIDs), err)
	}
	return nil
}

func (c *Client) CopyItems(ctx context.Context, itemIDs []string, targetGroupID string) error {
	body := model.ItemIDs{ItemIDs: itemIDs, TargetGroupID: targetGroupID}
	if err := c.do(ctx, http.MethodPost, "/items/copy", body, nil); err != nil {
		return fmt.Errorf("copy %d items: %w", len(itemIDs), err)
	}
	return nil
}

// Subitems returns the child rows of an item. A body that is not a JSON
// array is treated as no subitems.
func (c *Client) Subitems(ctx context.Context, itemID string) ([]model.SubItemRow, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/subitems/parent/"+seg(itemID), nil, &raw); err != nil {
		return nil, fmt.Errorf("list subitems of %s: %w", itemID, err)
	}

	rows := []model.SubItemRow{}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		return rows, nil
	}
	var dtos []model.SubItemDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("decode subitems of %s: %w", itemID, err)
	}
	for _, d := range dtos {
		rows = append(rows, d.Row())
	}
	return rows, nil
}

// Search queries workspaces, boards, groups and items by name.
func (c *Client) Search(ctx context.Context, query string) (model.SearchResponse, error) {
	var resp model.SearchResponse
	path := "/searcher?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return model.SearchResponse{}, fmt.Errorf("search %q: %w", query, err)
	}
	return resp, nil
}
