// Package model holds the board entities exchanged with the board API.
package model

import (
	"fmt"
	"strings"
)

// ColumnType is the kind of values a column holds.
type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnNumber   ColumnType = "number"
	ColumnDate     ColumnType = "date"
	ColumnStatus   ColumnType = "status"
	ColumnTimeline ColumnType = "timeline"
)

// ColumnTypes lists every valid column type in display order.
var ColumnTypes = []ColumnType{ColumnText, ColumnNumber, ColumnDate, ColumnStatus, ColumnTimeline}

// ParseColumnType validates s against the known column types.
func ParseColumnType(s string) (ColumnType, error) {
	t := ColumnType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ColumnTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown column type %q", s)
}

// DefaultColumnWidth is the width given to columns created locally.
const DefaultColumnWidth = 200

type Column struct {
	ID          string     `json:"id"`
	BoardID     string     `json:"boardId"`
	Name        string     `json:"name"`
	Type        ColumnType `json:"type"`
	Settings    *string    `json:"settings"`
	Position    int        `json:"position"`
	ColumnWidth int        `json:"columnWidth"`
}

// NewColumn is a column not yet in the store. Position is optional; nil
// appends.
type NewColumn struct {
	ID       string
	BoardID  string
	Name     string
	Type     ColumnType
	Settings *string
	Position *int
}

// ColumnUpdate is a partial update. Nil fields are left untouched; it is
// also the PUT /columns/{id} body.
type ColumnUpdate struct {
	Name        *string     `json:"name,omitempty"`
	Position    *int        `json:"position,omitempty"`
	ColumnWidth *int        `json:"columnWidth,omitempty"`
	Settings    *string     `json:"settings,omitempty"`
	Type        *ColumnType `json:"type,omitempty"`
	BoardID     *string     `json:"boardId,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u ColumnUpdate) IsEmpty() bool {
	return u.Name == nil && u.Position == nil && u.ColumnWidth == nil &&
		u.Settings == nil && u.Type == nil && u.BoardID == nil
}

// ColumnCreated is the server's answer to creating a status column.
type ColumnCreated struct {
	Column        Column         `json:"column"`
	DefinedValues []DefinedValue `json:"definedValues"`
}

type DefinedValue struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Board struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	WorkspaceID string  `json:"workspaceId"`
	Description *string `json:"description"`
	HasTimeline bool    `json:"hasTimeline,omitempty"`
}

type Group struct {
	ID       string `json:"id"`
	BoardID  string `json:"boardId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
}

// NewGroup is the POST /groups body.
type NewGroup struct {
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
	Color   string `json:"color"`
}

// GroupDetail is a group with its items, values and chats.
type GroupDetail struct {
	Group
	Items []Item `json:"items"`
}

type Item struct {
	ID        string  `json:"id"`
	GroupID   string  `json:"groupId"`
	Name      string  `json:"name"`
	Position  int     `json:"position"`
	ProjectID *string `json:"projectId,omitempty"`
	Values    []Value `json:"values"`
	Chats     []Chat  `json:"chats"`
}

// ValueFor returns the item's value for a column. The API does not enforce
// one value per column, so the first match wins.
func (i Item) ValueFor(columnID string) (Value, bool) {
	for _, v := range i.Values {
		if v.ColumnID == columnID {
			return v, true
		}
	}
	return Value{}, false
}

type Value struct {
	ID         string `json:"id"`
	ItemID     string `json:"itemId"`
	ColumnID   string `json:"columnId"`
	Value      string `json:"value"`
	ColumnType string `json:"columnType"`
}

// SubItemRow is a child row of an item.
type SubItemRow struct {
	ID         string  `json:"id"`
	ItemParent string  `json:"itemParent"`
	Name       string  `json:"name"`
	Values     []Value `json:"values"`
}

// SubItemDTO is the wire shape of GET /subitems/parent/{id}; value fields
// may be null.
type SubItemDTO struct {
	ID         string            `json:"id"`
	ItemParent string            `json:"itemParent"`
	Name       string            `json:"name"`
	Values     []SubItemValueDTO `json:"values"`
}

type SubItemValueDTO struct {
	ID         string  `json:"id"`
	ItemID     *string `json:"itemId"`
	ColumnID   string  `json:"columnId"`
	Value      *string `json:"value"`
	ColumnType string  `json:"columnType"`
}

// Row maps the DTO, defaulting a missing itemId to the subitem and a
// missing value to "".
func (d SubItemDTO) Row() SubItemRow {
	values := make([]Value, 0, len(d.Values))
	for _, v := range d.Values {
		itemID := d.ID
		if v.ItemID != nil {
			itemID = *v.ItemID
		}
		value := ""
		if v.Value != nil {
			value = *v.Value
		}
		values = append(values, Value{
			ID:         v.ID,
			ItemID:     itemID,
			ColumnID:   v.ColumnID,
			Value:      value,
			ColumnType: v.ColumnType,
		})
	}
	return SubItemRow{ID: d.ID, ItemParent: d.ItemParent, Name: d.Name, Values: values}
}

type TableValue struct {
	ID       string `json:"id"`
	ItemID   string `json:"itemId"`
	ColumnID string `json:"columnId"`
	Value    string `json:"value"`
}

// TableValuesByColumn lists the allowed status values of one column.
type TableValuesByColumn struct {
	ColumnID   string       `json:"columnId"`
	ColumnName string       `json:"columnName"`
	Values     []TableValue `json:"values"`
}

// ItemIDs is the body of the bulk item endpoints.
type ItemIDs struct {
	ItemIDs       []string `json:"itemIds"`
	TargetGroupID string   `json:"targetGroupId,omitempty"`
}

// Route is a deep link into a board: the board id path parameter plus the
// groupId and searchItemId query parameters.
type Route struct {
	BoardID      string
	GroupID      string
	SearchItemID string
}

// GroupPalette is the fixed set of colors offered for groups.
var GroupPalette = []string{
	"#266DD3",
	"#0E1C36",
	"#04724D",
	"#FF8C42",
	"#D7263D",
	"#003459",
	"#2B061E",
	"#EF2917",
	"#F786AA",
	"#20063B",
	"#2A3C24",
	"#CAD593",
	"#FFF8E8",
	"#BCCDDC",
}
