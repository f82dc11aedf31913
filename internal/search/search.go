// Package search turns search results into board routes and ranks them
// locally for the picker.
package search

import (
	"fmt"
	"sort"

	"tablero/internal/errors"
	"tablero/internal/model"
	"tablero/internal/usercfg"
)

type Kind string

const (
	KindWorkspace Kind = "workspace"
	KindBoard     Kind = "board"
	KindGroup     Kind = "group"
	KindItem      Kind = "item"
)

var kindOrder = map[Kind]int{KindBoard: 0, KindGroup: 1, KindItem: 2, KindWorkspace: 3}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindWorkspace, KindBoard, KindGroup, KindItem:
		return k, nil
	}
	return "", errors.NewValidationError("kind", fmt.Sprintf("must be one of board, group, item (got %q)", s))
}

// Result is one flattened search hit.
type Result struct {
	Kind  Kind
	ID    string
	Name  string
	Score int
}

// Resolve builds the route a search hit navigates to. Groups and items need
// their parent group or board present in the same response.
func Resolve(resp model.SearchResponse, kind Kind, id string) (model.Route, error) {
	switch kind {
	case KindBoard:
		for _, b := range resp.Boards {
			if b.ID == id {
				return model.Route{BoardID: b.ID}, nil
			}
		}
		return model.Route{}, errors.NewNotFoundError("board", id)

	case KindGroup:
		for _, g := range resp.Groups {
			if g.ID == id {
				if g.BoardID == "" {
					return model.Route{}, errors.NewNotFoundError("board of group", id)
				}
				return model.Route{BoardID: g.BoardID, GroupID: g.ID}, nil
			}
		}
		return model.Route{}, errors.NewNotFoundError("group", id)

	case KindItem:
		var item *model.SearchItem
		for i := range resp.Items {
			if resp.Items[i].ID == id {
				item = &resp.Items[i]
				break
			}
		}
		if item == nil {
			return model.Route{}, errors.NewNotFoundError("item", id)
		}
		for _, g := range resp.Groups {
			if g.ID == item.GroupID && g.BoardID != "" {
				return model.Route{BoardID: g.BoardID, GroupID: g.ID, SearchItemID: item.ID}, nil
			}
		}
		return model.Route{}, errors.NewNotFoundError("group of item", id)
	}
	return model.Route{}, errors.NewValidationError("kind", fmt.Sprintf("%s results cannot be opened", kind))
}

// Flatten lists every hit in display order: boards, groups, items, then
// workspaces.
func Flatten(resp model.SearchResponse) []Result {
	out := make([]Result, 0, len(resp.Boards)+len(resp.Groups)+len(resp.Items)+len(resp.Workspaces))
	for _, b := range resp.Boards {
		out = append(out, Result{Kind: KindBoard, ID: b.ID, Name: b.Name})
	}
	for _, g := range resp.Groups {
		out = append(out, Result{Kind: KindGroup, ID: g.ID, Name: g.Name})
	}
	for _, it := range resp.Items {
		out = append(out, Result{Kind: KindItem, ID: it.ID, Name: it.Name})
	}
	for _, w := range resp.Workspaces {
		out = append(out, Result{Kind: KindWorkspace, ID: w.ID, Name: w.Name})
	}
	return out
}

// Filter keeps the hits whose name fuzzy-matches query, best first. An
// empty query keeps everything in display order.
func Filter(resp model.SearchResponse, query string) []Result {
	all := Flatten(resp)
	if query == "" {
		return all
	}
	q := usercfg.NormalizeSearchText(query)
	matched := all[:0]
	for _, r := range all {
		score := usercfg.FuzzyScore(q, usercfg.NormalizeSearchText(r.Name))
		if score < 0 {
			continue
		}
		r.Score = score
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Score != matched[j].Score {
			return matched[i].Score > matched[j].Score
		}
		return kindOrder[matched[i].Kind] < kindOrder[matched[j].Kind]
	})
	return matched
}
