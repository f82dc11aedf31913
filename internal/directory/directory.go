// Package directory lists the boards a user can open, cached on disk and
// ranked by recent use.
package directory

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tablero/internal/cache"
	"tablero/internal/logger"
	"tablero/internal/model"
	"tablero/internal/usercfg"
)

const (
	cacheFile   = "boards_cache.json"
	cacheTTL    = 24 * time.Hour
	concurrency = 3
	// Activity counts are best effort; the listing never waits longer.
	activityBudget = 8 * time.Second
	activityCap    = 50
)

type Lister interface {
	ListBoards(ctx context.Context) ([]model.Board, error)
	ListGroups(ctx context.Context, boardID string) ([]model.Group, error)
}

// Entry is a board plus how many groups it had when it was listed.
type Entry struct {
	model.Board
	Groups int `json:"groups,omitempty"`
}

type Directory struct {
	api  Lister
	path string
}

// New returns a Directory caching at path. An empty path disables the cache.
func New(api Lister, path string) *Directory {
	return &Directory{api: api, path: path}
}

// DefaultPath is the cache file under the config dir.
func DefaultPath() string {
	dir := usercfg.Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, cacheFile)
}

// Boards returns the cached listing, or fetches it when the cache is stale,
// missing, or refresh is set.
func (d *Directory) Boards(ctx context.Context, refresh bool) ([]Entry, error) {
	if !refresh {
		if cached, at, ok := cache.Load[[]Entry](d.path, cacheTTL); ok {
			logger.Debug("boards cache hit (%d boards, %s old)", len(cached), time.Since(at).Round(time.Second))
			return cached, nil
		}
	}

	boards, err := d.api.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	entries := d.withActivity(ctx, boards)
	if err := cache.Save(d.path, entries); err != nil {
		logger.Warn("failed to write boards cache: %v", err)
	}
	return entries, nil
}

// Invalidate drops the cached listing.
func (d *Directory) Invalidate() error {
	return cache.Remove(d.path)
}

func (d *Directory) withActivity(ctx context.Context, boards []model.Board) []Entry {
	entries := make([]Entry, len(boards))
	for i, b := range boards {
		entries[i] = Entry{Board: b}
	}

	ctx, cancel := context.WithTimeout(ctx, activityBudget)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range entries {
		i := i
		g.Go(func() error {
			groups, err := d.api.ListGroups(ctx, entries[i].ID)
			if err != nil {
				logger.Debug("activity for board %s unavailable: %v", entries[i].ID, err)
				return nil
			}
			entries[i].Groups = len(groups)
			return nil
		})
	}
	_ = g.Wait()
	return entries
}

// Rank orders entries by recent use, then activity, then name. A non-empty
// query drops entries whose name does not fuzzy-match it and adds the
// match score.
func Rank(entries []Entry, recent []string, query string) []Entry {
	recency := make(map[string]int, len(recent))
	for i, id := range recent {
		if _, seen := recency[id]; !seen {
			recency[id] = 100 - 10*i
		}
	}

	q := usercfg.NormalizeSearchText(strings.TrimSpace(query))
	type scored struct {
		entry Entry
		score int
	}
	out := make([]scored, 0, len(entries))
	for _, e := range entries {
		score := recency[e.ID]
		if score < 0 {
			score = 0
		}
		score += min(e.Groups, activityCap)
		if q != "" {
			m := usercfg.FuzzyScore(q, usercfg.NormalizeSearchText(e.Name))
			if m < 0 {
				continue
			}
			score += m
		}
		out = append(out, scored{e, score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].entry.Name != out[j].entry.Name {
			return out[i].entry.Name < out[j].entry.Name
		}
		return out[i].entry.ID < out[j].entry.ID
	})

	result := make([]Entry, len(out))
	for i, s := range out {
		result[i] = s.entry
	}
	return result
}
