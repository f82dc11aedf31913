// Package cobranza loads the status labels of the collections ("cobranza")
// board, which other boards reuse when rendering payment status.
package cobranza

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"tablero/internal/logger"
	"tablero/internal/model"
)

// LoadErrorMessage is recorded when either request fails.
const LoadErrorMessage = "Error al obtener las etiquetas de estado del tablero de cobranza"

type API interface {
	GetCobranzaBoard(ctx context.Context) (model.Board, error)
	StatusTableValues(ctx context.Context, boardID string) ([]model.TableValuesByColumn, error)
}

// Service holds the cobranza status values. Concurrent loads share one
// request and a successful load is reused until forced or reset.
type Service struct {
	api   API
	group singleflight.Group

	mu      sync.RWMutex
	gen     uint64
	values  []model.TableValuesByColumn
	loaded  bool
	loading bool
	errMsg  string
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// Load fetches the cobranza board and then its status values. Without force
// it is a no-op once a load has succeeded. Callers that arrive while a load is
// in flight share it; each stops waiting when its own ctx is done, and the
// shared request only ends with the client timeout.
func (s *Service) Load(ctx context.Context, force bool) error {
	s.mu.RLock()
	loaded, gen := s.loaded, s.gen
	s.mu.RUnlock()
	if loaded && !force {
		return nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(fmt.Sprintf("cobranza-%d", gen), func() (interface{}, error) {
		return nil, s.fetch(fetchCtx, gen)
	})
	select {
	case res := <-ch:
		if res.Shared {
			logger.Debug("cobranza load shared with an in-flight request")
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) fetch(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	values, err := s.fetchValues(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		logger.Debug("dropping cobranza load superseded by Reset")
		return nil
	}
	s.loading = false
	if err != nil {
		s.values = nil
		s.errMsg = LoadErrorMessage
		logger.Error("%s: %v", LoadErrorMessage, err)
		return err
	}
	s.values = values
	s.loaded = true
	logger.Store("loaded %d cobranza status columns", len(values))
	return nil
}

func (s *Service) fetchValues(ctx context.Context) ([]model.TableValuesByColumn, error) {
	board, err := s.api.GetCobranzaBoard(ctx)
	if err != nil {
		return nil, fmt.Errorf("no fue posible obtener el tablero de cobranza: %w", err)
	}
	values, err := s.api.StatusTableValues(ctx, board.ID)
	if err != nil {
		return nil, fmt.Errorf("no fue posible obtener los estados del tablero de cobranza: %w", err)
	}
	return values, nil
}

func (s *Service) Values() []model.TableValuesByColumn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TableValuesByColumn, len(s.values))
	for i, c := range s.values {
		out[i] = c
		out[i].Values = append([]model.TableValue(nil), c.Values...)
	}
	return out
}

func (s *Service) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the user-facing message of the last failed load, or "".
func (s *Service) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

// Reset forgets loaded values. A load still in flight is discarded.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.values = nil
	s.loaded = false
	s.loading = false
	s.errMsg = ""
}
