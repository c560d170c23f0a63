package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/models"
)

// FetchFunc runs one catalog query against the API.
type FetchFunc func(ctx context.Context, f apiclient.EquipmentFilter) ([]models.EquipmentItem, error)

type Result struct {
	Generation uint64
	Filter     apiclient.EquipmentFilter
	Items      []models.EquipmentItem
	Err        error
}

// Searcher debounces catalog queries. Each Input starts a new generation,
// cancels the query of the previous one and schedules a fetch after the
// quiet period. Only results of the latest generation are delivered.
type Searcher struct {
	fetch FetchFunc
	quiet time.Duration

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	closed  bool
	results chan Result
}

func NewSearcher(fetch FetchFunc, quiet time.Duration) *Searcher {
	return &Searcher{
		fetch:   fetch,
		quiet:   quiet,
		results: make(chan Result, 1),
	}
}

// Results delivers the latest generation's outcome. It is closed by Close.
func (s *Searcher) Results() <-chan Result { return s.results }

// Input records a change of the query. ctx bounds the eventual fetch.
func (s *Searcher) Input(ctx context.Context, f apiclient.EquipmentFilter) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.gen
	}

	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.timer = time.AfterFunc(s.quiet, func() { s.run(fetchCtx, gen, f) })
	return gen
}

func (s *Searcher) run(ctx context.Context, gen uint64, f apiclient.EquipmentFilter) {
	if !s.current(gen) {
		return
	}
	items, err := s.fetch(ctx, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.gen {
		return
	}
	res := Result{Generation: gen, Filter: f, Items: items, Err: err}
	// keep only the newest undelivered result
	select {
	case <-s.results:
	default:
	}
	s.results <- res
}

func (s *Searcher) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.gen
}

// Close stops pending work and closes Results.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	close(s.results)
}
