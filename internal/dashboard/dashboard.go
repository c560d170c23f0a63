// Package dashboard derives the dashboard counters from fetched collections.
package dashboard

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/pkg/logging"
)

const recentLimit = 5

type Summary struct {
	TotalItems     int
	AvailableItems int
	TotalRequests  int
	ByStatus       map[models.Status]int
	Pending        int
	ActiveLoans    int
	Recent         []models.BorrowRequest

	Profile *models.Profile
}

// Aggregate is a pure function of the two collections.
func Aggregate(items []models.EquipmentItem, reqs []models.BorrowRequest) Summary {
	s := Summary{
		TotalItems:    len(items),
		TotalRequests: len(reqs),
		ByStatus:      make(map[models.Status]int, len(models.Statuses)),
	}
	for _, st := range models.Statuses {
		s.ByStatus[st] = 0
	}
	for _, it := range items {
		if it.AvailableQuantity > 0 {
			s.AvailableItems++
		}
	}
	for _, r := range reqs {
		s.ByStatus[r.Status]++
	}
	s.Pending = s.ByStatus[models.StatusPending]
	s.ActiveLoans = s.ByStatus[models.StatusIssued]
	s.Recent = recent(reqs, recentLimit)
	return s
}

func recent(reqs []models.BorrowRequest, n int) []models.BorrowRequest {
	out := make([]models.BorrowRequest, len(reqs))
	copy(out, reqs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Source is the part of the API client the loader reads from.
type Source interface {
	ListEquipment(ctx context.Context, token string, f apiclient.EquipmentFilter) ([]models.EquipmentItem, error)
	ListRequests(ctx context.Context, token string, status models.Status) ([]models.BorrowRequest, error)
	MyRequests(ctx context.Context, token string) ([]models.BorrowRequest, error)
	Me(ctx context.Context, token string) (*models.Profile, error)
}

// Scope selects whose requests the dashboard counts.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeOwn
)

type Loader struct {
	src Source
}

func NewLoader(src Source) *Loader { return &Loader{src: src} }

// Load fetches equipment, requests and profile concurrently. A failure of
// either collection fails the load; a missing profile does not.
func (l *Loader) Load(ctx context.Context, token string, scope Scope) (*Summary, error) {
	var (
		items   []models.EquipmentItem
		reqs    []models.BorrowRequest
		profile *models.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = l.src.ListEquipment(gctx, token, apiclient.EquipmentFilter{})
		if err != nil {
			return fmt.Errorf("load equipment: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if scope == ScopeOwn {
			reqs, err = l.src.MyRequests(gctx, token)
		} else {
			reqs, err = l.src.ListRequests(gctx, token, "")
		}
		if err != nil {
			return fmt.Errorf("load requests: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := l.src.Me(gctx, token)
		if err != nil {
			logging.FromContext(ctx).Warn("dashboard_profile_failed", "error", err)
			return nil
		}
		profile = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := Aggregate(items, reqs)
	s.Profile = profile
	return &s, nil
}
