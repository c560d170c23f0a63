package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/equiplend/frontend/internal/apiclient"
	"github.com/equiplend/frontend/internal/events"
	"github.com/equiplend/frontend/internal/models"
	"github.com/equiplend/frontend/pkg/logging"
)

var (
	ErrInFlight     = errors.New("an action for this request is already running")
	ErrNotPermitted = errors.New("action not permitted")
)

// Guard tracks requests with an action in progress so a second click on the
// same request is refused instead of sent.
type Guard struct {
	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewGuard() *Guard {
	return &Guard{inFlight: make(map[int64]struct{})}
}

// Acquire claims id. The returned release must be called when done.
func (g *Guard) Acquire(id int64) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[id]; busy {
		return nil, ErrInFlight
	}
	g.inFlight[id] = struct{}{}
	return func() {
		g.mu.Lock()
		delete(g.inFlight, id)
		g.mu.Unlock()
	}, nil
}

func (g *Guard) Busy(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inFlight[id]
	return busy
}

// API is what the runner needs from the lending API client.
type API interface {
	Transition(ctx context.Context, token string, id int64, action models.Action, reason string) (*models.BorrowRequest, error)
	ListRequests(ctx context.Context, token string, status models.Status) ([]models.BorrowRequest, error)
}

// Actor is who fires the transition.
type Actor struct {
	Token  string
	UserID int64
	Role   models.Role
}

// Runner fires one transition and then re-fetches the full list.
type Runner struct {
	api    API
	guard  *Guard
	events events.Publisher
	now    func() time.Time
}

func NewRunner(api API, guard *Guard, pub events.Publisher) *Runner {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Runner{api: api, guard: guard, events: pub, now: time.Now}
}

// Fire performs action on request id without re-fetching. current is the
// status the view showed; an action the table does not offer for it is
// refused locally. On failure nothing changes.
func (r *Runner) Fire(ctx context.Context, actor Actor, id int64, current models.Status, action models.Action, reason string) (*models.BorrowRequest, error) {
	log := logging.FromContext(ctx).With("request_id", id, "action", action)

	if !Allowed(current, actor.Role, action) {
		return nil, fmt.Errorf("%w: %s on %s request", ErrNotPermitted, action, current)
	}

	release, err := r.guard.Acquire(id)
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := r.api.Transition(ctx, actor.Token, id, action, reason)
	if err != nil {
		log.Warn("transition_failed", "error", err)
		return nil, err
	}

	ev := events.Event{
		Type:        events.TypeForAction(action),
		RequestID:   id,
		EquipmentID: updated.Equipment.ID,
		Status:      updated.Status,
		ActorID:     actor.UserID,
		ActorRole:   actor.Role,
		At:          r.now().UTC(),
	}
	if action == models.ActionReject {
		ev.Reason = reason
		if ev.Reason == "" {
			ev.Reason = apiclient.DefaultRejectReason
		}
	}
	if err := r.events.Publish(ctx, ev); err != nil {
		log.Warn("event_publish_failed", "error", err)
	}
	log.Info("transition_done", "status", updated.Status)
	return updated, nil
}

// Run fires the action and returns the server's fresh list of requests.
func (r *Runner) Run(ctx context.Context, actor Actor, id int64, current models.Status, action models.Action, reason string) ([]models.BorrowRequest, error) {
	if _, err := r.Fire(ctx, actor, id, current, action, reason); err != nil {
		return nil, err
	}
	list, err := r.api.ListRequests(ctx, actor.Token, "")
	if err != nil {
		return nil, fmt.Errorf("refresh requests: %w", err)
	}
	return list, nil
}
