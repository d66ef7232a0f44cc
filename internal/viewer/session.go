package viewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/errors"
	"github.com/hpungsan/binder/internal/tcgapi"
)

// View is which display the last search result selects.
type View string

const (
	ViewEmpty      View = "empty"      // nothing to show
	ViewCandidates View = "candidates" // pick one of several cards
	ViewResolved   View = "resolved"   // one card in detail
)

// ViewFor maps a search result to its view. It depends on cardinality only.
func ViewFor(cards []card.Card) View {
	switch len(cards) {
	case 0:
		return ViewEmpty
	case 1:
		return ViewResolved
	default:
		return ViewCandidates
	}
}

// Notice is a one-off message attached to a transition, e.g. a failed search.
type Notice struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// State is a snapshot of a session.
type State struct {
	View       View        `json:"view"`
	Query      string      `json:"query,omitempty"`
	Candidates []card.Card `json:"candidates,omitempty"`
	Selected   *card.Card  `json:"selected,omitempty"`
	Notice     *Notice     `json:"notice,omitempty"`
	Pending    bool        `json:"pending"`
	Generation uint64      `json:"generation"`
}

// Searcher runs a query. *tcgapi.Executor satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]card.Card, error)
}

// Ticket identifies one search. Only the ticket of the current generation
// may change the session when its result arrives.
type Ticket struct {
	gen    uint64
	query  string
	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled as soon as a newer action supersedes the ticket.
func (t *Ticket) Context() context.Context { return t.ctx }

// Session is the selection state of one viewer. Safe for concurrent use.
type Session struct {
	id       string
	searcher Searcher
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	gen      uint64
	cancel   context.CancelFunc
	lastSeen time.Time
}

// NewSession creates a session in the Empty state.
func NewSession(id string, searcher Searcher, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:       id,
		searcher: searcher,
		logger:   logger,
		state:    State{View: ViewEmpty},
		lastSeen: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Search runs query and applies its result if no newer action happened in
// the meantime. The state does not change while the search is in flight.
//
// A search miss moves the session to Empty with a notice and is also
// returned. A superseded search returns the newer state with SUPERSEDED.
// Invalid queries and caller cancellation leave the state untouched.
func (s *Session) Search(ctx context.Context, query string) (State, error) {
	// A query the executor would refuse must not cancel the search in flight
	if _, err := tcgapi.NormalizeQuery(query); err != nil {
		return s.State(), err
	}
	t := s.Begin(ctx, query)
	cards, err := s.searcher.Search(t.Context(), query)
	return s.Apply(t, cards, err)
}

// Begin starts a new generation, cancelling whatever search was in flight.
func (s *Session) Begin(ctx context.Context, query string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersede()
	searchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Pending = true
	s.lastSeen = time.Now()

	return &Ticket{gen: s.gen, query: query, ctx: searchCtx, cancel: cancel}
}

// Apply transitions the session with the outcome of t's search.
func (s *Session) Apply(t *Ticket, cards []card.Card, err error) (State, error) {
	defer t.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.gen != s.gen {
		s.logger.Debug("stale search result dropped",
			zap.String("session", s.id),
			zap.String("query", t.query),
			zap.Uint64("ticket", t.gen),
			zap.Uint64("generation", s.gen))
		return s.snapshot(), errors.NewSuperseded(t.query)
	}

	s.cancel = nil
	s.state.Pending = false

	if t.ctx.Err() != nil {
		// Caller gave up; the prior state stands.
		if err == nil {
			err = errors.NewServiceUnavailable(t.query, t.ctx.Err())
		}
		return s.snapshot(), err
	}

	if err != nil {
		if !errors.IsSearchMiss(err) {
			return s.snapshot(), err
		}
		s.logger.Info("search failed", zap.String("query", t.query), zap.Error(err))
		s.state = State{
			View:       ViewEmpty,
			Query:      t.query,
			Notice:     noticeFor(err),
			Generation: s.gen,
		}
		return s.snapshot(), err
	}

	s.resolve(t.query, cards)
	return s.snapshot(), nil
}

// Pick resolves the candidate at index.
func (s *Session) Pick(index int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.View != ViewCandidates {
		return s.snapshot(), errors.NewInvalidRequest("there are no candidates to pick from")
	}
	if index < 0 || index >= len(s.state.Candidates) {
		return s.snapshot(), errors.NewInvalidRequest(fmt.Sprintf("index %d out of range [0, %d)", index, len(s.state.Candidates)))
	}
	s.pick(s.state.Candidates[index])
	return s.snapshot(), nil
}

// PickID resolves the candidate with the given card ID.
func (s *Session) PickID(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.View != ViewCandidates {
		return s.snapshot(), errors.NewInvalidRequest("there are no candidates to pick from")
	}
	i := card.IndexByID(s.state.Candidates, id)
	if i < 0 {
		return s.snapshot(), errors.NewInvalidRequest(fmt.Sprintf("card %q is not among the candidates", id))
	}
	s.pick(s.state.Candidates[i])
	return s.snapshot(), nil
}

// DismissNotice clears the current notice, if any.
func (s *Session) DismissNotice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Notice = nil
}

// Reset returns the session to Empty and cancels any search in flight.
func (s *Session) Reset() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersede()
	s.state = State{View: ViewEmpty, Generation: s.gen}
	return s.snapshot()
}

// Close cancels any search in flight.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersede()
	s.state.Pending = false
}

// supersede bumps the generation and cancels the in-flight search.
// Caller holds s.mu.
func (s *Session) supersede() {
	s.gen++
	s.state.Generation = s.gen
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) pick(c card.Card) {
	s.supersede()
	s.state = State{
		View:       ViewResolved,
		Query:      s.state.Query,
		Selected:   &c,
		Generation: s.gen,
	}
	s.lastSeen = time.Now()
}

func (s *Session) resolve(query string, cards []card.Card) {
	next := State{View: ViewFor(cards), Query: query, Generation: s.gen}
	switch next.View {
	case ViewEmpty:
		next.Notice = &Notice{
			Code:    errors.ErrNotFound,
			Message: fmt.Sprintf("No cards found for %q.", query),
		}
	case ViewResolved:
		c := cards[0]
		next.Selected = &c
	case ViewCandidates:
		next.Candidates = append([]card.Card(nil), cards...)
	}
	s.state = next
}

func (s *Session) snapshot() State {
	out := s.state
	if s.state.Candidates != nil {
		out.Candidates = append([]card.Card(nil), s.state.Candidates...)
	}
	if s.state.Selected != nil {
		c := *s.state.Selected
		out.Selected = &c
	}
	if s.state.Notice != nil {
		n := *s.state.Notice
		out.Notice = &n
	}
	return out
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func noticeFor(err error) *Notice {
	if errors.Is(err, errors.ErrServiceUnavailable) {
		return &Notice{
			Code:    errors.ErrServiceUnavailable,
			Message: "The card service could not be reached. Try again.",
		}
	}
	return &Notice{Code: errors.ErrNotFound, Message: "Card not found."}
}
