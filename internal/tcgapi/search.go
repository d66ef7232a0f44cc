package tcgapi

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/errors"
)

// MaxQueryLength bounds the raw query a user may submit.
const MaxQueryLength = 100

// QueryKind is how a query is looked up.
type QueryKind string

const (
	QueryCode QueryKind = "code" // exact card code, e.g. "base1-4"
	QueryName QueryKind = "name" // free-text name fragment
)

// Classify decides the lookup strategy: anything containing a hyphen is a
// card code, everything else is a name. Names that contain a hyphen
// ("Ho-Oh") therefore resolve as codes.
func Classify(query string) QueryKind {
	if strings.Contains(query, "-") {
		return QueryCode
	}
	return QueryName
}

// NormalizeQuery trims query and rejects what Search would refuse: an empty
// query or one longer than MaxQueryLength runes.
func NormalizeQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", errors.NewInvalidRequest("query is required")
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return "", errors.NewInvalidRequest(fmt.Sprintf("query exceeds maximum length of %d characters", MaxQueryLength))
	}
	return q, nil
}

// Lookup is the card service contract the executor depends on.
// *Client satisfies it.
type Lookup interface {
	FindByCode(ctx context.Context, code string) ([]card.Card, error)
	SearchByName(ctx context.Context, name string) ([]card.Card, error)
}

// Executor classifies queries, issues one lookup per query and returns a
// normalized card list. Every failure it returns is a *errors.BinderError.
type Executor struct {
	lookup Lookup
	group  singleflight.Group
	logger *zap.Logger

	mu      sync.Mutex
	flights map[string]*flight
	seq     uint64
}

// flight is one shared lookup. Its context is cancelled once every caller
// waiting on it has gone.
type flight struct {
	base    string
	key     string
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewExecutor creates an Executor over lookup.
func NewExecutor(lookup Lookup, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{lookup: lookup, logger: logger, flights: make(map[string]*flight)}
}

// Search runs query against the card service.
//
// Code queries yield exactly one card or NOT_FOUND. Name queries yield zero
// or more cards ranked by similarity to the query. Transport failures and
// unexpected responses yield SERVICE_UNAVAILABLE. There are no retries.
//
// Identical concurrent queries share one request. A caller whose ctx ends
// first gets SERVICE_UNAVAILABLE while the shared request carries on for the
// others; when the last caller leaves, the request itself is cancelled.
func (e *Executor) Search(ctx context.Context, query string) ([]card.Card, error) {
	q, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}

	kind := Classify(q)
	f := e.join(ctx, string(kind)+":"+q)
	defer e.leave(f)

	ch := e.group.DoChan(f.key, func() (any, error) {
		return e.run(f.ctx, kind, q)
	})

	select {
	case <-ctx.Done():
		return nil, errors.NewServiceUnavailable(q, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		cards := res.Val.([]card.Card)
		// Callers sharing a result must not share its backing array
		out := make([]card.Card, len(cards))
		copy(out, cards)
		return out, nil
	}
}

// join registers a caller on the flight for base, starting one if none is
// live. A new flight gets a fresh singleflight key so it never attaches to a
// cancelled request that has not returned yet.
func (e *Executor) join(ctx context.Context, base string) *flight {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.flights[base]
	if !ok {
		e.seq++
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{base: base, key: base + "#" + strconv.FormatUint(e.seq, 10), ctx: fctx, cancel: cancel}
		e.flights[base] = f
	}
	f.waiters++
	return f
}

func (e *Executor) leave(f *flight) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if e.flights[f.base] == f {
		delete(e.flights, f.base)
	}
}

func (e *Executor) run(ctx context.Context, kind QueryKind, q string) ([]card.Card, error) {
	e.logger.Debug("card lookup", zap.String("kind", string(kind)), zap.String("query", q))

	var (
		cards []card.Card
		err   error
	)
	if kind == QueryCode {
		cards, err = e.lookup.FindByCode(ctx, q)
	} else {
		cards, err = e.lookup.SearchByName(ctx, q)
	}
	if err != nil {
		var bErr *errors.BinderError
		if !stderrors.As(err, &bErr) {
			return nil, errors.NewServiceUnavailable(q, err)
		}
		return nil, bErr
	}

	if kind == QueryCode {
		if len(cards) == 0 {
			return nil, errors.NewNotFound(q)
		}
		return cards[:1], nil
	}

	rankByName(q, cards)
	return cards, nil
}

// rankByName orders cards by Jaro-Winkler similarity of their names to the
// query, best first. Ties keep service order.
func rankByName(query string, cards []card.Card) {
	q := card.Normalize(query)
	scores := make(map[string]float64, len(cards))
	for _, c := range cards {
		scores[c.ID] = matchr.JaroWinkler(q, card.Normalize(c.Name), false)
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return scores[cards[i].ID] > scores[cards[j].ID]
	})
}
