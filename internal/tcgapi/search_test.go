package tcgapi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/errors"
)

// fakeLookup records which strategy each query used.
type fakeLookup struct {
	mu        sync.Mutex
	codeCalls []string
	nameCalls []string

	byCode map[string]card.Card
	byName []card.Card
	err    error

	// gate, when set, blocks lookups until closed; entered is signalled first
	gate    chan struct{}
	entered chan struct{}
	calls   atomic.Int32
}

func (f *fakeLookup) wait() {
	f.calls.Add(1)
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		<-f.gate
	}
}

func (f *fakeLookup) FindByCode(_ context.Context, code string) ([]card.Card, error) {
	f.mu.Lock()
	f.codeCalls = append(f.codeCalls, code)
	f.mu.Unlock()
	f.wait()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.byCode[code]
	if !ok {
		return nil, errors.NewNotFound(code)
	}
	return []card.Card{c}, nil
}

func (f *fakeLookup) SearchByName(_ context.Context, name string) ([]card.Card, error) {
	f.mu.Lock()
	f.nameCalls = append(f.nameCalls, name)
	f.mu.Unlock()
	f.wait()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]card.Card, len(f.byName))
	copy(out, f.byName)
	return out, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  QueryKind
	}{
		{"base1-4", QueryCode},
		{"swsh4-43", QueryCode},
		{"pikachu", QueryName},
		{"dark charizard", QueryName},
		{"Ho-Oh", QueryCode},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestSearch_CodeRoutesToSingleLookup(t *testing.T) {
	f := &fakeLookup{byCode: map[string]card.Card{"base1-4": {ID: "base1-4", Name: "Charizard"}}}
	e := NewExecutor(f, nil)

	cards, err := e.Search(context.Background(), "base1-4")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Charizard", cards[0].Name)

	assert.Equal(t, []string{"base1-4"}, f.codeCalls)
	assert.Empty(t, f.nameCalls)
}

func TestSearch_NameRoutesToMultiLookup(t *testing.T) {
	f := &fakeLookup{byName: []card.Card{{ID: "base1-58", Name: "Pikachu"}}}
	e := NewExecutor(f, nil)

	_, err := e.Search(context.Background(), "pikachu")
	require.NoError(t, err)

	assert.Equal(t, []string{"pikachu"}, f.nameCalls)
	assert.Empty(t, f.codeCalls)
}

func TestSearch_TrimsQuery(t *testing.T) {
	f := &fakeLookup{byCode: map[string]card.Card{"base1-4": {ID: "base1-4"}}}
	e := NewExecutor(f, nil)

	_, err := e.Search(context.Background(), "  base1-4\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"base1-4"}, f.codeCalls)
}

func TestSearch_InvalidQuery(t *testing.T) {
	e := NewExecutor(&fakeLookup{}, nil)

	_, err := e.Search(context.Background(), "   ")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = e.Search(context.Background(), strings.Repeat("a", MaxQueryLength+1))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSearch_CodeNotFound(t *testing.T) {
	e := NewExecutor(&fakeLookup{}, nil)

	_, err := e.Search(context.Background(), "base1-999")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestSearch_NameNoMatches(t *testing.T) {
	e := NewExecutor(&fakeLookup{}, nil)

	cards, err := e.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestSearch_RawErrorBecomesServiceUnavailable(t *testing.T) {
	e := NewExecutor(&fakeLookup{err: fmt.Errorf("connection reset by peer")}, nil)

	_, err := e.Search(context.Background(), "pikachu")
	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable), "got %v", err)
}

func TestSearch_RanksByNameSimilarity(t *testing.T) {
	f := &fakeLookup{byName: []card.Card{
		{ID: "swsh4-43", Name: "Flying Pikachu V"},
		{ID: "base1-58", Name: "Pikachu"},
		{ID: "cel25-5", Name: "Pikachu V"},
	}}
	e := NewExecutor(f, nil)

	cards, err := e.Search(context.Background(), "pikachu")
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "base1-58", cards[0].ID, "exact name match ranks first")
}

func TestSearch_SharesConcurrentIdenticalLookups(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeLookup{
		byName:  []card.Card{{ID: "base1-58", Name: "Pikachu"}},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	e := NewExecutor(f, nil)

	var wg sync.WaitGroup
	results := make([][]card.Card, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cards, err := e.Search(context.Background(), "pikachu")
			assert.NoError(t, err)
			results[i] = cards
		}(i)
		if i == 0 {
			<-f.entered
		}
	}

	// Give the second caller time to join the in-flight lookup
	time.Sleep(50 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
	assert.Len(t, results[0], 1)
	assert.Len(t, results[1], 1)
}

func TestSearch_CallerCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := &fakeLookup{
		byName:  []card.Card{{ID: "base1-58", Name: "Pikachu"}},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	e := NewExecutor(f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := e.Search(ctx, "pikachu")
		errCh <- err
	}()

	<-f.entered
	cancel()
	err := <-errCh
	assert.True(t, errors.Is(err, errors.ErrServiceUnavailable), "got %v", err)

	// Let the abandoned lookup finish so no goroutine outlives the test
	close(f.gate)
	require.Eventually(t, func() bool {
		_, err := e.Search(context.Background(), "pikachu")
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

// ctxLookup blocks until its context ends and reports that it did.
type ctxLookup struct {
	entered   chan struct{}
	cancelled chan struct{}
}

func (l *ctxLookup) FindByCode(ctx context.Context, code string) ([]card.Card, error) {
	return l.SearchByName(ctx, code)
}

func (l *ctxLookup) SearchByName(ctx context.Context, _ string) ([]card.Card, error) {
	l.entered <- struct{}{}
	<-ctx.Done()
	close(l.cancelled)
	return nil, ctx.Err()
}

func (e *Executor) waiters(base string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if f, ok := e.flights[base]; ok {
		return f.waiters
	}
	return 0
}

func TestSearch_LastCallerLeavingCancelsLookup(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := &ctxLookup{entered: make(chan struct{}, 1), cancelled: make(chan struct{})}
	e := NewExecutor(l, nil)

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() {
		_, err := e.Search(ctx1, "pikachu")
		errs <- err
	}()
	<-l.entered
	go func() {
		_, err := e.Search(ctx2, "pikachu")
		errs <- err
	}()
	require.Eventually(t, func() bool { return e.waiters("name:pikachu") == 2 },
		time.Second, 5*time.Millisecond)

	cancel1()
	assert.True(t, errors.Is(<-errs, errors.ErrServiceUnavailable))
	select {
	case <-l.cancelled:
		t.Fatal("lookup cancelled while a caller still waits")
	case <-time.After(50 * time.Millisecond):
	}

	cancel2()
	assert.True(t, errors.Is(<-errs, errors.ErrServiceUnavailable))
	select {
	case <-l.cancelled:
	case <-time.After(time.Second):
		t.Fatal("lookup not cancelled after the last caller left")
	}
	assert.Zero(t, e.waiters("name:pikachu"))
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    string
		wantErr bool
	}{
		{name: "trims", query: "  base1-4 ", want: "base1-4"},
		{name: "empty", query: "   ", wantErr: true},
		{name: "at limit", query: strings.Repeat("é", MaxQueryLength), want: strings.Repeat("é", MaxQueryLength)},
		{name: "too long", query: strings.Repeat("a", MaxQueryLength+1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeQuery(tt.query)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
