package ops

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/binder/internal/collection"
	"github.com/hpungsan/binder/internal/errors"
	"github.com/hpungsan/binder/internal/viewer"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query string
}

// Search runs a query in the session and returns the resulting view.
//
// Search misses are not errors here: the session moves to Empty and the
// notice on the output says why. Invalid queries and superseded searches
// return an error.
func Search(ctx context.Context, sess *viewer.Session, mgr *collection.Manager, input SearchInput) (*ViewOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}

	st, err := sess.Search(ctx, input.Query)
	if err != nil && !errors.IsSearchMiss(err) {
		return nil, err
	}
	return buildView(st, mgr), nil
}

// SelectInput contains parameters for the Select operation.
// Exactly one of Index and ID is set.
type SelectInput struct {
	Index *int
	ID    string
}

// Select picks one of the session's candidates.
func Select(sess *viewer.Session, mgr *collection.Manager, input SelectInput) (*ViewOutput, error) {
	id := strings.TrimSpace(input.ID)
	if input.Index != nil && id != "" {
		return nil, errors.NewInvalidRequest("specify either index or id, not both")
	}

	var (
		st  viewer.State
		err error
	)
	switch {
	case input.Index != nil:
		st, err = sess.Pick(*input.Index)
	case id != "":
		st, err = sess.PickID(id)
	default:
		return nil, errors.NewInvalidRequest("must specify either index or id")
	}
	if err != nil {
		return nil, err
	}
	return buildView(st, mgr), nil
}

// Current returns the session's view without changing it.
func Current(sess *viewer.Session, mgr *collection.Manager) *ViewOutput {
	return buildView(sess.State(), mgr)
}

// SaveInput contains parameters for the Save operation.
type SaveInput struct {
	ID string // optional; must match the selected card when set
}

// Save adds the session's selected card to the collection. Saving a card
// that is already there succeeds without writing.
func Save(ctx context.Context, sess *viewer.Session, mgr *collection.Manager, input SaveInput) (*collection.SaveResult, error) {
	st := sess.State()
	if st.View != viewer.ViewResolved || st.Selected == nil {
		return nil, errors.NewInvalidRequest("no card is selected")
	}

	id := strings.TrimSpace(input.ID)
	if id != "" && id != st.Selected.ID {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("card %q is not the selected card", id))
	}

	return mgr.Save(ctx, *st.Selected)
}

// Reset clears the session's view and drops any search in flight.
func Reset(sess *viewer.Session, mgr *collection.Manager) *ViewOutput {
	return buildView(sess.Reset(), mgr)
}

// DismissNotice clears the session's notice and returns the view.
func DismissNotice(sess *viewer.Session, mgr *collection.Manager) *ViewOutput {
	sess.DismissNotice()
	return buildView(sess.State(), mgr)
}
