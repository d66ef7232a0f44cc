package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/collection"
	"github.com/hpungsan/binder/internal/errors"
	"github.com/hpungsan/binder/internal/tcgapi"
)

// maxResolveWorkers bounds concurrent card lookups.
const maxResolveWorkers = 4

// Searcher resolves a query to cards. *tcgapi.Executor satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) ([]card.Card, error)
}

// SaveCodesInput contains parameters for the SaveCodes operation.
type SaveCodesInput struct {
	Codes []string
}

// SaveCodesOutput contains the result of the SaveCodes operation.
type SaveCodesOutput struct {
	Items  []SaveCodesItem  `json:"items"`
	Errors []SaveCodesError `json:"errors"`
	Count  int              `json:"count"`
}

// SaveCodesItem reports one resolved code.
type SaveCodesItem struct {
	Code         string `json:"code"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Saved        bool   `json:"saved"`
	AlreadySaved bool   `json:"already_saved"`
}

// SaveCodesError represents an error for a specific code.
type SaveCodesError struct {
	Code      string `json:"code"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// SaveCodes resolves card codes and saves every card found.
// Lookups run in parallel; saves happen in argument order so the collection
// order matches the input. Returns partial success with items and errors.
func SaveCodes(ctx context.Context, search Searcher, mgr *collection.Manager, input SaveCodesInput) (*SaveCodesOutput, error) {
	if len(input.Codes) == 0 {
		return nil, errors.NewInvalidRequest("at least one code is required")
	}
	if len(input.Codes) > MaxSaveCodes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("too many codes: %d (max %d)", len(input.Codes), MaxSaveCodes))
	}

	codes := make([]string, len(input.Codes))
	for i, raw := range input.Codes {
		codes[i] = strings.TrimSpace(raw)
	}

	resolved := make([]card.Card, len(codes))
	failures := make([]error, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxResolveWorkers)
	for i, code := range codes {
		if code == "" || tcgapi.Classify(code) != tcgapi.QueryCode {
			failures[i] = errors.NewInvalidRequest(fmt.Sprintf("%q is not a card code", code))
			continue
		}
		g.Go(func() error {
			cards, err := search.Search(gctx, code)
			if err != nil {
				failures[i] = err
				return nil
			}
			if len(cards) == 0 {
				failures[i] = errors.NewNotFound(code)
				return nil
			}
			resolved[i] = cards[0]
			return nil
		})
	}
	// Per-code failures are collected, so Wait only reports cancellation.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, errors.NewServiceUnavailable("save codes", err)
	}

	out := &SaveCodesOutput{
		Items:  []SaveCodesItem{},
		Errors: []SaveCodesError{},
	}
	for i, code := range codes {
		if failures[i] != nil {
			out.Errors = append(out.Errors, codeError(code, failures[i]))
			continue
		}
		res, err := mgr.Save(ctx, resolved[i])
		if err != nil {
			out.Errors = append(out.Errors, codeError(code, err))
			continue
		}
		out.Items = append(out.Items, SaveCodesItem{
			Code:         code,
			ID:           res.ID,
			Name:         resolved[i].Name,
			Saved:        res.Saved,
			AlreadySaved: res.AlreadySaved,
		})
	}
	out.Count = mgr.Len()
	return out, nil
}

// codeError converts a lookup or save error to a SaveCodesError.
func codeError(code string, err error) SaveCodesError {
	var bErr *errors.BinderError
	if stderrors.As(err, &bErr) {
		return SaveCodesError{Code: code, ErrorCode: string(bErr.Code), Message: bErr.Message}
	}
	return SaveCodesError{Code: code, ErrorCode: string(errors.ErrInternal), Message: err.Error()}
}
