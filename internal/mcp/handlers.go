package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/binder/internal/collection"
	"github.com/hpungsan/binder/internal/config"
	"github.com/hpungsan/binder/internal/errors"
	"github.com/hpungsan/binder/internal/ops"
	"github.com/hpungsan/binder/internal/viewer"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	mgr    *collection.Manager
	sess   *viewer.Session
	search ops.Searcher
	cfg    *config.Config
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps) *Handlers {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		mgr:    deps.Manager,
		sess:   deps.Session,
		search: deps.Searcher,
		cfg:    cfg,
		logger: logger,
	}
}

// Request types for each tool

// SearchRequest represents the arguments for card_search.
type SearchRequest struct {
	Query string `json:"query"`
}

// SelectRequest represents the arguments for card_select.
type SelectRequest struct {
	Index *int   `json:"index,omitempty"`
	ID    string `json:"id,omitempty"`
}

// SaveRequest represents the arguments for card_save.
type SaveRequest struct {
	ID string `json:"id,omitempty"`
}

// SavedRequest represents the arguments for card_saved.
type SavedRequest struct {
	NamePrefix string `json:"name_prefix,omitempty"`
	Supertype  string `json:"supertype,omitempty"`
	Rarity     string `json:"rarity,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for card_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// SaveCodesRequest represents the arguments for card_save_codes.
type SaveCodesRequest struct {
	Codes []string `json:"codes"`
}

// HandleSearch handles the card_search tool.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Search(ctx, h.sess, h.mgr, ops.SearchInput{Query: input.Query})
	if err != nil {
		return h.failed("card_search", err), nil
	}
	return successResult(result)
}

// HandleSelect handles the card_select tool.
func (h *Handlers) HandleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SelectRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Select(h.sess, h.mgr, ops.SelectInput{
		Index: input.Index,
		ID:    input.ID,
	})
	if err != nil {
		return h.failed("card_select", err), nil
	}
	return successResult(result)
}

// HandleCurrent handles the card_current tool.
func (h *Handlers) HandleCurrent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Current(h.sess, h.mgr))
}

// HandleReset handles the card_reset tool.
func (h *Handlers) HandleReset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ops.Reset(h.sess, h.mgr))
}

// HandleSave handles the card_save tool.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Save(ctx, h.sess, h.mgr, ops.SaveInput{ID: input.ID})
	if err != nil {
		return h.failed("card_save", err), nil
	}
	return successResult(result)
}

// HandleSaved handles the card_saved tool.
func (h *Handlers) HandleSaved(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SavedRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	_ = h.mgr.Reload(ctx)
	result, err := ops.ListSaved(h.mgr, ops.ListSavedInput{
		NamePrefix: input.NamePrefix,
		Supertype:  input.Supertype,
		Rarity:     input.Rarity,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return h.failed("card_saved", err), nil
	}
	return successResult(result)
}

// HandleExport handles the card_export tool.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Export(ctx, h.mgr, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return h.failed("card_export", err), nil
	}
	return successResult(result)
}

// HandleSaveCodes handles the card_save_codes tool.
func (h *Handlers) HandleSaveCodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveCodesRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.SaveCodes(ctx, h.search, h.mgr, ops.SaveCodesInput{Codes: input.Codes})
	if err != nil {
		return h.failed("card_save_codes", err), nil
	}
	return successResult(result)
}

// failed logs server-side failures and converts err to a tool error.
func (h *Handlers) failed(tool string, err error) *mcp.CallToolResult {
	var bErr *errors.BinderError
	if !stderrors.As(err, &bErr) || bErr.Status >= 500 {
		h.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
	}
	return errorResult(err)
}

// errorResult creates an MCP error result from an error.
// The message keeps any wrapping context; code and status come from the
// innermost BinderError.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var bErr *errors.BinderError
	if stderrors.As(err, &bErr) {
		message := bErr.Message
		if err != error(bErr) && bErr.Code != errors.ErrInternal {
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    bErr.Code,
			"message": message,
			"status":  bErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if bErr.Code != errors.ErrInternal && bErr.Details != nil {
			errorObj["details"] = bErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
