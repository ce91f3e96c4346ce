package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/scribe/internal/assemble"
	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	env *ops.Env
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env) *Handlers {
	return &Handlers{env: env}
}

// Request types for each tool

// SourceRequest names a stored document or carries inline text.
type SourceRequest struct {
	Document string `json:"document,omitempty"`
	Text     string `json:"text,omitempty"`
}

func (r SourceRequest) source() ops.Source {
	return ops.Source{Document: r.Document, Text: r.Text}
}

// SplitRequest represents the arguments for document_split.
type SplitRequest struct {
	SourceRequest
	ChunkSize      int  `json:"chunk_size,omitempty"`
	BoundaryWindow int  `json:"boundary_window,omitempty"`
	OverlapSize    int  `json:"overlap_size,omitempty"`
	IncludeText    bool `json:"include_text,omitempty"`
	IncludeOverlap bool `json:"include_overlap,omitempty"`
}

// TopicsRequest represents the arguments for document_topics.
type TopicsRequest struct {
	SourceRequest
	ID             string `json:"id,omitempty"`
	IncludeContent bool   `json:"include_content,omitempty"`
	HTML           bool   `json:"html,omitempty"`
}

// FormatRequest represents the arguments for document_format.
type FormatRequest struct {
	SourceRequest
	Template    string `json:"template,omitempty"`
	ChunkSize   int    `json:"chunk_size,omitempty"`
	Concurrency int    `json:"concurrency,omitempty"`
	Model       string `json:"model,omitempty"`
	Save        bool   `json:"save,omitempty"`
	SaveAs      string `json:"save_as,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Index       bool   `json:"index,omitempty"`
}

// AssembleRequest represents the arguments for context_assemble.
type AssembleRequest struct {
	Items []assemble.Item `json:"items,omitempty"`
	Query string          `json:"query,omitempty"`
	TopK  int             `json:"top_k,omitempty"`
}

func (r AssembleRequest) input() ops.AssembleInput {
	return ops.AssembleInput{Items: r.Items, Query: r.Query, TopK: r.TopK}
}

// AskRequest represents the arguments for context_ask.
type AskRequest struct {
	Question string `json:"question"`
	AssembleRequest
	NoRetrieval bool `json:"no_retrieval,omitempty"`
}

// IndexRequest represents the arguments for passage_index.
type IndexRequest struct {
	Documents []string `json:"documents,omitempty"`
	All       bool     `json:"all,omitempty"`
	Force     bool     `json:"force,omitempty"`
}

// UnindexRequest represents the arguments for passage_unindex.
type UnindexRequest struct {
	Document string `json:"document"`
}

// SearchRequest represents the arguments for passage_search.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// ImportRequest represents the arguments for document_import.
type ImportRequest struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Mode  string `json:"mode,omitempty"`
	Index bool   `json:"index,omitempty"`
}

// ExportRequest represents the arguments for document_export.
// Without a document, the remaining fields describe a context to assemble.
type ExportRequest struct {
	Document string `json:"document,omitempty"`
	AssembleRequest
	Path string `json:"path,omitempty"`
}

// HandleList handles the document_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListDocuments(ctx, h.env)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSplit handles the document_split tool call.
func (h *Handlers) HandleSplit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SplitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Split(ctx, h.env, ops.SplitInput{
		Source:         input.source(),
		ChunkSize:      input.ChunkSize,
		BoundaryWindow: input.BoundaryWindow,
		OverlapSize:    input.OverlapSize,
		IncludeText:    input.IncludeText,
		IncludeOverlap: input.IncludeOverlap,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTopics handles the document_topics tool call.
func (h *Handlers) HandleTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TopicsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Topics(ctx, h.env, ops.TopicsInput{
		Source:         input.source(),
		ID:             input.ID,
		IncludeContent: input.IncludeContent,
		HTML:           input.HTML,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFormat handles the document_format tool call.
func (h *Handlers) HandleFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FormatRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Format(ctx, h.env, ops.FormatInput{
		Source:      input.source(),
		Template:    input.Template,
		ChunkSize:   input.ChunkSize,
		Concurrency: input.Concurrency,
		Model:       input.Model,
		Save:        input.Save,
		SaveAs:      input.SaveAs,
		Mode:        docs.SaveMode(input.Mode),
		Index:       input.Index,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAssemble handles the context_assemble tool call.
func (h *Handlers) HandleAssemble(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AssembleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Assemble(ctx, h.env, input.input())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAsk handles the context_ask tool call.
func (h *Handlers) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AskRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Ask(ctx, h.env, ops.AskInput{
		Question:      input.Question,
		AssembleInput: input.input(),
		NoRetrieval:   input.NoRetrieval,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleIndex handles the passage_index tool call.
func (h *Handlers) HandleIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IndexRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Index(ctx, h.env, ops.IndexInput{
		Documents: input.Documents,
		All:       input.All,
		Force:     input.Force,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUnindex handles the passage_unindex tool call.
func (h *Handlers) HandleUnindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UnindexRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Unindex(ctx, h.env, ops.UnindexInput{Document: input.Document})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the passage_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.env, ops.SearchInput{Query: input.Query, TopK: input.TopK})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the document_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.env, ops.ImportInput{
		Path:  input.Path,
		Name:  input.Name,
		Mode:  ops.ImportMode(input.Mode),
		Index: input.Index,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the document_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	exp := ops.ExportInput{Document: input.Document, Path: input.Path}
	if input.Document == "" {
		asm := input.input()
		exp.Assemble = &asm
	}

	result, err := ops.Export(ctx, h.env, exp)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if scribeErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    scribeErr.Code,
			"message": scribeErr.Message,
			"status":  scribeErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// file paths or SQL errors
		if scribeErr.Code != errors.ErrInternal && scribeErr.Details != nil {
			errorObj["details"] = scribeErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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

// successResult creates an MCP success result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
