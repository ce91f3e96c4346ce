package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

var sourceProps = map[string]any{
	"document": prop("string", "Stored document name (e.g. interview.txt). Mutually exclusive with text."),
	"text":     prop("string", "Inline document text. Mutually exclusive with document."),
}

func withSource(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+len(sourceProps))
	for k, v := range sourceProps {
		out[k] = v
	}
	for k, v := range props {
		out[k] = v
	}
	return out
}

var itemsProp = map[string]any{
	"type":        "array",
	"description": "Documents to include, in order. Omit topics (or pass an empty list) for the whole document.",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document": prop("string", "Stored document name"),
			"topics": map[string]any{
				"type":        "array",
				"description": "Topic IDs to include. IDs that no longer match fall back to the whole document.",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required": []string{"document"},
	},
}

var listToolDef = mcp.Tool{
	Name:        "document_list",
	Description: "List stored documents with size and passage index state",
	InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
}

var splitToolDef = mcp.Tool{
	Name:        "document_split",
	Description: "Split a document into boundary-aware chunks (paragraph > speaker > timestamp > sentence > line) without transforming them",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: withSource(map[string]any{
			"chunk_size":      prop("integer", "Target chunk size in bytes (default from config)"),
			"boundary_window": prop("integer", "Radius searched around each cut for a natural boundary"),
			"overlap_size":    prop("integer", "Maximum overlap context borrowed from each neighbor"),
			"include_text":    prop("boolean", "Include chunk text"),
			"include_overlap": prop("boolean", "Include each chunk's before/after overlap window"),
		}),
	},
}

var topicsToolDef = mcp.Tool{
	Name:        "document_topics",
	Description: "Segment a formatted markdown document into topics delimited by level-2 headings",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: withSource(map[string]any{
			"id":              prop("string", "Return only the topic with this ID (first match wins)"),
			"include_content": prop("boolean", "Include topic content"),
			"html":            prop("boolean", "Render each topic to HTML"),
		}),
	},
}

var formatToolDef = mcp.Tool{
	Name:        "document_format",
	Description: "Format a raw transcript into markdown with the LLM, chunk by chunk. Failed chunks keep their original text behind an error marker.",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: withSource(map[string]any{
			"template":    prop("string", "Prompt template; must contain {content}. May use {chunk_number}, {total_chunks}, {overlap_before}, {overlap_after}."),
			"chunk_size":  prop("integer", "Target chunk size in bytes"),
			"concurrency": prop("integer", "Chunks transformed at once (1-16)"),
			"model":       prop("string", "Model override"),
			"save":        prop("boolean", "Save as <document>.formatted.md"),
			"save_as":     prop("string", "Save under this markdown name"),
			"mode": map[string]any{
				"type":        "string",
				"description": "What to do if the output exists",
				"enum":        []string{"error", "replace"},
				"default":     "error",
			},
			"index": prop("boolean", "Add the saved document to the passage index"),
		}),
	},
}

var assembleToolDef = mcp.Tool{
	Name:        "context_assemble",
	Description: "Assemble prompt context from retrieved passages and selected documents or topics",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"items": itemsProp,
			"query": prop("string", "Optional retrieval query; matching passages are placed first"),
			"top_k": prop("integer", "Passages to retrieve (default from config)"),
		},
	},
}

var askToolDef = mcp.Tool{
	Name:        "context_ask",
	Description: "Answer a question with the LLM over assembled context",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"question":     prop("string", "The question"),
			"items":        itemsProp,
			"query":        prop("string", "Retrieval query (default: the question)"),
			"top_k":        prop("integer", "Passages to retrieve"),
			"no_retrieval": prop("boolean", "Skip passage search"),
		},
		Required: []string{"question"},
	},
}

var indexToolDef = mcp.Tool{
	Name:        "passage_index",
	Description: "Index documents into searchable passages (by topic when headings exist, else by chunk)",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"documents": map[string]any{
				"type":        "array",
				"description": "Document names to index",
				"items":       map[string]any{"type": "string"},
			},
			"all":   prop("boolean", "Index every stored document"),
			"force": prop("boolean", "Reindex unchanged documents"),
		},
	},
}

var unindexToolDef = mcp.Tool{
	Name:        "passage_unindex",
	Description: "Remove a document's passages from the index",
	InputSchema: mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{"document": prop("string", "Document name")},
		Required:   []string{"document"},
	},
}

var searchToolDef = mcp.Tool{
	Name:        "passage_search",
	Description: "Search indexed passages ranked by BM25 relevance",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"query": prop("string", "Search query"),
			"top_k": prop("integer", "Maximum passages (default from config, max 50)"),
		},
		Required: []string{"query"},
	},
}

var importToolDef = mcp.Tool{
	Name:        "document_import",
	Description: "Copy a transcript file from ~/.scribe/imports (or allowed_paths) into the document store",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"path": prop("string", "Absolute path to a .txt, .md or .markdown file"),
			"name": prop("string", "Stored name (default: file name)"),
			"mode": map[string]any{
				"type":    "string",
				"enum":    []string{"error", "replace", "rename"},
				"default": "error",
			},
			"index": prop("boolean", "Also index the document"),
		},
		Required: []string{"path"},
	},
}

var exportToolDef = mcp.Tool{
	Name:        "document_export",
	Description: "Write a stored document, or an assembled context, to ~/.scribe/exports (or allowed_paths)",
	InputSchema: mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]any{
			"document": prop("string", "Stored document to export"),
			"items":    itemsProp,
			"query":    prop("string", "Retrieval query for an assembled export"),
			"top_k":    prop("integer", "Passages to retrieve"),
			"path":     prop("string", "Destination path (default: timestamped file in ~/.scribe/exports)"),
		},
	},
}
