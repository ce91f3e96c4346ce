package mcp

import (
	"slices"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/scribe/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"document_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"document_split": {
		def:     splitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSplit },
	},
	"document_topics": {
		def:     topicsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTopics },
	},
	"document_format": {
		def:     formatToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFormat },
	},
	"document_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"document_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"context_assemble": {
		def:     assembleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAssemble },
	},
	"context_ask": {
		def:     askToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAsk },
	},
	"passage_index": {
		def:     indexToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleIndex },
	},
	"passage_unindex": {
		def:     unindexToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUnindex },
	},
	"passage_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with Scribe tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(env *ops.Env, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"scribe",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(env)

	disabled := make(map[string]bool)
	if env.Config != nil {
		for _, name := range env.Config.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(env *ops.Env, version string) error {
	s := NewServer(env, version)
	return server.ServeStdio(s)
}
