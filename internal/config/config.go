package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/scribe/internal/logging"
)

// Bounds for format concurrency.
const (
	MinFormatConcurrency = 1
	MaxFormatConcurrency = 16
)

// Config holds application configuration.
type Config struct {
	// ChunkSize is the target chunk size (bytes) for LLM formatting windows.
	ChunkSize int `json:"chunk_size"`

	// BoundaryWindow is the radius searched around each target cut for a natural boundary.
	BoundaryWindow int `json:"boundary_window"`

	// OverlapSize bounds the before/after context borrowed from neighbouring chunks.
	OverlapSize int `json:"overlap_size"`

	// FormatConcurrency is the number of chunks transformed at once.
	// 1 keeps the sequential chunk-order behavior.
	FormatConcurrency int `json:"format_concurrency"`

	// RetrievalTopK is the default number of passages returned by search.
	RetrievalTopK int `json:"retrieval_top_k"`

	// PassageSize is the chunk size used when indexing documents without level-2 headings.
	PassageSize int `json:"passage_size"`

	// DocsDir is the directory transcripts and formatted documents are read from.
	// Relative paths are resolved against the scribe base directory.
	DocsDir string `json:"docs_dir,omitempty"`

	// LLM configures the chat-completions client used for formatting.
	LLM LLMConfig `json:"llm"`

	// Log configures structured logging.
	Log logging.Config `json:"log"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// AllowedPaths lists extra directories import and export may touch, besides
	// ~/.scribe/imports and ~/.scribe/exports. Only absolute paths are honored.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction on import and export paths.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`
}

// LLMConfig configures the OpenAI-compatible client.
type LLMConfig struct {
	BaseURL        string   `json:"base_url,omitempty"`
	Model          string   `json:"model,omitempty"`
	APIKeyEnv      string   `json:"api_key_env,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	Temperature    *float32 `json:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens,omitempty"`
	SystemPrompt   string   `json:"system_prompt,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize:         100000,
		BoundaryWindow:    2000,
		OverlapSize:       500,
		FormatConcurrency: 1,
		RetrievalTopK:     5,
		PassageSize:       1500,
		DocsDir:           "docs",
		LLM: LLMConfig{
			BaseURL:        "https://api.openai.com/v1",
			Model:          "gpt-4.1-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
		},
		Log: *logging.DefaultConfig(),
	}
}

// Concurrency returns FormatConcurrency clamped to the supported range.
func (c *Config) Concurrency() int {
	return min(max(c.FormatConcurrency, MinFormatConcurrency), MaxFormatConcurrency)
}

// ResolveDocsDir returns DocsDir as an absolute path, resolving relative values against baseDir.
func (c *Config) ResolveDocsDir(baseDir string) string {
	dir := c.DocsDir
	if dir == "" {
		dir = "docs"
	}
	if strings.HasPrefix(dir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, dir[2:])
		}
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(baseDir, dir)
	}
	return filepath.Clean(dir)
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.scribe.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.scribe) and repo (.scribe) directories.
// Repo config is found by walking upward from startDir to find the nearest .scribe/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .scribe/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".scribe", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		ChunkSize:         pickInt(overlay.ChunkSize, base.ChunkSize),
		BoundaryWindow:    pickInt(overlay.BoundaryWindow, base.BoundaryWindow),
		OverlapSize:       pickInt(overlay.OverlapSize, base.OverlapSize),
		FormatConcurrency: pickInt(overlay.FormatConcurrency, base.FormatConcurrency),
		RetrievalTopK:     pickInt(overlay.RetrievalTopK, base.RetrievalTopK),
		PassageSize:       pickInt(overlay.PassageSize, base.PassageSize),
		DocsDir:           pickString(overlay.DocsDir, base.DocsDir),
		DBMaxOpenConns:    pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:    pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
	}

	result.LLM = LLMConfig{
		BaseURL:        pickString(overlay.LLM.BaseURL, base.LLM.BaseURL),
		Model:          pickString(overlay.LLM.Model, base.LLM.Model),
		APIKeyEnv:      pickString(overlay.LLM.APIKeyEnv, base.LLM.APIKeyEnv),
		TimeoutSeconds: pickInt(overlay.LLM.TimeoutSeconds, base.LLM.TimeoutSeconds),
		MaxTokens:      pickInt(overlay.LLM.MaxTokens, base.LLM.MaxTokens),
		SystemPrompt:   pickString(overlay.LLM.SystemPrompt, base.LLM.SystemPrompt),
		Temperature:    base.LLM.Temperature,
	}
	if overlay.LLM.Temperature != nil {
		result.LLM.Temperature = overlay.LLM.Temperature
	}

	result.Log = logging.Config{
		Level:  pickString(overlay.Log.Level, base.Log.Level),
		Format: pickString(overlay.Log.Format, base.Log.Format),
		Output: pickString(overlay.Log.Output, base.Log.Output),
		File: logging.FileConfig{
			Filename:   pickString(overlay.Log.File.Filename, base.Log.File.Filename),
			MaxSize:    pickInt(overlay.Log.File.MaxSize, base.Log.File.MaxSize),
			MaxAge:     pickInt(overlay.Log.File.MaxAge, base.Log.File.MaxAge),
			MaxBackups: pickInt(overlay.Log.File.MaxBackups, base.Log.File.MaxBackups),
			Compress:   base.Log.File.Compress || overlay.Log.File.Compress,
		},
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	return result
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
