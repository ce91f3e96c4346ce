package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ChunkSize != 100000 {
		t.Errorf("ChunkSize = %d, want 100000", cfg.ChunkSize)
	}
	if cfg.BoundaryWindow != 2000 {
		t.Errorf("BoundaryWindow = %d, want 2000", cfg.BoundaryWindow)
	}
	if cfg.OverlapSize != 500 {
		t.Errorf("OverlapSize = %d, want 500", cfg.OverlapSize)
	}
	if cfg.FormatConcurrency != 1 {
		t.Errorf("FormatConcurrency = %d, want 1", cfg.FormatConcurrency)
	}
	if cfg.RetrievalTopK != 5 {
		t.Errorf("RetrievalTopK = %d, want 5", cfg.RetrievalTopK)
	}
	if cfg.LLM.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("LLM.APIKeyEnv = %q, want OPENAI_API_KEY", cfg.LLM.APIKeyEnv)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"chunk_size": 50000, "llm": {"model": "local-model"}, "log": {"level": "debug"}}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ChunkSize != 50000 {
		t.Errorf("ChunkSize = %d, want 50000", cfg.ChunkSize)
	}
	if cfg.BoundaryWindow != 2000 {
		t.Errorf("BoundaryWindow = %d, want 2000 (default)", cfg.BoundaryWindow)
	}
	if cfg.LLM.Model != "local-model" {
		t.Errorf("LLM.Model = %q, want local-model", cfg.LLM.Model)
	}
	if cfg.LLM.TimeoutSeconds != 120 {
		t.Errorf("LLM.TimeoutSeconds = %d, want 120 (default)", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Log.Format = %q, want console (default)", cfg.Log.Format)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not json`)

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() should fail on invalid JSON")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"disabled_tools": ["document_format", "passage_index"]}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "document_format" {
		t.Errorf("DisabledTools[0] = %q, want document_format", cfg.DisabledTools[0])
	}
}

func TestLoadWithRepo(t *testing.T) {
	tests := []struct {
		name          string
		global        string
		repo          string
		wantChunkSize int
		wantDisabled  int
	}{
		{
			name:          "both present",
			global:        `{"chunk_size": 80000, "disabled_tools": ["document_format"]}`,
			repo:          `{"chunk_size": 40000, "disabled_tools": ["passage_index"]}`,
			wantChunkSize: 40000,
			wantDisabled:  2,
		},
		{
			name:          "only global",
			global:        `{"chunk_size": 80000, "disabled_tools": ["document_format"]}`,
			wantChunkSize: 80000,
			wantDisabled:  1,
		},
		{
			name:          "only repo",
			repo:          `{"disabled_tools": ["passage_index", "passage_search"]}`,
			wantChunkSize: 100000,
			wantDisabled:  2,
		},
		{
			name:          "neither present",
			wantChunkSize: 100000,
			wantDisabled:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			globalDir := t.TempDir()
			repoRoot := t.TempDir()
			if tt.global != "" {
				writeConfig(t, globalDir, tt.global)
			}
			if tt.repo != "" {
				writeConfig(t, filepath.Join(repoRoot, ".scribe"), tt.repo)
			}

			cfg, err := LoadWithRepo(globalDir, repoRoot)
			if err != nil {
				t.Fatalf("LoadWithRepo() error = %v", err)
			}
			if cfg.ChunkSize != tt.wantChunkSize {
				t.Errorf("ChunkSize = %d, want %d", cfg.ChunkSize, tt.wantChunkSize)
			}
			if len(cfg.DisabledTools) != tt.wantDisabled {
				t.Errorf("DisabledTools = %v, want %d entries", cfg.DisabledTools, tt.wantDisabled)
			}
		})
	}
}

func TestLoadWithRepo_WalksUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, filepath.Join(root, ".scribe"), `{"overlap_size": 250}`)

	subdir := filepath.Join(root, "transcripts", "2024")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(t.TempDir(), subdir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.OverlapSize != 250 {
		t.Errorf("OverlapSize = %d, want 250", cfg.OverlapSize)
	}
}

func TestFindRepoConfig(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, filepath.Join(root, ".scribe"), `{}`)
	deeper := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(deeper, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	if got := FindRepoConfig(root); got != configPath {
		t.Errorf("FindRepoConfig(root) = %q, want %q", got, configPath)
	}
	if got := FindRepoConfig(deeper); got != configPath {
		t.Errorf("FindRepoConfig(deeper) = %q, want %q", got, configPath)
	}
	if got := FindRepoConfig(t.TempDir()); got != "" {
		t.Errorf("FindRepoConfig(empty) = %q, want empty string", got)
	}
}

func TestMerge_ScalarOverride(t *testing.T) {
	base := &Config{ChunkSize: 10000, DBMaxOpenConns: 5}
	overlay := &Config{ChunkSize: 5000}

	result := Merge(base, overlay)

	if result.ChunkSize != 5000 {
		t.Errorf("ChunkSize = %d, want 5000 (overlay)", result.ChunkSize)
	}
	if result.DBMaxOpenConns != 5 {
		t.Errorf("DBMaxOpenConns = %d, want 5 (base, overlay is zero)", result.DBMaxOpenConns)
	}
}

func TestMerge_Temperature(t *testing.T) {
	zero := float32(0)
	warm := float32(0.7)

	result := Merge(&Config{LLM: LLMConfig{Temperature: &warm}}, &Config{})
	if result.LLM.Temperature == nil || *result.LLM.Temperature != warm {
		t.Errorf("Temperature = %v, want base 0.7", result.LLM.Temperature)
	}

	result = Merge(&Config{LLM: LLMConfig{Temperature: &warm}}, &Config{LLM: LLMConfig{Temperature: &zero}})
	if result.LLM.Temperature == nil || *result.LLM.Temperature != 0 {
		t.Errorf("Temperature = %v, want explicit overlay 0", result.LLM.Temperature)
	}
}

func TestMerge_ArrayMergeDedup(t *testing.T) {
	base := &Config{DisabledTools: []string{"document_format", " passage_index "}}
	overlay := &Config{DisabledTools: []string{"passage_index", "passage_search", ""}}

	result := Merge(base, overlay)

	want := []string{"document_format", "passage_index", "passage_search"}
	if len(result.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", result.DisabledTools, want)
	}
	for i, w := range want {
		if result.DisabledTools[i] != w {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, result.DisabledTools[i], w)
		}
	}
}

func TestConcurrency_Clamped(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{4, 4},
		{16, 16},
		{64, 16},
	}
	for _, tt := range tests {
		cfg := &Config{FormatConcurrency: tt.in}
		if got := cfg.Concurrency(); got != tt.want {
			t.Errorf("Concurrency(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResolveDocsDir(t *testing.T) {
	base := t.TempDir()

	cfg := &Config{DocsDir: "docs"}
	if got := cfg.ResolveDocsDir(base); got != filepath.Join(base, "docs") {
		t.Errorf("ResolveDocsDir(relative) = %q", got)
	}

	abs := filepath.Join(base, "elsewhere")
	cfg = &Config{DocsDir: abs}
	if got := cfg.ResolveDocsDir(base); got != abs {
		t.Errorf("ResolveDocsDir(absolute) = %q, want %q", got, abs)
	}

	cfg = &Config{}
	if got := cfg.ResolveDocsDir(base); got != filepath.Join(base, "docs") {
		t.Errorf("ResolveDocsDir(empty) = %q", got)
	}
}
