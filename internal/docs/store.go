// Package docs stores transcripts and formatted documents as files in one directory.
package docs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/logging"
)

// AllowedExtensions are the document file types the store reads and writes.
var AllowedExtensions = []string{".txt", ".md", ".markdown"}

// MaxDocumentBytes bounds the size of a single document read into memory.
const MaxDocumentBytes = 64 << 20

// SaveMode controls what Save does when the document already exists.
type SaveMode string

const (
	SaveModeError   SaveMode = "error"
	SaveModeReplace SaveMode = "replace"
)

// Info describes a stored document.
type Info struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"` // Unix seconds
	Markdown bool   `json:"markdown"`
}

// Store reads and writes documents directly inside Dir.
type Store struct {
	dir string
	log *logging.Logger
}

// NewStore creates a Store rooted at dir. The directory is created lazily on first save.
func NewStore(dir string, log *logging.Logger) *Store {
	return &Store{dir: filepath.Clean(dir), log: logging.OrNop(log).Named("docs")}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Load implements assemble.Loader.
func (s *Store) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewCancelled("load")
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}

	f, err := OpenNoFollowRead(s.path(name))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return "", errors.NewNotFound(name)
		}
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("stat %s: %w", name, err))
	}
	if !info.Mode().IsRegular() {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s is not a regular file", name))
	}
	if info.Size() > MaxDocumentBytes {
		return "", errors.NewInvalidRequest(fmt.Sprintf("%s exceeds %d bytes", name, MaxDocumentBytes))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("read %s: %w", name, err))
	}
	return string(data), nil
}

// Save writes content to name atomically (temp file then rename).
func (s *Store) Save(ctx context.Context, name, content string, mode SaveMode) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled("save")
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if mode == "" {
		mode = SaveModeError
	}
	if mode != SaveModeError && mode != SaveModeReplace {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid save mode %q (want error or replace)", mode))
	}

	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("create docs directory: %w", err))
	}

	target := s.path(name)
	if info, err := os.Lstat(target); err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("document must not be a symlink")
		}
		if mode == SaveModeError {
			return errors.NewAlreadyExists(name)
		}
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("generate temp file name: %w", err))
	}
	tempPath := target + "." + hex.EncodeToString(randBytes) + ".tmp"

	f, err := OpenNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("create temp file: %w", err))
	}
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return errors.NewInternal(fmt.Errorf("write %s: %w", name, err))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.NewInternal(fmt.Errorf("sync %s: %w", name, err))
	}
	if err := f.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("close %s: %w", name, err))
	}
	if err := os.Rename(tempPath, target); err != nil {
		return errors.NewInternal(fmt.Errorf("rename %s: %w", name, err))
	}
	success = true

	s.log.Info("document saved", zap.String("name", name), zap.Int("bytes", len(content)), zap.String("mode", string(mode)))
	return nil
}

// List returns the documents in the store sorted by name. A missing
// directory lists as empty.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled("list")
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return []Info{}, nil
		}
		return nil, errors.NewInternal(fmt.Errorf("read docs directory: %w", err))
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || ValidateName(e.Name()) != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().Unix(),
			Markdown: IsMarkdown(e.Name()),
		})
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Exists reports whether name is present in the store.
func (s *Store) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	info, err := os.Lstat(s.path(name))
	return err == nil && info.Mode().IsRegular()
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// ValidateName checks that name is a plain file name with an allowed
// extension. Documents live directly in the store directory: separators,
// traversal and hidden names are rejected.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewInvalidRequest("document name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errors.NewInvalidRequest("document name must not contain path separators")
	}
	if name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return errors.NewInvalidRequest("document name must not start with a dot")
	}
	if !slices.Contains(AllowedExtensions, strings.ToLower(filepath.Ext(name))) {
		return errors.NewInvalidRequest(fmt.Sprintf("document must have one of the extensions %s", strings.Join(AllowedExtensions, ", ")))
	}
	return nil
}

// IsMarkdown reports whether name has a markdown extension.
func IsMarkdown(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".md" || ext == ".markdown"
}

// FormattedName derives the default output name for a formatted document:
// "interview.txt" becomes "interview.formatted.md".
func FormattedName(source string) string {
	base := strings.TrimSuffix(source, filepath.Ext(source))
	return SanitizeName(base) + ".formatted.md"
}

// TimestampedName appends a UTC timestamp before the extension.
func TimestampedName(name string, now time.Time) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + now.UTC().Format("20060102-150405") + ext
}

// SanitizeName makes s safe to use as a file name stem.
func SanitizeName(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, "..", "-")

	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	s = b.String()

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-. ")

	if s == "" {
		s = "unnamed"
	}
	return s
}
