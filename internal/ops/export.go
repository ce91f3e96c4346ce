package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
)

// ExportInput contains parameters for the Export operation. Exactly one of
// Document and Assemble selects what is written.
type ExportInput struct {
	Document string         // stored document to copy out
	Assemble *AssembleInput // or: assembled context to write
	Path     string         // optional, default: ~/.scribe/exports/<name>
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string   `json:"path"`
	Bytes      int      `json:"bytes"`
	ExportedAt int64    `json:"exported_at"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Export writes a stored document or an assembled context to a file.
func Export(ctx context.Context, env *Env, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	if (input.Document == "") == (input.Assemble == nil) {
		return nil, errors.NewInvalidRequest("specify either document or assemble")
	}

	var content string
	var warnings []string
	stem := ""
	if input.Document != "" {
		text, err := env.Docs.Load(ctx, input.Document)
		if err != nil {
			return nil, err
		}
		content = text
		stem = input.Document
	} else {
		asm, err := Assemble(ctx, env, *input.Assemble)
		if err != nil {
			return nil, err
		}
		content = asm.Text
		warnings = asm.Warnings
		stem = "context.md"
	}

	exportPath := input.Path
	if exportPath == "" {
		var err error
		exportPath, err = defaultExportPath(stem, now)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, env.cfg()); err != nil {
		return nil, err
	}

	if err := writeFileAtomic(exportPath, content); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Bytes:      len(content),
		ExportedAt: now.Unix(),
		Warnings:   warnings,
	}, nil
}

// defaultExportPath returns ~/.scribe/exports/<stem>-<timestamp><ext>.
func defaultExportPath(name string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(name)
	stem := docs.SanitizeName(name[:len(name)-len(ext)])
	return filepath.Join(dir, docs.TimestampedName(stem+ext, now)), nil
}

// writeFileAtomic writes to a temp file in the same directory, then renames
// it over path so an existing file survives a failed write.
func writeFileAtomic(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := docs.OpenNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.WriteString(content); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}

	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return nil
}
