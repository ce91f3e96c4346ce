package ops

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/retrieval"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail if the document exists
	ImportModeReplace ImportMode = "replace" // overwrite the document
	ImportModeRename  ImportMode = "rename"  // store under a timestamped name
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path  string     // required
	Name  string     // default: base name of Path
	Mode  ImportMode // default: error
	Index bool       // also add the document to the passage index
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Document string                 `json:"document"`
	Bytes    int                    `json:"bytes"`
	Renamed  bool                   `json:"renamed,omitempty"`
	Indexed  *retrieval.IndexResult `json:"indexed,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Import copies a transcript file from an allowed directory into the document store.
func Import(ctx context.Context, env *Env, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace && input.Mode != ImportModeRename {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, rename")
	}
	if err := ValidatePath(input.Path, PathCheckRead, env.cfg()); err != nil {
		return nil, err
	}

	name := input.Name
	if name == "" {
		base := filepath.Base(input.Path)
		name = docs.SanitizeName(base[:len(base)-len(filepath.Ext(base))]) + filepath.Ext(base)
	}
	if err := docs.ValidateName(name); err != nil {
		return nil, err
	}

	f, err := docs.OpenNoFollowRead(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NewNotFound(input.Path)
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, docs.MaxDocumentBytes+1))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to read import file: %w", err))
	}
	if len(data) > docs.MaxDocumentBytes {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("import file exceeds %d bytes", docs.MaxDocumentBytes))
	}
	if !utf8.Valid(data) {
		return nil, errors.NewInvalidRequest("import file is not valid UTF-8 text")
	}

	out := &ImportOutput{Document: name, Bytes: len(data)}
	mode := docs.SaveModeError
	switch input.Mode {
	case ImportModeReplace:
		mode = docs.SaveModeReplace
	case ImportModeRename:
		if env.Docs.Exists(name) {
			out.Document = docs.TimestampedName(name, time.Now())
			out.Renamed = true
		}
	}

	if err := env.Docs.Save(ctx, out.Document, string(data), mode); err != nil {
		return nil, err
	}
	env.log().Info("document imported",
		zap.String("path", input.Path),
		zap.String("document", out.Document),
		zap.Int("bytes", out.Bytes),
	)

	if input.Index {
		if env.Index == nil {
			out.Warnings = append(out.Warnings, "passage index unavailable; imported document was not indexed")
			return out, nil
		}
		res, err := env.Index.IndexDocument(ctx, out.Document, string(data), indexOptions(env, false))
		if err != nil {
			out.Warnings = append(out.Warnings, "indexing failed: "+errorMessage(err))
			return out, nil
		}
		out.Indexed = res
	}
	return out, nil
}
