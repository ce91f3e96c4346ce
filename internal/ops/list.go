package ops

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/hpungsan/scribe/internal/db"
	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
)

// DocumentSummary describes a stored document and its index state.
type DocumentSummary struct {
	docs.Info
	Indexed  bool   `json:"indexed"`
	Passages int    `json:"passages,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	// Stale is true when the file changed after it was indexed.
	Stale bool `json:"stale,omitempty"`
}

// ListDocumentsOutput contains the result of the ListDocuments operation.
type ListDocumentsOutput struct {
	Dir       string            `json:"dir"`
	Documents []DocumentSummary `json:"documents"`
	// Orphans are indexed documents whose file no longer exists.
	Orphans []string `json:"orphans,omitempty"`
}

// ListDocuments lists stored documents, sorted by name, annotated with index state.
func ListDocuments(ctx context.Context, env *Env) (*ListDocumentsOutput, error) {
	if env.Docs == nil {
		return nil, errors.NewInternal(errNoStore)
	}
	infos, err := env.Docs.List(ctx)
	if err != nil {
		return nil, err
	}

	indexed := map[string]db.DocumentRecord{}
	if env.Index != nil {
		records, err := env.Index.Documents(ctx)
		if err != nil {
			env.log().Warn("could not read index state", zap.Error(err))
		}
		for _, r := range records {
			indexed[r.Name] = r
		}
	}

	out := &ListDocumentsOutput{Dir: env.Docs.Dir(), Documents: make([]DocumentSummary, 0, len(infos))}
	for _, info := range infos {
		s := DocumentSummary{Info: info}
		if r, ok := indexed[info.Name]; ok {
			s.Indexed = true
			s.Passages = r.PassageCount
			s.Strategy = r.Strategy
			s.Stale = info.Modified > r.IndexedAt
			delete(indexed, info.Name)
		}
		out.Documents = append(out.Documents, s)
	}
	for name := range indexed {
		out.Orphans = append(out.Orphans, name)
	}
	slices.Sort(out.Orphans)
	return out, nil
}
