package hints

import (
	"context"
	"log/slog"
	"strings"

	"bird-board/internal/models"
	"bird-board/internal/taxonomy"
)

// MaxHintsPerComment bounds the worst-case external calls one comment can
// cost. Hints past the cap are dropped unresolved.
const MaxHintsPerComment = 10

// Searcher is the external taxonomy-provider lookup. Both calls return the
// best-matching code, "" when the provider has no match, and an error only
// for transport or status failures.
type Searcher interface {
	SearchScoped(ctx context.Context, cat taxonomy.Category, query string) (string, error)
	SearchAny(ctx context.Context, query string) (string, error)
}

// Resolver purifies extracts one hint at a time.
type Resolver struct {
	tax   *taxonomy.Index
	cache *HintCache
	api   Searcher
	log   *slog.Logger
}

func NewResolver(tax *taxonomy.Index, cache *HintCache, api Searcher, log *slog.Logger) *Resolver {
	return &Resolver{tax: tax, cache: cache, api: api, log: log}
}

// PurifyOne resolves exactly one outstanding hint (plain hints before vague
// ones) and folds any resulting taxon into the extract's motion. A hint with
// no match anywhere purifies to the null code and is dropped. The returned
// error means the external call failed and the same extract should be retried
// after a backoff; the extract is returned unchanged in that case.
func (r *Resolver) PurifyOne(ctx context.Context, ex models.Extract) (models.Extract, error) {
	switch {
	case len(ex.Hints) > 0:
		hint := ex.Hints[0]
		code, err := r.resolveHint(ctx, hint)
		if err != nil {
			return ex, err
		}
		ex.Hints = ex.Hints[1:]
		if code == "" {
			r.log.Debug("hint purified to null", "hint", hint)
		}
		ex.Motion = foldTaxon(ex.Motion, code)
		return ex, nil

	case len(ex.VagueHints) > 0:
		hint := ex.VagueHints[0]
		// Vague hints always take the unscoped search and are never cached;
		// their barely-normalized text would pollute the cache keyspace.
		code, err := r.api.SearchAny(ctx, queryText(hint))
		if err != nil {
			return ex, err
		}
		ex.VagueHints = ex.VagueHints[1:]
		ex.Motion = foldTaxon(ex.Motion, code)
		return ex, nil

	default:
		return ex, nil
	}
}

func (r *Resolver) resolveHint(ctx context.Context, hint string) (string, error) {
	query := queryText(hint)

	if code := r.tax.Resolve(query); code != "" {
		return code, nil
	}
	if code, hit := r.cache.Get(hint); hit {
		return code, nil
	}

	code, err := r.api.SearchScoped(ctx, taxonomy.PrimaryCategory(query), query)
	if err != nil {
		return "", err
	}
	// Null results are cached too; a hint that found nothing once will find
	// nothing next minute.
	r.cache.Put(hint, code)
	return code, nil
}

func foldTaxon(m models.Motion, code string) models.Motion {
	if code == "" {
		return m
	}
	switch v := m.(type) {
	case models.Suggestion:
		return v.AddTaxon(code)
	case models.Review:
		return v.AddTaxon(code)
	default:
		return m
	}
}

func queryText(hint string) string {
	return strings.ReplaceAll(hint, "%20", " ")
}
