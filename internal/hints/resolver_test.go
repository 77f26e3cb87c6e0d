package hints

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"bird-board/internal/models"
	"bird-board/internal/taxonomy"
)

type fakeSearcher struct {
	scoped map[string]string
	any    map[string]string
	err    error

	scopedCalls int
	anyCalls    int
	lastCat     taxonomy.Category
}

func (f *fakeSearcher) SearchScoped(_ context.Context, cat taxonomy.Category, query string) (string, error) {
	f.scopedCalls++
	f.lastCat = cat
	if f.err != nil {
		return "", f.err
	}
	return f.scoped[query], nil
}

func (f *fakeSearcher) SearchAny(_ context.Context, query string) (string, error) {
	f.anyCalls++
	if f.err != nil {
		return "", f.err
	}
	return f.any[query], nil
}

func testResolver(t *testing.T, api *fakeSearcher) (*Resolver, *HintCache) {
	t.Helper()
	tax, err := taxonomy.LoadFile("")
	assert.NoError(t, err)
	cache := NewHintCache()
	return NewResolver(tax, cache, api, slog.Default()), cache
}

func TestPurifyOneLocalIndexFirst(t *testing.T) {
	api := &fakeSearcher{}
	r, _ := testResolver(t, api)

	ex := models.Extract{
		Motion: models.NewPlusSuggestion(),
		Hints:  []string{"blue%20jay"},
	}
	out, err := r.PurifyOne(context.Background(), ex)
	assert.NoError(t, err)
	assert.True(t, out.Resolved())
	assert.Equal(t, []string{"blujay"}, out.Motion.PlusTaxa())
	assert.Equal(t, 0, api.scopedCalls)
}

func TestPurifyOneFallsBackToAPI(t *testing.T) {
	api := &fakeSearcher{scoped: map[string]string{"painted bunting": "paibun"}}
	r, cache := testResolver(t, api)

	ex := models.Extract{
		Motion: models.NewPlusSuggestion(),
		Hints:  []string{"painted%20bunting"},
	}
	out, err := r.PurifyOne(context.Background(), ex)
	assert.NoError(t, err)
	assert.Equal(t, []string{"paibun"}, out.Motion.PlusTaxa())
	assert.Equal(t, 1, api.scopedCalls)
	assert.Equal(t, taxonomy.CategorySpecies, api.lastCat)

	// The result is cached; a second resolution takes no external call.
	code, hit := cache.Get("painted%20bunting")
	assert.True(t, hit)
	assert.Equal(t, "paibun", code)

	out2, err := r.PurifyOne(context.Background(), models.Extract{
		Motion: models.NewPlusSuggestion(),
		Hints:  []string{"painted%20bunting"},
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"paibun"}, out2.Motion.PlusTaxa())
	assert.Equal(t, 1, api.scopedCalls)
}

func TestPurifyOneCachesNull(t *testing.T) {
	api := &fakeSearcher{}
	r, cache := testResolver(t, api)

	ex := models.Extract{
		Motion: models.NewPlusSuggestion(),
		Hints:  []string{"mystery%20blob"},
	}
	out, err := r.PurifyOne(context.Background(), ex)
	assert.NoError(t, err)
	assert.True(t, out.Resolved())
	assert.True(t, out.Motion.Empty())

	code, hit := cache.Get("mystery%20blob")
	assert.True(t, hit)
	assert.Equal(t, "", code)
}

func TestPurifyOneVagueNeverCached(t *testing.T) {
	api := &fakeSearcher{any: map[string]string{"small brown bird": "houspa"}}
	r, cache := testResolver(t, api)

	ex := models.Extract{
		Motion:     models.NewPlusSuggestion(),
		VagueHints: []string{"small%20brown%20bird"},
	}
	out, err := r.PurifyOne(context.Background(), ex)
	assert.NoError(t, err)
	assert.Equal(t, []string{"houspa"}, out.Motion.PlusTaxa())
	assert.Equal(t, 1, api.anyCalls)

	_, hit := cache.Get("small%20brown%20bird")
	assert.False(t, hit)
}

func TestPurifyOneErrorLeavesExtractUnchanged(t *testing.T) {
	api := &fakeSearcher{err: errors.New("upstream down")}
	r, _ := testResolver(t, api)

	ex := models.Extract{
		Motion: models.NewPlusSuggestion(),
		Hints:  []string{"painted%20bunting"},
	}
	out, err := r.PurifyOne(context.Background(), ex)
	assert.Error(t, err)
	assert.Equal(t, []string{"painted%20bunting"}, out.Hints)
	assert.True(t, out.Motion.Empty())
}

func TestPurifyOnePlainBeforeVague(t *testing.T) {
	api := &fakeSearcher{scoped: map[string]string{"painted bunting": "paibun"}}
	r, _ := testResolver(t, api)

	ex := models.Extract{
		Motion:     models.NewPlusSuggestion(),
		Hints:      []string{"painted%20bunting"},
		VagueHints: []string{"small%20brown%20bird"},
	}
	out, err := r.PurifyOne(context.Background(), ex)
	assert.NoError(t, err)
	assert.Empty(t, out.Hints)
	assert.Equal(t, []string{"small%20brown%20bird"}, out.VagueHints)
	assert.Equal(t, 0, api.anyCalls)
}

func TestPurifyOneFoldsIntoReview(t *testing.T) {
	api := &fakeSearcher{}
	r, _ := testResolver(t, api)

	ex := models.Extract{
		Motion: models.NewPlusReview("revkim"),
		Hints:  []string{"blue%20jay"},
	}
	out, err := r.PurifyOne(context.Background(), ex)
	assert.NoError(t, err)
	rev, ok := out.Motion.(models.Review)
	assert.True(t, ok)
	assert.Equal(t, "revkim", rev.Reviewer)
	assert.Equal(t, []string{"blujay"}, rev.Plus)
}
