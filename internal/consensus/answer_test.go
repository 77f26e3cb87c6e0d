package consensus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bird-board/internal/models"
)

func TestSuggestionsUnionAndOverride(t *testing.T) {
	a := NewAnswer()

	assert.True(t, a.Apply(models.NewPlusSuggestion("blujay")))
	assert.True(t, a.Apply(models.NewPlusSuggestion("rethaw")))
	assert.Equal(t, []string{"blujay", "rethaw"}, a.Taxa())

	// Re-applying the same taxa is a no-op.
	assert.False(t, a.Apply(models.NewPlusSuggestion("blujay")))

	assert.True(t, a.Apply(models.NewOverrideSuggestion("norcar")))
	assert.Equal(t, []string{"norcar"}, a.Taxa())
	assert.Empty(t, a.Reviewers())
}

func TestReviewedAnswerIgnoresSuggestions(t *testing.T) {
	a := NewAnswer()
	a.Apply(models.NewPlusReview("revkim", "blujay"))

	assert.False(t, a.Apply(models.NewPlusSuggestion("rethaw")))
	assert.False(t, a.Apply(models.NewOverrideSuggestion("norcar")))
	assert.Equal(t, []string{"blujay"}, a.Taxa())

	// Further reviews still change state.
	assert.True(t, a.Apply(models.NewPlusReview("revpat", "rethaw")))
	assert.Equal(t, []string{"blujay", "rethaw"}, a.Taxa())
	assert.Equal(t, []string{"revkim", "revpat"}, a.Reviewers())
}

func TestOverrideReviewAlwaysCredits(t *testing.T) {
	a := NewAnswer()
	a.Apply(models.NewPlusSuggestion("blujay"))

	// Even an override to the identical taxa records the reviewer.
	assert.True(t, a.Apply(models.NewOverrideReview("revkim", "blujay")))
	assert.Equal(t, []string{"blujay"}, a.Taxa())
	assert.Equal(t, []string{"revkim"}, a.Reviewers())
}

func TestAdditiveReviewCreditRules(t *testing.T) {
	// First ratification with standing taxa credits even without a change.
	a := NewAnswer()
	a.Apply(models.NewPlusSuggestion("blujay"))
	assert.True(t, a.Apply(models.NewPlusReview("revkim", "blujay")))
	assert.Equal(t, []string{"revkim"}, a.Reviewers())

	// A later additive review with nothing new credits nobody.
	assert.False(t, a.Apply(models.NewPlusReview("revpat", "blujay")))
	assert.Equal(t, []string{"revkim"}, a.Reviewers())

	// But one that changes taxa does.
	assert.True(t, a.Apply(models.NewPlusReview("revpat", "rethaw")))
	assert.Equal(t, []string{"revkim", "revpat"}, a.Reviewers())
}

func TestEmptyAdditiveReviewOnEmptyAnswer(t *testing.T) {
	// Nothing to ratify: no credit, no change.
	a := NewAnswer()
	assert.False(t, a.Apply(models.NewPlusReview("revkim")))
	assert.True(t, a.Empty())
	assert.False(t, a.Reviewed())
}

func TestSignificancePredicatesMatchApply(t *testing.T) {
	a := NewAnswer()
	a.Apply(models.NewPlusSuggestion("blujay"))

	assert.False(t, a.SuggestionSignificant(models.NewPlusSuggestion("blujay")))
	assert.True(t, a.SuggestionSignificant(models.NewPlusSuggestion("rethaw")))
	assert.False(t, a.SuggestionSignificant(models.NewOverrideSuggestion("blujay")))
	assert.True(t, a.SuggestionSignificant(models.NewOverrideSuggestion("norcar")))

	// First ratify counts as significant even with no new taxa.
	assert.True(t, a.ReviewSignificant(models.NewPlusReview("revkim", "blujay")))
	a.Apply(models.NewPlusReview("revkim", "blujay"))
	assert.False(t, a.ReviewSignificant(models.NewPlusReview("revpat", "blujay")))
	assert.True(t, a.ReviewSignificant(models.NewOverrideReview("revpat", "blujay")))

	// An override restating the current taxa only matters when it brings a
	// new reviewer along.
	assert.False(t, a.ReviewSignificant(models.NewOverrideReview("revkim", "blujay")))
	a.Apply(models.NewOverrideReview("revpat", "blujay"))
	assert.False(t, a.ReviewSignificant(models.NewOverrideReview("revpat", "blujay")))
	assert.True(t, a.ReviewSignificant(models.NewOverrideReview("revpat", "rethaw")))

	// Once reviewed, suggestions are never significant.
	assert.False(t, a.SuggestionSignificant(models.NewPlusSuggestion("rethaw")))
}

func TestReplayIsDeterministic(t *testing.T) {
	motions := []models.Motion{
		models.NewPlusSuggestion("blujay"),
		models.NewPlusSuggestion("rethaw", "blujay"),
		models.NewPlusReview("revkim"),
		models.NewOverrideReview("revpat", "norcar"),
		models.NewPlusSuggestion("moudov"),
	}

	a := NewAnswer()
	b := NewAnswer()
	for _, m := range motions {
		a.Apply(m)
		b.Apply(m)
	}
	assert.Equal(t, a.Taxa(), b.Taxa())
	assert.Equal(t, a.Reviewers(), b.Reviewers())
	assert.Equal(t, []string{"norcar"}, a.Taxa())
	assert.Equal(t, []string{"revkim", "revpat"}, a.Reviewers())
	assert.True(t, a.Matches([]string{"norcar"}, []string{"revpat", "revkim"}))
}
