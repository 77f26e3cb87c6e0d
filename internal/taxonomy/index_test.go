package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func loadTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := LoadFile("")
	assert.NoError(t, err)
	assert.Greater(t, ix.Len(), 0)
	return ix
}

func TestResolveExactNames(t *testing.T) {
	ix := loadTestIndex(t)

	assert.Equal(t, "blujay", ix.Resolve("Blue Jay"))
	assert.Equal(t, "blujay", ix.Resolve("blue jay"))
	assert.Equal(t, "rethaw", ix.Resolve("Red-tailed Hawk"))
	assert.Equal(t, "rethaw", ix.Resolve("red tailed hawk"))
	assert.Equal(t, "eursta", ix.Resolve("European Starling"))
	assert.Equal(t, "eursta", ix.Resolve("Eurasian Starling"))
}

func TestResolveScientificNames(t *testing.T) {
	ix := loadTestIndex(t)

	assert.Equal(t, "blujay", ix.Resolve("Cyanocitta cristata"))
	assert.Equal(t, "turvul", ix.Resolve("Cathartes aura"))
}

func TestResolvePartialNames(t *testing.T) {
	ix := loadTestIndex(t)

	// Single generic word: the shorter candidate name wins the tie.
	assert.Equal(t, "eurmag1", ix.Resolve("Magpie"))
	// A qualifier bonus never flips the winner on its own.
	assert.Equal(t, "eurmag1", ix.Resolve("Common Magpie"))
}

func TestResolveSpecialCases(t *testing.T) {
	ix := loadTestIndex(t)

	// Chicken without "prairie" is always the domestic chicken.
	assert.Equal(t, CodeDomesticChicken, ix.Resolve("chicken"))
	assert.Equal(t, CodeDomesticChicken, ix.Resolve("a chicken I saw"))
	assert.Equal(t, "grpchi", ix.Resolve("Greater Prairie-Chicken"))

	assert.Equal(t, CodeNonavian, ix.Resolve("nonavian"))
	assert.Equal(t, CodeNonavian, ix.Resolve("Non-avian animal"))
}

func TestResolveCategories(t *testing.T) {
	ix := loadTestIndex(t)

	assert.Equal(t, "gull1", ix.Resolve("gull sp."))
	assert.Equal(t, "scaup1", ix.Resolve("Greater/Lesser Scaup"))
	assert.Equal(t, "wgwgul1", ix.Resolve("Western x Glaucous-winged Gull"))
	assert.Equal(t, "bkccar1", ix.Resolve("Black-capped x Carolina Chickadee (hybrid)"))
	assert.Equal(t, "norfli3", ix.Resolve("Northern Flicker intergrade"))
	assert.Equal(t, "mallar3", ix.Resolve("domestic mallard"))
	assert.Equal(t, "rethaw1", ix.Resolve("Red-tailed Hawk (Harlan's)"))
}

func TestResolveRejectsGarbage(t *testing.T) {
	ix := loadTestIndex(t)

	assert.Equal(t, "", ix.Resolve("qwertyuiop"))
	assert.Equal(t, "", ix.Resolve(""))
	assert.Equal(t, "", ix.Resolve("!!! ???"))
}

func TestResolveDeterministic(t *testing.T) {
	ix := loadTestIndex(t)

	for i := 0; i < 50; i++ {
		assert.Equal(t, "eurmag1", ix.Resolve("Magpie"))
		assert.Equal(t, "rethaw", ix.Resolve("Red-tailed Hawk"))
	}
}

func TestCodeLookups(t *testing.T) {
	ix := loadTestIndex(t)

	assert.True(t, ix.ValidCode("blujay"))
	assert.True(t, ix.ValidCode("BLUJAY"))
	assert.False(t, ix.ValidCode("notacode"))

	assert.Equal(t, "Blue Jay", ix.CommonName("blujay"))
	assert.Equal(t, "mystery", ix.CommonName("mystery"))

	assert.Equal(t, 8700, ix.Ordinal("blujay"))
	assert.Equal(t, -1, ix.Ordinal("notacode"))

	e, ok := ix.Lookup("rethaw")
	assert.True(t, ok)
	assert.Equal(t, CategorySpecies, e.Category)
}

func TestCategoriesFor(t *testing.T) {
	assert.Equal(t, []Category{CategoryHybrid}, CategoriesFor(Normalize("some hybrid gull")))
	assert.Equal(t, []Category{CategorySlash}, CategoriesFor(Normalize("Greater/Lesser Scaup")))
	assert.Equal(t, []Category{CategorySpuh}, CategoriesFor(Normalize("gull sp.")))
	assert.Equal(t, []Category{CategoryHybrid, CategoryIntergrade}, CategoriesFor(Normalize("Western x Glaucous-winged Gull")))
	assert.Equal(t, []Category{CategorySpecies, CategoryForm, CategoryHybrid}, CategoriesFor(Normalize("Blue Jay")))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "mexican jay", Normalize("Méxican Jay"))
	assert.Equal(t, "gray jay", Normalize("Grey Jay"))
	assert.Equal(t, "bald eagle", Normalize("juvenile Bald Eagle"))
	assert.Equal(t, "red tailed hawk", Normalize("Red-tailed   Hawk!"))
}
