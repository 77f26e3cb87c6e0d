package taxonomy

// Category buckets every name in the taxonomy table. Resolution picks one or
// more candidate categories from structural cues in the query text before
// scoring names.
type Category string

const (
	CategorySpecies    Category = "species"
	CategoryForm       Category = "issf" // subspecies / identifiable form
	CategoryHybrid     Category = "hybrid"
	CategoryIntergrade Category = "intergrade"
	CategoryDomestic   Category = "domestic"
	CategorySlash      Category = "slash"
	CategorySpuh       Category = "spuh" // identified only to a group, "gull sp."
)

// Locale selects which name column a token index was built from.
type Locale string

const (
	LocaleCommon     Locale = "common"
	LocaleScientific Locale = "scientific"
)

// Codes with hard-wired handling in Resolve.
const (
	CodeDomesticChicken = "redjun1"
	CodeNonavian        = "nonavian"
)

// Entry is one row of the flat code table.
type Entry struct {
	Code       string
	Category   Category
	Ordinal    int // taxonomic sort position
	CommonName string
	SciName    string
}
