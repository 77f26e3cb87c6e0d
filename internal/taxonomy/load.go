package taxonomy

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bird-board/internal/utils"
)

//go:embed data/taxonomy.csv
var bundled embed.FS

// Load builds an Index from a taxonomy table in CSV form:
//
//	code,category,ordinal,common name,scientific name
//
// Lines starting with '#' are comments.
func Load(r io.Reader) (*Index, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.Comment = '#'

	ix := newIndex()
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, utils.NewAppError(utils.ErrTaxonomyLoad, "malformed taxonomy table", err)
		}
		line++

		ordinal, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, utils.NewAppError(utils.ErrTaxonomyLoad,
				fmt.Sprintf("bad ordinal on table line %d", line), err)
		}
		cat := Category(strings.TrimSpace(rec[1]))
		switch cat {
		case CategorySpecies, CategoryForm, CategoryHybrid, CategoryIntergrade,
			CategoryDomestic, CategorySlash, CategorySpuh:
		default:
			return nil, utils.NewAppError(utils.ErrTaxonomyLoad,
				fmt.Sprintf("unknown category %q on table line %d", rec[1], line), nil)
		}

		ix.add(Entry{
			Code:       strings.ToLower(strings.TrimSpace(rec[0])),
			Category:   cat,
			Ordinal:    ordinal,
			CommonName: strings.TrimSpace(rec[3]),
			SciName:    strings.TrimSpace(rec[4]),
		})
	}
	if ix.Len() == 0 {
		return nil, utils.NewAppError(utils.ErrTaxonomyLoad, "taxonomy table is empty", nil)
	}
	return ix, nil
}

// LoadFile loads a table from disk, or the bundled table when path is empty.
func LoadFile(path string) (*Index, error) {
	if path == "" {
		f, err := bundled.Open("data/taxonomy.csv")
		if err != nil {
			return nil, utils.NewAppError(utils.ErrTaxonomyLoad, "bundled taxonomy table missing", err)
		}
		defer f.Close()
		return Load(f)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrTaxonomyLoad, "cannot open taxonomy table "+path, err)
	}
	defer f.Close()
	return Load(f)
}
