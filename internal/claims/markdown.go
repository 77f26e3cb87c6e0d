package claims

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// referenceHosts are the taxonomy reference sites whose links carry an
// identification claim: a species page, a media catalog page with a
// taxonCode query parameter, or a field-guide page whose last path segment
// names a species.
var (
	speciesHost = "ebird.org"
	catalogHost = "macaulaylibrary.org"
	guideHost   = "allaboutbirds.org"
)

var (
	vagueSpanRe = regexp.MustCompile(`\+\+([^+\n]+)\+\+`)
	hintSpanRe  = regexp.MustCompile(`\+([^+\n]+)\+`)

	// Lines that open with an escaped '+' were escaped precisely so they
	// would not read as a delimiter; restore them before parsing.
	escapedPlusRe = regexp.MustCompile(`(?m)^\\\+`)
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// parseBody runs the markdown grammar: links from known reference domains
// become taxa or hints, single-`+` spans in plain text become hints, and
// double-`+` spans become vague hints.
func (e *Extractor) parseBody(body string) (taxa, hints, vague []string) {
	source := []byte(escapedPlusRe.ReplaceAllString(body, "+"))
	doc := markdown.Parser().Parse(text.NewReader(source))

	var plain strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, blocky := n.(*ast.Paragraph); blocky {
				plain.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Link:
			if code, hint, ok := e.classifyLink(string(t.Destination)); ok {
				taxa, hints = appendClaim(taxa, hints, code, hint)
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			if code, hint, ok := e.classifyLink(string(t.URL(source))); ok {
				taxa, hints = appendClaim(taxa, hints, code, hint)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			plain.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				plain.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	// Second pass over the remaining plain text: vague spans first so their
	// doubled delimiters are not misread as two hint spans.
	rest := plain.String()
	for _, m := range vagueSpanRe.FindAllStringSubmatch(rest, -1) {
		if v := normalizeVagueHint(m[1]); v != "" {
			vague = append(vague, v)
		}
	}
	rest = vagueSpanRe.ReplaceAllString(rest, "")
	for _, m := range hintSpanRe.FindAllStringSubmatch(rest, -1) {
		if h := normalizeHint(m[1]); h != "" {
			hints = append(hints, h)
		}
	}
	return taxa, hints, vague
}

func appendClaim(taxa, hints []string, code, hint string) ([]string, []string) {
	if code != "" {
		taxa = appendUniqueCode(taxa, code)
	}
	if hint != "" {
		hints = append(hints, hint)
	}
	return taxa, hints
}

// classifyLink mines a link destination for a claim. It returns either a
// ready taxonomy code (species/catalog pages embed the code directly) or a
// hint (guide pages only name the species).
func (e *Extractor) classifyLink(dest string) (code, hint string, ok bool) {
	u, err := url.Parse(dest)
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case hostMatches(host, speciesHost):
		segs := pathSegments(u)
		for i, s := range segs {
			if s == "species" && i+1 < len(segs) {
				c := strings.ToLower(segs[i+1])
				if e.tax.ValidCode(c) {
					return c, "", true
				}
				return "", "", false
			}
		}
	case hostMatches(host, catalogHost):
		c := strings.ToLower(u.Query().Get("taxonCode"))
		if c != "" && e.tax.ValidCode(c) {
			return c, "", true
		}
	case hostMatches(host, guideHost):
		segs := pathSegments(u)
		if len(segs) >= 2 && segs[0] == "guide" {
			name := strings.NewReplacer("_", " ", "-", " ").Replace(segs[len(segs)-1])
			if h := normalizeHint(name); h != "" {
				return "", h, true
			}
		}
	}
	return "", "", false
}

func hostMatches(host, want string) bool {
	return host == want || strings.HasSuffix(host, "."+want)
}

func pathSegments(u *url.URL) []string {
	var segs []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// hintSynonyms is the small synonym/plural table applied to hint tokens
// before they are cached or sent to the external search.
var hintSynonyms = map[string]string{
	"grey":     "gray",
	"babies":   "baby",
	"geese":    "goose",
	"gulls":    "gull",
	"hawks":    "hawk",
	"owls":     "owl",
	"sparrows": "sparrow",
}

// normalizeHint canonicalizes hint text so equal claims share a cache slot:
// trim, lowercase, synonym folding, and internal whitespace encoded as %20.
func normalizeHint(raw string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := words[:0]
	for _, w := range words {
		w = strings.TrimSuffix(strings.TrimSuffix(w, "'s"), "s'")
		if sub, ok := hintSynonyms[w]; ok {
			w = sub
		}
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, "%20")
}

// normalizeVagueHint keeps vague hints closer to verbatim; they go to an
// unscoped search and are never cached, so aggressive folding buys nothing.
func normalizeVagueHint(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(raw))), "%20")
}
