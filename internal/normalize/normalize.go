// Package normalize produces canonical comparison forms of job titles,
// company names, and locations. All functions are pure and safe for
// unsynchronized concurrent use.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// substitution is one ordered rewrite rule. Rules run after lowercasing and
// diacritic stripping but before special-character removal, so expansions may
// introduce words that still get collapsed.
type substitution struct {
	re   *regexp.Regexp
	repl string
}

func sub(pattern, repl string) substitution {
	return substitution{re: regexp.MustCompile(pattern), repl: repl}
}

// titleSubs expands role abbreviations and drops seniority level markers.
var titleSubs = []substitution{
	sub(`\bsr\.?\b`, "senior"),
	sub(`\bjr\.?\b`, "junior"),
	sub(`\bmid-?level\b`, "mid"),
	sub(`\blead\b`, "senior"),
	sub(`\bprincipal\b`, "senior"),
	sub(`\bstaff\b`, "senior"),
	sub(`\bii+\b`, ""), // Roman numerals II, III
	sub(`\b[ivx]+\b`, ""),
	sub(`\b[123]\b`, ""), // level numbers
	sub(`\bml\b`, "machine learning"),
	sub(`\bai\b`, "artificial intelligence"),
	sub(`\bds\b`, "data science"),
	sub(`\bde\b`, "data engineer"),
	sub(`\bswe\b`, "software engineer"),
	sub(`\bengr\.?\b`, "engineer"),
	sub(`\bdev\.?\b`, "developer"),
	sub(`\bops\b`, "operations"),
	sub(`\bfull-?stack\b`, "fullstack"),
	sub(`\bfront-?end\b`, "frontend"),
	sub(`\bback-?end\b`, "backend"),
}

// companySubs strips legal-entity suffixes and generic fillers.
var companySubs = []substitution{
	sub(`\binc\.?\b`, ""),
	sub(`\bincorporated\b`, ""),
	sub(`\bllc\.?\b`, ""),
	sub(`\bltd\.?\b`, ""),
	sub(`\blimited\b`, ""),
	sub(`\bcorp\.?\b`, ""),
	sub(`\bcorporation\b`, ""),
	sub(`\bco\.?\b`, ""),
	sub(`\bcompany\b`, ""),
	sub(`\bgroup\b`, ""),
	sub(`\bholdings\b`, ""),
	sub(`\binternational\b`, ""),
	sub(`\bglobal\b`, ""),
	sub(`\bthe\b`, ""),
	sub(`\b&\b`, "and"),
	sub(`\binsurance\b`, ""),
	sub(`\btechnologies?\b`, ""),
	sub(`\bsolutions?\b`, ""),
	sub(`\bservices?\b`, ""),
	sub(`\bsystems?\b`, ""),
	sub(`\bconsulting\b`, ""),
	sub(`-`, ""), // H-E-B → HEB
}

// locationSubs expands state abbreviations and collapses remote/hybrid
// variants to the bare word.
var locationSubs = []substitution{
	sub(`\btx\b`, "texas"),
	sub(`\bca\b`, "california"),
	sub(`\bny\b`, "new york"),
	sub(`,\s*usa?\b`, ""),
	sub(`,\s*united states\b`, ""),
	sub(`\bremote\b.*`, "remote"),
	sub(`\bhybrid\b.*`, "hybrid"),
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// stripDiacritics decomposes and drops combining marks (café → cafe).
var stripDiacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// apply runs the shared pipeline: lowercase, strip diacritics, ordered
// substitutions, strip non-alphanumerics, collapse whitespace. Empty input
// returns the empty string; callers must treat that as "no signal".
func apply(text string, subs []substitution) string {
	if text == "" {
		return ""
	}

	text = strings.ToLower(text)

	if stripped, _, err := transform.String(stripDiacritics, text); err == nil {
		text = stripped
	}

	for _, s := range subs {
		text = s.re.ReplaceAllString(text, s.repl)
	}

	text = nonAlnum.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Title returns the canonical comparison form of a job title.
func Title(title string) string {
	return apply(title, titleSubs)
}

// Company returns the canonical comparison form of a company name. Spaces are
// removed entirely so "H-E-B" and "HEB" compare equal.
func Company(company string) string {
	return strings.ReplaceAll(apply(company, companySubs), " ", "")
}

// Location returns the canonical comparison form of a location string.
func Location(location string) string {
	return apply(location, locationSubs)
}
