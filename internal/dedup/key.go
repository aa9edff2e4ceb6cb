// Package dedup derives the deterministic identifiers used to recognize
// re-observations and cross-source duplicates of job postings.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/danilopena0/canopy/internal/normalize"
)

// digestLen is the number of hex characters kept from the full digest. Plenty
// for tens of thousands of records; this is not an adversarial setting.
const digestLen = 16

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:digestLen]
}

// JobID derives the record store's primary key from a posting URL.
// Same URL, same ID, always.
func JobID(url string) string {
	return shortHash(url)
}

// Key derives the duplicate-candidate key from normalized title and company,
// plus the first token of the normalized location when it names an actual
// place. Records sharing a Key are candidates for being the same logical job,
// not a certainty.
func Key(title, company, location string) string {
	parts := []string{normalize.Title(title), normalize.Company(company)}

	if location != "" {
		loc := normalize.Location(location)
		// Only specific places contribute; remote/hybrid say nothing about
		// where the job is.
		if loc != "" && loc != "remote" && loc != "hybrid" {
			if city, _, _ := strings.Cut(loc, " "); city != "" {
				parts = append(parts, city)
			}
		}
	}

	return shortHash(strings.Join(parts, "|"))
}
