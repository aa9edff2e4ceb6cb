package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/danilopena0/canopy/internal/model"
	"github.com/danilopena0/canopy/internal/normalize"
	"github.com/danilopena0/canopy/internal/similarity"
)

// MatchKind labels how a duplicate group was discovered.
type MatchKind string

const (
	// MatchExact groups canonical records sharing a dedup key.
	MatchExact MatchKind = "exact"
	// MatchFuzzy pairs same-company records whose titles clear the
	// caller-supplied similarity threshold.
	MatchFuzzy MatchKind = "fuzzy"
)

// DuplicateGroup is one set of canonical records that look like the same
// logical job. Similarity is set for fuzzy pairs only.
type DuplicateGroup struct {
	Kind       MatchKind
	Jobs       []model.StoredJob
	Similarity float64
}

// FindDuplicates audits the current canonical record set for duplicates that
// slipped past ingestion: exact groups share a dedup key, fuzzy pairs share a
// normalized company and a similar title. Read-only; surfacing candidates for
// human review is the whole job.
func FindDuplicates(ctx context.Context, store model.JobStore, threshold float64) ([]DuplicateGroup, error) {
	jobs, err := store.ListCanonical(ctx)
	if err != nil {
		return nil, fmt.Errorf("list canonical records: %w", err)
	}

	var groups []DuplicateGroup
	grouped := make(map[string]bool)

	byKey := make(map[string][]model.StoredJob)
	for _, j := range jobs {
		byKey[j.DedupKey] = append(byKey[j.DedupKey], j)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{Kind: MatchExact, Jobs: members})
		for _, m := range members {
			grouped[m.ID] = true
		}
	}

	byCompany := make(map[string][]model.StoredJob)
	for _, j := range jobs {
		if grouped[j.ID] {
			continue
		}
		norm := normalize.Company(j.Company)
		if norm == "" {
			continue
		}
		byCompany[norm] = append(byCompany[norm], j)
	}

	companies := make([]string, 0, len(byCompany))
	for company := range byCompany {
		companies = append(companies, company)
	}
	sort.Strings(companies)

	for _, company := range companies {
		members := byCompany[company]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				sim, ok := similarity.TitleSimilarity(members[i].Title, members[j].Title)
				if !ok || sim < threshold {
					continue
				}
				groups = append(groups, DuplicateGroup{
					Kind:       MatchFuzzy,
					Jobs:       []model.StoredJob{members[i], members[j]},
					Similarity: sim,
				})
			}
		}
	}

	return groups, nil
}
