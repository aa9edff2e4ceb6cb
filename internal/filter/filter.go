package filter

import (
	"strings"

	"github.com/danilopena0/canopy/internal/model"
)

// Ensure SearchFilter implements model.RecordFilter.
var _ model.RecordFilter = (*SearchFilter)(nil)

// SearchFilter matches produced records against the run's search params:
// title must contain any keyword, location must contain the requested
// location. Matching is case-insensitive substring; empty criteria pass all.
// Remote postings always pass the location check.
type SearchFilter struct {
	keywords []string
	location string
}

// NewSearchFilter builds a filter from the run's search params.
func NewSearchFilter(params model.SearchParams) *SearchFilter {
	return &SearchFilter{
		keywords: params.Keywords,
		location: strings.ToLower(params.Location),
	}
}

// Match reports whether the record satisfies the search params.
func (f *SearchFilter) Match(job model.RawJob) bool {
	titleLower := strings.ToLower(job.Title)

	if len(f.keywords) > 0 {
		matched := false
		for _, kw := range f.keywords {
			if strings.Contains(titleLower, strings.ToLower(kw)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.location != "" {
		locationLower := strings.ToLower(job.Location)
		if job.WorkType == "remote" || strings.Contains(locationLower, "remote") {
			return true
		}
		if !strings.Contains(locationLower, f.location) {
			return false
		}
	}

	return true
}
