package score

import (
	"context"

	"github.com/danilopena0/canopy/internal/model"
)

// NopScorer is a no-op scorer used when scoring is disabled.
// It returns a zero result with no LLM calls.
type NopScorer struct{}

// NewNopScorer returns a NopScorer.
func NewNopScorer() *NopScorer {
	return &NopScorer{}
}

// Score returns a zero result.
func (n *NopScorer) Score(_ context.Context, _ model.StoredJob) (model.ScoreResult, error) {
	return model.ScoreResult{}, nil
}
