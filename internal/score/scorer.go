// Package score evaluates stored jobs against the user's profile with an LLM.
package score

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/danilopena0/canopy/internal/model"
)

// Ensure LLMScorer implements model.Scorer.
var _ model.Scorer = (*LLMScorer)(nil)

// LLMScorer implements model.Scorer using an LLM provider.
type LLMScorer struct {
	provider LLMProvider
	profile  Profile
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMScorer creates a scorer for the given candidate profile.
func NewLLMScorer(provider LLMProvider, profile Profile, tmpl *template.Template, logger *slog.Logger) *LLMScorer {
	return &LLMScorer{
		provider: provider,
		profile:  profile,
		tmpl:     tmpl,
		logger:   logger,
	}
}

// promptData is the pre-formatted field set the prompt template renders.
type promptData struct {
	Name            string
	TargetTitles    string
	ExperienceYears string
	Languages       string
	MLTools         string
	Platforms       string
	OtherSkills     string
	Locations       string
	WorkTypes       string
	Industries      string
	MinSalary       string
	Dealbreakers    string

	JobTitle     string
	Company      string
	Location     string
	WorkType     string
	SalaryRange  string
	Description  string
	Requirements string
}

// rawFitScore is the JSON shape returned by the LLM (matches fitScoreSchema).
type rawFitScore struct {
	Score                int      `json:"score"`
	Rationale            string   `json:"rationale"`
	MatchingSkills       []string `json:"matching_skills"`
	MissingSkills        []string `json:"missing_skills"`
	DealbreakerTriggered *string  `json:"dealbreaker_triggered"`
}

// Score evaluates job against the profile. The score is clamped to 0-100 and
// forced to 0 when the model reports a triggered dealbreaker.
func (s *LLMScorer) Score(ctx context.Context, job model.StoredJob) (model.ScoreResult, error) {
	var promptBuf bytes.Buffer
	if err := s.tmpl.Execute(&promptBuf, s.buildPromptData(job)); err != nil {
		return model.ScoreResult{}, fmt.Errorf("render prompt: %w", err)
	}

	s.logger.Debug("scoring job", "title", job.Title, "company", job.Company)

	raw, err := s.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("llm complete: %w", err)
	}

	var fs rawFitScore
	if err := json.Unmarshal([]byte(raw), &fs); err != nil {
		return model.ScoreResult{}, fmt.Errorf("unmarshal fit score JSON: %w", err)
	}

	result := model.ScoreResult{
		Score:     clampScore(fs.Score),
		Rationale: fs.Rationale,
	}

	if fs.DealbreakerTriggered != nil && *fs.DealbreakerTriggered != "" {
		result.Score = 0
		result.Rationale = fmt.Sprintf("Dealbreaker: %s. %s", *fs.DealbreakerTriggered, fs.Rationale)
	}

	return result, nil
}

func (s *LLMScorer) buildPromptData(job model.StoredJob) promptData {
	p := s.profile
	return promptData{
		Name:            orDefault(p.Name, "Candidate"),
		TargetTitles:    joinOr(p.TargetTitles, "Any"),
		ExperienceYears: intOr(p.ExperienceYears, "Not specified"),
		Languages:       joinOr(p.Skills.Languages, "Not specified"),
		MLTools:         joinOr(p.Skills.MLTools, "Not specified"),
		Platforms:       joinOr(p.Skills.Platforms, "Not specified"),
		OtherSkills:     joinOr(p.Skills.Other, "Not specified"),
		Locations:       joinOr(p.Locations, "Any"),
		WorkTypes:       joinOr(p.WorkTypes, "Any"),
		Industries:      joinOr(p.Industries, "Any"),
		MinSalary:       salaryOr(p.MinSalary, "Not specified"),
		Dealbreakers:    joinOr(p.Dealbreakers, "None"),

		JobTitle:     orDefault(job.Title, "Unknown"),
		Company:      orDefault(job.Company, "Unknown"),
		Location:     orDefault(job.Location, "Not specified"),
		WorkType:     orDefault(job.WorkType, "Not specified"),
		SalaryRange:  formatSalaryRange(job.SalaryMin, job.SalaryMax),
		Description:  orDefault(job.Description, "Not provided"),
		Requirements: joinOr(job.Requirements, "Not specified"),
	}
}

func formatSalaryRange(min, max int) string {
	switch {
	case min > 0 && max > 0 && min != max:
		return fmt.Sprintf("$%d - $%d", min, max)
	case min > 0:
		return fmt.Sprintf("$%d+", min)
	case max > 0:
		return fmt.Sprintf("Up to $%d", max)
	default:
		return "Not specified"
	}
}

func clampScore(score int) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return float64(score)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

func intOr(n int, def string) string {
	if n <= 0 {
		return def
	}
	return fmt.Sprintf("%d", n)
}

func salaryOr(n int, def string) string {
	if n <= 0 {
		return def
	}
	return fmt.Sprintf("$%d", n)
}
