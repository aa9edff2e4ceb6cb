package score

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/fit_score.md
var fitScorePromptRaw string

// FitScoreTemplate is the parsed prompt template for fit scoring.
// Parsed once at package init; reused on every Score call.
var FitScoreTemplate = template.Must(template.New("fit_score").Parse(fitScorePromptRaw))
