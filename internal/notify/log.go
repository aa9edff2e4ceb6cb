// Package notify delivers end-of-run alerts for newly created canonical jobs.
package notify

import (
	"log/slog"

	"github.com/danilopena0/canopy/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new jobs to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each job with company, title, location, URL, and posted date.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(jobs []model.StoredJob) error {
	for _, j := range jobs {
		args := []any{"company", j.Company, "title", j.Title, "location", j.Location, "url", j.URL, "source", j.Source}
		if j.PostedDate != nil {
			args = append(args, "posted_date", *j.PostedDate)
		}
		if j.FitScore != nil {
			args = append(args, "fit_score", *j.FitScore)
		}
		n.logger.Info("new job", args...)
	}
	return nil
}
