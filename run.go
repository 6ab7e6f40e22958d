package docparse

import (
	"context"
	"strings"
	"time"
)

// Run is a recorded batch run.
type Run struct {
	ID         string    `json:"id"`
	Provider   Provider  `json:"provider"`
	InputPath  string    `json:"inputPath"`
	OutputDir  string    `json:"outputDir"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Outcomes   []Outcome `json:"outcomes,omitempty"`
}

// Outcome is the recorded result for one document of a run.
type Outcome struct {
	FileName    string `json:"fileName"`
	OutputPath  string `json:"outputPath,omitempty"`
	Pages       int    `json:"pages"`
	ContentHash string `json:"contentHash,omitempty"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`

	// Text is the extracted text used to compute ContentHash. Not persisted.
	Text string `json:"-"`
}

// NewRun summarizes a batch result as a Run.
func NewRun(provider Provider, inputPath, outputDir string, startedAt, finishedAt time.Time, result *BatchResult) *Run {
	run := &Run{
		Provider:   provider,
		InputPath:  inputPath,
		OutputDir:  outputDir,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if result == nil {
		return run
	}
	run.Succeeded = len(result.Successes)
	run.Failed = len(result.Failures)
	for _, s := range result.Successes {
		texts := make([]string, 0, len(s.Document.Pages))
		for _, p := range s.Document.Pages {
			texts = append(texts, p.Text)
		}
		run.Outcomes = append(run.Outcomes, Outcome{
			FileName:   s.Document.FileName,
			OutputPath: s.OutputPath,
			Pages:      len(s.Document.Pages),
			Text:       strings.Join(texts, "\n"),
		})
	}
	for _, f := range result.Failures {
		run.Outcomes = append(run.Outcomes, Outcome{
			FileName: f.FileName,
			Code:     f.Code,
			Message:  f.Message,
		})
	}
	return run
}

// Validate returns an error if the run contains invalid fields.
func (r *Run) Validate() error {
	if r.Provider == "" {
		return Errorf(EINVALID, "run provider required")
	}
	if r.StartedAt.IsZero() {
		return Errorf(EINVALID, "run start time required")
	}
	return nil
}

// RunService records batch runs.
type RunService interface {
	// CreateRun records a run and its outcomes. Assigns the run ID.
	CreateRun(ctx context.Context, run *Run) error

	// FindRunByID retrieves a run with its outcomes.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FindRuns retrieves runs matching the filter, newest first.
	// Outcomes are not loaded.
	FindRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
}

// RunFilter represents a filter for FindRuns.
type RunFilter struct {
	Provider *Provider `json:"provider"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
