package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"kagglesync/internal/core/types"
	"kagglesync/internal/listing"
)

// Submission records a competition submission attempt.
type Submission struct {
	Competition string
	File        string
	Description string
	Output      string // CLI output, verbatim
	ExitCode    int
	SubmittedAt time.Time
}

// Accepted reports whether the CLI exited cleanly.
func (s Submission) Accepted() bool {
	return s.ExitCode == 0
}

// Submit uploads file to competition with description. The file must exist;
// otherwise the CLI is never called. Only the access denied signature is an
// error; any other failure comes back as a Submission whose Output and
// ExitCode the caller interprets. Only accepted submissions become the
// latest score.
func (p *Pipeline) Submit(ctx context.Context, competition, file, description string) (Submission, error) {
	slug, err := p.Resolve(competition, types.KindCompetition)
	if err != nil {
		return Submission{}, err
	}
	if err := types.ValidateSlug(slug, types.KindCompetition); err != nil {
		return Submission{}, err
	}

	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return Submission{}, &types.OpError{
			Op:   "submit",
			Slug: slug,
			Path: file,
			Err:  fmt.Errorf("%w: pass a valid path to the submission file", types.ErrFileNotFound),
		}
	}

	args := []string{
		types.KindCompetition.Family(), "submit",
		"-c", slug,
		"-f", file,
		"-m", description,
	}
	p.log.Info("submitting", "competition", slug, "file", file)

	res, err := p.runner.Run(ctx, args)
	if err != nil {
		return Submission{}, &types.OpError{Op: "submit", Slug: slug, Err: fmt.Errorf("%w: %w", types.ErrExternalTool, err)}
	}
	if err := checkAccess("submit", slug, res); err != nil {
		return Submission{}, err
	}

	sub := Submission{
		Competition: slug,
		File:        file,
		Description: description,
		Output:      res.Output(),
		ExitCode:    res.ExitCode,
		SubmittedAt: time.Now(),
	}
	if !sub.Accepted() {
		p.log.Warn("submission failed", "competition", slug, "exit_code", sub.ExitCode, "output", sub.Output)
		return sub, nil
	}
	p.latest = &sub
	p.log.Info("submitted", "competition", slug, "output", sub.Output)
	return sub, nil
}

// LatestScore returns the most recent successful submission made through
// this pipeline.
func (p *Pipeline) LatestScore() (Submission, error) {
	if p.latest == nil {
		return Submission{}, &types.OpError{Op: "latest score", Err: types.ErrNoScoreYet}
	}
	return *p.latest, nil
}

// Submissions lists the submissions made to competition, scores included.
// The result is not cached.
func (p *Pipeline) Submissions(ctx context.Context, competition string) (*listing.Listing, error) {
	slug, err := p.Resolve(competition, types.KindCompetition)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateSlug(slug, types.KindCompetition); err != nil {
		return nil, err
	}

	res, err := p.runner.Run(ctx, []string{types.KindCompetition.Family(), "submissions", "-c", slug})
	if err != nil {
		return nil, &types.OpError{Op: "submissions", Slug: slug, Err: fmt.Errorf("%w: %w", types.ErrExternalTool, err)}
	}
	if err := checkResult("submissions", slug, res); err != nil {
		return nil, err
	}

	result, err := listing.Parse(bytes.NewReader(res.Stdout), listing.SubmissionColumns)
	if err != nil {
		return nil, &types.OpError{Op: "submissions", Slug: slug, Output: res.Output(), Err: err}
	}
	result.Kind = types.KindCompetition
	return result, nil
}
