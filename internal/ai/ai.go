// Package ai defines the optional second-opinion step that asks a language
// model whether a ranked job is worth applying to.
package ai

import (
	"context"

	"github.com/spigell/job-matcher/internal/records"
)

// FitAssessment is the verdict of a model. Score uses the same 0-100 scale
// as the match score.
type FitAssessment struct {
	Fit     bool
	Score   float64
	Reason  string
	Message string
	Raw     string
}

type Matcher interface {
	Evaluate(ctx context.Context, profile *records.Profile, job *records.Job) (*FitAssessment, error)
}

// ToRecord converts the assessment into the form attached to a job.
func (a *FitAssessment) ToRecord() *records.AIAssessment {
	if a == nil {
		return nil
	}
	return &records.AIAssessment{
		Fit:     a.Fit,
		Score:   a.Score,
		Reason:  a.Reason,
		Message: a.Message,
		Raw:     a.Raw,
	}
}
