package fingerprint

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-matcher/internal/records"
)

const (
	segmentSeparator = " | "

	resumeSnippetRunes       = 500
	descriptionSnippetRunes  = 500
	requirementsSnippetRunes = 300
)

// ProfileText builds the text a profile is fingerprinted from. Only the
// encoded fields are read; missing ones just drop their segment.
func ProfileText(p *records.Profile) string {
	if p == nil {
		return ""
	}

	var parts []string
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if p.ExperienceYears != 0 {
		parts = append(parts, fmt.Sprintf("Experience: %s years", strconv.FormatFloat(p.ExperienceYears, 'f', -1, 64)))
	}
	if len(p.TargetRoles) > 0 {
		parts = append(parts, "Target roles: "+strings.Join(p.TargetRoles, ", "))
	}
	if p.Education != nil {
		parts = append(parts, fmt.Sprintf("Education: %s in %s", p.Education.Degree, p.Education.Field))
	}
	if p.ResumeText != "" {
		parts = append(parts, firstRunes(p.ResumeText, resumeSnippetRunes))
	}

	return strings.Join(parts, segmentSeparator)
}

// JobText builds the text a job posting is fingerprinted from.
func JobText(j *records.Job) string {
	if j == nil {
		return ""
	}

	var parts []string
	if j.Title != "" {
		parts = append(parts, "Title: "+j.Title)
	}
	if j.Company != "" {
		parts = append(parts, "Company: "+j.Company)
	}
	if j.Location != "" {
		parts = append(parts, "Location: "+j.Location)
	}
	if len(j.SkillsRequired) > 0 {
		parts = append(parts, "Required skills: "+strings.Join(j.SkillsRequired, ", "))
	}
	if nonZero(j.ExperienceMin) || nonZero(j.ExperienceMax) {
		minYears, maxYears := 0, ""
		if j.ExperienceMin != nil {
			minYears = *j.ExperienceMin
		}
		if j.ExperienceMax != nil {
			maxYears = strconv.Itoa(*j.ExperienceMax)
		}
		parts = append(parts, fmt.Sprintf("Experience: %d-%s years", minYears, maxYears))
	}
	if j.Description != "" {
		parts = append(parts, firstRunes(j.Description, descriptionSnippetRunes))
	}
	if j.Requirements != "" {
		parts = append(parts, firstRunes(j.Requirements, requirementsSnippetRunes))
	}

	return strings.Join(parts, segmentSeparator)
}

// EncodeProfile fingerprints a profile. A nil profile gives the zero vector.
func (e *Encoder) EncodeProfile(p *records.Profile) Fingerprint {
	if p == nil {
		e.logger.Warn("encoding nil profile, using zero vector")
		return make(Fingerprint, e.dim)
	}

	fp := e.Encode(ProfileText(p))
	e.logger.Debug("created profile fingerprint",
		zap.String("profile_id", p.ID),
		zap.Int("dimensions", len(fp)),
	)
	return fp
}

// EncodeJob fingerprints a job posting. A nil job gives the zero vector.
func (e *Encoder) EncodeJob(j *records.Job) Fingerprint {
	if j == nil {
		e.logger.Warn("encoding nil job, using zero vector")
		return make(Fingerprint, e.dim)
	}

	fp := e.Encode(JobText(j))
	e.logger.Debug("created job fingerprint",
		zap.String("job_id", j.ID),
		zap.Int("dimensions", len(fp)),
	)
	return fp
}

// ProfileFingerprint returns the cached fingerprint or encodes one on the
// fly. The profile itself is never modified.
func (e *Encoder) ProfileFingerprint(p *records.Profile) Fingerprint {
	if p.HasFingerprint() {
		return p.Fingerprint
	}
	return e.EncodeProfile(p)
}

// JobFingerprint is ProfileFingerprint for jobs.
func (e *Encoder) JobFingerprint(j *records.Job) Fingerprint {
	if j.HasFingerprint() {
		return j.Fingerprint
	}
	return e.EncodeJob(j)
}

// EncodeJobs returns copies of jobs with fingerprints filled in. Jobs that
// already carry one are kept unless force is set. The second result is the
// number of jobs actually encoded. Only context cancellation is an error.
func (e *Encoder) EncodeJobs(ctx context.Context, jobs []records.Job, force bool) ([]records.Job, int, error) {
	e.logger.Info("creating job fingerprints",
		zap.Int("jobs", len(jobs)),
		zap.Bool("force", force),
		zap.Int("dimension", e.Dimension()),
	)

	out := make([]records.Job, len(jobs))
	copy(out, jobs)

	var encoded atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := range out {
		if !force && out[i].HasFingerprint() {
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i].Fingerprint = e.EncodeJob(&out[i])
			encoded.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("encode jobs: %w", err)
	}

	e.logger.Info("job fingerprints created", zap.Int64("encoded", encoded.Load()))
	return out, int(encoded.Load()), nil
}

func firstRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func nonZero(v *int) bool {
	return v != nil && *v != 0
}
