package matching

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/records"
)

const (
	maxLearningSuggestions = 5
	lowMatchPercentage     = 70.0
	topSkillsInReport      = 10
	focusSkillsInReport    = 3
	juniorExperienceYears  = 2.0

	fallbackRecommendation = "Unable to analyze skill gap"
)

var lowMatchRecommendations = []string{
	"Build more experience in the required skill areas",
	"Consider taking online courses or certifications",
}

// SkillGap compares the declared skills of a profile with the skills a job
// requires. Skill names are lowercased.
type SkillGap struct {
	MatchingSkills     []string `json:"matching_skills"`
	MissingSkills      []string `json:"missing_skills"`
	MatchPercentage    float64  `json:"match_percentage"`
	ExperienceGapYears float64  `json:"experience_gap_years"`
	Recommendations    []string `json:"recommendations"`
}

func fallbackSkillGap() SkillGap {
	return SkillGap{
		MatchingSkills:  []string{},
		MissingSkills:   []string{},
		Recommendations: []string{fallbackRecommendation},
	}
}

// AnalyzeSkillGap computes the skill and experience gap between a profile
// and a job. A job without required skills is a 100% match.
func (m *Matcher) AnalyzeSkillGap(profile *records.Profile, job *records.Job) (gap SkillGap) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("analyzing skill gap failed", zap.Error(fmt.Errorf("%v", r)))
			gap = fallbackSkillGap()
		}
	}()

	if profile == nil || job == nil {
		m.logger.Warn("skill gap requested without profile or job")
		return fallbackSkillGap()
	}

	have := make(map[string]struct{}, len(profile.Skills))
	for _, skill := range normalizeSkills(profile.Skills) {
		have[skill] = struct{}{}
	}

	required := normalizeSkills(job.SkillsRequired)
	gap.MatchingSkills = []string{}
	gap.MissingSkills = []string{}
	for _, skill := range required {
		if _, ok := have[skill]; ok {
			gap.MatchingSkills = append(gap.MatchingSkills, skill)
		} else {
			gap.MissingSkills = append(gap.MissingSkills, skill)
		}
	}

	gap.MatchPercentage = 100
	if len(required) > 0 {
		gap.MatchPercentage = round(100*float64(len(gap.MatchingSkills))/float64(len(required)), 1)
	}

	if job.ExperienceMin != nil {
		gap.ExperienceGapYears = max(0, float64(*job.ExperienceMin)-profile.ExperienceYears)
	}

	gap.Recommendations = []string{}
	if len(gap.MissingSkills) > 0 {
		learn := gap.MissingSkills[:min(maxLearningSuggestions, len(gap.MissingSkills))]
		gap.Recommendations = append(gap.Recommendations, "Consider learning: "+strings.Join(learn, ", "))
	}
	if gap.MatchPercentage < lowMatchPercentage {
		gap.Recommendations = append(gap.Recommendations, lowMatchRecommendations...)
	}
	if gap.ExperienceGapYears > 0 {
		gap.Recommendations = append(gap.Recommendations,
			fmt.Sprintf("Gain %.1f more years of relevant experience", gap.ExperienceGapYears))
	}

	m.logger.Debug("skill gap analysis",
		zap.String("job_id", job.ID),
		zap.Float64("match_percentage", gap.MatchPercentage),
		zap.Int("missing_skills", len(gap.MissingSkills)),
	)

	return gap
}

// SkillCount is one line of the aggregated skill report.
type SkillCount struct {
	Skill      string  `json:"skill"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage,omitempty"`
}

// SkillGapReport aggregates skill gaps over many jobs.
type SkillGapReport struct {
	TopMissingSkills  []SkillCount `json:"top_missing_skills"`
	TopMatchingSkills []SkillCount `json:"top_matching_skills"`
	Recommendations   []string     `json:"recommendations"`
	TotalJobsAnalyzed int          `json:"total_jobs_analyzed"`
}

// SummarizeSkillGaps runs AnalyzeSkillGap for every job and reports the most
// frequently missing and matching skills.
func (m *Matcher) SummarizeSkillGaps(profile *records.Profile, jobs []records.Job) SkillGapReport {
	missing := newSkillCounter()
	matching := newSkillCounter()

	for i := range jobs {
		gap := m.AnalyzeSkillGap(profile, &jobs[i])
		missing.add(gap.MissingSkills)
		matching.add(gap.MatchingSkills)
	}

	report := SkillGapReport{
		TopMissingSkills:  missing.top(topSkillsInReport),
		TopMatchingSkills: matching.top(topSkillsInReport),
		TotalJobsAnalyzed: len(jobs),
	}

	if report.TotalJobsAnalyzed > 0 {
		for i := range report.TopMissingSkills {
			c := &report.TopMissingSkills[i]
			c.Percentage = round(float64(c.Count)/float64(report.TotalJobsAnalyzed)*100, 1)
		}
	}

	report.Recommendations = []string{}
	if len(report.TopMissingSkills) > 0 {
		focus := make([]string, 0, focusSkillsInReport)
		for _, c := range report.TopMissingSkills[:min(focusSkillsInReport, len(report.TopMissingSkills))] {
			focus = append(focus, c.Skill)
		}
		report.Recommendations = append(report.Recommendations, "Focus on learning: "+strings.Join(focus, ", "))
	}
	if profile == nil || profile.ExperienceYears < juniorExperienceYears {
		report.Recommendations = append(report.Recommendations, "Build more hands-on project experience")
	}
	report.Recommendations = append(report.Recommendations,
		"Consider obtaining relevant certifications",
		"Contribute to open-source projects to demonstrate skills",
	)

	return report
}

// normalizeSkills lowercases and deduplicates skills, keeping first-seen order.
func normalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, skill := range skills {
		s := strings.ToLower(strings.TrimSpace(skill))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

type skillCounter struct {
	order  []string
	counts map[string]int
}

func newSkillCounter() *skillCounter {
	return &skillCounter{counts: make(map[string]int)}
}

func (c *skillCounter) add(skills []string) {
	for _, s := range skills {
		if _, ok := c.counts[s]; !ok {
			c.order = append(c.order, s)
		}
		c.counts[s]++
	}
}

// top returns the n most frequent skills; ties keep first-seen order.
func (c *skillCounter) top(n int) []SkillCount {
	out := make([]SkillCount, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, SkillCount{Skill: s, Count: c.counts[s]})
	}
	slices.SortStableFunc(out, func(a, b SkillCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
