package records

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// jobNamespace seeds name-based job IDs.
var jobNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/spigell/job-matcher/jobs"))

// Job is a job posting.
//
// Fingerprint follows the same caching rules as Profile.Fingerprint.
// MatchScore and AI are transient: they are filled by the filter pipeline
// and never written back to a store.
type Job struct {
	ID             string        `json:"id,omitempty"`
	ExternalID     string        `json:"external_id,omitempty"`
	Source         string        `json:"source,omitempty"`
	Title          string        `json:"title,omitempty"`
	Company        string        `json:"company,omitempty"`
	Location       string        `json:"location,omitempty"`
	JobType        string        `json:"job_type,omitempty"`
	Description    string        `json:"description,omitempty"`
	Requirements   string        `json:"requirements,omitempty"`
	SkillsRequired []string      `json:"skills_required,omitempty"`
	ExperienceMin  *int          `json:"experience_min,omitempty"`
	ExperienceMax  *int          `json:"experience_max,omitempty"`
	SalaryMin      *int          `json:"salary_min,omitempty"`
	SalaryMax      *int          `json:"salary_max,omitempty"`
	URL            string        `json:"url,omitempty"`
	IsActive       *bool         `json:"is_active,omitempty"`
	Fingerprint    []float64     `json:"job_embedding,omitempty"`
	MatchScore     float64       `json:"match_score,omitempty"`
	AI             *AIAssessment `json:"ai,omitempty"`
}

// AIAssessment is the verdict of the optional AI fit step.
type AIAssessment struct {
	Fit     bool    `json:"fit"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Raw     string  `json:"raw,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// JobUpdate is a partial job update. Nil fields are left untouched.
type JobUpdate struct {
	Title          *string
	Company        *string
	Location       *string
	Description    *string
	Requirements   *string
	SkillsRequired []string
	ExperienceMin  *int
	ExperienceMax  *int
	IsActive       *bool
}

// Active reports whether the posting is open. Postings without the flag are active.
func (j *Job) Active() bool {
	return j.IsActive == nil || *j.IsActive
}

func (j *Job) HasFingerprint() bool {
	return j != nil && len(j.Fingerprint) > 0
}

func (j *Job) InvalidateFingerprint() {
	j.Fingerprint = nil
}

func (j *Job) SetDescription(description string) {
	j.Description = description
	j.InvalidateFingerprint()
}

func (j *Job) SetRequirements(requirements string) {
	j.Requirements = requirements
	j.InvalidateFingerprint()
}

func (j *Job) SetSkillsRequired(skills []string) {
	j.SkillsRequired = slices.Clone(skills)
	j.InvalidateFingerprint()
}

func (j *Job) SetExperienceRange(minYears, maxYears *int) {
	j.ExperienceMin = cloneInt(minYears)
	j.ExperienceMax = cloneInt(maxYears)
	j.InvalidateFingerprint()
}

// ApplyUpdate merges u into the job and reports whether an encoded field changed.
func (j *Job) ApplyUpdate(u JobUpdate) bool {
	if u.IsActive != nil {
		active := *u.IsActive
		j.IsActive = &active
	}

	changed := false
	if u.Title != nil {
		j.Title = *u.Title
		changed = true
	}
	if u.Company != nil {
		j.Company = *u.Company
		changed = true
	}
	if u.Location != nil {
		j.Location = *u.Location
		changed = true
	}
	if u.Description != nil {
		j.Description = *u.Description
		changed = true
	}
	if u.Requirements != nil {
		j.Requirements = *u.Requirements
		changed = true
	}
	if u.SkillsRequired != nil {
		j.SkillsRequired = slices.Clone(u.SkillsRequired)
		changed = true
	}
	if u.ExperienceMin != nil {
		j.ExperienceMin = cloneInt(u.ExperienceMin)
		changed = true
	}
	if u.ExperienceMax != nil {
		j.ExperienceMax = cloneInt(u.ExperienceMax)
		changed = true
	}

	if changed {
		j.InvalidateFingerprint()
	}
	return changed
}

// EnsureID assigns a name-based ID to jobs that came without one. The same
// posting always gets the same ID, so exclude files keep working between runs.
func (j *Job) EnsureID() string {
	if strings.TrimSpace(j.ID) != "" {
		return j.ID
	}

	key := strings.ToLower(strings.Join([]string{
		j.Source, j.ExternalID, j.Title, j.Company, j.Location,
	}, "|"))
	j.ID = uuid.NewSHA1(jobNamespace, []byte(key)).String()
	return j.ID
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
