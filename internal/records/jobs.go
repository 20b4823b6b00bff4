package records

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	JobIDField      = "ID"
	JobCompanyField = "Company"
)

// Jobs is an ordered collection of postings. Order is meaningful: after the
// match_score step it is the ranking order.
type Jobs struct {
	Items []*Job
}

func (j *Jobs) Len() int {
	if j == nil {
		return 0
	}
	return len(j.Items)
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, j.Len())
	for _, job := range j.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Values returns the jobs as values. The matching core works on values so it
// cannot reach back into the collection.
func (j *Jobs) Values() []Job {
	out := make([]Job, 0, j.Len())
	for _, job := range j.Items {
		out = append(out, *job)
	}
	return out
}

func (j *Job) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return j.ID
	case JobCompanyField:
		return j.Company
	default:
		return ""
	}
}

// Exclude removes every job whose field matches one of targets
// (case-insensitive) and returns the removed IDs. Relative order of the
// remaining jobs is preserved.
func (j *Jobs) Exclude(field string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := set[strings.ToLower(strings.TrimSpace(job.GetStringField(field)))]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept

	return excluded
}

// ExcludeInactive removes closed postings and returns their IDs.
func (j *Jobs) ExcludeInactive() []string {
	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if !job.Active() {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept
	return excluded
}

func (j *Jobs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ToExcluded converts the jobs into exclude-file entries.
func (j *Jobs) ToExcluded(actor, reason string) *ExcludedJobs {
	excluded := &ExcludedJobs{}
	now := time.Now().UTC()
	for _, job := range j.Items {
		excluded.Items = append(excluded.Items, &ExcludedJob{
			ID:         job.ID,
			URL:        job.URL,
			Company:    job.Company,
			Actor:      actor,
			Reason:     reason,
			ExcludedAt: now,
		})
	}
	return excluded
}

// ReportByCompany groups jobs by company for display.
func (j *Jobs) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range j.Items {
		key := job.Company
		if key == "" {
			key = "unknown company"
		}

		entry := map[string]string{
			"id":          job.ID,
			"title":       job.Title,
			"url":         job.URL,
			"location":    job.Location,
			"salary":      formatRange(job.SalaryMin, job.SalaryMax),
			"experience":  formatRange(job.ExperienceMin, job.ExperienceMax),
			"match_score": strconv.FormatFloat(job.MatchScore, 'f', 2, 64),
		}

		if job.AI != nil {
			if job.AI.Error != "" {
				entry["ai_error"] = job.AI.Error
			} else {
				entry["ai_fit"] = strconv.FormatBool(job.AI.Fit)
				entry["ai_score"] = strconv.FormatFloat(job.AI.Score, 'f', -1, 64)
				if job.AI.Reason != "" {
					entry["ai_reason"] = job.AI.Reason
				}
				if job.AI.Message != "" {
					entry["ai_message"] = job.AI.Message
				}
			}
		}

		report[key] = append(report[key], entry)
	}
	return report
}

func formatRange(minV, maxV *int) string {
	switch {
	case minV == nil && maxV == nil:
		return ""
	case maxV == nil:
		return fmt.Sprintf("%d+", *minV)
	case minV == nil:
		return fmt.Sprintf("up to %d", *maxV)
	default:
		return fmt.Sprintf("%d-%d", *minV, *maxV)
	}
}
