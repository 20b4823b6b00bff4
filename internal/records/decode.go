package records

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeProfile converts a generic document (decoded JSON, a Mongo map, a
// viper sub-tree) into a Profile. Scalars are weakly typed: job boards and
// hand-written files routinely send "3" for a number of years.
func DecodeProfile(input any) (*Profile, error) {
	var profile Profile
	if err := decode(input, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}

// DecodeJob converts a single document into a Job and assigns it an ID when
// it came without one.
func DecodeJob(input any) (*Job, error) {
	var job Job
	if err := decode(input, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	job.EnsureID()
	return &job, nil
}

// DecodeJobs converts a generic list of documents into Jobs and assigns IDs
// to postings that came without one.
func DecodeJobs(input any) (*Jobs, error) {
	var items []*Job
	if err := decode(input, &items); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}

	jobs := &Jobs{Items: make([]*Job, 0, len(items))}
	for _, job := range items {
		if job == nil {
			continue
		}
		job.EnsureID()
		jobs.Items = append(jobs.Items, job)
	}
	return jobs, nil
}

func decode(input any, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
