package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/records"
)

const (
	profileFingerprintKey = "resume_embedding"
	jobFingerprintKey     = "job_embedding"
	jobIDKey              = "id"
	jobsListKey           = "items"
)

// FileStore keeps the profile and the jobs in two JSON files. Writes go
// through the raw documents so fields unknown to records survive.
type FileStore struct {
	profilePath string
	jobsPath    string
	logger      *zap.Logger
}

func NewFileStore(profilePath, jobsPath string, logger *zap.Logger) (*FileStore, error) {
	profilePath = strings.TrimSpace(profilePath)
	jobsPath = strings.TrimSpace(jobsPath)
	if profilePath == "" || jobsPath == "" {
		return nil, errors.New("file store requires both profile-file and jobs-file")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileStore{
		profilePath: profilePath,
		jobsPath:    jobsPath,
		logger:      logger.With(zap.String("store", DriverFile)),
	}, nil
}

func (s *FileStore) Profile(_ context.Context) (*records.Profile, error) {
	doc, err := s.readProfile()
	if err != nil {
		return nil, err
	}
	return records.DecodeProfile(doc)
}

func (s *FileStore) Jobs(_ context.Context) (*records.Jobs, error) {
	list, _, err := s.readJobs()
	if err != nil {
		return nil, err
	}
	jobs, err := records.DecodeJobs(list)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("jobs loaded", zap.String("path", s.jobsPath), zap.Int("jobs", jobs.Len()))
	return jobs, nil
}

func (s *FileStore) SaveProfileFingerprint(_ context.Context, fp []float64) error {
	doc, err := s.readProfile()
	if err != nil {
		return err
	}

	if len(fp) == 0 {
		delete(doc, profileFingerprintKey)
	} else {
		doc[profileFingerprintKey] = fp
	}

	return writeJSON(s.profilePath, doc)
}

func (s *FileStore) SaveJobFingerprints(_ context.Context, fps map[string][]float64) error {
	if len(fps) == 0 {
		return nil
	}

	list, wrapped, err := s.readJobs()
	if err != nil {
		return err
	}

	updated := 0
	for _, item := range list {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}
		job, err := records.DecodeJob(doc)
		if err != nil {
			return err
		}
		fp, ok := fps[job.ID]
		if !ok {
			continue
		}

		// Generated IDs are written back so they survive edits of the
		// fields they were derived from.
		doc[jobIDKey] = job.ID
		doc[jobFingerprintKey] = fp
		updated++
	}

	s.logger.Debug("job fingerprints saved", zap.Int("requested", len(fps)), zap.Int("updated", updated))

	var out any = list
	if wrapped != nil {
		wrapped[jobsListKey] = list
		out = wrapped
	}
	return writeJSON(s.jobsPath, out)
}

func (s *FileStore) Close(context.Context) error {
	return nil
}

func (s *FileStore) readProfile() (map[string]any, error) {
	var doc map[string]any
	if err := readJSON(s.profilePath, &doc); err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("read profile %q: %w", s.profilePath, ErrNotFound)
	}
	return doc, nil
}

// readJobs accepts either a bare list or an object with an "items" list.
// wrapped is the enclosing object in the latter case.
func (s *FileStore) readJobs() (list []any, wrapped map[string]any, err error) {
	var doc any
	if err := readJSON(s.jobsPath, &doc); err != nil {
		return nil, nil, fmt.Errorf("read jobs: %w", err)
	}

	switch v := doc.(type) {
	case nil:
		return []any{}, nil, nil
	case []any:
		return v, nil, nil
	case map[string]any:
		items, ok := v[jobsListKey].([]any)
		if !ok {
			return nil, nil, fmt.Errorf("read jobs %q: expected a list under %q", s.jobsPath, jobsListKey)
		}
		return items, v, nil
	default:
		return nil, nil, fmt.Errorf("read jobs %q: unexpected document type %T", s.jobsPath, doc)
	}
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
