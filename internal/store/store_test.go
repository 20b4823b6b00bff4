package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const profileJSON = `{
  "id": "u1",
  "email": "ann@example.com",
  "skills": ["Go", "SQL"],
  "experience_years": "3",
  "nickname": "annie"
}`

const jobsJSON = `[
  {"id": "j1", "title": "Go developer", "company": "Acme", "experience_min": 2},
  {"title": "Data engineer", "company": "Globex", "source": "board", "external_id": "77"},
  {"id": "j3", "title": "Closed", "is_active": false}
]`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestStore(t *testing.T, jobs string) (*FileStore, string, string) {
	t.Helper()
	dir := t.TempDir()
	profilePath := writeFile(t, dir, "profile.json", profileJSON)
	jobsPath := writeFile(t, dir, "jobs.json", jobs)

	s, err := NewFileStore(profilePath, jobsPath, zap.NewNop())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return s, profilePath, jobsPath
}

func TestFileStoreLoads(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, jobsJSON)
	ctx := context.Background()

	profile, err := s.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ID != "u1" || profile.ExperienceYears != 3 || len(profile.Skills) != 2 {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	jobs, err := s.Jobs(ctx)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if jobs.Len() != 3 {
		t.Fatalf("expected 3 jobs, got %d", jobs.Len())
	}
	if jobs.Items[1].ID == "" {
		t.Fatalf("expected generated id")
	}
	if jobs.Items[2].Active() {
		t.Fatalf("expected closed job to be inactive")
	}
}

func TestFileStoreAcceptsWrappedList(t *testing.T) {
	t.Parallel()

	s, _, jobsPath := newTestStore(t, `{"source": "export", "items": [{"id": "j1"}]}`)
	ctx := context.Background()

	jobs, err := s.Jobs(ctx)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !slices.Equal(jobs.IDs(), []string{"j1"}) {
		t.Fatalf("unexpected ids: %v", jobs.IDs())
	}

	if err := s.SaveJobFingerprints(ctx, map[string][]float64{"j1": {1}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var doc map[string]any
	data, _ := os.ReadFile(jobsPath)
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode written file: %v", err)
	}
	if doc["source"] != "export" {
		t.Fatalf("expected wrapper fields to survive, got %v", doc)
	}
}

func TestFileStoreSavesFingerprints(t *testing.T) {
	t.Parallel()

	s, profilePath, _ := newTestStore(t, jobsJSON)
	ctx := context.Background()

	if err := s.SaveProfileFingerprint(ctx, []float64{0.5, 0.5}); err != nil {
		t.Fatalf("save profile fingerprint: %v", err)
	}

	profile, err := s.Profile(ctx)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !slices.Equal(profile.Fingerprint, []float64{0.5, 0.5}) {
		t.Fatalf("fingerprint not persisted: %v", profile.Fingerprint)
	}

	var raw map[string]any
	data, _ := os.ReadFile(profilePath)
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["nickname"] != "annie" {
		t.Fatalf("expected unknown fields to survive, got %v", raw)
	}

	jobs, err := s.Jobs(ctx)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	generated := jobs.Items[1].ID

	err = s.SaveJobFingerprints(ctx, map[string][]float64{
		"j1":      {1, 0},
		generated: {0, 1},
		"missing": {1, 1},
	})
	if err != nil {
		t.Fatalf("save job fingerprints: %v", err)
	}

	reloaded, err := s.Jobs(ctx)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !slices.Equal(reloaded.FindByID("j1").Fingerprint, []float64{1, 0}) {
		t.Fatalf("j1 fingerprint not persisted")
	}
	second := reloaded.FindByID(generated)
	if second == nil || !slices.Equal(second.Fingerprint, []float64{0, 1}) {
		t.Fatalf("generated id job fingerprint not persisted")
	}
	if reloaded.FindByID("j3").HasFingerprint() {
		t.Fatalf("untouched job must not get a fingerprint")
	}
}

func TestFileStoreMissingFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "nope.json"), filepath.Join(dir, "nope-jobs.json"), nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Profile(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Jobs(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreRejectsMalformedJobs(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestStore(t, `{"jobs": []}`)
	if _, err := s.Jobs(context.Background()); err == nil {
		t.Fatal("expected error for object without items")
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{Driver: "redis"}, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(context.Background(), Config{}, nil); err == nil {
		t.Fatal("expected error for file driver without paths")
	}
	if _, err := Open(context.Background(), Config{Driver: DriverMongo}, nil); err == nil {
		t.Fatal("expected error for mongo driver without user id")
	}

	s, err := Open(context.Background(), Config{Driver: "FILE", ProfileFile: "p.json", JobsFile: "j.json"}, nil)
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected file store, got %T", s)
	}
}

func TestNormalizeDocument(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":             oid,
		"title":           "Go developer",
		"is_active":       true,
		"skills_required": bson.A{"go", "sql"},
		"job_embedding":   bson.A{0.5, 0.5},
		"company_ref":     bson.M{"_id": "c1", "name": "Acme"},
	}

	out := normalizeDocument(doc)

	if out["id"] != oid.Hex() {
		t.Fatalf("expected hex id, got %v", out["id"])
	}
	if _, ok := out["_id"]; ok {
		t.Fatalf("expected _id to be renamed")
	}
	if skills, ok := out["skills_required"].([]any); !ok || len(skills) != 2 {
		t.Fatalf("expected plain slice, got %T", out["skills_required"])
	}
	nested, ok := out["company_ref"].(map[string]any)
	if !ok || nested["id"] != "c1" {
		t.Fatalf("unexpected nested document: %v", out["company_ref"])
	}
}

func TestDocumentID(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	if got, ok := documentID(oid.Hex()).(primitive.ObjectID); !ok || got != oid {
		t.Fatalf("expected object id, got %v", documentID(oid.Hex()))
	}
	if got := documentID("plain-id"); got != "plain-id" {
		t.Fatalf("expected plain string id, got %v", got)
	}
}
