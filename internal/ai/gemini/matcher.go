package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/ai"
	"github.com/spigell/job-matcher/internal/logger"
	"github.com/spigell/job-matcher/internal/records"
	"github.com/spigell/job-matcher/internal/utils"
)

const (
	Provider = "gemini"

	defaultMaxLogLength     = 200
	defaultTone             = "Friendly"
	noneValue               = "none"
	maxUserInstructionRunes = 600
	maxUserInstructionLines = 10
)

var (
	//go:embed system.md
	systemPrompt string
	//go:embed prompt.md
	promptTemplate string
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// PromptOverrides are user preferences injected into the prompt. Every field
// is flattened before use so it cannot open a new prompt section.
type PromptOverrides struct {
	ExtraCriteria     string `mapstructure:"extra-criteria"`
	DealBreakers      string `mapstructure:"deal-breakers"`
	CustomKeywords    string `mapstructure:"keywords"`
	Tone              string `mapstructure:"tone"`
	RegionConstraints string `mapstructure:"region-constraints"`
	UserInstructions  string `mapstructure:"instructions"`
}

type Matcher struct {
	generator contentGenerator
	minScore  float64
	maxLogLen int
	overrides PromptOverrides
	logger    *zap.Logger
}

// NewMatcher returns an ai.Matcher backed by generator. Assessments scoring
// below minScore are marked as not fit regardless of the model verdict.
func NewMatcher(generator contentGenerator, minScore float64, maxLogLength int, log *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Matcher{
		generator: generator,
		minScore:  minScore,
		maxLogLen: maxLogLength,
		logger:    logger.WithCommonFields(log, Provider, generator.Model()),
	}
}

func (m *Matcher) SetPromptOverrides(o PromptOverrides) {
	m.overrides = o
}

type profilePayload struct {
	Skills          []string           `json:"skills,omitempty"`
	ExperienceYears float64            `json:"experience_years"`
	TargetRoles     []string           `json:"target_roles,omitempty"`
	TargetLocations []string           `json:"target_locations,omitempty"`
	Education       *records.Education `json:"education,omitempty"`
	ResumeText      string             `json:"resume_text,omitempty"`
}

type jobPayload struct {
	Title          string   `json:"title,omitempty"`
	Company        string   `json:"company,omitempty"`
	Location       string   `json:"location,omitempty"`
	JobType        string   `json:"job_type,omitempty"`
	Description    string   `json:"description,omitempty"`
	Requirements   string   `json:"requirements,omitempty"`
	SkillsRequired []string `json:"skills_required,omitempty"`
	ExperienceMin  *int     `json:"experience_min,omitempty"`
	ExperienceMax  *int     `json:"experience_max,omitempty"`
	SalaryMin      *int     `json:"salary_min,omitempty"`
	SalaryMax      *int     `json:"salary_max,omitempty"`
	MatchScore     float64  `json:"match_score,omitempty"`
}

func (m *Matcher) Evaluate(ctx context.Context, profile *records.Profile, job *records.Job) (*ai.FitAssessment, error) {
	if profile == nil {
		return nil, errors.New("profile is required")
	}
	if job == nil {
		return nil, errors.New("job is required")
	}

	// Contact data and fingerprints never leave the process.
	profileJSON, err := json.MarshalIndent(profilePayload{
		Skills:          profile.Skills,
		ExperienceYears: profile.ExperienceYears,
		TargetRoles:     profile.TargetRoles,
		TargetLocations: profile.TargetLocations,
		Education:       profile.Education,
		ResumeText:      profile.ResumeText,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(jobPayload{
		Title:          job.Title,
		Company:        job.Company,
		Location:       job.Location,
		JobType:        job.JobType,
		Description:    job.Description,
		Requirements:   job.Requirements,
		SkillsRequired: job.SkillsRequired,
		ExperienceMin:  job.ExperienceMin,
		ExperienceMax:  job.ExperienceMax,
		SalaryMin:      job.SalaryMin,
		SalaryMax:      job.SalaryMax,
		MatchScore:     job.MatchScore,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	prompt := m.buildPrompt(string(profileJSON), string(jobJSON))
	log := logger.WithFields(m.logger, logger.JobFields(job)...)

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if m.minScore > 0 && assessment.Score < m.minScore && assessment.Fit {
		log.Debug("set fit to false by score threshold",
			zap.Float64("score", assessment.Score),
			zap.Float64("threshold", m.minScore),
		)
		assessment.Fit = false
	}

	assessment.Raw = raw
	return assessment, nil
}

func (m *Matcher) buildPrompt(profileJSON, jobJSON string) string {
	tone := singleLine(m.overrides.Tone)
	if tone == "" {
		tone = defaultTone
	}

	r := strings.NewReplacer(
		"{{EXTRA_CRITERIA}}", orNone(singleLine(m.overrides.ExtraCriteria)),
		"{{DEAL_BREAKERS}}", orNone(singleLine(m.overrides.DealBreakers)),
		"{{CUSTOM_KEYWORDS}}", orNone(keywords(m.overrides.CustomKeywords)),
		"{{TONE}}", tone,
		"{{REGION_CONSTRAINTS}}", orNone(singleLine(m.overrides.RegionConstraints)),
		"{{USER_INSTRUCTIONS}}", userInstructions(m.overrides.UserInstructions),
		"{{PROFILE_JSON}}", profileJSON,
		"{{JOB_JSON}}", jobJSON,
	)
	return strings.TrimSpace(r.Replace(promptTemplate))
}

// singleLine collapses whitespace and swaps square brackets for parentheses
// so a value cannot start a new prompt section.
func singleLine(s string) string {
	s = strings.NewReplacer("[", "(", "]", ")").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func keywords(s string) string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = singleLine(k); k != "" {
			out = append(out, k)
		}
	}
	return strings.Join(out, ", ")
}

func orNone(s string) string {
	if s == "" {
		return noneValue
	}
	return s
}

// userInstructions renders free-form instructions as an indented list,
// one item per non-empty line, capped in lines and runes.
func userInstructions(s string) string {
	budget := maxUserInstructionRunes
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = singleLine(line)
		if line == "" {
			continue
		}
		if len(lines) == maxUserInstructionLines || budget == 0 {
			break
		}

		runes := []rune(line)
		if len(runes) > budget {
			runes = runes[:budget]
		}
		budget -= len(runes)
		lines = append(lines, "  - "+string(runes))
	}

	if len(lines) == 0 {
		return "  - " + noneValue
	}
	return strings.Join(lines, "\n")
}

func parseResponse(raw string) (*ai.FitAssessment, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	return &ai.FitAssessment{
		Fit:     coerceBool(data["fit"]),
		Score:   score,
		Reason:  coerceString(data["reason"]),
		Message: coerceString(data["message"]),
	}, nil
}

// extractJSON strips code fences and any prose around the outermost object.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(val), "%")
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(trimmed), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
