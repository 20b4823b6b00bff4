package records

import "slices"

// Education is the optional education summary of a profile.
type Education struct {
	Degree         string `json:"degree,omitempty"`
	Field          string `json:"field,omitempty"`
	Institution    string `json:"institution,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
}

// Profile is the user side of a match.
//
// Fingerprint is a cache of the encoded profile text. Every setter that
// touches an encoded field drops it, so a stale fingerprint can only appear
// when callers assign fields directly.
type Profile struct {
	ID              string     `json:"id,omitempty"`
	Email           string     `json:"email,omitempty"`
	Name            string     `json:"name,omitempty"`
	Skills          []string   `json:"skills,omitempty"`
	ExperienceYears float64    `json:"experience_years,omitempty"`
	TargetRoles     []string   `json:"target_roles,omitempty"`
	TargetLocations []string   `json:"target_locations,omitempty"`
	Education       *Education `json:"education,omitempty"`
	ResumeText      string     `json:"resume_text,omitempty"`
	Fingerprint     []float64  `json:"resume_embedding,omitempty"`
}

// ProfileUpdate is a partial profile update. Nil fields are left untouched.
type ProfileUpdate struct {
	Name            *string
	Skills          []string
	ExperienceYears *float64
	TargetRoles     []string
	TargetLocations []string
	Education       *Education
	ResumeText      *string
}

// HasFingerprint reports whether a cached fingerprint is present.
func (p *Profile) HasFingerprint() bool {
	return p != nil && len(p.Fingerprint) > 0
}

// InvalidateFingerprint drops the cached fingerprint.
func (p *Profile) InvalidateFingerprint() {
	p.Fingerprint = nil
}

func (p *Profile) SetSkills(skills []string) {
	p.Skills = slices.Clone(skills)
	p.InvalidateFingerprint()
}

func (p *Profile) SetExperienceYears(years float64) {
	p.ExperienceYears = years
	p.InvalidateFingerprint()
}

func (p *Profile) SetTargetRoles(roles []string) {
	p.TargetRoles = slices.Clone(roles)
	p.InvalidateFingerprint()
}

func (p *Profile) SetEducation(edu *Education) {
	if edu != nil {
		copied := *edu
		edu = &copied
	}
	p.Education = edu
	p.InvalidateFingerprint()
}

func (p *Profile) SetResumeText(text string) {
	p.ResumeText = text
	p.InvalidateFingerprint()
}

// ApplyUpdate merges u into the profile and reports whether any encoded
// field was touched. In that case the cached fingerprint is dropped and the
// caller is expected to re-encode before persisting.
func (p *Profile) ApplyUpdate(u ProfileUpdate) bool {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.TargetLocations != nil {
		p.TargetLocations = slices.Clone(u.TargetLocations)
	}

	changed := false
	if u.Skills != nil {
		p.SetSkills(u.Skills)
		changed = true
	}
	if u.ExperienceYears != nil {
		p.SetExperienceYears(*u.ExperienceYears)
		changed = true
	}
	if u.TargetRoles != nil {
		p.SetTargetRoles(u.TargetRoles)
		changed = true
	}
	if u.Education != nil {
		p.SetEducation(u.Education)
		changed = true
	}
	if u.ResumeText != nil {
		p.SetResumeText(*u.ResumeText)
		changed = true
	}

	return changed
}
