package types

// PersonalInfo holds contact details as written in the CV
type PersonalInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
	Website  string `json:"website,omitempty"`
}

// ProfessionalSummary is the CV's own summary paragraph and the claims it makes
type ProfessionalSummary struct {
	OriginalText    string   `json:"original_text"`
	ExtractedClaims []string `json:"extracted_claims"`
}

// ExtractedFacts is the light structuring of a responsibility sentence
type ExtractedFacts struct {
	Action       string   `json:"action,omitempty"`
	Context      string   `json:"context,omitempty"`
	Result       string   `json:"result,omitempty"`
	Technologies []string `json:"technologies"`
	Scope        string   `json:"scope,omitempty"`
}

// ResponsibilityFact is a responsibility bullet from an experience entry
type ResponsibilityFact struct {
	OriginalText   string         `json:"original_text"`
	ExtractedFacts ExtractedFacts `json:"extracted_facts"`
}

// MetricType classifies a quantified achievement
type MetricType string

// Metric types
const (
	MetricPercentage MetricType = "percentage"
	MetricNumber     MetricType = "number"
	MetricCurrency   MetricType = "currency"
	MetricTime       MetricType = "time"
	MetricOther      MetricType = "other"
)

// Metric is the literal value of a quantified achievement
type Metric struct {
	Type    MetricType `json:"type"`
	Value   string     `json:"value"`
	Context string     `json:"context,omitempty"`
}

// Achievement is an outcome bullet from an experience entry
type Achievement struct {
	OriginalText string  `json:"original_text"`
	Quantified   bool    `json:"quantified"`
	Metrics      *Metric `json:"metrics,omitempty"`
}

// Experience is one position held
type Experience struct {
	ID               string               `json:"id"`
	Company          string               `json:"company"`
	Title            string               `json:"title"`
	StartDate        string               `json:"start_date"`
	EndDate          string               `json:"end_date"`
	DurationMonths   *int                 `json:"duration_months,omitempty"`
	Location         string               `json:"location,omitempty"`
	Responsibilities []ResponsibilityFact `json:"responsibilities"`
	Achievements     []Achievement        `json:"achievements"`
}

// InferredSkill is a skill not listed verbatim but demonstrated by one sentence of the CV
type InferredSkill struct {
	Skill          string `json:"skill"`
	EvidenceSource string `json:"evidence_source"`
}

// Skills partitions skills by how they are evidenced
type Skills struct {
	ExplicitlyListed       []string        `json:"explicitly_listed"`
	InferredFromExperience []InferredSkill `json:"inferred_from_experience"`
}

// Education is a degree entry
type Education struct {
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree,omitempty"`
	Field          string   `json:"field,omitempty"`
	GraduationYear string   `json:"graduation_year,omitempty"`
	Achievements   []string `json:"achievements,omitempty"`
}

// CertificationStatus is the state of a certification
type CertificationStatus string

// Certification statuses
const (
	CertCompleted  CertificationStatus = "completed"
	CertInProgress CertificationStatus = "in_progress"
	CertExpired    CertificationStatus = "expired"
)

// Certification is a credential listed in the CV
type Certification struct {
	Name   string              `json:"name"`
	Issuer string              `json:"issuer,omitempty"`
	Date   string              `json:"date,omitempty"`
	Status CertificationStatus `json:"status,omitempty"`
}

// Project is a side or portfolio project
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Role         string   `json:"role,omitempty"`
	Outcomes     []string `json:"outcomes,omitempty"`
}

// Language is a spoken language
type Language struct {
	Language    string `json:"language"`
	Proficiency string `json:"proficiency,omitempty"`
}

// CVFacts is the fact inventory extracted from a CV; downstream stages only read it
type CVFacts struct {
	PersonalInfo        PersonalInfo         `json:"personal_info"`
	ProfessionalSummary *ProfessionalSummary `json:"professional_summary,omitempty"`
	Experience          []Experience         `json:"experience"`
	Skills              Skills               `json:"skills"`
	Education           []Education          `json:"education"`
	Certifications      []Certification      `json:"certifications"`
	Projects            []Project            `json:"projects"`
	Languages           []Language           `json:"languages"`
}

// FindExperience returns the experience with the given ID
func (f *CVFacts) FindExperience(id string) (*Experience, bool) {
	for i := range f.Experience {
		if f.Experience[i].ID == id {
			return &f.Experience[i], true
		}
	}
	return nil, false
}

// SourceText resolves a bullet source ID ("exp_1/r0", "exp_1/a2") to its original text
func (f *CVFacts) SourceText(sourceID string) (string, bool) {
	expID, kind, idx, ok := ParseSourceID(sourceID)
	if !ok {
		return "", false
	}
	exp, found := f.FindExperience(expID)
	if !found {
		return "", false
	}
	switch kind {
	case SourceResponsibility:
		if idx < len(exp.Responsibilities) {
			return exp.Responsibilities[idx].OriginalText, true
		}
	case SourceAchievement:
		if idx < len(exp.Achievements) {
			return exp.Achievements[idx].OriginalText, true
		}
	}
	return "", false
}

// OriginalTexts returns every verbatim sentence of the CV: summary, responsibilities,
// achievements, project descriptions and outcomes, and education achievements
func (f *CVFacts) OriginalTexts() []string {
	var out []string
	if f.ProfessionalSummary != nil && f.ProfessionalSummary.OriginalText != "" {
		out = append(out, f.ProfessionalSummary.OriginalText)
	}
	for _, exp := range f.Experience {
		for _, r := range exp.Responsibilities {
			out = append(out, r.OriginalText)
		}
		for _, a := range exp.Achievements {
			out = append(out, a.OriginalText)
		}
	}
	for _, p := range f.Projects {
		if p.Description != "" {
			out = append(out, p.Description)
		}
		out = append(out, p.Outcomes...)
	}
	for _, e := range f.Education {
		out = append(out, e.Achievements...)
	}
	return out
}
