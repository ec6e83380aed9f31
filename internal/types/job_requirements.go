// Package types provides type definitions for structured data used throughout the cv-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// RequirementCategory is the closed set of requirement kinds a job posting can express
type RequirementCategory string

// Requirement categories
const (
	CategoryTechnicalSkill RequirementCategory = "technical_skill"
	CategorySoftSkill      RequirementCategory = "soft_skill"
	CategoryExperience     RequirementCategory = "experience"
	CategoryCertification  RequirementCategory = "certification"
	CategoryEducation      RequirementCategory = "education"
)

// IsValid reports whether c belongs to the closed category set
func (c RequirementCategory) IsValid() bool {
	switch c {
	case CategoryTechnicalSkill, CategorySoftSkill, CategoryExperience, CategoryCertification, CategoryEducation:
		return true
	}
	return false
}

// Specificity marks whether a requirement must be met literally
type Specificity string

// Specificity values
const (
	SpecificityExact    Specificity = "exact"
	SpecificityFlexible Specificity = "flexible"
)

// Requirement is a single job requirement
type Requirement struct {
	Category      RequirementCategory `json:"category"`
	Description   string              `json:"description"`
	Keywords      []string            `json:"keywords"`
	YearsRequired *float64            `json:"years_required,omitempty"`
	Specificity   Specificity         `json:"specificity"`
}

// Responsibility is a duty listed in the posting with the skills it implies
type Responsibility struct {
	Description   string   `json:"description"`
	ImpliedSkills []string `json:"implied_skills"`
}

// ATSKeywords holds the tiered keyword lists an applicant tracking system would scan for
type ATSKeywords struct {
	HighPriority   []string `json:"high_priority"`
	MediumPriority []string `json:"medium_priority"`
	Contextual     []string `json:"contextual"`
}

// KeywordTier identifies one ATS keyword list
type KeywordTier string

// Keyword tiers, highest priority first
const (
	TierHigh       KeywordTier = "high"
	TierMedium     KeywordTier = "medium"
	TierContextual KeywordTier = "contextual"
)

// Priority returns the tier a keyword belongs to, or "" when it is in none
func (k ATSKeywords) Priority(keyword string) KeywordTier {
	switch {
	case containsFold(k.HighPriority, keyword):
		return TierHigh
	case containsFold(k.MediumPriority, keyword):
		return TierMedium
	case containsFold(k.Contextual, keyword):
		return TierContextual
	}
	return ""
}

// All returns every keyword, high priority first
func (k ATSKeywords) All() []string {
	all := make([]string, 0, len(k.HighPriority)+len(k.MediumPriority)+len(k.Contextual))
	all = append(all, k.HighPriority...)
	all = append(all, k.MediumPriority...)
	all = append(all, k.Contextual...)
	return all
}

// CultureSignals captures work style and value tags from the posting
type CultureSignals struct {
	WorkStyle []string `json:"work_style"`
	Values    []string `json:"values"`
}

// JobRequirements is the structured form of a job description
type JobRequirements struct {
	JobTitle         string           `json:"job_title"`
	Company          string           `json:"company,omitempty"`
	Department       string           `json:"department,omitempty"`
	MustHave         []Requirement    `json:"must_have"`
	NiceToHave       []Requirement    `json:"nice_to_have"`
	Inferred         []Requirement    `json:"inferred"`
	Responsibilities []Responsibility `json:"responsibilities"`
	ATSKeywords      ATSKeywords      `json:"ats_keywords"`
	CultureSignals   CultureSignals   `json:"culture_signals"`
}

// Bucket names the requirement group a requirement was classified into
type Bucket string

// Requirement buckets in priority order
const (
	BucketMustHave   Bucket = "must_have"
	BucketNiceToHave Bucket = "nice_to_have"
	BucketInferred   Bucket = "inferred"
)

// Buckets returns the three requirement groups in priority order
func (j *JobRequirements) Buckets() []struct {
	Bucket       Bucket
	Requirements []Requirement
} {
	return []struct {
		Bucket       Bucket
		Requirements []Requirement
	}{
		{BucketMustHave, j.MustHave},
		{BucketNiceToHave, j.NiceToHave},
		{BucketInferred, j.Inferred},
	}
}

// CredentialKeywords returns the keywords of certification requirements
func (j *JobRequirements) CredentialKeywords() []string {
	var out []string
	for _, group := range j.Buckets() {
		for _, req := range group.Requirements {
			if req.Category == CategoryCertification {
				out = append(out, req.Keywords...)
			}
		}
	}
	return out
}

// AllKeywords returns requirement keywords and ATS keywords without duplicates
func (j *JobRequirements) AllKeywords() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(values []string) {
		for _, v := range values {
			key := foldKey(v)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	for _, group := range j.Buckets() {
		for _, req := range group.Requirements {
			add(req.Keywords)
		}
	}
	add(j.ATSKeywords.All())
	for _, resp := range j.Responsibilities {
		add(resp.ImpliedSkills)
	}
	return out
}
