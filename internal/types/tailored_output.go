package types

import (
	"maps"
	"slices"
)

// Header is the top block of the tailored CV
type Header struct {
	Name    string            `json:"name"`
	Title   string            `json:"title"`
	Contact map[string]string `json:"contact"`
}

// Bullet is one generated experience bullet and the sentence it came from
type Bullet struct {
	Text         string   `json:"text"`
	KeywordsUsed []string `json:"keywords_used"`
	SourceID     string   `json:"source_id"`
}

// TailoredExperience is an experience entry in the tailored CV
type TailoredExperience struct {
	SourceID string   `json:"source_id"`
	Company  string   `json:"company"`
	Title    string   `json:"title"`
	Dates    string   `json:"dates"`
	Location string   `json:"location,omitempty"`
	Bullets  []Bullet `json:"bullets"`
}

// TailoredSkills splits skills by relevance to the job
type TailoredSkills struct {
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
	Tools     []string `json:"tools"`
}

// All returns every skill in display order
func (s TailoredSkills) All() []string {
	out := make([]string, 0, len(s.Primary)+len(s.Secondary)+len(s.Tools))
	out = append(out, s.Primary...)
	out = append(out, s.Secondary...)
	return append(out, s.Tools...)
}

// TailoredEducation is an education entry in the tailored CV
type TailoredEducation struct {
	Institution string   `json:"institution"`
	Degree      string   `json:"degree,omitempty"`
	Field       string   `json:"field,omitempty"`
	Year        string   `json:"year,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

// TailoredCertification is a certification entry in the tailored CV
type TailoredCertification struct {
	Name   string `json:"name"`
	Issuer string `json:"issuer,omitempty"`
	Date   string `json:"date,omitempty"`
}

// TailoredProject is a project entry in the tailored CV
type TailoredProject struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies,omitempty"`
}

// TailoredCV is the restructured CV
type TailoredCV struct {
	Header         Header                  `json:"header"`
	Summary        string                  `json:"summary"`
	Experience     []TailoredExperience    `json:"experience"`
	Skills         TailoredSkills          `json:"skills"`
	Education      []TailoredEducation     `json:"education"`
	Certifications []TailoredCertification `json:"certifications"`
	Projects       []TailoredProject       `json:"projects"`
}

// ChangeType is the kind of modification recorded in the changes log
type ChangeType string

// Change types
const (
	ChangeReorder    ChangeType = "reorder"
	ChangeRewrite    ChangeType = "rewrite"
	ChangeAddKeyword ChangeType = "add_keyword"
	ChangeQuantify   ChangeType = "quantify"
	ChangeRemove     ChangeType = "remove"
)

// Confidence grades how safe a change is
type Confidence string

// Confidence levels
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ChangeLogEntry records one modification relative to the original CV
type ChangeLogEntry struct {
	Section        string     `json:"section"`
	ChangeType     ChangeType `json:"change_type"`
	Original       *string    `json:"original"`
	New            string     `json:"new"`
	Justification  string     `json:"justification"`
	Confidence     Confidence `json:"confidence"`
	RequiresReview bool       `json:"requires_review"`
}

// BorderlineCategory classifies a plausible but non-verbatim claim
type BorderlineCategory string

// Borderline categories
const (
	BorderlineInferred   BorderlineCategory = "inferred_but_reasonable"
	BorderlineReframed   BorderlineCategory = "reframed_significantly"
	BorderlineMitigation BorderlineCategory = "gap_mitigation"
)

// RiskLevel grades how much review a borderline item needs
type RiskLevel string

// Risk levels
const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// BorderlineItem is content kept in the output but flagged for user review
type BorderlineItem struct {
	Content          string             `json:"content"`
	Category         BorderlineCategory `json:"category"`
	OriginalEvidence string             `json:"original_evidence"`
	RiskLevel        RiskLevel          `json:"risk_level"`
	UserPrompt       string             `json:"user_prompt"`
}

// ScoreAdjustment is a bonus or penalty line item of the match score
type ScoreAdjustment struct {
	Reason string `json:"reason"`
	Points int    `json:"points"`
}

// ScoreBreakdown explains how a match score was composed
type ScoreBreakdown struct {
	MustHaveComponent   int               `json:"must_have_component"`
	NiceToHaveComponent int               `json:"nice_to_have_component"`
	Bonuses             []ScoreAdjustment `json:"bonuses"`
	Penalties           []ScoreAdjustment `json:"penalties"`
}

// MatchScore is the 0-100 fit score of the tailored CV
type MatchScore struct {
	Score       int            `json:"score"`
	Breakdown   ScoreBreakdown `json:"breakdown"`
	Explanation string         `json:"explanation"`
}

// TailoredOutput is the generator's artifact as accepted or flagged by the guardrail
type TailoredOutput struct {
	CV              TailoredCV       `json:"tailored_cv"`
	ChangesLog      []ChangeLogEntry `json:"changes_log"`
	BorderlineItems []BorderlineItem `json:"borderline_items"`
	MatchScore      *MatchScore      `json:"match_score,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// Clone returns a deep copy so flags can be applied without touching the original
func (o *TailoredOutput) Clone() *TailoredOutput {
	if o == nil {
		return nil
	}
	out := *o
	out.CV.Header.Contact = maps.Clone(o.CV.Header.Contact)
	out.CV.Experience = slices.Clone(o.CV.Experience)
	for i := range out.CV.Experience {
		out.CV.Experience[i].Bullets = slices.Clone(o.CV.Experience[i].Bullets)
	}
	out.CV.Skills = TailoredSkills{
		Primary:   slices.Clone(o.CV.Skills.Primary),
		Secondary: slices.Clone(o.CV.Skills.Secondary),
		Tools:     slices.Clone(o.CV.Skills.Tools),
	}
	out.CV.Education = slices.Clone(o.CV.Education)
	out.CV.Certifications = slices.Clone(o.CV.Certifications)
	out.CV.Projects = slices.Clone(o.CV.Projects)
	out.ChangesLog = slices.Clone(o.ChangesLog)
	out.BorderlineItems = slices.Clone(o.BorderlineItems)
	out.Warnings = slices.Clone(o.Warnings)
	if o.MatchScore != nil {
		score := *o.MatchScore
		out.MatchScore = &score
	}
	return &out
}

// CoverLetter is the four-part letter
type CoverLetter struct {
	Hook             string `json:"hook"`
	ValueProposition string `json:"value_proposition"`
	FitNarrative     string `json:"fit_narrative"`
	Closing          string `json:"closing"`
	FullText         string `json:"full_text"`
	Tone             string `json:"tone,omitempty"`
}

// Parts returns the letter sections in reading order
func (c *CoverLetter) Parts() []string {
	return []string{c.Hook, c.ValueProposition, c.FitNarrative, c.Closing}
}

// TailorResult is everything a tailoring request returns
type TailorResult struct {
	RunID           string           `json:"run_id,omitempty"`
	TailoredCV      TailoredCV       `json:"tailored_cv"`
	CoverLetter     *CoverLetter     `json:"cover_letter,omitempty"`
	ChangesLog      []ChangeLogEntry `json:"changes_log"`
	BorderlineItems []BorderlineItem `json:"borderline_items"`
	MatchScore      *MatchScore      `json:"match_score"`
	MappingSummary  MappingSummary   `json:"mapping_summary"`
	Warnings        []string         `json:"warnings,omitempty"`
}
