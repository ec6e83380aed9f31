// Package coverletter writes a four-part cover letter from the mapped evidence of a CV.
package coverletter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/schemas"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/sirupsen/logrus"
)

// Tones
const (
	ToneProfessional = "professional"
	ToneEnergetic    = "energetic"
	ToneFormal       = "formal"
)

// maxEvidence is the number of evidence lines offered to the letter
const maxEvidence = 6

var toneSignals = []struct {
	tone    string
	signals []string
}{
	{ToneEnergetic, []string{"startup", "fast-paced", "fast paced", "dynamic"}},
	{ToneFormal, []string{"formal", "traditional", "enterprise"}},
}

// Input is everything the cover letter reads. Grounded and Vocabulary come from the guardrail
// that checked the CV so the letter is held to the same facts.
type Input struct {
	Facts        *types.CVFacts
	Requirements *types.JobRequirements
	Mapping      *types.Mapping
	Grounded     *validation.GroundedSet
	Vocabulary   validation.Vocabulary
	Options      types.TailorOptions
	Logger       logrus.FieldLogger
}

type letterReply struct {
	Hook             string `json:"hook"`
	ValueProposition string `json:"value_proposition"`
	FitNarrative     string `json:"fit_narrative"`
	Closing          string `json:"closing"`
}

// SelectTone picks the letter's tone from the posting's culture signals
func SelectTone(signals types.CultureSignals) string {
	all := strings.ToLower(strings.Join(append(append([]string(nil), signals.WorkStyle...), signals.Values...), " | "))
	for _, ts := range toneSignals {
		for _, s := range ts.signals {
			if strings.Contains(all, s) {
				return ts.tone
			}
		}
	}
	return ToneProfessional
}

// Generate writes the letter with the LLM and checks it against the CV's facts. When the
// provider fails the letter is built from a template of grounded facts instead; a reply that
// never matches the schema is an error. Any fabrication fails the letter.
func Generate(ctx context.Context, client llm.Client, in Input) (*types.CoverLetter, error) {
	if in.Facts == nil || in.Requirements == nil || in.Mapping == nil || in.Grounded == nil {
		return nil, fmt.Errorf("cover letter: facts, requirements, mapping and grounded set are required")
	}
	log := observability.OrNop(in.Logger)
	tone := SelectTone(in.Requirements.CultureSignals)

	prompt, err := prompts.Render("cover_letter.json", "cover-letter", map[string]string{
		"Name":             in.Facts.PersonalInfo.Name,
		"JobTitle":         in.Requirements.JobTitle,
		"Company":          orDefault(in.Requirements.Company, "the company"),
		"Tone":             tone,
		"StrongestMatches": bulletList(in.Mapping.Summary.StrongestMatches),
		"Evidence":         evidenceLines(in.Mapping),
		"Gaps":             bulletList(gapDescriptions(in.Mapping)),
		"CultureSignals":   strings.Join(append(append([]string(nil), in.Requirements.CultureSignals.WorkStyle...), in.Requirements.CultureSignals.Values...), ", "),
		"UserNotes":        validation.QuoteUntrusted(log, in.Options.UserNotes, "user notes"),
	})
	if err != nil {
		return nil, err
	}

	reply, err := llm.Extract[letterReply](ctx, client, llm.Request{
		Name:   "cover letter",
		Prompt: prompt,
		Schema: schemas.CoverLetter,
		Tier:   llm.TierAdvanced,
		Logger: log,
	})

	var letter *types.CoverLetter
	switch {
	case err == nil:
		letter = assemble(reply.Hook, reply.ValueProposition, reply.FitNarrative, reply.Closing, tone)
	case upstream(err) && ctx.Err() == nil:
		log.WithError(err).Warn("Cover letter generation failed, using template")
		letter = Template(in)
	default:
		return nil, err
	}

	if err := validation.CheckCoverLetter(letter, in.Grounded, in.Vocabulary); err != nil {
		log.WithError(err).Warn("Cover letter rejected")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"tone":  letter.Tone,
		"chars": len(letter.FullText),
	}).Info("Generated cover letter")
	return letter, nil
}

// Template builds a letter only from the candidate's own sentences, titles and companies
func Template(in Input) *types.CoverLetter {
	tone := SelectTone(in.Requirements.CultureSignals)
	company := in.Requirements.Company

	hook := fmt.Sprintf("I am writing to apply for the %s role", in.Requirements.JobTitle)
	if company != "" {
		hook += " at " + company
	}
	hook += "."

	var evidence []string
	for _, e := range in.Mapping.Entries {
		if e.Evidence == nil || e.Evidence.Inferred || e.MatchType != types.MatchDirect ||
			e.Evidence.SourceType != types.SourceExperience || contains(evidence, e.Evidence.OriginalText) {
			continue
		}
		evidence = append(evidence, strings.TrimSuffix(strings.TrimSpace(e.Evidence.OriginalText), "."))
		if len(evidence) == 3 {
			break
		}
	}
	value := "My experience is summarised in the attached CV."
	if len(evidence) > 0 {
		value = "Highlights from my experience: " + strings.Join(evidence, "; ") + "."
	}

	fit := "I would bring my experience to the team."
	if len(in.Facts.Experience) > 0 {
		exp := in.Facts.Experience[0]
		fit = fmt.Sprintf("Most recently I have worked as %s at %s.", experience.MostRecentTitle(in.Facts), exp.Company)
	}

	closing := "Thank you for considering my application. I would welcome the chance to discuss the role."
	return assemble(hook, value, fit, closing, tone)
}

func assemble(hook, value, fit, closing, tone string) *types.CoverLetter {
	letter := &types.CoverLetter{
		Hook:             strings.TrimSpace(hook),
		ValueProposition: strings.TrimSpace(value),
		FitNarrative:     strings.TrimSpace(fit),
		Closing:          strings.TrimSpace(closing),
		Tone:             tone,
	}
	letter.FullText = strings.Join(letter.Parts(), "\n\n")
	return letter
}

// upstream reports whether err came from the provider rather than from the model's output
func upstream(err error) bool {
	var apiErr *llm.APIError
	return errors.As(err, &apiErr)
}

func evidenceLines(m *types.Mapping) string {
	var lines []string
	for _, e := range m.Entries {
		if e.Evidence == nil || e.MatchType == types.MatchGap {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", e.Requirement.Description, e.Evidence.OriginalText))
		if len(lines) == maxEvidence {
			break
		}
	}
	if len(lines) == 0 {
		return "(none)"
	}
	return strings.Join(lines, "\n")
}

func gapDescriptions(m *types.Mapping) []string {
	var out []string
	for _, e := range m.Entries {
		if e.MatchType == types.MatchGap {
			out = append(out, e.Requirement.Description)
		}
	}
	return out
}

func bulletList(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return "- " + strings.Join(values, "\n- ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func contains(values []string, v string) bool {
	v = strings.TrimSuffix(strings.TrimSpace(v), ".")
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
