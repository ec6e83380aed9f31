package rewriting

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/cv-tailor/internal/experience"
	"github.com/jonathan/cv-tailor/internal/llm"
	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/prompts"
	"github.com/jonathan/cv-tailor/internal/schemas"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/jonathan/cv-tailor/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of LLM rewrite calls in flight per request
const DefaultConcurrency = 4

// Input is everything the generator reads
type Input struct {
	Facts        *types.CVFacts
	Requirements *types.JobRequirements
	Mapping      *types.Mapping
	Options      types.TailorOptions
	Concurrency  int // per-experience rewrite calls in flight; DefaultConcurrency when 0
	Logger       logrus.FieldLogger
}

type summaryReply struct {
	Summary      string   `json:"summary"`
	KeywordsUsed []string `json:"keywords_used"`
	Explanation  *string  `json:"explanation"`
}

type generator struct {
	client       llm.Client
	facts        *types.CVFacts
	reqs         *types.JobRequirements
	mapping      *types.Mapping
	policy       Policy
	allowed      []string
	jobKeywords  []string
	mustKeywords []string
	notes        string
	log          logrus.FieldLogger
}

// experienceDraft is one experience with its selected bullets before rewriting
type experienceDraft struct {
	exp      types.Experience
	kept     []candidate
	dropped  []candidate
	rewrites map[string]bulletRewrite
	hits     int
}

// Generate builds the tailored CV draft. Facts are only read; every textual difference from the
// original CV is recorded in the changes log. The draft still has to pass the guardrail.
func Generate(ctx context.Context, client llm.Client, in Input) (*types.TailoredOutput, error) {
	if in.Facts == nil || in.Requirements == nil || in.Mapping == nil {
		return nil, fmt.Errorf("generate: facts, requirements and mapping are required")
	}
	opts := in.Options.WithDefaults()
	log := observability.OrNop(in.Logger).WithField("strictness", opts.Strictness)

	g := &generator{
		client:  client,
		facts:   in.Facts,
		reqs:    in.Requirements,
		mapping: in.Mapping,
		policy:  PolicyFor(opts.Strictness),
		log:     log,
		notes:   validation.QuoteUntrusted(log, opts.UserNotes, "user notes"),
	}
	g.allowed = AllowedKeywords(g.policy, g.reqs, g.mapping)
	g.jobKeywords = g.reqs.AllKeywords()
	for _, req := range g.reqs.MustHave {
		g.mustKeywords = append(g.mustKeywords, req.Keywords...)
	}
	g.mustKeywords = append(g.mustKeywords, g.reqs.ATSKeywords.HighPriority...)

	drafts := make([]*experienceDraft, len(g.facts.Experience))
	for i, exp := range g.facts.Experience {
		kept, dropped := selectBullets(exp, g.jobKeywords)
		d := &experienceDraft{exp: exp, kept: kept, dropped: dropped}
		for _, c := range kept {
			d.hits += c.hits
		}
		drafts[i] = d
	}

	concurrency := in.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	var summary *summaryReply
	eg.Go(func() error {
		s, err := g.summary(egCtx)
		if err != nil {
			return fmt.Errorf("summary generation failed: %w", err)
		}
		summary = s
		return nil
	})
	if g.policy.RewriteBullets {
		for _, d := range drafts {
			if len(d.kept) == 0 {
				continue
			}
			eg.Go(func() error {
				rewrites, err := g.rewriteBullets(egCtx, d.exp, d.kept)
				if err != nil {
					return fmt.Errorf("bullet rewriting failed for %s: %w", d.exp.ID, err)
				}
				d.rewrites = rewrites
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &types.TailoredOutput{
		CV: types.TailoredCV{
			Header: g.header(),
		},
		ChangesLog:      []types.ChangeLogEntry{},
		BorderlineItems: []types.BorderlineItem{},
	}
	out.CV.Summary = strings.TrimSpace(summary.Summary)
	out.ChangesLog = append(out.ChangesLog, g.summaryChange(out.CV.Summary, summary.Explanation))

	experiences, changes := g.experiences(drafts)
	out.CV.Experience = experiences
	out.ChangesLog = append(out.ChangesLog, changes...)

	skills, changes := g.skills()
	out.CV.Skills = skills
	out.ChangesLog = append(out.ChangesLog, changes...)

	out.CV.Education = g.education()

	certs, changes := g.certifications()
	out.CV.Certifications = certs
	out.ChangesLog = append(out.ChangesLog, changes...)

	projects, changes := g.projects()
	out.CV.Projects = projects
	out.ChangesLog = append(out.ChangesLog, changes...)

	log.WithFields(logrus.Fields{
		"experiences": len(out.CV.Experience),
		"skills":      len(out.CV.Skills.All()),
		"changes":     len(out.ChangesLog),
		"keywords":    len(g.allowed),
	}).Info("Generated tailored CV")
	return out, nil
}

// header keeps the candidate's own name, contact details and most recent title
func (g *generator) header() types.Header {
	info := g.facts.PersonalInfo
	contact := make(map[string]string)
	for k, v := range map[string]string{
		"email":    info.Email,
		"phone":    info.Phone,
		"location": info.Location,
		"linkedin": info.LinkedIn,
		"website":  info.Website,
	} {
		if strings.TrimSpace(v) != "" {
			contact[k] = strings.TrimSpace(v)
		}
	}
	return types.Header{
		Name:    info.Name,
		Title:   experience.MostRecentTitle(g.facts),
		Contact: contact,
	}
}

func (g *generator) summary(ctx context.Context) (*summaryReply, error) {
	original := "(none)"
	if g.facts.ProfessionalSummary != nil && strings.TrimSpace(g.facts.ProfessionalSummary.OriginalText) != "" {
		original = g.facts.ProfessionalSummary.OriginalText
	}
	prompt, err := prompts.Render("generation.json", "summary", map[string]string{
		"Name":              g.facts.PersonalInfo.Name,
		"JobTitle":          g.reqs.JobTitle,
		"Strictness":        string(g.policy.Strictness),
		"ReframingGuidance": prompts.MustGet("generation.json", "reframing-"+g.policy.Reframing),
		"KeywordGuidance":   prompts.MustGet("generation.json", "keywords-"+g.policy.Keywords),
		"GapGuidance":       prompts.MustGet("generation.json", "gaps-"+g.policy.Gaps),
		"Keywords":          strings.Join(g.allowed, ", "),
		"OriginalSummary":   original,
		"Facts":             factInventory(g.facts, g.policy.InferredSkills),
		"UserNotes":         g.notes,
	})
	if err != nil {
		return nil, err
	}
	return llm.Extract[summaryReply](ctx, g.client, llm.Request{
		Name:   "summary",
		Prompt: prompt,
		Schema: schemas.Summary,
		Tier:   llm.TierAdvanced,
		Logger: g.log,
	})
}

func (g *generator) summaryChange(summary string, explanation *string) types.ChangeLogEntry {
	entry := types.ChangeLogEntry{
		Section:        "summary",
		ChangeType:     types.ChangeRewrite,
		New:            summary,
		Justification:  "Summary tailored to the " + g.reqs.JobTitle + " role",
		Confidence:     types.ConfidenceMedium,
		RequiresReview: true,
	}
	if g.facts.ProfessionalSummary != nil && strings.TrimSpace(g.facts.ProfessionalSummary.OriginalText) != "" {
		entry.Original = types.StringPtr(g.facts.ProfessionalSummary.OriginalText)
	} else {
		entry.Justification = "Summary added for the " + g.reqs.JobTitle + " role"
	}
	if explanation != nil && strings.TrimSpace(*explanation) != "" {
		entry.Justification += " (" + strings.TrimSpace(*explanation) + ")"
	}
	return entry
}

// experiences assembles experience entries, most relevant first when the policy reorders
func (g *generator) experiences(drafts []*experienceDraft) ([]types.TailoredExperience, []types.ChangeLogEntry) {
	var changes []types.ChangeLogEntry
	ordered := slices.Clone(drafts)
	if g.policy.ReorderExperience {
		slices.SortStableFunc(ordered, func(a, b *experienceDraft) int { return b.hits - a.hits })
		if !slices.Equal(ordered, drafts) {
			changes = append(changes, types.ChangeLogEntry{
				Section:       "experience",
				ChangeType:    types.ChangeReorder,
				Original:      types.StringPtr(experienceOrder(drafts)),
				New:           experienceOrder(ordered),
				Justification: "Most relevant experience first",
				Confidence:    types.ConfidenceHigh,
			})
		}
	}

	out := make([]types.TailoredExperience, 0, len(ordered))
	for _, d := range ordered {
		te := types.TailoredExperience{
			SourceID: d.exp.ID,
			Company:  d.exp.Company,
			Title:    d.exp.Title,
			Dates:    formatDates(d.exp.StartDate, d.exp.EndDate),
			Location: d.exp.Location,
			Bullets:  []types.Bullet{},
		}
		for _, c := range d.kept {
			r, ok := d.rewrites[c.SourceID]
			b, change := g.applyRewrite(c, r, ok)
			te.Bullets = append(te.Bullets, b)
			if change != nil {
				changes = append(changes, *change)
			}
		}
		for _, c := range d.dropped {
			changes = append(changes, types.ChangeLogEntry{
				Section:       "experience",
				ChangeType:    types.ChangeRemove,
				Original:      types.StringPtr(c.Text),
				Justification: fmt.Sprintf("Less relevant to the %s role than the %d bullets kept", g.reqs.JobTitle, len(d.kept)),
				Confidence:    types.ConfidenceHigh,
			})
		}
		out = append(out, te)
	}
	return out, changes
}

func experienceOrder(drafts []*experienceDraft) string {
	names := make([]string, len(drafts))
	for i, d := range drafts {
		names[i] = d.exp.Title + " at " + d.exp.Company
	}
	return strings.Join(names, "; ")
}

func formatDates(start, end string) string {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start
	}
	return end
}

// factInventory renders the facts the summary may draw on, one per line
func factInventory(facts *types.CVFacts, withInferred bool) string {
	var b strings.Builder
	for _, exp := range facts.Experience {
		fmt.Fprintf(&b, "Role: %s at %s (%s)\n", exp.Title, exp.Company, formatDates(exp.StartDate, exp.EndDate))
		for _, r := range exp.Responsibilities {
			fmt.Fprintf(&b, "- %s\n", r.OriginalText)
		}
		for _, a := range exp.Achievements {
			fmt.Fprintf(&b, "- %s\n", a.OriginalText)
		}
	}
	if years := int(experience.TotalYears(facts)); years > 0 {
		fmt.Fprintf(&b, "Total experience: %d years\n", years)
	}
	if len(facts.Skills.ExplicitlyListed) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(facts.Skills.ExplicitlyListed, ", "))
	}
	if withInferred {
		for _, s := range facts.Skills.InferredFromExperience {
			fmt.Fprintf(&b, "Inferred skill: %s (from: %s)\n", s.Skill, s.EvidenceSource)
		}
	}
	for _, e := range facts.Education {
		fmt.Fprintf(&b, "Education: %s\n", strings.Join(nonEmpty(e.Degree, e.Field, e.Institution, e.GraduationYear), ", "))
	}
	for _, c := range facts.Certifications {
		if c.Status != types.CertExpired {
			fmt.Fprintf(&b, "Certification: %s\n", c.Name)
		}
	}
	for _, p := range facts.Projects {
		fmt.Fprintf(&b, "Project: %s: %s\n", p.Name, p.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	return out
}
