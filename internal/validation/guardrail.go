package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/cv-tailor/internal/observability"
	"github.com/jonathan/cv-tailor/internal/scoring"
	"github.com/jonathan/cv-tailor/internal/types"
	"github.com/sirupsen/logrus"
)

// promotionWords raise seniority when added to a title
var promotionWords = []string{"senior", "lead", "principal", "director", "head", "chief", "vp"}

// learningFrames present a skill as being acquired rather than held
var learningFrames = []string{
	"eager to", "keen to", "learning", "currently studying", "exposure to",
	"interest in", "interested in", "ramping up", "looking to deepen",
}

var capitalisedTerm = regexp.MustCompile(`[A-Z][A-Za-z0-9+#]*(?:\.[A-Za-z]+)*`)

// commonCapitalised are capitalised words that carry no claim
var commonCapitalised = map[string]bool{
	"i": true, "my": true, "january": true, "february": true, "march": true, "april": true,
	"may": true, "june": true, "july": true, "august": true, "september": true,
	"october": true, "november": true, "december": true,
}

// Vocabulary is the set of job terms the guardrail looks for in generated free text.
type Vocabulary struct {
	// Keywords are requirement and ATS keywords
	Keywords []string
	// Credentials are keywords of certification requirements
	Credentials []string
	// Allowed names the employer and role; they may appear without being in the CV
	Allowed []string
}

// NewVocabulary collects the terms of reqs. A nil reqs yields an empty vocabulary.
func NewVocabulary(reqs *types.JobRequirements) Vocabulary {
	if reqs == nil {
		return Vocabulary{}
	}
	return Vocabulary{
		Keywords:    reqs.AllKeywords(),
		Credentials: reqs.CredentialKeywords(),
		Allowed:     []string{reqs.Company, reqs.JobTitle, reqs.Department},
	}
}

// Option configures a Guardrail
type Option func(*Guardrail)

// WithJudge replaces the heuristic rewrite judge
func WithJudge(j scoring.Judge) Option {
	return func(g *Guardrail) { g.judge = j }
}

// WithLogger sets the logger used for check outcomes
func WithLogger(log logrus.FieldLogger) Option {
	return func(g *Guardrail) { g.log = observability.OrNop(log) }
}

// Guardrail decides whether a generated CV may be returned: it rejects the whole output on
// any hard fabrication and flags plausible but non-verbatim content for review.
type Guardrail struct {
	facts      *types.CVFacts
	grounded   *GroundedSet
	vocab      Vocabulary
	strictness types.Strictness
	judge      scoring.Judge
	log        logrus.FieldLogger
}

// NewGuardrail builds the grounded set of facts once; inferred skills are grounded at every
// strictness except conservative.
func NewGuardrail(facts *types.CVFacts, reqs *types.JobRequirements, strictness types.Strictness, opts ...Option) *Guardrail {
	g := &Guardrail{
		facts:      facts,
		grounded:   BuildGroundedSet(facts, strictness != types.StrictnessConservative),
		vocab:      NewVocabulary(reqs),
		strictness: strictness,
		judge:      scoring.Heuristic{},
		log:        observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Grounded returns the grounded set the guardrail checks against
func (g *Guardrail) Grounded() *GroundedSet { return g.grounded }

// Vocabulary returns the job terms the guardrail looks for
func (g *Guardrail) Vocabulary() Vocabulary { return g.vocab }

// Check validates draft and returns an accepted copy carrying any new borderline items and
// warnings, with related change entries marked for review. The draft itself is not modified,
// and checking an accepted output again yields the same output.
func (g *Guardrail) Check(draft *types.TailoredOutput) (*types.TailoredOutput, error) {
	if draft == nil {
		return nil, fmt.Errorf("guardrail: nil draft")
	}
	out := draft.Clone()
	r := &review{
		g:             g.grounded,
		vocab:         g.vocab,
		judge:         g.judge,
		allowLearning: g.strictness != types.StrictnessConservative,
	}

	r.checkHeader(out.CV.Header, g.facts)
	summarySource := ""
	if g.facts.ProfessionalSummary != nil {
		summarySource = g.facts.ProfessionalSummary.OriginalText
	}
	r.checkText("summary", out.CV.Summary, summarySource, g.grounded.Numbers())
	for i, exp := range out.CV.Experience {
		r.checkExperience(fmt.Sprintf("experience[%d]", i), exp, g.facts)
	}
	r.checkSkills(out.CV.Skills)
	for i, edu := range out.CV.Education {
		r.checkEducation(fmt.Sprintf("education[%d]", i), edu)
	}
	for i, cert := range out.CV.Certifications {
		if !g.grounded.HasCertification(cert.Name) {
			r.violate(fmt.Sprintf("certifications[%d]", i), types.ViolationCredential, cert.Name,
				fmt.Sprintf("certification %q is not in the CV", cert.Name))
		}
	}
	for i, p := range out.CV.Projects {
		r.checkProject(fmt.Sprintf("projects[%d]", i), p, g.facts)
	}

	if len(r.violations) > 0 {
		g.log.WithFields(logrus.Fields{
			"violations": len(r.violations),
			"strictness": g.strictness,
		}).Warn("Fabrication detected, rejecting output")
		return nil, &FabricationError{Violations: r.violations}
	}

	out.BorderlineItems = mergeItems(out.BorderlineItems, r.items)
	out.Warnings = mergeStrings(out.Warnings, r.warnings)
	markForReview(out.ChangesLog, r.related)

	g.log.WithFields(logrus.Fields{
		"borderline": len(out.BorderlineItems),
		"warnings":   len(out.Warnings),
	}).Info("Output passed guardrail")
	return out, nil
}

// CheckCoverLetter applies the entity, credential, number and unknown-name rules to the letter's parts
// using an already built grounded set. Learning frames are allowed; a letter has no
// borderline channel, so anything not grounded is a violation.
func CheckCoverLetter(letter *types.CoverLetter, grounded *GroundedSet, vocab Vocabulary) error {
	if letter == nil {
		return nil
	}
	r := &review{g: grounded, vocab: vocab, judge: scoring.Heuristic{}, allowLearning: true}
	fields := []string{"hook", "value_proposition", "fit_narrative", "closing"}
	for i, part := range letter.Parts() {
		r.checkText("cover_letter."+fields[i], part, "", grounded.Numbers())
	}
	if len(r.violations) > 0 {
		return &FabricationError{Violations: r.violations}
	}
	return nil
}

// review accumulates the findings of one check
type review struct {
	g             *GroundedSet
	vocab         Vocabulary
	judge         scoring.Judge
	allowLearning bool

	violations []types.Violation
	items      []types.BorderlineItem
	related    []string
	warnings   []string
}

func (r *review) violate(field string, kind types.ViolationKind, value, message string) {
	r.violations = append(r.violations, types.Violation{Field: field, Kind: kind, Value: value, Message: message})
}

func (r *review) flag(item types.BorderlineItem, related string) {
	r.items = mergeItems(r.items, []types.BorderlineItem{item})
	r.related = append(r.related, related)
}

func (r *review) checkHeader(h types.Header, facts *types.CVFacts) {
	if h.Name != "" && !r.g.HasName(h.Name) {
		r.violate("header.name", types.ViolationUntraceable, h.Name, "name differs from the CV")
	}
	original := ""
	if len(facts.Experience) > 0 {
		original = facts.Experience[0].Title
	}
	title, original := strings.ToLower(h.Title), strings.ToLower(original)
	for _, word := range promotionWords {
		if containsTerm(title, word) && !containsTerm(original, word) {
			r.warnings = append(r.warnings,
				fmt.Sprintf("title change: %q added to the header title, verify this is accurate", word))
		}
	}
}

func (r *review) checkExperience(field string, exp types.TailoredExperience, facts *types.CVFacts) {
	if !r.g.HasCompany(exp.Company) {
		r.violate(field+".company", types.ViolationCompany, exp.Company,
			fmt.Sprintf("company %q is not in the CV", exp.Company))
	} else if !r.g.HasTitle(exp.Company, exp.Title) {
		r.violate(field+".title", types.ViolationTitle, exp.Title,
			fmt.Sprintf("title %q was not held at %s", exp.Title, exp.Company))
	}

	for i, b := range exp.Bullets {
		bf := fmt.Sprintf("%s.bullets[%d]", field, i)
		source, ok := facts.SourceText(b.SourceID)
		expID, _, _, _ := types.ParseSourceID(b.SourceID)
		if !ok || (exp.SourceID != "" && expID != exp.SourceID) {
			r.violate(bf, types.ViolationUntraceable, b.SourceID, "bullet does not trace to a sentence of this experience")
			continue
		}
		r.checkText(bf, b.Text, source, NewNumberSet(source))
		if v := r.judge.ClassifyRewrite(source, b.Text); v.Borderline {
			r.flag(types.BorderlineItem{
				Content:          b.Text,
				Category:         v.Category,
				OriginalEvidence: source,
				RiskLevel:        v.Risk,
				UserPrompt:       fmt.Sprintf("Rewritten bullet needs review (%s). Confirm it still describes what you did.", v.Reason),
			}, b.Text)
		}
	}
}

func (r *review) checkSkills(s types.TailoredSkills) {
	groups := []struct {
		name   string
		skills []string
	}{
		{"primary", s.Primary},
		{"secondary", s.Secondary},
		{"tools", s.Tools},
	}
	for _, group := range groups {
		for i, skill := range group.skills {
			r.checkSkillEntry(fmt.Sprintf("skills.%s[%d]", group.name, i), skill)
		}
	}
}

func (r *review) checkSkillEntry(field, skill string) {
	if r.g.Listed(skill) {
		return
	}
	if r.isCredential(skill) {
		if !r.g.HasCertification(skill) && !r.g.States(skill) {
			r.violate(field, types.ViolationCredential, skill, fmt.Sprintf("credential %q is not in the CV", skill))
		}
		return
	}
	if evidence, ok := r.g.Inferred(skill); ok {
		r.inferred(field, skill, evidence, skill)
		return
	}
	if r.g.Mentions(skill) {
		return
	}
	r.violate(field, types.ViolationSkill, skill, fmt.Sprintf("skill %q is not in the CV", skill))
}

func (r *review) inferred(field, skill, evidence, related string) {
	if !r.g.InferredAllowed() {
		r.violate(field, types.ViolationSkill, skill,
			fmt.Sprintf("skill %q is only inferred and inferred skills are not allowed at this strictness", skill))
		return
	}
	r.flag(types.BorderlineItem{
		Content:          skill,
		Category:         types.BorderlineInferred,
		OriginalEvidence: evidence,
		RiskLevel:        types.RiskMedium,
		UserPrompt:       fmt.Sprintf("%q is inferred from %q, not listed in your CV. Keep it only if you can speak to it.", skill, evidence),
	}, related)
}

func (r *review) checkEducation(field string, edu types.TailoredEducation) {
	if !r.g.HasInstitution(edu.Institution) {
		r.violate(field+".institution", types.ViolationCredential, edu.Institution,
			fmt.Sprintf("institution %q is not in the CV", edu.Institution))
	}
	if edu.Degree != "" && !r.g.HasDegree(edu.Degree) {
		r.violate(field+".degree", types.ViolationCredential, edu.Degree,
			fmt.Sprintf("degree %q is not in the CV", edu.Degree))
	}
	for i, h := range edu.Highlights {
		r.checkText(fmt.Sprintf("%s.highlights[%d]", field, i), h, "", r.g.Numbers())
	}
}

func (r *review) checkProject(field string, p types.TailoredProject, facts *types.CVFacts) {
	if !r.g.HasProject(p.Name) {
		r.violate(field+".name", types.ViolationUntraceable, p.Name, fmt.Sprintf("project %q is not in the CV", p.Name))
		return
	}
	source := ""
	for _, orig := range facts.Projects {
		if fold(orig.Name) == fold(p.Name) {
			source = orig.Description
			break
		}
	}
	r.checkText(field+".description", p.Description, source, r.g.Numbers())
	for i, tech := range p.Technologies {
		r.checkSkillEntry(fmt.Sprintf("%s.technologies[%d]", field, i), tech)
	}
}

// checkText applies the number, credential, keyword and unknown-term rules to free text.
// Terms present in source are grounded by it.
func (r *review) checkText(field, text, source string, numbers NumberSet) {
	if strings.TrimSpace(text) == "" {
		return
	}
	for _, n := range numbers.Missing(text) {
		r.violate(field, types.ViolationMetric, n, fmt.Sprintf("number %q does not appear in the source", n))
	}

	reported := make(map[string]bool)
	for _, cred := range r.vocab.Credentials {
		if !containsTerm(text, cred) || containsTerm(source, cred) || r.g.HasCertification(cred) || r.g.States(cred) {
			continue
		}
		reported[fold(cred)] = true
		r.violate(field, types.ViolationCredential, cred, fmt.Sprintf("credential %q is not in the CV", cred))
	}
	for _, kw := range r.vocab.Keywords {
		if reported[fold(kw)] || !containsTerm(text, kw) || containsTerm(source, kw) {
			continue
		}
		r.checkTerm(field, kw, text)
	}
	r.checkUnknownTerms(field, text, source)
}

func (r *review) checkTerm(field, term, text string) {
	if r.g.Listed(term) {
		return
	}
	if evidence, ok := r.g.Inferred(term); ok {
		r.inferred(field, term, evidence, text)
		return
	}
	if r.g.Mentions(term) {
		return
	}
	if r.allowLearning && hasLearningFrame(text) {
		r.flag(types.BorderlineItem{
			Content:    term,
			Category:   types.BorderlineMitigation,
			RiskLevel:  types.RiskHigh,
			UserPrompt: fmt.Sprintf("%q is presented as something you are learning. Confirm that is true.", term),
		}, text)
		return
	}
	r.violate(field, types.ViolationSkill, term, fmt.Sprintf("%q is not supported by the CV", term))
}

// checkUnknownTerms rejects capitalised names that neither the CV nor the job mentions.
// Adjacent capitalised words are also checked together, so a name whose words each appear
// somewhere in the CV is still rejected unless the CV has the name itself.
func (r *review) checkUnknownTerms(field, text, source string) {
	for _, run := range capitalisedRuns(text) {
		grounded := true
		for _, word := range run {
			if !r.groundedName(word, source) {
				grounded = false
				r.violate(field, types.ViolationUntraceable, word,
					fmt.Sprintf("%q does not appear anywhere in the CV", word))
			}
		}
		if phrase := strings.Join(run, " "); grounded && len(run) > 1 && !r.groundedName(phrase, source) {
			r.violate(field, types.ViolationUntraceable, phrase,
				fmt.Sprintf("%q does not appear anywhere in the CV", phrase))
		}
	}
}

func (r *review) groundedName(name, source string) bool {
	return containsTerm(source, name) || r.g.Mentions(name) || r.known(name)
}

// capitalisedRuns returns the capitalised words of text grouped into runs of adjacent
// words. Sentence openers and common words such as "I" are left out and split runs.
func capitalisedRuns(text string) [][]string {
	var runs [][]string
	var run []string
	end := -1
	flush := func() {
		if len(run) > 0 {
			runs = append(runs, run)
		}
		run = nil
	}
	for _, loc := range capitalisedTerm.FindAllStringIndex(text, -1) {
		if prev, _ := utf8.DecodeLastRuneInString(text[:loc[0]]); loc[0] > 0 && isWordRune(prev) {
			continue
		}
		word := text[loc[0]:loc[1]]
		adjacent := end >= 0 && strings.TrimSpace(text[end:loc[0]]) == ""
		end = loc[1]
		if !adjacent {
			flush()
		}
		if len(word) < 2 || commonCapitalised[strings.ToLower(word)] || sentenceStart(text, loc[0]) {
			flush()
			continue
		}
		run = append(run, word)
	}
	flush()
	return runs
}

func (r *review) isCredential(term string) bool {
	for _, cred := range r.vocab.Credentials {
		if fold(cred) == fold(term) {
			return true
		}
	}
	return false
}

// known reports whether word is part of the job's own vocabulary
func (r *review) known(word string) bool {
	for _, list := range [][]string{r.vocab.Allowed, r.vocab.Keywords} {
		for _, term := range list {
			if containsTerm(term, word) {
				return true
			}
		}
	}
	return false
}

func sentenceStart(text string, i int) bool {
	prefix := strings.TrimRightFunc(text[:i], func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || r == '\''
	})
	if prefix == "" {
		return true
	}
	last, _ := utf8.DecodeLastRuneInString(prefix)
	return strings.ContainsRune(".!?:;•-–(", last)
}

func hasLearningFrame(text string) bool {
	lower := strings.ToLower(text)
	for _, frame := range learningFrames {
		if strings.Contains(lower, frame) {
			return true
		}
	}
	return false
}

// containsTerm reports whether term occurs in text as a whole word. Terms of up to three
// characters ("Go", "AWS") must match case; longer terms match case-insensitively.
func containsTerm(text, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" || text == "" {
		return false
	}
	if len(term) > 3 {
		text, term = strings.ToLower(text), strings.ToLower(term)
	}
	for from := 0; from < len(text); {
		i := strings.Index(text[from:], term)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(term)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}
		from = start + 1
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func itemKey(item types.BorderlineItem) string {
	return string(item.Category) + "\x00" + fold(item.Content) + "\x00" + fold(item.OriginalEvidence)
}

func mergeItems(existing, found []types.BorderlineItem) []types.BorderlineItem {
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[itemKey(item)] = true
	}
	out := existing
	for _, item := range found {
		if key := itemKey(item); !seen[key] {
			seen[key] = true
			out = append(out, item)
		}
	}
	return out
}

func mergeStrings(existing, found []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	out := existing
	for _, s := range found {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func markForReview(log []types.ChangeLogEntry, related []string) {
	if len(related) == 0 {
		return
	}
	set := make(map[string]bool, len(related))
	for _, text := range related {
		set[fold(text)] = true
	}
	for i := range log {
		if set[fold(log[i].New)] {
			log[i].RequiresReview = true
		}
	}
}
