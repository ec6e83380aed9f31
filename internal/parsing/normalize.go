package parsing

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jonathan/cv-tailor/internal/types"
)

// skillNormalizations maps common skill name variants to canonical names
var skillNormalizations = map[string]string{
	"golang":     "Go",
	"golanglang": "Go",
	"go lang":    "Go",
	"javascript": "JavaScript",
	"js":         "JavaScript",
	"typescript": "TypeScript",
	"ts":         "TypeScript",
	"k8s":        "Kubernetes",
	"kubernetes": "Kubernetes",
	"react.js":   "React",
	"reactjs":    "React",
	"vue.js":     "Vue",
	"vuejs":      "Vue",
	"node.js":    "Node.js",
	"nodejs":     "Node.js",
	"postgres":   "PostgreSQL",
	"postgresql": "PostgreSQL",
	"grpc":       "gRPC",
	"ci/cd":      "CI/CD",
	"cicd":       "CI/CD",
	"aws":        "AWS",
	"gcp":        "GCP",
	"sql":        "SQL",
	"pmp":        "PMP",
}

// NormalizeSkillName normalizes a skill name to its canonical form
func NormalizeSkillName(skillName string) string {
	if skillName == "" {
		return ""
	}

	normalized := strings.Join(strings.Fields(skillName), " ")
	if normalized == "" {
		return ""
	}

	lower := strings.ToLower(normalized)
	if canonical, ok := skillNormalizations[lower]; ok {
		return canonical
	}

	if normalized == strings.ToUpper(normalized) && len(normalized) > 1 {
		// Short all-caps words are acronyms (SQL, AWS, SRE)
		if len(normalized) <= 4 || strings.Contains(lower, " ") {
			return normalized
		}
		return strings.ToUpper(normalized[:1]) + strings.ToLower(normalized[1:])
	}

	// Already has mixed case, return as-is
	if normalized != strings.ToLower(normalized) {
		return normalized
	}

	// If all lowercase and single word, capitalize first letter
	if !strings.Contains(normalized, " ") {
		return strings.ToUpper(normalized[:1]) + normalized[1:]
	}

	return normalized
}

// NormalizeKeywords canonicalizes keywords and drops case-insensitive duplicates, keeping first occurrence
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		n := NormalizeSkillName(kw)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// Normalize returns a cleaned copy of extracted requirements: duplicate requirements merged
// across buckets, keywords canonicalized, and ATS tiers made disjoint.
func Normalize(in *types.JobRequirements) (*types.JobRequirements, error) {
	if in == nil {
		return nil, &ValidationError{Message: "no job requirements"}
	}

	for _, group := range in.Buckets() {
		for i, req := range group.Requirements {
			if !req.Category.IsValid() {
				return nil, &ValidationError{
					Field:   fmt.Sprintf("%s[%d].category", group.Bucket, i),
					Message: fmt.Sprintf("unknown category %q", req.Category),
				}
			}
		}
	}

	out := &types.JobRequirements{
		JobTitle:   strings.TrimSpace(in.JobTitle),
		Company:    strings.TrimSpace(in.Company),
		Department: strings.TrimSpace(in.Department),
	}

	merged := mergeRequirements(in)
	for _, m := range merged {
		switch m.bucket {
		case types.BucketMustHave:
			out.MustHave = append(out.MustHave, m.req)
		case types.BucketNiceToHave:
			out.NiceToHave = append(out.NiceToHave, m.req)
		default:
			out.Inferred = append(out.Inferred, m.req)
		}
	}
	out.MustHave = nonNil(out.MustHave)
	out.NiceToHave = nonNil(out.NiceToHave)
	out.Inferred = nonNil(out.Inferred)

	out.Responsibilities = make([]types.Responsibility, 0, len(in.Responsibilities))
	for _, r := range in.Responsibilities {
		desc := strings.TrimSpace(r.Description)
		if desc == "" {
			continue
		}
		out.Responsibilities = append(out.Responsibilities, types.Responsibility{
			Description:   desc,
			ImpliedSkills: NormalizeKeywords(r.ImpliedSkills),
		})
	}

	out.ATSKeywords = normalizeATS(in.ATSKeywords)
	out.CultureSignals = types.CultureSignals{
		WorkStyle: dedupeFold(in.CultureSignals.WorkStyle),
		Values:    dedupeFold(in.CultureSignals.Values),
	}
	return out, nil
}

type bucketed struct {
	bucket types.Bucket
	key    string
	req    types.Requirement
}

// mergeRequirements folds duplicates together. Buckets are visited in priority order, so a
// duplicate always lands in the highest-priority bucket it appeared in.
func mergeRequirements(in *types.JobRequirements) []*bucketed {
	var merged []*bucketed
	for _, group := range in.Buckets() {
		for _, req := range group.Requirements {
			desc := strings.Join(strings.Fields(req.Description), " ")
			key := normalizeDescription(desc)
			if key == "" {
				continue
			}
			req.Description = desc
			req.Keywords = NormalizeKeywords(req.Keywords)
			if req.Specificity == "" {
				req.Specificity = types.SpecificityFlexible
			}

			if existing := findDuplicate(merged, req.Category, key); existing != nil {
				existing.req = mergeRequirement(existing.req, req)
				if len(key) > len(existing.key) {
					existing.key = key
				}
				continue
			}
			merged = append(merged, &bucketed{bucket: group.Bucket, key: key, req: req})
		}
	}
	return merged
}

func findDuplicate(merged []*bucketed, category types.RequirementCategory, key string) *bucketed {
	padded := " " + key + " "
	for _, m := range merged {
		if m.req.Category != category {
			continue
		}
		other := " " + m.key + " "
		if m.key == key || strings.Contains(other, padded) || strings.Contains(padded, other) {
			return m
		}
	}
	return nil
}

// mergeRequirement keeps the most specific wording and the strictest constraints of both
func mergeRequirement(a, b types.Requirement) types.Requirement {
	if len(b.Description) > len(a.Description) {
		a.Description = b.Description
	}
	a.Keywords = NormalizeKeywords(append(append([]string(nil), a.Keywords...), b.Keywords...))
	if b.YearsRequired != nil && (a.YearsRequired == nil || *b.YearsRequired > *a.YearsRequired) {
		years := *b.YearsRequired
		a.YearsRequired = &years
	}
	if b.Specificity == types.SpecificityExact {
		a.Specificity = types.SpecificityExact
	}
	return a
}

func normalizeATS(in types.ATSKeywords) types.ATSKeywords {
	seen := make(map[string]bool)
	tier := func(values []string) []string {
		out := make([]string, 0, len(values))
		for _, kw := range NormalizeKeywords(values) {
			key := strings.ToLower(kw)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, kw)
		}
		return out
	}
	return types.ATSKeywords{
		HighPriority:   tier(in.HighPriority),
		MediumPriority: tier(in.MediumPriority),
		Contextual:     tier(in.Contextual),
	}
}

// normalizeDescription folds case, punctuation and whitespace
func normalizeDescription(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' {
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return sb.String()
}

func dedupeFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

func nonNil(reqs []types.Requirement) []types.Requirement {
	if reqs == nil {
		return []types.Requirement{}
	}
	return reqs
}
