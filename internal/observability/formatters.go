// Package observability provides logging setup and formatted output for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// writeList writes at most limit items, then a "... and N more" line
func writeList(sb *strings.Builder, items []string, limit int) {
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  • %s\n", items[i])
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

func requirementLines(reqs []types.Requirement) []string {
	lines := make([]string, 0, len(reqs))
	for _, req := range reqs {
		line := req.Description
		if req.YearsRequired != nil {
			line += fmt.Sprintf(" (%g+ yrs)", *req.YearsRequired)
		}
		lines = append(lines, line)
	}
	return lines
}

// PrintJobRequirements outputs a human-readable summary of the extracted job requirements.
func (p *Printer) PrintJobRequirements(reqs *types.JobRequirements) {
	if reqs == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company:  %s\n", reqs.Company)
	fmt.Fprintf(&sb, "Role:     %s\n", reqs.JobTitle)
	sb.WriteString("\n")

	if len(reqs.MustHave) > 0 {
		sb.WriteString("Must-have:\n")
		writeList(&sb, requirementLines(reqs.MustHave), maxItemsToShow)
		sb.WriteString("\n")
	}
	if len(reqs.NiceToHave) > 0 {
		sb.WriteString("Nice-to-have:\n")
		writeList(&sb, requirementLines(reqs.NiceToHave), 3)
		sb.WriteString("\n")
	}
	if len(reqs.ATSKeywords.HighPriority) > 0 {
		fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(reqs.ATSKeywords.HighPriority, ", "))
	}

	p.printBox("JOB REQUIREMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCVFacts outputs the experiences and skills found in the CV.
func (p *Printer) PrintCVFacts(facts *types.CVFacts) {
	if facts == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name:     %s\n", facts.PersonalInfo.Name)
	fmt.Fprintf(&sb, "Roles:    %d\n", len(facts.Experience))
	sb.WriteString("\n")

	var roles []string
	for _, exp := range facts.Experience {
		roles = append(roles, fmt.Sprintf("%s, %s", exp.Title, exp.Company))
	}
	if len(roles) > 0 {
		sb.WriteString("Experience:\n")
		writeList(&sb, roles, maxItemsToShow)
		sb.WriteString("\n")
	}
	if len(facts.Skills.ExplicitlyListed) > 0 {
		fmt.Fprintf(&sb, "Skills: %s\n", strings.Join(facts.Skills.ExplicitlyListed, ", "))
	}

	p.printBox("CV FACTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMapping outputs requirement coverage and the strongest matches and gaps.
func (p *Printer) PrintMapping(summary types.MappingSummary) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Must-have:    %s\n", summary.MustHaveCoverage)
	fmt.Fprintf(&sb, "Nice-to-have: %s\n", summary.NiceToHaveCoverage)
	fmt.Fprintf(&sb, "Inferred:     %s\n", summary.InferredCoverage)

	if len(summary.StrongestMatches) > 0 {
		sb.WriteString("\nStrongest matches:\n")
		writeList(&sb, summary.StrongestMatches, 3)
	}
	if len(summary.CriticalGaps) > 0 {
		sb.WriteString("\nCritical gaps:\n")
		writeList(&sb, summary.CriticalGaps, 3)
	}

	p.printBox("EVIDENCE MAPPING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatchScore outputs the score and its bonuses and penalties.
func (p *Printer) PrintMatchScore(score *types.MatchScore) {
	if score == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Score: %d/100\n", score.Score)
	fmt.Fprintf(&sb, "  must-have:    %d\n", score.Breakdown.MustHaveComponent)
	fmt.Fprintf(&sb, "  nice-to-have: %d\n", score.Breakdown.NiceToHaveComponent)
	for _, b := range score.Breakdown.Bonuses {
		fmt.Fprintf(&sb, "  +%d %s\n", b.Points, b.Reason)
	}
	for _, pen := range score.Breakdown.Penalties {
		fmt.Fprintf(&sb, "  -%d %s\n", pen.Points, pen.Reason)
	}

	p.printBox("MATCH SCORE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintChanges outputs the changes log, marking entries that need review.
func (p *Printer) PrintChanges(changes []types.ChangeLogEntry) {
	if len(changes) == 0 {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d changes:\n\n", len(changes))

	count := min(len(changes), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := changes[i]
		marker := "•"
		if c.RequiresReview {
			marker = "⚠"
		}
		fmt.Fprintf(&sb, "%s %s [%s]\n", marker, c.Section, c.ChangeType)
		fmt.Fprintf(&sb, "  %s\n", c.New)
	}
	if len(changes) > maxItemsToShow {
		fmt.Fprintf(&sb, "\n... and %d more changes", len(changes)-maxItemsToShow)
	}

	p.printBox("CHANGES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBorderline outputs items kept in the CV that the user should review.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintBorderline(items []types.BorderlineItem) {
	if len(items) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NOTHING TO REVIEW")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d items for review:\n\n", len(items))
	for i, item := range items {
		fmt.Fprintf(&sb, "⚠ %s (%s risk)\n", item.Category, item.RiskLevel)
		fmt.Fprintf(&sb, "  %s\n", item.Content)
		if i < len(items)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("REVIEW BEFORE SENDING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintViolations outputs the fields rejected as fabricated.
func (p *Printer) PrintViolations(violations []types.Violation) {
	if len(violations) == 0 {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d violations:\n\n", len(violations))
	for i, v := range violations {
		fmt.Fprintf(&sb, "✗ %s (%s)\n", v.Field, v.Kind)
		fmt.Fprintf(&sb, "  %s\n", v.Message)
		if i < len(violations)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("FABRICATION DETECTED", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult prints the score, changes and review items of a finished run.
func (p *Printer) PrintResult(result *types.TailorResult) {
	if result == nil {
		return
	}
	p.PrintMapping(result.MappingSummary)
	p.PrintMatchScore(result.MatchScore)
	p.PrintChanges(result.ChangesLog)
	p.PrintBorderline(result.BorderlineItems)
	if len(result.Warnings) > 0 {
		var sb strings.Builder
		writeList(&sb, result.Warnings, len(result.Warnings))
		p.printBox("WARNINGS", strings.TrimSuffix(sb.String(), "\n"))
	}
}
