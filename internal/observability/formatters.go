// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/credit-quality/internal/types"
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

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintReport outputs every section of a quality report.
func (p *Printer) PrintReport(meta *types.Metadata) {
	if meta == nil {
		return
	}
	p.PrintRepair(meta.Repair, meta.TokenUsage)
	p.PrintScores(meta)
	p.PrintMissingFields(meta.Accuracy.MissingFields)
	p.PrintThreshold(meta)
}

// PrintRepair outputs how the raw text was recovered.
func (p *Printer) PrintRepair(info *types.RepairInfo, usage types.TokenUsage) {
	if info == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tier:         %s\n", info.Tier))
	sb.WriteString(fmt.Sprintf("Regenerated:  %t\n", info.Regenerated))
	sb.WriteString(fmt.Sprintf("Degraded:     %t\n", info.Degraded))
	if usage.TotalTokens > 0 {
		sb.WriteString(fmt.Sprintf("Tokens:       %d (prompt %d, completion %d)\n",
			usage.TotalTokens, usage.PromptTokens, usage.CompletionTokens))
	}

	if len(info.Attempts) > 0 {
		sb.WriteString("\nAttempts:\n")
		for _, attempt := range info.Attempts {
			sb.WriteString(fmt.Sprintf("  • %s\n", attempt))
		}
	}

	p.printBox("JSON RECOVERY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScores outputs the accuracy score and every component score.
func (p *Printer) PrintScores(meta *types.Metadata) {
	if meta == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Accuracy:      %6.2f\n", meta.Accuracy.Score))
	sb.WriteString(fmt.Sprintf("Completeness:  %6.2f\n", meta.Accuracy.Completeness))
	sb.WriteString(fmt.Sprintf("Confidence:    %6.2f\n", meta.Accuracy.Confidence))
	sb.WriteString("\n")

	if s := meta.Structural; s != nil {
		sb.WriteString(fmt.Sprintf("Structural:    %6.2f (%s)\n", s.StructuralScore, s.Shape))
		sb.WriteString(fmt.Sprintf("  Vocabulary:  %6.2f\n", s.VocabularyScore))
		if len(s.UnknownCategories) > 0 {
			labels := strings.Join(s.UnknownCategories, ", ")
			if len(labels) > 40 {
				labels = labels[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("  Unknown:     %s\n", labels))
		}
	}
	if e := meta.Emptiness; e != nil {
		sb.WriteString(fmt.Sprintf("Filled:        %6.2f (%d/%d fields)\n", e.Percentage, e.NonEmptyFields, e.TotalFields))
	}
	if c := meta.Consensus; c != nil {
		if c.ConsensusSource == types.ConsensusSourceNone {
			sb.WriteString("Consensus:     no baseline\n")
		} else {
			sb.WriteString(fmt.Sprintf("Consensus:     %6.2f (strength %.2f, %d fields)\n",
				c.Score, c.ConsensusStrength, c.ComparedFields))
		}
	}

	strategies := make([]string, 0, len(meta.Completeness))
	for name := range meta.Completeness {
		strategies = append(strategies, name)
	}
	sort.Strings(strategies)
	for _, name := range strategies {
		sb.WriteString(fmt.Sprintf("%-15s%6.2f\n", name+":", meta.Completeness[name].Score))
	}

	p.printBox("QUALITY SCORES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMissingFields outputs the first missing fields of the primary score.
func (p *Printer) PrintMissingFields(missing []string) {
	if len(missing) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Missing %d fields:\n\n", len(missing)))

	count := min(len(missing), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", missing[i]))
	}
	if len(missing) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(missing)-maxItemsToShow))
	}

	p.printBox("MISSING FIELDS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintThreshold outputs whether the accuracy threshold was met.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintThreshold(meta *types.Metadata) {
	if meta == nil {
		return
	}
	status := fmt.Sprintf("✅ MEETS THRESHOLD (%.2f)", meta.Accuracy.Score)
	if !meta.MeetsThreshold {
		status = fmt.Sprintf("⚠ BELOW THRESHOLD (%.2f)", meta.Accuracy.Score)
	}
	fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, status)
	fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
}
