package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Token Activity: %s\n\n", r.Mint))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window (ms): %d to %d | Decimals: %d\n\n", r.WindowStart, r.WindowEnd, r.Decimals))

	// Summary
	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Instructions | %d |\n", s.TotalEvents))
	sb.WriteString(fmt.Sprintf("| Succeeded | %d |\n", s.Succeeded))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", s.Failed))
	sb.WriteString(fmt.Sprintf("| Transactions | %d |\n", s.Transactions))
	sb.WriteString(fmt.Sprintf("| Minted | %s |\n", s.Minted))
	sb.WriteString(fmt.Sprintf("| Burned | %s |\n", s.Burned))
	sb.WriteString(fmt.Sprintf("| Transferred | %s |\n", s.Transferred))
	sb.WriteString(fmt.Sprintf("| Net Supply Change | %s |\n", s.NetSupplyChange))
	sb.WriteString("\n")

	// Instructions
	sb.WriteString("## Instructions\n\n")
	if len(r.Instructions) > 0 {
		sb.WriteString("| Instruction | Count | Failed | Volume | Mean | Median | P90 | Max |\n")
		sb.WriteString("|-------------|-------|--------|--------|------|--------|-----|-----|\n")
		for _, row := range r.Instructions {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s | %s | %s | %s |\n",
				row.Instruction, row.Count, row.Failed,
				row.Volume, row.MeanAmount, row.MedianAmount, row.P90Amount, row.MaxAmount))
		}
	} else {
		sb.WriteString("No instructions recorded.\n")
	}
	sb.WriteString("\n")

	// Accounts
	sb.WriteString("## Token Accounts\n\n")
	if len(r.Accounts) > 0 {
		sb.WriteString("| Account | Inflow | Outflow | Net |\n")
		sb.WriteString("|---------|--------|---------|-----|\n")
		for _, a := range r.Accounts {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", a.Account, a.Inflow, a.Outflow, a.Net))
		}
	} else {
		sb.WriteString("No token movements.\n")
	}
	sb.WriteString("\n")

	// Failures are only listed when present
	if len(r.Failures) > 0 {
		sb.WriteString("## Failures\n\n")
		sb.WriteString("| Slot | Signature | Instruction | Error |\n")
		sb.WriteString("|------|-----------|-------------|-------|\n")
		for _, f := range r.Failures {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s |\n",
				f.Slot, f.Signature, f.Instruction, strings.ReplaceAll(f.Error, "|", "\\|")))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
