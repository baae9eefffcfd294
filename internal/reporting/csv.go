package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders per-instruction statistics as CSV string.
func RenderCSV(rows []InstructionRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("instruction,count,failed,volume,mean_amount,median_amount,p90_amount,max_amount\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%s,%s,%s\n",
			r.Instruction,
			r.Count,
			r.Failed,
			r.Volume,
			r.MeanAmount,
			r.MedianAmount,
			r.P90Amount,
			r.MaxAmount,
		))
	}

	return sb.String()
}
