package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/reporting"
	"solana-token-transfer/internal/solana"
)

// rpcEvents lists instruction events over getTokenEvents.
type rpcEvents struct {
	client solana.RPCClient
}

func (r rpcEvents) InstructionEvents(ctx context.Context, mint string, start, end int64) ([]*domain.InstructionEvent, error) {
	events, err := r.client.GetTokenEvents(ctx, mint, start, end)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.InstructionEvent, 0, len(events))
	for _, e := range events {
		out = append(out, &domain.InstructionEvent{
			Signature:   e.Signature,
			Slot:        uint64(e.Slot),
			Index:       e.Index,
			Instruction: e.Instruction,
			Amount:      e.Amount,
			Mint:        e.Mint,
			Source:      e.Source,
			Destination: e.Destination,
			Authority:   e.Authority,
			Success:     e.Success,
			Error:       e.Error,
			TimestampMs: e.TimestampMs,
		})
	}
	return out, nil
}

// window turns ages relative to now into an inclusive ms range; zero means unbounded.
func window(now time.Time, since, until time.Duration) (int64, int64) {
	start, end := int64(0), int64(math.MaxInt64)
	if since > 0 {
		start = now.Add(-since).UnixMilli()
	}
	if until > 0 {
		end = now.Add(-until).UnixMilli()
	}
	return start, end
}

func cmdReport() *cobra.Command {
	var (
		format       string
		since, until time.Duration
	)
	cmd := &cobra.Command{
		Use:   "report <mint>",
		Short: "Summarize the recorded activity of a mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s := unwrapSession(ctx)
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}
			decimals, err := s.mintDecimals(ctx, mint)
			if err != nil {
				return err
			}

			start, end := window(time.Now(), since, until)
			report, err := reporting.NewGenerator(rpcEvents{client: s.client}).Generate(ctx, mint.String(), decimals, start, end)
			if err != nil {
				return err
			}
			switch format {
			case "md", "markdown":
				_, err = io.WriteString(s.out, reporting.RenderMarkdown(report))
			case "csv":
				_, err = io.WriteString(s.out, reporting.RenderCSV(report.Instructions))
			case "json":
				err = s.print(report)
			default:
				err = fmt.Errorf("unknown format %q (options: md, csv, json)", format)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "md", "output format: md, csv or json")
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this age, e.g. 1h")
	cmd.Flags().DurationVar(&until, "until", 0, "only events older than this age")
	return cmd
}
