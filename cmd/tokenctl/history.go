package main

import (
	"time"

	"github.com/spf13/cobra"

	"solana-token-transfer/internal/solana"
)

func cmdHistory() *cobra.Command {
	var (
		limit  int
		before string
	)
	cmd := &cobra.Command{
		Use:   "history [address]",
		Short: "List transactions touching an address, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := unwrapSession(cmd.Context())
			addr, err := s.addressOrSelf(args, 0)
			if err != nil {
				return err
			}
			sigs, err := s.client.GetSignaturesForAddress(cmd.Context(), addr.String(), &solana.SignaturesOpts{
				Before: before,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			type entry struct {
				Signature string      `json:"signature"`
				Slot      int64       `json:"slot"`
				Time      string      `json:"time,omitempty"`
				Err       interface{} `json:"err"`
			}
			out := make([]entry, 0, len(sigs))
			for _, sig := range sigs {
				e := entry{Signature: sig.Signature, Slot: sig.Slot, Err: sig.Err}
				if sig.BlockTime != nil {
					e.Time = time.Unix(*sig.BlockTime, 0).UTC().Format(time.RFC3339)
				}
				out = append(out, e)
			}
			return s.print(out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	cmd.Flags().StringVar(&before, "before", "", "start before this signature")
	return cmd
}

func cmdEvents() *cobra.Command {
	var since, until time.Duration
	cmd := &cobra.Command{
		Use:   "events <mint>",
		Short: "List executed token-transfer instructions of a mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := unwrapSession(cmd.Context())
			start, end := window(time.Now(), since, until)
			events, err := s.client.GetTokenEvents(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}
			return s.print(events)
		},
	}
	cmd.Flags().DurationVar(&since, "since", 0, "only events newer than this age, e.g. 1h")
	cmd.Flags().DurationVar(&until, "until", 0, "only events older than this age")
	return cmd
}
