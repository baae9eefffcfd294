// Package verification audits committed token state.
// Every mint's supply must equal the sum of its token accounts, and every
// TokenInfo record must point at a mint with the same decimals and authority.
package verification

import (
	"context"
	"fmt"
	"math/bits"
	"sort"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/solana"
)

// AccountSource lists accounts by owning program.
type AccountSource interface {
	AccountsByOwner(ctx context.Context, program solana.PublicKey) ([]*domain.KeyedAccount, error)
}

// Divergence is a single inconsistency found in an account.
type Divergence struct {
	Account  string      // base58 address of the offending account
	Field    string      // field name
	Expected interface{} // value implied by the rest of the ledger
	Actual   interface{} // value stored in the account
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s: %s expected %v, got %v", d.Account, d.Field, d.Expected, d.Actual)
}

// MintResult is the audit of one mint.
type MintResult struct {
	Mint          string
	Supply        uint64 // supply recorded in the mint
	Holdings      uint64 // sum of token account balances
	TokenAccounts int
	Match         bool
	Divergences   []Divergence
}

// Report is the audit of every mint and TokenInfo record.
type Report struct {
	TotalMints     int
	MatchedMints   int
	DivergentMints int
	TokenInfos     int
	Results        []MintResult // ordered by mint address
	Orphans        []Divergence // accounts referencing a mint that does not exist
}

// OK reports whether the audit found nothing wrong.
func (r *Report) OK() bool {
	return r.DivergentMints == 0 && len(r.Orphans) == 0
}

// Verifier audits token state.
type Verifier interface {
	// VerifyAll audits every mint and TokenInfo record.
	VerifyAll(ctx context.Context) (*Report, error)
}

// SupplyVerifier audits the accounts owned by the token and token-transfer programs.
type SupplyVerifier struct {
	source AccountSource
}

// NewSupplyVerifier creates a verifier reading from source.
func NewSupplyVerifier(source AccountSource) *SupplyVerifier {
	return &SupplyVerifier{source: source}
}

type mintState struct {
	mint     *domain.Mint
	result   *MintResult
	overflow bool
}

// VerifyAll implements Verifier.
func (v *SupplyVerifier) VerifyAll(ctx context.Context) (*Report, error) {
	tokenAccounts, err := v.source.AccountsByOwner(ctx, solana.TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("list token program accounts: %w", err)
	}
	infos, err := v.source.AccountsByOwner(ctx, tokentransfer.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("list token-transfer accounts: %w", err)
	}

	mints := make(map[solana.PublicKey]*mintState)
	var holders []*domain.KeyedAccount
	for _, ka := range tokenAccounts {
		switch len(ka.Account.Data) {
		case layout.MintSize:
			m, err := layout.DecodeMint(ka.Account.Data)
			if err != nil {
				continue
			}
			mints[ka.Key] = &mintState{
				mint:   m,
				result: &MintResult{Mint: ka.Key.String(), Supply: m.Supply},
			}
		case layout.TokenAccountSize:
			holders = append(holders, ka)
		}
	}

	report := &Report{}
	for _, ka := range holders {
		acc, err := layout.DecodeTokenAccount(ka.Account.Data)
		if err != nil {
			continue
		}
		st, ok := mints[acc.Mint]
		if !ok {
			report.Orphans = append(report.Orphans, Divergence{
				Account:  ka.Key.String(),
				Field:    "Mint",
				Expected: "existing mint",
				Actual:   acc.Mint.String(),
			})
			continue
		}
		sum, carry := bits.Add64(st.result.Holdings, acc.Amount, 0)
		if carry != 0 {
			st.overflow = true
		}
		st.result.Holdings = sum
		st.result.TokenAccounts++
	}

	for _, ka := range infos {
		info, err := layout.DecodeTokenInfo(ka.Account.Data)
		if err != nil {
			continue
		}
		report.TokenInfos++
		st, ok := mints[info.Mint]
		if !ok {
			report.Orphans = append(report.Orphans, Divergence{
				Account:  ka.Key.String(),
				Field:    "Mint",
				Expected: "existing mint",
				Actual:   info.Mint.String(),
			})
			continue
		}
		st.result.Divergences = append(st.result.Divergences, CompareTokenInfo(ka.Key, info, st.mint)...)
	}

	for _, st := range mints {
		r := st.result
		if st.overflow {
			r.Divergences = append(r.Divergences, Divergence{
				Account: r.Mint, Field: "Holdings", Expected: r.Supply, Actual: "overflow",
			})
		} else if r.Holdings != r.Supply {
			r.Divergences = append(r.Divergences, Divergence{
				Account: r.Mint, Field: "Supply", Expected: r.Holdings, Actual: r.Supply,
			})
		}
		r.Match = len(r.Divergences) == 0
		report.Results = append(report.Results, *r)
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Mint < report.Results[j].Mint
	})
	report.TotalMints = len(report.Results)
	for _, r := range report.Results {
		if r.Match {
			report.MatchedMints++
		} else {
			report.DivergentMints++
		}
	}
	return report, nil
}

// CompareTokenInfo checks a TokenInfo record against the mint it names.
func CompareTokenInfo(key solana.PublicKey, info *domain.TokenInfo, mint *domain.Mint) []Divergence {
	var divergences []Divergence

	if info.Decimals != mint.Decimals {
		divergences = append(divergences, Divergence{
			Account:  key.String(),
			Field:    "Decimals",
			Expected: mint.Decimals,
			Actual:   info.Decimals,
		})
	}

	if mint.MintAuthority == nil || *mint.MintAuthority != info.Authority {
		var want interface{} = "none"
		if mint.MintAuthority != nil {
			want = mint.MintAuthority.String()
		}
		divergences = append(divergences, Divergence{
			Account:  key.String(),
			Field:    "Authority",
			Expected: want,
			Actual:   info.Authority.String(),
		})
	}

	return divergences
}
