package verification

import (
	"context"
	"errors"
	"testing"

	"solana-token-transfer/internal/domain"
	"solana-token-transfer/internal/layout"
	"solana-token-transfer/internal/programs/tokentransfer"
	"solana-token-transfer/internal/solana"
)

type fakeSource map[solana.PublicKey][]*domain.KeyedAccount

func (f fakeSource) AccountsByOwner(_ context.Context, program solana.PublicKey) ([]*domain.KeyedAccount, error) {
	return f[program], nil
}

type failingSource struct{}

func (failingSource) AccountsByOwner(context.Context, solana.PublicKey) ([]*domain.KeyedAccount, error) {
	return nil, errors.New("store offline")
}

func newKey(t *testing.T) solana.PublicKey {
	t.Helper()
	k, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	return k.PublicKey()
}

func (f fakeSource) add(t *testing.T, owner, key solana.PublicKey, data []byte) {
	t.Helper()
	f[owner] = append(f[owner], &domain.KeyedAccount{
		Key:     key,
		Account: &domain.Account{Lamports: 1, Owner: owner, Data: data},
	})
}

func (f fakeSource) addMint(t *testing.T, authority solana.PublicKey, supply uint64, decimals uint8) solana.PublicKey {
	t.Helper()
	key := newKey(t)
	data, err := layout.EncodeMint(&domain.Mint{
		MintAuthority: &authority,
		Supply:        supply,
		Decimals:      decimals,
		IsInitialized: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.add(t, solana.TokenProgramID, key, data)
	return key
}

func (f fakeSource) addHolder(t *testing.T, mint solana.PublicKey, amount uint64) {
	t.Helper()
	data, err := layout.EncodeTokenAccount(&domain.TokenAccount{
		Mint:   mint,
		Owner:  newKey(t),
		Amount: amount,
		State:  domain.AccountStateInitialized,
	})
	if err != nil {
		t.Fatal(err)
	}
	f.add(t, solana.TokenProgramID, newKey(t), data)
}

func (f fakeSource) addInfo(t *testing.T, mint, authority solana.PublicKey, decimals uint8) solana.PublicKey {
	t.Helper()
	key := newKey(t)
	data, err := layout.EncodeTokenInfo(&domain.TokenInfo{
		Name:      "Test Token",
		Symbol:    "TEST",
		Decimals:  decimals,
		Mint:      mint,
		Authority: authority,
	}, layout.TokenInfoSpace)
	if err != nil {
		t.Fatal(err)
	}
	f.add(t, tokentransfer.ProgramID, key, data)
	return key
}

func TestVerifyAll_Consistent(t *testing.T) {
	src := fakeSource{}
	authority := newKey(t)
	mint := src.addMint(t, authority, 1500, 6)
	src.addHolder(t, mint, 1000)
	src.addHolder(t, mint, 500)
	src.addInfo(t, mint, authority, 6)

	report, err := NewSupplyVerifier(src).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected clean report, got %+v", report)
	}
	if report.TotalMints != 1 || report.MatchedMints != 1 || report.TokenInfos != 1 {
		t.Errorf("unexpected counts: %+v", report)
	}
	r := report.Results[0]
	if r.Holdings != 1500 || r.TokenAccounts != 2 {
		t.Errorf("Holdings=%d TokenAccounts=%d, want 1500 and 2", r.Holdings, r.TokenAccounts)
	}
}

func TestVerifyAll_SupplyMismatch(t *testing.T) {
	src := fakeSource{}
	mint := src.addMint(t, newKey(t), 1000, 0)
	src.addHolder(t, mint, 999)

	report, err := NewSupplyVerifier(src).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if report.OK() || report.DivergentMints != 1 {
		t.Fatalf("expected one divergent mint, got %+v", report)
	}
	d := report.Results[0].Divergences
	if len(d) != 1 || d[0].Field != "Supply" {
		t.Fatalf("unexpected divergences: %v", d)
	}
	if d[0].Expected != uint64(999) || d[0].Actual != uint64(1000) {
		t.Errorf("Supply divergence = %v", d[0])
	}
}

func TestVerifyAll_HoldingsOverflow(t *testing.T) {
	src := fakeSource{}
	mint := src.addMint(t, newKey(t), 1, 0)
	src.addHolder(t, mint, ^uint64(0))
	src.addHolder(t, mint, 2)

	report, err := NewSupplyVerifier(src).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	d := report.Results[0].Divergences
	if len(d) != 1 || d[0].Field != "Holdings" || d[0].Actual != "overflow" {
		t.Fatalf("unexpected divergences: %v", d)
	}
}

func TestVerifyAll_TokenInfoMismatch(t *testing.T) {
	src := fakeSource{}
	authority := newKey(t)
	mint := src.addMint(t, authority, 0, 9)
	info := src.addInfo(t, mint, newKey(t), 6)

	report, err := NewSupplyVerifier(src).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	d := report.Results[0].Divergences
	if len(d) != 2 {
		t.Fatalf("expected 2 divergences, got %v", d)
	}
	if d[0].Field != "Decimals" || d[1].Field != "Authority" {
		t.Errorf("fields = %s, %s", d[0].Field, d[1].Field)
	}
	if d[0].Account != info.String() {
		t.Errorf("divergence names %s, want the token info %s", d[0].Account, info)
	}
}

func TestVerifyAll_Orphans(t *testing.T) {
	src := fakeSource{}
	missing := newKey(t)
	src.addHolder(t, missing, 10)
	src.addInfo(t, missing, newKey(t), 0)

	report, err := NewSupplyVerifier(src).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if report.OK() || len(report.Orphans) != 2 {
		t.Fatalf("expected 2 orphans, got %+v", report)
	}
	for _, o := range report.Orphans {
		if o.Actual != missing.String() {
			t.Errorf("orphan %v does not name the missing mint", o)
		}
	}
}

func TestVerifyAll_Empty(t *testing.T) {
	report, err := NewSupplyVerifier(fakeSource{}).VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll: %v", err)
	}
	if !report.OK() || report.TotalMints != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestVerifyAll_SourceError(t *testing.T) {
	if _, err := NewSupplyVerifier(failingSource{}).VerifyAll(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
