package solana

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	bin "github.com/gagliardetto/binary"
)

// MessageHeader counts signer and read-only accounts in a compiled message.
type MessageHeader struct {
	NumRequiredSignatures       uint8
	NumReadonlySignedAccounts   uint8
	NumReadonlyUnsignedAccounts uint8
}

// CompiledInstruction references accounts by index into the message key list.
type CompiledInstruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// Message is a legacy transaction message.
type Message struct {
	Header          MessageHeader
	AccountKeys     []PublicKey
	RecentBlockhash Hash
	Instructions    []CompiledInstruction
}

// Transaction is a signed message.
type Transaction struct {
	Signatures []Signature
	Message    Message
}

var (
	// ErrNoInstructions is returned when building a transaction without instructions.
	ErrNoInstructions = errors.New("transaction has no instructions")

	// ErrTooManyAccounts is returned when a message references more than 256 accounts.
	ErrTooManyAccounts = errors.New("too many account keys")
)

type keyFlags struct {
	key      PublicKey
	signer   bool
	writable bool
	order    int
}

// NewMessage compiles instructions into a message. The fee payer is always the
// first key; keys are grouped as writable signers, read-only signers, writable
// non-signers, read-only non-signers.
func NewMessage(feePayer PublicKey, instructions []Instruction, recentBlockhash Hash) (*Message, error) {
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	index := map[PublicKey]*keyFlags{}
	var all []*keyFlags
	add := func(pk PublicKey, signer, writable bool) {
		kf, ok := index[pk]
		if !ok {
			kf = &keyFlags{key: pk, order: len(all)}
			index[pk] = kf
			all = append(all, kf)
		}
		kf.signer = kf.signer || signer
		kf.writable = kf.writable || writable
	}

	add(feePayer, true, true)
	for _, ix := range instructions {
		for _, meta := range ix.Accounts {
			add(meta.PublicKey, meta.IsSigner, meta.IsWritable)
		}
	}
	for _, ix := range instructions {
		add(ix.ProgramID, false, false)
	}

	if len(all) > 256 {
		return nil, ErrTooManyAccounts
	}

	group := func(kf *keyFlags) int {
		switch {
		case kf.key == feePayer:
			return 0
		case kf.signer && kf.writable:
			return 1
		case kf.signer:
			return 2
		case kf.writable:
			return 3
		default:
			return 4
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		gi, gj := group(all[i]), group(all[j])
		if gi != gj {
			return gi < gj
		}
		return all[i].order < all[j].order
	})

	msg := &Message{RecentBlockhash: recentBlockhash}
	positions := make(map[PublicKey]uint8, len(all))
	for i, kf := range all {
		msg.AccountKeys = append(msg.AccountKeys, kf.key)
		positions[kf.key] = uint8(i)
		switch group(kf) {
		case 0, 1:
			msg.Header.NumRequiredSignatures++
		case 2:
			msg.Header.NumRequiredSignatures++
			msg.Header.NumReadonlySignedAccounts++
		case 4:
			msg.Header.NumReadonlyUnsignedAccounts++
		}
	}

	for _, ix := range instructions {
		compiled := CompiledInstruction{
			ProgramIDIndex: positions[ix.ProgramID],
			Data:           append([]byte(nil), ix.Data...),
		}
		for _, meta := range ix.Accounts {
			compiled.Accounts = append(compiled.Accounts, positions[meta.PublicKey])
		}
		msg.Instructions = append(msg.Instructions, compiled)
	}

	return msg, nil
}

// IsSigner reports whether the key at index i must sign.
func (m *Message) IsSigner(i int) bool {
	return i < int(m.Header.NumRequiredSignatures)
}

// IsWritable reports whether the key at index i is writable.
func (m *Message) IsWritable(i int) bool {
	if i >= len(m.AccountKeys) {
		return false
	}
	if i < int(m.Header.NumRequiredSignatures) {
		return i < int(m.Header.NumRequiredSignatures)-int(m.Header.NumReadonlySignedAccounts)
	}
	return i < len(m.AccountKeys)-int(m.Header.NumReadonlyUnsignedAccounts)
}

// Signers returns the keys that must sign, in order.
func (m *Message) Signers() []PublicKey {
	n := int(m.Header.NumRequiredSignatures)
	if n > len(m.AccountKeys) {
		n = len(m.AccountKeys)
	}
	return m.AccountKeys[:n]
}

// FeePayer returns the first account key.
func (m *Message) FeePayer() PublicKey {
	if len(m.AccountKeys) == 0 {
		return PublicKey{}
	}
	return m.AccountKeys[0]
}

// Sanitize checks header counts and instruction indexes.
func (m *Message) Sanitize() error {
	n := len(m.AccountKeys)
	if int(m.Header.NumRequiredSignatures)+int(m.Header.NumReadonlyUnsignedAccounts) > n {
		return fmt.Errorf("invalid message header: %d keys", n)
	}
	if m.Header.NumReadonlySignedAccounts >= m.Header.NumRequiredSignatures {
		return fmt.Errorf("invalid message header: fee payer must be writable")
	}
	seen := make(map[PublicKey]struct{}, n)
	for _, k := range m.AccountKeys {
		if _, dup := seen[k]; dup {
			return fmt.Errorf("duplicate account key %s", k)
		}
		seen[k] = struct{}{}
	}
	for i, ix := range m.Instructions {
		if int(ix.ProgramIDIndex) >= n || ix.ProgramIDIndex == 0 {
			return fmt.Errorf("instruction %d: invalid program index %d", i, ix.ProgramIDIndex)
		}
		for _, a := range ix.Accounts {
			if int(a) >= n {
				return fmt.Errorf("instruction %d: invalid account index %d", i, a)
			}
		}
	}
	return nil
}

// Instruction decompiles the i-th instruction.
func (m *Message) Instruction(i int) Instruction {
	ci := m.Instructions[i]
	ix := Instruction{
		ProgramID: m.AccountKeys[ci.ProgramIDIndex],
		Data:      ci.Data,
	}
	for _, idx := range ci.Accounts {
		ix.Accounts = append(ix.Accounts, &AccountMeta{
			PublicKey:  m.AccountKeys[idx],
			IsSigner:   m.IsSigner(int(idx)),
			IsWritable: m.IsWritable(int(idx)),
		})
	}
	return ix
}

// MarshalBinary serializes the message in the legacy wire format.
func (m *Message) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)

	for _, b := range []uint8{m.Header.NumRequiredSignatures, m.Header.NumReadonlySignedAccounts, m.Header.NumReadonlyUnsignedAccounts} {
		if err := enc.WriteUint8(b); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteBytes(encodeShortVec(len(m.AccountKeys)), false); err != nil {
		return nil, err
	}
	for _, k := range m.AccountKeys {
		if err := enc.WriteBytes(k[:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteBytes(m.RecentBlockhash[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(encodeShortVec(len(m.Instructions)), false); err != nil {
		return nil, err
	}
	for _, ix := range m.Instructions {
		if err := enc.WriteUint8(ix.ProgramIDIndex); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(encodeShortVec(len(ix.Accounts)), false); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(ix.Accounts, false); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(encodeShortVec(len(ix.Data)), false); err != nil {
			return nil, err
		}
		if err := enc.WriteBytes(ix.Data, false); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeMessage(dec *bin.Decoder) (*Message, error) {
	var m Message
	var err error
	if m.Header.NumRequiredSignatures, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if m.Header.NumReadonlySignedAccounts, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if m.Header.NumReadonlyUnsignedAccounts, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	numKeys, err := decodeShortVec(dec)
	if err != nil {
		return nil, fmt.Errorf("read account key count: %w", err)
	}
	for i := 0; i < numKeys; i++ {
		raw, err := dec.ReadNBytes(PublicKeyLength)
		if err != nil {
			return nil, fmt.Errorf("read account key %d: %w", i, err)
		}
		var pk PublicKey
		copy(pk[:], raw)
		m.AccountKeys = append(m.AccountKeys, pk)
	}

	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, fmt.Errorf("read blockhash: %w", err)
	}
	copy(m.RecentBlockhash[:], raw)

	numIx, err := decodeShortVec(dec)
	if err != nil {
		return nil, fmt.Errorf("read instruction count: %w", err)
	}
	for i := 0; i < numIx; i++ {
		var ci CompiledInstruction
		if ci.ProgramIDIndex, err = dec.ReadUint8(); err != nil {
			return nil, fmt.Errorf("read instruction %d: %w", i, err)
		}
		n, err := decodeShortVec(dec)
		if err != nil {
			return nil, fmt.Errorf("read instruction %d accounts: %w", i, err)
		}
		if ci.Accounts, err = dec.ReadNBytes(n); err != nil {
			return nil, fmt.Errorf("read instruction %d accounts: %w", i, err)
		}
		n, err = decodeShortVec(dec)
		if err != nil {
			return nil, fmt.Errorf("read instruction %d data: %w", i, err)
		}
		if ci.Data, err = dec.ReadNBytes(n); err != nil {
			return nil, fmt.Errorf("read instruction %d data: %w", i, err)
		}
		m.Instructions = append(m.Instructions, ci)
	}
	return &m, nil
}

// NewTransaction compiles instructions into an unsigned transaction.
func NewTransaction(instructions []Instruction, recentBlockhash Hash, feePayer PublicKey) (*Transaction, error) {
	msg, err := NewMessage(feePayer, instructions, recentBlockhash)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		Signatures: make([]Signature, msg.Header.NumRequiredSignatures),
		Message:    *msg,
	}, nil
}

// Sign fills in the signatures for every required signer. All signers must be provided.
func (tx *Transaction) Sign(keys ...PrivateKey) error {
	payload, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	byKey := make(map[PublicKey]PrivateKey, len(keys))
	for _, k := range keys {
		byKey[k.PublicKey()] = k
	}

	signers := tx.Message.Signers()
	if len(tx.Signatures) != len(signers) {
		tx.Signatures = make([]Signature, len(signers))
	}
	for i, pk := range signers {
		k, ok := byKey[pk]
		if !ok {
			return fmt.Errorf("missing signer %s", pk)
		}
		tx.Signatures[i] = k.Sign(payload)
	}
	return nil
}

// VerifySignatures checks every signature against its signer key.
func (tx *Transaction) VerifySignatures() error {
	signers := tx.Message.Signers()
	if len(tx.Signatures) != len(signers) {
		return fmt.Errorf("expected %d signatures, got %d", len(signers), len(tx.Signatures))
	}
	payload, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	for i, pk := range signers {
		if !tx.Signatures[i].Verify(pk, payload) {
			return fmt.Errorf("signature %d does not verify for %s", i, pk)
		}
	}
	return nil
}

// Signature returns the first signature, which identifies the transaction.
func (tx *Transaction) Signature() Signature {
	if len(tx.Signatures) == 0 {
		return Signature{}
	}
	return tx.Signatures[0]
}

// MarshalBinary serializes signatures followed by the message.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := encodeShortVec(len(tx.Signatures))
	for _, sig := range tx.Signatures {
		out = append(out, sig[:]...)
	}
	return append(out, msg...), nil
}

// TransactionFromBytes decodes a wire-format transaction.
func TransactionFromBytes(data []byte) (*Transaction, error) {
	dec := bin.NewBinDecoder(data)

	numSigs, err := decodeShortVec(dec)
	if err != nil {
		return nil, fmt.Errorf("read signature count: %w", err)
	}
	tx := &Transaction{}
	for i := 0; i < numSigs; i++ {
		raw, err := dec.ReadNBytes(SignatureLength)
		if err != nil {
			return nil, fmt.Errorf("read signature %d: %w", i, err)
		}
		var sig Signature
		copy(sig[:], raw)
		tx.Signatures = append(tx.Signatures, sig)
	}

	msg, err := decodeMessage(dec)
	if err != nil {
		return nil, err
	}
	if dec.Remaining() > 0 {
		return nil, fmt.Errorf("trailing %d bytes after transaction", dec.Remaining())
	}
	tx.Message = *msg
	return tx, nil
}

// encodeShortVec encodes a length as compact-u16.
func encodeShortVec(n int) []byte {
	var out []byte
	v := uint16(n)
	for {
		elem := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, elem)
		}
		out = append(out, elem|0x80)
	}
}

// decodeShortVec reads a compact-u16 length (at most three bytes).
func decodeShortVec(dec *bin.Decoder) (int, error) {
	var n int
	for i := 0; i < 3; i++ {
		b, err := dec.ReadUint8()
		if err != nil {
			return 0, err
		}
		n |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return n, nil
		}
	}
	return 0, errors.New("compact-u16 overflow")
}
