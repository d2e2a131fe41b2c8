package ingestion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/mr-tron/base58"

	"pump-sentinel/internal/decoder"
	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/solana"
)

const testProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

func rawKey(seed byte) []byte {
	return bytes.Repeat([]byte{seed}, 32)
}

func key(seed byte) string {
	return base58.Encode(rawKey(seed))
}

// payload builds Borsh-encoded bodies.
type payload struct {
	buf bytes.Buffer
}

func (p *payload) u64(v uint64) *payload {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	p.buf.Write(b[:])
	return p
}

func (p *payload) i64(v int64) *payload {
	return p.u64(uint64(v))
}

func (p *payload) boolean(v bool) *payload {
	if v {
		p.buf.WriteByte(1)
	} else {
		p.buf.WriteByte(0)
	}
	return p
}

func (p *payload) str(s string) *payload {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(s)))
	p.buf.Write(b[:])
	p.buf.WriteString(s)
	return p
}

func (p *payload) pubkey(seed byte) *payload {
	p.buf.Write(rawKey(seed))
	return p
}

func (p *payload) bytes() []byte {
	return p.buf.Bytes()
}

func eventLog(disc [8]byte, body []byte) string {
	return decoder.ProgramDataMarker + base64.StdEncoding.EncodeToString(append(disc[:], body...))
}

func tradeLog(mint byte, solLamports, tokenRaw uint64, isBuy bool, user byte, ts int64, vSol, vTok uint64) string {
	body := new(payload).
		pubkey(mint).
		u64(solLamports).
		u64(tokenRaw).
		boolean(isBuy).
		pubkey(user).
		i64(ts).
		u64(vSol).
		u64(vTok).
		bytes()
	return eventLog(decoder.EventDiscriminator("TradeEvent"), body)
}

func createLog(name, symbol, uri string, mint, curve, user byte) string {
	body := new(payload).
		str(name).
		str(symbol).
		str(uri).
		pubkey(mint).
		pubkey(curve).
		pubkey(user).
		bytes()
	return eventLog(decoder.EventDiscriminator("CreateEvent"), body)
}

func buyInstructionData(amount, limit uint64) []byte {
	disc := decoder.InstructionDiscriminator("buy")
	return append(disc[:], new(payload).u64(amount).u64(limit).bytes()...)
}

func sellInstructionData(amount, limit uint64) []byte {
	disc := decoder.InstructionDiscriminator("sell")
	return append(disc[:], new(payload).u64(amount).u64(limit).bytes()...)
}

func createInstructionData(name, symbol, uri string) []byte {
	disc := decoder.InstructionDiscriminator("create")
	return append(disc[:], new(payload).str(name).str(symbol).str(uri).bytes()...)
}

// swapAccounts lays out the buy/sell account list: mint at 2, curve at 3,
// user at 6.
func swapAccounts(mint, curve, user byte) []string {
	return swapAccountList(key(mint), key(curve), key(user))
}

func swapAccountList(mint, curve, user string) []string {
	return []string{key(0xF0), key(0xF1), mint, curve, key(0xF4), key(0xF5), user}
}

// derivedCurve returns the bonding-curve PDA a test mint resolves to under
// the test program.
func derivedCurve(t *testing.T, mint byte) string {
	t.Helper()
	addr, err := solana.BondingCurveAddress(key(mint), testProgramID)
	if err != nil {
		t.Fatalf("derive bonding curve: %v", err)
	}
	return addr
}

// createAccounts lays out the create account list: mint at 0, curve at 2,
// user at 7.
func createAccounts(mint, curve, user byte) []string {
	return []string{key(mint), key(0xF1), key(curve), key(0xF3), key(0xF4), key(0xF5), key(0xF6), key(user)}
}

func curveAccountData(vTok, vSol, realTok, realSol, supply uint64, complete bool) []byte {
	disc := bytes.Repeat([]byte{0xAA}, 8)
	return append(disc, new(payload).
		u64(vTok).
		u64(vSol).
		u64(realTok).
		u64(realSol).
		u64(supply).
		boolean(complete).
		bytes()...)
}

func recordJSON(t *testing.T, sig string, slot, blockTime int64, program string, data []byte, accounts []string, logs []string, success bool) json.RawMessage {
	t.Helper()

	accountObjs := make([]map[string]any, len(accounts))
	for i, a := range accounts {
		accountObjs[i] = map[string]any{"pubkey": a, "preBalance": 0, "postBalance": 0}
	}
	rec := map[string]any{
		"signature": sig,
		"slot":      slot,
		"blockTime": blockTime,
		"programInvocations": []map[string]any{
			{
				"programId": program,
				"instruction": map[string]any{
					"accounts": accountObjs,
					"data":     base58.Encode(data),
				},
			},
		},
		"logs":    logs,
		"success": success,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return raw
}

func batchJSON(t *testing.T, records ...json.RawMessage) []byte {
	t.Helper()
	raw, err := json.Marshal(records)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	return raw
}

// confirmedTx builds a successful on-chain transaction carrying the given
// log lines.
func confirmedTx(slot int64, logs ...string) *solana.Transaction {
	return &solana.Transaction{
		Slot: slot,
		Meta: &solana.TransactionMeta{LogMessages: logs},
	}
}

// fakeChain backs both the processor's reconciliation reads and the
// normalizer's decimals lookups.
type fakeChain struct {
	mu         sync.Mutex
	txs        map[string]*solana.Transaction
	txFailures map[string]int // transient errors to serve before success
	accounts   map[string][]byte
	decimals   uint8
	rotations  int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		txs:        make(map[string]*solana.Transaction),
		txFailures: make(map[string]int),
		accounts:   make(map[string][]byte),
		decimals:   6,
	}
}

func (f *fakeChain) Rotate() {
	f.mu.Lock()
	f.rotations++
	f.mu.Unlock()
}

func (f *fakeChain) rotationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rotations
}

func (f *fakeChain) GetBlockHeight(context.Context) (uint64, error) { return 1000, nil }

func (f *fakeChain) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txFailures[signature] > 0 {
		f.txFailures[signature]--
		return nil, errors.New("rpc timeout")
	}
	return f.txs[signature], nil
}

func (f *fakeChain) GetParsedAccountInfo(context.Context, string) (*solana.ParsedAccountInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &solana.ParsedAccountInfo{
		Mint: &solana.ParsedMintInfo{Decimals: f.decimals, Supply: "1000000000000000", IsInitialized: true},
	}, nil
}

func (f *fakeChain) GetAccountInfoAndContext(_ context.Context, pubkey string, _ int64) (*solana.AccountInfo, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[pubkey]
	if !ok {
		return nil, 0, nil
	}
	return &solana.AccountInfo{Data: data}, 5000, nil
}

// fakeMonitor records engine hooks.
type fakeMonitor struct {
	mu        sync.Mutex
	created   []string
	completed []string
}

func (f *fakeMonitor) OnCreate(ev *domain.CreateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, ev.Mint)
	return nil
}

func (f *fakeMonitor) OnComplete(mint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, mint)
}

func (f *fakeMonitor) createdMints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.created))
	copy(out, f.created)
	return out
}
