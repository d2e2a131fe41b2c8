package decoder

import (
	"bytes"
	"errors"
	"fmt"

	"pump-sentinel/internal/domain"
)

// InstructionKind identifies a recognized program instruction.
type InstructionKind string

const (
	InstructionCreate InstructionKind = "create"
	InstructionBuy    InstructionKind = "buy"
	InstructionSell   InstructionKind = "sell"
)

// ErrUnknownInstruction is returned for instruction data whose discriminator
// does not match create, buy or sell. Callers skip these; they are not
// decode failures.
var ErrUnknownInstruction = errors.New("unknown instruction discriminator")

// Account index layout of the tracked program's instructions.
const (
	buyAccountMint     = 2
	buyAccountCurve    = 3
	buyAccountUser     = 6
	createAccountMint  = 0
	createAccountCurve = 2
	createAccountUser  = 7
)

// Instruction is one decoded program invocation. For buy/sell, Amount is the
// client-requested token amount and LimitAmount the slippage bound
// (max SOL in for buys, min SOL out for sells). The bound is a constraint,
// not an executed amount, and must never be recorded as one; the actual
// counter-amount is derived from bonding-curve state at the trade's slot.
type Instruction struct {
	Kind        InstructionKind
	Amount      uint64
	LimitAmount uint64

	Mint         string
	BondingCurve string
	User         string

	// Create-only metadata fields.
	Name   string
	Symbol string
	URI    string
}

// ParseInstruction decodes raw instruction bytes against the transaction's
// account list. Unknown discriminators return ErrUnknownInstruction;
// recognized instructions with malformed bodies return a hard decode error
// (the caller may retry the whole transaction through a different endpoint,
// but a bad length prefix will not improve on retry).
func ParseInstruction(data []byte, accounts []string) (*Instruction, error) {
	if len(data) < DiscriminatorLen {
		return nil, fmt.Errorf("instruction data too short: %d bytes", len(data))
	}

	disc, body := data[:DiscriminatorLen], data[DiscriminatorLen:]
	switch {
	case bytes.Equal(disc, discCreateInstr[:]):
		return parseCreateInstruction(body, accounts)
	case bytes.Equal(disc, discBuyInstr[:]):
		return parseSwapInstruction(InstructionBuy, body, accounts)
	case bytes.Equal(disc, discSellInstr[:]):
		return parseSwapInstruction(InstructionSell, body, accounts)
	default:
		return nil, ErrUnknownInstruction
	}
}

// IsCreateInstruction reports whether raw instruction bytes carry the create
// discriminator, without decoding the body. Batch processing tests this
// first so launches are applied before trades that depend on them.
func IsCreateInstruction(data []byte) bool {
	return len(data) >= DiscriminatorLen && bytes.Equal(data[:DiscriminatorLen], discCreateInstr[:])
}

func parseCreateInstruction(body []byte, accounts []string) (*Instruction, error) {
	if len(accounts) <= createAccountUser {
		return nil, fmt.Errorf("create instruction needs %d accounts, got %d", createAccountUser+1, len(accounts))
	}

	r := newByteReader(body)
	instr := &Instruction{
		Kind:         InstructionCreate,
		Mint:         accounts[createAccountMint],
		BondingCurve: accounts[createAccountCurve],
		User:         accounts[createAccountUser],
	}

	var err error
	if instr.Name, err = r.str(); err != nil {
		return nil, fmt.Errorf("create name: %w", err)
	}
	if instr.Symbol, err = r.str(); err != nil {
		return nil, fmt.Errorf("create symbol: %w", err)
	}
	if instr.URI, err = r.str(); err != nil {
		return nil, fmt.Errorf("create uri: %w", err)
	}
	return instr, nil
}

func parseSwapInstruction(kind InstructionKind, body []byte, accounts []string) (*Instruction, error) {
	if len(accounts) <= buyAccountUser {
		return nil, fmt.Errorf("%s instruction needs %d accounts, got %d", kind, buyAccountUser+1, len(accounts))
	}

	r := newByteReader(body)
	instr := &Instruction{
		Kind:         kind,
		Mint:         accounts[buyAccountMint],
		BondingCurve: accounts[buyAccountCurve],
		User:         accounts[buyAccountUser],
	}

	var err error
	if instr.Amount, err = r.u64(); err != nil {
		return nil, fmt.Errorf("%s amount: %w", kind, err)
	}
	if instr.LimitAmount, err = r.u64(); err != nil {
		return nil, fmt.Errorf("%s limit amount: %w", kind, err)
	}
	return instr, nil
}

// ParseBondingCurve decodes a bonding curve account's data (including its
// 8-byte account discriminator) into reserve state.
func ParseBondingCurve(data []byte) (*domain.BondingCurveState, error) {
	if len(data) < DiscriminatorLen {
		return nil, fmt.Errorf("bonding curve account too short: %d bytes", len(data))
	}

	r := newByteReader(data[DiscriminatorLen:])
	var (
		cs  domain.BondingCurveState
		err error
	)
	if cs.VirtualTokenReserves, err = r.u64(); err != nil {
		return nil, fmt.Errorf("virtual token reserves: %w", err)
	}
	if cs.VirtualSolReserves, err = r.u64(); err != nil {
		return nil, fmt.Errorf("virtual sol reserves: %w", err)
	}
	if cs.RealTokenReserves, err = r.u64(); err != nil {
		return nil, fmt.Errorf("real token reserves: %w", err)
	}
	if cs.RealSolReserves, err = r.u64(); err != nil {
		return nil, fmt.Errorf("real sol reserves: %w", err)
	}
	if cs.TokenTotalSupply, err = r.u64(); err != nil {
		return nil, fmt.Errorf("token total supply: %w", err)
	}
	if cs.Complete, err = r.boolean(); err != nil {
		return nil, fmt.Errorf("complete flag: %w", err)
	}
	return &cs, nil
}
