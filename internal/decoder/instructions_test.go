package decoder

import (
	"encoding/binary"
	"errors"
	"testing"
)

func swapAccounts() []string {
	return []string{
		testKey(20), // global
		testKey(21), // fee recipient
		testKey(22), // mint
		testKey(23), // bonding curve
		testKey(24), // associated bonding curve
		testKey(25), // associated user
		testKey(26), // user
	}
}

func createAccounts() []string {
	return []string{
		testKey(30), // mint
		testKey(31), // mint authority
		testKey(32), // bonding curve
		testKey(33), // associated bonding curve
		testKey(34), // global
		testKey(35), // mpl token metadata
		testKey(36), // metadata
		testKey(37), // user
	}
}

func TestParseInstruction_Buy(t *testing.T) {
	disc := InstructionDiscriminator("buy")
	data := append([]byte{}, disc[:]...)
	data = binary.LittleEndian.AppendUint64(data, 42_000_000_000)
	data = binary.LittleEndian.AppendUint64(data, 1_600_000_000)

	accounts := swapAccounts()
	instr, err := ParseInstruction(data, accounts)
	if err != nil {
		t.Fatalf("ParseInstruction: %v", err)
	}

	if instr.Kind != InstructionBuy {
		t.Errorf("kind = %q, want buy", instr.Kind)
	}
	if instr.Amount != 42_000_000_000 || instr.LimitAmount != 1_600_000_000 {
		t.Errorf("amounts = %d/%d", instr.Amount, instr.LimitAmount)
	}
	if instr.Mint != accounts[2] || instr.BondingCurve != accounts[3] || instr.User != accounts[6] {
		t.Errorf("account mapping mismatch: %+v", instr)
	}
}

func TestParseInstruction_Sell(t *testing.T) {
	disc := InstructionDiscriminator("sell")
	data := append([]byte{}, disc[:]...)
	data = binary.LittleEndian.AppendUint64(data, 10_000_000)
	data = binary.LittleEndian.AppendUint64(data, 300_000)

	instr, err := ParseInstruction(data, swapAccounts())
	if err != nil {
		t.Fatalf("ParseInstruction: %v", err)
	}
	if instr.Kind != InstructionSell || instr.Amount != 10_000_000 || instr.LimitAmount != 300_000 {
		t.Errorf("unexpected instruction: %+v", instr)
	}
}

func TestParseInstruction_Create(t *testing.T) {
	disc := InstructionDiscriminator("create")
	w := &eventWriter{buf: disc[:]}
	w.str("Launch Token").str("LNCH").str("ipfs://meta")

	accounts := createAccounts()
	instr, err := ParseInstruction(w.buf, accounts)
	if err != nil {
		t.Fatalf("ParseInstruction: %v", err)
	}

	if instr.Kind != InstructionCreate {
		t.Errorf("kind = %q, want create", instr.Kind)
	}
	if instr.Name != "Launch Token" || instr.Symbol != "LNCH" || instr.URI != "ipfs://meta" {
		t.Errorf("metadata mismatch: %+v", instr)
	}
	if instr.Mint != accounts[0] || instr.BondingCurve != accounts[2] || instr.User != accounts[7] {
		t.Errorf("account mapping mismatch: %+v", instr)
	}
}

func TestParseInstruction_UnknownDiscriminator(t *testing.T) {
	disc := InstructionDiscriminator("withdraw")
	_, err := ParseInstruction(disc[:], swapAccounts())
	if !errors.Is(err, ErrUnknownInstruction) {
		t.Errorf("err = %v, want ErrUnknownInstruction", err)
	}
}

func TestParseInstruction_TruncatedBody(t *testing.T) {
	disc := InstructionDiscriminator("buy")
	data := append([]byte{}, disc[:]...)
	data = binary.LittleEndian.AppendUint64(data, 1) // missing limit amount

	_, err := ParseInstruction(data, swapAccounts())
	if err == nil {
		t.Fatal("expected error for truncated buy body")
	}
	if errors.Is(err, ErrUnknownInstruction) {
		t.Error("truncated body must not map to ErrUnknownInstruction")
	}
}

func TestParseInstruction_TooFewAccounts(t *testing.T) {
	disc := InstructionDiscriminator("buy")
	data := append([]byte{}, disc[:]...)
	data = binary.LittleEndian.AppendUint64(data, 1)
	data = binary.LittleEndian.AppendUint64(data, 1)

	if _, err := ParseInstruction(data, swapAccounts()[:4]); err == nil {
		t.Error("expected error for short account list")
	}
}

func TestIsCreateInstruction(t *testing.T) {
	create := InstructionDiscriminator("create")
	buy := InstructionDiscriminator("buy")

	if !IsCreateInstruction(create[:]) {
		t.Error("create discriminator not recognized")
	}
	if IsCreateInstruction(buy[:]) {
		t.Error("buy discriminator misclassified as create")
	}
	if IsCreateInstruction(create[:4]) {
		t.Error("short data misclassified as create")
	}
}

func TestParseBondingCurve(t *testing.T) {
	data := make([]byte, DiscriminatorLen)
	data = binary.LittleEndian.AppendUint64(data, 1_073_000_000_000_000)
	data = binary.LittleEndian.AppendUint64(data, 30_000_000_000)
	data = binary.LittleEndian.AppendUint64(data, 793_100_000_000_000)
	data = binary.LittleEndian.AppendUint64(data, 0)
	data = binary.LittleEndian.AppendUint64(data, 1_000_000_000_000_000)
	data = append(data, 0)

	cs, err := ParseBondingCurve(data)
	if err != nil {
		t.Fatalf("ParseBondingCurve: %v", err)
	}

	if cs.VirtualTokenReserves != 1_073_000_000_000_000 || cs.VirtualSolReserves != 30_000_000_000 {
		t.Errorf("virtual reserves mismatch: %+v", cs)
	}
	if cs.RealTokenReserves != 793_100_000_000_000 || cs.RealSolReserves != 0 {
		t.Errorf("real reserves mismatch: %+v", cs)
	}
	if cs.TokenTotalSupply != 1_000_000_000_000_000 || cs.Complete {
		t.Errorf("supply/complete mismatch: %+v", cs)
	}
}

func TestParseBondingCurve_Truncated(t *testing.T) {
	data := make([]byte, DiscriminatorLen+16)
	if _, err := ParseBondingCurve(data); err == nil {
		t.Error("expected error for truncated account data")
	}
}
