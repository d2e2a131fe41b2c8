// Package decoder maps raw program output (log lines, instruction bytes,
// account data) to typed records. Everything here is pure: chain reads and
// normalization happen in the ingestion layer.
package decoder

import "crypto/sha256"

// DiscriminatorLen is the length of the hash-derived tag prefixing every
// Anchor-encoded event and instruction.
const DiscriminatorLen = 8

// Event names emitted by the tracked program.
const (
	eventCreate   = "CreateEvent"
	eventTrade    = "TradeEvent"
	eventComplete = "CompleteEvent"
)

// Instruction names of the tracked program.
const (
	instrCreate = "create"
	instrBuy    = "buy"
	instrSell   = "sell"
)

// EventDiscriminator derives the 8-byte tag for a namespaced event name,
// sha256("event:<Name>") truncated.
func EventDiscriminator(name string) [DiscriminatorLen]byte {
	return discriminator("event:" + name)
}

// InstructionDiscriminator derives the 8-byte tag for a global instruction,
// sha256("global:<name>") truncated.
func InstructionDiscriminator(name string) [DiscriminatorLen]byte {
	return discriminator("global:" + name)
}

func discriminator(preimage string) [DiscriminatorLen]byte {
	sum := sha256.Sum256([]byte(preimage))
	var d [DiscriminatorLen]byte
	copy(d[:], sum[:DiscriminatorLen])
	return d
}

var (
	discCreateEvent   = EventDiscriminator(eventCreate)
	discTradeEvent    = EventDiscriminator(eventTrade)
	discCompleteEvent = EventDiscriminator(eventComplete)

	discCreateInstr = InstructionDiscriminator(instrCreate)
	discBuyInstr    = InstructionDiscriminator(instrBuy)
	discSellInstr   = InstructionDiscriminator(instrSell)
)
