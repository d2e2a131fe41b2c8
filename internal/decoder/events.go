package decoder

import (
	"bytes"
	"encoding/base64"
	"strings"
)

// ProgramDataMarker prefixes log lines that carry an emitted event payload.
const ProgramDataMarker = "Program data: "

// RawCreate is a CreateEvent exactly as emitted on chain.
type RawCreate struct {
	Name         string
	Symbol       string
	URI          string
	Mint         string
	BondingCurve string
	User         string
}

// RawTrade is a TradeEvent exactly as emitted on chain. Amounts and reserves
// are fixed-point integers; normalization needs the mint's decimals and
// happens in ingestion.
type RawTrade struct {
	Mint                 string
	SolAmount            uint64
	TokenAmount          uint64
	IsBuy                bool
	User                 string
	Timestamp            int64
	VirtualSolReserves   uint64
	VirtualTokenReserves uint64
}

// RawComplete is a CompleteEvent exactly as emitted on chain.
type RawComplete struct {
	User         string
	Mint         string
	BondingCurve string
	Timestamp    int64
}

// RawEvent is the decoded payload of one program-data log line. Exactly one
// field is non-nil.
type RawEvent struct {
	Create   *RawCreate
	Trade    *RawTrade
	Complete *RawComplete
}

// EventFromLog decodes a single log line. It returns (nil, false) when the
// line does not carry the program-data marker, the payload is not valid
// base64, or the discriminator is unrecognized. It never returns an error:
// foreign events in shared transactions are routine, not failures.
func EventFromLog(line string) (*RawEvent, bool) {
	rest, ok := strings.CutPrefix(line, ProgramDataMarker)
	if !ok {
		return nil, false
	}

	payload, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return nil, false
	}
	if len(payload) < DiscriminatorLen {
		return nil, false
	}

	disc, body := payload[:DiscriminatorLen], payload[DiscriminatorLen:]
	switch {
	case bytes.Equal(disc, discCreateEvent[:]):
		return decodeCreateEvent(body)
	case bytes.Equal(disc, discTradeEvent[:]):
		return decodeTradeEvent(body)
	case bytes.Equal(disc, discCompleteEvent[:]):
		return decodeCompleteEvent(body)
	default:
		return nil, false
	}
}

// EventFromLogs scans a transaction's log lines and decodes the first one
// carrying the program-data marker.
func EventFromLogs(logs []string) (*RawEvent, bool) {
	for _, line := range logs {
		if ev, ok := EventFromLog(line); ok {
			return ev, true
		}
	}
	return nil, false
}

func decodeCreateEvent(body []byte) (*RawEvent, bool) {
	r := newByteReader(body)
	var (
		ev  RawCreate
		err error
	)
	if ev.Name, err = r.str(); err != nil {
		return nil, false
	}
	if ev.Symbol, err = r.str(); err != nil {
		return nil, false
	}
	if ev.URI, err = r.str(); err != nil {
		return nil, false
	}
	if ev.Mint, err = r.pubkey(); err != nil {
		return nil, false
	}
	if ev.BondingCurve, err = r.pubkey(); err != nil {
		return nil, false
	}
	if ev.User, err = r.pubkey(); err != nil {
		return nil, false
	}
	return &RawEvent{Create: &ev}, true
}

func decodeTradeEvent(body []byte) (*RawEvent, bool) {
	r := newByteReader(body)
	var (
		ev  RawTrade
		err error
	)
	if ev.Mint, err = r.pubkey(); err != nil {
		return nil, false
	}
	if ev.SolAmount, err = r.u64(); err != nil {
		return nil, false
	}
	if ev.TokenAmount, err = r.u64(); err != nil {
		return nil, false
	}
	if ev.IsBuy, err = r.boolean(); err != nil {
		return nil, false
	}
	if ev.User, err = r.pubkey(); err != nil {
		return nil, false
	}
	if ev.Timestamp, err = r.i64(); err != nil {
		return nil, false
	}
	if ev.VirtualSolReserves, err = r.u64(); err != nil {
		return nil, false
	}
	if ev.VirtualTokenReserves, err = r.u64(); err != nil {
		return nil, false
	}
	return &RawEvent{Trade: &ev}, true
}

func decodeCompleteEvent(body []byte) (*RawEvent, bool) {
	r := newByteReader(body)
	var (
		ev  RawComplete
		err error
	)
	if ev.User, err = r.pubkey(); err != nil {
		return nil, false
	}
	if ev.Mint, err = r.pubkey(); err != nil {
		return nil, false
	}
	if ev.BondingCurve, err = r.pubkey(); err != nil {
		return nil, false
	}
	if ev.Timestamp, err = r.i64(); err != nil {
		return nil, false
	}
	return &RawEvent{Complete: &ev}, true
}
