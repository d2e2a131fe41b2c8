package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrMalformedRecord tags boundary validation failures: the record is
// rejected, its batch continues.
var ErrMalformedRecord = errors.New("malformed stream record")

// AccountBalance is one account of a streamed instruction with its balance
// change.
type AccountBalance struct {
	Pubkey      string  `json:"pubkey"`
	PreBalance  float64 `json:"preBalance"`
	PostBalance float64 `json:"postBalance"`
}

// StreamInvocation is one program invocation of a validated record. Data is
// the instruction payload, already base58-decoded.
type StreamInvocation struct {
	ProgramID string
	Accounts  []AccountBalance
	Data      []byte
}

// StreamRecord is a validated transaction record from the batched stream.
// No untyped data crosses this boundary.
type StreamRecord struct {
	Signature   string
	Slot        int64
	BlockTime   int64
	Invocations []StreamInvocation
	Logs        []string
	Success     bool
}

// Tracked returns the record's first invocation of the given program, or nil.
func (r *StreamRecord) Tracked(programID string) *StreamInvocation {
	for i := range r.Invocations {
		if r.Invocations[i].ProgramID == programID {
			return &r.Invocations[i]
		}
	}
	return nil
}

// Wire shapes. Scalars are pointers so a missing field is distinguishable
// from a zero value; a wrong-typed field fails the unmarshal outright.
type streamRecordWire struct {
	Signature          *string                  `json:"signature"`
	Slot               *int64                   `json:"slot"`
	BlockTime          *int64                   `json:"blockTime"`
	ProgramInvocations []streamInvocationWire   `json:"programInvocations"`
	Logs               []string                 `json:"logs"`
	Success            *bool                    `json:"success"`
}

type streamInvocationWire struct {
	ProgramID   string                `json:"programId"`
	Instruction streamInstructionWire `json:"instruction"`
}

type streamInstructionWire struct {
	Accounts []AccountBalance `json:"accounts"`
	Data     string           `json:"data"`
}

// ValidateRecord checks one raw batch item against the wire contract. A
// record that does not invoke programID is irrelevant and returns
// (nil, nil): not an error, just not ours. Schema violations return an error
// wrapping ErrMalformedRecord.
func ValidateRecord(item json.RawMessage, programID string) (*StreamRecord, error) {
	var wire streamRecordWire
	if err := json.Unmarshal(item, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	relevant := false
	for _, inv := range wire.ProgramInvocations {
		if inv.ProgramID == programID {
			relevant = true
			break
		}
	}
	if !relevant {
		return nil, nil
	}

	var missing []string
	if wire.Signature == nil {
		missing = append(missing, "signature")
	}
	if wire.Slot == nil {
		missing = append(missing, "slot")
	}
	if wire.BlockTime == nil {
		missing = append(missing, "blockTime")
	}
	if wire.ProgramInvocations == nil {
		missing = append(missing, "programInvocations")
	}
	if wire.Logs == nil {
		missing = append(missing, "logs")
	}
	if wire.Success == nil {
		missing = append(missing, "success")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrMalformedRecord, strings.Join(missing, ", "))
	}

	rec := &StreamRecord{
		Signature:   *wire.Signature,
		Slot:        *wire.Slot,
		BlockTime:   *wire.BlockTime,
		Invocations: make([]StreamInvocation, 0, len(wire.ProgramInvocations)),
		Logs:        wire.Logs,
		Success:     *wire.Success,
	}
	for _, inv := range wire.ProgramInvocations {
		data, err := base58.Decode(inv.Instruction.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: instruction data is not base58: %v", ErrMalformedRecord, err)
		}
		rec.Invocations = append(rec.Invocations, StreamInvocation{
			ProgramID: inv.ProgramID,
			Accounts:  inv.Instruction.Accounts,
			Data:      data,
		})
	}
	return rec, nil
}
