package solana

import "context"

// RPCClient defines the Solana RPC HTTP interface.
type RPCClient interface {
	// GetBlockHeight retrieves the current block height.
	GetBlockHeight(ctx context.Context) (uint64, error)

	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns nil when the transaction is not found.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetParsedAccountInfo retrieves an account with jsonParsed encoding.
	// Returns nil when the account does not exist.
	GetParsedAccountInfo(ctx context.Context, pubkey string) (*ParsedAccountInfo, error)

	// GetAccountInfoAndContext retrieves raw account data together with the
	// slot it was read at. minContextSlot > 0 rejects responses from nodes
	// behind that slot, so curve state is never older than the trade that
	// referenced it.
	GetAccountInfoAndContext(ctx context.Context, pubkey string, minContextSlot int64) (*AccountInfo, int64, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains the compiled transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []CompiledInstruction
}

// CompiledInstruction is one instruction with indexes into AccountKeys.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           []byte // decoded from base58
}

// Program returns the invoked program's address, or "" when the index is
// out of range.
func (ci CompiledInstruction) Program(keys []string) string {
	if ci.ProgramIDIndex < 0 || ci.ProgramIDIndex >= len(keys) {
		return ""
	}
	return keys[ci.ProgramIDIndex]
}

// ResolveAccounts maps the instruction's account indexes to addresses.
// Indexes out of range resolve to "".
func (ci CompiledInstruction) ResolveAccounts(keys []string) []string {
	out := make([]string, len(ci.Accounts))
	for i, idx := range ci.Accounts {
		if idx >= 0 && idx < len(keys) {
			out[i] = keys[idx]
		}
	}
	return out
}
