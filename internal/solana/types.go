package solana

// AccountInfo represents raw Solana account data.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte // decoded from base64
	Executable bool
}

// ParsedAccountInfo is an account read with jsonParsed encoding. For SPL
// token mints the node fills Mint; other account types leave it nil.
type ParsedAccountInfo struct {
	Lamports uint64
	Owner    string
	Mint     *ParsedMintInfo
}

// ParsedMintInfo is the parsed state of an SPL token mint.
type ParsedMintInfo struct {
	Decimals      uint8
	Supply        string // raw integer in base units
	MintAuthority string
	IsInitialized bool
}
