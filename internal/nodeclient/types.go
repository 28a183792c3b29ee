package nodeclient

// Wire types of the node RPC.

// InfoResult is returned by chain_getInfo.
type InfoResult struct {
	Network      string `json:"network"`
	Version      string `json:"version"`
	LedgerIndex  uint64 `json:"ledger_index"`
	TipHash      string `json:"tip_hash"`
	TipTimestamp int64  `json:"tip_timestamp"` // unix milliseconds
	GenesisHash  string `json:"genesis_hash"`
	Synced       bool   `json:"synced"`
}

// OutputParam is used by ledger_getOutput.
type OutputParam struct {
	OutputID string `json:"output_id"`
}

// OutputResult describes one output.
type OutputResult struct {
	OutputID    string `json:"output_id"`
	Address     string `json:"address"` // bech32
	Type        uint8  `json:"type"`
	Amount      uint64 `json:"amount"`
	Spent       bool   `json:"spent"`
	LedgerIndex uint64 `json:"ledger_index"`
}

// AddressParam is used by ledger_getOutputsByAddress.
type AddressParam struct {
	Address string `json:"address"`
}

// OutputsResult is returned by ledger_getOutputsByAddress.
type OutputsResult struct {
	LedgerIndex uint64         `json:"ledger_index"`
	Outputs     []OutputResult `json:"outputs"`
}

// IndexParam is used by chain_getBlockByIndex.
type IndexParam struct {
	Index uint64 `json:"index"`
}

// HashParam is used by chain_getBlockByHash.
type HashParam struct {
	Hash string `json:"hash"`
}

// BlockResult is a block with hex-serialized transactions.
type BlockResult struct {
	Index        uint64   `json:"index"`
	Hash         string   `json:"hash"`
	ParentHash   string   `json:"parent_hash"`
	Timestamp    int64    `json:"timestamp"` // unix milliseconds
	Transactions []string `json:"transactions"`
}

// PeerResult describes one connected peer.
type PeerResult struct {
	ID        string   `json:"id"`
	Addresses []string `json:"addresses,omitempty"`
	Direction string   `json:"direction,omitempty"`
}

// PeersResult is returned by net_getPeerInfo.
type PeersResult struct {
	Peers []PeerResult `json:"peers"`
}

// SubmitParam is used by tx_submit.
type SubmitParam struct {
	Transaction string `json:"transaction"` // hex
}

// SubmitResult is returned by tx_submit.
type SubmitResult struct {
	TxID string `json:"tx_id"`
}
