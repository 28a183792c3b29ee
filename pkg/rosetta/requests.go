package rosetta

// ── Data API ────────────────────────────────────────────────────────────

// MetadataRequest is the body of /network/list.
type MetadataRequest struct {
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NetworkListResponse lists the networks the gateway serves.
type NetworkListResponse struct {
	NetworkIdentifiers []NetworkIdentifier `json:"network_identifiers"`
}

// NetworkRequest is the body of /network/options and /network/status.
type NetworkRequest struct {
	NetworkIdentifier NetworkIdentifier `json:"network_identifier"`
}

// NetworkOptionsResponse is returned by /network/options.
type NetworkOptionsResponse struct {
	Version Version `json:"version"`
	Allow   Allow   `json:"allow"`
}

// NetworkStatusResponse is returned by /network/status.
type NetworkStatusResponse struct {
	CurrentBlockIdentifier BlockIdentifier `json:"current_block_identifier"`
	CurrentBlockTimestamp  int64           `json:"current_block_timestamp"`
	GenesisBlockIdentifier BlockIdentifier `json:"genesis_block_identifier"`
	SyncStatus             *SyncStatus     `json:"sync_status,omitempty"`
	Peers                  []Peer          `json:"peers"`
}

// AccountBalanceRequest is the body of /account/balance.
type AccountBalanceRequest struct {
	NetworkIdentifier NetworkIdentifier       `json:"network_identifier"`
	AccountIdentifier AccountIdentifier       `json:"account_identifier"`
	BlockIdentifier   *PartialBlockIdentifier `json:"block_identifier,omitempty"`
}

// AccountBalanceResponse is returned by /account/balance.
type AccountBalanceResponse struct {
	BlockIdentifier BlockIdentifier `json:"block_identifier"`
	Balances        []Amount        `json:"balances"`
}

// AccountCoinsRequest is the body of /account/coins.
type AccountCoinsRequest struct {
	NetworkIdentifier NetworkIdentifier `json:"network_identifier"`
	AccountIdentifier AccountIdentifier `json:"account_identifier"`
	IncludeMempool    bool              `json:"include_mempool"`
}

// AccountCoinsResponse is returned by /account/coins.
type AccountCoinsResponse struct {
	BlockIdentifier BlockIdentifier `json:"block_identifier"`
	Coins           []Coin          `json:"coins"`
}

// BlockRequest is the body of /block.
type BlockRequest struct {
	NetworkIdentifier NetworkIdentifier      `json:"network_identifier"`
	BlockIdentifier   PartialBlockIdentifier `json:"block_identifier"`
}

// BlockResponse is returned by /block.
type BlockResponse struct {
	Block *Block `json:"block"`
}

// ── Construction API ────────────────────────────────────────────────────

// ConstructionDeriveRequest is the body of /construction/derive.
type ConstructionDeriveRequest struct {
	NetworkIdentifier NetworkIdentifier `json:"network_identifier"`
	PublicKey         PublicKey         `json:"public_key"`
}

// ConstructionDeriveResponse is returned by /construction/derive.
type ConstructionDeriveResponse struct {
	AccountIdentifier AccountIdentifier `json:"account_identifier"`
}

// ConstructionPreprocessRequest is the body of /construction/preprocess.
type ConstructionPreprocessRequest struct {
	NetworkIdentifier NetworkIdentifier      `json:"network_identifier"`
	Operations        []Operation            `json:"operations"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
}

// ConstructionPreprocessResponse is returned by /construction/preprocess.
type ConstructionPreprocessResponse struct {
	Options            map[string]interface{} `json:"options"`
	RequiredPublicKeys []AccountIdentifier    `json:"required_public_keys,omitempty"`
}

// ConstructionMetadataRequest is the body of /construction/metadata.
type ConstructionMetadataRequest struct {
	NetworkIdentifier NetworkIdentifier      `json:"network_identifier"`
	Options           map[string]interface{} `json:"options"`
	PublicKeys        []PublicKey            `json:"public_keys,omitempty"`
}

// ConstructionMetadataResponse is returned by /construction/metadata.
type ConstructionMetadataResponse struct {
	Metadata     map[string]interface{} `json:"metadata"`
	SuggestedFee []Amount               `json:"suggested_fee,omitempty"`
}

// ConstructionPayloadsRequest is the body of /construction/payloads.
type ConstructionPayloadsRequest struct {
	NetworkIdentifier NetworkIdentifier      `json:"network_identifier"`
	Operations        []Operation            `json:"operations"`
	Metadata          map[string]interface{} `json:"metadata"`
	PublicKeys        []PublicKey            `json:"public_keys,omitempty"`
}

// ConstructionPayloadsResponse is returned by /construction/payloads.
type ConstructionPayloadsResponse struct {
	UnsignedTransaction string           `json:"unsigned_transaction"`
	Payloads            []SigningPayload `json:"payloads"`
}

// ConstructionCombineRequest is the body of /construction/combine.
type ConstructionCombineRequest struct {
	NetworkIdentifier   NetworkIdentifier `json:"network_identifier"`
	UnsignedTransaction string            `json:"unsigned_transaction"`
	Signatures          []Signature       `json:"signatures"`
}

// ConstructionCombineResponse is returned by /construction/combine.
type ConstructionCombineResponse struct {
	SignedTransaction string `json:"signed_transaction"`
}

// ConstructionParseRequest is the body of /construction/parse.
type ConstructionParseRequest struct {
	NetworkIdentifier NetworkIdentifier `json:"network_identifier"`
	Signed            bool              `json:"signed"`
	Transaction       string            `json:"transaction"`
}

// ConstructionParseResponse is returned by /construction/parse.
type ConstructionParseResponse struct {
	Operations               []Operation         `json:"operations"`
	AccountIdentifierSigners []AccountIdentifier `json:"account_identifier_signers,omitempty"`
}

// ConstructionHashRequest is the body of /construction/hash.
type ConstructionHashRequest struct {
	NetworkIdentifier NetworkIdentifier `json:"network_identifier"`
	SignedTransaction string            `json:"signed_transaction"`
}

// ConstructionSubmitRequest is the body of /construction/submit.
type ConstructionSubmitRequest struct {
	NetworkIdentifier NetworkIdentifier `json:"network_identifier"`
	SignedTransaction string            `json:"signed_transaction"`
}

// TransactionIdentifierResponse is returned by /construction/hash and
// /construction/submit.
type TransactionIdentifierResponse struct {
	TransactionIdentifier TransactionIdentifier `json:"transaction_identifier"`
}
