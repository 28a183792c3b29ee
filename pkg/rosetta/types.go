// Package rosetta defines the Rosetta API object model, request and response
// bodies, and the error catalog shared by the gateway and its clients.
package rosetta

// Rosetta API version implemented by the gateway.
const APIVersion = "1.4.13"

// Curve and signature identifiers.
const (
	CurveSecp256k1   = "secp256k1"
	SignatureSchnorr = "schnorr_1"
)

// Coin actions.
const (
	CoinCreated = "coin_created"
	CoinSpent   = "coin_spent"
)

// StatusSuccess is the only operation status the ledger produces.
const StatusSuccess = "SUCCESS"

// NetworkIdentifier names a blockchain and one of its networks.
type NetworkIdentifier struct {
	Blockchain string `json:"blockchain"`
	Network    string `json:"network"`
}

// AccountIdentifier identifies an account by its bech32 address.
type AccountIdentifier struct {
	Address string `json:"address"`
}

// Currency describes the native asset.
type Currency struct {
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

// Amount is a signed decimal value in the smallest currency unit.
type Amount struct {
	Value    string   `json:"value"`
	Currency Currency `json:"currency"`
}

// CoinIdentifier holds the hex output id of a coin.
type CoinIdentifier struct {
	Identifier string `json:"identifier"`
}

// CoinChange records that an operation created or spent a coin.
type CoinChange struct {
	CoinIdentifier CoinIdentifier `json:"coin_identifier"`
	CoinAction     string         `json:"coin_action"`
}

// Coin is an unspent output owned by an account.
type Coin struct {
	CoinIdentifier CoinIdentifier `json:"coin_identifier"`
	Amount         Amount         `json:"amount"`
}

// OperationIdentifier is the position of an operation within a transaction.
type OperationIdentifier struct {
	Index int64 `json:"index"`
}

// Operation is one balance-changing effect of a transaction. It touches
// exactly one account.
type Operation struct {
	OperationIdentifier OperationIdentifier `json:"operation_identifier"`
	Type                string              `json:"type"`
	Status              *string             `json:"status,omitempty"`
	Account             *AccountIdentifier  `json:"account,omitempty"`
	Amount              *Amount             `json:"amount,omitempty"`
	CoinChange          *CoinChange         `json:"coin_change,omitempty"`
}

// OperationStatus declares a status string and whether it is final.
type OperationStatus struct {
	Status     string `json:"status"`
	Successful bool   `json:"successful"`
}

// PublicKey is a hex-encoded compressed public key.
type PublicKey struct {
	HexBytes  string `json:"hex_bytes"`
	CurveType string `json:"curve_type"`
}

// SigningPayload is a message a signer must sign offline.
type SigningPayload struct {
	AccountIdentifier *AccountIdentifier `json:"account_identifier,omitempty"`
	HexBytes          string             `json:"hex_bytes"`
	SignatureType     string             `json:"signature_type,omitempty"`
}

// Signature is a client-produced signature over a SigningPayload.
type Signature struct {
	SigningPayload SigningPayload `json:"signing_payload"`
	PublicKey      PublicKey      `json:"public_key"`
	SignatureType  string         `json:"signature_type"`
	HexBytes       string         `json:"hex_bytes"`
}

// BlockIdentifier names a block by index and hash.
type BlockIdentifier struct {
	Index int64  `json:"index"`
	Hash  string `json:"hash"`
}

// PartialBlockIdentifier selects a block by index, hash, or both.
type PartialBlockIdentifier struct {
	Index *int64  `json:"index,omitempty"`
	Hash  *string `json:"hash,omitempty"`
}

// TransactionIdentifier holds a hex transaction id.
type TransactionIdentifier struct {
	Hash string `json:"hash"`
}

// Transaction is a confirmed transaction with its operations.
type Transaction struct {
	TransactionIdentifier TransactionIdentifier `json:"transaction_identifier"`
	Operations            []Operation           `json:"operations"`
}

// Block is a ledger milestone with its transactions.
type Block struct {
	BlockIdentifier       BlockIdentifier `json:"block_identifier"`
	ParentBlockIdentifier BlockIdentifier `json:"parent_block_identifier"`
	Timestamp             int64           `json:"timestamp"`
	Transactions          []Transaction   `json:"transactions"`
}

// Peer is a node peer.
type Peer struct {
	PeerID   string                 `json:"peer_id"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Version reports the API and node versions.
type Version struct {
	RosettaVersion    string `json:"rosetta_version"`
	NodeVersion       string `json:"node_version"`
	MiddlewareVersion string `json:"middleware_version,omitempty"`
}

// Allow lists what the gateway supports.
type Allow struct {
	OperationStatuses       []OperationStatus `json:"operation_statuses"`
	OperationTypes          []string          `json:"operation_types"`
	Errors                  []*Error          `json:"errors"`
	HistoricalBalanceLookup bool              `json:"historical_balance_lookup"`
	MempoolCoins            bool              `json:"mempool_coins"`
}

// SyncStatus reports node synchronization progress.
type SyncStatus struct {
	CurrentIndex int64 `json:"current_index"`
	Synced       bool  `json:"synced"`
}
