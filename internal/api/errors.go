package api

import "errors"

// Request errors.
var (
	ErrMethod            = errors.New("only POST method is allowed")
	ErrRequestBody       = errors.New("malformed request body")
	ErrBodyTooLarge      = errors.New("request body too large")
	ErrHistoricalBalance = errors.New("historical balance lookup is not supported")
	ErrMempoolCoins      = errors.New("mempool coins are not supported")
	ErrBlockIdentifier   = errors.New("block identifier index and hash disagree")
	ErrBlockHash         = errors.New("malformed block hash")
	ErrBlockIndex        = errors.New("block index must not be negative")
	ErrSubmitRejected    = errors.New("node rejected the transaction")
)
