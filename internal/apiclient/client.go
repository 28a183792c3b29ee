// Package apiclient is an HTTP client for the Rosetta gateway.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
)

// maxResponseSize bounds a gateway response body.
const maxResponseSize = 16 << 20

// Client calls the endpoints of one gateway for one network.
type Client struct {
	baseURL string
	network rosetta.NetworkIdentifier
	http    *http.Client
}

// New creates a client for the gateway at baseURL serving network.
func New(baseURL string, network rosetta.NetworkIdentifier, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		network: network,
		http:    &http.Client{Timeout: timeout},
	}
}

// Network returns the network identifier sent with every request.
func (c *Client) Network() rosetta.NetworkIdentifier { return c.network }

// Post sends req to path and decodes the reply into resp. A gateway error
// is returned as *rosetta.Error.
func (c *Client) Post(ctx context.Context, path string, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch httpResp.StatusCode {
	case http.StatusOK:
	case http.StatusInternalServerError:
		var wire rosetta.Error
		if err := json.Unmarshal(data, &wire); err != nil {
			return fmt.Errorf("decode error response: %w", err)
		}
		return &wire
	default:
		return fmt.Errorf("%s: HTTP %d", path, httpResp.StatusCode)
	}

	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Derive returns the address of a public key.
func (c *Client) Derive(ctx context.Context, pk rosetta.PublicKey) (string, error) {
	var resp rosetta.ConstructionDeriveResponse
	err := c.Post(ctx, "/construction/derive", rosetta.ConstructionDeriveRequest{
		NetworkIdentifier: c.network,
		PublicKey:         pk,
	}, &resp)
	return resp.AccountIdentifier.Address, err
}

// Coins lists the unspent coins of address.
func (c *Client) Coins(ctx context.Context, address string) (*rosetta.AccountCoinsResponse, error) {
	var resp rosetta.AccountCoinsResponse
	if err := c.Post(ctx, "/account/coins", rosetta.AccountCoinsRequest{
		NetworkIdentifier: c.network,
		AccountIdentifier: rosetta.AccountIdentifier{Address: address},
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Balance returns the balance of address.
func (c *Client) Balance(ctx context.Context, address string) (*rosetta.AccountBalanceResponse, error) {
	var resp rosetta.AccountBalanceResponse
	if err := c.Post(ctx, "/account/balance", rosetta.AccountBalanceRequest{
		NetworkIdentifier: c.network,
		AccountIdentifier: rosetta.AccountIdentifier{Address: address},
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status returns the network status.
func (c *Client) Status(ctx context.Context) (*rosetta.NetworkStatusResponse, error) {
	var resp rosetta.NetworkStatusResponse
	if err := c.Post(ctx, "/network/status", rosetta.NetworkRequest{NetworkIdentifier: c.network}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Construct runs preprocess, metadata and payloads for ops and returns
// the unsigned transaction with its signing payloads.
func (c *Client) Construct(ctx context.Context, ops []rosetta.Operation) (*rosetta.ConstructionPayloadsResponse, error) {
	var pre rosetta.ConstructionPreprocessResponse
	if err := c.Post(ctx, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{
		NetworkIdentifier: c.network,
		Operations:        ops,
	}, &pre); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	var meta rosetta.ConstructionMetadataResponse
	if err := c.Post(ctx, "/construction/metadata", rosetta.ConstructionMetadataRequest{
		NetworkIdentifier: c.network,
		Options:           pre.Options,
	}, &meta); err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	var payloads rosetta.ConstructionPayloadsResponse
	if err := c.Post(ctx, "/construction/payloads", rosetta.ConstructionPayloadsRequest{
		NetworkIdentifier: c.network,
		Operations:        ops,
		Metadata:          meta.Metadata,
	}, &payloads); err != nil {
		return nil, fmt.Errorf("payloads: %w", err)
	}
	return &payloads, nil
}

// Combine attaches signatures to an unsigned transaction.
func (c *Client) Combine(ctx context.Context, unsigned string, sigs []rosetta.Signature) (string, error) {
	var resp rosetta.ConstructionCombineResponse
	err := c.Post(ctx, "/construction/combine", rosetta.ConstructionCombineRequest{
		NetworkIdentifier:   c.network,
		UnsignedTransaction: unsigned,
		Signatures:          sigs,
	}, &resp)
	return resp.SignedTransaction, err
}

// Parse decodes a transaction into operations.
func (c *Client) Parse(ctx context.Context, transaction string, signed bool) (*rosetta.ConstructionParseResponse, error) {
	var resp rosetta.ConstructionParseResponse
	if err := c.Post(ctx, "/construction/parse", rosetta.ConstructionParseRequest{
		NetworkIdentifier: c.network,
		Signed:            signed,
		Transaction:       transaction,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Hash returns the identifier of a signed transaction.
func (c *Client) Hash(ctx context.Context, signed string) (string, error) {
	var resp rosetta.TransactionIdentifierResponse
	err := c.Post(ctx, "/construction/hash", rosetta.ConstructionHashRequest{
		NetworkIdentifier: c.network,
		SignedTransaction: signed,
	}, &resp)
	return resp.TransactionIdentifier.Hash, err
}

// Submit broadcasts a signed transaction and returns its identifier.
func (c *Client) Submit(ctx context.Context, signed string) (string, error) {
	var resp rosetta.TransactionIdentifierResponse
	err := c.Post(ctx, "/construction/submit", rosetta.ConstructionSubmitRequest{
		NetworkIdentifier: c.network,
		SignedTransaction: signed,
	}, &resp)
	return resp.TransactionIdentifier.Hash, err
}
