// Package nodeclient is a JSON-RPC 2.0 client for the Klingnet ledger node.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/klingnet-rosetta/internal/log"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
)

// CodeNotFound is the node's error code for unknown objects.
const CodeNotFound = -32000

// maxResponseSize bounds the size of a node response body.
const maxResponseSize = 32 << 20

// Client is a JSON-RPC 2.0 HTTP client.
type Client struct {
	endpoint string
	http     *http.Client
	nextID   atomic.Int64
}

// New creates a client for the node at endpoint. A non-positive timeout
// selects 10 seconds.
func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      int64       `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// RPCError is returned when the node responds with an error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a node not-found error.
func IsNotFound(err error) bool {
	var rpcErr *RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == CodeNotFound
}

// Call invokes a JSON-RPC method and unmarshals the result into result,
// which may be nil. Transport and protocol failures wrap
// rosetta.ErrNodeUnavailable; error objects from the node are returned as
// *RPCError.
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	start := time.Now()
	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", rosetta.ErrNodeUnavailable, method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", rosetta.ErrNodeUnavailable, method, err)
	}

	var rpcResp response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("%w: decode %s response (HTTP %d): %v", rosetta.ErrNodeUnavailable, method, resp.StatusCode, err)
	}
	log.Node.Debug().
		Str("method", method).
		Dur("duration", time.Since(start)).
		Bool("error", rpcResp.Error != nil).
		Msg("RPC call")

	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: decode %s result: %v", rosetta.ErrNodeUnavailable, method, err)
		}
	}
	return nil
}
