// Package nodetest provides an in-memory Klingnet node speaking the node
// JSON-RPC dialect, for tests.
package nodetest

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      interface{}     `json:"id"`
}

type response struct {
	JSONRPC string               `json:"jsonrpc"`
	Result  interface{}          `json:"result,omitempty"`
	Error   *nodeclient.RPCError `json:"error,omitempty"`
	ID      interface{}          `json:"id"`
}

// Node is a fake ledger node. All fields are guarded by the node's lock;
// use the setter methods while the server is running.
type Node struct {
	mu        sync.Mutex
	info      nodeclient.InfoResult
	outputs   map[string]nodeclient.OutputResult
	blocks    []nodeclient.BlockResult
	peers     []nodeclient.PeerResult
	submitted []*tx.Transaction
	calls     map[string]int
	fail      map[string]*nodeclient.RPCError

	// OnCall runs before each dispatch, outside the lock.
	OnCall func(method string)

	server *httptest.Server
}

// New starts a fake node reporting the given network name.
func New(network string) *Node {
	n := &Node{
		info: nodeclient.InfoResult{
			Network: network,
			Version: "test",
			Synced:  true,
		},
		outputs: make(map[string]nodeclient.OutputResult),
		calls:   make(map[string]int),
		fail:    make(map[string]*nodeclient.RPCError),
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.handle))
	return n
}

// URL returns the endpoint of the node.
func (n *Node) URL() string { return n.server.URL }

// Close shuts the node down.
func (n *Node) Close() { n.server.Close() }

// SetLedgerIndex sets the reported ledger index.
func (n *Node) SetLedgerIndex(i uint64) {
	n.mu.Lock()
	n.info.LedgerIndex = i
	n.mu.Unlock()
}

// SetNetwork sets the reported network name.
func (n *Node) SetNetwork(name string) {
	n.mu.Lock()
	n.info.Network = name
	n.mu.Unlock()
}

// AddOutput registers an output owned by the bech32 address addr.
func (n *Node) AddOutput(id types.OutputID, addr string, typ tx.OutputType, amount uint64, spent bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outputs[id.String()] = nodeclient.OutputResult{
		OutputID: id.String(),
		Address:  addr,
		Type:     uint8(typ),
		Amount:   amount,
		Spent:    spent,
	}
}

// AddBlock appends a block containing txs and advances the ledger index to
// it. The block hash is derived from its index.
func (n *Node) AddBlock(timestamp int64, txs ...*tx.Transaction) nodeclient.BlockResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	b := nodeclient.BlockResult{
		Index:     uint64(len(n.blocks)),
		Hash:      BlockHash(uint64(len(n.blocks))).String(),
		Timestamp: timestamp,
	}
	if len(n.blocks) > 0 {
		b.ParentHash = n.blocks[len(n.blocks)-1].Hash
	}
	for _, t := range txs {
		b.Transactions = append(b.Transactions, hex.EncodeToString(t.Bytes()))
	}
	n.blocks = append(n.blocks, b)
	n.info.LedgerIndex = b.Index
	n.info.TipHash = b.Hash
	n.info.TipTimestamp = b.Timestamp
	n.info.GenesisHash = n.blocks[0].Hash
	return b
}

// BlockHash returns the hash the node assigns to the block at index.
func BlockHash(index uint64) types.Hash {
	var h types.Hash
	h[0] = 0xb1
	for i := 0; i < 8; i++ {
		h[types.HashSize-1-i] = byte(index >> (8 * i))
	}
	return h
}

// AddPeer registers a connected peer.
func (n *Node) AddPeer(p nodeclient.PeerResult) {
	n.mu.Lock()
	n.peers = append(n.peers, p)
	n.mu.Unlock()
}

// Fail makes method return the given error code until cleared with a zero
// code.
func (n *Node) Fail(method string, code int, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if code == 0 {
		delete(n.fail, method)
		return
	}
	n.fail[method] = &nodeclient.RPCError{Code: code, Message: msg}
}

// Submitted returns the transactions received through tx_submit.
func (n *Node) Submitted() []*tx.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*tx.Transaction(nil), n.submitted...)
}

// Calls returns how often method was invoked.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *Node) handle(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if n.OnCall != nil {
		n.OnCall(req.Method)
	}

	result, rpcErr := n.dispatch(&req)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response{JSONRPC: "2.0", Result: result, Error: rpcErr, ID: req.ID})
}

func notFound(format string, args ...interface{}) *nodeclient.RPCError {
	return &nodeclient.RPCError{Code: nodeclient.CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func invalidParams(err error) *nodeclient.RPCError {
	return &nodeclient.RPCError{Code: -32602, Message: err.Error()}
}

func (n *Node) dispatch(req *request) (interface{}, *nodeclient.RPCError) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[req.Method]++
	if e := n.fail[req.Method]; e != nil {
		return nil, e
	}

	switch req.Method {
	case "chain_getInfo":
		return n.info, nil

	case "ledger_getOutput":
		var p nodeclient.OutputParam
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, invalidParams(err)
		}
		o, ok := n.outputs[p.OutputID]
		if !ok {
			return nil, notFound("output %s not found", p.OutputID)
		}
		o.LedgerIndex = n.info.LedgerIndex
		return o, nil

	case "ledger_getOutputsByAddress":
		var p nodeclient.AddressParam
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, invalidParams(err)
		}
		res := nodeclient.OutputsResult{LedgerIndex: n.info.LedgerIndex, Outputs: []nodeclient.OutputResult{}}
		for _, o := range n.outputs {
			if o.Address == p.Address && !o.Spent {
				o.LedgerIndex = n.info.LedgerIndex
				res.Outputs = append(res.Outputs, o)
			}
		}
		sort.Slice(res.Outputs, func(i, j int) bool { return res.Outputs[i].OutputID < res.Outputs[j].OutputID })
		return res, nil

	case "chain_getBlockByIndex":
		var p nodeclient.IndexParam
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, invalidParams(err)
		}
		if p.Index >= uint64(len(n.blocks)) {
			return nil, notFound("block %d not found", p.Index)
		}
		return n.blocks[p.Index], nil

	case "chain_getBlockByHash":
		var p nodeclient.HashParam
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, invalidParams(err)
		}
		for _, b := range n.blocks {
			if b.Hash == p.Hash {
				return b, nil
			}
		}
		return nil, notFound("block %s not found", p.Hash)

	case "net_getPeerInfo":
		return nodeclient.PeersResult{Peers: append([]nodeclient.PeerResult{}, n.peers...)}, nil

	case "tx_submit":
		var p nodeclient.SubmitParam
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return nil, invalidParams(err)
		}
		raw, err := hex.DecodeString(p.Transaction)
		if err != nil {
			return nil, invalidParams(err)
		}
		t, err := tx.DecodeTransaction(raw)
		if err != nil {
			return nil, invalidParams(err)
		}
		if err := t.Validate(); err != nil {
			return nil, &nodeclient.RPCError{Code: -32001, Message: err.Error()}
		}
		n.submitted = append(n.submitted, t)
		return nodeclient.SubmitResult{TxID: t.ID().String()}, nil

	default:
		return nil, &nodeclient.RPCError{Code: -32601, Message: fmt.Sprintf("method %q not found", req.Method)}
	}
}
