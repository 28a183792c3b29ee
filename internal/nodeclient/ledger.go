package nodeclient

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/internal/ledger"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Block is a decoded block.
type Block struct {
	Index        uint64
	Hash         types.Hash
	ParentHash   types.Hash
	Timestamp    int64
	Transactions []*tx.Transaction
}

// Info returns the node's chain summary.
func (c *Client) Info(ctx context.Context) (*InfoResult, error) {
	var info InfoResult
	if err := c.Call(ctx, "chain_getInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// LedgerIndex returns the current ledger index.
func (c *Client) LedgerIndex(ctx context.Context) (uint64, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return 0, err
	}
	return info.LedgerIndex, nil
}

// Output returns the state of one output.
func (c *Client) Output(ctx context.Context, id types.OutputID) (*ledger.Output, error) {
	var res OutputResult
	if err := c.Call(ctx, "ledger_getOutput", OutputParam{OutputID: id.String()}, &res); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ledger.ErrOutputNotFound, id)
		}
		return nil, err
	}
	return convertOutput(res)
}

// OutputsByAddress returns the unspent outputs owned by address and the
// ledger index they were read at.
func (c *Client) OutputsByAddress(ctx context.Context, address string) ([]*ledger.Output, uint64, error) {
	var res OutputsResult
	if err := c.Call(ctx, "ledger_getOutputsByAddress", AddressParam{Address: address}, &res); err != nil {
		return nil, 0, err
	}
	outs := make([]*ledger.Output, 0, len(res.Outputs))
	for _, r := range res.Outputs {
		o, err := convertOutput(r)
		if err != nil {
			return nil, 0, err
		}
		outs = append(outs, o)
	}
	return outs, res.LedgerIndex, nil
}

// BlockByIndex fetches a block by ledger index.
func (c *Client) BlockByIndex(ctx context.Context, index uint64) (*Block, error) {
	return c.block(ctx, "chain_getBlockByIndex", IndexParam{Index: index})
}

// BlockByHash fetches a block by hash.
func (c *Client) BlockByHash(ctx context.Context, hash types.Hash) (*Block, error) {
	return c.block(ctx, "chain_getBlockByHash", HashParam{Hash: hash.String()})
}

func (c *Client) block(ctx context.Context, method string, params interface{}) (*Block, error) {
	var res BlockResult
	if err := c.Call(ctx, method, params, &res); err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %v", rosetta.ErrBlockNotFound, err)
		}
		return nil, err
	}

	b := &Block{Index: res.Index, Timestamp: res.Timestamp}
	var err error
	if b.Hash, err = types.HexToHash(res.Hash); err != nil {
		return nil, fmt.Errorf("%w: block hash: %v", rosetta.ErrNodeUnavailable, err)
	}
	if res.ParentHash != "" {
		if b.ParentHash, err = types.HexToHash(res.ParentHash); err != nil {
			return nil, fmt.Errorf("%w: parent hash: %v", rosetta.ErrNodeUnavailable, err)
		}
	}
	for i, s := range res.Transactions {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d tx %d: %v", rosetta.ErrNodeUnavailable, res.Index, i, err)
		}
		t, err := tx.DecodeTransaction(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: block %d tx %d: %v", rosetta.ErrNodeUnavailable, res.Index, i, err)
		}
		b.Transactions = append(b.Transactions, t)
	}
	return b, nil
}

// Peers returns the node's connected peers.
func (c *Client) Peers(ctx context.Context) ([]PeerResult, error) {
	var res PeersResult
	if err := c.Call(ctx, "net_getPeerInfo", nil, &res); err != nil {
		return nil, err
	}
	return res.Peers, nil
}

// Submit broadcasts a signed transaction and returns its id as reported by
// the node.
func (c *Client) Submit(ctx context.Context, t *tx.Transaction) (string, error) {
	var res SubmitResult
	if err := c.Call(ctx, "tx_submit", SubmitParam{Transaction: hex.EncodeToString(t.Bytes())}, &res); err != nil {
		return "", err
	}
	return res.TxID, nil
}

func convertOutput(r OutputResult) (*ledger.Output, error) {
	id, err := types.ParseOutputID(r.OutputID)
	if err != nil {
		return nil, fmt.Errorf("%w: output id: %v", rosetta.ErrNodeUnavailable, err)
	}
	_, addr, err := types.DecodeAddress(r.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: output %s address: %v", rosetta.ErrNodeUnavailable, id, err)
	}
	t := tx.OutputType(r.Type)
	if !t.Valid() {
		return nil, fmt.Errorf("%w: output %s: %v", rosetta.ErrNodeUnavailable, id, tx.ErrUnknownOutput)
	}
	return &ledger.Output{
		ID:          id,
		Address:     addr,
		Type:        t,
		Amount:      r.Amount,
		Spent:       r.Spent,
		LedgerIndex: r.LedgerIndex,
	}, nil
}
