package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/internal/ledger"
	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// unspentOf reads the outputs of account consistently with one ledger
// index and returns them with the identifier of that ledger state.
func (s *Server) unspentOf(ctx context.Context, account rosetta.AccountIdentifier) ([]*ledger.Output, rosetta.BlockIdentifier, error) {
	if _, err := types.DecodeAddressHRP(account.Address, s.params.HRP); err != nil {
		return nil, rosetta.BlockIdentifier{}, rosetta.NonRetriable("account_identifier.address",
			fmt.Errorf("%w: %v", construction.ErrAddress, err))
	}

	outs, index, err := ledger.ReadConsistent(ctx, s.node, s.attempts,
		func(ctx context.Context) ([]*ledger.Output, error) {
			outs, _, err := s.node.OutputsByAddress(ctx, account.Address)
			return outs, err
		})
	if err != nil {
		return nil, rosetta.BlockIdentifier{}, nodeError(err)
	}

	// The block at a fixed index never changes, so its hash can be read
	// after the consistent section.
	b, err := s.node.BlockByIndex(ctx, index)
	if err != nil {
		return nil, rosetta.BlockIdentifier{}, nodeError(err)
	}
	return outs, rosetta.BlockIdentifier{Index: int64(b.Index), Hash: b.Hash.String()}, nil
}

func (s *Server) accountBalance(ctx context.Context, req *rosetta.AccountBalanceRequest) (*rosetta.AccountBalanceResponse, error) {
	if err := s.requireOnline(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	if req.BlockIdentifier != nil && (req.BlockIdentifier.Index != nil || req.BlockIdentifier.Hash != nil) {
		return nil, rosetta.NonRetriable("block_identifier", ErrHistoricalBalance)
	}

	outs, block, err := s.unspentOf(ctx, req.AccountIdentifier)
	if err != nil {
		return nil, err
	}
	var total uint64
	for _, o := range outs {
		total += o.Amount
	}
	return &rosetta.AccountBalanceResponse{
		BlockIdentifier: block,
		Balances: []rosetta.Amount{
			{Value: strconv.FormatUint(total, 10), Currency: s.params.Currency},
		},
	}, nil
}

func (s *Server) accountCoins(ctx context.Context, req *rosetta.AccountCoinsRequest) (*rosetta.AccountCoinsResponse, error) {
	if err := s.requireOnline(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	if req.IncludeMempool {
		return nil, rosetta.NonRetriable("include_mempool", ErrMempoolCoins)
	}

	outs, block, err := s.unspentOf(ctx, req.AccountIdentifier)
	if err != nil {
		return nil, err
	}
	coins := make([]rosetta.Coin, 0, len(outs))
	for _, o := range outs {
		coins = append(coins, rosetta.Coin{
			CoinIdentifier: rosetta.CoinIdentifier{Identifier: o.ID.String()},
			Amount:         rosetta.Amount{Value: strconv.FormatUint(o.Amount, 10), Currency: s.params.Currency},
		})
	}
	return &rosetta.AccountCoinsResponse{BlockIdentifier: block, Coins: coins}, nil
}

func (s *Server) block(ctx context.Context, req *rosetta.BlockRequest) (*rosetta.BlockResponse, error) {
	if err := s.requireOnline(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	b, err := s.fetchBlock(ctx, req.BlockIdentifier)
	if err != nil {
		return nil, err
	}

	// Spent outputs of every transaction in the block, resolved in one batch.
	var ids []types.OutputID
	for _, t := range b.Transactions {
		for _, in := range t.Essence.Inputs {
			ids = append(ids, in.OutputID)
		}
	}
	meta, err := ledger.Describe(ctx, s.outputs, s.params.HRP, ids, s.concurrency)
	if err != nil {
		return nil, err
	}

	out := &rosetta.Block{
		BlockIdentifier:       rosetta.BlockIdentifier{Index: int64(b.Index), Hash: b.Hash.String()},
		ParentBlockIdentifier: rosetta.BlockIdentifier{Index: int64(b.Index) - 1, Hash: b.ParentHash.String()},
		Timestamp:             b.Timestamp,
		Transactions:          make([]rosetta.Transaction, 0, len(b.Transactions)),
	}
	if b.Index == 0 {
		out.ParentBlockIdentifier = out.BlockIdentifier
	}
	for i, t := range b.Transactions {
		ops, err := construction.ProjectTransaction(s.params, t, meta)
		if err != nil {
			return nil, fmt.Errorf("block %d transaction %d: %w", b.Index, i, err)
		}
		out.Transactions = append(out.Transactions, rosetta.Transaction{
			TransactionIdentifier: rosetta.TransactionIdentifier{Hash: t.ID().String()},
			Operations:            ops,
		})
	}
	return &rosetta.BlockResponse{Block: out}, nil
}

// fetchBlock selects a block by index, hash, or both. Without either it
// returns the current block. When both are given the hash must match the
// block at the index exactly.
func (s *Server) fetchBlock(ctx context.Context, id rosetta.PartialBlockIdentifier) (*nodeclient.Block, error) {
	if id.Index != nil && *id.Index < 0 {
		return nil, rosetta.NonRetriable("block_identifier.index", ErrBlockIndex)
	}

	var (
		b   *nodeclient.Block
		err error
	)
	switch {
	case id.Index != nil:
		b, err = s.node.BlockByIndex(ctx, uint64(*id.Index))
	case id.Hash != nil:
		hash, herr := types.HexToHash(*id.Hash)
		if herr != nil {
			return nil, rosetta.NonRetriable("block_identifier.hash", fmt.Errorf("%w: %v", ErrBlockHash, herr))
		}
		b, err = s.node.BlockByHash(ctx, hash)
	default:
		index, ierr := s.node.LedgerIndex(ctx)
		if ierr != nil {
			return nil, nodeError(ierr)
		}
		b, err = s.node.BlockByIndex(ctx, index)
	}
	if err != nil {
		return nil, nodeError(err)
	}

	if id.Index != nil && id.Hash != nil && b.Hash.String() != *id.Hash {
		return nil, rosetta.NonRetriable("block_identifier.hash",
			fmt.Errorf("%w: block %d has hash %s", ErrBlockIdentifier, b.Index, b.Hash))
	}
	return b, nil
}
