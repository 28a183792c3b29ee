package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/internal/ledger"
	"github.com/Klingon-tech/klingnet-rosetta/internal/log"
	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

func (s *Server) constructionDerive(ctx context.Context, req *rosetta.ConstructionDeriveRequest) (*rosetta.ConstructionDeriveResponse, error) {
	if err := s.checkNetwork(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	addr, err := construction.DeriveAddress(s.params, req.PublicKey)
	if err != nil {
		return nil, err
	}
	return &rosetta.ConstructionDeriveResponse{AccountIdentifier: rosetta.AccountIdentifier{Address: addr}}, nil
}

// constructionPreprocess builds the canonical essence and hands it to the
// metadata step with an empty metadata cache.
func (s *Server) constructionPreprocess(ctx context.Context, req *rosetta.ConstructionPreprocessRequest) (*rosetta.ConstructionPreprocessResponse, error) {
	if err := s.checkNetwork(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	env, _, err := construction.Canonicalize(s.params, req.Operations, nil)
	if err != nil {
		return nil, err
	}
	env.InputsMetadata = construction.InputsMetadata{}
	unsigned, err := construction.EncodeUnsigned(env)
	if err != nil {
		return nil, err
	}
	opts := construction.Options{UnsignedTransaction: unsigned}
	return &rosetta.ConstructionPreprocessResponse{
		Options:            opts.Map(),
		RequiredPublicKeys: construction.RequiredAccounts(req.Operations),
	}, nil
}

// constructionMetadata resolves every spent output named by the prepared
// essence into the metadata cache.
func (s *Server) constructionMetadata(ctx context.Context, req *rosetta.ConstructionMetadataRequest) (*rosetta.ConstructionMetadataResponse, error) {
	if err := s.requireOnline(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	opts, err := construction.DecodeOptions("options", req.Options)
	if err != nil {
		return nil, err
	}
	env, err := construction.DecodeUnsigned(opts.UnsignedTransaction)
	if err != nil {
		return nil, err
	}

	ids := make([]types.OutputID, len(env.Essence.Inputs))
	for i, in := range env.Essence.Inputs {
		ids[i] = in.OutputID
	}
	env.InputsMetadata, err = ledger.Resolve(ctx, s.node, s.params.HRP, ids, s.concurrency)
	if err != nil {
		return nil, err
	}

	unsigned, err := construction.EncodeUnsigned(env)
	if err != nil {
		return nil, err
	}
	log.Construction.Debug().Int("inputs", len(ids)).Msg("Resolved construction inputs")
	opts.UnsignedTransaction = unsigned
	return &rosetta.ConstructionMetadataResponse{Metadata: opts.Map()}, nil
}

// constructionPayloads rebuilds the essence from the operations, checks it
// against the prepared one, and returns the signing payloads.
func (s *Server) constructionPayloads(ctx context.Context, req *rosetta.ConstructionPayloadsRequest) (*rosetta.ConstructionPayloadsResponse, error) {
	if err := s.checkNetwork(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	opts, err := construction.DecodeOptions("metadata", req.Metadata)
	if err != nil {
		return nil, err
	}
	prepared, err := construction.DecodeUnsigned(opts.UnsignedTransaction)
	if err != nil {
		return nil, err
	}
	meta := prepared.InputsMetadata
	if meta == nil {
		meta = construction.InputsMetadata{}
	}

	env, hash, err := construction.Canonicalize(s.params, req.Operations, meta)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(env.Essence.Bytes(), prepared.Essence.Bytes()) {
		return nil, rosetta.NonRetriable("operations", construction.ErrEssenceMismatch)
	}

	payloads, err := construction.SigningPayloads(s.params, env)
	if err != nil {
		return nil, err
	}
	unsigned, err := construction.EncodeUnsigned(env)
	if err != nil {
		return nil, err
	}
	log.Construction.Debug().
		Str("signing_hash", hash.String()).
		Int("payloads", len(payloads)).
		Msg("Built signing payloads")
	return &rosetta.ConstructionPayloadsResponse{UnsignedTransaction: unsigned, Payloads: payloads}, nil
}

func (s *Server) constructionCombine(ctx context.Context, req *rosetta.ConstructionCombineRequest) (*rosetta.ConstructionCombineResponse, error) {
	if err := s.checkNetwork(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	env, err := construction.DecodeUnsigned(req.UnsignedTransaction)
	if err != nil {
		return nil, err
	}
	signed, err := construction.Assemble(s.params, env, req.Signatures)
	if err != nil {
		return nil, err
	}
	out, err := construction.EncodeSigned(signed)
	if err != nil {
		return nil, err
	}
	return &rosetta.ConstructionCombineResponse{SignedTransaction: out}, nil
}

func (s *Server) constructionHash(ctx context.Context, req *rosetta.ConstructionHashRequest) (*rosetta.TransactionIdentifierResponse, error) {
	if err := s.checkNetwork(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	env, err := construction.DecodeSigned(req.SignedTransaction)
	if err != nil {
		return nil, err
	}
	return &rosetta.TransactionIdentifierResponse{
		TransactionIdentifier: rosetta.TransactionIdentifier{Hash: env.Transaction.ID().String()},
	}, nil
}

// constructionParse projects a construction payload. It is unconfirmed, so
// operations carry no status.
func (s *Server) constructionParse(ctx context.Context, req *rosetta.ConstructionParseRequest) (*rosetta.ConstructionParseResponse, error) {
	if err := s.checkNetwork(req.NetworkIdentifier); err != nil {
		return nil, err
	}

	if req.Signed {
		env, err := construction.DecodeSigned(req.Transaction)
		if err != nil {
			return nil, err
		}
		ops, signers, err := construction.ProjectSigned(s.params, env, false)
		if err != nil {
			return nil, err
		}
		return &rosetta.ConstructionParseResponse{Operations: ops, AccountIdentifierSigners: signers}, nil
	}

	env, err := construction.DecodeUnsigned(req.Transaction)
	if err != nil {
		return nil, err
	}
	ops, err := construction.ProjectUnsigned(s.params, env, false)
	if err != nil {
		return nil, err
	}
	return &rosetta.ConstructionParseResponse{Operations: ops}, nil
}

func (s *Server) constructionSubmit(ctx context.Context, req *rosetta.ConstructionSubmitRequest) (*rosetta.TransactionIdentifierResponse, error) {
	if err := s.requireOnline(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	env, err := construction.DecodeSigned(req.SignedTransaction)
	if err != nil {
		return nil, err
	}
	if err := env.Transaction.VerifySignatures(); err != nil {
		return nil, rosetta.NonRetriable("signed_transaction", err)
	}

	id := env.Transaction.ID().String()
	nodeID, err := s.node.Submit(ctx, env.Transaction)
	if err != nil {
		var rpcErr *nodeclient.RPCError
		if errors.As(err, &rpcErr) {
			return nil, rosetta.NonRetriable("signed_transaction", fmt.Errorf("%w: %v", ErrSubmitRejected, err))
		}
		return nil, err
	}
	if nodeID != id {
		s.logger.Warn().Str("tx", id).Str("node_tx", nodeID).Msg("Node reported a different transaction id")
	}
	log.Construction.Info().Str("tx", id).Int("inputs", len(env.Transaction.Essence.Inputs)).Msg("Transaction submitted")
	return &rosetta.TransactionIdentifierResponse{
		TransactionIdentifier: rosetta.TransactionIdentifier{Hash: id},
	}, nil
}
