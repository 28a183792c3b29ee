package api

import (
	"context"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
)

func (s *Server) networkList(ctx context.Context, req *rosetta.MetadataRequest) (*rosetta.NetworkListResponse, error) {
	return &rosetta.NetworkListResponse{
		NetworkIdentifiers: []rosetta.NetworkIdentifier{s.network},
	}, nil
}

func (s *Server) networkOptions(ctx context.Context, req *rosetta.NetworkRequest) (*rosetta.NetworkOptionsResponse, error) {
	if err := s.checkNetwork(req.NetworkIdentifier); err != nil {
		return nil, err
	}

	nodeVersion := "unknown"
	if s.online {
		info, err := s.node.Info(ctx)
		if err != nil {
			return nil, nodeError(err)
		}
		nodeVersion = info.Version
	}

	return &rosetta.NetworkOptionsResponse{
		Version: rosetta.Version{
			RosettaVersion:    rosetta.APIVersion,
			NodeVersion:       nodeVersion,
			MiddlewareVersion: config.Version,
		},
		Allow: rosetta.Allow{
			OperationStatuses: []rosetta.OperationStatus{
				{Status: rosetta.StatusSuccess, Successful: true},
			},
			OperationTypes:          rosetta.OperationTypes,
			Errors:                  rosetta.Catalog,
			HistoricalBalanceLookup: false,
			MempoolCoins:            false,
		},
	}, nil
}

func (s *Server) networkStatus(ctx context.Context, req *rosetta.NetworkRequest) (*rosetta.NetworkStatusResponse, error) {
	if err := s.requireOnline(req.NetworkIdentifier); err != nil {
		return nil, err
	}
	info, err := s.node.Info(ctx)
	if err != nil {
		return nil, nodeError(err)
	}
	peers, err := s.node.Peers(ctx)
	if err != nil {
		return nil, nodeError(err)
	}

	resp := &rosetta.NetworkStatusResponse{
		CurrentBlockIdentifier: rosetta.BlockIdentifier{Index: int64(info.LedgerIndex), Hash: info.TipHash},
		CurrentBlockTimestamp:  info.TipTimestamp,
		GenesisBlockIdentifier: rosetta.BlockIdentifier{Index: 0, Hash: info.GenesisHash},
		SyncStatus:             &rosetta.SyncStatus{CurrentIndex: int64(info.LedgerIndex), Synced: info.Synced},
		Peers:                  make([]rosetta.Peer, 0, len(peers)),
	}
	for _, p := range peers {
		peer := rosetta.Peer{PeerID: p.ID}
		if len(p.Addresses) > 0 || p.Direction != "" {
			peer.Metadata = map[string]interface{}{}
			if len(p.Addresses) > 0 {
				peer.Metadata["addresses"] = p.Addresses
			}
			if p.Direction != "" {
				peer.Metadata["direction"] = p.Direction
			}
		}
		resp.Peers = append(resp.Peers, peer)
	}
	return resp, nil
}
