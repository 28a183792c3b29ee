// Package api implements the Rosetta HTTP API: the construction flow
// orchestrator and the data endpoints backed by the ledger node.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/internal/ledger"
	"github.com/Klingon-tech/klingnet-rosetta/internal/log"
	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// Blockchain is the blockchain name of every served network identifier.
const Blockchain = "Klingnet"

// Node is the ledger node as used by the API.
type Node interface {
	ledger.Source
	ledger.Indexer
	Info(ctx context.Context) (*nodeclient.InfoResult, error)
	OutputsByAddress(ctx context.Context, address string) ([]*ledger.Output, uint64, error)
	BlockByIndex(ctx context.Context, index uint64) (*nodeclient.Block, error)
	BlockByHash(ctx context.Context, hash types.Hash) (*nodeclient.Block, error)
	Peers(ctx context.Context) ([]nodeclient.PeerResult, error)
	Submit(ctx context.Context, t *tx.Transaction) (string, error)
}

// handler serves one endpoint from a raw request body.
type handler func(ctx context.Context, body []byte) (interface{}, error)

// Server is the Rosetta HTTP server.
type Server struct {
	addr        string
	network     rosetta.NetworkIdentifier
	params      construction.Params
	online      bool
	node        Node          // nil when offline
	outputs     ledger.Source // node, optionally behind the spent-output cache
	attempts    int
	concurrency int
	routes      map[string]handler
	server      *http.Server
	logger      zerolog.Logger
	ln          net.Listener
	allowedNets []*net.IPNet // Empty = allow all.
	corsOrigins []string     // Empty = no CORS headers.
}

// New creates a Rosetta server for cfg. node may be nil in offline mode.
// outputs is the output source used for block projection; nil selects node.
func New(cfg *config.Config, node Node, outputs ledger.Source) *Server {
	if outputs == nil && node != nil {
		outputs = node
	}
	s := &Server{
		addr:        cfg.ListenAddr(),
		network:     rosetta.NetworkIdentifier{Blockchain: Blockchain, Network: string(cfg.Network)},
		params:      cfg.Params(),
		online:      cfg.Online() && node != nil,
		node:        node,
		outputs:     outputs,
		attempts:    cfg.Ledger.Attempts,
		concurrency: cfg.Ledger.Concurrency,
		logger:      log.API.With().Str("network", string(cfg.Network)).Logger(),
		allowedNets: parseAllowedIPs(cfg.API.AllowedIPs),
		corsOrigins: cfg.API.CORSOrigins,
	}

	s.routes = map[string]handler{
		"/network/list":    route(s.networkList),
		"/network/options": route(s.networkOptions),
		"/network/status":  route(s.networkStatus),
		"/account/balance": route(s.accountBalance),
		"/account/coins":   route(s.accountCoins),
		"/block":           route(s.block),

		"/construction/derive":     route(s.constructionDerive),
		"/construction/preprocess": route(s.constructionPreprocess),
		"/construction/metadata":   route(s.constructionMetadata),
		"/construction/payloads":   route(s.constructionPayloads),
		"/construction/combine":    route(s.constructionCombine),
		"/construction/hash":       route(s.constructionHash),
		"/construction/parse":      route(s.constructionParse),
		"/construction/submit":     route(s.constructionSubmit),
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

// route adapts a typed endpoint to a handler.
func route[Req, Resp any](fn func(context.Context, *Req) (*Resp, error)) handler {
	return func(ctx context.Context, body []byte) (interface{}, error) {
		var req Req
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, rosetta.NonRetriable("body", fmt.Errorf("%w: %v", ErrRequestBody, err))
		}
		return fn(ctx, &req)
	}
}

// parseAllowedIPs converts string IP/CIDR entries into net.IPNet.
func parseAllowedIPs(entries []string) []*net.IPNet {
	var nets []*net.IPNet
	for _, entry := range entries {
		_, ipNet, err := net.ParseCIDR(entry)
		if err == nil {
			nets = append(nets, ipNet)
			continue
		}
		// Try as a single IP (add /32 or /128).
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return nets
}

// Start begins listening and serving in a background goroutine.
// It returns immediately after the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.ln = ln

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	s.logger.Info().Str("addr", s.Addr()).Bool("online", s.online).Msg("Rosetta API listening")
	return nil
}

// Addr returns the listener address (useful when bound to :0).
func (s *Server) Addr() string {
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// ServeHTTP is the main HTTP handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// IP filtering.
	if len(s.allowedNets) > 0 {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ip := net.ParseIP(host)
		if ip == nil || !s.isIPAllowed(ip) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	s.setCORSHeaders(w, r)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h, ok := s.routes[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		s.writeError(w, r, start, rosetta.NonRetriable("method", ErrMethod))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		s.writeError(w, r, start, rosetta.NonRetriable("body", fmt.Errorf("%w: %v", ErrRequestBody, err)))
		return
	}
	if len(body) > maxBodySize {
		s.writeError(w, r, start, rosetta.NonRetriable("body", ErrBodyTooLarge))
		return
	}

	result, err := h(r.Context(), body)
	if err != nil {
		s.writeError(w, r, start, err)
		return
	}

	s.logger.Debug().
		Str("path", r.URL.Path).
		Dur("duration", time.Since(start)).
		Msg("Request served")
	writeJSON(w, http.StatusOK, result)
}

// writeError maps err onto the wire error catalog and writes it with
// status 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, start time.Time, err error) {
	wire := rosetta.ToError(err)
	ev := s.logger.Warn()
	if wire.Code == rosetta.CodeInternal {
		ev = s.logger.Error()
	}
	ev.Err(err).
		Str("path", r.URL.Path).
		Int32("code", wire.Code).
		Bool("retriable", wire.Retriable).
		Dur("duration", time.Since(start)).
		Msg("Request failed")
	writeJSON(w, http.StatusInternalServerError, wire)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// isIPAllowed checks if the IP is in the allowed networks list.
func (s *Server) isIPAllowed(ip net.IP) bool {
	for _, n := range s.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// setCORSHeaders adds CORS headers based on the configured origins.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.corsOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return
	}

	allowed := false
	for _, o := range s.corsOrigins {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			allowed = true
			break
		}
		if o == origin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			allowed = true
			break
		}
	}
	if !allowed {
		return
	}
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Max-Age", "86400")
}

// checkNetwork enforces that a request targets the served network.
func (s *Server) checkNetwork(ni rosetta.NetworkIdentifier) error {
	if ni != s.network {
		return rosetta.NonRetriable("network_identifier",
			fmt.Errorf("%w: got %s/%s, serving %s/%s", rosetta.ErrWrongNetwork,
				ni.Blockchain, ni.Network, s.network.Blockchain, s.network.Network))
	}
	return nil
}

// requireOnline checks the network and that the node is reachable in this
// mode.
func (s *Server) requireOnline(ni rosetta.NetworkIdentifier) error {
	if err := s.checkNetwork(ni); err != nil {
		return err
	}
	if !s.online {
		return rosetta.ErrOffline
	}
	return nil
}

// nodeError classifies an error object returned by the node. Transport
// errors already carry their class.
func nodeError(err error) error {
	var rpcErr *nodeclient.RPCError
	if errors.As(err, &rpcErr) {
		return fmt.Errorf("%w: %v", rosetta.ErrNodeUnavailable, rpcErr)
	}
	return err
}
