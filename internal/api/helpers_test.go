package api

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	klog "github.com/Klingon-tech/klingnet-rosetta/internal/log"
	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient"
	"github.com/Klingon-tech/klingnet-rosetta/internal/nodeclient/nodetest"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

var testnet = rosetta.NetworkIdentifier{Blockchain: Blockchain, Network: "testnet"}

// testEnv holds a gateway wired to a fake node.
type testEnv struct {
	node   *nodetest.Node
	server *Server
	url    string
}

func setupTestEnv(t *testing.T, modify ...func(*config.Config)) *testEnv {
	t.Helper()
	klog.SetOutput(bytes.NewBuffer(nil), "error")

	node := nodetest.New("testnet")
	t.Cleanup(node.Close)
	node.AddBlock(1_700_000_000_000)

	cfg := config.Default(config.Testnet)
	cfg.API.AllowedIPs = nil
	for _, m := range modify {
		m(cfg)
	}

	var backend Node
	if cfg.Online() {
		backend = nodeclient.New(node.URL(), 5*time.Second)
	}
	srv := New(cfg, backend, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return &testEnv{node: node, server: srv, url: ts.URL}
}

// post sends req to path. On success the body is decoded into resp and
// nil is returned; on failure the wire error is returned.
func (e *testEnv) post(t *testing.T, path string, req, resp interface{}) *rosetta.Error {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	httpResp, err := http.Post(e.url+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		if httpResp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("POST %s: HTTP %d", path, httpResp.StatusCode)
		}
		var wire rosetta.Error
		if err := json.NewDecoder(httpResp.Body).Decode(&wire); err != nil {
			t.Fatalf("decode error body: %v", err)
		}
		return &wire
	}
	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		t.Fatalf("decode %s response: %v", path, err)
	}
	return nil
}

// mustPost is post that fails the test on a wire error.
func (e *testEnv) mustPost(t *testing.T, path string, req, resp interface{}) {
	t.Helper()
	if wire := e.post(t, path, req, resp); wire != nil {
		t.Fatalf("POST %s: %s", path, wire.Error())
	}
}

// wantError asserts a wire error with the given code.
func wantError(t *testing.T, wire *rosetta.Error, code int32) {
	t.Helper()
	if wire == nil {
		t.Fatalf("expected error code %d, got success", code)
	}
	if wire.Code != code {
		t.Fatalf("error code = %d (%s), want %d", wire.Code, wire.Description, code)
	}
}

type account struct {
	key  *crypto.PrivateKey
	addr string
}

func newAccount(t *testing.T) account {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	return account{key: key, addr: crypto.AddressFromPubKey(key.PublicKey()).Encode(types.TestnetHRP)}
}

func (a account) publicKey() rosetta.PublicKey {
	return rosetta.PublicKey{HexBytes: hex.EncodeToString(a.key.PublicKey()), CurveType: rosetta.CurveSecp256k1}
}

// sign signs a payload the way an offline signer would.
func (a account) sign(t *testing.T, p rosetta.SigningPayload) rosetta.Signature {
	t.Helper()
	msg, err := hex.DecodeString(p.HexBytes)
	if err != nil {
		t.Fatalf("payload hex: %v", err)
	}
	sig, err := a.key.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	return rosetta.Signature{
		SigningPayload: p,
		PublicKey:      a.publicKey(),
		SignatureType:  rosetta.SignatureSchnorr,
		HexBytes:       hex.EncodeToString(sig),
	}
}

func outputID(b byte, index uint16) types.OutputID {
	return types.OutputID{TxID: types.Hash{b}, Index: index}
}

func amount(v string) *rosetta.Amount {
	return &rosetta.Amount{Value: v, Currency: rosetta.Currency{Symbol: "KGX", Decimals: 12}}
}

func inputOp(index int, id types.OutputID, addr, value string) rosetta.Operation {
	return rosetta.Operation{
		OperationIdentifier: rosetta.OperationIdentifier{Index: int64(index)},
		Type:                rosetta.OpTypeInput,
		Account:             &rosetta.AccountIdentifier{Address: addr},
		Amount:              amount(value),
		CoinChange: &rosetta.CoinChange{
			CoinIdentifier: rosetta.CoinIdentifier{Identifier: id.String()},
			CoinAction:     rosetta.CoinSpent,
		},
	}
}

func outputOp(index int, addr, value string) rosetta.Operation {
	return rosetta.Operation{
		OperationIdentifier: rosetta.OperationIdentifier{Index: int64(index)},
		Type:                rosetta.OpTypeStandardOutput,
		Account:             &rosetta.AccountIdentifier{Address: addr},
		Amount:              amount(value),
	}
}

// fund registers an unspent output of owner on the fake node.
func (e *testEnv) fund(id types.OutputID, owner account, value uint64) {
	e.node.AddOutput(id, owner.addr, tx.OutputSigLockedSingle, value, false)
}
