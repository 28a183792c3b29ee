package api

import (
	"testing"

	"github.com/Klingon-tech/klingnet-rosetta/config"
	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// flow runs preprocess, metadata, and payloads for ops.
func (e *testEnv) flow(t *testing.T, ops []rosetta.Operation) rosetta.ConstructionPayloadsResponse {
	t.Helper()
	var pre rosetta.ConstructionPreprocessResponse
	e.mustPost(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{
		NetworkIdentifier: testnet,
		Operations:        ops,
	}, &pre)

	var meta rosetta.ConstructionMetadataResponse
	e.mustPost(t, "/construction/metadata", rosetta.ConstructionMetadataRequest{
		NetworkIdentifier: testnet,
		Options:           pre.Options,
	}, &meta)

	var payloads rosetta.ConstructionPayloadsResponse
	e.mustPost(t, "/construction/payloads", rosetta.ConstructionPayloadsRequest{
		NetworkIdentifier: testnet,
		Operations:        ops,
		Metadata:          meta.Metadata,
	}, &payloads)
	return payloads
}

func TestConstruction_FullFlow(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob := newAccount(t), newAccount(t)
	env.fund(outputID(0x01, 0), alice, 10_000_000)
	env.fund(outputID(0x02, 3), alice, 5_000_000)

	ops := []rosetta.Operation{
		inputOp(0, outputID(0x02, 3), alice.addr, "-5000000"),
		inputOp(1, outputID(0x01, 0), alice.addr, "-10000000"),
		outputOp(2, bob.addr, "15000000"),
	}

	// Derive.
	var derived rosetta.ConstructionDeriveResponse
	env.mustPost(t, "/construction/derive", rosetta.ConstructionDeriveRequest{
		NetworkIdentifier: testnet,
		PublicKey:         alice.publicKey(),
	}, &derived)
	if derived.AccountIdentifier.Address != alice.addr {
		t.Fatalf("derive = %s, want %s", derived.AccountIdentifier.Address, alice.addr)
	}

	// Required public keys come from preprocess.
	var pre rosetta.ConstructionPreprocessResponse
	env.mustPost(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{
		NetworkIdentifier: testnet,
		Operations:        ops,
	}, &pre)
	if len(pre.RequiredPublicKeys) != 1 || pre.RequiredPublicKeys[0].Address != alice.addr {
		t.Errorf("required_public_keys = %+v", pre.RequiredPublicKeys)
	}

	payloads := env.flow(t, ops)
	if len(payloads.Payloads) != 1 {
		t.Fatalf("got %d payloads, want 1 for a single owner", len(payloads.Payloads))
	}
	if payloads.Payloads[0].AccountIdentifier.Address != alice.addr {
		t.Errorf("payload account = %s", payloads.Payloads[0].AccountIdentifier.Address)
	}

	// Parse unsigned: operations come back in canonical order without status.
	var parsed rosetta.ConstructionParseResponse
	env.mustPost(t, "/construction/parse", rosetta.ConstructionParseRequest{
		NetworkIdentifier: testnet,
		Signed:            false,
		Transaction:       payloads.UnsignedTransaction,
	}, &parsed)
	if len(parsed.Operations) != 3 {
		t.Fatalf("parsed %d operations, want 3", len(parsed.Operations))
	}
	for _, op := range parsed.Operations {
		if op.Status != nil {
			t.Errorf("operation %d has status on an unsigned parse", op.OperationIdentifier.Index)
		}
	}
	if parsed.Operations[2].Amount.Value != "15000000" || parsed.Operations[2].Account.Address != bob.addr {
		t.Errorf("output operation = %+v", parsed.Operations[2])
	}
	if len(parsed.AccountIdentifierSigners) != 0 {
		t.Error("unsigned parse should report no signers")
	}

	// Combine.
	var combined rosetta.ConstructionCombineResponse
	env.mustPost(t, "/construction/combine", rosetta.ConstructionCombineRequest{
		NetworkIdentifier:   testnet,
		UnsignedTransaction: payloads.UnsignedTransaction,
		Signatures:          []rosetta.Signature{alice.sign(t, payloads.Payloads[0])},
	}, &combined)

	// Parse signed.
	env.mustPost(t, "/construction/parse", rosetta.ConstructionParseRequest{
		NetworkIdentifier: testnet,
		Signed:            true,
		Transaction:       combined.SignedTransaction,
	}, &parsed)
	if len(parsed.AccountIdentifierSigners) != 1 || parsed.AccountIdentifierSigners[0].Address != alice.addr {
		t.Errorf("signers = %+v", parsed.AccountIdentifierSigners)
	}

	// Hash and submit agree.
	var hashed, submitted rosetta.TransactionIdentifierResponse
	env.mustPost(t, "/construction/hash", rosetta.ConstructionHashRequest{
		NetworkIdentifier: testnet,
		SignedTransaction: combined.SignedTransaction,
	}, &hashed)
	env.mustPost(t, "/construction/submit", rosetta.ConstructionSubmitRequest{
		NetworkIdentifier: testnet,
		SignedTransaction: combined.SignedTransaction,
	}, &submitted)
	if hashed.TransactionIdentifier.Hash != submitted.TransactionIdentifier.Hash {
		t.Errorf("hash %s != submitted %s", hashed.TransactionIdentifier.Hash, submitted.TransactionIdentifier.Hash)
	}

	got := env.node.Submitted()
	if len(got) != 1 {
		t.Fatalf("node received %d transactions", len(got))
	}
	unlocks := got[0].Unlocks
	if len(unlocks) != 2 || unlocks[0].Type != tx.UnlockSignature || unlocks[1].Type != tx.UnlockReference || unlocks[1].Reference != 0 {
		t.Errorf("unlocks = %+v, want [Signature, Reference(0)]", unlocks)
	}
	if got[0].ID().String() != submitted.TransactionIdentifier.Hash {
		t.Error("submitted id does not match node transaction")
	}
}

func TestConstruction_TwoSigners(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob, carol := newAccount(t), newAccount(t), newAccount(t)
	env.fund(outputID(0x01, 0), alice, 1_000_000)
	env.fund(outputID(0x02, 0), bob, 2_000_000)

	ops := []rosetta.Operation{
		inputOp(0, outputID(0x01, 0), alice.addr, "-1000000"),
		inputOp(1, outputID(0x02, 0), bob.addr, "-2000000"),
		outputOp(2, carol.addr, "3000000"),
	}
	payloads := env.flow(t, ops)
	if len(payloads.Payloads) != 2 {
		t.Fatalf("got %d payloads, want 2", len(payloads.Payloads))
	}

	signers := map[string]account{alice.addr: alice, bob.addr: bob}
	var sigs []rosetta.Signature
	// Signatures are matched by address, so their order does not matter.
	for i := len(payloads.Payloads) - 1; i >= 0; i-- {
		p := payloads.Payloads[i]
		sigs = append(sigs, signers[p.AccountIdentifier.Address].sign(t, p))
	}

	var combined rosetta.ConstructionCombineResponse
	env.mustPost(t, "/construction/combine", rosetta.ConstructionCombineRequest{
		NetworkIdentifier:   testnet,
		UnsignedTransaction: payloads.UnsignedTransaction,
		Signatures:          sigs,
	}, &combined)

	var submitted rosetta.TransactionIdentifierResponse
	env.mustPost(t, "/construction/submit", rosetta.ConstructionSubmitRequest{
		NetworkIdentifier: testnet,
		SignedTransaction: combined.SignedTransaction,
	}, &submitted)
	if n := len(env.node.Submitted()); n != 1 {
		t.Errorf("node received %d transactions", n)
	}
}

func TestConstruction_MissingSignature(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob, carol := newAccount(t), newAccount(t), newAccount(t)
	env.fund(outputID(0x01, 0), alice, 1_000_000)
	env.fund(outputID(0x02, 0), bob, 2_000_000)

	payloads := env.flow(t, []rosetta.Operation{
		inputOp(0, outputID(0x01, 0), alice.addr, "-1000000"),
		inputOp(1, outputID(0x02, 0), bob.addr, "-2000000"),
		outputOp(2, carol.addr, "3000000"),
	})

	var only rosetta.SigningPayload
	for _, p := range payloads.Payloads {
		if p.AccountIdentifier.Address == alice.addr {
			only = p
		}
	}
	wire := env.post(t, "/construction/combine", rosetta.ConstructionCombineRequest{
		NetworkIdentifier:   testnet,
		UnsignedTransaction: payloads.UnsignedTransaction,
		Signatures:          []rosetta.Signature{alice.sign(t, only)},
	}, nil)
	wantError(t, wire, rosetta.CodeInvalidRequest)
	if wire.Retriable {
		t.Error("missing signature should not be retriable")
	}
	if wire.Details["field"] != "signatures" {
		t.Errorf("details = %v", wire.Details)
	}
}

func TestConstruction_PreprocessErrors(t *testing.T) {
	env := setupTestEnv(t)
	alice := newAccount(t)

	badCoin := inputOp(0, outputID(0x01, 0), alice.addr, "-5")
	badCoin.CoinChange.CoinIdentifier.Identifier = "abcd"

	tests := []struct {
		name  string
		ops   []rosetta.Operation
		field string
	}{
		{"no operations", nil, "operations"},
		{"bad coin identifier", []rosetta.Operation{badCoin, outputOp(1, alice.addr, "5")}, "operations[0].coin_change.coin_identifier"},
		{"foreign address", []rosetta.Operation{
			inputOp(0, outputID(0x01, 0), alice.addr, "-5"),
			outputOp(1, "kgx1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq", "5"),
		}, "operations[1].account"},
		{"negative output", []rosetta.Operation{
			inputOp(0, outputID(0x01, 0), alice.addr, "-5"),
			outputOp(1, alice.addr, "-5"),
		}, "operations[1].amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := env.post(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{
				NetworkIdentifier: testnet,
				Operations:        tt.ops,
			}, nil)
			wantError(t, wire, rosetta.CodeInvalidRequest)
			field, _ := wire.Details["field"].(string)
			if len(field) < len(tt.field) || field[:len(tt.field)] != tt.field {
				t.Errorf("field = %q, want prefix %q", field, tt.field)
			}
		})
	}
}

func TestConstruction_MetadataSpentOutput(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob := newAccount(t), newAccount(t)
	env.node.AddOutput(outputID(0x01, 0), alice.addr, tx.OutputSigLockedSingle, 100, true)

	var pre rosetta.ConstructionPreprocessResponse
	env.mustPost(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{
		NetworkIdentifier: testnet,
		Operations: []rosetta.Operation{
			inputOp(0, outputID(0x01, 0), alice.addr, "-100"),
			outputOp(1, bob.addr, "100"),
		},
	}, &pre)

	wire := env.post(t, "/construction/metadata", rosetta.ConstructionMetadataRequest{
		NetworkIdentifier: testnet,
		Options:           pre.Options,
	}, nil)
	wantError(t, wire, rosetta.CodeInvalidRequest)
	if wire.Retriable {
		t.Error("spent output should not be retriable")
	}
}

func TestConstruction_MetadataUnknownOutputIsRetriable(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob := newAccount(t), newAccount(t)

	var pre rosetta.ConstructionPreprocessResponse
	env.mustPost(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{
		NetworkIdentifier: testnet,
		Operations: []rosetta.Operation{
			inputOp(0, outputID(0x01, 0), alice.addr, "-100"),
			outputOp(1, bob.addr, "100"),
		},
	}, &pre)

	wire := env.post(t, "/construction/metadata", rosetta.ConstructionMetadataRequest{
		NetworkIdentifier: testnet,
		Options:           pre.Options,
	}, nil)
	wantError(t, wire, rosetta.CodeLedgerState)
	if !wire.Retriable {
		t.Error("unknown output should be retriable")
	}
}

func TestConstruction_MetadataBadOptions(t *testing.T) {
	env := setupTestEnv(t)
	tests := []struct {
		name    string
		options map[string]interface{}
		field   string
	}{
		{"missing", map[string]interface{}{}, "options.unsigned_transaction"},
		{"unknown key", map[string]interface{}{"unsigned_transaction": "00", "fee": 1}, "options"},
		{"not an envelope", map[string]interface{}{"unsigned_transaction": "zz"}, "transaction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wire := env.post(t, "/construction/metadata", rosetta.ConstructionMetadataRequest{
				NetworkIdentifier: testnet,
				Options:           tt.options,
			}, nil)
			wantError(t, wire, rosetta.CodeInvalidRequest)
			if wire.Details["field"] != tt.field {
				t.Errorf("field = %v, want %q", wire.Details["field"], tt.field)
			}
		})
	}
}

func TestConstruction_PayloadsRejectsChangedOperations(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob, mallory := newAccount(t), newAccount(t), newAccount(t)
	env.fund(outputID(0x01, 0), alice, 1_000)
	env.fund(outputID(0x02, 0), alice, 2_000)

	ops := []rosetta.Operation{
		inputOp(0, outputID(0x01, 0), alice.addr, "-1000"),
		outputOp(1, bob.addr, "1000"),
	}
	var pre rosetta.ConstructionPreprocessResponse
	env.mustPost(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{NetworkIdentifier: testnet, Operations: ops}, &pre)
	var meta rosetta.ConstructionMetadataResponse
	env.mustPost(t, "/construction/metadata", rosetta.ConstructionMetadataRequest{NetworkIdentifier: testnet, Options: pre.Options}, &meta)

	// Same inputs, different recipient.
	changed := []rosetta.Operation{
		inputOp(0, outputID(0x01, 0), alice.addr, "-1000"),
		outputOp(1, mallory.addr, "1000"),
	}
	wire := env.post(t, "/construction/payloads", rosetta.ConstructionPayloadsRequest{
		NetworkIdentifier: testnet,
		Operations:        changed,
		Metadata:          meta.Metadata,
	}, nil)
	wantError(t, wire, rosetta.CodeInvalidRequest)

	// An input that was never resolved has no metadata.
	extra := []rosetta.Operation{
		inputOp(0, outputID(0x01, 0), alice.addr, "-1000"),
		inputOp(1, outputID(0x02, 0), alice.addr, "-2000"),
		outputOp(2, bob.addr, "3000"),
	}
	wire = env.post(t, "/construction/payloads", rosetta.ConstructionPayloadsRequest{
		NetworkIdentifier: testnet,
		Operations:        extra,
		Metadata:          meta.Metadata,
	}, nil)
	wantError(t, wire, rosetta.CodeInvalidRequest)
}

func TestConstruction_PayloadsWithoutMetadataStep(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob := newAccount(t), newAccount(t)
	ops := []rosetta.Operation{
		inputOp(0, outputID(0x01, 0), alice.addr, "-1000"),
		outputOp(1, bob.addr, "1000"),
	}
	var pre rosetta.ConstructionPreprocessResponse
	env.mustPost(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{NetworkIdentifier: testnet, Operations: ops}, &pre)

	wire := env.post(t, "/construction/payloads", rosetta.ConstructionPayloadsRequest{
		NetworkIdentifier: testnet,
		Operations:        ops,
		Metadata:          pre.Options,
	}, nil)
	wantError(t, wire, rosetta.CodeInvalidRequest)
}

func TestConstruction_Offline(t *testing.T) {
	env := setupTestEnv(t, func(c *config.Config) { c.Mode = config.ModeOffline })
	alice := newAccount(t)

	// Pure steps work offline.
	var derived rosetta.ConstructionDeriveResponse
	env.mustPost(t, "/construction/derive", rosetta.ConstructionDeriveRequest{
		NetworkIdentifier: testnet,
		PublicKey:         alice.publicKey(),
	}, &derived)

	var pre rosetta.ConstructionPreprocessResponse
	env.mustPost(t, "/construction/preprocess", rosetta.ConstructionPreprocessRequest{
		NetworkIdentifier: testnet,
		Operations: []rosetta.Operation{
			inputOp(0, outputID(0x01, 0), alice.addr, "-1"),
			outputOp(1, alice.addr, "1"),
		},
	}, &pre)

	wire := env.post(t, "/construction/metadata", rosetta.ConstructionMetadataRequest{
		NetworkIdentifier: testnet,
		Options:           pre.Options,
	}, nil)
	wantError(t, wire, rosetta.CodeOffline)

	wire = env.post(t, "/construction/submit", rosetta.ConstructionSubmitRequest{
		NetworkIdentifier: testnet,
		SignedTransaction: "00",
	}, nil)
	wantError(t, wire, rosetta.CodeOffline)

	wire = env.post(t, "/network/status", rosetta.NetworkRequest{NetworkIdentifier: testnet}, nil)
	wantError(t, wire, rosetta.CodeOffline)
}

func TestConstruction_WrongNetwork(t *testing.T) {
	env := setupTestEnv(t)
	mainnet := rosetta.NetworkIdentifier{Blockchain: Blockchain, Network: "mainnet"}

	paths := map[string]interface{}{
		"/construction/derive":     rosetta.ConstructionDeriveRequest{NetworkIdentifier: mainnet},
		"/construction/preprocess": rosetta.ConstructionPreprocessRequest{NetworkIdentifier: mainnet},
		"/construction/metadata":   rosetta.ConstructionMetadataRequest{NetworkIdentifier: mainnet},
		"/construction/payloads":   rosetta.ConstructionPayloadsRequest{NetworkIdentifier: mainnet},
		"/construction/combine":    rosetta.ConstructionCombineRequest{NetworkIdentifier: mainnet},
		"/construction/hash":       rosetta.ConstructionHashRequest{NetworkIdentifier: mainnet},
		"/construction/parse":      rosetta.ConstructionParseRequest{NetworkIdentifier: mainnet},
		"/construction/submit":     rosetta.ConstructionSubmitRequest{NetworkIdentifier: mainnet},
		"/network/options":         rosetta.NetworkRequest{NetworkIdentifier: mainnet},
		"/account/balance":         rosetta.AccountBalanceRequest{NetworkIdentifier: mainnet},
		"/block":                   rosetta.BlockRequest{NetworkIdentifier: mainnet},
	}
	for path, req := range paths {
		t.Run(path, func(t *testing.T) {
			wire := env.post(t, path, req, nil)
			wantError(t, wire, rosetta.CodeWrongNetwork)
			if wire.Retriable {
				t.Error("wrong network should not be retriable")
			}
		})
	}
}

func TestConstruction_SubmitRejected(t *testing.T) {
	env := setupTestEnv(t)
	alice, bob := newAccount(t), newAccount(t)
	env.fund(outputID(0x01, 0), alice, 500)

	payloads := env.flow(t, []rosetta.Operation{
		inputOp(0, outputID(0x01, 0), alice.addr, "-500"),
		outputOp(1, bob.addr, "500"),
	})
	var combined rosetta.ConstructionCombineResponse
	env.mustPost(t, "/construction/combine", rosetta.ConstructionCombineRequest{
		NetworkIdentifier:   testnet,
		UnsignedTransaction: payloads.UnsignedTransaction,
		Signatures:          []rosetta.Signature{alice.sign(t, payloads.Payloads[0])},
	}, &combined)

	env.node.Fail("tx_submit", -32001, "input already spent")
	wire := env.post(t, "/construction/submit", rosetta.ConstructionSubmitRequest{
		NetworkIdentifier: testnet,
		SignedTransaction: combined.SignedTransaction,
	}, nil)
	wantError(t, wire, rosetta.CodeInvalidRequest)
}

func TestConstruction_HashRejectsUnsigned(t *testing.T) {
	env := setupTestEnv(t)
	alice := newAccount(t)
	unsigned, err := construction.EncodeUnsigned(&construction.UnsignedEnvelope{
		Essence: &tx.Essence{
			Inputs:  []tx.Input{{OutputID: outputID(0x01, 0)}},
			Outputs: []tx.Output{{Type: tx.OutputSigLockedSingle, Address: mustDecode(t, alice.addr), Amount: 1}},
		},
		InputsMetadata: construction.InputsMetadata{},
	})
	if err != nil {
		t.Fatal(err)
	}
	wire := env.post(t, "/construction/hash", rosetta.ConstructionHashRequest{
		NetworkIdentifier: testnet,
		SignedTransaction: unsigned,
	}, nil)
	wantError(t, wire, rosetta.CodeInvalidRequest)
}

func mustDecode(t *testing.T, addr string) types.Address {
	t.Helper()
	a, err := types.DecodeAddressHRP(addr, types.TestnetHRP)
	if err != nil {
		t.Fatal(err)
	}
	return a
}
