package construction

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// SigningPayloads returns one payload per distinct input owner, in
// essence-input order. Every payload carries the essence signing hash.
func SigningPayloads(p Params, env *UnsignedEnvelope) ([]rosetta.SigningPayload, error) {
	hash := env.Essence.SigningHash().String()
	var out []rosetta.SigningPayload
	seen := make(map[types.Address]bool)
	for _, in := range env.Essence.Inputs {
		owner, err := inputOwner(p, env.InputsMetadata, in.OutputID)
		if err != nil {
			return nil, err
		}
		if seen[owner] {
			continue
		}
		seen[owner] = true
		out = append(out, rosetta.SigningPayload{
			AccountIdentifier: &rosetta.AccountIdentifier{Address: owner.Encode(p.HRP)},
			HexBytes:          hash,
			SignatureType:     rosetta.SignatureSchnorr,
		})
	}
	return out, nil
}

// DeriveAddress returns the ledger-native address of a compressed public key.
func DeriveAddress(p Params, pk rosetta.PublicKey) (string, error) {
	if pk.CurveType != rosetta.CurveSecp256k1 {
		return "", rosetta.NonRetriable("public_key.curve_type", fmt.Errorf("%w: %q", ErrCurveType, pk.CurveType))
	}
	pub, err := decodePublicKey(pk.HexBytes)
	if err != nil {
		return "", rosetta.NonRetriable("public_key.hex_bytes", err)
	}
	return crypto.AddressFromPubKey(pub).Encode(p.HRP), nil
}
