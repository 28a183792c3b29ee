package construction

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// signer is a validated client signature.
type signer struct {
	index     int
	publicKey []byte
	signature []byte
}

// Assemble attaches signatures to an unsigned envelope. Signatures are
// matched to inputs by the owner address recorded in the envelope's
// metadata, not by position. The first input of each owner gets a
// Signature unlock block; later inputs of the same owner get a Reference
// to it.
func Assemble(p Params, env *UnsignedEnvelope, sigs []rosetta.Signature) (*SignedEnvelope, error) {
	essence := env.Essence
	if essence.Type != tx.EssenceTypeRegular {
		return nil, rosetta.NonRetriable("unsigned_transaction",
			fmt.Errorf("%w: %d", ErrUnsupportedEssence, essence.Type))
	}
	if len(sigs) > len(essence.Inputs) {
		return nil, rosetta.NonRetriable("signatures",
			fmt.Errorf("%w: %d signatures, %d inputs", ErrSignatureCount, len(sigs), len(essence.Inputs)))
	}

	hash := essence.SigningHash()
	bySigner := make(map[types.Address]*signer, len(sigs))
	var order []types.Address
	for j := range sigs {
		addr, s, err := checkSignature(p, j, &sigs[j], hash)
		if err != nil {
			return nil, err
		}
		if prev, ok := bySigner[addr]; ok {
			if bytes.Equal(prev.publicKey, s.publicKey) && bytes.Equal(prev.signature, s.signature) {
				continue
			}
			return nil, rosetta.NonRetriable(fmt.Sprintf("signatures[%d]", j),
				fmt.Errorf("%w: also given at signatures[%d]", ErrConflictingSignature, prev.index))
		}
		bySigner[addr] = s
		order = append(order, addr)
	}

	unlocks := make([]tx.UnlockBlock, len(essence.Inputs))
	positions := make(map[types.Address]uint16, len(bySigner))
	for i, in := range essence.Inputs {
		owner, err := inputOwner(p, env.InputsMetadata, in.OutputID)
		if err != nil {
			return nil, err
		}
		if pos, ok := positions[owner]; ok {
			unlocks[i] = tx.NewReferenceUnlock(pos)
			continue
		}
		s, ok := bySigner[owner]
		if !ok {
			return nil, rosetta.NonRetriable("signatures",
				fmt.Errorf("%w: input %d (%s)", ErrMissingSignature, i, owner.Encode(p.HRP)))
		}
		unlocks[i] = tx.NewSignatureUnlock(s.publicKey, s.signature)
		positions[owner] = uint16(i)
	}
	for _, addr := range order {
		if _, used := positions[addr]; !used {
			return nil, rosetta.NonRetriable(fmt.Sprintf("signatures[%d].signing_payload.account_identifier", bySigner[addr].index),
				fmt.Errorf("%w: %s", ErrUnusedSignature, addr.Encode(p.HRP)))
		}
	}

	signed := &tx.Transaction{Essence: essence, Unlocks: unlocks}
	if err := signed.Validate(); err != nil {
		return nil, rosetta.NonRetriable("signatures", err)
	}
	return &SignedEnvelope{Transaction: signed, InputsMetadata: env.InputsMetadata}, nil
}

// checkSignature validates the j-th client signature and returns the
// address it signs for.
func checkSignature(p Params, j int, sig *rosetta.Signature, hash types.Hash) (types.Address, *signer, error) {
	field := fmt.Sprintf("signatures[%d]", j)
	payload := sig.SigningPayload
	if payload.AccountIdentifier == nil || payload.AccountIdentifier.Address == "" {
		return types.Address{}, nil, rosetta.NonRetriable(field+".signing_payload.account_identifier", ErrMissingSignerAddress)
	}
	addr, err := types.DecodeAddressHRP(payload.AccountIdentifier.Address, p.HRP)
	if err != nil {
		return types.Address{}, nil, rosetta.NonRetriable(field+".signing_payload.account_identifier.address",
			fmt.Errorf("%w: %v", ErrAddress, err))
	}
	if sig.SignatureType != rosetta.SignatureSchnorr {
		return types.Address{}, nil, rosetta.NonRetriable(field+".signature_type",
			fmt.Errorf("%w: %q", ErrSignatureType, sig.SignatureType))
	}
	if sig.PublicKey.CurveType != rosetta.CurveSecp256k1 {
		return types.Address{}, nil, rosetta.NonRetriable(field+".public_key.curve_type",
			fmt.Errorf("%w: %q", ErrCurveType, sig.PublicKey.CurveType))
	}
	if payload.HexBytes != "" && payload.HexBytes != hash.String() {
		return types.Address{}, nil, rosetta.NonRetriable(field+".signing_payload.hex_bytes", ErrPayloadMismatch)
	}

	pub, err := decodePublicKey(sig.PublicKey.HexBytes)
	if err != nil {
		return types.Address{}, nil, rosetta.NonRetriable(field+".public_key.hex_bytes", err)
	}
	raw, err := hex.DecodeString(sig.HexBytes)
	if err == nil {
		err = crypto.ValidateSignature(raw)
	}
	if err != nil {
		return types.Address{}, nil, rosetta.NonRetriable(field+".hex_bytes",
			fmt.Errorf("%w: %v", ErrSignature, err))
	}

	if crypto.AddressFromPubKey(pub) != addr {
		return types.Address{}, nil, rosetta.NonRetriable(field+".public_key", ErrPublicKeyMismatch)
	}
	if !crypto.VerifySignature(hash[:], raw, pub) {
		return types.Address{}, nil, rosetta.NonRetriable(field+".hex_bytes", ErrInvalidSignature)
	}
	return addr, &signer{index: j, publicKey: pub, signature: raw}, nil
}

// inputOwner returns the owner of a spent output from the metadata cache.
func inputOwner(p Params, meta InputsMetadata, id types.OutputID) (types.Address, error) {
	m, ok := meta[id.String()]
	if !ok {
		return types.Address{}, rosetta.NonRetriable("inputs_metadata", fmt.Errorf("%w: %s", ErrMissingMetadata, id))
	}
	owner, err := types.DecodeAddressHRP(m.Address, p.HRP)
	if err != nil {
		return types.Address{}, rosetta.NonRetriable("inputs_metadata."+id.String()+".address",
			fmt.Errorf("%w: %v", ErrAddress, err))
	}
	return owner, nil
}

func decodePublicKey(s string) ([]byte, error) {
	pub, err := hex.DecodeString(s)
	if err == nil {
		err = crypto.ValidatePublicKey(pub)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPublicKey, err)
	}
	return pub, nil
}
