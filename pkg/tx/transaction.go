package tx

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// UnlockType identifies the unlock block variant.
type UnlockType uint8

const (
	UnlockSignature UnlockType = 0 // Carries a public key and signature
	UnlockReference UnlockType = 1 // Points at an earlier signature block
)

// SignatureScheme identifies the signature algorithm of a signature unlock.
type SignatureScheme uint8

// SchemeSchnorrSecp256k1 is a BIP-340 style Schnorr signature over secp256k1.
const SchemeSchnorrSecp256k1 SignatureScheme = 0

// UnlockBlock authorizes the consumption of one essence input.
// For a Signature block, PublicKey and Signature are set; for a Reference
// block, Reference holds the position of an earlier Signature block.
type UnlockBlock struct {
	Type      UnlockType
	Scheme    SignatureScheme
	PublicKey []byte
	Signature []byte
	Reference uint16
}

// NewSignatureUnlock builds a signature unlock block.
func NewSignatureUnlock(pubKey, sig []byte) UnlockBlock {
	return UnlockBlock{
		Type:      UnlockSignature,
		Scheme:    SchemeSchnorrSecp256k1,
		PublicKey: pubKey,
		Signature: sig,
	}
}

// NewReferenceUnlock builds a reference unlock block.
func NewReferenceUnlock(pos uint16) UnlockBlock {
	return UnlockBlock{Type: UnlockReference, Reference: pos}
}

// Transaction is an essence together with one unlock block per input.
type Transaction struct {
	Essence *Essence
	Unlocks []UnlockBlock
}

// Bytes returns the wire serialization of the transaction.
// Format: essence | n_unlock(2) | unlocks
func (t *Transaction) Bytes() []byte {
	buf := t.Essence.Bytes()
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(t.Unlocks)))
	for _, u := range t.Unlocks {
		buf = append(buf, byte(u.Type))
		switch u.Type {
		case UnlockSignature:
			buf = append(buf, byte(u.Scheme))
			buf = append(buf, u.PublicKey...)
			buf = append(buf, u.Signature...)
		case UnlockReference:
			buf = binary.LittleEndian.AppendUint16(buf, u.Reference)
		}
	}
	return buf
}

// ID returns the transaction id (BLAKE3 hash of the full serialization).
func (t *Transaction) ID() types.Hash {
	return crypto.Hash(t.Bytes())
}
