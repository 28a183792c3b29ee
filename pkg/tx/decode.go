package tx

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Decoding errors.
var (
	ErrTruncated      = errors.New("unexpected end of data")
	ErrTrailingData   = errors.New("trailing data after transaction")
	ErrUnknownEssence = errors.New("unsupported essence type")
	ErrUnknownInput   = errors.New("unsupported input type")
	ErrUnknownOutput  = errors.New("unsupported output type")
	ErrUnknownAddress = errors.New("unsupported address type")
	ErrUnknownPayload = errors.New("unsupported payload type")
	ErrUnknownUnlock  = errors.New("unsupported unlock block type")
	ErrUnknownScheme  = errors.New("unsupported signature scheme")
)

// reader consumes a byte slice, recording the first error.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// copyOf returns an owned copy of the next n bytes.
func (r *reader) copyOf(n int) []byte {
	b := r.take(n)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) essence() *Essence {
	e := &Essence{}
	if t := EssenceType(r.u8()); t != EssenceTypeRegular {
		r.fail(fmt.Errorf("%w: %d", ErrUnknownEssence, t))
		return nil
	}

	nIn := int(r.u16())
	if nIn > MaxInputs {
		r.fail(fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, nIn, MaxInputs))
		return nil
	}
	e.Inputs = make([]Input, 0, nIn)
	for i := 0; i < nIn && r.err == nil; i++ {
		if t := r.u8(); t != InputTypeUTXO && r.err == nil {
			r.fail(fmt.Errorf("input %d: %w: %d", i, ErrUnknownInput, t))
			break
		}
		var in Input
		copy(in.OutputID.TxID[:], r.take(types.HashSize))
		in.OutputID.Index = r.u16()
		e.Inputs = append(e.Inputs, in)
	}

	nOut := int(r.u16())
	if nOut > MaxOutputs {
		r.fail(fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, nOut, MaxOutputs))
		return nil
	}
	e.Outputs = make([]Output, 0, nOut)
	for i := 0; i < nOut && r.err == nil; i++ {
		var out Output
		out.Type = OutputType(r.u8())
		if !out.Type.Valid() && r.err == nil {
			r.fail(fmt.Errorf("output %d: %w: %d", i, ErrUnknownOutput, out.Type))
			break
		}
		if at := r.u8(); at != AddressTypeKGX && r.err == nil {
			r.fail(fmt.Errorf("output %d: %w: %d", i, ErrUnknownAddress, at))
			break
		}
		copy(out.Address[:], r.take(types.AddressSize))
		out.Amount = r.u64()
		e.Outputs = append(e.Outputs, out)
	}

	payloadLen := int(r.u32())
	if payloadLen > 0 {
		e.Payload = (&reader{data: r.take(payloadLen)}).indexation(r)
	}
	if r.err != nil {
		return nil
	}
	return e
}

// indexation parses a payload held entirely in r; errors propagate to parent.
func (r *reader) indexation(parent *reader) *Indexation {
	if parent.err != nil {
		return nil
	}
	if t := r.u32(); t != PayloadTypeIndexation && r.err == nil {
		parent.fail(fmt.Errorf("%w: %d", ErrUnknownPayload, t))
		return nil
	}
	p := &Indexation{}
	p.Index = r.copyOf(int(r.u16()))
	p.Data = r.copyOf(int(r.u32()))
	if r.err == nil && r.off != len(r.data) {
		r.fail(fmt.Errorf("payload: %w", ErrTrailingData))
	}
	if r.err != nil {
		parent.fail(fmt.Errorf("payload: %w", r.err))
		return nil
	}
	return p
}

func (r *reader) unlocks() []UnlockBlock {
	n := int(r.u16())
	if n > MaxInputs {
		r.fail(fmt.Errorf("%w: %d unlock blocks, max %d", ErrTooManyInputs, n, MaxInputs))
		return nil
	}
	out := make([]UnlockBlock, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		var u UnlockBlock
		u.Type = UnlockType(r.u8())
		switch u.Type {
		case UnlockSignature:
			u.Scheme = SignatureScheme(r.u8())
			if u.Scheme != SchemeSchnorrSecp256k1 && r.err == nil {
				r.fail(fmt.Errorf("unlock %d: %w: %d", i, ErrUnknownScheme, u.Scheme))
				return nil
			}
			u.PublicKey = r.copyOf(crypto.PublicKeySize)
			u.Signature = r.copyOf(crypto.SignatureSize)
		case UnlockReference:
			u.Reference = r.u16()
		default:
			r.fail(fmt.Errorf("unlock %d: %w: %d", i, ErrUnknownUnlock, u.Type))
			return nil
		}
		out = append(out, u)
	}
	return out
}

// DecodeEssence parses a serialized essence. The whole input must be consumed.
func DecodeEssence(data []byte) (*Essence, error) {
	r := &reader{data: data}
	e := r.essence()
	if r.err != nil {
		return nil, fmt.Errorf("decode essence: %w", r.err)
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("decode essence: %w", ErrTrailingData)
	}
	return e, nil
}

// DecodeTransaction parses a serialized transaction. The whole input must
// be consumed.
func DecodeTransaction(data []byte) (*Transaction, error) {
	r := &reader{data: data}
	e := r.essence()
	unlocks := r.unlocks()
	if r.err != nil {
		return nil, fmt.Errorf("decode transaction: %w", r.err)
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("decode transaction: %w", ErrTrailingData)
	}
	return &Transaction{Essence: e, Unlocks: unlocks}, nil
}
