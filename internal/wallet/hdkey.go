package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tyler-smith/go-bip32"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/crypto"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// BIP-44 path constants. Full path: m/44'/8888'/account'/change/index
const (
	PurposeBIP44     = bip32.FirstHardenedChild + 44
	CoinTypeKlingnet = bip32.FirstHardenedChild + 8888

	ChangeExternal = 0 // Receiving addresses
	ChangeInternal = 1 // Change addresses
)

// ErrPath is returned for a malformed derivation path.
var ErrPath = errors.New("invalid derivation path")

// Key is a BIP-32 extended private key.
type Key struct {
	key *bip32.Key
}

// NewMasterKey creates the master key from a wallet seed.
func NewMasterKey(seed []byte) (*Key, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &Key{key: master}, nil
}

// Derive walks path from k. Hardened steps carry bip32.FirstHardenedChild.
func (k *Key) Derive(path ...uint32) (*Key, error) {
	cur := k.key
	for _, idx := range path {
		child, err := cur.NewChildKey(idx)
		if err != nil {
			return nil, fmt.Errorf("derive child %d: %w", idx, err)
		}
		cur = child
	}
	return &Key{key: cur}, nil
}

// DeriveAccount derives the key at m/44'/8888'/account'/change/index.
func (k *Key) DeriveAccount(account, change, index uint32) (*Key, error) {
	return k.Derive(AccountPath(account, change, index)...)
}

// AccountPath returns the BIP-44 path of an account key.
func AccountPath(account, change, index uint32) []uint32 {
	return []uint32{PurposeBIP44, CoinTypeKlingnet, bip32.FirstHardenedChild + account, change, index}
}

// ParsePath parses a path such as m/44'/8888'/0'/0/3. Hardened steps are
// marked with ' or h.
func ParsePath(s string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with m", ErrPath, s)
	}
	path := make([]uint32, 0, len(parts)-1)
	for _, p := range parts[1:] {
		hardened := strings.HasSuffix(p, "'") || strings.HasSuffix(p, "h")
		if hardened {
			p = p[:len(p)-1]
		}
		n, err := strconv.ParseUint(p, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: step %q", ErrPath, p)
		}
		idx := uint32(n)
		if hardened {
			idx += bip32.FirstHardenedChild
		}
		path = append(path, idx)
	}
	return path, nil
}

// FormatPath renders path in the notation ParsePath accepts.
func FormatPath(path []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range path {
		b.WriteByte('/')
		if idx >= bip32.FirstHardenedChild {
			b.WriteString(strconv.FormatUint(uint64(idx-bip32.FirstHardenedChild), 10))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return b.String()
}

// PublicKey returns the compressed 33-byte public key.
func (k *Key) PublicKey() []byte {
	return k.key.PublicKey().Key
}

// PrivateKey returns the signing key. bip32 stores private keys with a
// leading zero byte.
func (k *Key) PrivateKey() (*crypto.PrivateKey, error) {
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// Address returns the ledger address of the key.
func (k *Key) Address() types.Address {
	return crypto.AddressFromPubKey(k.PublicKey())
}
