package ledger

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-rosetta/internal/log"
	"github.com/Klingon-tech/klingnet-rosetta/internal/storage"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/tx"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// prefixOutput is the key prefix for cached outputs: o/<output id hex>.
var prefixOutput = []byte("o/")

// Cache is a Source that remembers spent outputs. A spent output never
// changes again, so it can be served locally forever; unspent outputs
// always go to the underlying source.
type Cache struct {
	src Source
	db  storage.DB
}

// NewCache wraps src with a cache stored in db.
func NewCache(src Source, db storage.DB) *Cache {
	return &Cache{src: src, db: db}
}

// record is the stored form of a spent output.
type record struct {
	Address     string `json:"address"`
	Type        uint8  `json:"type"`
	Amount      uint64 `json:"amount"`
	LedgerIndex uint64 `json:"ledger_index"`
}

func outputKey(id types.OutputID) []byte {
	return append(append([]byte{}, prefixOutput...), id.String()...)
}

// Output returns the state of id, from the cache when it is known spent.
func (c *Cache) Output(ctx context.Context, id types.OutputID) (*Output, error) {
	out, err := c.get(id)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Storage.Warn().Err(err).Str("output", id.String()).Msg("Output cache read failed")
	}

	out, err = c.src.Output(ctx, id)
	if err != nil {
		return nil, err
	}
	if out.Spent {
		if err := c.put(out); err != nil {
			log.Storage.Warn().Err(err).Str("output", id.String()).Msg("Output cache write failed")
		}
	}
	return out, nil
}

// Len returns the number of cached outputs.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.ForEach(prefixOutput, func(_, _ []byte) error {
		n++
		return nil
	})
	return n, err
}

func (c *Cache) get(id types.OutputID) (*Output, error) {
	data, err := c.db.Get(outputKey(id))
	if err != nil {
		return nil, err
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("output cache unmarshal: %w", err)
	}
	raw, err := hex.DecodeString(r.Address)
	if err != nil || len(raw) != types.AddressSize {
		return nil, fmt.Errorf("output cache: bad address %q", r.Address)
	}
	out := &Output{
		ID:          id,
		Type:        tx.OutputType(r.Type),
		Amount:      r.Amount,
		Spent:       true,
		LedgerIndex: r.LedgerIndex,
	}
	copy(out.Address[:], raw)
	return out, nil
}

func (c *Cache) put(out *Output) error {
	data, err := json.Marshal(record{
		Address:     out.Address.Hex(),
		Type:        uint8(out.Type),
		Amount:      out.Amount,
		LedgerIndex: out.LedgerIndex,
	})
	if err != nil {
		return fmt.Errorf("output cache marshal: %w", err)
	}
	return c.db.Put(outputKey(out.ID), data)
}
