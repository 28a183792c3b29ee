package ledger

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-rosetta/internal/construction"
	"github.com/Klingon-tech/klingnet-rosetta/internal/log"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
	"github.com/Klingon-tech/klingnet-rosetta/pkg/types"
)

// Resolve looks up every id through src, at most concurrency at a time, and
// returns the metadata cache for them. An output that is missing or cannot
// be fetched is retriable; an already spent output is not.
func Resolve(ctx context.Context, src Source, hrp string, ids []types.OutputID, concurrency int) (construction.InputsMetadata, error) {
	return lookup(ctx, src, hrp, ids, concurrency, false)
}

// Describe is Resolve for outputs of confirmed transactions, which are
// expected to be spent.
func Describe(ctx context.Context, src Source, hrp string, ids []types.OutputID, concurrency int) (construction.InputsMetadata, error) {
	return lookup(ctx, src, hrp, ids, concurrency, true)
}

func lookup(ctx context.Context, src Source, hrp string, ids []types.OutputID, concurrency int, allowSpent bool) (construction.InputsMetadata, error) {
	outputs := make([]*Output, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, id := range ids {
		g.Go(func() error {
			field := fmt.Sprintf("inputs[%d]", i)
			out, err := src.Output(gctx, id)
			if err != nil {
				return rosetta.Retriable(field, fmt.Errorf("output %s: %w", id, err))
			}
			if out.Spent && !allowSpent {
				return rosetta.NonRetriable(field, fmt.Errorf("%w: %s", ErrOutputSpent, id))
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Ledger.Debug().Err(err).Int("inputs", len(ids)).Msg("Input resolution failed")
		}
		return nil, err
	}

	meta := make(construction.InputsMetadata, len(ids))
	for i, out := range outputs {
		meta[ids[i].String()] = out.Metadata(hrp)
	}
	return meta, nil
}

// ReadConsistent runs read between two reads of the ledger index and
// retries, up to attempts times, while the index moves underneath it. It
// returns the read result and the index it is consistent with.
func ReadConsistent[T any](ctx context.Context, idx Indexer, attempts int, read func(context.Context) (T, error)) (T, uint64, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		before, err := idx.LedgerIndex(ctx)
		if err != nil {
			return zero, 0, err
		}
		result, err := read(ctx)
		if err != nil {
			return zero, 0, err
		}
		after, err := idx.LedgerIndex(ctx)
		if err != nil {
			return zero, 0, err
		}
		if before == after {
			return result, after, nil
		}
		log.Ledger.Debug().
			Uint64("before", before).
			Uint64("after", after).
			Int("attempt", attempt).
			Msg("Ledger index moved during read, retrying")
	}
	return zero, 0, rosetta.Retriable("", fmt.Errorf("%w after %d attempts", ErrLedgerIndexChanged, attempts))
}
