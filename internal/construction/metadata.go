package construction

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Klingon-tech/klingnet-rosetta/pkg/rosetta"
)

// InputMetadata is the resolved state of one spent output.
type InputMetadata struct {
	Address string `json:"address"` // bech32 owner
	Amount  string `json:"amount"`  // decimal, unsigned
	Type    string `json:"type"`    // operation type of the output
}

// InputsMetadata maps hex output ids to their resolved state. It is filled
// once at the metadata step and threaded unchanged afterwards.
type InputsMetadata map[string]InputMetadata

// OptionUnsignedTransaction is the key under which preprocess options and
// metadata carry the unsigned envelope.
const OptionUnsignedTransaction = "unsigned_transaction"

// Options is the decoded form of preprocess options and metadata.
type Options struct {
	UnsignedTransaction string `mapstructure:"unsigned_transaction"`
}

// DecodeOptions decodes a Rosetta options or metadata object. field names
// the request member for error reporting.
func DecodeOptions(field string, m map[string]interface{}) (*Options, error) {
	var opts Options
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &opts,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, rosetta.NonRetriable(field, fmt.Errorf("%w: %v", ErrOptions, err))
	}
	if opts.UnsignedTransaction == "" {
		return nil, rosetta.NonRetriable(field+"."+OptionUnsignedTransaction,
			fmt.Errorf("%w: missing", ErrOptions))
	}
	return &opts, nil
}

// Map returns the options as a Rosetta object.
func (o *Options) Map() map[string]interface{} {
	return map[string]interface{}{OptionUnsignedTransaction: o.UnsignedTransaction}
}
