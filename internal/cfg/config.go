// Package cfg holds the engine's flat key/value configuration (spec §6).
// Every key is optional; defaults are applied before decode so a nil or
// partial map produces a fully populated Config.
package cfg

import (
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Config mirrors the §6 table. Zero value of each field is never used
// directly — Default() seeds every field before a caller's overrides decode
// on top of it.
type Config struct {
	BarrierAlgorithm   int `mapstructure:"BARRIER_ALGORITHM"`
	BcastAlgorithm     int `mapstructure:"BCAST_ALGORITHM"`
	AllreduceAlgorithm int `mapstructure:"ALLREDUCE_ALGORITHM"`
	AlltoallvAlgorithm int `mapstructure:"ALLTOALLV_ALGORITHM"`

	BMTreeDegreeInterFanout int `mapstructure:"BMTREE_DEGREE_INTER_FANOUT"`
	BMTreeDegreeInterFanin  int `mapstructure:"BMTREE_DEGREE_INTER_FANIN"`
	BMTreeDegreeIntraFanout int `mapstructure:"BMTREE_DEGREE_INTRA_FANOUT"`
	BMTreeDegreeIntraFanin  int `mapstructure:"BMTREE_DEGREE_INTRA_FANIN"`

	ShortMaxTxSize        int  `mapstructure:"SHORT_MAX_TX_SIZE"`
	BcopyMaxTxSize        int  `mapstructure:"BCOPY_MAX_TX_SIZE"`
	LargeDatatypeThresh   int  `mapstructure:"LARGE_DATATYPE_THRESHOLD"`
	MaxMsgListSize        int  `mapstructure:"MAX_MSG_LIST_SIZE"`
	ReduceConsistency     bool `mapstructure:"REDUCE_CONSISTENCY"`
	LaddThrottledFactor   int  `mapstructure:"LADD_THROTTLED_FACTOR"`
}

// Default returns the §6 defaults: algorithm ids at 0 ("auto"), degree 8
// inter-node / 2 intra-node, 176B short cutover, 32KiB bcopy cutover, 32B
// non-contig threshold, 40-deep progress loop cap.
func Default() *Config {
	return &Config{
		BMTreeDegreeInterFanout: 8,
		BMTreeDegreeInterFanin:  8,
		BMTreeDegreeIntraFanout: 2,
		BMTreeDegreeIntraFanin:  2,
		ShortMaxTxSize:          176,
		BcopyMaxTxSize:          32 * 1024,
		LargeDatatypeThresh:     32,
		MaxMsgListSize:          40,
		ReduceConsistency:       false,
		LaddThrottledFactor:     0,
	}
}

// Load decodes kv on top of the defaults. Unknown keys are ignored (the
// table is a stable contract; forward-compatible readers should not fail
// on keys they don't recognize yet).
func Load(kv map[string]string) (*Config, error) {
	c := Default()
	if len(kv) == 0 {
		return c, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cfg: build decoder")
	}
	// mapstructure keys by the decoded struct field name/tag; kv is
	// case-sensitive upper-snake per §6 and matches the tags directly.
	generic := make(map[string]any, len(kv))
	for k, v := range kv {
		generic[k] = v
	}
	if err := dec.Decode(generic); err != nil {
		return nil, errors.Wrap(err, "cfg: decode")
	}
	return c, nil
}
