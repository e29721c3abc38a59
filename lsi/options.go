package lsi

import (
	"errors"
	"fmt"
	"log/slog"
)

// SearchMode selects how a lookup resolves the model's error window.
type SearchMode int

const (
	// SearchAuto scans linearly when fingerprints are enabled and uses
	// binary search otherwise.
	SearchAuto SearchMode = iota
	// SearchBinary bisects the window. Incompatible with fingerprints.
	SearchBinary
	// SearchLinear always scans the window front to back.
	SearchLinear
)

func (m SearchMode) String() string {
	switch m {
	case SearchAuto:
		return "auto"
	case SearchBinary:
		return "binary"
	case SearchLinear:
		return "linear"
	default:
		return fmt.Sprintf("SearchMode(%d)", int(m))
	}
}

var (
	ErrBinarySearchWithFingerprint = errors.New("lsi: binary search cannot use fingerprints")
	ErrInvalidSearchMode           = errors.New("lsi: invalid search mode")
	ErrInvalidBloomRate            = errors.New("lsi: bloom filter false positive rate must be in (0, 1)")
)

type config struct {
	fingerprintBits int
	fingerprintSeed uint64
	searchMode      SearchMode
	bloomRate       float64
	duplicateRuns   bool
	diagnostics     bool
	logger          *slog.Logger
}

func defaultConfig() config {
	return config{
		searchMode: SearchAuto,
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Option configures an Index at construction time.
type Option func(*config) error

// WithFingerprintBits stores a bits-wide fingerprint of every key next to
// its offset so that linear scans can skip non-matching entries without
// touching the base data. 0 disables fingerprints.
func WithFingerprintBits(bits int) Option {
	return func(c *config) error {
		c.fingerprintBits = bits
		return nil
	}
}

// WithFingerprintSeed seeds the fingerprint hash.
func WithFingerprintSeed(seed uint64) Option {
	return func(c *config) error {
		c.fingerprintSeed = seed
		return nil
	}
}

// WithSearchMode fixes the window search strategy.
func WithSearchMode(mode SearchMode) Option {
	return func(c *config) error {
		if mode < SearchAuto || mode > SearchLinear {
			return fmt.Errorf("%w: %v", ErrInvalidSearchMode, mode)
		}
		c.searchMode = mode
		return nil
	}
}

// WithBloomFilter adds a key membership filter with the given false
// positive rate. Equality lookups for keys rejected by the filter return
// End without consulting the model or the base data.
func WithBloomFilter(falsePositiveRate float64) Option {
	return func(c *config) error {
		if !(falsePositiveRate > 0 && falsePositiveRate < 1) {
			return fmt.Errorf("%w: got %g", ErrInvalidBloomRate, falsePositiveRate)
		}
		c.bloomRate = falsePositiveRate
		return nil
	}
}

// WithDuplicateRuns keeps one bit per sorted position marking the start of
// each run of equal keys, so EqualRange and Count resolve a run's end by
// rank/select instead of base data accesses.
func WithDuplicateRuns() Option {
	return func(c *config) error {
		c.duplicateRuns = true
		return nil
	}
}

// WithDiagnostics enables the base data access counters reported by Stats.
func WithDiagnostics() Option {
	return func(c *config) error {
		c.diagnostics = true
		return nil
	}
}

// WithLogger sets the logger used for build summaries.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// useLinearSearch resolves SearchAuto and rejects unsupported combinations.
func (c config) useLinearSearch() (bool, error) {
	switch c.searchMode {
	case SearchBinary:
		if c.fingerprintBits > 0 {
			return false, fmt.Errorf("%w: %d fingerprint bits", ErrBinarySearchWithFingerprint, c.fingerprintBits)
		}
		return false, nil
	case SearchLinear:
		return true, nil
	default:
		return c.fingerprintBits > 0, nil
	}
}
