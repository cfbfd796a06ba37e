package dice

import "go.uber.org/zap"

// chanceResolution is the granularity of Chance rolls (one part per million).
const chanceResolution = 1_000_000

// Roller wraps a Source and logs every roll at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src must be non-nil. A nil logger disables logging.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Src returns the underlying Source.
func (r *Roller) Src() Source { return r.src }

// Between returns a value in [min, max] inclusive.
//
// Precondition: min <= max.
func (r *Roller) Between(label string, min, max int) int {
	v := min
	if max > min {
		v += r.src.Intn(max - min + 1)
	}
	r.logger.Debug("dice roll",
		zap.String("label", label),
		zap.Int("min", min),
		zap.Int("max", max),
		zap.Int("result", v),
	)
	return v
}

// Chance reports whether an event with probability p happens.
// p <= 0 never happens and p >= 1 always happens; neither consumes randomness.
func (r *Roller) Chance(label string, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	roll := r.src.Intn(chanceResolution)
	hit := float64(roll) < p*chanceResolution
	r.logger.Debug("chance roll",
		zap.String("label", label),
		zap.Float64("p", p),
		zap.Int("roll", roll),
		zap.Bool("hit", hit),
	)
	return hit
}
