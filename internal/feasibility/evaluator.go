package feasibility

import (
	"fmt"
	"math/bits"
)

const (
	DefaultPersonaNorm   int64 = 1000
	DefaultPerformerNorm int64 = 300
)

// Thresholds are the discriminance tier boundaries in percent. A segment
// share above Bad scores 0; above First 25; above Second 50; above Third 75;
// at or above Floor 100.
type Thresholds struct {
	Bad    float64 `yaml:"bad" json:"bad"`
	First  float64 `yaml:"first" json:"first"`
	Second float64 `yaml:"second" json:"second"`
	Third  float64 `yaml:"third" json:"third"`
	Floor  float64 `yaml:"floor" json:"floor"`
}

// EvaluatorConfig holds the per-report-family volume norms and the tiers.
type EvaluatorConfig struct {
	PersonaNorm   int64
	PerformerNorm int64
	Thresholds    Thresholds
}

// DefaultEvaluatorConfig returns the production norms and tiers.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		PersonaNorm:   DefaultPersonaNorm,
		PerformerNorm: DefaultPerformerNorm,
		Thresholds: Thresholds{
			Bad:    20,
			First:  15,
			Second: 10,
			Third:  5,
			Floor:  0,
		},
	}
}

// Evaluator maps raw counts to a Result. It holds no mutable state.
type Evaluator struct {
	cfg EvaluatorConfig
}

// NewEvaluator validates cfg and returns an Evaluator.
func NewEvaluator(cfg EvaluatorConfig) (*Evaluator, error) {
	if cfg.PersonaNorm <= 0 || cfg.PerformerNorm <= 0 {
		return nil, fmt.Errorf("%w: persona=%d performer=%d", ErrInvalidNorm, cfg.PersonaNorm, cfg.PerformerNorm)
	}
	t := cfg.Thresholds
	if !(t.Bad > t.First && t.First > t.Second && t.Second > t.Third && t.Third > t.Floor) {
		return nil, fmt.Errorf("discriminance thresholds must be strictly descending, got %v/%v/%v/%v/%v",
			t.Bad, t.First, t.Second, t.Third, t.Floor)
	}
	return &Evaluator{cfg: cfg}, nil
}

// PersonaNorm is the volume norm for persona reports.
func (e *Evaluator) PersonaNorm() int64 { return e.cfg.PersonaNorm }

// PerformerNorm is the volume norm for performer profiles.
func (e *Evaluator) PerformerNorm() int64 { return e.cfg.PerformerNorm }

// Evaluate scores a segment of segmentVolume users out of population against
// norm. Counts are compared as integers; negative counts and a segment larger
// than its population are rejected.
func (e *Evaluator) Evaluate(population, segmentVolume, norm int64) (Result, error) {
	if population < 0 || segmentVolume < 0 {
		return Result{}, fmt.Errorf("%w: negative count population=%d segment=%d", ErrInvalidCounts, population, segmentVolume)
	}
	if population == 0 {
		return NeutralResult(), nil
	}
	if norm <= 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidNorm, norm)
	}
	if segmentVolume > population {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrInvalidCounts, segmentVolume, population)
	}

	percent := 100 * float64(segmentVolume) / float64(population)
	discriminance, err := e.MapDiscriminance(percent)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Feasible:      segmentVolume >= norm,
		Volume:        cappedVolume(segmentVolume, norm),
		Discriminance: discriminance,
	}, nil
}

// cappedVolume is min(100, 100*segmentVolume/norm) without overflowing.
func cappedVolume(segmentVolume, norm int64) int {
	if segmentVolume >= norm {
		return 100
	}
	// segmentVolume < norm keeps the high word below norm, so Div64 cannot panic.
	hi, lo := bits.Mul64(100, uint64(segmentVolume))
	q, _ := bits.Div64(hi, lo, uint64(norm))
	return int(q)
}

// MapDiscriminance turns a segment share in percent into a 0-100 score.
// Smaller segments are more discriminant.
func (e *Evaluator) MapDiscriminance(percent float64) (int, error) {
	t := e.cfg.Thresholds
	switch {
	case percent > t.Bad:
		return 0, nil
	case percent > t.First:
		return 25, nil
	case percent > t.Second:
		return 50, nil
	case percent > t.Third:
		return 75, nil
	case percent >= t.Floor:
		return 100, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidDiscriminance, percent)
	}
}
