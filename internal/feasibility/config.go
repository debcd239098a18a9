package feasibility

import (
	"github.com/ignite/audience-feasibility/internal/config"
	"github.com/ignite/audience-feasibility/internal/search"
)

// EvaluatorConfigFrom converts the feasibility section of the service config.
func EvaluatorConfigFrom(cfg config.FeasibilityConfig) EvaluatorConfig {
	t := cfg.Thresholds
	return EvaluatorConfig{
		PersonaNorm:   cfg.PersonaNorm,
		PerformerNorm: cfg.PerformerNorm,
		Thresholds: Thresholds{
			Bad:    t.Bad,
			First:  t.First,
			Second: t.Second,
			Third:  t.Third,
			Floor:  t.Floor,
		},
	}
}

// NewServiceFromConfig builds the evaluator and the service from cfg.
// opts are applied after the configured outlier share.
func NewServiceFromConfig(searcher search.Searcher, cfg config.FeasibilityConfig, opts ...Option) (*Service, error) {
	evaluator, err := NewEvaluator(EvaluatorConfigFrom(cfg))
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithOutlierShare(cfg.OutlierShare)}, opts...)
	return NewService(searcher, evaluator, opts...), nil
}
