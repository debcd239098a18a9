package feasibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-feasibility/internal/config"
)

func TestEvaluatorConfigFrom_Defaults(t *testing.T) {
	got := EvaluatorConfigFrom(config.Default().Feasibility)
	assert.Equal(t, DefaultEvaluatorConfig(), got)
}

func TestNewServiceFromConfig(t *testing.T) {
	cfg := config.Default().Feasibility
	cfg.OutlierShare = 0.05

	svc, err := NewServiceFromConfig(&fakeCluster{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.05, svc.outlierShare)
	assert.Equal(t, int64(1000), svc.evaluator.PersonaNorm())

	cfg.PerformerNorm = 0
	_, err = NewServiceFromConfig(&fakeCluster{}, cfg)
	assert.ErrorIs(t, err, ErrInvalidNorm)
}
