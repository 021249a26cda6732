package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"clinic-monitor/internal/config"
)

type fakeSweepRunner struct {
	activateCalls int
	completeCalls int
	activateErr   error
}

func (f *fakeSweepRunner) ActivateDue(ctx context.Context, reference time.Time) (int, error) {
	f.activateCalls++
	if f.activateErr != nil {
		return 0, f.activateErr
	}
	return 1, nil
}

func (f *fakeSweepRunner) CompleteDue(ctx context.Context, reference time.Time) (int, error) {
	f.completeCalls++
	return 1, nil
}

func sweeperConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Coverage.SweepIntervalSec = 60
	return cfg
}

func TestSweep_RunsBothPhases(t *testing.T) {
	runner := &fakeSweepRunner{}
	sweeper := NewCoverageSweeper(sweeperConfig(), runner, zap.NewNop())

	sweeper.Sweep(context.Background())

	assert.Equal(t, 1, runner.activateCalls)
	assert.Equal(t, 1, runner.completeCalls)
}

func TestSweep_ActivationFailureDoesNotBlockCompletion(t *testing.T) {
	runner := &fakeSweepRunner{activateErr: fmt.Errorf("db unavailable")}
	sweeper := NewCoverageSweeper(sweeperConfig(), runner, zap.NewNop())

	sweeper.Sweep(context.Background())

	assert.Equal(t, 1, runner.completeCalls)
}

func TestSweeperStart_DisabledReturnsImmediately(t *testing.T) {
	cfg := sweeperConfig()
	cfg.Coverage.SweepIntervalSec = 0
	sweeper := NewCoverageSweeper(cfg, &fakeSweepRunner{}, zap.NewNop())

	err := sweeper.Start(context.Background())
	assert.NoError(t, err)
}
