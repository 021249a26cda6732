package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatePreviousValue(t *testing.T) {
	// previous = 10000 / (1 - 0.25) ≈ 13333.33
	previous := EstimatePreviousValue(10000, -25)
	require.NotNil(t, previous)
	assert.InDelta(t, 13333.33, *previous, 0.01)
}

func TestEstimatePreviousValue_Growth(t *testing.T) {
	// previous = 12000 / 1.2 = 10000
	previous := EstimatePreviousValue(12000, 20)
	require.NotNil(t, previous)
	assert.InDelta(t, 10000, *previous, 0.001)
}

func TestEstimatePreviousValue_ZeroDenominator(t *testing.T) {
	// variation = -100% → 分母为 0，返回 nil 而不是除零
	assert.Nil(t, EstimatePreviousValue(10000, -100))
}
