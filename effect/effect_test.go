package effect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCurve(t *testing.T) {
	t.Parallel()

	_, err := LookupCurve("in-out-quad")
	require.NoError(t, err)

	_, err = LookupCurve("bounce")
	require.Error(t, err)
}

func TestFadeValues(t *testing.T) {
	t.Parallel()

	fade, err := NewFade("linear", time.Second, 4)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, fade.Interval())
	assert.Equal(t, []byte{64, 128, 191, 255}, fade.Values(0, 255))
	assert.Equal(t, []byte{191, 128, 64, 0}, fade.Values(255, 0))
}

func TestFadeEasedLevelsAreMonotonic(t *testing.T) {
	t.Parallel()

	fade, err := NewFade("in-out-quad", 2*time.Second, 20)
	require.NoError(t, err)

	values := fade.Values(0, 255)
	require.Len(t, values, 20)
	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], values[i-1])
	}
	assert.Equal(t, byte(255), values[len(values)-1])
	assert.Equal(t, 0.0, fade.Level(0))
	assert.Equal(t, 1.0, fade.Level(20))
}

func TestInstantFade(t *testing.T) {
	t.Parallel()

	fade, err := NewFade("linear", 0, 10)
	require.NoError(t, err)

	assert.True(t, fade.Instant())
	assert.Equal(t, []byte{200}, fade.Values(0, 200))
	assert.Equal(t, time.Duration(0), fade.Interval())
}
