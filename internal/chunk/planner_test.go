package chunk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlanScenario25Min(t *testing.T) {
	windows, err := Plan(25*time.Minute, DefaultPlanOptions())
	require.NoError(t, err)

	require.Equal(t, []Window{
		{Index: 0, Start: 0, End: 10 * time.Minute},
		{Index: 1, Start: 9 * time.Minute, End: 19 * time.Minute},
		{Index: 2, Start: 18 * time.Minute, End: 25 * time.Minute},
	}, windows)
}

func TestPlanShortRecording(t *testing.T) {
	windows, err := Plan(30*time.Second, DefaultPlanOptions())
	require.NoError(t, err)
	require.Equal(t, []Window{{Index: 0, Start: 0, End: 30 * time.Second}}, windows)
}

func TestPlanExactMultiple(t *testing.T) {
	// 10 minutes fits in a single window.
	windows, err := Plan(10*time.Minute, DefaultPlanOptions())
	require.NoError(t, err)
	require.Len(t, windows, 1)
	require.Equal(t, 10*time.Minute, windows[0].End)

	// A second past the first window needs a second one.
	windows, err = Plan(10*time.Minute+time.Second, DefaultPlanOptions())
	require.NoError(t, err)
	require.Len(t, windows, 2)
	require.Equal(t, 9*time.Minute, windows[1].Start)
	require.Equal(t, 10*time.Minute+time.Second, windows[1].End)
}

func TestPlanCoverage(t *testing.T) {
	opts := DefaultPlanOptions()
	stride := opts.WindowLength - opts.Overlap

	for _, total := range []time.Duration{
		time.Second,
		9 * time.Minute,
		25 * time.Minute,
		time.Hour,
		2*time.Hour + 17*time.Minute + 3*time.Second,
	} {
		windows, err := Plan(total, opts)
		require.NoError(t, err)
		require.NotEmpty(t, windows)

		require.Equal(t, time.Duration(0), windows[0].Start)
		require.Equal(t, total, windows[len(windows)-1].End)

		for i, w := range windows {
			require.Equal(t, i, w.Index)
			require.Greater(t, w.End, w.Start)
			require.LessOrEqual(t, w.Span(), MaxWindowLength)
			require.Less(t, w.Start, total)
			if i > 0 {
				require.Equal(t, windows[i-1].Start+stride, w.Start)
				// No gap between consecutive windows.
				require.GreaterOrEqual(t, windows[i-1].End, w.Start)
			}
		}
	}
}

func TestPlanDeterministic(t *testing.T) {
	a, err := Plan(47*time.Minute, DefaultPlanOptions())
	require.NoError(t, err)
	b, err := Plan(47*time.Minute, DefaultPlanOptions())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPlanInvalidDuration(t *testing.T) {
	_, err := Plan(0, DefaultPlanOptions())
	require.True(t, errors.Is(err, ErrInvalidDuration))

	_, err = Plan(-time.Minute, DefaultPlanOptions())
	require.True(t, errors.Is(err, ErrInvalidDuration))
}

func TestPlanInvalidConfig(t *testing.T) {
	_, err := Plan(time.Hour, PlanOptions{WindowLength: time.Minute, Overlap: time.Minute})
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Plan(time.Hour, PlanOptions{WindowLength: time.Minute, Overlap: 2 * time.Minute})
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Plan(time.Hour, PlanOptions{WindowLength: 0, Overlap: 0})
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Plan(time.Hour, PlanOptions{WindowLength: 12 * time.Minute, Overlap: time.Minute})
	require.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Plan(time.Hour, PlanOptions{WindowLength: 10 * time.Minute, Overlap: -time.Second})
	require.True(t, errors.Is(err, ErrInvalidConfig))
}
