package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheduler_RegisterRejectsBadSchedule(t *testing.T) {
	s := NewScheduler()
	assert.Error(t, s.Register("broken", "every other tuesday", func(context.Context) (int64, error) { return 0, nil }))
	assert.NoError(t, s.Register("ok", "@every 1h", func(context.Context) (int64, error) { return 0, nil }))
}

func TestRun_ReportsJobErrorsWithoutPanicking(t *testing.T) {
	calls := 0
	run("failing", func(ctx context.Context) (int64, error) {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 0, errors.New("boom")
	})
	assert.Equal(t, 1, calls)
}

func TestFields(t *testing.T) {
	f := fields([]interface{}{"entry", 3, "now", "x", "dangling"})
	assert.Equal(t, 3, f["entry"])
	assert.Equal(t, "x", f["now"])
	assert.Len(t, f, 2)
}
