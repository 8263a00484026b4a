package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestRoundTimer_FiresRepeatedly(t *testing.T) {
	var fired atomic.Int32
	timer := NewRoundTimer(func() { fired.Add(1) }, func() time.Duration { return time.Millisecond }, quietLogger())

	timer.Start(context.Background())
	defer timer.Stop()

	assert.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, timer.Running())
}

func TestRoundTimer_StopHalts(t *testing.T) {
	var fired atomic.Int32
	timer := NewRoundTimer(func() { fired.Add(1) }, func() time.Duration { return time.Millisecond }, quietLogger())

	timer.Start(context.Background())
	require.Eventually(t, func() bool { return fired.Load() >= 1 }, time.Second, time.Millisecond)
	timer.Stop()
	assert.False(t, timer.Running())

	after := fired.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, fired.Load())

	timer.Stop() // stopping twice is harmless
}

func TestRoundTimer_SurvivesPanic(t *testing.T) {
	var fired atomic.Int32
	timer := NewRoundTimer(func() {
		if fired.Add(1) == 1 {
			panic("boom")
		}
	}, func() time.Duration { return time.Millisecond }, quietLogger())

	timer.Start(context.Background())
	defer timer.Stop()
	assert.Eventually(t, func() bool { return fired.Load() >= 2 }, time.Second, time.Millisecond)
}

func TestRoundTimer_RestartUsesNewInterval(t *testing.T) {
	var fired atomic.Int32
	var wait atomic.Int64
	wait.Store(int64(time.Hour))
	timer := NewRoundTimer(func() { fired.Add(1) }, func() time.Duration { return time.Duration(wait.Load()) }, quietLogger())

	timer.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, fired.Load())

	wait.Store(int64(time.Millisecond))
	timer.Start(context.Background())
	defer timer.Stop()
	assert.Eventually(t, func() bool { return fired.Load() >= 1 }, time.Second, time.Millisecond)
}

func TestRoundTimer_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var fired atomic.Int32
	timer := NewRoundTimer(func() { fired.Add(1) }, func() time.Duration { return time.Hour }, quietLogger())

	timer.Start(ctx)
	cancel()
	timer.Stop()
	assert.Zero(t, fired.Load())
}
