package pipeline

import (
	"context"
	"testing"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/stretchr/testify/assert"
)

func TestBackoffSequence(t *testing.T) {
	d := initialBackoff
	var seen []time.Duration
	for range 6 {
		d = sharedretry.NextBackoff(d, maxBackoff)
		seen = append(seen, d)
	}
	assert.Equal(t, []time.Duration{
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
		3200 * time.Millisecond,
		maxBackoff,
		maxBackoff,
	}, seen)
}

func TestSleepWithContext(t *testing.T) {
	assert.True(t, sleepWithContext(context.Background(), 0))
	assert.True(t, sleepWithContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleepWithContext(ctx, time.Hour))
	assert.False(t, sleepWithContext(ctx, 0))
}
