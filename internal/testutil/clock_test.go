package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock_StartsAtGivenTime(t *testing.T) {
	clock := NewFakeClock(epoch)
	assert.Equal(t, epoch, clock.Now())
	assert.Empty(t, clock.Sleeps())
}

func TestFakeClock_AfterAdvancesAndFires(t *testing.T) {
	clock := NewFakeClock(epoch)

	select {
	case got := <-clock.After(5 * time.Second):
		assert.Equal(t, epoch.Add(5*time.Second), got)
	default:
		t.Fatal("After channel should already have fired")
	}

	<-clock.After(20 * time.Second)
	assert.Equal(t, epoch.Add(25*time.Second), clock.Now())
	assert.Equal(t, []time.Duration{5 * time.Second, 20 * time.Second}, clock.Sleeps())
	assert.Equal(t, 25*time.Second, clock.Slept())
}

func TestFakeClock_Hold(t *testing.T) {
	clock := NewFakeClock(epoch)
	clock.Hold()

	ch := clock.After(time.Second)
	select {
	case <-ch:
		t.Fatal("held clock must not fire")
	default:
	}
	assert.Equal(t, epoch, clock.Now())
	assert.Len(t, clock.Sleeps(), 1)
}

func TestFakeClock_Advance(t *testing.T) {
	clock := NewFakeClock(epoch)
	clock.Advance(time.Minute)
	assert.Equal(t, epoch.Add(time.Minute), clock.Now())
	assert.Empty(t, clock.Sleeps())
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock(epoch)
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				<-clock.After(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	require.Len(t, clock.Sleeps(), numGoroutines*callsPerGoroutine)
	assert.Equal(t, epoch.Add(numGoroutines*callsPerGoroutine*time.Millisecond), clock.Now())
}
