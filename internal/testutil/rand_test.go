package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScriptedRand_ReplaysInOrder(t *testing.T) {
	r := NewScriptedRand(0.1, 0.5, 0.9)

	assert.Equal(t, 0.1, r.Float64())
	assert.Equal(t, 0.5, r.Float64())
	assert.Equal(t, 0.9, r.Float64())
	assert.Equal(t, 3, r.Calls())
}

func TestScriptedRand_RepeatsLastDraw(t *testing.T) {
	r := NewScriptedRand(0.25)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0.25, r.Float64())
	}
	assert.Equal(t, 5, r.Calls())
}

func TestScriptedRand_EmptyReturnsZero(t *testing.T) {
	r := NewScriptedRand()
	assert.Equal(t, 0.0, r.Float64())
}

func TestScriptedRand_Reset(t *testing.T) {
	r := NewScriptedRand(0.1, 0.2)
	r.Float64()
	r.Float64()

	r.Reset()
	assert.Equal(t, 0, r.Calls())
	assert.Equal(t, 0.1, r.Float64())
}

func TestScriptedRand_ThreadSafe(t *testing.T) {
	r := NewScriptedRand(0.5)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Float64()
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, r.Calls())
}

func TestFixedRunIDGenerator(t *testing.T) {
	assert.Equal(t, "run-1", NewFixedRunIDGenerator("run-1").Generate())
	assert.Equal(t, "test-run-default", NewFixedRunIDGenerator("").Generate())
}
