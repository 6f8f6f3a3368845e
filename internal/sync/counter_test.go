package sync

import (
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence(t *testing.T) {
	s := NewSequence()
	assert.Equal(t, int64(0), s.Last())
	assert.Equal(t, int64(1), s.Next())
	assert.Equal(t, int64(2), s.Next())
	assert.Equal(t, int64(2), s.Last())
}

func TestSequence_Concurrent(t *testing.T) {
	s := NewSequence()

	var wg gosync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Next()
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), s.Last())
}
