package steps

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	k := newKeyedMutex()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(7)
			defer unlock()

			cur := atomic.AddInt32(&inside, 1)
			for {
				prev := atomic.LoadInt32(&maxInside)
				if cur <= prev || atomic.CompareAndSwapInt32(&maxInside, prev, cur) {
					break
				}
			}
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Zero(t, k.size(), "entries are released")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
