/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"runtime"
	"sync"
	"testing"
)

func TestKeyedMutexSerializesKey(t *testing.T) {
	m := newKeyedMutex[int64]()

	// Each slot is only touched under its own key.
	counts := make([]int, 4)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(key int64) {
			defer wg.Done()

			unlock := m.Lock(key)
			defer unlock()

			v := counts[key]
			runtime.Gosched()
			counts[key] = v + 1
		}(int64(i % 4))
	}
	wg.Wait()

	for key, n := range counts {
		if n != 50 {
			t.Errorf("key %d: %d increments, want 50", key, n)
		}
	}

	if m.size() != 0 {
		t.Errorf("size = %d after all unlocks, want 0", m.size())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	m := newKeyedMutex[string]()

	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := m.Lock("b")
		unlock()
		close(done)
	}()
	<-done

	if m.size() != 1 {
		t.Errorf("size = %d, want 1", m.size())
	}
}
