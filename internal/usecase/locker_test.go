package usecase_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/subware/billing-service/internal/usecase"
)

func TestSubscriptionLocker_SerializesPerKey(t *testing.T) {
	locker := usecase.NewSubscriptionLocker()

	var mu sync.Mutex
	counters := map[string]int{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, key := range []string{"sub_a", "sub_b"} {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				unlock := locker.Lock(key)
				defer unlock()

				mu.Lock()
				counters[key]++
				mu.Unlock()
			}(key)
		}
	}
	wg.Wait()

	assert.Equal(t, 50, counters["sub_a"])
	assert.Equal(t, 50, counters["sub_b"])
}

func TestSubscriptionLocker_ReleaseAllowsReacquire(t *testing.T) {
	locker := usecase.NewSubscriptionLocker()

	unlock := locker.Lock("sub_a")
	unlock()

	done := make(chan struct{})
	go func() {
		unlock := locker.Lock("sub_a")
		unlock()
		close(done)
	}()
	<-done
}
