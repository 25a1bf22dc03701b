package telegram

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserQueue_OneWorkerPerUser(t *testing.T) {
	q := newUserQueue[string]()

	require.True(t, q.push(1, "location"))
	require.False(t, q.push(1, "photo"))
	require.True(t, q.push(2, "start"))

	msg, ok := q.pop(1)
	require.True(t, ok)
	require.Equal(t, "location", msg)
	msg, ok = q.pop(1)
	require.True(t, ok)
	require.Equal(t, "photo", msg)

	_, ok = q.pop(1)
	require.False(t, ok)
	require.True(t, q.push(1, "video"))
}

func TestUserQueue_KeepsOrderUnderConcurrentWorkers(t *testing.T) {
	const users, perUser = 8, 200
	q := newUserQueue[int]()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		got = make(map[int64][]int)
	)
	worker := func(userID int64) {
		defer wg.Done()
		for {
			n, ok := q.pop(userID)
			if !ok {
				return
			}
			mu.Lock()
			got[userID] = append(got[userID], n)
			mu.Unlock()
		}
	}

	for i := 0; i < perUser; i++ {
		for u := int64(0); u < users; u++ {
			if q.push(u, i) {
				wg.Add(1)
				go worker(u)
			}
		}
	}
	wg.Wait()

	require.Len(t, got, users)
	for u, seq := range got {
		require.Len(t, seq, perUser, "user %d", u)
		for i, n := range seq {
			require.Equal(t, i, n, "user %d", u)
		}
	}
}
