package queue

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func waitAsync[T any](ctx context.Context, q *Queue[T]) <-chan bool {
	deadline, ok := q.Peek()
	if !ok {
		panic("waiting on an empty queue")
	}
	changed := q.Changed()

	ch := make(chan bool, 1)
	go func() {
		ch <- q.WaitUntil(ctx, deadline, changed)
	}()
	return ch
}

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case ok := <-ch:
		return ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for WaitUntil to return")
	}
	return false
}

func TestQueue(t *testing.T) {
	t.Run("should keep non expired item", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		q.Insert(1, 5*time.Second)

		_, ok := q.Poll()
		require.False(t, ok)
		require.Equal(t, 1, q.Len())
	})
	t.Run("should pop item once its deadline is reached", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		key := q.Insert(1, 5*time.Second)

		clock.Advance(5 * time.Second)
		exp, ok := q.Poll()
		require.True(t, ok)
		require.Equal(t, 1, exp.Item)
		require.Equal(t, key, exp.Key)
		require.True(t, q.IsEmpty())
	})
	t.Run("should treat zero and negative delays as due", func(t *testing.T) {
		q := New[string](WithClock(clockwork.NewFakeClock()))
		q.Insert("zero", 0)
		q.Insert("negative", -time.Second)

		exp, ok := q.Poll()
		require.True(t, ok)
		require.Equal(t, "zero", exp.Item)
		exp, ok = q.Poll()
		require.True(t, ok)
		require.Equal(t, "negative", exp.Item)
	})
	t.Run("should pop in deadline order", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		q.Insert(3, 3*time.Second)
		q.Insert(1, 1*time.Second)
		q.Insert(2, 2*time.Second)

		clock.Advance(time.Minute)
		for _, expected := range []int{1, 2, 3} {
			exp, ok := q.Poll()
			require.True(t, ok)
			require.Equal(t, expected, exp.Item)
		}
	})
	t.Run("should keep insertion order for equal deadlines", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		for i := 0; i < 10; i++ {
			q.Insert(i, time.Second)
		}

		clock.Advance(time.Second)
		for i := 0; i < 10; i++ {
			exp, ok := q.Poll()
			require.True(t, ok)
			require.Equal(t, i, exp.Item)
		}
	})
	t.Run("should allow item removal", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		key := q.Insert(1, time.Second)

		item, ok := q.Remove(key)
		require.True(t, ok)
		require.Equal(t, 1, item)

		_, ok = q.Remove(key)
		require.False(t, ok)

		clock.Advance(time.Minute)
		_, ok = q.Poll()
		require.False(t, ok)
	})
	t.Run("should not cancel with a zero or stale key", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		stale := q.Insert(1, 0)
		_, ok := q.Poll()
		require.True(t, ok)

		q.Insert(1, time.Second)
		_, ok = q.Remove(stale)
		require.False(t, ok)
		_, ok = q.Remove(Key{})
		require.False(t, ok)
		require.Equal(t, 1, q.Len())
	})
	t.Run("should report the earliest deadline", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		_, ok := q.Peek()
		require.False(t, ok)

		q.Insert(1, 10*time.Second)
		q.Insert(2, 5*time.Second)
		deadline, ok := q.Peek()
		require.True(t, ok)
		require.True(t, clock.Now().Add(5*time.Second).Equal(deadline))
	})
}

func TestQueue_WaitUntil(t *testing.T) {
	t.Run("should return at once for an elapsed deadline", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		q.Insert(1, 0)

		deadline, ok := q.Peek()
		require.True(t, ok)
		require.True(t, q.WaitUntil(context.Background(), deadline, q.Changed()))
	})
	t.Run("should wait for the deadline", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		q.Insert(1, 5*time.Second)

		ch := waitAsync(context.Background(), q)
		clock.BlockUntil(1)
		clock.Advance(5 * time.Second)

		require.True(t, receive(t, ch))
		exp, ok := q.Poll()
		require.True(t, ok)
		require.Equal(t, 1, exp.Item)
	})
	t.Run("should be woken by an earlier insert", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		q.Insert(1, 10*time.Second)

		ch := waitAsync(context.Background(), q)
		clock.BlockUntil(1)
		q.Insert(2, time.Second)

		require.True(t, receive(t, ch))
		deadline, ok := q.Peek()
		require.True(t, ok)
		require.True(t, clock.Now().Add(time.Second).Equal(deadline))
	})
	t.Run("should be woken when the head is removed", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		key := q.Insert(1, 10*time.Second)

		ch := waitAsync(context.Background(), q)
		clock.BlockUntil(1)
		_, ok := q.Remove(key)
		require.True(t, ok)

		require.True(t, receive(t, ch))
		require.True(t, q.IsEmpty())
	})
	t.Run("should leave the queue untouched when cancelled", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		q := New[int](WithClock(clock))
		q.Insert(1, 10*time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		ch := waitAsync(ctx, q)
		clock.BlockUntil(1)
		cancel()

		require.False(t, receive(t, ch))
		require.Equal(t, 1, q.Len())

		clock.Advance(10 * time.Second)
		exp, ok := q.Poll()
		require.True(t, ok)
		require.Equal(t, 1, exp.Item)
	})
}

func BenchmarkQueue_InsertRemove(b *testing.B) {
	q := New[int]()
	for i := 0; i < 10000; i++ {
		q.Insert(i, time.Duration(i)*time.Second)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := q.Insert(i, time.Hour)
		q.Remove(key)
	}
}
