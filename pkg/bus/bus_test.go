package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startBus(t *testing.T, opts ...Option) (*Bus[string], context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b := NewBus[string](zap.NewNop(), opts...)
	require.NoError(t, b.Start(ctx))
	<-b.Ready()
	return b, ctx
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return ""
	}
}

func TestBroadcastToEverySubscriber(t *testing.T) {
	b, ctx := startBus(t)
	const n = 5
	subs := make([]<-chan string, n)
	for i := range subs {
		subs[i] = b.Subscribe(ctx)
	}
	b.Publish(ctx, "hello")

	for _, ch := range subs {
		assert.Equal(t, "hello", receive(t, ch))
	}

	for _, ch := range subs {
		select {
		case msg := <-ch:
			t.Fatalf("unexpected extra message %q", msg)
		case <-time.After(20 * time.Millisecond):
		}
	}
	require.Eventually(t, func() bool {
		return b.Stats().Delivered == n
	}, time.Second, 5*time.Millisecond)
}

func TestPublishOrderIsPreserved(t *testing.T) {
	b, ctx := startBus(t)
	ch := b.Subscribe(ctx)
	for _, msg := range []string{"a", "b", "c"} {
		b.Publish(ctx, msg)
	}
	assert.Equal(t, "a", receive(t, ch))
	assert.Equal(t, "b", receive(t, ch))
	assert.Equal(t, "c", receive(t, ch))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b, ctx := startBus(t)
	subCtx, cancel := context.WithCancel(ctx)
	ch := b.Subscribe(subCtx)
	require.Equal(t, 1, b.Stats().Subscribers)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
	require.Eventually(t, func() bool {
		return b.Stats().Subscribers == 0
	}, time.Second, 5*time.Millisecond)

	b.Publish(ctx, "after")
	other := b.Subscribe(ctx)
	b.Publish(ctx, "next")
	assert.Equal(t, "next", receive(t, other))
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b, ctx := startBus(t, WithBufferSize(1))
	slow := b.Subscribe(ctx)
	fast := b.Subscribe(ctx)

	b.Publish(ctx, "one")
	assert.Equal(t, "one", receive(t, fast))
	b.Publish(ctx, "two")
	assert.Equal(t, "two", receive(t, fast))

	assert.Equal(t, "one", receive(t, slow))
	require.Eventually(t, func() bool {
		return b.Stats().Dropped == 1
	}, time.Second, 5*time.Millisecond)
}

func TestPublishBeforeStartIsQueued(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b := NewBus[string](zap.NewNop())
	ch := b.Subscribe(ctx)
	b.CreatePublisher()(ctx, "queued")
	require.NoError(t, b.Start(ctx))
	assert.Equal(t, "queued", receive(t, ch))
}
