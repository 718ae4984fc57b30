package eventbus

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	n int
}

func (e *pingEvent) EventID() EventID {
	return "ping"
}

func TestBus_Publish(t *testing.T) {
	b := New()
	var sum int32
	require.NoError(t, b.Subscribe("ping", func(e Event) {
		atomic.AddInt32(&sum, int32(e.(*pingEvent).n))
	}))
	require.NoError(t, b.SubscribeAsync("ping", func(e Event) {
		atomic.AddInt32(&sum, int32(e.(*pingEvent).n))
	}))
	b.Publish(&pingEvent{n: 2})
	b.Publish(&pingEvent{n: 3})
	b.WaitAsync()
	require.Equal(t, int32(10), atomic.LoadInt32(&sum))
}
