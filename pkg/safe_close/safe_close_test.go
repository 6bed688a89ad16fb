package safe_close

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeClose_WaitsForAttachedHandlers(t *testing.T) {
	sc := NewSafeClose()

	var stopped atomic.Int32
	for i := 0; i < 3; i++ {
		sc.Attach(func(done func(), closeSignal <-chan struct{}) {
			defer done()
			<-closeSignal
			stopped.Add(1)
		})
	}

	reason := errors.New("shutdown")
	sc.SendCloseSignal(reason)
	sc.SendCloseSignal(nil)

	err := sc.WaitClosed()
	assert.ErrorIs(t, err, reason)
	assert.Equal(t, int32(3), stopped.Load())
	assert.True(t, sc.Closed())
}

func TestSafeClose_WaitBeforeSignal(t *testing.T) {
	sc := NewSafeClose()
	require.Error(t, sc.WaitClosed())
}

func TestSafeClose_AttachAfterCloseIsIgnored(t *testing.T) {
	sc := NewSafeClose()
	sc.SendCloseSignal(nil)

	called := make(chan struct{}, 1)
	sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		called <- struct{}{}
	})

	require.NoError(t, sc.WaitClosed())
	assert.Len(t, called, 0)
}
