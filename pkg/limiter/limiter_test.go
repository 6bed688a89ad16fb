package limiter

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(ip string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/repositories", nil)
	c.Request.RemoteAddr = ip + ":1234"
	return c
}

func TestIPLimiter_PerClientBuckets(t *testing.T) {
	l := NewIPLimiter(1, 2)

	k1 := l.Key(newContext("10.0.0.1"))
	k2 := l.Key(newContext("10.0.0.2"))
	assert.Equal(t, "10.0.0.1", k1)

	b1, ok := l.GetBucket(k1)
	require.True(t, ok)
	assert.Equal(t, int64(2), b1.TakeAvailable(5))
	assert.Equal(t, int64(0), b1.TakeAvailable(1))

	b2, ok := l.GetBucket(k2)
	require.True(t, ok)
	assert.Equal(t, int64(1), b2.TakeAvailable(1))
}

func TestMethodLimiter_OnlyConfiguredPaths(t *testing.T) {
	l := NewMethodLimiter()
	l.AddBuckets(BucketRule{Key: "/api/repositories", FillInterval: time.Minute, Capacity: 1, Quantum: 1})

	b, ok := l.GetBucket(l.Key(newContext("10.0.0.1")))
	require.True(t, ok)
	assert.Equal(t, int64(1), b.TakeAvailable(1))
	assert.Equal(t, int64(0), b.TakeAvailable(1))

	_, ok = l.GetBucket("/other")
	assert.False(t, ok)
}
