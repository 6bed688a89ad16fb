// Package limiter 基于令牌桶的接口限流
package limiter

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face 限流器接口
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// BucketRule 令牌桶规则
type BucketRule struct {
	// Key 限流键，为空时表示默认规则
	Key string
	// FillInterval 放入令牌的间隔
	FillInterval time.Duration
	// Capacity 桶容量
	Capacity int64
	// Quantum 每次放入的令牌数
	Quantum int64
}

// Limiter 按键持有令牌桶
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*ratelimit.Bucket
}

func newLimiter() Limiter {
	return Limiter{buckets: make(map[string]*ratelimit.Bucket)}
}

// GetBucket 获取键对应的令牌桶
func (l *Limiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.buckets[key]
	return b, ok
}

func (l *Limiter) addBucket(rule BucketRule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.buckets[rule.Key]; ok {
		return
	}
	l.buckets[rule.Key] = ratelimit.NewBucketWithQuantum(rule.FillInterval, rule.Capacity, rule.Quantum)
}

// IPLimiter 按客户端 IP 限流，每个 IP 按默认规则懒创建令牌桶
type IPLimiter struct {
	Limiter
	rule BucketRule
}

// NewIPLimiter 创建按 IP 限流器，perSecond 为每秒令牌数
func NewIPLimiter(perSecond, capacity int) *IPLimiter {
	if capacity < perSecond {
		capacity = perSecond
	}
	return &IPLimiter{
		Limiter: newLimiter(),
		rule: BucketRule{
			FillInterval: time.Second,
			Capacity:     int64(capacity),
			Quantum:      int64(perSecond),
		},
	}
}

// Key 返回客户端 IP，并确保该 IP 已有令牌桶
func (l *IPLimiter) Key(c *gin.Context) string {
	key := c.ClientIP()
	if _, ok := l.Limiter.GetBucket(key); !ok {
		rule := l.rule
		rule.Key = key
		l.addBucket(rule)
	}
	return key
}

// AddBuckets 为指定 IP 设置独立规则
func (l *IPLimiter) AddBuckets(rules ...BucketRule) Face {
	for _, rule := range rules {
		l.addBucket(rule)
	}
	return l
}

// MethodLimiter 按请求路径限流，只限制添加了规则的路径
type MethodLimiter struct {
	Limiter
}

// NewMethodLimiter 创建按路径限流器
func NewMethodLimiter() *MethodLimiter {
	return &MethodLimiter{Limiter: newLimiter()}
}

// Key 返回路由模板，没有匹配路由时使用原始路径
func (l *MethodLimiter) Key(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// AddBuckets 添加路径规则
func (l *MethodLimiter) AddBuckets(rules ...BucketRule) Face {
	for _, rule := range rules {
		l.addBucket(rule)
	}
	return l
}
