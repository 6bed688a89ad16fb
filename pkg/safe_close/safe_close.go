// Package safe_close coordinates graceful shutdown of long running goroutines
// Package safe_close 协调常驻 goroutine 的优雅关闭
package safe_close

import (
	"errors"
	"sync"
)

// SafeClose broadcasts one close signal to every attached handler and waits for them
// SafeClose 向所有已挂载的处理器广播关闭信号并等待其退出
type SafeClose struct {
	closeCh  chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	err      error
	isClosed bool
}

// NewSafeClose creates a SafeClose
// NewSafeClose 创建 SafeClose
func NewSafeClose() *SafeClose {
	return &SafeClose{closeCh: make(chan struct{})}
}

// Attach runs fn in a new goroutine, fn must call done when it returns
// Attach 在新 goroutine 中运行 fn，fn 退出时必须调用 done
func (s *SafeClose) Attach(fn func(done func(), closeSignal <-chan struct{})) {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	var doneOnce sync.Once
	go fn(func() { doneOnce.Do(s.wg.Done) }, s.closeCh)
}

// SendCloseSignal broadcasts the close signal, err is kept as the close reason
// SendCloseSignal 广播关闭信号，err 作为关闭原因保留
func (s *SafeClose) SendCloseSignal(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.isClosed = true
		s.err = err
		s.mu.Unlock()
		close(s.closeCh)
	})
}

// WaitClosed blocks until every attached handler called done
// WaitClosed 阻塞直到所有处理器调用 done
func (s *SafeClose) WaitClosed() error {
	s.mu.Lock()
	closed := s.isClosed
	s.mu.Unlock()
	if !closed {
		return errors.New("close signal has not been sent")
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Closed reports whether the close signal was sent
// Closed 返回是否已发送关闭信号
func (s *SafeClose) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}
