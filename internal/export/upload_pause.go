package export

import (
	"sync"
	"time"
)

// uploadPause holds back snapshot uploads while the bucket keeps failing.
// Once limit retryable failures land inside window, uploads are refused until resumeAt.
// A nil *uploadPause never pauses.
type uploadPause struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	pauseFor time.Duration
	failedAt []time.Time
	resumeAt time.Time
	nowFunc  func() time.Time
}

func newUploadPause(cfg pauseSettings) *uploadPause {
	limit := cfg.limit
	if limit < 1 {
		limit = 1
	}
	return &uploadPause{
		limit:    limit,
		window:   cfg.window,
		pauseFor: cfg.pauseFor,
		nowFunc:  time.Now,
	}
}

type pauseSettings struct {
	limit    int
	window   time.Duration
	pauseFor time.Duration
}

// failed records a failed upload and starts a pause when the limit is reached.
// Starting a pause forgets the failures that caused it.
func (p *uploadPause) failed() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowFunc()
	recent := p.failedAt[:0]
	for _, at := range p.failedAt {
		if now.Sub(at) < p.window {
			recent = append(recent, at)
		}
	}
	p.failedAt = append(recent, now)
	if len(p.failedAt) >= p.limit {
		p.resumeAt = now.Add(p.pauseFor)
		p.failedAt = p.failedAt[:0]
	}
}

// succeeded lifts any pause and forgets earlier failures.
func (p *uploadPause) succeeded() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failedAt = p.failedAt[:0]
	p.resumeAt = time.Time{}
}

// pausedUntil returns the resume time while uploads are refused.
func (p *uploadPause) pausedUntil() (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nowFunc().Before(p.resumeAt) {
		return p.resumeAt, true
	}
	return time.Time{}, false
}
