package loading

import (
	"sync"

	"github.com/spaghettifunk/character-studio/engine/metadata"
)

type assetProgress struct {
	loaded int64
	total  int64
}

// progressTracker folds per-asset byte counts into one batch percentage that
// never goes backwards. Completion is only reported by finish.
type progressTracker struct {
	mu       sync.Mutex
	assets   []*assetProgress
	reported float64
	fn       func(float64)
}

func newProgressTracker(fn func(float64)) *progressTracker {
	return &progressTracker{fn: fn}
}

// asset registers one more in-flight asset and returns its progress sink.
func (p *progressTracker) asset() metadata.ProgressFunc {
	p.mu.Lock()
	a := &assetProgress{total: -1}
	p.assets = append(p.assets, a)
	p.mu.Unlock()

	return func(loaded, total int64) {
		p.mu.Lock()
		defer p.mu.Unlock()
		a.loaded = loaded
		a.total = total
		p.emit(p.percent())
	}
}

func (p *progressTracker) percent() float64 {
	var loaded, total int64
	for _, a := range p.assets {
		if a.total <= 0 {
			continue
		}
		loaded += a.loaded
		total += a.total
	}
	if total == 0 {
		return 0
	}
	pct := float64(loaded) / float64(total) * 100
	// Assets that have not reported a size yet keep the batch below 100.
	if pct > 99 {
		pct = 99
	}
	return pct
}

func (p *progressTracker) emit(pct float64) {
	if pct < p.reported {
		return
	}
	p.reported = pct
	if p.fn != nil {
		p.fn(pct)
	}
}

func (p *progressTracker) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.emit(100)
}

// Percent returns the last reported value.
func (p *progressTracker) Percent() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reported
}
