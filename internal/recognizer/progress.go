package recognizer

import "math"

// ProgressFunc receives the build progress in percent. Values never decrease
// and the last call reports 100.
type ProgressFunc func(percent int)

type progressTracker struct {
	fn    ProgressFunc
	value float64
	last  int
}

func newProgressTracker(fn ProgressFunc) *progressTracker {
	return &progressTracker{fn: fn, last: -1}
}

// advance adds delta percent and reports the rounded total if it grew.
func (p *progressTracker) advance(delta float64) {
	p.value = min(p.value+delta, 100)
	p.report(int(math.Round(p.value)))
}

// remaining is the share not yet reported, split across the files of a build.
func (p *progressTracker) remaining() float64 {
	return 100 - p.value
}

func (p *progressTracker) finish() {
	p.value = 100
	p.report(100)
}

func (p *progressTracker) report(percent int) {
	if p.fn == nil || percent <= p.last {
		return
	}
	p.last = percent
	p.fn(percent)
}
