package core

import (
	"sync"
	"time"
)

const AVG_COUNT uint8 = 30

// Metrics keeps a rolling average over the last AVG_COUNT batch durations
// together with asset counters.
type Metrics struct {
	mu sync.Mutex

	batchAVGCounter uint8
	msTimes         [AVG_COUNT]float64
	msAvg           float64
	batches         int64

	assetsLoaded int64
	assetsFailed int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordBatch stores the duration of one batch and the asset outcome counts.
func (m *Metrics) RecordBatch(elapsed time.Duration, loaded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms := float64(elapsed) / float64(time.Millisecond)
	m.msTimes[m.batchAVGCounter] = ms
	m.batches++

	samples := uint8(AVG_COUNT)
	if m.batches < int64(AVG_COUNT) {
		samples = uint8(m.batches)
	}
	sum := 0.0
	for i := uint8(0); i < samples; i++ {
		sum += m.msTimes[i]
	}
	m.msAvg = sum / float64(samples)

	m.batchAVGCounter++
	m.batchAVGCounter %= AVG_COUNT

	m.assetsLoaded += int64(loaded)
	m.assetsFailed += int64(failed)
}

// BatchTime returns the rolling average batch duration in milliseconds.
func (m *Metrics) BatchTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msAvg
}

func (m *Metrics) Batches() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// Assets returns the total loaded and failed asset counts.
func (m *Metrics) Assets() (int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assetsLoaded, m.assetsFailed
}
