package engine

import "time"

// SpeedWindow is the trailing window over which throughput is estimated.
const SpeedWindow = 5 * time.Second

type speedSample struct {
	at    time.Time
	bytes int64
}

// SpeedEstimator computes throughput over a trailing window of cumulative
// byte-count samples. It is not safe for concurrent use; the transfer job is
// its only caller.
type SpeedEstimator struct {
	window   time.Duration
	samples  []speedSample
	speedBPS float64
}

// NewSpeedEstimator returns an estimator over the default trailing window.
func NewSpeedEstimator() *SpeedEstimator {
	return &SpeedEstimator{window: SpeedWindow}
}

// Reset discards all samples and the held estimate.
func (e *SpeedEstimator) Reset() {
	e.samples = nil
	e.speedBPS = 0
}

// Add records a cumulative byte count at the given time and updates the
// estimate. With fewer than two samples in the window the previous estimate
// is held rather than reported as zero.
func (e *SpeedEstimator) Add(at time.Time, bytesDone int64) {
	e.samples = append(e.samples, speedSample{at: at, bytes: bytesDone})

	cutoff := at.Add(-e.window)
	keep := e.samples[:0]

	for _, s := range e.samples {
		if !s.at.Before(cutoff) {
			keep = append(keep, s)
		}
	}

	e.samples = keep

	if len(e.samples) < 2 {
		return
	}

	first := e.samples[0]
	last := e.samples[len(e.samples)-1]
	dt := last.at.Sub(first.at).Seconds()

	if dt <= 0 {
		return
	}

	e.speedBPS = float64(last.bytes-first.bytes) / dt
}

// Speed returns the current estimate in bytes per second. Zero means no
// estimate yet.
func (e *SpeedEstimator) Speed() float64 {
	return e.speedBPS
}

// ETA returns the estimated seconds until the remaining bytes are copied, or
// -1 when throughput is zero or unknown.
func (e *SpeedEstimator) ETA(remaining int64) float64 {
	if e.speedBPS <= 0 {
		return -1
	}

	if remaining <= 0 {
		return 0
	}

	return float64(remaining) / e.speedBPS
}
