package engine_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/joe/offloader/internal/engine"
)

func TestSpeedComputedOverWindow(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	est := engine.NewSpeedEstimator()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	est.Add(base, 0)
	est.Add(base.Add(2*time.Second), 20*1024*1024)

	// 20 MiB over 2 seconds.
	g.Expect(est.Speed()).To(BeNumerically("~", 10*1024*1024, 1))
}

func TestColdStartHoldsPreviousEstimate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	est := engine.NewSpeedEstimator()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	est.Add(base, 0)
	g.Expect(est.Speed()).To(BeZero())

	est.Add(base.Add(time.Second), 1024)
	held := est.Speed()
	g.Expect(held).To(BeNumerically(">", 0))

	// A long gap empties the window down to one sample; the estimate is
	// held rather than dropping to zero.
	est.Add(base.Add(time.Minute), 2048)
	g.Expect(est.Speed()).To(Equal(held))
}

func TestOldSamplesExpire(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	est := engine.NewSpeedEstimator()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// A fast early burst followed by a slow recent stretch: the estimate
	// must reflect only the trailing window.
	est.Add(base, 0)
	est.Add(base.Add(time.Second), 100*1024*1024)
	est.Add(base.Add(10*time.Second), 100*1024*1024+1024)
	est.Add(base.Add(12*time.Second), 100*1024*1024+2048)

	g.Expect(est.Speed()).To(BeNumerically("~", 512, 1))
}

func TestETA(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	est := engine.NewSpeedEstimator()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	g.Expect(est.ETA(1024)).To(Equal(-1.0))

	est.Add(base, 0)
	est.Add(base.Add(time.Second), 1024)

	g.Expect(est.ETA(10240)).To(BeNumerically("~", 10, 0.01))
	g.Expect(est.ETA(0)).To(BeZero())
}

func TestResetDropsEstimate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	est := engine.NewSpeedEstimator()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	est.Add(base, 0)
	est.Add(base.Add(time.Second), 1024)
	g.Expect(est.Speed()).To(BeNumerically(">", 0))

	est.Reset()
	g.Expect(est.Speed()).To(BeZero())
	g.Expect(est.ETA(1024)).To(Equal(-1.0))
}
