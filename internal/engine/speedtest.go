package engine

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/joe/offloader/pkg/fileops"
)

// SpeedTestSize is the amount of data written during a speed test.
const SpeedTestSize = 256 * 1024 * 1024

// speedTestFileName is the temporary file written to the destination.
const speedTestFileName = ".offloader_speedtest.tmp"

// ErrSpeedTestActive is returned when a speed test is already running.
var ErrSpeedTestActive = errors.New("a speed test is already running")

type speedTestState struct {
	active atomic.Bool
	size   int64 // 0 means SpeedTestSize; tests shrink it
}

// RunSpeedTest measures destination write throughput by writing random data
// to the mounted share. At most one test runs at a time; results arrive as
// events.
func (e *Engine) RunSpeedTest() error {
	if !e.Store.DestReady() {
		return ErrNoDestination
	}

	if !e.speedTest.active.CompareAndSwap(false, true) {
		return ErrSpeedTestActive
	}

	go e.runSpeedTest()

	return nil
}

func (e *Engine) runSpeedTest() {
	defer e.speedTest.active.Store(false)

	size := e.speedTest.size
	if size <= 0 {
		size = SpeedTestSize
	}

	bps, elapsed, err := e.writeSpeedTestFile(size)
	if err != nil {
		e.Logger.Printf("speed test failed: %v", err)
		e.emit(SpeedTestError{Error: err.Error()})

		return
	}

	e.emit(SpeedTestDone{
		BytesPerSec: bps,
		MBps:        bps / (1024 * 1024),
		Elapsed:     elapsed,
		TestSize:    size,
	})
}

func (e *Engine) writeSpeedTestFile(size int64) (bps, elapsed float64, err error) {
	path := filepath.Join(e.DestMount, speedTestFileName)

	chunk := make([]byte, fileops.ChunkSize)
	if _, err := rand.Read(chunk); err != nil {
		return 0, 0, fmt.Errorf("failed to generate test data: %w", err)
	}

	file, err := os.Create(path) //nolint:gosec // Fixed name under the mount point.
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create speed test file: %w", err)
	}

	defer func() {
		_ = file.Close()
		_ = os.Remove(path)
	}()

	start := e.TimeProvider.Now()

	var written int64

	for written < size {
		n := int64(len(chunk))
		if size-written < n {
			n = size - written
		}

		if _, werr := file.Write(chunk[:n]); werr != nil {
			return 0, 0, fmt.Errorf("failed to write speed test data: %w", werr)
		}

		written += n

		e.emit(SpeedTestProgress{Percent: percent(written, size)})
	}

	// Flush to the share so the measurement covers network throughput, not
	// just the page cache.
	if err := file.Sync(); err != nil {
		return 0, 0, fmt.Errorf("failed to flush speed test file: %w", err)
	}

	elapsed = e.TimeProvider.Now().Sub(start).Seconds()
	if elapsed <= 0 {
		elapsed = 0.001
	}

	return float64(size) / elapsed, elapsed, nil
}
