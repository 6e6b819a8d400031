package engine

import (
	"fmt"
	"sort"

	"github.com/joe/offloader/pkg/formatters"
)

// Notifier delivers milestone messages to an external channel. Delivery is
// best-effort and must not block.
type Notifier interface {
	Notify(message string)
}

// NopNotifier discards all messages.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string) {}

// MilestoneNotifier sends at most one notification per configured progress
// threshold per job. Crossing several thresholds between checks sends each
// in ascending order.
type MilestoneNotifier struct {
	notifier   Notifier
	thresholds []int
	sent       map[int]bool
}

// NewMilestoneNotifier returns a notifier for the given thresholds, which are
// copied and kept in ascending order.
func NewMilestoneNotifier(notifier Notifier, thresholds []int) *MilestoneNotifier {
	t := append([]int(nil), thresholds...)
	sort.Ints(t)

	return &MilestoneNotifier{
		notifier:   notifier,
		thresholds: t,
		sent:       map[int]bool{},
	}
}

// JobStarted resets per-job tracking and announces the new job.
func (m *MilestoneNotifier) JobStarted(totalFiles int, totalBytes int64, destination string) {
	m.sent = map[int]bool{}
	m.notifier.Notify(fmt.Sprintf(
		"Transfer started: %d files (%s) to %s",
		totalFiles, formatters.FormatBytes(totalBytes), destination,
	))
}

// Check sends a notification for every unsent threshold at or below the
// given overall percentage, in ascending order. The 100%% threshold is
// reported through JobFinished instead.
func (m *MilestoneNotifier) Check(overallPercent float64) {
	for _, t := range m.thresholds {
		if t >= 100 || m.sent[t] || float64(t) > overallPercent {
			continue
		}

		m.sent[t] = true
		m.notifier.Notify(fmt.Sprintf("Transfer %d%% complete", t))
	}
}

// JobFinished sends the final summary notification if the 100%% threshold is
// configured and has not been sent for this job.
func (m *MilestoneNotifier) JobFinished(summary FinishSummary) {
	final := false

	for _, t := range m.thresholds {
		if t == 100 {
			final = true
		}
	}

	if !final || m.sent[100] {
		return
	}

	m.sent[100] = true

	msg := fmt.Sprintf(
		"Transfer complete: %d of %d files (%s) in %s (%s avg)",
		summary.CompletedFiles, summary.TotalFiles,
		summary.TotalSizeHuman, summary.Duration, summary.AvgSpeed,
	)
	if n := len(summary.Errors); n > 0 {
		msg += fmt.Sprintf(", %d errors", n)
	}

	m.notifier.Notify(msg)
}
