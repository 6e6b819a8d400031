package engine

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joe/offloader/internal/config"
	"github.com/joe/offloader/internal/history"
	apperrors "github.com/joe/offloader/pkg/errors"
	"github.com/joe/offloader/pkg/fileops"
	"github.com/joe/offloader/pkg/formatters"
)

// ProgressInterval is the minimum spacing between progress emissions.
const ProgressInterval = 300 * time.Millisecond

// Exported errors.
var (
	// ErrTransferActive is returned when a job is already running.
	ErrTransferActive = errors.New("a transfer is already running")
	// ErrNoSource is returned when no source device is mounted.
	ErrNoSource = errors.New("no source device connected")
	// ErrNoDestination is returned when the destination share is not mounted.
	ErrNoDestination = errors.New("destination share is not connected")
	// ErrNoFilesSelected is returned when the selection resolves to nothing.
	ErrNoFilesSelected = errors.New("no files selected")
)

// HistoryRecorder persists completed-transfer records.
type HistoryRecorder interface {
	Append(rec history.Record) ([]history.Record, error)
}

type nopHistory struct{}

func (nopHistory) Append(history.Record) ([]history.Record, error) { return nil, nil }

// Engine runs at most one transfer job at a time against the shared state
// store.
type Engine struct {
	Store        *Store
	SourceMount  string
	DestMount    string
	SettingsFn   func() config.Settings
	TimeProvider TimeProvider
	Notifier     Notifier
	History      HistoryRecorder
	Enricher     apperrors.Enricher
	Logger       *log.Logger

	emitter EventEmitter

	mu         sync.Mutex
	running    bool
	cancelChan chan struct{}
	cancelOnce *sync.Once

	// Injection point for tests.
	copyFile func(src, dst string, progress fileops.ProgressCallback, cancelChan <-chan struct{}) (int64, error)

	speedTest speedTestState
}

// NewEngine creates a transfer engine over the given store and mount points.
func NewEngine(
	store *Store,
	sourceMount, destMount string,
	settingsFn func() config.Settings,
	logger *log.Logger,
) *Engine {
	return &Engine{
		Store:        store,
		SourceMount:  sourceMount,
		DestMount:    destMount,
		SettingsFn:   settingsFn,
		TimeProvider: &RealTimeProvider{},
		Notifier:     NopNotifier{},
		History:      nopHistory{},
		Enricher:     apperrors.NewEnricher(),
		Logger:       logger,
		copyFile:     fileops.CopyFileChunked,
	}
}

// SetEventEmitter sets the event emitter for observer communication.
// The emitter is optional - if nil, no events will be emitted.
func (e *Engine) SetEventEmitter(emitter EventEmitter) {
	e.emitter = emitter
}

func (e *Engine) emit(event Event) {
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
}

// job holds the per-run state of a single transfer.
type job struct {
	files          []fileops.FileEntry
	settings       config.Settings
	destDir        string
	destination    string
	totalBytes     int64
	processedBytes int64
	completed      int
	errors         []string
	startedAt      time.Time
	lastEmit       time.Time
	speed          *SpeedEstimator
	milestones     *MilestoneNotifier
	cancelChan     chan struct{}
}

// StartTransfer validates preconditions, marks the job active, and runs the
// copy loop on a new goroutine. Precondition checks and the activation are
// atomic: concurrent starts cannot both succeed.
func (e *Engine) StartTransfer(selected []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrTransferActive
	}

	if !e.Store.SourceReady() {
		return ErrNoSource
	}

	if !e.Store.DestReady() {
		return ErrNoDestination
	}

	if len(selected) == 0 {
		return ErrNoFilesSelected
	}

	toCopy := e.resolveSelection(selected)
	if len(toCopy) == 0 {
		return ErrNoFilesSelected
	}

	j := e.newJob(toCopy)

	e.running = true
	e.cancelChan = j.cancelChan
	e.cancelOnce = &sync.Once{}

	go e.runJob(j)

	return nil
}

// resolveSelection maps selected names to scanned entries, preserving
// selection order. Names that no longer resolve are dropped and logged.
func (e *Engine) resolveSelection(selected []string) []fileops.FileEntry {
	byName := map[string]fileops.FileEntry{}
	for _, f := range e.Store.Files() {
		byName[f.Name] = f
	}

	var toCopy []fileops.FileEntry

	for _, name := range selected {
		entry, ok := byName[name]
		if !ok {
			e.Logger.Printf("skipping %s: no longer present on source device", name)

			continue
		}

		toCopy = append(toCopy, entry)
	}

	return toCopy
}

func (e *Engine) newJob(toCopy []fileops.FileEntry) *job {
	settings := e.SettingsFn()

	var total int64

	names := make([]string, 0, len(toCopy))

	for _, f := range toCopy {
		total += f.Size
		names = append(names, f.Name)
	}

	now := e.TimeProvider.Now()

	j := &job{
		files:       toCopy,
		settings:    settings,
		destDir:     filepath.Join(e.DestMount, settings.Subfolder),
		destination: settings.DestinationString(),
		totalBytes:  total,
		startedAt:   now,
		speed:       NewSpeedEstimator(),
		milestones:  NewMilestoneNotifier(e.Notifier, settings.NotifyMilestones),
		cancelChan:  make(chan struct{}),
	}

	e.Store.updateTransfer(func(t *Transfer) {
		*t = Transfer{
			Active:      true,
			StartedAt:   now,
			Destination: j.destination,
			TotalFiles:  len(toCopy),
			TotalBytes:  total,
			FileNames:   names,
			Errors:      []string{},
		}
	})

	e.emit(TransferStarted{
		TotalFiles:     len(toCopy),
		TotalSize:      total,
		TotalSizeHuman: formatters.FormatBytes(total),
	})
	j.milestones.JobStarted(len(toCopy), total, j.destination)

	return j
}

// CancelTransfer signals the running job to stop. It is safe to call at any
// time and is idempotent; with no job running it does nothing.
func (e *Engine) CancelTransfer() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running || e.cancelChan == nil {
		return
	}

	e.cancelOnce.Do(func() {
		close(e.cancelChan)
	})
}

// Running reports whether a job is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.running
}

// ClearFinished resets the transfer state if no job is active.
func (e *Engine) ClearFinished() {
	e.Store.ClearFinished()
}

func (e *Engine) runJob(j *job) {
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	for i, entry := range j.files {
		if isClosed(j.cancelChan) {
			e.finishCancelled()

			return
		}

		e.Store.updateTransfer(func(t *Transfer) {
			t.CurrentFile = entry.Name
			t.CurrentFileIndex = i
			t.CurrentFilePercent = 0
		})
		e.emit(FileStarted{Index: i, FileName: entry.Name, SizeHuman: entry.SizeHuman})

		err := e.copyOne(j, i, entry)

		switch {
		case errors.Is(err, fileops.ErrCopyCancelled):
			e.finishCancelled()

			return
		case err != nil:
			e.recordFileError(j, i, entry, err)
		default:
			e.recordFileDone(j, i, entry)
		}
	}

	e.finishComplete(j)
}

// copyOne copies and optionally verifies a single file. A panic in the copy
// path is converted to a per-file error so the job can continue.
func (e *Engine) copyOne(j *job, idx int, entry fileops.FileEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("copy of %s panicked: %v", entry.Name, r)
		}
	}()

	src := filepath.Join(e.SourceMount, entry.Name)
	dst := filepath.Join(j.destDir, filepath.Base(entry.Name))

	progress := func(fileBytes int64) {
		e.reportProgress(j, idx, entry, fileBytes)
	}

	if _, err := e.copyFile(src, dst, progress, j.cancelChan); err != nil {
		return err
	}

	if j.settings.VerifyChecksums {
		return e.verifyFile(j, idx, entry, src, dst)
	}

	return nil
}

func (e *Engine) reportProgress(j *job, idx int, entry fileops.FileEntry, fileBytes int64) {
	now := e.TimeProvider.Now()
	processed := j.processedBytes + fileBytes

	j.speed.Add(now, processed)

	filePct := percent(fileBytes, entry.Size)
	overallPct := percent(processed, j.totalBytes)
	speedBPS := j.speed.Speed()
	etaSec := j.speed.ETA(j.totalBytes - processed)

	e.Store.updateTransfer(func(t *Transfer) {
		t.CurrentFilePercent = filePct
		t.BytesDone = processed
		t.OverallPercent = overallPct
		t.SpeedBPS = speedBPS
		t.ETASeconds = etaSec
	})

	if now.Sub(j.lastEmit) < ProgressInterval {
		return
	}

	j.lastEmit = now

	etaHuman := "calculating"
	if etaSec >= 0 {
		etaHuman = formatters.FormatETA(time.Duration(etaSec * float64(time.Second)))
	}

	j.milestones.Check(overallPct)
	e.emit(FileProgress{
		Index:          idx,
		FileName:       entry.Name,
		FilePercent:    filePct,
		OverallPercent: overallPct,
		CompletedFiles: j.completed,
		TotalFiles:     len(j.files),
		BytesDone:      processed,
		SpeedBPS:       speedBPS,
		SpeedHuman:     formatters.FormatSpeed(speedBPS),
		ETASeconds:     etaSec,
		ETAHuman:       etaHuman,
	})
}

func (e *Engine) verifyFile(j *job, idx int, entry fileops.FileEntry, src, dst string) error {
	e.Store.updateTransfer(func(t *Transfer) {
		t.CurrentFile = "Verifying: " + entry.Name
	})
	e.emit(FileVerifying{Index: idx, FileName: entry.Name})

	srcSum, err := fileops.MD5File(src)
	if err != nil {
		return fmt.Errorf("failed to checksum source %s: %w", src, err)
	}

	dstSum, err := fileops.MD5File(dst)
	if err != nil {
		return fmt.Errorf("failed to checksum destination %s: %w", dst, err)
	}

	if srcSum != dstSum {
		// The copy is not trustworthy; remove it so a retry starts clean.
		_ = os.Remove(dst)

		return fmt.Errorf("checksum mismatch for %s: source %s, destination %s",
			entry.Name, srcSum, dstSum)
	}

	return nil
}

func (e *Engine) recordFileError(j *job, idx int, entry fileops.FileEntry, err error) {
	enriched := e.Enricher.Enrich(err, entry.Name)
	e.Logger.Printf("file error: %v", enriched)

	j.errors = append(j.errors, enriched.Error())
	j.processedBytes += entry.Size

	overallPct := percent(j.processedBytes, j.totalBytes)

	e.Store.updateTransfer(func(t *Transfer) {
		t.Errors = append(t.Errors, enriched.Error())
		t.BytesDone = j.processedBytes
		t.OverallPercent = overallPct
		t.CurrentFilePercent = 0
	})

	e.emit(FileError{
		Index:       idx,
		FileName:    entry.Name,
		Error:       enriched.Error(),
		Suggestions: suggestionsFor(enriched),
	})
}

func (e *Engine) recordFileDone(j *job, idx int, entry fileops.FileEntry) {
	j.completed++
	j.processedBytes += entry.Size

	overallPct := percent(j.processedBytes, j.totalBytes)
	completed := j.completed

	e.Store.updateTransfer(func(t *Transfer) {
		t.CompletedFiles = completed
		t.BytesDone = j.processedBytes
		t.OverallPercent = overallPct
		t.CurrentFilePercent = 100
	})

	j.milestones.Check(overallPct)
	e.emit(FileComplete{Index: idx, FileName: entry.Name, OverallPercent: overallPct})
}

func (e *Engine) finishCancelled() {
	e.Store.updateTransfer(func(t *Transfer) {
		t.Active = false
		t.CurrentFile = ""
		t.SpeedBPS = 0
		t.ETASeconds = -1
	})
	e.emit(TransferCancelled{})
	e.Logger.Printf("transfer cancelled")
}

func (e *Engine) finishComplete(j *job) {
	elapsed := e.TimeProvider.Now().Sub(j.startedAt)

	avgSpeed := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		avgSpeed = float64(j.totalBytes) / secs
	}

	summary := FinishSummary{
		Title:          fmt.Sprintf("%d files to %s", len(j.files), j.destination),
		TotalFiles:     len(j.files),
		CompletedFiles: j.completed,
		TotalSizeHuman: formatters.FormatBytes(j.totalBytes),
		Duration:       formatters.FormatDuration(elapsed),
		AvgSpeed:       formatters.FormatSpeed(avgSpeed),
		Destination:    j.destination,
		Errors:         append([]string(nil), j.errors...),
	}

	e.Store.updateTransfer(func(t *Transfer) {
		t.Active = false
		t.Finished = true
		t.CurrentFile = ""
		t.OverallPercent = 100
		t.SpeedBPS = 0
		t.ETASeconds = 0
		t.Summary = &summary
	})

	j.milestones.Check(100)
	j.milestones.JobFinished(summary)

	fileNames := make([]string, 0, len(j.files))
	for _, f := range j.files {
		fileNames = append(fileNames, f.Name)
	}

	records, err := e.History.Append(history.Record{
		Title:      summary.Title,
		StartedAt:  j.startedAt,
		Duration:   summary.Duration,
		TotalSize:  summary.TotalSizeHuman,
		AvgSpeed:   summary.AvgSpeed,
		TotalFiles: len(j.files),
		ErrorCount: len(j.errors),
		FileNames:  fileNames,
	})
	if err != nil {
		e.Logger.Printf("failed to record transfer history: %v", err)
	}

	e.emit(TransferComplete{Summary: summary, History: records})
}

func percent(done, total int64) float64 {
	if total <= 0 {
		return 100
	}

	return float64(done) / float64(total) * 100
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func suggestionsFor(err error) []string {
	var actionable apperrors.ActionableError
	if errors.As(err, &actionable) {
		return actionable.Suggestions()
	}

	return nil
}
