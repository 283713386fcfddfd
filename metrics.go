package fhirloader

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks loader run metrics using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Bundle counts
	bundlesProcessed atomic.Uint64
	bundlesUploaded  atomic.Uint64
	bundlesSkipped   atomic.Uint64
	bundlesFailed    atomic.Uint64
	bundlesSplit     atomic.Uint64

	// Resolution counts
	stubsSynthesized atomic.Uint64
	refsRewritten    atomic.Uint64
	refsUnresolved   atomic.Uint64

	// Submission counts
	subBundlesSubmitted atomic.Uint64
	retries             atomic.Uint64

	// Per-bundle timing (stored as nanoseconds)
	bundleTimeTotal atomic.Uint64
	bundleTimeMin   atomic.Uint64
	bundleTimeMax   atomic.Uint64

	// Issue counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64
	infosTotal    atomic.Uint64

	// Per-phase timing
	phaseTiming sync.Map // map[string]*phaseMetrics
}

// phaseMetrics tracks metrics for a single pipeline phase.
type phaseMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
	issuesFound atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.bundleTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordBundle records a completed bundle, whatever its outcome.
func (m *Metrics) RecordBundle(duration time.Duration, uploaded bool) {
	m.bundlesProcessed.Add(1)
	if uploaded {
		m.bundlesUploaded.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // Safe: nanoseconds are always positive for valid durations
	m.bundleTimeTotal.Add(ns)

	// Update min (CAS loop)
	for {
		old := m.bundleTimeMin.Load()
		if ns >= old {
			break
		}
		if m.bundleTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (CAS loop)
	for {
		old := m.bundleTimeMax.Load()
		if ns <= old {
			break
		}
		if m.bundleTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordSkipped records a bundle skipped before submission.
func (m *Metrics) RecordSkipped() {
	m.bundlesSkipped.Add(1)
}

// RecordFailed records a bundle whose submission failed.
func (m *Metrics) RecordFailed() {
	m.bundlesFailed.Add(1)
}

// RecordSplit records a bundle split into multiple sub-bundles.
func (m *Metrics) RecordSplit() {
	m.bundlesSplit.Add(1)
}

// RecordStubs records placeholder resources synthesized for one bundle.
func (m *Metrics) RecordStubs(n int) {
	m.stubsSynthesized.Add(uint64(n)) //nolint:gosec // Safe: n is a small positive count
}

// RecordRewritten records reference substitutions made for one bundle.
func (m *Metrics) RecordRewritten(n int) {
	m.refsRewritten.Add(uint64(n)) //nolint:gosec // Safe: n is a small positive count
}

// RecordUnresolved records conditional references left verbatim.
func (m *Metrics) RecordUnresolved(n int) {
	m.refsUnresolved.Add(uint64(n)) //nolint:gosec // Safe: n is a small positive count
}

// RecordSubmission records an accepted sub-bundle transaction.
func (m *Metrics) RecordSubmission() {
	m.subBundlesSubmitted.Add(1)
}

// RecordRetry records a retried store call.
func (m *Metrics) RecordRetry() {
	m.retries.Add(1)
}

// RecordIssue records an issue based on severity.
func (m *Metrics) RecordIssue(severity IssueSeverity) {
	switch severity {
	case SeverityError:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	case SeverityInformation:
		m.infosTotal.Add(1)
	}
}

// RecordPhase records metrics for a pipeline phase.
func (m *Metrics) RecordPhase(phaseName string, duration time.Duration, issuesFound int) {
	pm := m.getOrCreatePhaseMetrics(phaseName)
	pm.invocations.Add(1)
	pm.totalTime.Add(uint64(duration.Nanoseconds())) //nolint:gosec // Safe: nanoseconds are always positive
	pm.issuesFound.Add(uint64(issuesFound))          //nolint:gosec // Safe: issuesFound is a small positive integer
}

func (m *Metrics) getOrCreatePhaseMetrics(name string) *phaseMetrics {
	if v, ok := m.phaseTiming.Load(name); ok {
		return v.(*phaseMetrics)
	}
	pm := &phaseMetrics{}
	actual, _ := m.phaseTiming.LoadOrStore(name, pm)
	return actual.(*phaseMetrics)
}

// --- Query Methods ---

// BundlesProcessed returns the total number of bundles processed.
func (m *Metrics) BundlesProcessed() uint64 {
	return m.bundlesProcessed.Load()
}

// BundlesUploaded returns the number of fully submitted bundles.
func (m *Metrics) BundlesUploaded() uint64 {
	return m.bundlesUploaded.Load()
}

// BundlesSkipped returns the number of skipped bundles.
func (m *Metrics) BundlesSkipped() uint64 {
	return m.bundlesSkipped.Load()
}

// BundlesFailed returns the number of failed bundles.
func (m *Metrics) BundlesFailed() uint64 {
	return m.bundlesFailed.Load()
}

// BundlesSplit returns the number of bundles that needed splitting.
func (m *Metrics) BundlesSplit() uint64 {
	return m.bundlesSplit.Load()
}

// StubsSynthesized returns the total stub resources created.
func (m *Metrics) StubsSynthesized() uint64 {
	return m.stubsSynthesized.Load()
}

// RefsRewritten returns the total reference substitutions made.
func (m *Metrics) RefsRewritten() uint64 {
	return m.refsRewritten.Load()
}

// RefsUnresolved returns the total references left verbatim.
func (m *Metrics) RefsUnresolved() uint64 {
	return m.refsUnresolved.Load()
}

// SubBundlesSubmitted returns the total accepted transactions.
func (m *Metrics) SubBundlesSubmitted() uint64 {
	return m.subBundlesSubmitted.Load()
}

// Retries returns the total retried store calls.
func (m *Metrics) Retries() uint64 {
	return m.retries.Load()
}

// UploadRate returns the fraction of processed bundles fully submitted (0.0 to 1.0).
func (m *Metrics) UploadRate() float64 {
	total := m.bundlesProcessed.Load()
	if total == 0 {
		return 0
	}
	return float64(m.bundlesUploaded.Load()) / float64(total)
}

// AverageBundleTime returns the average per-bundle duration.
func (m *Metrics) AverageBundleTime() time.Duration {
	total := m.bundlesProcessed.Load()
	if total == 0 {
		return 0
	}
	avgNs := m.bundleTimeTotal.Load() / total
	return time.Duration(avgNs) //nolint:gosec // Safe: avgNs represents nanoseconds within int64 range
}

// MinBundleTime returns the minimum per-bundle duration.
func (m *Metrics) MinBundleTime() time.Duration {
	minVal := m.bundleTimeMin.Load()
	if minVal == ^uint64(0) {
		return 0
	}
	return time.Duration(minVal) //nolint:gosec // Safe: minVal represents nanoseconds within int64 range
}

// MaxBundleTime returns the maximum per-bundle duration.
func (m *Metrics) MaxBundleTime() time.Duration {
	return time.Duration(m.bundleTimeMax.Load()) //nolint:gosec // Safe: nanoseconds within int64 range
}

// ErrorsTotal returns the total error issues found.
func (m *Metrics) ErrorsTotal() uint64 {
	return m.errorsTotal.Load()
}

// WarningsTotal returns the total warning issues found.
func (m *Metrics) WarningsTotal() uint64 {
	return m.warningsTotal.Load()
}

// InfosTotal returns the total informational issues found.
func (m *Metrics) InfosTotal() uint64 {
	return m.infosTotal.Load()
}

// PhaseStats holds statistics for a single pipeline phase.
type PhaseStats struct {
	Name        string
	Invocations uint64
	TotalTime   time.Duration
	AvgTime     time.Duration
	IssuesFound uint64
}

// PhaseStats returns statistics for a specific phase.
func (m *Metrics) PhaseStats(phaseName string) (PhaseStats, bool) {
	v, ok := m.phaseTiming.Load(phaseName)
	if !ok {
		return PhaseStats{Name: phaseName}, false
	}
	pm := v.(*phaseMetrics)
	invocations := pm.invocations.Load()
	totalTime := pm.totalTime.Load()

	var avgTime time.Duration
	if invocations > 0 {
		avgTime = time.Duration(totalTime / invocations) //nolint:gosec // Safe: nanoseconds within int64 range
	}

	return PhaseStats{
		Name:        phaseName,
		Invocations: invocations,
		TotalTime:   time.Duration(totalTime), //nolint:gosec // Safe: nanoseconds within int64 range
		AvgTime:     avgTime,
		IssuesFound: pm.issuesFound.Load(),
	}, true
}

// AllPhaseStats returns statistics for all phases.
func (m *Metrics) AllPhaseStats() []PhaseStats {
	var stats []PhaseStats
	m.phaseTiming.Range(func(key, value any) bool {
		pm := value.(*phaseMetrics)
		name := key.(string)
		invocations := pm.invocations.Load()
		totalTime := pm.totalTime.Load()

		var avgTime time.Duration
		if invocations > 0 {
			avgTime = time.Duration(totalTime / invocations) //nolint:gosec // Safe: nanoseconds within int64 range
		}

		stats = append(stats, PhaseStats{
			Name:        name,
			Invocations: invocations,
			TotalTime:   time.Duration(totalTime), //nolint:gosec // Safe: nanoseconds within int64 range
			AvgTime:     avgTime,
			IssuesFound: pm.issuesFound.Load(),
		})
		return true
	})
	return stats
}

// --- Export Methods ---

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timestamp when the snapshot was taken
	Timestamp time.Time `json:"timestamp"`

	// Bundle metrics
	BundlesProcessed uint64  `json:"bundles_processed"`
	BundlesUploaded  uint64  `json:"bundles_uploaded"`
	BundlesSkipped   uint64  `json:"bundles_skipped"`
	BundlesFailed    uint64  `json:"bundles_failed"`
	BundlesSplit     uint64  `json:"bundles_split"`
	UploadRate       float64 `json:"upload_rate"`

	// Resolution metrics
	StubsSynthesized uint64 `json:"stubs_synthesized"`
	RefsRewritten    uint64 `json:"refs_rewritten"`
	RefsUnresolved   uint64 `json:"refs_unresolved"`

	// Submission metrics
	SubBundlesSubmitted uint64 `json:"sub_bundles_submitted"`
	Retries             uint64 `json:"retries"`

	// Timing metrics (in nanoseconds for precision)
	AvgBundleTimeNs uint64 `json:"avg_bundle_time_ns"`
	MinBundleTimeNs uint64 `json:"min_bundle_time_ns"`
	MaxBundleTimeNs uint64 `json:"max_bundle_time_ns"`

	// Issue metrics
	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`
	InfosTotal    uint64 `json:"infos_total"`

	// Phase metrics
	Phases []PhaseStats `json:"phases,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	total := m.bundlesProcessed.Load()

	var avgTime, uploadRate float64
	if total > 0 {
		avgTime = float64(m.bundleTimeTotal.Load()) / float64(total)
		uploadRate = float64(m.bundlesUploaded.Load()) / float64(total)
	}

	minTime := m.bundleTimeMin.Load()
	if minTime == ^uint64(0) {
		minTime = 0
	}

	return Snapshot{
		Timestamp:           time.Now(),
		BundlesProcessed:    total,
		BundlesUploaded:     m.bundlesUploaded.Load(),
		BundlesSkipped:      m.bundlesSkipped.Load(),
		BundlesFailed:       m.bundlesFailed.Load(),
		BundlesSplit:        m.bundlesSplit.Load(),
		UploadRate:          uploadRate,
		StubsSynthesized:    m.stubsSynthesized.Load(),
		RefsRewritten:       m.refsRewritten.Load(),
		RefsUnresolved:      m.refsUnresolved.Load(),
		SubBundlesSubmitted: m.subBundlesSubmitted.Load(),
		Retries:             m.retries.Load(),
		AvgBundleTimeNs:     uint64(avgTime),
		MinBundleTimeNs:     minTime,
		MaxBundleTimeNs:     m.bundleTimeMax.Load(),
		ErrorsTotal:         m.errorsTotal.Load(),
		WarningsTotal:       m.warningsTotal.Load(),
		InfosTotal:          m.infosTotal.Load(),
		Phases:              m.AllPhaseStats(),
	}
}

// Export returns metrics as a map suitable for external systems (Prometheus, etc.).
func (m *Metrics) Export() map[string]interface{} {
	s := m.Snapshot()
	return map[string]interface{}{
		"bundles_processed":     s.BundlesProcessed,
		"bundles_uploaded":      s.BundlesUploaded,
		"bundles_skipped":       s.BundlesSkipped,
		"bundles_failed":        s.BundlesFailed,
		"bundles_split":         s.BundlesSplit,
		"upload_rate":           s.UploadRate,
		"stubs_synthesized":     s.StubsSynthesized,
		"refs_rewritten":        s.RefsRewritten,
		"refs_unresolved":       s.RefsUnresolved,
		"sub_bundles_submitted": s.SubBundlesSubmitted,
		"retries":               s.Retries,
		"avg_bundle_time_ns":    s.AvgBundleTimeNs,
		"min_bundle_time_ns":    s.MinBundleTimeNs,
		"max_bundle_time_ns":    s.MaxBundleTimeNs,
		"errors_total":          s.ErrorsTotal,
		"warnings_total":        s.WarningsTotal,
		"infos_total":           s.InfosTotal,
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.bundlesProcessed.Store(0)
	m.bundlesUploaded.Store(0)
	m.bundlesSkipped.Store(0)
	m.bundlesFailed.Store(0)
	m.bundlesSplit.Store(0)
	m.stubsSynthesized.Store(0)
	m.refsRewritten.Store(0)
	m.refsUnresolved.Store(0)
	m.subBundlesSubmitted.Store(0)
	m.retries.Store(0)
	m.bundleTimeTotal.Store(0)
	m.bundleTimeMin.Store(^uint64(0))
	m.bundleTimeMax.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)

	// Clear phase timing
	m.phaseTiming.Range(func(key, _ any) bool {
		m.phaseTiming.Delete(key)
		return true
	})
}
