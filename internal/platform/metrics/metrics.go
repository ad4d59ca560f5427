package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	assessmentSaves   uint64
	reportsGenerated  uint64
	reportsSkipped    uint64
	reportsFinalized  uint64
	documentsRendered uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) AssessmentSaved() {
	atomic.AddUint64(&c.assessmentSaves, 1)
}

// ReportCards counts one generation batch.
func (c *Collector) ReportCards(generated, skipped int) {
	atomic.AddUint64(&c.reportsGenerated, uint64(generated))
	atomic.AddUint64(&c.reportsSkipped, uint64(skipped))
}

func (c *Collector) ReportCardFinalized() {
	atomic.AddUint64(&c.reportsFinalized, 1)
}

func (c *Collector) DocumentRendered() {
	atomic.AddUint64(&c.documentsRendered, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":           total,
		"errorsTotal":             errs,
		"rateLimitedTotal":        limited,
		"avgDurationMs":           avg,
		"totalDurationMs":         totalMs,
		"assessmentSavesTotal":    atomic.LoadUint64(&c.assessmentSaves),
		"reportCardsGenerated":    atomic.LoadUint64(&c.reportsGenerated),
		"reportCardsSkipped":      atomic.LoadUint64(&c.reportsSkipped),
		"reportCardsFinalized":    atomic.LoadUint64(&c.reportsFinalized),
		"reportDocumentsRendered": atomic.LoadUint64(&c.documentsRendered),
	}
}
