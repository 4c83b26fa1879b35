package service

import "sync"

// Summary is the caller-visible outcome of one dispatch run. The caller
// decides how to present it: exit code, log line, or both.
type Summary struct {
	Attempted int
	Failed    int
	// Failures maps each failed recipient to its recorded detail.
	Failures map[string]string
}

// aggregator accumulates outcomes across the run. Workers may report
// concurrently, so counts are mutex-guarded.
type aggregator struct {
	mu       sync.Mutex
	summary  Summary
}

func newAggregator() *aggregator {
	return &aggregator{summary: Summary{Failures: make(map[string]string)}}
}

func (a *aggregator) recordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Attempted++
}

func (a *aggregator) recordFailure(address, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary.Attempted++
	a.summary.Failed++
	a.summary.Failures[address] = detail
}

func (a *aggregator) result() *Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := Summary{
		Attempted: a.summary.Attempted,
		Failed:    a.summary.Failed,
		Failures:  make(map[string]string, len(a.summary.Failures)),
	}
	for address, detail := range a.summary.Failures {
		out.Failures[address] = detail
	}
	return &out
}
