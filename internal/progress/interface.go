// Package progress provides progress reporting for transfers and batch
// operations.
package progress

// Reporter is the interface for reporting a single transfer's progress.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// BatchReporter receives item-level progress from the batch acquisition
// pipeline. Percent is 0-100, computed from completed/total; it is emitted
// after every item regardless of that item's success.
type BatchReporter interface {
	// ItemDone is called after each item completes or fails.
	// completed counts both successes and failures.
	ItemDone(completed, total int, name string, err error)
}

// BatchReporterFunc adapts a function to the BatchReporter interface.
type BatchReporterFunc func(completed, total int, name string, err error)

// ItemDone implements BatchReporter.
func (f BatchReporterFunc) ItemDone(completed, total int, name string, err error) {
	f(completed, total, name, err)
}

// Percent converts completed/total into a 0-100 integer percentage.
// Integer math keeps the sequence monotone and lands exactly on 100.
func Percent(completed, total int) int {
	if total <= 0 {
		return 100
	}
	return completed * 100 / total
}
