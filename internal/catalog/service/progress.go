package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/narwhalmedia/catalog/internal/catalog/domain"
)

// ThrottleProgress wraps fn so that processing updates are delivered at
// most once per interval. Phase changes and the last item of a phase are
// always delivered.
func ThrottleProgress(fn ProgressFunc, interval time.Duration) ProgressFunc {
	if fn == nil || interval <= 0 {
		return fn
	}

	var (
		mu        sync.Mutex
		lastPhase string
		sometimes = rate.Sometimes{Interval: interval}
	)
	return func(p domain.ScanProgress) {
		mu.Lock()
		defer mu.Unlock()

		if p.Phase != lastPhase || (p.Total > 0 && p.Current >= p.Total) {
			lastPhase = p.Phase
			fn(p)
			return
		}
		sometimes.Do(func() { fn(p) })
	}
}
