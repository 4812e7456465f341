package usecase

import "sync"

// TenantStats keeps a rolling window of confidence observations per tenant
// so the low-confidence rate reflects recent behavior, not lifetime totals.
type TenantStats struct {
	mu        sync.Mutex
	size      int
	threshold float64
	windows   map[string]*confidenceWindow
}

type confidenceWindow struct {
	values []float64
	next   int
	filled bool
}

func NewTenantStats(windowSize int, threshold float64) *TenantStats {
	if windowSize <= 0 {
		windowSize = 1
	}
	return &TenantStats{
		size:      windowSize,
		threshold: threshold,
		windows:   make(map[string]*confidenceWindow),
	}
}

// Observe records a confidence value for the tenant and returns the fraction
// of observations in the current window below the abstention threshold.
func (s *TenantStats) Observe(tenant string, confidence float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[tenant]
	if !ok {
		w = &confidenceWindow{values: make([]float64, s.size)}
		s.windows[tenant] = w
	}

	w.values[w.next] = confidence
	w.next++
	if w.next == len(w.values) {
		w.next = 0
		w.filled = true
	}

	count := w.next
	if w.filled {
		count = len(w.values)
	}

	low := 0
	for _, v := range w.values[:count] {
		if v < s.threshold {
			low++
		}
	}
	return float64(low) / float64(count)
}
