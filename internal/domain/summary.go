package domain

import "time"

// CycleSummary reports per-outcome counts for one sync cycle.
type CycleSummary struct {
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	Quarantined int           `json:"quarantined"`
	Duration    time.Duration `json:"duration"`
}

// Add accumulates another summary into this one.
func (s *CycleSummary) Add(other CycleSummary) {
	s.Succeeded += other.Succeeded
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.Quarantined += other.Quarantined
	s.Duration += other.Duration
}

// Total returns the number of items the cycle touched.
func (s CycleSummary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped + s.Quarantined
}
