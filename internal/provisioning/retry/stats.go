package retry

import "github.com/minhvu-dev/provisioner/internal/core/domain"

// recentAttemptCount bounds the attempt window exposed in Stats.
const recentAttemptCount = 10

// Stats summarizes the attempt history of one executor.
type Stats struct {
	TotalAttempts  int                    `json:"total_attempts"`
	Successful     int                    `json:"successful"`
	Failed         int                    `json:"failed"`
	SuccessRate    float64                `json:"success_rate"`
	RecentAttempts []domain.AttemptRecord `json:"recent_attempts"`
}

// Stats computes retry statistics from the recorded history. History lives
// in memory only; counts reset when the process restarts.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{TotalAttempts: len(e.history)}
	for _, rec := range e.history {
		if rec.Success {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	if s.TotalAttempts > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.TotalAttempts)
	}

	start := len(e.history) - recentAttemptCount
	if start < 0 {
		start = 0
	}
	s.RecentAttempts = append([]domain.AttemptRecord(nil), e.history[start:]...)
	return s
}

// History returns a copy of the full attempt history.
func (e *Executor) History() []domain.AttemptRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.AttemptRecord(nil), e.history...)
}
