package syncer

import (
	"time"

	"github.com/chxlky/homework-board-sync/internal/models"
)

// ActivePeriod picks the grading period containing now. Failing that (a break
// between terms) it picks the period with a boundary closest to now. Ties go
// to the earliest entry in periods. It returns nil for an empty list.
func ActivePeriod(periods []models.GradingPeriod, now time.Time) *models.GradingPeriod {
	for i := range periods {
		if periods[i].Contains(now) {
			p := periods[i]
			return &p
		}
	}

	var best *models.GradingPeriod
	var bestDist time.Duration
	for i := range periods {
		dist := min(absDuration(now.Sub(periods[i].Start)), absDuration(now.Sub(periods[i].End)))
		if best == nil || dist < bestDist {
			p := periods[i]
			best, bestDist = &p, dist
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Window is an inclusive admission interval for assignment dates. A zero To
// leaves the interval open towards the future.
type Window struct {
	From time.Time
	To   time.Time
}

// AdmissionWindow widens period by grace on both sides. When no period was
// resolved it admits everything from recency before now onwards.
func AdmissionWindow(period *models.GradingPeriod, now time.Time, grace, recency time.Duration) Window {
	if period != nil {
		return Window{From: period.Start.Add(-grace), To: period.End.Add(grace)}
	}
	return Window{From: now.Add(-recency)}
}

func (w Window) Contains(t time.Time) bool {
	if t.Before(w.From) {
		return false
	}
	return w.To.IsZero() || !t.After(w.To)
}

func gradingPeriods(wire []models.CanvasGradingPeriod) []models.GradingPeriod {
	periods := make([]models.GradingPeriod, 0, len(wire))
	for _, p := range wire {
		if gp, ok := p.GradingPeriod(); ok {
			periods = append(periods, gp)
		}
	}
	return periods
}
