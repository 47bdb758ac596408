package analytics

import "math"

// Running holds the per-quiz aggregates maintained incrementally as
// attempts finish. Updates are O(1); history is never rescanned.
type Running struct {
	TotalAttempts      int     `json:"totalAttempts"`
	CompletedAttempts  int     `json:"completedAttempts"`
	AverageScore       float64 `json:"averageScore"`       // mean of per-attempt percentage
	AverageTimeMinutes float64 `json:"averageTimeMinutes"` // mean over completed attempts
	CompletionRate     float64 `json:"completionRate"`     // percent, 2 decimal places
}

// Advance folds one finished attempt into the running aggregates using the
// standard incremental-mean formula. Score and time only contribute when the
// attempt completed; abandoned/expired attempts still move the completion
// rate.
func Advance(prev Running, percentage, timeMinutes float64, completed bool) Running {
	next := prev
	next.TotalAttempts++
	if completed {
		n := float64(prev.CompletedAttempts)
		next.CompletedAttempts++
		next.AverageScore = (prev.AverageScore*n + percentage) / (n + 1)
		next.AverageTimeMinutes = (prev.AverageTimeMinutes*n + timeMinutes) / (n + 1)
	}
	next.CompletionRate = round2(float64(next.CompletedAttempts) / float64(next.TotalAttempts) * 100)
	return next
}

// CompletedAttempt is the slice of an attempt the full recomputation needs.
type CompletedAttempt struct {
	StudentID   string
	Percentage  float64
	TimeMinutes float64
}

// Summary is the on-demand rollup for a quiz detail view.
type Summary struct {
	TotalAttempts      int     `json:"totalAttempts"`
	DistinctStudents   int     `json:"distinctStudents"`
	AverageScore       float64 `json:"averageScore"`
	HighestScore       float64 `json:"highestScore"`
	LowestScore        float64 `json:"lowestScore"`
	PassRate           float64 `json:"passRate"`
	AverageTimeMinutes float64 `json:"averageTimeMinutes"`
}

// DefaultPassingScore applies when a quiz has no explicit threshold.
const DefaultPassingScore = 70

// Summarize scans the completed attempts of one quiz. Average score is the
// mean of per-attempt percentages, the same definition the incremental path
// uses. Zero attempts yield a zeroed summary.
func Summarize(attempts []CompletedAttempt, passingScore float64) Summary {
	if len(attempts) == 0 {
		return Summary{}
	}
	if passingScore <= 0 {
		passingScore = DefaultPassingScore
	}
	students := make(map[string]struct{}, len(attempts))
	var sumScore, sumTime float64
	passed := 0
	min, max := attempts[0].Percentage, attempts[0].Percentage
	for _, a := range attempts {
		students[a.StudentID] = struct{}{}
		sumScore += a.Percentage
		sumTime += a.TimeMinutes
		if a.Percentage >= passingScore {
			passed++
		}
		if a.Percentage < min {
			min = a.Percentage
		}
		if a.Percentage > max {
			max = a.Percentage
		}
	}
	n := float64(len(attempts))
	return Summary{
		TotalAttempts:      len(attempts),
		DistinctStudents:   len(students),
		AverageScore:       round2(sumScore / n),
		HighestScore:       max,
		LowestScore:        min,
		PassRate:           round2(float64(passed) / n * 100),
		AverageTimeMinutes: round2(sumTime / n),
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
