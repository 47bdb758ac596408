package grading

// Question types on the wire.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeShortAnswer    = "short_answer"
)

// Q is a minimal view of a question needed for grading.
type Q struct {
	ID     string
	Type   string
	Points float64
	Key    Answer // authoritative correctness key
}

// Result is the outcome of grading a single question response.
type Result struct {
	IsCorrect    bool
	PointsEarned float64
}

// Strategy grades a single question. Strategies are pure and total:
// a malformed or missing answer grades as incorrect, never as an error,
// so one bad response cannot abort a whole submission.
type Strategy interface {
	Grade(q Q, answer Answer) Result
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q Q, answer Answer) Result
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, answer Answer) Result {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}
	}
	return s.Grade(q, answer)
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeMultipleChoice: multipleChoiceStrategy{},
			TypeTrueFalse:      trueFalseStrategy{},
			TypeShortAnswer:    shortAnswerStrategy{},
		},
	}
}

// --- Strategies ---

type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(q Q, answer Answer) Result {
	if answer.Option == nil || q.Key.Option == nil {
		return Result{}
	}
	if *answer.Option != *q.Key.Option {
		return Result{}
	}
	return Result{IsCorrect: true, PointsEarned: q.Points}
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(q Q, answer Answer) Result {
	if answer.Bool == nil || q.Key.Bool == nil {
		return Result{}
	}
	if *answer.Bool != *q.Key.Bool {
		return Result{}
	}
	return Result{IsCorrect: true, PointsEarned: q.Points}
}

// shortAnswerStrategy compares normalized (trimmed, case-folded) strings.
// A submission also counts as correct when either normalized string
// contains the other. The containment rule is an intentionally loose
// heuristic, not NLP grading.
type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Grade(q Q, answer Answer) Result {
	if answer.Text == nil || q.Key.Text == nil {
		return Result{}
	}
	if !textMatches(*q.Key.Text, *answer.Text) {
		return Result{}
	}
	return Result{IsCorrect: true, PointsEarned: q.Points}
}
