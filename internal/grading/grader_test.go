package grading

import (
	"encoding/json"
	"testing"
)

func TestMultipleChoice(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: "q1", Type: TypeMultipleChoice, Points: 5, Key: OptionAnswer(2)}

	if res := g.Grade(q, OptionAnswer(2)); !res.IsCorrect || res.PointsEarned != 5 {
		t.Fatalf("correct option: got %+v", res)
	}
	if res := g.Grade(q, OptionAnswer(1)); res.IsCorrect || res.PointsEarned != 0 {
		t.Fatalf("wrong option: got %+v", res)
	}
	// bool submitted to a multiple_choice question
	if res := g.Grade(q, BoolAnswer(true)); res.IsCorrect || res.PointsEarned != 0 {
		t.Fatalf("type-mismatched answer: got %+v", res)
	}
	if res := g.Grade(q, Answer{}); res.IsCorrect || res.PointsEarned != 0 {
		t.Fatalf("missing answer: got %+v", res)
	}
}

func TestTrueFalse(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: "q1", Type: TypeTrueFalse, Points: 2, Key: BoolAnswer(false)}

	if res := g.Grade(q, BoolAnswer(false)); !res.IsCorrect || res.PointsEarned != 2 {
		t.Fatalf("got %+v", res)
	}
	if res := g.Grade(q, BoolAnswer(true)); res.IsCorrect {
		t.Fatalf("got %+v", res)
	}
	if res := g.Grade(q, TextAnswer("false")); res.IsCorrect {
		t.Fatalf("string is not a boolean answer: got %+v", res)
	}
}

func TestShortAnswer(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: "q1", Type: TypeShortAnswer, Points: 3, Key: TextAnswer("Paris")}

	cases := []struct {
		submitted string
		correct   bool
	}{
		{"Paris", true},
		{"  paris  ", true},
		{"Paris, France", true}, // key contained in submission
		{"Par", true},           // submission contained in key
		{"London", false},
		{"", false},
		{"   ", false},
	}
	for _, c := range cases {
		res := g.Grade(q, TextAnswer(c.submitted))
		if res.IsCorrect != c.correct {
			t.Errorf("submitted %q: correct=%v, want %v", c.submitted, res.IsCorrect, c.correct)
		}
		if c.correct && res.PointsEarned != 3 {
			t.Errorf("submitted %q: points=%v, want 3", c.submitted, res.PointsEarned)
		}
	}
}

func TestEmptyKeyNeverMatches(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: "q1", Type: TypeShortAnswer, Points: 3, Key: TextAnswer("")}
	// An empty key would otherwise be "contained" in every submission.
	if res := g.Grade(q, TextAnswer("anything")); res.IsCorrect {
		t.Fatalf("empty key matched: %+v", res)
	}
}

func TestUnknownTypeGradesZero(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: "q1", Type: "essay", Points: 10, Key: TextAnswer("x")}
	if res := g.Grade(q, TextAnswer("x")); res.IsCorrect || res.PointsEarned != 0 {
		t.Fatalf("got %+v", res)
	}
}

func TestGradeDeterministic(t *testing.T) {
	g := NewDefaultGrader()
	q := Q{ID: "q1", Type: TypeShortAnswer, Points: 3, Key: TextAnswer("mitochondria")}
	first := g.Grade(q, TextAnswer("Mitochondria"))
	for i := 0; i < 100; i++ {
		if got := g.Grade(q, TextAnswer("Mitochondria")); got != first {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestAnswerJSONRoundTrip(t *testing.T) {
	cases := []struct {
		in   string
		want Answer
	}{
		{`2`, OptionAnswer(2)},
		{`true`, BoolAnswer(true)},
		{`"Paris"`, TextAnswer("Paris")},
		{`null`, Answer{}},
	}
	for _, c := range cases {
		var a Answer
		if err := json.Unmarshal([]byte(c.in), &a); err != nil {
			t.Fatalf("unmarshal %s: %v", c.in, err)
		}
		out, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal %s: %v", c.in, err)
		}
		if string(out) != c.in {
			t.Errorf("round trip %s: got %s", c.in, out)
		}
	}

	var a Answer
	if err := json.Unmarshal([]byte(`1.5`), &a); err == nil {
		t.Fatal("fractional index accepted")
	}
	if err := json.Unmarshal([]byte(`{"x":1}`), &a); err == nil {
		t.Fatal("object accepted")
	}
}

func TestCheckKey(t *testing.T) {
	if err := CheckKey(TypeMultipleChoice, OptionAnswer(0)); err != nil {
		t.Fatal(err)
	}
	if err := CheckKey(TypeMultipleChoice, TextAnswer("a")); err == nil {
		t.Fatal("text key accepted for multiple_choice")
	}
	if err := CheckKey(TypeShortAnswer, TextAnswer("")); err == nil {
		t.Fatal("empty text key accepted")
	}
	if err := CheckKey("essay", TextAnswer("x")); err == nil {
		t.Fatal("unknown type accepted")
	}
}
