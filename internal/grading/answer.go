package grading

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Answer is the tagged union over the payloads the client may submit:
// an option index (multiple_choice), a boolean (true_false) or free text
// (short_answer). Exactly one variant is set; the zero value means "no
// answer".
type Answer struct {
	Option *int
	Bool   *bool
	Text   *string
}

func OptionAnswer(i int) Answer  { return Answer{Option: &i} }
func BoolAnswer(b bool) Answer   { return Answer{Bool: &b} }
func TextAnswer(s string) Answer { return Answer{Text: &s} }

// IsZero reports whether no variant is set.
func (a Answer) IsZero() bool { return a.Option == nil && a.Bool == nil && a.Text == nil }

// UnmarshalJSON accepts a JSON number (option index), boolean or string.
// Anything else is rejected here, at the boundary, before grading runs.
func (a *Answer) UnmarshalJSON(data []byte) error {
	*a = Answer{}
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		a.Bool = &t
	case string:
		a.Text = &t
	case float64:
		n := int(t)
		if float64(n) != t {
			return fmt.Errorf("answer index must be an integer, got %v", t)
		}
		a.Option = &n
	default:
		return fmt.Errorf("answer must be a number, boolean or string")
	}
	return nil
}

// MarshalJSON emits the set variant as a bare scalar, so clients see the
// same shape they submit.
func (a Answer) MarshalJSON() ([]byte, error) {
	switch {
	case a.Option != nil:
		return json.Marshal(*a.Option)
	case a.Bool != nil:
		return json.Marshal(*a.Bool)
	case a.Text != nil:
		return json.Marshal(*a.Text)
	default:
		return []byte("null"), nil
	}
}

// CheckKey validates that an answer key matches the question type. Used
// when quizzes are created or imported; grading itself never errors.
func CheckKey(qtype string, key Answer) error {
	switch qtype {
	case TypeMultipleChoice:
		if key.Option == nil {
			return errors.New("multiple_choice requires an option index key")
		}
	case TypeTrueFalse:
		if key.Bool == nil {
			return errors.New("true_false requires a boolean key")
		}
	case TypeShortAnswer:
		if key.Text == nil || *key.Text == "" {
			return errors.New("short_answer requires a text key")
		}
	default:
		return fmt.Errorf("unknown question type %q", qtype)
	}
	return nil
}
