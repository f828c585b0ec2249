package model

import (
	"errors"
	"testing"
)

func TestRunReportFinish(t *testing.T) {
	t.Parallel()

	t.Run("records status and steps", func(t *testing.T) {
		t.Parallel()

		r := NewRunReport("hello")
		r.Finish(StatusExhausted, 3, nil)

		if r.Status != StatusExhausted || r.Steps != 3 {
			t.Errorf("got status %s steps %d", r.Status, r.Steps)
		}
		if r.Failed() {
			t.Error("report should not be failed")
		}
	})

	t.Run("an error overrides the status", func(t *testing.T) {
		t.Parallel()

		r := NewRunReport("broken")
		r.Finish(StatusExhausted, 1, errors.New("boom"))

		if !r.Failed() || r.ErrorMessage != "boom" {
			t.Errorf("got status %s message %q", r.Status, r.ErrorMessage)
		}
	})
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	a := NewRunReport("a")
	a.Finish(StatusExhausted, 4, nil)
	b := NewRunReport("b")
	b.Finish(StatusStepLimit, 2, nil)
	c := NewRunReport("c")
	c.Finish(StatusExhausted, 0, errors.New("x"))

	s := Summarize([]*RunReport{a, nil, b, c})
	if s.Runs != 3 || s.Exhausted != 1 || s.Failed != 1 || s.Steps != 6 {
		t.Errorf("unexpected summary %+v", s)
	}
}
