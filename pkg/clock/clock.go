package clock

import (
	"time"

	"deskhub/pkg/model"
)

// Clock abstracts wall time so date comparisons ("start must be after today")
// stay deterministic in tests.
type Clock interface {
	Now() time.Time
	Today() model.Date
}

type systemClock struct{}

func New() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

func (systemClock) Today() model.Date {
	return model.DateOf(time.Now())
}

// Fixed returns a clock pinned to t, for tests.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t.UTC()}
}

type fixedClock struct {
	t time.Time
}

func (f fixedClock) Now() time.Time {
	return f.t
}

func (f fixedClock) Today() model.Date {
	return model.DateOf(f.t)
}
