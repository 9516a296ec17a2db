package dispatch

import "fmt"

// Stage is one band of the retry schedule: rounds below Until accept a
// winner whose remaining distance is at most Accept. Revisit recomputes the
// direction set against visited cells on entering the band.
type Stage struct {
	Until   int  `yaml:"until"`
	Accept  int  `yaml:"accept"`
	Revisit bool `yaml:"revisit"`
}

// Schedule is an ordered list of stages. The last stage's Until is the
// round ceiling; reaching it aborts the episode.
type Schedule []Stage

func DefaultSchedule() Schedule {
	return Schedule{
		{Until: 3, Accept: 1},
		{Until: 10, Accept: 2},
		{Until: 15, Accept: 4, Revisit: true},
	}
}

func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("retry schedule is empty")
	}
	prev := 0
	for i, st := range s {
		if st.Until <= prev {
			return fmt.Errorf("retry stage %d: until must increase (got %d after %d)", i, st.Until, prev)
		}
		if st.Accept < 0 {
			return fmt.Errorf("retry stage %d: accept must be >= 0", i)
		}
		prev = st.Until
	}
	return nil
}

// MaxRounds is the number of rounds run before giving up.
func (s Schedule) MaxRounds() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Until
}

// At returns the stage governing round, or false once the ceiling is reached.
func (s Schedule) At(round int) (Stage, bool) {
	for _, st := range s {
		if round < st.Until {
			return st, true
		}
	}
	return Stage{}, false
}
