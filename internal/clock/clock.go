// Package clock provides the time source for circulation arithmetic.
//
// Due dates, fine accrual, and reservation expiry are all day-granular,
// so the engine never calls time.Now directly; it asks a Clock. Tests
// substitute a Fake to pin "today" wherever a scenario needs it.
package clock

import "time"

// Clock supplies the current instant and the current circulation day.
type Clock interface {
	// Now returns the current instant in UTC.
	Now() time.Time

	// Today returns the current day truncated to UTC midnight.
	// All loan-period and fine math operates on Today values.
	Today() time.Time
}

// System is the real clock. The zero value is ready to use.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

func (System) Today() time.Time {
	return Midnight(time.Now().UTC())
}

// Fake is a settable clock for tests. Not safe for concurrent mutation;
// set it up before handing it to the code under test.
type Fake struct {
	Current time.Time
}

// NewFake returns a fake clock pinned to the given instant (converted to UTC).
func NewFake(at time.Time) *Fake {
	return &Fake{Current: at.UTC()}
}

func (f *Fake) Now() time.Time {
	return f.Current
}

func (f *Fake) Today() time.Time {
	return Midnight(f.Current)
}

// Set pins the fake to a new instant.
func (f *Fake) Set(at time.Time) {
	f.Current = at.UTC()
}

// Advance moves the fake forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}

// AdvanceDays moves the fake forward by whole days.
func (f *Fake) AdvanceDays(days int) {
	f.Current = f.Current.AddDate(0, 0, days)
}

// Midnight truncates t to UTC midnight of the same calendar day.
func Midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b, both taken
// at UTC midnight. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Midnight(b).Sub(Midnight(a)) / (24 * time.Hour))
}
