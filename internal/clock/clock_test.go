package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem_Now(t *testing.T) {
	c := System{}

	before := time.Now().UTC()
	got := c.Now()
	after := time.Now().UTC()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
	assert.Equal(t, time.UTC, got.Location())
}

func TestSystem_Today(t *testing.T) {
	c := System{}
	got := c.Today()

	assert.Equal(t, 0, got.Hour())
	assert.Equal(t, 0, got.Minute())
	assert.Equal(t, 0, got.Second())
	assert.Equal(t, 0, got.Nanosecond())
	assert.Equal(t, time.UTC, got.Location())
}

func TestFake_NowAndToday(t *testing.T) {
	at := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	f := NewFake(at)

	assert.Equal(t, at, f.Now())
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), f.Today())
}

func TestFake_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	at := time.Date(2024, 3, 15, 2, 0, 0, 0, loc)
	f := NewFake(at)

	// 02:00 UTC+5 is 21:00 the previous day in UTC.
	assert.Equal(t, time.Date(2024, 3, 14, 21, 0, 0, 0, time.UTC), f.Now())
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), f.Today())
}

func TestFake_Advance(t *testing.T) {
	f := NewFake(time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	f.Advance(3 * time.Hour)
	assert.Equal(t, time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC), f.Now())

	f.AdvanceDays(14)
	assert.Equal(t, time.Date(2024, 3, 29, 13, 0, 0, 0, time.UTC), f.Now())
	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), f.Today())
}

func TestFake_Set(t *testing.T) {
	f := NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	f.Set(time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC))

	assert.Equal(t, time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC), f.Now())
}

func TestMidnight(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "afternoon truncates to same day",
			in:   time.Date(2024, 3, 15, 16, 45, 30, 123, time.UTC),
			want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already midnight is unchanged",
			in:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "non-UTC input truncates in UTC",
			in:   time.Date(2024, 3, 15, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			want: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Midnight(tt.in))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a    time.Time
		b    time.Time
		want int
	}{
		{
			name: "same day",
			a:    time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC),
			want: 0,
		},
		{
			name: "five days late",
			a:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			want: 5,
		},
		{
			name: "intraday times do not round up",
			a:    time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC),
			b:    time.Date(2024, 3, 16, 0, 1, 0, 0, time.UTC),
			want: 1,
		},
		{
			name: "returned early is negative",
			a:    time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			want: -5,
		},
		{
			name: "across month boundary",
			a:    time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
			b:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			want: 2, // 2024 is a leap year
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.a, tt.b))
		})
	}
}
