package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservation(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	expiration := time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)
	res := NewReservation("rsv-1", "pat-1", "9780618002213", 3, now, expiration)

	require.NotNil(t, res)
	assert.Equal(t, ReservationPending, res.Status)
	assert.Equal(t, 3, res.QueuePosition)
	assert.Nil(t, res.NotifiedAt)
	assert.Nil(t, res.PickupDeadline)
	assert.True(t, res.IsOpen())
}

func TestReservation_Transitions(t *testing.T) {
	tests := []struct {
		status     ReservationStatus
		canNotify  bool
		canFulfill bool
		canCancel  bool
	}{
		{ReservationPending, true, false, true},
		{ReservationAvailable, false, true, true},
		{ReservationFulfilled, false, false, false},
		{ReservationCancelled, false, false, false},
		{ReservationExpired, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			res := &Reservation{Status: tt.status}
			assert.Equal(t, tt.canNotify, res.CanNotify())
			assert.Equal(t, tt.canFulfill, res.CanFulfill())
			assert.Equal(t, tt.canCancel, res.CanCancel())
		})
	}
}

func TestReservation_HasLapsed(t *testing.T) {
	expiration := time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		setup func(*Reservation)
		today time.Time
		want  bool
	}{
		{
			name:  "pending before expiration",
			setup: func(r *Reservation) {},
			today: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "pending past expiration",
			setup: func(r *Reservation) {},
			today: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name: "available within pickup window",
			setup: func(r *Reservation) {
				r.Status = ReservationAvailable
				r.PickupDeadline = &deadline
			},
			today: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name: "available past pickup deadline",
			setup: func(r *Reservation) {
				r.Status = ReservationAvailable
				r.PickupDeadline = &deadline
			},
			today: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "fulfilled never lapses",
			setup: func(r *Reservation) { r.Status = ReservationFulfilled },
			today: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "cancelled never lapses",
			setup: func(r *Reservation) { r.Status = ReservationCancelled },
			today: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &Reservation{Status: ReservationPending, ExpirationDate: expiration}
			tt.setup(res)
			assert.Equal(t, tt.want, res.HasLapsed(tt.today))
		})
	}
}

func TestReservation_MarkAvailable(t *testing.T) {
	now := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	res := NewReservation("rsv-1", "pat-1", "9780618002213", 1, now, now.AddDate(0, 0, 90))

	res.MarkAvailable(now, deadline)

	assert.Equal(t, ReservationAvailable, res.Status)
	require.NotNil(t, res.NotifiedAt)
	require.NotNil(t, res.PickupDeadline)
	assert.Equal(t, deadline, *res.PickupDeadline)
	assert.True(t, res.IsOpen())
}
