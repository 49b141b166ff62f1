package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatus_Next(t *testing.T) {
	tests := []struct {
		from BookingStatus
		ev   BookingEvent
		to   BookingStatus
		ok   bool
	}{
		{BookingRequested, EventAccept, BookingAccepted, true},
		{BookingRequested, EventDecline, BookingCancelled, true},
		{BookingRequested, EventExpire, BookingCancelled, true},
		{BookingRequested, EventCancel, BookingCancelled, true},
		{BookingRequested, EventStart, "", false},
		{BookingAccepted, EventCancel, BookingCancelled, true},
		{BookingAccepted, EventStart, BookingInProgress, true},
		{BookingAccepted, EventDecline, "", false},
		{BookingInProgress, EventComplete, BookingCompleted, true},
		{BookingInProgress, EventCancel, "", false},
		{BookingCompleted, EventCancel, "", false},
		{BookingCancelled, EventAccept, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			to, ok := tt.from.Next(tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestBookingStatus_Flags(t *testing.T) {
	assert.True(t, BookingAccepted.IsActive())
	assert.True(t, BookingInProgress.IsActive())
	assert.False(t, BookingRequested.IsActive())
	assert.True(t, BookingCompleted.IsTerminal())
	assert.True(t, BookingCancelled.IsTerminal())
	assert.False(t, BookingAccepted.IsTerminal())
}

func TestBookingEvent_Target(t *testing.T) {
	st, ok := EventDecline.Target()
	assert.True(t, ok)
	assert.Equal(t, BookingCancelled, st)
	assert.False(t, BookingEvent("teleport").Valid())
}

func TestBooking_Slot(t *testing.T) {
	b := &Booking{ScheduledStart: at(10, 0)}
	assert.Equal(t, span(10, 11), b.Slot(time.Hour))

	end := at(12, 30)
	b.ScheduledEnd = &end
	assert.Equal(t, Interval{Start: at(10, 0), End: end}, b.Slot(time.Hour))
}

func TestBooking_Parties(t *testing.T) {
	b := &Booking{CustomerID: "c1", ProviderID: "p1"}
	assert.True(t, b.IsParty("c1"))
	assert.True(t, b.IsParty("p1"))
	assert.False(t, b.IsParty("x"))
	assert.Equal(t, "p1", b.Counterparty("c1"))
	assert.Equal(t, "c1", b.Counterparty("p1"))
}
