package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

func TestAuthorize(t *testing.T) {
	booking := &Subject{CustomerID: "cust-1", ProviderID: "prov-1"}

	tests := []struct {
		name    string
		id      entities.Identity
		action  Action
		subject *Subject
		errType apperrors.ErrorType
	}{
		{"anonymous", entities.Identity{}, ActionViewBooking, booking, apperrors.ErrorTypeUnauthorized},
		{"provider accepts own booking", entities.Identity{UserID: "prov-1", Role: entities.RoleProvider}, ActionAcceptBooking, booking, ""},
		{"other provider accepts", entities.Identity{UserID: "prov-2", Role: entities.RoleProvider}, ActionAcceptBooking, booking, apperrors.ErrorTypeForbidden},
		{"customer accepts", entities.Identity{UserID: "cust-1", Role: entities.RoleCustomer}, ActionAcceptBooking, booking, apperrors.ErrorTypeForbidden},
		{"customer cancels", entities.Identity{UserID: "cust-1", Role: entities.RoleCustomer}, ActionCancelBooking, booking, ""},
		{"admin cancels any booking", entities.Identity{UserID: "root", Role: entities.RoleAdmin}, ActionCancelBooking, booking, ""},
		{"provider views", entities.Identity{UserID: "prov-1", Role: entities.RoleProvider}, ActionViewBooking, booking, ""},
		{"stranger views", entities.Identity{UserID: "cust-9", Role: entities.RoleCustomer}, ActionViewBooking, booking, apperrors.ErrorTypeForbidden},
		{"system expires", entities.SystemIdentity(), ActionExpireBooking, booking, ""},
		{"customer expires", entities.Identity{UserID: "cust-1", Role: entities.RoleCustomer}, ActionExpireBooking, booking, apperrors.ErrorTypeForbidden},
		{"customer refunds", entities.Identity{UserID: "cust-1", Role: entities.RoleCustomer}, ActionRefundPayment, booking, apperrors.ErrorTypeForbidden},
		{"provider requests booking", entities.Identity{UserID: "prov-1", Role: entities.RoleProvider}, ActionRequestBooking, nil, apperrors.ErrorTypeForbidden},
		{"unknown action", entities.Identity{UserID: "root", Role: entities.RoleAdmin}, Action("launch"), nil, apperrors.ErrorTypeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.id, tt.action, tt.subject)
			if tt.errType == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestEventAction_CoversEveryEvent(t *testing.T) {
	for _, ev := range []entities.BookingEvent{
		entities.EventAccept, entities.EventDecline, entities.EventExpire,
		entities.EventCancel, entities.EventStart, entities.EventComplete,
	} {
		_, ok := policyTable[EventAction(ev)]
		assert.True(t, ok, "event %s has no policy", ev)
	}
}
