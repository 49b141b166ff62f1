package services

import (
	"fmt"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	apperrors "github.com/zatekoja/servicemarket/pkg/errors"
)

// Action is an operation subject to the access policy
type Action string

const (
	ActionManageProfile      Action = "manage_profile"
	ActionManageCatalog      Action = "manage_catalog"
	ActionManageAvailability Action = "manage_availability"
	ActionRequestBooking     Action = "request_booking"
	ActionViewBooking        Action = "view_booking"
	ActionAcceptBooking      Action = "accept_booking"
	ActionDeclineBooking     Action = "decline_booking"
	ActionCancelBooking      Action = "cancel_booking"
	ActionStartBooking       Action = "start_booking"
	ActionCompleteBooking    Action = "complete_booking"
	ActionExpireBooking      Action = "expire_booking"
	ActionAuthorizePayment   Action = "authorize_payment"
	ActionRefundPayment      Action = "refund_payment"
	ActionReconcilePayout    Action = "reconcile_payout"
	ActionSubmitReview       Action = "submit_review"
	ActionReplyReview        Action = "reply_review"
	ActionMessage            Action = "message"
)

// party is the relation the caller must have to the resource
type party int

const (
	partyNone party = iota
	partyCustomer
	partyProvider
	partyEither
)

// rule grants an action to roles. Roles in bypass skip the party check.
type rule struct {
	roles  []entities.UserRole
	party  party
	bypass []entities.UserRole
}

var policyTable = map[Action]rule{
	ActionManageProfile:      {roles: roles(entities.RoleProvider), party: partyProvider},
	ActionManageCatalog:      {roles: roles(entities.RoleProvider, entities.RoleAdmin), party: partyProvider, bypass: roles(entities.RoleAdmin)},
	ActionManageAvailability: {roles: roles(entities.RoleProvider, entities.RoleAdmin), party: partyProvider, bypass: roles(entities.RoleAdmin)},
	ActionRequestBooking:     {roles: roles(entities.RoleCustomer)},
	ActionViewBooking:        {roles: roles(entities.RoleCustomer, entities.RoleProvider, entities.RoleAdmin), party: partyEither, bypass: roles(entities.RoleAdmin)},
	ActionAcceptBooking:      {roles: roles(entities.RoleProvider), party: partyProvider},
	ActionDeclineBooking:     {roles: roles(entities.RoleProvider), party: partyProvider},
	ActionCancelBooking:      {roles: roles(entities.RoleCustomer, entities.RoleAdmin), party: partyCustomer, bypass: roles(entities.RoleAdmin)},
	ActionStartBooking:       {roles: roles(entities.RoleProvider), party: partyProvider},
	ActionCompleteBooking:    {roles: roles(entities.RoleProvider), party: partyProvider},
	ActionExpireBooking:      {roles: roles(entities.RoleSystem)},
	ActionAuthorizePayment:   {roles: roles(entities.RoleCustomer, entities.RoleAdmin), party: partyCustomer, bypass: roles(entities.RoleAdmin)},
	ActionRefundPayment:      {roles: roles(entities.RoleAdmin)},
	ActionReconcilePayout:    {roles: roles(entities.RoleAdmin, entities.RoleSystem)},
	ActionSubmitReview:       {roles: roles(entities.RoleCustomer), party: partyCustomer},
	ActionReplyReview:        {roles: roles(entities.RoleProvider), party: partyProvider},
	ActionMessage:            {roles: roles(entities.RoleCustomer, entities.RoleProvider), party: partyEither},
}

var eventActions = map[entities.BookingEvent]Action{
	entities.EventAccept:   ActionAcceptBooking,
	entities.EventDecline:  ActionDeclineBooking,
	entities.EventCancel:   ActionCancelBooking,
	entities.EventStart:    ActionStartBooking,
	entities.EventComplete: ActionCompleteBooking,
	entities.EventExpire:   ActionExpireBooking,
}

func roles(r ...entities.UserRole) []entities.UserRole { return r }

// Subject names the parties owning a resource. A provider-owned resource
// such as a service leaves CustomerID empty.
type Subject struct {
	CustomerID string
	ProviderID string
}

// BookingSubject returns the parties of a booking.
func BookingSubject(b *entities.Booking) Subject {
	return Subject{CustomerID: b.CustomerID, ProviderID: b.ProviderID}
}

// Authorize checks the caller against the policy table. A nil subject
// skips party checks.
func Authorize(id entities.Identity, action Action, subject *Subject) error {
	if id.IsZero() {
		return apperrors.NewUnauthorizedError("authentication required")
	}
	r, ok := policyTable[action]
	if !ok {
		return apperrors.NewForbiddenError(fmt.Sprintf("action %s is not permitted", action))
	}
	if !hasRole(r.roles, id.Role) {
		return apperrors.NewForbiddenError(fmt.Sprintf("role %s may not %s", id.Role, action))
	}
	if subject == nil || r.party == partyNone || hasRole(r.bypass, id.Role) {
		return nil
	}

	var allowed bool
	switch r.party {
	case partyCustomer:
		allowed = id.UserID == subject.CustomerID
	case partyProvider:
		allowed = id.UserID == subject.ProviderID
	case partyEither:
		allowed = id.UserID == subject.CustomerID || id.UserID == subject.ProviderID
	}
	if !allowed {
		return apperrors.NewForbiddenError(fmt.Sprintf("caller is not a party allowed to %s", action))
	}
	return nil
}

// EventAction returns the policy action guarding a booking event.
func EventAction(ev entities.BookingEvent) Action {
	return eventActions[ev]
}

func hasRole(set []entities.UserRole, role entities.UserRole) bool {
	for _, r := range set {
		if r == role {
			return true
		}
	}
	return false
}
