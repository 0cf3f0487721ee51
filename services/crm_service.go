package services

import (
	"context"
	"fmt"

	"zenny/models"
)

// ticketStore is what the CRM operations need from the ticketing database.
type ticketStore interface {
	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	SearchTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, fields map[string]interface{}) (models.Ticket, error)
	InsertTicket(ctx context.Context, t models.Ticket) (models.Ticket, error)
	GetProfile(ctx context.Context, id string) (models.Profile, error)
}

type ticketNotifier interface {
	TicketUpdated(ctx context.Context, updated, previous models.Ticket, actorID, actorName string) error
}

// CRMService implements the AutoCRM ticket operations. Every operation
// re-checks authorization from the caller's stored role; none assume the
// caller validated access upstream.
type CRMService struct {
	store    ticketStore
	notifier ticketNotifier
}

func NewCRMService(store ticketStore, notifier ticketNotifier) *CRMService {
	return &CRMService{store: store, notifier: notifier}
}

// SearchTickets applies the caller's role restrictions before any text
// filter. Agents see open-or-assigned tickets outside the Admin group;
// admins see open-or-assigned tickets with no group exclusion. The
// asymmetry is intentional and mirrors the production rules.
func (s *CRMService) SearchTickets(ctx context.Context, query, callerID string) ([]models.Ticket, error) {
	profile, err := s.store.GetProfile(ctx, callerID)
	if err != nil {
		return nil, err
	}

	f := TicketFilter{Text: query}
	switch profile.Role {
	case models.RoleAgent:
		f.OpenOrAssignedTo = callerID
		f.ExcludeGroup = models.GroupAdmin
	case models.RoleAdmin:
		f.OpenOrAssignedTo = callerID
	}

	return s.store.SearchTickets(ctx, f)
}

// UpdateTicket applies the allowed field set to one ticket. Agents may never
// mutate Admin-group tickets; the check runs before any write reaches the
// store. Owner and new-assignee notifications render the actor as "AutoCRM".
func (s *CRMService) UpdateTicket(ctx context.Context, ticketID int64, fields map[string]string, callerID string) (models.Ticket, error) {
	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		return models.Ticket{}, err
	}

	profile, err := s.store.GetProfile(ctx, callerID)
	if err != nil {
		return models.Ticket{}, err
	}

	if profile.Role == models.RoleAgent && ticket.GroupName == models.GroupAdmin {
		return models.Ticket{}, fmt.Errorf("agents cannot modify Admin group tickets: %w", ErrForbidden)
	}

	updates := map[string]interface{}{}
	if priority, ok := fields["priority"]; ok {
		if !models.ValidPriority(priority) {
			return models.Ticket{}, fmt.Errorf(`invalid priority %q: must be "low", "normal", "high", or "urgent"`, priority)
		}
		updates["priority"] = priority
	}
	if status, ok := fields["status"]; ok {
		if !models.ValidStatus(status) {
			return models.Ticket{}, fmt.Errorf(`invalid status %q: must be "open", "pending", "solved", or "closed"`, status)
		}
		updates["status"] = status
	}
	if group, ok := fields["group"]; ok {
		name, ok := models.NormalizeGroup(group)
		if !ok {
			return models.Ticket{}, fmt.Errorf(`invalid group %q: must be "Admin" or "Support"`, group)
		}
		updates["group_name"] = name
	}

	updated, err := s.store.UpdateTicket(ctx, ticketID, updates)
	if err != nil {
		return models.Ticket{}, err
	}

	if err := s.notifier.TicketUpdated(ctx, updated, ticket, callerID, "AutoCRM"); err != nil {
		return models.Ticket{}, err
	}

	return updated, nil
}

// CreateTicket opens a ticket owned by the caller with defaulted status and
// priority.
func (s *CRMService) CreateTicket(ctx context.Context, subject, callerID string) (models.Ticket, error) {
	return s.store.InsertTicket(ctx, models.Ticket{
		Subject:   subject,
		Status:    models.StatusOpen,
		Priority:  models.PriorityNormal,
		GroupName: models.GroupSupport,
		UserID:    callerID,
	})
}

// GetCustomerInfo returns the raw profile record for the given id.
func (s *CRMService) GetCustomerInfo(ctx context.Context, customerID string) (models.Profile, error) {
	return s.store.GetProfile(ctx, customerID)
}
