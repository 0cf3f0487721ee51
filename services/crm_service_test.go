package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenny/models"
)

type spyTicketStore struct {
	tickets  map[int64]models.Ticket
	profiles map[string]models.Profile

	searchCalls []TicketFilter
	updateCalls []map[string]interface{}
	insertCalls []models.Ticket

	failSearch error
}

func newSpyTicketStore() *spyTicketStore {
	return &spyTicketStore{
		tickets:  map[int64]models.Ticket{},
		profiles: map[string]models.Profile{},
	}
}

func (s *spyTicketStore) GetTicket(_ context.Context, id int64) (models.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return models.Ticket{}, ErrNotFound
	}
	return ticket, nil
}

func (s *spyTicketStore) SearchTickets(_ context.Context, f TicketFilter) ([]models.Ticket, error) {
	s.searchCalls = append(s.searchCalls, f)
	if s.failSearch != nil {
		return nil, s.failSearch
	}
	var out []models.Ticket
	for _, t := range s.tickets {
		out = append(out, t)
	}
	return out, nil
}

func (s *spyTicketStore) UpdateTicket(_ context.Context, id int64, fields map[string]interface{}) (models.Ticket, error) {
	s.updateCalls = append(s.updateCalls, fields)
	ticket, ok := s.tickets[id]
	if !ok {
		return models.Ticket{}, ErrNotFound
	}
	if priority, ok := fields["priority"]; ok {
		ticket.Priority = priority.(string)
	}
	if status, ok := fields["status"]; ok {
		ticket.Status = status.(string)
	}
	if group, ok := fields["group_name"]; ok {
		ticket.GroupName = group.(string)
	}
	s.tickets[id] = ticket
	return ticket, nil
}

func (s *spyTicketStore) InsertTicket(_ context.Context, t models.Ticket) (models.Ticket, error) {
	t.ID = int64(len(s.insertCalls) + 100)
	s.insertCalls = append(s.insertCalls, t)
	s.tickets[t.ID] = t
	return t, nil
}

func (s *spyTicketStore) GetProfile(_ context.Context, id string) (models.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	return p, nil
}

type spyNotifier struct {
	updated []struct {
		ticket    models.Ticket
		actorName string
	}
	fail error
}

func (n *spyNotifier) TicketUpdated(_ context.Context, updated, _ models.Ticket, _, actorName string) error {
	n.updated = append(n.updated, struct {
		ticket    models.Ticket
		actorName string
	}{updated, actorName})
	return n.fail
}

func TestSearchTicketsAgentFilter(t *testing.T) {
	store := newSpyTicketStore()
	store.profiles["agent-1"] = models.Profile{ID: "agent-1", Role: models.RoleAgent}
	svc := NewCRMService(store, &spyNotifier{})

	_, err := svc.SearchTickets(context.Background(), "payment", "agent-1")
	require.NoError(t, err)

	require.Len(t, store.searchCalls, 1)
	f := store.searchCalls[0]
	assert.Equal(t, "payment", f.Text)
	assert.Equal(t, "agent-1", f.OpenOrAssignedTo)
	assert.Equal(t, models.GroupAdmin, f.ExcludeGroup)
}

func TestSearchTicketsAdminFilterKeepsAdminGroup(t *testing.T) {
	store := newSpyTicketStore()
	store.profiles["admin-1"] = models.Profile{ID: "admin-1", Role: models.RoleAdmin}
	svc := NewCRMService(store, &spyNotifier{})

	_, err := svc.SearchTickets(context.Background(), "", "admin-1")
	require.NoError(t, err)

	require.Len(t, store.searchCalls, 1)
	f := store.searchCalls[0]
	assert.Equal(t, "admin-1", f.OpenOrAssignedTo)
	assert.Empty(t, f.ExcludeGroup)
}

func TestUpdateTicketAgentCannotTouchAdminGroup(t *testing.T) {
	store := newSpyTicketStore()
	store.profiles["agent-1"] = models.Profile{ID: "agent-1", Role: models.RoleAgent}
	store.tickets[44] = models.Ticket{ID: 44, GroupName: models.GroupAdmin, Subject: "restricted"}
	svc := NewCRMService(store, &spyNotifier{})

	_, err := svc.UpdateTicket(context.Background(), 44, map[string]string{"priority": "low"}, "agent-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Empty(t, store.updateCalls, "no write may reach the store")
}

func TestUpdateTicketAdminMayTouchAdminGroup(t *testing.T) {
	store := newSpyTicketStore()
	store.profiles["admin-1"] = models.Profile{ID: "admin-1", Role: models.RoleAdmin}
	store.tickets[44] = models.Ticket{ID: 44, GroupName: models.GroupAdmin, UserID: "u9", Priority: "normal"}
	notifier := &spyNotifier{}
	svc := NewCRMService(store, notifier)

	updated, err := svc.UpdateTicket(context.Background(), 44, map[string]string{"priority": "low"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "low", updated.Priority)

	require.Len(t, notifier.updated, 1)
	assert.Equal(t, "AutoCRM", notifier.updated[0].actorName)
}

func TestUpdateTicketRejectsInvalidEnums(t *testing.T) {
	store := newSpyTicketStore()
	store.profiles["admin-1"] = models.Profile{ID: "admin-1", Role: models.RoleAdmin}
	store.tickets[7] = models.Ticket{ID: 7, GroupName: models.GroupSupport}
	svc := NewCRMService(store, &spyNotifier{})

	for _, fields := range []map[string]string{
		{"priority": "critical"},
		{"status": "done"},
		{"group": "vip"},
	} {
		_, err := svc.UpdateTicket(context.Background(), 7, fields, "admin-1")
		require.Error(t, err, "fields=%v", fields)
		assert.Empty(t, store.updateCalls)
	}
}

func TestUpdateTicketIdempotent(t *testing.T) {
	store := newSpyTicketStore()
	store.profiles["admin-1"] = models.Profile{ID: "admin-1", Role: models.RoleAdmin}
	store.tickets[5] = models.Ticket{ID: 5, GroupName: models.GroupSupport, UserID: "u1", Priority: "high", Status: "open"}
	svc := NewCRMService(store, &spyNotifier{})

	fields := map[string]string{"priority": "low", "status": "pending"}
	first, err := svc.UpdateTicket(context.Background(), 5, fields, "admin-1")
	require.NoError(t, err)
	second, err := svc.UpdateTicket(context.Background(), 5, fields, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, first.Priority, second.Priority)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first, second)
}

func TestUpdateTicketNotFound(t *testing.T) {
	store := newSpyTicketStore()
	store.profiles["admin-1"] = models.Profile{ID: "admin-1", Role: models.RoleAdmin}
	svc := NewCRMService(store, &spyNotifier{})

	_, err := svc.UpdateTicket(context.Background(), 999, map[string]string{"status": "open"}, "admin-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, store.updateCalls)
}

func TestCreateTicketDefaults(t *testing.T) {
	store := newSpyTicketStore()
	svc := NewCRMService(store, &spyNotifier{})

	ticket, err := svc.CreateTicket(context.Background(), "Printer on fire", "agent-1")
	require.NoError(t, err)

	assert.Equal(t, "Printer on fire", ticket.Subject)
	assert.Equal(t, models.StatusOpen, ticket.Status)
	assert.Equal(t, models.PriorityNormal, ticket.Priority)
	assert.Equal(t, "agent-1", ticket.UserID)
}
