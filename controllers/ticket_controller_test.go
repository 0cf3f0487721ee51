package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenny/middlewares"
	"zenny/models"
	"zenny/services"
)

type fakeTicketStore struct {
	tickets map[int64]models.Ticket

	searchCalls []services.TicketFilter
	updateCalls []map[string]interface{}
	inserted    []models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: map[int64]models.Ticket{}}
}

func (f *fakeTicketStore) GetTicket(_ context.Context, id int64) (models.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return models.Ticket{}, services.ErrNotFound
	}
	return ticket, nil
}

func (f *fakeTicketStore) SearchTickets(_ context.Context, filter services.TicketFilter) ([]models.Ticket, error) {
	f.searchCalls = append(f.searchCalls, filter)
	return nil, nil
}

func (f *fakeTicketStore) UpdateTicket(_ context.Context, id int64, fields map[string]interface{}) (models.Ticket, error) {
	f.updateCalls = append(f.updateCalls, fields)
	ticket := f.tickets[id]
	if status, ok := fields["status"]; ok {
		ticket.Status = status.(string)
	}
	f.tickets[id] = ticket
	return ticket, nil
}

func (f *fakeTicketStore) InsertTicket(_ context.Context, t models.Ticket) (models.Ticket, error) {
	t.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, t)
	f.tickets[t.ID] = t
	return t, nil
}

func (f *fakeTicketStore) SearchAgents(_ context.Context, _ string) ([]models.Profile, error) {
	return []models.Profile{{ID: "a1", Email: "agent@example.com", FullName: "Agent One", Role: "agent"}}, nil
}

type fakeNotifications struct {
	created int
	updated int
}

func (f *fakeNotifications) TicketCreated(_ context.Context, _ models.Ticket) error {
	f.created++
	return nil
}

func (f *fakeNotifications) TicketUpdated(_ context.Context, _, _ models.Ticket, _, _ string) error {
	f.updated++
	return nil
}

func ticketRequest(user services.AuthUser, store *fakeTicketStore, notifications *fakeNotifications, method, target, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	controller := NewTicketController(store, notifications)

	r := gin.New()
	inject := func(handler gin.HandlerFunc) gin.HandlerFunc {
		return func(c *gin.Context) {
			middlewares.SetCurrentUser(c, user)
			handler(c)
		}
	}
	r.POST("/tickets", inject(controller.CreateTicket))
	r.PUT("/tickets", inject(controller.UpdateTicket))
	r.GET("/tickets", inject(controller.ListTickets))
	r.GET("/agents/search", inject(controller.SearchAgents))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateTicketRequiresAllFields(t *testing.T) {
	store := newFakeTicketStore()
	w := ticketRequest(services.AuthUser{ID: "u1", Role: models.RoleUser}, store, &fakeNotifications{},
		http.MethodPost, "/tickets", `{"subject":"x","description":"y"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.inserted)
}

func TestCreateTicketNotifiesAndDefaults(t *testing.T) {
	store := newFakeTicketStore()
	notifications := &fakeNotifications{}
	w := ticketRequest(services.AuthUser{ID: "u1", Role: models.RoleUser}, store, notifications,
		http.MethodPost, "/tickets",
		`{"subject":"Broken checkout","description":"Cart dies","priority":"high","ticket_type":"incident","topic":"PAYMENTS"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, models.StatusOpen, store.inserted[0].Status)
	assert.Equal(t, "u1", store.inserted[0].UserID)
	assert.Equal(t, 1, notifications.created)
	assert.Contains(t, w.Body.String(), `"isNewTicket":true`)
}

func TestUpdateTicketForbiddenForUnrelatedUser(t *testing.T) {
	store := newFakeTicketStore()
	store.tickets[5] = models.Ticket{ID: 5, UserID: "someone-else", AssignedTo: "another-agent"}
	w := ticketRequest(services.AuthUser{ID: "u1", Role: models.RoleUser}, store, &fakeNotifications{},
		http.MethodPut, "/tickets", `{"id":5,"status":"closed"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.updateCalls)
}

func TestUpdateTicketBumpsAgentTimestamp(t *testing.T) {
	store := newFakeTicketStore()
	store.tickets[5] = models.Ticket{ID: 5, UserID: "owner", AssignedTo: "a1"}
	notifications := &fakeNotifications{}
	w := ticketRequest(services.AuthUser{ID: "a1", Role: models.RoleAgent}, store, notifications,
		http.MethodPut, "/tickets", `{"id":5,"status":"pending"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.updateCalls, 1)
	assert.Equal(t, "pending", store.updateCalls[0]["status"])
	assert.Contains(t, store.updateCalls[0], "last_agent_update")
	assert.NotContains(t, store.updateCalls[0], "last_requester_update")
	assert.Equal(t, 1, notifications.updated)
}

func TestListTicketsScopesByRole(t *testing.T) {
	cases := []struct {
		user   services.AuthUser
		assert func(t *testing.T, f services.TicketFilter)
	}{
		{services.AuthUser{ID: "u1", Role: models.RoleUser}, func(t *testing.T, f services.TicketFilter) {
			assert.Equal(t, "u1", f.UserID)
		}},
		{services.AuthUser{ID: "a1", Role: models.RoleAgent}, func(t *testing.T, f services.TicketFilter) {
			assert.Equal(t, models.GroupSupport, f.GroupName)
			assert.Empty(t, f.UserID)
		}},
		{services.AuthUser{ID: "adm", Role: models.RoleAdmin}, func(t *testing.T, f services.TicketFilter) {
			assert.Empty(t, f.UserID)
			assert.Empty(t, f.GroupName)
		}},
	}

	for _, tc := range cases {
		store := newFakeTicketStore()
		w := ticketRequest(tc.user, store, &fakeNotifications{}, http.MethodGet, "/tickets?status=open&limit=5", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, store.searchCalls, 1)
		f := store.searchCalls[0]
		assert.Equal(t, "open", f.Status)
		assert.Equal(t, 5, f.Limit)
		tc.assert(t, f)
	}
}

func TestSearchAgentsRequiresAgentRole(t *testing.T) {
	w := ticketRequest(services.AuthUser{ID: "u1", Role: models.RoleUser}, newFakeTicketStore(), &fakeNotifications{},
		http.MethodGet, "/agents/search?q=agent", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSearchAgentsFormatsDisplay(t *testing.T) {
	w := ticketRequest(services.AuthUser{ID: "a1", Role: models.RoleAgent}, newFakeTicketStore(), &fakeNotifications{},
		http.MethodGet, "/agents/search?q=agent", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Agent One (agent@example.com)")
}
