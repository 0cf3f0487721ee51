package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"zenny/middlewares"
	"zenny/models"
	"zenny/services"
)

type ticketAPI interface {
	GetTicket(ctx context.Context, id int64) (models.Ticket, error)
	SearchTickets(ctx context.Context, f services.TicketFilter) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, fields map[string]interface{}) (models.Ticket, error)
	InsertTicket(ctx context.Context, t models.Ticket) (models.Ticket, error)
	SearchAgents(ctx context.Context, query string) ([]models.Profile, error)
}

type notificationAPI interface {
	TicketCreated(ctx context.Context, ticket models.Ticket) error
	TicketUpdated(ctx context.Context, updated, previous models.Ticket, actorID, actorName string) error
}

// TicketController exposes the plain ticket CRUD endpoints used by the
// helpdesk UI.
type TicketController struct {
	store         ticketAPI
	notifications notificationAPI
}

func NewTicketController(store ticketAPI, notifications notificationAPI) *TicketController {
	return &TicketController{store: store, notifications: notifications}
}

func (ct *TicketController) CreateTicket(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	var payload struct {
		Subject     string `json:"subject"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		TicketType  string `json:"ticket_type"`
		Topic       string `json:"topic"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if payload.Subject == "" || payload.Description == "" || payload.Priority == "" || payload.TicketType == "" || payload.Topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if !models.ValidPriority(payload.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
		return
	}

	ticket, err := ct.store.InsertTicket(c.Request.Context(), models.Ticket{
		Subject:     payload.Subject,
		Description: payload.Description,
		Status:      models.StatusOpen,
		Priority:    payload.Priority,
		TicketType:  payload.TicketType,
		Topic:       payload.Topic,
		GroupName:   models.GroupSupport,
		UserID:      user.ID,
	})
	if err != nil {
		log.Printf("Error creating ticket: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create ticket"})
		return
	}

	// The ticket exists either way; a missing notification is not worth
	// failing the request over.
	if err := ct.notifications.TicketCreated(c.Request.Context(), ticket); err != nil {
		log.Printf("Error creating notification for ticket %d: %v", ticket.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{"ticket": ticket, "isNewTicket": true})
}

func (ct *TicketController) UpdateTicket(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	var payload struct {
		ID         int64   `json:"id" binding:"required"`
		Subject    *string `json:"subject"`
		Status     *string `json:"status"`
		Priority   *string `json:"priority"`
		GroupName  *string `json:"group_name"`
		AssignedTo *string `json:"assigned_to"`
		TicketType *string `json:"ticket_type"`
		Topic      *string `json:"topic"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticket id is required"})
		return
	}

	current, err := ct.store.GetTicket(c.Request.Context(), payload.ID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
			return
		}
		log.Printf("Error loading ticket %d: %v", payload.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load ticket"})
		return
	}

	canUpdate := current.UserID == user.ID ||
		current.AssignedTo == user.ID ||
		user.Role == models.RoleAdmin
	if !canUpdate {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized to update this ticket"})
		return
	}

	updates := map[string]interface{}{}
	set := func(name string, value *string) {
		if value != nil {
			updates[name] = *value
		}
	}
	set("subject", payload.Subject)
	set("status", payload.Status)
	set("priority", payload.Priority)
	set("group_name", payload.GroupName)
	set("assigned_to", payload.AssignedTo)
	set("ticket_type", payload.TicketType)
	set("topic", payload.Topic)

	// Requester edits refresh the requester-side timestamp, everyone else
	// refreshes the agent-side one.
	if user.Role == models.RoleUser {
		updates["last_requester_update"] = time.Now()
	} else {
		updates["last_agent_update"] = time.Now()
	}

	updated, err := ct.store.UpdateTicket(c.Request.Context(), payload.ID, updates)
	if err != nil {
		log.Printf("Error updating ticket %d: %v", payload.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update ticket"})
		return
	}

	actorName := user.FullName
	if actorName == "" {
		actorName = user.Email
	}
	if err := ct.notifications.TicketUpdated(c.Request.Context(), updated, current, user.ID, actorName); err != nil {
		log.Printf("Error notifying update of ticket %d: %v", updated.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{"ticket": updated})
}

func (ct *TicketController) ListTickets(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	f := services.TicketFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	switch user.Role {
	case models.RoleAdmin:
		// Admins see everything.
	case models.RoleAgent:
		f.GroupName = models.GroupSupport
	default:
		f.UserID = user.ID
	}

	tickets, err := ct.store.SearchTickets(c.Request.Context(), f)
	if err != nil {
		log.Printf("Error listing tickets: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tickets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (ct *TicketController) SearchAgents(c *gin.Context) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	if user.Role != models.RoleAgent && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized. Only agents and admins can search agents."})
		return
	}

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	profiles, err := ct.store.SearchAgents(c.Request.Context(), query)
	if err != nil {
		log.Printf("Error searching agents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search agents"})
		return
	}

	agents := make([]gin.H, 0, len(profiles))
	for _, p := range profiles {
		name := p.FullName
		display := p.Email
		if name != "" {
			display = fmt.Sprintf("%s (%s)", name, p.Email)
		} else {
			name = p.Email
		}
		agents = append(agents, gin.H{
			"id":      p.ID,
			"email":   p.Email,
			"name":    name,
			"role":    p.Role,
			"display": display,
		})
	}

	c.JSON(http.StatusOK, gin.H{"agents": agents})
}
