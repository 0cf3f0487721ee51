package models

import (
	"strings"
	"time"
)

const (
	StatusOpen    = "open"
	StatusPending = "pending"
	StatusSolved  = "solved"
	StatusClosed  = "closed"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

const (
	GroupAdmin   = "Admin"
	GroupSupport = "Support"
)

const (
	RoleUser  = "user"
	RoleAgent = "agent"
	RoleAdmin = "admin"
)

type Ticket struct {
	ID                  int64      `json:"id"`
	Subject             string     `json:"subject"`
	Description         string     `json:"description"`
	Status              string     `json:"status"`
	Priority            string     `json:"priority"`
	TicketType          string     `json:"ticket_type"`
	Topic               string     `json:"topic"`
	GroupName           string     `json:"group_name"`
	UserID              string     `json:"user_id"`
	AssignedTo          string     `json:"assigned_to,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	LastAgentUpdate     *time.Time `json:"last_agent_update,omitempty"`
	LastRequesterUpdate *time.Time `json:"last_requester_update,omitempty"`

	// Joined requester/assignee identity, not columns of the tickets table.
	CreatorEmail string `json:"creator_email,omitempty"`
	CreatorName  string `json:"creator_name,omitempty"`
	AgentEmail   string `json:"agent_email,omitempty"`
	AgentName    string `json:"agent_name,omitempty"`
}

type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	NotificationTicketCreated  = "TICKET_CREATED"
	NotificationTicketUpdated  = "TICKET_UPDATED"
	NotificationTicketAssigned = "TICKET_ASSIGNED"
	NotificationCommentAdded   = "COMMENT_ADDED"
)

// Notification rows with a nil UserID are system notifications visible to
// agents and admins.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    *string   `json:"user_id"`
	TicketID  *int64    `json:"ticket_id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusPending, StatusSolved, StatusClosed:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// NormalizeGroup maps case-insensitive group input to its canonical name.
func NormalizeGroup(g string) (string, bool) {
	switch strings.ToLower(g) {
	case "admin":
		return GroupAdmin, true
	case "support":
		return GroupSupport, true
	}
	return "", false
}
