package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"zenny/models"
)

// Number of trailing messages fed back to the classifier as context.
const historyLimit = 10

const (
	replyUnrecognized   = "I couldn't understand your request. Please try rephrasing it."
	replyUnknownAction  = "I don't understand that action. Please try rephrasing your request."
	replyOperationError = "I encountered an error while processing your request. Please try again."
	replySpecifyTicket  = `Please specify which ticket to update (e.g., "ticket: 44")`
	replySpecifyFields  = `Please specify what to change (e.g., "priority: high")`
	replyNoTickets      = "No tickets found matching your search."
)

type conversationStore interface {
	LatestConversation(ctx context.Context, userID string) (models.Conversation, bool, error)
	LoadOrCreateConversation(ctx context.Context, userID string) (models.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, sender, content string) (models.Message, error)
	LoadHistory(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	TouchConversation(ctx context.Context, userID, conversationID string) error
}

type classifier interface {
	Classify(ctx context.Context, userInput, history string) (string, error)
}

type crmOperations interface {
	SearchTickets(ctx context.Context, query, callerID string) ([]models.Ticket, error)
	UpdateTicket(ctx context.Context, ticketID int64, fields map[string]string, callerID string) (models.Ticket, error)
	CreateTicket(ctx context.Context, subject, callerID string) (models.Ticket, error)
	GetCustomerInfo(ctx context.Context, customerID string) (models.Profile, error)
}

// AutoCRMService runs the command pipeline: conversation load, classify,
// parse, dispatch, reply persistence. One sequential chain per request, no
// internal fan-out, no cancellation once dispatched.
type AutoCRMService struct {
	conversations conversationStore
	classifier    classifier
	crm           crmOperations
}

func NewAutoCRMService(conversations conversationStore, classifier classifier, crm crmOperations) *AutoCRMService {
	return &AutoCRMService{
		conversations: conversations,
		classifier:    classifier,
		crm:           crm,
	}
}

// HandleQuery processes one free-text request for the given user and returns
// the assistant's reply. Conversation storage errors are fatal for the whole
// request; classifier and operation errors degrade to an apology reply that
// is still persisted, so the log always holds a paired user/system turn.
func (s *AutoCRMService) HandleQuery(ctx context.Context, userID, query string) (string, error) {
	conv, err := s.conversations.LoadOrCreateConversation(ctx, userID)
	if err != nil {
		return "", err
	}

	if _, err := s.conversations.AppendMessage(ctx, conv.ID, models.SenderUser, query); err != nil {
		return "", err
	}

	history, err := s.conversations.LoadHistory(ctx, conv.ID, historyLimit)
	if err != nil {
		return "", err
	}

	var reply string
	raw, err := s.classifier.Classify(ctx, query, formatHistory(history))
	if err != nil {
		log.Printf("Error classifying request for user %s: %v", userID, err)
		reply = replyOperationError
	} else {
		action := ParseAction(raw, query, userID)
		reply = s.dispatch(ctx, action, userID)
	}

	if _, err := s.conversations.AppendMessage(ctx, conv.ID, models.SenderSystem, reply); err != nil {
		return "", err
	}
	if err := s.conversations.TouchConversation(ctx, userID, conv.ID); err != nil {
		return "", err
	}

	return reply, nil
}

// RecentMessages returns the current conversation's messages inside the
// 6-hour display window, oldest first.
func (s *AutoCRMService) RecentMessages(ctx context.Context, userID string) ([]models.Message, error) {
	conv, found, err := s.conversations.LatestConversation(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []models.Message{}, nil
	}
	return s.conversations.LoadHistory(ctx, conv.ID, 0)
}

// dispatch routes one parsed action to its CRM operation and renders the
// result as a short natural-language reply. Operation failures never bubble
// up; they become the apology reply.
func (s *AutoCRMService) dispatch(ctx context.Context, action models.Action, callerID string) string {
	switch a := action.(type) {
	case models.SearchAction:
		tickets, err := s.crm.SearchTickets(ctx, a.Query, callerID)
		if err != nil {
			log.Printf("Error searching tickets for %q: %v", a.Query, err)
			return replyOperationError
		}
		if len(tickets) == 0 {
			return replyNoTickets
		}
		lines := make([]string, 0, len(tickets))
		for _, t := range tickets {
			lines = append(lines, fmt.Sprintf("#%d: %s (%s)", t.ID, t.Subject, t.Status))
		}
		return "I found these tickets:\n" + strings.Join(lines, "\n")

	case models.UpdateAction:
		if !a.HasTicketID {
			return replySpecifyTicket
		}
		if len(a.Fields) == 0 {
			return replySpecifyFields
		}
		updated, err := s.crm.UpdateTicket(ctx, a.TicketID, a.Fields, callerID)
		if err != nil {
			log.Printf("Error updating ticket %d: %v", a.TicketID, err)
			return replyOperationError
		}
		return fmt.Sprintf("Ticket #%d has been updated: %s", updated.ID, formatUpdates(a.Fields, updated))

	case models.CreateAction:
		ticket, err := s.crm.CreateTicket(ctx, a.Subject, callerID)
		if err != nil {
			log.Printf("Error creating ticket: %v", err)
			return replyOperationError
		}
		return fmt.Sprintf("Created new ticket #%d with subject: %s", ticket.ID, ticket.Subject)

	case models.InfoAction:
		profile, err := s.crm.GetCustomerInfo(ctx, a.CustomerID)
		if err != nil {
			log.Printf("Error fetching customer %s: %v", a.CustomerID, err)
			return replyOperationError
		}
		return fmt.Sprintf("Customer Information:\nName: %s\nEmail: %s", profile.FullName, profile.Email)

	case models.UnknownAction:
		return replyUnknownAction

	default:
		return replyUnrecognized
	}
}

func formatHistory(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Content))
	}
	return strings.Join(lines, "\n")
}

// formatUpdates renders the applied changes in a stable field order.
func formatUpdates(fields map[string]string, updated models.Ticket) string {
	var parts []string
	if _, ok := fields["priority"]; ok {
		parts = append(parts, fmt.Sprintf("priority set to %s", updated.Priority))
	}
	if _, ok := fields["status"]; ok {
		parts = append(parts, fmt.Sprintf("status set to %s", updated.Status))
	}
	if _, ok := fields["group"]; ok {
		parts = append(parts, fmt.Sprintf("group set to %s", updated.GroupName))
	}
	return strings.Join(parts, ", ")
}
