package services

import (
	"context"
	"database/sql"
	"fmt"

	"zenny/models"
)

// notificationExecer is the slice of database/sql the notification writes
// need.
type notificationExecer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// NotificationService writes helpdesk notifications to the ticketing
// database.
type NotificationService struct {
	db notificationExecer
}

func NewNotificationService(db *sql.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Create(ctx context.Context, n models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, ticket_id, type, title, message, read, created_at)
		VALUES ($1, $2, $3, $4, $5, false, now())`,
		n.UserID, n.TicketID, n.Type, n.Title, n.Message,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %v", err)
	}
	return nil
}

// TicketCreated records a system notification (nil user_id) so agents and
// admins see the unassigned ticket.
func (s *NotificationService) TicketCreated(ctx context.Context, ticket models.Ticket) error {
	return s.Create(ctx, models.Notification{
		TicketID: &ticket.ID,
		Type:     models.NotificationTicketCreated,
		Title:    "New Unassigned Ticket",
		Message:  fmt.Sprintf("New ticket '%s' needs assignment", ticket.Subject),
	})
}

// TicketUpdated notifies the ticket owner when someone else changed their
// ticket, and the new assignee when assignment changed. actorName is the
// identity rendered in the owner notification; AutoCRM updates pass
// "AutoCRM" so the text makes the assistant's involvement clear.
func (s *NotificationService) TicketUpdated(ctx context.Context, updated, previous models.Ticket, actorID, actorName string) error {
	if updated.UserID != actorID {
		err := s.Create(ctx, models.Notification{
			UserID:   &updated.UserID,
			TicketID: &updated.ID,
			Type:     models.NotificationTicketUpdated,
			Title:    "Ticket Updated",
			Message:  fmt.Sprintf("Your ticket %q has been updated by %s", updated.Subject, actorName),
		})
		if err != nil {
			return err
		}
	}

	if updated.AssignedTo != "" && updated.AssignedTo != previous.AssignedTo {
		err := s.Create(ctx, models.Notification{
			UserID:   &updated.AssignedTo,
			TicketID: &updated.ID,
			Type:     models.NotificationTicketAssigned,
			Title:    "Ticket Assigned",
			Message:  fmt.Sprintf("Ticket %q has been assigned to you", updated.Subject),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
