package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"zenny/models"
)

// OpenPostgres connects to the ticketing database and verifies the
// connection before returning it.
func OpenPostgres(postgresURI string) (*sql.DB, error) {
	connStr := postgresURI
	if !strings.Contains(postgresURI, "sslmode=") {
		if strings.Contains(postgresURI, "?") {
			connStr += "&sslmode=disable"
		} else {
			connStr += " sslmode=disable"
		}
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %v", err)
	}
	return db, nil
}

// TicketFilter describes one ticket search. Empty fields are skipped.
type TicketFilter struct {
	// Text matches subject or description, case-insensitive.
	Text string
	// OpenOrAssignedTo restricts to tickets that are open or assigned to
	// the given user.
	OpenOrAssignedTo string
	// ExcludeGroup removes tickets belonging to the named group.
	ExcludeGroup string

	Status    string
	UserID    string
	GroupName string

	Limit  int
	Offset int
}

// TicketStore is the system of record for tickets, profiles and their
// joined identity columns.
type TicketStore struct {
	db *sql.DB
}

func NewTicketStore(db *sql.DB) *TicketStore {
	return &TicketStore{db: db}
}

const ticketColumns = `
	t.id, t.subject, t.description, t.status, t.priority, t.ticket_type,
	t.topic, t.group_name, t.user_id, COALESCE(t.assigned_to, ''),
	t.created_at, t.updated_at, t.last_agent_update, t.last_requester_update,
	COALESCE(c.email, ''), COALESCE(c.full_name, ''),
	COALESCE(a.email, ''), COALESCE(a.full_name, '')`

const ticketJoins = `
	FROM tickets t
	LEFT JOIN profiles c ON c.id = t.user_id
	LEFT JOIN profiles a ON a.id = t.assigned_to`

func (s *TicketStore) GetTicket(ctx context.Context, id int64) (models.Ticket, error) {
	row := s.db.QueryRowContext(ctx, "SELECT"+ticketColumns+ticketJoins+" WHERE t.id = $1", id)
	ticket, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return models.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Ticket{}, fmt.Errorf("failed to load ticket %d: %v", id, err)
	}
	return ticket, nil
}

func (s *TicketStore) SearchTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.OpenOrAssignedTo != "" {
		conditions = append(conditions, fmt.Sprintf("(t.status = 'open' OR t.assigned_to = %s)", arg(f.OpenOrAssignedTo)))
	}
	if f.ExcludeGroup != "" {
		conditions = append(conditions, fmt.Sprintf("t.group_name <> %s", arg(f.ExcludeGroup)))
	}
	if f.Text != "" {
		pattern := "%" + f.Text + "%"
		p := arg(pattern)
		conditions = append(conditions, fmt.Sprintf("(t.subject ILIKE %s OR t.description ILIKE %s)", p, p))
	}
	if f.Status != "" {
		conditions = append(conditions, fmt.Sprintf("t.status = %s", arg(f.Status)))
	}
	if f.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("t.user_id = %s", arg(f.UserID)))
	}
	if f.GroupName != "" {
		conditions = append(conditions, fmt.Sprintf("t.group_name = %s", arg(f.GroupName)))
	}

	query := "SELECT" + ticketColumns + ticketJoins
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY t.created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", arg(f.Limit))
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %s", arg(f.Offset))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket search failed: %v", err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan failed: %v", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// ticketColumnWhitelist maps updatable field names to their columns. Anything
// else in an update map is rejected.
var ticketColumnWhitelist = map[string]string{
	"subject":               "subject",
	"description":           "description",
	"status":                "status",
	"priority":              "priority",
	"ticket_type":           "ticket_type",
	"topic":                 "topic",
	"group_name":            "group_name",
	"assigned_to":           "assigned_to",
	"last_agent_update":     "last_agent_update",
	"last_requester_update": "last_requester_update",
}

func (s *TicketStore) UpdateTicket(ctx context.Context, id int64, fields map[string]interface{}) (models.Ticket, error) {
	if len(fields) == 0 {
		return s.GetTicket(ctx, id)
	}

	var sets []string
	var args []interface{}
	for name, value := range fields {
		column, ok := ticketColumnWhitelist[name]
		if !ok {
			return models.Ticket{}, fmt.Errorf("field %q is not updatable", name)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("failed to update ticket %d: %v", id, err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return models.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}

	return s.GetTicket(ctx, id)
}

func (s *TicketStore) InsertTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tickets (subject, description, status, priority, ticket_type, topic, group_name, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id`,
		t.Subject, t.Description, t.Status, t.Priority, t.TicketType, t.Topic, t.GroupName, t.UserID,
	).Scan(&id)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("failed to insert ticket: %v", err)
	}
	return s.GetTicket(ctx, id)
}

func (s *TicketStore) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(full_name, ''), role, created_at
		FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Profile{}, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to load profile %s: %v", id, err)
	}
	return p, nil
}

// SearchAgents matches agent and admin profiles on email or name.
func (s *TicketStore) SearchAgents(ctx context.Context, query string) ([]models.Profile, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, COALESCE(full_name, ''), role, created_at
		FROM profiles
		WHERE (email ILIKE $1 OR full_name ILIKE $1) AND role IN ('agent', 'admin')
		ORDER BY full_name
		LIMIT 10`, pattern)
	if err != nil {
		return nil, fmt.Errorf("agent search failed: %v", err)
	}
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("row scan failed: %v", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (models.Ticket, error) {
	var t models.Ticket
	var lastAgent, lastRequester sql.NullTime
	err := row.Scan(
		&t.ID, &t.Subject, &t.Description, &t.Status, &t.Priority, &t.TicketType,
		&t.Topic, &t.GroupName, &t.UserID, &t.AssignedTo,
		&t.CreatedAt, &t.UpdatedAt, &lastAgent, &lastRequester,
		&t.CreatorEmail, &t.CreatorName,
		&t.AgentEmail, &t.AgentName,
	)
	if err != nil {
		return models.Ticket{}, err
	}
	if lastAgent.Valid {
		t.LastAgentUpdate = &lastAgent.Time
	}
	if lastRequester.Valid {
		t.LastRequesterUpdate = &lastRequester.Time
	}
	return t, nil
}
