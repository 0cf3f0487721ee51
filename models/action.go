package models

// Action is the structured command extracted from one classifier response.
// Exactly one variant is produced per response.
type Action interface {
	isAction()
}

// SearchAction looks up tickets matching a free-text query.
type SearchAction struct {
	Query string
}

// UpdateAction changes a constrained set of fields on one ticket.
// HasTicketID is false when the classifier omitted the ticket number,
// in which case no store operation may run.
type UpdateAction struct {
	TicketID    int64
	HasTicketID bool
	Fields      map[string]string
}

// CreateAction opens a new ticket with the given subject.
type CreateAction struct {
	Subject string
}

// InfoAction fetches a customer profile.
type InfoAction struct {
	CustomerID string
}

// UnknownAction is a well-formed ACTION line with a keyword outside the
// supported set.
type UnknownAction struct {
	Keyword string
}

// UnrecognizedAction is classifier output with no ACTION line at all.
type UnrecognizedAction struct{}

func (SearchAction) isAction()       {}
func (UpdateAction) isAction()       {}
func (CreateAction) isAction()       {}
func (InfoAction) isAction()         {}
func (UnknownAction) isAction()      {}
func (UnrecognizedAction) isAction() {}
