package services

import (
	"regexp"
	"strconv"
	"strings"

	"zenny/models"
)

var (
	actionRe   = regexp.MustCompile(`(?is)^ACTION:\s*(\w+)(.*)$`)
	queryRe    = regexp.MustCompile(`(?i)query:\s*([^\n]+)`)
	ticketRe   = regexp.MustCompile(`(?i)ticket:\s*(\d+)`)
	priorityRe = regexp.MustCompile(`(?i)priority:\s*(\w+)`)
	statusRe   = regexp.MustCompile(`(?i)status:\s*(\w+)`)
	groupRe    = regexp.MustCompile(`(?i)group:\s*(\w+)`)
	subjectRe  = regexp.MustCompile(`(?i)subject:\s*([^\n]+)`)
	customerRe = regexp.MustCompile(`(?i)customer:\s*(\w+)`)
)

// ParseAction reduces one raw classifier response to exactly one Action.
// Free-text LLM output is unreliable, so missing details degrade to fallbacks
// (the original user input for SEARCH/CREATE, the caller for INFO) instead of
// failing: a malformed detail line must never block the request.
func ParseAction(raw, userInput, callerID string) models.Action {
	m := actionRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return models.UnrecognizedAction{}
	}

	keyword := strings.ToUpper(m[1])
	details := m[2]

	switch keyword {
	case "SEARCH":
		query := userInput
		if qm := queryRe.FindStringSubmatch(details); qm != nil {
			query = strings.TrimSpace(qm[1])
		}
		return models.SearchAction{Query: query}

	case "UPDATE":
		action := models.UpdateAction{Fields: map[string]string{}}
		if tm := ticketRe.FindStringSubmatch(details); tm != nil {
			id, err := strconv.ParseInt(tm[1], 10, 64)
			if err == nil {
				action.TicketID = id
				action.HasTicketID = true
			}
		}
		if pm := priorityRe.FindStringSubmatch(details); pm != nil {
			action.Fields["priority"] = strings.ToLower(pm[1])
		}
		if sm := statusRe.FindStringSubmatch(details); sm != nil {
			action.Fields["status"] = strings.ToLower(sm[1])
		}
		if gm := groupRe.FindStringSubmatch(details); gm != nil {
			action.Fields["group"] = gm[1]
		}
		return action

	case "CREATE":
		subject := userInput
		if sm := subjectRe.FindStringSubmatch(details); sm != nil {
			subject = strings.TrimSpace(sm[1])
		}
		return models.CreateAction{Subject: subject}

	case "INFO":
		customerID := callerID
		if cm := customerRe.FindStringSubmatch(details); cm != nil {
			customerID = cm[1]
		}
		return models.InfoAction{CustomerID: customerID}

	default:
		return models.UnknownAction{Keyword: keyword}
	}
}
