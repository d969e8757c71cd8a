package model

import (
	"net/mail"
	"strings"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
)

type Category string

const (
	CategoryBilling        Category = "billing"
	CategoryTechnical      Category = "technical"
	CategoryAccount        Category = "account"
	CategoryFeatureRequest Category = "feature_request"
	CategoryGeneral        Category = "general"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

type EmailStatus string

const (
	EmailNew     EmailStatus = "new"
	EmailOpen    EmailStatus = "open"
	EmailReplied EmailStatus = "replied"
	EmailClosed  EmailStatus = "closed"
)

func (s EmailStatus) Valid() bool {
	switch s {
	case EmailNew, EmailOpen, EmailReplied, EmailClosed:
		return true
	}
	return false
}

// Email is an inbound support message with its triage results.
type Email struct {
	ID         string      `json:"id" db:"id"`
	FromEmail  string      `json:"from_email" db:"from_email"`
	FromName   string      `json:"from_name" db:"from_name"`
	Subject    string      `json:"subject" db:"subject"`
	Body       string      `json:"body" db:"body"`
	Category   Category    `json:"category" db:"category"`
	Sentiment  Sentiment   `json:"sentiment" db:"sentiment"`
	Priority   Priority    `json:"priority" db:"priority"`
	Status     EmailStatus `json:"status" db:"status"`
	Draft      string      `json:"draft,omitempty" db:"draft"`
	Reply      string      `json:"reply,omitempty" db:"reply"`
	ReceivedAt time.Time   `json:"received_at" db:"received_at"`
	RepliedAt  *time.Time  `json:"replied_at,omitempty" db:"replied_at"`
}

func (e *Email) Validate() error {
	if strings.TrimSpace(e.FromEmail) == "" {
		return apperr.Invalid("from_email is required")
	}
	if _, err := mail.ParseAddress(e.FromEmail); err != nil {
		return apperr.Invalid("from_email %q is not a valid address", e.FromEmail)
	}
	if strings.TrimSpace(e.Subject) == "" && strings.TrimSpace(e.Body) == "" {
		return apperr.Invalid("subject or body is required")
	}
	if e.Status != "" && !e.Status.Valid() {
		return apperr.Invalid("invalid status %q", e.Status)
	}
	return nil
}

// CustomerProfile aggregates what support knows about a sender.
type CustomerProfile struct {
	Email          string    `json:"email" db:"email"`
	Name           string    `json:"name" db:"name"`
	Plan           string    `json:"plan" db:"plan"`
	TicketCount    int       `json:"ticket_count" db:"ticket_count"`
	SentimentScore int       `json:"sentiment_score" db:"sentiment_score"`
	LastContact    time.Time `json:"last_contact" db:"last_contact"`
	Notes          string    `json:"notes,omitempty" db:"notes"`
}
