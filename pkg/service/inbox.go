package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/assist"
	"github.com/harrisonrobin/dayboard/pkg/logger"
	"github.com/harrisonrobin/dayboard/pkg/mailer"
	"github.com/harrisonrobin/dayboard/pkg/metrics"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
	"github.com/harrisonrobin/dayboard/pkg/triage"
)

// InboxOptions selects the classifier, drafter and mailer. Nil fields get
// the default rules, the template drafter and the log mailer.
type InboxOptions struct {
	Classifier *triage.Classifier
	Drafter    assist.Drafter
	Mailer     mailer.Mailer
}

type EmailInput struct {
	FromEmail  string     `json:"from_email"`
	FromName   string     `json:"from_name"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	ReceivedAt *time.Time `json:"received_at"`
}

type SendInput struct {
	EmailID string `json:"email_id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// InboxService is the admin support inbox: triage on receipt, drafts and
// replies, customer profiles.
type InboxService struct {
	store      store.Store
	classifier *triage.Classifier
	drafter    assist.Drafter
	mailer     mailer.Mailer
	log        *logrus.Logger
	now        func() time.Time
}

func NewInboxService(st store.Store, opts InboxOptions, log *logrus.Logger) *InboxService {
	if log == nil {
		log = logger.Discard()
	}
	if opts.Classifier == nil {
		opts.Classifier = triage.NewClassifier(nil)
	}
	if opts.Drafter == nil {
		opts.Drafter = assist.NewTemplateDrafter("")
	}
	if opts.Mailer == nil {
		opts.Mailer = mailer.NewLogMailer(log)
	}
	return &InboxService{
		store:      st,
		classifier: opts.Classifier,
		drafter:    opts.Drafter,
		mailer:     opts.Mailer,
		log:        log,
		now:        time.Now,
	}
}

// Receive validates and triages an inbound email, stores it and updates the
// sender's customer profile.
func (s *InboxService) Receive(ctx context.Context, in EmailInput) (*model.Email, error) {
	email := &model.Email{
		ID:        newID(),
		FromEmail: strings.ToLower(strings.TrimSpace(in.FromEmail)),
		FromName:  strings.TrimSpace(in.FromName),
		Subject:   strings.TrimSpace(in.Subject),
		Body:      in.Body,
		Status:    model.EmailNew,
	}
	if in.ReceivedAt != nil {
		email.ReceivedAt = *in.ReceivedAt
	} else {
		email.ReceivedAt = s.now()
	}
	if err := email.Validate(); err != nil {
		return nil, err
	}

	res := s.classifier.Classify(email.Subject, email.Body)
	email.Category = res.Category
	email.Sentiment = res.Sentiment
	email.Priority = res.Priority

	if err := s.store.CreateEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("store email: %w", err)
	}
	metrics.RecordEmailTriaged(string(email.Category), string(email.Priority))
	s.log.WithFields(logrus.Fields{
		"email_id":  email.ID,
		"category":  email.Category,
		"sentiment": email.Sentiment,
		"priority":  email.Priority,
	}).Info("email triaged")

	if err := s.touchCustomer(ctx, email, res.Score); err != nil {
		s.log.WithError(err).WithField("email", email.FromEmail).Warn("could not update customer profile")
	}
	return email, nil
}

func (s *InboxService) touchCustomer(ctx context.Context, email *model.Email, score int) error {
	customer, err := s.store.GetCustomer(ctx, email.FromEmail)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return err
		}
		customer = &model.CustomerProfile{Email: email.FromEmail, Plan: "free"}
	}
	if email.FromName != "" {
		customer.Name = email.FromName
	}
	customer.TicketCount++
	customer.SentimentScore += score
	if email.ReceivedAt.After(customer.LastContact) {
		customer.LastContact = email.ReceivedAt
	}
	return s.store.UpsertCustomer(ctx, customer)
}

func (s *InboxService) List(ctx context.Context, f store.EmailFilter) ([]model.Email, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("invalid status %q", f.Status)
	}
	f.From = strings.ToLower(strings.TrimSpace(f.From))
	return s.store.ListEmails(ctx, f)
}

func (s *InboxService) Get(ctx context.Context, id string) (*model.Email, error) {
	return s.store.GetEmail(ctx, id)
}

func (s *InboxService) UpdateStatus(ctx context.Context, id string, status model.EmailStatus) (*model.Email, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("invalid status %q", status)
	}
	email, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	email.Status = status
	if err := s.store.UpdateEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("update email: %w", err)
	}
	return email, nil
}

func (s *InboxService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteEmail(ctx, id)
}

// GenerateDraft writes a reply draft in tone and stores it on the email. A
// new email moves to open.
func (s *InboxService) GenerateDraft(ctx context.Context, id, tone string) (*model.Email, error) {
	t, err := assist.ParseTone(tone)
	if err != nil {
		return nil, err
	}
	email, err := s.store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	customer, err := s.store.GetCustomer(ctx, email.FromEmail)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
		customer = nil
	}

	draft, err := s.drafter.Draft(ctx, email, customer, t)
	if err != nil {
		return nil, fmt.Errorf("draft reply: %w", err)
	}
	email.Draft = draft
	if email.Status == model.EmailNew {
		email.Status = model.EmailOpen
	}
	if err := s.store.UpdateEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("store draft: %w", err)
	}
	return email, nil
}

// Send mails the reply (the stored draft when no body is given) and marks
// the email replied. A failed delivery leaves the email unchanged.
func (s *InboxService) Send(ctx context.Context, in SendInput) (*model.Email, error) {
	if strings.TrimSpace(in.EmailID) == "" {
		return nil, apperr.Invalid("email_id is required")
	}
	email, err := s.store.GetEmail(ctx, in.EmailID)
	if err != nil {
		return nil, err
	}
	body := in.Body
	if strings.TrimSpace(body) == "" {
		body = email.Draft
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Invalid("reply body is empty and no draft exists")
	}
	subject := strings.TrimSpace(in.Subject)
	if subject == "" {
		subject = replySubject(email.Subject)
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:        email.FromEmail,
		ToName:    email.FromName,
		Subject:   subject,
		Body:      body,
		InReplyTo: email.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("send reply: %w", err)
	}

	email.Reply = body
	email.Status = model.EmailReplied
	email.RepliedAt = timePtr(s.now())
	if err := s.store.UpdateEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("mark replied: %w", err)
	}
	s.log.WithField("email_id", email.ID).Info("reply sent")
	return email, nil
}

func replySubject(subject string) string {
	if subject == "" {
		return "Re: your message"
	}
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func (s *InboxService) Customers(ctx context.Context, limit int) ([]model.CustomerProfile, error) {
	return s.store.ListCustomers(ctx, limit)
}

func (s *InboxService) Customer(ctx context.Context, email string) (*model.CustomerProfile, error) {
	return s.store.GetCustomer(ctx, strings.ToLower(strings.TrimSpace(email)))
}
