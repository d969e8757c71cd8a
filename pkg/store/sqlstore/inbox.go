package sqlstore

import (
	"context"
	"strings"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

const emailColumns = `id, from_email, from_name, subject, body, category, sentiment, priority, status,
	draft, reply, received_at, replied_at`

const customerColumns = `email, name, plan, ticket_count, sentiment_score, last_contact, notes`

func (s *Store) CreateEmail(ctx context.Context, e *model.Email) error {
	_, err := s.exec(ctx, "email", `INSERT INTO emails (`+emailColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FromEmail, e.FromName, e.Subject, e.Body, e.Category, e.Sentiment, e.Priority, e.Status,
		e.Draft, e.Reply, utc(e.ReceivedAt), utcPtr(e.RepliedAt))
	return err
}

func (s *Store) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	var e model.Email
	if err := s.get(ctx, &e, "email", `SELECT `+emailColumns+` FROM emails WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListEmails(ctx context.Context, f store.EmailFilter) ([]model.Email, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.From != "" {
		where = append(where, "from_email = ?")
		args = append(args, f.From)
	}
	query := `SELECT ` + emailColumns + ` FROM emails`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY received_at DESC, id LIMIT ?`
	args = append(args, store.Limit(f.Limit))

	emails := []model.Email{}
	err := s.selectAll(ctx, &emails, "emails", query, args...)
	return emails, err
}

func (s *Store) UpdateEmail(ctx context.Context, e *model.Email) error {
	return s.mustAffect(ctx, "email", `UPDATE emails SET category = ?, sentiment = ?, priority = ?, status = ?,
		draft = ?, reply = ?, replied_at = ? WHERE id = ?`,
		e.Category, e.Sentiment, e.Priority, e.Status, e.Draft, e.Reply, utcPtr(e.RepliedAt), e.ID)
}

func (s *Store) DeleteEmail(ctx context.Context, id string) error {
	return s.mustAffect(ctx, "email", `DELETE FROM emails WHERE id = ?`, id)
}

func (s *Store) UpsertCustomer(ctx context.Context, c *model.CustomerProfile) error {
	_, err := s.exec(ctx, "customer", `INSERT INTO customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET name = excluded.name, plan = excluded.plan,
			ticket_count = excluded.ticket_count, sentiment_score = excluded.sentiment_score,
			last_contact = excluded.last_contact, notes = excluded.notes`,
		c.Email, c.Name, c.Plan, c.TicketCount, c.SentimentScore, utc(c.LastContact), c.Notes)
	return err
}

func (s *Store) GetCustomer(ctx context.Context, email string) (*model.CustomerProfile, error) {
	var c model.CustomerProfile
	if err := s.get(ctx, &c, "customer", `SELECT `+customerColumns+` FROM customers WHERE email = ?`, email); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context, limit int) ([]model.CustomerProfile, error) {
	customers := []model.CustomerProfile{}
	err := s.selectAll(ctx, &customers, "customers", `SELECT `+customerColumns+` FROM customers
		ORDER BY last_contact DESC, email LIMIT ?`, store.Limit(limit))
	return customers, err
}
