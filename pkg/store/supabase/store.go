package supabase

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

const (
	tableTasks     = "tasks"
	tableGoals     = "goals"
	tableEnergy    = "energy_entries"
	tableEmails    = "emails"
	tableCustomers = "customers"

	preferMinimal = "return=minimal"
	preferRows    = "return=representation"
	preferMerge   = "resolution=merge-duplicates,return=minimal"

	// pageSize matches the default max-rows of hosted projects.
	pageSize = 1000
)

// Store maps store.Store onto Supabase tables. The hosted tasks table keeps
// tags as text[].
type Store struct {
	c *Client
}

var _ store.Store = (*Store)(nil)

func New(c *Client) *Store {
	return &Store{c: c}
}

func (s *Store) Close() error {
	s.c.httpClient.CloseIdleConnections()
	return nil
}

func (s *Store) insert(ctx context.Context, table string, row any) error {
	_, err := s.c.do(ctx, http.MethodPost, table, newQuery(), row, preferMinimal)
	return err
}

func (s *Store) patch(ctx context.Context, table, what string, q query, row any) error {
	data, err := s.c.do(ctx, http.MethodPatch, table, q, row, preferRows)
	if err != nil {
		return err
	}
	return affected(data, what)
}

// pages reads every row q matches. Offsets advance by the rows actually
// returned, so a server max-rows below pageSize still reaches the end.
func pages[T any](ctx context.Context, c *Client, table string, q query) ([]T, error) {
	out := []T{}
	for offset := 0; ; {
		data, err := c.do(ctx, http.MethodGet, table, q.limit(pageSize).offset(offset), nil, "")
		if err != nil {
			return nil, err
		}
		rows, err := decode[T](data)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return out, nil
		}
		out = append(out, rows...)
		offset += len(rows)
	}
}

func (s *Store) remove(ctx context.Context, table, what string, q query) error {
	data, err := s.c.do(ctx, http.MethodDelete, table, q, nil, preferRows)
	if err != nil {
		return err
	}
	return affected(data, what)
}

func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	row := *t
	row.Tags = tagsOf(t.Tags)
	return s.insert(ctx, tableTasks, &row)
}

func (s *Store) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	data, err := s.c.do(ctx, http.MethodGet, tableTasks, newQuery().eq("user_id", userID).eq("id", id), nil, "")
	if err != nil {
		return nil, err
	}
	return one[model.Task](data, "task")
}

func (s *Store) ListTasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error) {
	q := newQuery().eq("user_id", f.UserID).order("created_at.asc,id.asc")
	if f.Status != "" {
		q.eq("status", f.Status)
	}
	if f.GoalID != "" {
		q.eq("goal_id", f.GoalID)
	}
	if f.Tag != "" {
		q.contains("tags", f.Tag)
	}
	if f.DueBefore != nil {
		q.lt("due", *f.DueBefore)
	}
	if f.Limit <= 0 {
		return pages[model.Task](ctx, s.c, tableTasks, q)
	}
	data, err := s.c.do(ctx, http.MethodGet, tableTasks, q.limit(f.Limit), nil, "")
	if err != nil {
		return nil, err
	}
	return decode[model.Task](data)
}

func (s *Store) UpdateTask(ctx context.Context, t *model.Task) error {
	return s.patch(ctx, tableTasks, "task", newQuery().eq("user_id", t.UserID).eq("id", t.ID), newTaskRow(t))
}

func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	return s.remove(ctx, tableTasks, "task", newQuery().eq("user_id", userID).eq("id", id))
}

func (s *Store) FindTaskByExternalID(ctx context.Context, userID, source, externalID string) (*model.Task, error) {
	q := newQuery().eq("user_id", userID).eq("source", source).eq("external_id", externalID).limit(1)
	data, err := s.c.do(ctx, http.MethodGet, tableTasks, q, nil, "")
	if err != nil {
		return nil, err
	}
	return one[model.Task](data, "task")
}

func (s *Store) CreateGoal(ctx context.Context, g *model.Goal) error {
	return s.insert(ctx, tableGoals, g)
}

func (s *Store) GetGoal(ctx context.Context, userID, id string) (*model.Goal, error) {
	data, err := s.c.do(ctx, http.MethodGet, tableGoals, newQuery().eq("user_id", userID).eq("id", id), nil, "")
	if err != nil {
		return nil, err
	}
	return one[model.Goal](data, "goal")
}

func (s *Store) ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]model.Goal, error) {
	q := newQuery().eq("user_id", userID).order("created_at.asc,id.asc").limit(store.DefaultLimit)
	if status != "" {
		q.eq("status", status)
	}
	data, err := s.c.do(ctx, http.MethodGet, tableGoals, q, nil, "")
	if err != nil {
		return nil, err
	}
	return decode[model.Goal](data)
}

func (s *Store) UpdateGoal(ctx context.Context, g *model.Goal) error {
	return s.patch(ctx, tableGoals, "goal", newQuery().eq("user_id", g.UserID).eq("id", g.ID), newGoalRow(g))
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	return s.remove(ctx, tableGoals, "goal", newQuery().eq("user_id", userID).eq("id", id))
}

func (s *Store) AddEnergy(ctx context.Context, e *model.EnergyEntry) error {
	return s.insert(ctx, tableEnergy, e)
}

func (s *Store) ListEnergy(ctx context.Context, userID string, limit int) ([]model.EnergyEntry, error) {
	q := newQuery().eq("user_id", userID).order("created_at.desc,id.asc").limit(store.Limit(limit))
	data, err := s.c.do(ctx, http.MethodGet, tableEnergy, q, nil, "")
	if err != nil {
		return nil, err
	}
	return decode[model.EnergyEntry](data)
}

// EnergyTotal sums the points column client side; PostgREST aggregates are
// disabled on most projects.
func (s *Store) EnergyTotal(ctx context.Context, userID string) (int, error) {
	q := newQuery().eq("user_id", userID).sel("points").order("id.asc")
	rows, err := pages[struct {
		Points int `json:"points"`
	}](ctx, s.c, tableEnergy, q)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range rows {
		total += r.Points
	}
	return total, nil
}

func (s *Store) HasEnergyReference(ctx context.Context, userID, source, referenceID string) (bool, error) {
	q := newQuery().eq("user_id", userID).eq("source", source).eq("reference_id", referenceID).sel("id").limit(1)
	data, err := s.c.do(ctx, http.MethodGet, tableEnergy, q, nil, "")
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(data, "#").Int() > 0, nil
}

func (s *Store) CreateEmail(ctx context.Context, e *model.Email) error {
	return s.insert(ctx, tableEmails, e)
}

func (s *Store) GetEmail(ctx context.Context, id string) (*model.Email, error) {
	data, err := s.c.do(ctx, http.MethodGet, tableEmails, newQuery().eq("id", id), nil, "")
	if err != nil {
		return nil, err
	}
	return one[model.Email](data, "email")
}

func (s *Store) ListEmails(ctx context.Context, f store.EmailFilter) ([]model.Email, error) {
	q := newQuery().order("received_at.desc,id.asc").limit(store.Limit(f.Limit))
	if f.Status != "" {
		q.eq("status", f.Status)
	}
	if f.Category != "" {
		q.eq("category", f.Category)
	}
	if f.From != "" {
		q.eq("from_email", f.From)
	}
	data, err := s.c.do(ctx, http.MethodGet, tableEmails, q, nil, "")
	if err != nil {
		return nil, err
	}
	return decode[model.Email](data)
}

func (s *Store) UpdateEmail(ctx context.Context, e *model.Email) error {
	return s.patch(ctx, tableEmails, "email", newQuery().eq("id", e.ID), newEmailRow(e))
}

func (s *Store) DeleteEmail(ctx context.Context, id string) error {
	return s.remove(ctx, tableEmails, "email", newQuery().eq("id", id))
}

func (s *Store) UpsertCustomer(ctx context.Context, c *model.CustomerProfile) error {
	q := newQuery()
	q.Set("on_conflict", "email")
	_, err := s.c.do(ctx, http.MethodPost, tableCustomers, q, c, preferMerge)
	return err
}

func (s *Store) GetCustomer(ctx context.Context, email string) (*model.CustomerProfile, error) {
	data, err := s.c.do(ctx, http.MethodGet, tableCustomers, newQuery().eq("email", email), nil, "")
	if err != nil {
		return nil, err
	}
	return one[model.CustomerProfile](data, "customer")
}

func (s *Store) ListCustomers(ctx context.Context, limit int) ([]model.CustomerProfile, error) {
	q := newQuery().order("last_contact.desc,email.asc").limit(store.Limit(limit))
	data, err := s.c.do(ctx, http.MethodGet, tableCustomers, q, nil, "")
	if err != nil {
		return nil, err
	}
	return decode[model.CustomerProfile](data)
}
