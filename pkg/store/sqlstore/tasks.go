package sqlstore

import (
	"context"
	"strings"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

const taskColumns = `id, user_id, title, description, priority, status, due, estimate_minutes,
	tags, goal_id, project, source, external_id, created_at, updated_at, completed_at`

func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	_, err := s.exec(ctx, "task", `INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, t.Description, t.Priority, t.Status, utcPtr(t.Due), t.EstimateMinutes,
		t.Tags, t.GoalID, t.Project, t.Source, t.ExternalID, utc(t.CreatedAt), utc(t.UpdatedAt), utcPtr(t.CompletedAt))
	return err
}

func (s *Store) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	var t model.Task
	if err := s.get(ctx, &t, "task", `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, f store.TaskFilter) ([]model.Task, error) {
	where := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.GoalID != "" {
		where = append(where, "goal_id = ?")
		args = append(args, f.GoalID)
	}
	if f.Tag != "" {
		where = append(where, "(',' || tags || ',') LIKE ?")
		args = append(args, "%,"+f.Tag+",%")
	}
	if f.DueBefore != nil {
		where = append(where, "due IS NOT NULL AND due < ?")
		args = append(args, utc(*f.DueBefore))
	}
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	tasks := []model.Task{}
	err := s.selectAll(ctx, &tasks, "tasks", query, args...)
	return tasks, err
}

func (s *Store) UpdateTask(ctx context.Context, t *model.Task) error {
	return s.mustAffect(ctx, "task", `UPDATE tasks SET title = ?, description = ?, priority = ?, status = ?,
		due = ?, estimate_minutes = ?, tags = ?, goal_id = ?, project = ?, updated_at = ?, completed_at = ?
		WHERE user_id = ? AND id = ?`,
		t.Title, t.Description, t.Priority, t.Status, utcPtr(t.Due), t.EstimateMinutes, t.Tags, t.GoalID,
		t.Project, utc(t.UpdatedAt), utcPtr(t.CompletedAt), t.UserID, t.ID)
}

func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	return s.mustAffect(ctx, "task", `DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
}

func (s *Store) FindTaskByExternalID(ctx context.Context, userID, source, externalID string) (*model.Task, error) {
	var t model.Task
	err := s.get(ctx, &t, "task", `SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND source = ? AND external_id = ?`, userID, source, externalID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
