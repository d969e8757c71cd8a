package sqlstore

import (
	"context"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

const goalColumns = `id, user_id, title, description, category, target_date, status, progress, created_at, updated_at`

func (s *Store) CreateGoal(ctx context.Context, g *model.Goal) error {
	_, err := s.exec(ctx, "goal", `INSERT INTO goals (`+goalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.UserID, g.Title, g.Description, g.Category, utcPtr(g.TargetDate), g.Status, g.Progress,
		utc(g.CreatedAt), utc(g.UpdatedAt))
	return err
}

func (s *Store) GetGoal(ctx context.Context, userID, id string) (*model.Goal, error) {
	var g model.Goal
	if err := s.get(ctx, &g, "goal", `SELECT `+goalColumns+` FROM goals WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) ListGoals(ctx context.Context, userID string, status model.GoalStatus) ([]model.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at, id LIMIT ?`
	args = append(args, store.DefaultLimit)

	goals := []model.Goal{}
	err := s.selectAll(ctx, &goals, "goals", query, args...)
	return goals, err
}

func (s *Store) UpdateGoal(ctx context.Context, g *model.Goal) error {
	return s.mustAffect(ctx, "goal", `UPDATE goals SET title = ?, description = ?, category = ?, target_date = ?,
		status = ?, progress = ?, updated_at = ? WHERE user_id = ? AND id = ?`,
		g.Title, g.Description, g.Category, utcPtr(g.TargetDate), g.Status, g.Progress, utc(g.UpdatedAt), g.UserID, g.ID)
}

func (s *Store) DeleteGoal(ctx context.Context, userID, id string) error {
	return s.mustAffect(ctx, "goal", `DELETE FROM goals WHERE user_id = ? AND id = ?`, userID, id)
}
