package sqlstore

import (
	"context"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

const energyColumns = `id, user_id, points, source, reference_id, note, created_at`

func (s *Store) AddEnergy(ctx context.Context, e *model.EnergyEntry) error {
	_, err := s.exec(ctx, "energy entry", `INSERT INTO energy_entries (`+energyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Points, e.Source, e.ReferenceID, e.Note, utc(e.CreatedAt))
	return err
}

func (s *Store) ListEnergy(ctx context.Context, userID string, limit int) ([]model.EnergyEntry, error) {
	entries := []model.EnergyEntry{}
	err := s.selectAll(ctx, &entries, "energy entries", `SELECT `+energyColumns+` FROM energy_entries
		WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ?`, userID, store.Limit(limit))
	return entries, err
}

func (s *Store) EnergyTotal(ctx context.Context, userID string) (int, error) {
	var total int
	err := s.get(ctx, &total, "energy total", `SELECT COALESCE(SUM(points), 0) FROM energy_entries WHERE user_id = ?`, userID)
	return total, err
}

func (s *Store) HasEnergyReference(ctx context.Context, userID, source, referenceID string) (bool, error) {
	var n int
	err := s.get(ctx, &n, "energy entry", `SELECT COUNT(*) FROM energy_entries
		WHERE user_id = ? AND source = ? AND reference_id = ?`, userID, source, referenceID)
	return n > 0, err
}
