package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/energy"
	"github.com/harrisonrobin/dayboard/pkg/metrics"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

const recentEntries = 10

// EnergySummary is the user's position on the colour scale plus the latest
// awards.
type EnergySummary struct {
	energy.Status
	Recent []model.EnergyEntry `json:"recent"`
}

type EnergyService struct {
	store store.EnergyStore
	log   *logrus.Logger
	now   func() time.Time
}

func NewEnergyService(st store.EnergyStore, log *logrus.Logger) *EnergyService {
	return &EnergyService{store: st, log: log, now: time.Now}
}

// Add records a manual entry of 1 to energy.MaxManual points.
func (s *EnergyService) Add(ctx context.Context, userID string, points int, note string) (*model.EnergyEntry, error) {
	if points < 1 || points > energy.MaxManual {
		return nil, apperr.Invalid("points must be between 1 and %d", energy.MaxManual)
	}
	entry := &model.EnergyEntry{
		ID:        newID(),
		UserID:    userID,
		Points:    points,
		Source:    model.EnergySourceManual,
		Note:      strings.TrimSpace(note),
		CreatedAt: s.now(),
	}
	if err := s.store.AddEnergy(ctx, entry); err != nil {
		return nil, fmt.Errorf("add energy: %w", err)
	}
	metrics.RecordEnergy(entry.Source, entry.Points)
	return entry, nil
}

// award grants points for referenceID once. A repeated award returns nil.
func (s *EnergyService) award(ctx context.Context, userID, source, referenceID string, points int, note string) (*model.EnergyEntry, error) {
	seen, err := s.store.HasEnergyReference(ctx, userID, source, referenceID)
	if err != nil {
		return nil, fmt.Errorf("check energy award: %w", err)
	}
	if seen {
		return nil, nil
	}
	entry := &model.EnergyEntry{
		ID:          newID(),
		UserID:      userID,
		Points:      points,
		Source:      source,
		ReferenceID: referenceID,
		Note:        note,
		CreatedAt:   s.now(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.AddEnergy(ctx, entry); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, nil
		}
		return nil, fmt.Errorf("award energy: %w", err)
	}
	metrics.RecordEnergy(source, points)
	s.log.WithFields(logrus.Fields{
		"user_id": userID,
		"source":  source,
		"points":  points,
	}).Debug("energy awarded")
	return entry, nil
}

func (s *EnergyService) Summary(ctx context.Context, userID string) (*EnergySummary, error) {
	total, err := s.store.EnergyTotal(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("energy total: %w", err)
	}
	recent, err := s.store.ListEnergy(ctx, userID, recentEntries)
	if err != nil {
		return nil, fmt.Errorf("recent energy: %w", err)
	}
	return &EnergySummary{Status: energy.Progress(total), Recent: recent}, nil
}

func (s *EnergyService) History(ctx context.Context, userID string, limit int) ([]model.EnergyEntry, error) {
	entries, err := s.store.ListEnergy(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("energy history: %w", err)
	}
	return entries, nil
}
