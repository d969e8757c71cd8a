package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

// ImportReport counts the outcome of an import.
type ImportReport struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// GoalRecomputer derives a goal's progress from its linked tasks.
type GoalRecomputer interface {
	RecomputeProgress(ctx context.Context, userID, id string) (*model.Goal, error)
}

// ImportService upserts tasks read from Taskwarrior or Org-mode, keyed by
// source and external id.
type ImportService struct {
	store store.TaskStore
	goals GoalRecomputer
	log   *logrus.Logger
	now   func() time.Time
}

// NewImportService returns an importer. goals may be nil, in which case goal
// progress is left to the next task change.
func NewImportService(st store.TaskStore, goals GoalRecomputer, log *logrus.Logger) *ImportService {
	return &ImportService{store: st, goals: goals, log: log, now: time.Now}
}

// Import stores tasks for userID. Each task must carry Source and ExternalID.
// Invalid tasks are skipped and logged; store failures abort the import.
func (s *ImportService) Import(ctx context.Context, userID string, tasks []model.Task) (*ImportReport, error) {
	report := &ImportReport{}
	touched := map[string]bool{}
	defer s.refreshGoals(ctx, userID, touched)

	for i := range tasks {
		in := tasks[i]
		in.UserID = userID
		in.Normalize()
		if in.ExternalID == "" {
			report.Skipped++
			s.log.WithField("title", in.Title).Warn("skipping imported task without external id")
			continue
		}
		if err := in.Validate(); err != nil {
			report.Skipped++
			s.log.WithError(err).WithField("external_id", in.ExternalID).Warn("skipping invalid imported task")
			continue
		}

		existing, err := s.store.FindTaskByExternalID(ctx, userID, in.Source, in.ExternalID)
		switch {
		case err == nil:
			if !merge(existing, &in) {
				report.Unchanged++
				continue
			}
			existing.UpdatedAt = s.now()
			if err := s.store.UpdateTask(ctx, existing); err != nil {
				return report, fmt.Errorf("update imported task %s: %w", in.ExternalID, err)
			}
			report.Updated++
			touched[existing.GoalID] = true
		case apperr.KindOf(err) == apperr.KindNotFound:
			now := s.now()
			in.ID = newID()
			if in.CreatedAt.IsZero() {
				in.CreatedAt = now
			}
			if in.UpdatedAt.IsZero() {
				in.UpdatedAt = now
			}
			if err := s.store.CreateTask(ctx, &in); err != nil {
				return report, fmt.Errorf("create imported task %s: %w", in.ExternalID, err)
			}
			report.Created++
			touched[in.GoalID] = true
		default:
			return report, fmt.Errorf("find imported task %s: %w", in.ExternalID, err)
		}
	}
	s.log.WithFields(logrus.Fields{
		"created":   report.Created,
		"updated":   report.Updated,
		"unchanged": report.Unchanged,
		"skipped":   report.Skipped,
	}).Info("import finished")
	return report, nil
}

// refreshGoals recomputes every goal whose linked tasks the import changed,
// including after an aborted import. Failures are logged.
func (s *ImportService) refreshGoals(ctx context.Context, userID string, goalIDs map[string]bool) {
	if s.goals == nil {
		return
	}
	for id := range goalIDs {
		if id == "" {
			continue
		}
		if _, err := s.goals.RecomputeProgress(ctx, userID, id); err != nil {
			s.log.WithError(err).WithField("goal_id", id).Warn("could not recompute goal progress")
		}
	}
}

// merge copies the imported fields onto dst and reports whether any changed.
// Goal links made in dayboard are kept.
func merge(dst, src *model.Task) bool {
	changed := dst.Title != src.Title ||
		dst.Description != src.Description ||
		dst.Priority != src.Priority ||
		dst.Status != src.Status ||
		!sameTime(dst.Due, src.Due) ||
		!sameTime(dst.CompletedAt, src.CompletedAt) ||
		dst.EstimateMinutes != src.EstimateMinutes ||
		dst.Project != src.Project ||
		!sameTags(dst.Tags, src.Tags)
	if !changed {
		return false
	}
	dst.Title = src.Title
	dst.Description = src.Description
	dst.Priority = src.Priority
	dst.Status = src.Status
	dst.Due = src.Due
	dst.CompletedAt = src.CompletedAt
	dst.EstimateMinutes = src.EstimateMinutes
	dst.Project = src.Project
	dst.Tags = src.Tags
	return true
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func sameTags(a, b model.Tags) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
