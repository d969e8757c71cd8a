package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/energy"
	"github.com/harrisonrobin/dayboard/pkg/metrics"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
	"github.com/harrisonrobin/dayboard/pkg/util"
)

// TaskInput carries the fields of a create or partial update. Nil fields are
// left unchanged on update.
type TaskInput struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Priority    *model.Priority   `json:"priority"`
	Status      *model.TaskStatus `json:"status"`
	Due         *time.Time        `json:"due"`
	ClearDue    bool              `json:"clear_due"`
	Estimate    *string           `json:"estimate"`
	Tags        *[]string         `json:"tags"`
	GoalID      *string           `json:"goal_id"`
	Project     *string           `json:"project"`
}

// Completion is the result of completing a task. Award is nil when the task
// had already been rewarded.
type Completion struct {
	Task  *model.Task        `json:"task"`
	Award *model.EnergyEntry `json:"award,omitempty"`
}

type TaskService struct {
	store  store.Store
	goals  *GoalService
	energy *EnergyService
	log    *logrus.Logger
	now    func() time.Time
}

func NewTaskService(st store.Store, goals *GoalService, energySvc *EnergyService, log *logrus.Logger) *TaskService {
	return &TaskService{store: st, goals: goals, energy: energySvc, log: log, now: time.Now}
}

func (s *TaskService) Create(ctx context.Context, userID string, in TaskInput) (*model.Task, error) {
	if in.Title == nil {
		return nil, apperr.Invalid("title is required")
	}
	now := s.now()
	task := &model.Task{ID: newID(), UserID: userID, CreatedAt: now}
	if err := s.apply(ctx, task, in); err != nil {
		return nil, err
	}
	task.Normalize()
	if task.IsCompleted() {
		task.CompletedAt = timePtr(now)
	}
	task.UpdatedAt = now
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	if task.IsCompleted() {
		if _, err := s.reward(ctx, task); err != nil {
			return nil, err
		}
	}
	s.refreshGoals(ctx, userID, task.GoalID)
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id string) (*model.Task, error) {
	return s.store.GetTask(ctx, userID, id)
}

func (s *TaskService) List(ctx context.Context, f store.TaskFilter) ([]model.Task, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Invalid("invalid status %q", f.Status)
	}
	return s.store.ListTasks(ctx, f)
}

// Update applies a partial update. Moving a task to completed awards energy
// the same way Complete does.
func (s *TaskService) Update(ctx context.Context, userID, id string, in TaskInput) (*model.Task, error) {
	task, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	wasCompleted := task.IsCompleted()
	oldGoal := task.GoalID

	if err := s.apply(ctx, task, in); err != nil {
		return nil, err
	}
	now := s.now()
	switch {
	case task.IsCompleted() && !wasCompleted:
		task.CompletedAt = timePtr(now)
	case !task.IsCompleted():
		task.CompletedAt = nil
	}
	task.UpdatedAt = now
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if task.IsCompleted() && !wasCompleted {
		if _, err := s.reward(ctx, task); err != nil {
			return nil, err
		}
	}
	s.refreshGoals(ctx, userID, oldGoal, task.GoalID)
	return task, nil
}

// Complete marks the task completed and awards its energy once. Completing a
// completed task is a no-op that returns the stored task.
func (s *TaskService) Complete(ctx context.Context, userID, id string) (*Completion, error) {
	task, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted() {
		return &Completion{Task: task}, nil
	}
	now := s.now()
	task.Status = model.StatusCompleted
	task.CompletedAt = timePtr(now)
	task.UpdatedAt = now
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	award, err := s.reward(ctx, task)
	if err != nil {
		return nil, err
	}
	s.refreshGoals(ctx, userID, task.GoalID)
	return &Completion{Task: task, Award: award}, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	task, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, userID, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.refreshGoals(ctx, userID, task.GoalID)
	return nil
}

func (s *TaskService) reward(ctx context.Context, task *model.Task) (*model.EnergyEntry, error) {
	metrics.RecordTaskCompleted(string(task.Priority))
	return s.energy.award(ctx, task.UserID, model.EnergySourceTask, task.ID,
		energy.TaskPoints(task.Priority), "completed: "+task.Title)
}

// refreshGoals recomputes progress of the given goals. Failures are logged;
// the task change itself has already been stored.
func (s *TaskService) refreshGoals(ctx context.Context, userID string, goalIDs ...string) {
	seen := map[string]bool{}
	for _, id := range goalIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.goals.RecomputeProgress(ctx, userID, id); err != nil {
			s.log.WithError(err).WithField("goal_id", id).Warn("could not recompute goal progress")
		}
	}
}

func (s *TaskService) apply(ctx context.Context, task *model.Task, in TaskInput) error {
	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.ClearDue {
		task.Due = nil
	} else if in.Due != nil {
		due := *in.Due
		task.Due = &due
	}
	if in.Estimate != nil {
		if strings.TrimSpace(*in.Estimate) == "" {
			task.EstimateMinutes = 0
		} else {
			d, err := util.ParseEstimate(*in.Estimate)
			if err != nil {
				return apperr.Invalid("invalid estimate %q", *in.Estimate)
			}
			task.EstimateMinutes = int(d / time.Minute)
		}
	}
	if in.Tags != nil {
		var tags model.Tags
		for _, tag := range *in.Tags {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		task.Tags = tags
	}
	if in.Project != nil {
		task.Project = strings.TrimSpace(*in.Project)
	}
	if in.GoalID != nil && *in.GoalID != task.GoalID {
		if *in.GoalID != "" {
			if _, err := s.store.GetGoal(ctx, task.UserID, *in.GoalID); err != nil {
				if apperr.KindOf(err) == apperr.KindNotFound {
					return apperr.Invalid("goal %q does not exist", *in.GoalID)
				}
				return err
			}
		}
		task.GoalID = *in.GoalID
	}
	return nil
}
