package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/energy"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

type GoalInput struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Category    *string           `json:"category"`
	TargetDate  *time.Time        `json:"target_date"`
	Status      *model.GoalStatus `json:"status"`
	Progress    *int              `json:"progress"`
}

// GoalCompletion is the result of completing a goal.
type GoalCompletion struct {
	Goal  *model.Goal        `json:"goal"`
	Award *model.EnergyEntry `json:"award,omitempty"`
}

type GoalService struct {
	store  store.Store
	energy *EnergyService
	log    *logrus.Logger
	now    func() time.Time
}

func NewGoalService(st store.Store, energySvc *EnergyService, log *logrus.Logger) *GoalService {
	return &GoalService{store: st, energy: energySvc, log: log, now: time.Now}
}

func (s *GoalService) Create(ctx context.Context, userID string, in GoalInput) (*model.Goal, error) {
	if in.Title == nil {
		return nil, apperr.Invalid("title is required")
	}
	now := s.now()
	goal := &model.Goal{ID: newID(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	applyGoal(goal, in)
	goal.Normalize()
	if err := goal.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return goal, nil
}

func (s *GoalService) Get(ctx context.Context, userID, id string) (*model.Goal, error) {
	return s.store.GetGoal(ctx, userID, id)
}

func (s *GoalService) List(ctx context.Context, userID string, status model.GoalStatus) ([]model.Goal, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Invalid("invalid status %q", status)
	}
	return s.store.ListGoals(ctx, userID, status)
}

// Update applies a partial update. Setting the status to completed goes
// through the same award as Complete.
func (s *GoalService) Update(ctx context.Context, userID, id string, in GoalInput) (*model.Goal, error) {
	goal, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	wasCompleted := goal.Status == model.GoalCompleted
	applyGoal(goal, in)
	goal.UpdatedAt = s.now()
	if goal.Status == model.GoalCompleted {
		goal.Progress = 100
	}
	if err := goal.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	if goal.Status == model.GoalCompleted && !wasCompleted {
		if _, err := s.reward(ctx, goal); err != nil {
			return nil, err
		}
	}
	return goal, nil
}

// Delete removes the goal and unlinks its tasks.
func (s *GoalService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.store.GetGoal(ctx, userID, id); err != nil {
		return err
	}
	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{UserID: userID, GoalID: id})
	if err != nil {
		return fmt.Errorf("list goal tasks: %w", err)
	}
	now := s.now()
	for i := range tasks {
		tasks[i].GoalID = ""
		tasks[i].UpdatedAt = now
		if err := s.store.UpdateTask(ctx, &tasks[i]); err != nil {
			return fmt.Errorf("unlink task %s: %w", tasks[i].ID, err)
		}
	}
	if err := s.store.DeleteGoal(ctx, userID, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}

// RecomputeProgress sets progress to the share of completed linked tasks.
// A goal without linked tasks keeps its manual progress.
func (s *GoalService) RecomputeProgress(ctx context.Context, userID, id string) (*model.Goal, error) {
	goal, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{UserID: userID, GoalID: id})
	if err != nil {
		return nil, fmt.Errorf("list goal tasks: %w", err)
	}
	if len(tasks) == 0 || goal.Status == model.GoalCompleted {
		return goal, nil
	}
	done := 0
	for i := range tasks {
		if tasks[i].IsCompleted() {
			done++
		}
	}
	progress := done * 100 / len(tasks)
	if progress == goal.Progress {
		return goal, nil
	}
	goal.Progress = progress
	goal.UpdatedAt = s.now()
	if err := s.store.UpdateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("update goal progress: %w", err)
	}
	return goal, nil
}

// Complete marks the goal completed at 100% and awards energy.GoalPoints once.
func (s *GoalService) Complete(ctx context.Context, userID, id string) (*GoalCompletion, error) {
	goal, err := s.store.GetGoal(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if goal.Status == model.GoalCompleted {
		return &GoalCompletion{Goal: goal}, nil
	}
	goal.Status = model.GoalCompleted
	goal.Progress = 100
	goal.UpdatedAt = s.now()
	if err := s.store.UpdateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("complete goal: %w", err)
	}
	award, err := s.reward(ctx, goal)
	if err != nil {
		return nil, err
	}
	return &GoalCompletion{Goal: goal, Award: award}, nil
}

func (s *GoalService) reward(ctx context.Context, goal *model.Goal) (*model.EnergyEntry, error) {
	return s.energy.award(ctx, goal.UserID, model.EnergySourceGoal, goal.ID, energy.GoalPoints, "goal: "+goal.Title)
}

func applyGoal(goal *model.Goal, in GoalInput) {
	if in.Title != nil {
		goal.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		goal.Description = *in.Description
	}
	if in.Category != nil {
		goal.Category = strings.TrimSpace(*in.Category)
	}
	if in.TargetDate != nil {
		target := *in.TargetDate
		goal.TargetDate = &target
	}
	if in.Status != nil {
		goal.Status = *in.Status
	}
	if in.Progress != nil {
		goal.Progress = *in.Progress
	}
}
