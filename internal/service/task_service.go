package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
	"github.com/ict-helpdesk/servicedesk/internal/events"
	"github.com/ict-helpdesk/servicedesk/internal/repository"
	apperrors "github.com/ict-helpdesk/servicedesk/pkg/util"
)

// TaskService owns the internal task lifecycle: admin-driven updates,
// technician progress reporting, mutable admin annotations on progress
// entries, and the one-time rating lock.
type TaskService struct {
	tasks      repository.TaskRepository
	progress   repository.TaskProgressRepository
	uow        repository.UnitOfWork
	directory  Directory
	notifier   Notifier
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TaskDependencies bundles collaborators for the task service.
type TaskDependencies struct {
	TaskRepo     repository.TaskRepository
	ProgressRepo repository.TaskProgressRepository
	UnitOfWork   repository.UnitOfWork
	Directory    Directory
	Notifier     Notifier
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewTaskService constructs the service.
func NewTaskService(deps TaskDependencies) *TaskService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		tasks:      deps.TaskRepo,
		progress:   deps.ProgressRepo,
		uow:        deps.UnitOfWork,
		directory:  deps.Directory,
		notifier:   deps.Notifier,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// TaskCreateInput describes task creation payload.
type TaskCreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *int64
	DueAt       *time.Time
}

// TaskAdminUpdate carries the fields an admin may change. Nil means unchanged.
type TaskAdminUpdate struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	AssigneeID     *int64
	DueAt          *time.Time
	TechnicianNote *string
}

// Create opens a new task. Admin only.
func (s *TaskService) Create(ctx context.Context, actor Actor, input TaskCreateInput) (*domain.Task, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may create tasks")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}
	priority, ok := domain.ParseTaskPriority(input.Priority)
	if !ok {
		priority = domain.TaskPriorityMedium
	}
	status, ok := domain.ParseTaskStatus(input.Status)
	if !ok {
		status = domain.TaskStatusOpen
	}

	task := &domain.Task{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		Priority:    priority,
		AssigneeID:  input.AssigneeID,
		CreatedBy:   actor.ID,
		DueAt:       input.DueAt,
	}
	err := s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tasks.Create(ctx, task); err != nil {
			return err
		}
		return s.progress.Append(ctx, &domain.TaskProgressEntry{
			TaskID: task.ID,
			Status: task.Status,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if task.AssigneeID != nil {
		s.notifier.Notify(ctx, *task.AssigneeID, "New task assigned to you",
			fmt.Sprintf("Task %q has been assigned to you.", task.Title), taskLink(task.ID))
	}
	return task, nil
}

// AdminUpdate applies a full update, including reassignment. A change to
// status or technician note appends a progress entry with no technician
// attributed, and admins plus the (possibly new) assignee are notified.
func (s *TaskService) AdminUpdate(ctx context.Context, actor Actor, taskID int64, input TaskAdminUpdate) (*domain.Task, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may update tasks")
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.RatingLocked() {
		return nil, apperrors.NewConflict("task is locked after rating", nil)
	}

	snapshotNeeded := false
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title required", nil)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Status != nil {
		status, ok := domain.ParseTaskStatus(*input.Status)
		if !ok {
			return nil, apperrors.NewValidationError("unrecognized status", map[string]any{"status": *input.Status})
		}
		if status != task.Status {
			snapshotNeeded = true
		}
		task.Status = status
	}
	if input.Priority != nil {
		priority, ok := domain.ParseTaskPriority(*input.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("unrecognized priority", map[string]any{"priority": *input.Priority})
		}
		task.Priority = priority
	}
	if input.AssigneeID != nil {
		task.AssigneeID = input.AssigneeID
	}
	if input.DueAt != nil {
		task.DueAt = input.DueAt
	}
	if input.TechnicianNote != nil {
		note := strings.TrimSpace(*input.TechnicianNote)
		if task.TechnicianNote == nil || note != *task.TechnicianNote {
			snapshotNeeded = true
		}
		task.TechnicianNote = &note
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tasks.Update(ctx, task); err != nil {
			return err
		}
		if !snapshotNeeded {
			return nil
		}
		return s.progress.Append(ctx, &domain.TaskProgressEntry{
			TaskID: task.ID,
			Status: task.Status,
			Note:   task.TechnicianNote,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if snapshotNeeded {
		link := taskLink(task.ID)
		s.notifyAdmins(ctx, "Task updated",
			fmt.Sprintf("Task %q moved to %s.", task.Title, task.Status), link)
		if task.AssigneeID != nil {
			s.notifier.Notify(ctx, *task.AssigneeID, "Task updated",
				fmt.Sprintf("Task %q was updated by %s.", task.Title, s.displayName(ctx, actor.ID)), link)
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTaskUpdated,
			EntityID: task.ID,
			ActorID:  actor.ID,
			Payload:  events.TaskUpdatedPayload{Status: task.Status, AssigneeID: task.AssigneeID},
		})
	}
	return task, nil
}

// TechnicianUpdate lets the current assignee report progress: status and
// note only. Each call appends a progress entry attributed to the actor and
// notifies every admin.
func (s *TaskService) TechnicianUpdate(ctx context.Context, actor Actor, taskID int64, statusRaw string, note *string) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.AssigneeID == nil || *task.AssigneeID != actor.ID {
		return nil, apperrors.NewForbidden("task is not assigned to you")
	}
	if task.RatingLocked() {
		return nil, apperrors.NewConflict("task is locked after rating", nil)
	}

	status, ok := domain.ParseTaskStatus(statusRaw)
	if !ok {
		return nil, apperrors.NewValidationError("unrecognized status", map[string]any{"status": statusRaw})
	}
	task.Status = status
	if note != nil {
		trimmed := strings.TrimSpace(*note)
		task.TechnicianNote = &trimmed
	}

	technicianID := actor.ID
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tasks.Update(ctx, task); err != nil {
			return err
		}
		return s.progress.Append(ctx, &domain.TaskProgressEntry{
			TaskID:       task.ID,
			TechnicianID: &technicianID,
			Status:       task.Status,
			Note:         task.TechnicianNote,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.notifyAdmins(ctx, "Task progress",
		fmt.Sprintf("%s moved task %q to %s.", s.displayName(ctx, actor.ID), task.Title, task.Status),
		taskLink(task.ID))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTaskUpdated,
		EntityID: task.ID,
		ActorID:  actor.ID,
		Payload:  events.TaskUpdatedPayload{Status: task.Status, AssigneeID: task.AssigneeID},
	})
	return task, nil
}

// AnnotateProgress overwrites the admin comment on a progress entry. This is
// the one mutable field in the task trail; callers wanting to preserve prior
// text concatenate it before calling.
func (s *TaskService) AnnotateProgress(ctx context.Context, actor Actor, entryID int64, comment string) error {
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("only admins may comment on progress entries")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return apperrors.NewValidationError("comment required", nil)
	}

	entry, err := s.progress.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("progress entry", map[string]any{"entry_id": entryID})
		}
		return apperrors.MapError(err)
	}
	task, err := s.getTask(ctx, entry.TaskID)
	if err != nil {
		return err
	}
	if task.RatingLocked() {
		return apperrors.NewConflict("task is locked after rating", nil)
	}

	if err := s.progress.AnnotateComment(ctx, entryID, actor.ID, comment); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// SetRating records the one-time admin rating on a DONE task. There is no
// unsetting operation; a rated task rejects all further mutation.
func (s *TaskService) SetRating(ctx context.Context, actor Actor, taskID int64, rating int) (*domain.Task, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may rate tasks")
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusDone {
		return nil, apperrors.NewConflict("rating requires status DONE", nil)
	}
	if task.Rating != nil {
		return nil, apperrors.NewConflict("rating already recorded", nil)
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}

	now := time.Now()
	task.Rating = &rating
	task.RatedAt = &now
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		return s.tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if task.AssigneeID != nil {
		s.notifier.Notify(ctx, *task.AssigneeID, "Task rated",
			fmt.Sprintf("Task %q received a rating of %d/5.", task.Title, rating), taskLink(task.ID))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTaskRated,
		EntityID: task.ID,
		ActorID:  actor.ID,
		Payload:  events.TaskRatedPayload{Rating: rating},
	})
	return task, nil
}

// GetTask fetches a task. Technicians may only fetch their own assignments.
func (s *TaskService) GetTask(ctx context.Context, actor Actor, taskID int64) (*domain.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin {
		if task.AssigneeID == nil || *task.AssigneeID != actor.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
	}
	return task, nil
}

// ListTasks returns tasks visible to the actor: admins see all, technicians
// only their assignments.
func (s *TaskService) ListTasks(ctx context.Context, actor Actor, filter repository.TaskFilter) ([]domain.Task, error) {
	if actor.Role != domain.RoleAdmin {
		assigneeID := actor.ID
		filter.AssigneeID = &assigneeID
	}
	tasks, err := s.tasks.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tasks, nil
}

// ListProgress returns the task's progress trail, ascending by creation time.
func (s *TaskService) ListProgress(ctx context.Context, actor Actor, taskID int64) ([]domain.TaskProgressEntry, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin {
		if task.AssigneeID == nil || *task.AssigneeID != actor.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
	}
	entries, err := s.progress.ListByTask(ctx, taskID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *TaskService) getTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("task", map[string]any{"task_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return task, nil
}

func (s *TaskService) displayName(ctx context.Context, userID int64) string {
	user, err := s.directory.GetByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("user %d", userID)
	}
	return user.Name
}

// notifyAdmins fans out to every admin concurrently and joins before
// returning. A failed admin lookup is logged and skipped.
func (s *TaskService) notifyAdmins(ctx context.Context, title, message, link string) {
	admins, err := s.directory.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		s.logger.Warn("admin lookup for notification fan-out failed", zap.Error(err))
		return
	}
	var wg sync.WaitGroup
	for _, admin := range admins {
		wg.Add(1)
		go func(recipient int64) {
			defer wg.Done()
			s.notifier.Notify(ctx, recipient, title, message, link)
		}(admin.ID)
	}
	wg.Wait()
}

func (s *TaskService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func taskLink(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}
