package service

import (
	"context"
	"sync"
	"testing"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
	"github.com/ict-helpdesk/servicedesk/internal/events"
	"github.com/ict-helpdesk/servicedesk/internal/repository"
	apperrors "github.com/ict-helpdesk/servicedesk/pkg/util"
)

type taskFixture struct {
	service   *TaskService
	tasks     *memTaskRepo
	progress  *memTaskProgressRepo
	directory *memDirectory
	notifier  *recordingNotifier
}

func newTaskFixture() *taskFixture {
	f := &taskFixture{
		tasks:    newMemTaskRepo(),
		progress: newMemTaskProgressRepo(),
		directory: newMemDirectory(
			domain.User{ID: 1, Name: "Root Admin", Role: domain.RoleAdmin, Active: true},
			domain.User{ID: 2, Name: "Tina Tech", Role: domain.RoleTechnician, Active: true},
		),
		notifier: &recordingNotifier{},
	}
	f.service = NewTaskService(TaskDependencies{
		TaskRepo:     f.tasks,
		ProgressRepo: f.progress,
		UnitOfWork:   passthroughUoW{},
		Directory:    f.directory,
		Notifier:     f.notifier,
		Dispatcher:   events.NewInMemoryDispatcher(),
	})
	return f
}

func (f *taskFixture) mustCreateAssigned(t *testing.T, assigneeID int64) *domain.Task {
	t.Helper()
	task, err := f.service.Create(context.Background(), adminActor, TaskCreateInput{
		Title:      "patch servers",
		Priority:   "HIGH",
		AssigneeID: &assigneeID,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestCreateTaskAdminOnly(t *testing.T) {
	f := newTaskFixture()
	if _, err := f.service.Create(context.Background(), techActor, TaskCreateInput{Title: "nope"}); !apperrors.IsForbidden(err) {
		t.Fatalf("technician create err = %v, want forbidden", err)
	}

	task := f.mustCreateAssigned(t, 2)
	if task.Status != domain.TaskStatusOpen {
		t.Fatalf("status = %s, want OPEN", task.Status)
	}
	entries, _ := f.service.ListProgress(context.Background(), adminActor, task.ID)
	if len(entries) != 1 || entries[0].Status != domain.TaskStatusOpen {
		t.Fatalf("progress = %+v, want one OPEN entry", entries)
	}
	if got := f.notifier.countFor(2); got != 1 {
		t.Fatalf("assignee notifications = %d, want 1", got)
	}
}

func TestTechnicianUpdateOnlyByAssignee(t *testing.T) {
	f := newTaskFixture()
	task := f.mustCreateAssigned(t, 2)

	stranger := Actor{ID: 7, Role: domain.RoleTechnician}
	if _, err := f.service.TechnicianUpdate(context.Background(), stranger, task.ID, "IN_PROGRESS", nil); !apperrors.IsForbidden(err) {
		t.Fatalf("stranger update err = %v, want forbidden", err)
	}

	note := "halfway there"
	updated, err := f.service.TechnicianUpdate(context.Background(), techActor, task.ID, "IN_PROGRESS", &note)
	if err != nil {
		t.Fatalf("technician update: %v", err)
	}
	if updated.Status != domain.TaskStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", updated.Status)
	}

	entries, _ := f.service.ListProgress(context.Background(), adminActor, task.ID)
	last := entries[len(entries)-1]
	if last.TechnicianID == nil || *last.TechnicianID != techActor.ID {
		t.Fatalf("progress technician = %v, want %d", last.TechnicianID, techActor.ID)
	}
	if last.Note == nil || *last.Note != note {
		t.Fatalf("progress note = %v, want %q", last.Note, note)
	}
	// Admins hear about technician progress.
	if got := f.notifier.countFor(adminActor.ID); got != 1 {
		t.Fatalf("admin notifications = %d, want 1", got)
	}
}

func TestTechnicianUpdateRejectsUnknownStatus(t *testing.T) {
	f := newTaskFixture()
	task := f.mustCreateAssigned(t, 2)
	if _, err := f.service.TechnicianUpdate(context.Background(), techActor, task.ID, "FINISHED", nil); !apperrors.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestAdminUpdateSnapshotsOnlyOnStatusOrNoteChange(t *testing.T) {
	f := newTaskFixture()
	task := f.mustCreateAssigned(t, 2)

	newTitle := "patch servers tonight"
	if _, err := f.service.AdminUpdate(context.Background(), adminActor, task.ID, TaskAdminUpdate{Title: &newTitle}); err != nil {
		t.Fatalf("title-only update: %v", err)
	}
	entries, _ := f.service.ListProgress(context.Background(), adminActor, task.ID)
	if len(entries) != 1 {
		t.Fatalf("progress entries = %d, want 1 after title-only update", len(entries))
	}

	status := "IN_PROGRESS"
	if _, err := f.service.AdminUpdate(context.Background(), adminActor, task.ID, TaskAdminUpdate{Status: &status}); err != nil {
		t.Fatalf("status update: %v", err)
	}
	entries, _ = f.service.ListProgress(context.Background(), adminActor, task.ID)
	if len(entries) != 2 {
		t.Fatalf("progress entries = %d, want 2 after status change", len(entries))
	}
	if entries[1].TechnicianID != nil {
		t.Fatalf("admin-driven snapshot should carry no technician, got %v", entries[1].TechnicianID)
	}
}

func TestAnnotateProgressOverwritesComment(t *testing.T) {
	f := newTaskFixture()
	task := f.mustCreateAssigned(t, 2)

	if err := f.service.AnnotateProgress(context.Background(), techActor, 1, "x"); !apperrors.IsForbidden(err) {
		t.Fatalf("technician annotate err = %v, want forbidden", err)
	}
	if err := f.service.AnnotateProgress(context.Background(), adminActor, 1, "  "); !apperrors.IsValidation(err) {
		t.Fatalf("empty comment err = %v, want validation", err)
	}
	if err := f.service.AnnotateProgress(context.Background(), adminActor, 999, "x"); !apperrors.IsNotFound(err) {
		t.Fatalf("missing entry err = %v, want not found", err)
	}

	if err := f.service.AnnotateProgress(context.Background(), adminActor, 1, "looks good"); err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if err := f.service.AnnotateProgress(context.Background(), adminActor, 1, "actually redo it"); err != nil {
		t.Fatalf("re-annotate: %v", err)
	}
	entries, _ := f.service.ListProgress(context.Background(), adminActor, task.ID)
	if entries[0].AdminComment == nil || *entries[0].AdminComment != "actually redo it" {
		t.Fatalf("comment = %v, want the overwrite", entries[0].AdminComment)
	}
	if entries[0].AdminID == nil || *entries[0].AdminID != adminActor.ID {
		t.Fatalf("admin id = %v, want %d", entries[0].AdminID, adminActor.ID)
	}
}

func TestSetRatingRequiresDoneAndIsOneShot(t *testing.T) {
	f := newTaskFixture()
	task := f.mustCreateAssigned(t, 2)

	if _, err := f.service.SetRating(context.Background(), adminActor, task.ID, 5); !apperrors.IsConflict(err) {
		t.Fatalf("rating before DONE err = %v, want conflict", err)
	}

	if _, err := f.service.TechnicianUpdate(context.Background(), techActor, task.ID, "DONE", nil); err != nil {
		t.Fatalf("finish task: %v", err)
	}
	if _, err := f.service.SetRating(context.Background(), adminActor, task.ID, 0); !apperrors.IsValidation(err) {
		t.Fatalf("out-of-range rating err = %v, want validation", err)
	}
	if _, err := f.service.SetRating(context.Background(), techActor, task.ID, 5); !apperrors.IsForbidden(err) {
		t.Fatalf("technician rating err = %v, want forbidden", err)
	}

	rated, err := f.service.SetRating(context.Background(), adminActor, task.ID, 4)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if rated.Rating == nil || *rated.Rating != 4 || rated.RatedAt == nil {
		t.Fatalf("rating not recorded: %+v", rated)
	}

	if _, err := f.service.SetRating(context.Background(), adminActor, task.ID, 5); !apperrors.IsConflict(err) {
		t.Fatalf("second rating err = %v, want conflict", err)
	}
}

func TestRatingLocksTask(t *testing.T) {
	f := newTaskFixture()
	task := f.mustCreateAssigned(t, 2)
	if _, err := f.service.TechnicianUpdate(context.Background(), techActor, task.ID, "DONE", nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if _, err := f.service.SetRating(context.Background(), adminActor, task.ID, 5); err != nil {
		t.Fatalf("rate: %v", err)
	}

	status := "IN_PROGRESS"
	if _, err := f.service.AdminUpdate(context.Background(), adminActor, task.ID, TaskAdminUpdate{Status: &status}); !apperrors.IsConflict(err) {
		t.Fatalf("admin update after rating err = %v, want conflict", err)
	}
	if _, err := f.service.TechnicianUpdate(context.Background(), techActor, task.ID, "IN_PROGRESS", nil); !apperrors.IsConflict(err) {
		t.Fatalf("technician update after rating err = %v, want conflict", err)
	}
	if err := f.service.AnnotateProgress(context.Background(), adminActor, 1, "late comment"); !apperrors.IsConflict(err) {
		t.Fatalf("annotate after rating err = %v, want conflict", err)
	}
}

func TestTaskVisibilityForTechnicians(t *testing.T) {
	f := newTaskFixture()
	mine := f.mustCreateAssigned(t, 2)
	f.mustCreateAssigned(t, 7)

	if _, err := f.service.GetTask(context.Background(), techActor, mine.ID); err != nil {
		t.Fatalf("own task get: %v", err)
	}
	if _, err := f.service.GetTask(context.Background(), techActor, mine.ID+1); !apperrors.IsForbidden(err) {
		t.Fatalf("foreign task get err = %v, want forbidden", err)
	}

	visible, err := f.service.ListTasks(context.Background(), techActor, repository.TaskFilter{})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != mine.ID {
		t.Fatalf("technician sees %d tasks, want only their own", len(visible))
	}

	all, err := f.service.ListTasks(context.Background(), adminActor, repository.TaskFilter{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin sees %d tasks, want 2", len(all))
	}
}

// barrierNotifier blocks each delivery until every expected recipient has a
// dispatch in flight, so sequential delivery would never release.
type barrierNotifier struct {
	recordingNotifier
	gate sync.WaitGroup
}

func (n *barrierNotifier) Notify(ctx context.Context, userID int64, title, message, link string) {
	n.gate.Done()
	n.gate.Wait()
	n.recordingNotifier.Notify(ctx, userID, title, message, link)
}

func TestAdminFanOutDeliversConcurrently(t *testing.T) {
	notifier := &barrierNotifier{}
	tasks := newMemTaskRepo()
	f := NewTaskService(TaskDependencies{
		TaskRepo:     tasks,
		ProgressRepo: newMemTaskProgressRepo(),
		UnitOfWork:   passthroughUoW{},
		Directory: newMemDirectory(
			domain.User{ID: 1, Name: "Root Admin", Role: domain.RoleAdmin, Active: true},
			domain.User{ID: 2, Name: "Tina Tech", Role: domain.RoleTechnician, Active: true},
			domain.User{ID: 4, Name: "Second Admin", Role: domain.RoleAdmin, Active: true},
		),
		Notifier:   notifier,
		Dispatcher: events.NewInMemoryDispatcher(),
	})

	task, err := f.Create(context.Background(), adminActor, TaskCreateInput{Title: "patch servers"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	assignee := int64(2)
	task.AssigneeID = &assignee
	if err := tasks.Update(context.Background(), task); err != nil {
		t.Fatalf("assign: %v", err)
	}

	notifier.gate.Add(2)
	if _, err := f.TechnicianUpdate(context.Background(), techActor, task.ID, "IN_PROGRESS", nil); err != nil {
		t.Fatalf("technician update: %v", err)
	}
	if notifier.countFor(1) != 1 || notifier.countFor(4) != 1 {
		t.Fatal("both admins must be notified")
	}
}
