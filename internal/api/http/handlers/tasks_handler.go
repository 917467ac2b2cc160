package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/ict-helpdesk/servicedesk/internal/api/dto"
	"github.com/ict-helpdesk/servicedesk/internal/domain"
	"github.com/ict-helpdesk/servicedesk/internal/repository"
	"github.com/ict-helpdesk/servicedesk/internal/service"
	apperrors "github.com/ict-helpdesk/servicedesk/pkg/util"
)

// TasksHandler manages internal task endpoints.
type TasksHandler struct {
	service *service.TaskService
}

// NewTasksHandler constructs handler.
func NewTasksHandler(taskService *service.TaskService) *TasksHandler {
	return &TasksHandler{service: taskService}
}

// CreateTask POST /tasks.
func (h *TasksHandler) CreateTask(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.Create(c.UserContext(), actor, service.TaskCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueAt:       req.DueAt,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTask(task)})
}

// UpdateTask PUT /tasks/:id. Admin full update.
func (h *TasksHandler) UpdateTask(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AdminUpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.AdminUpdate(c.UserContext(), actor, taskID, service.TaskAdminUpdate{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		Priority:       req.Priority,
		AssigneeID:     req.AssigneeID,
		DueAt:          req.DueAt,
		TechnicianNote: req.TechnicianNote,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTask(task)})
}

// ReportProgress PATCH /tasks/:id/progress. Assignee status and note update.
func (h *TasksHandler) ReportProgress(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.TechnicianUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.TechnicianUpdate(c.UserContext(), actor, taskID, req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTask(task)})
}

// AnnotateProgress PUT /tasks/progress/:entryID/comment.
func (h *TasksHandler) AnnotateProgress(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	entryID, err := parseIDParam(c, "entryID")
	if err != nil {
		return err
	}
	var req dto.AnnotateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.AnnotateProgress(c.UserContext(), actor, entryID, req.Comment); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"status": "annotated"}})
}

// RateTask POST /tasks/:id/rating.
func (h *TasksHandler) RateTask(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.TaskRatingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	task, err := h.service.SetRating(c.UserContext(), actor, taskID, req.Rating)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTask(task)})
}

// GetTask GET /tasks/:id.
func (h *TasksHandler) GetTask(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	task, err := h.service.GetTask(c.UserContext(), actor, taskID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTask(task)})
}

// ListTasks GET /tasks.
func (h *TasksHandler) ListTasks(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	filter := repository.TaskFilter{}
	filter.Limit, filter.Offset = parsePagination(c)
	for _, raw := range splitCSV(c.Query("status")) {
		if status, ok := domain.ParseTaskStatus(raw); ok {
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	tasks, err := h.service.ListTasks(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, dto.FromTask(&tasks[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListProgress GET /tasks/:id/progress.
func (h *TasksHandler) ListProgress(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.service.ListProgress(c.UserContext(), actor, taskID)
	if err != nil {
		return err
	}
	items := make([]dto.TaskProgressResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.FromTaskProgress(e))
	}
	return c.JSON(fiber.Map{"data": items})
}
