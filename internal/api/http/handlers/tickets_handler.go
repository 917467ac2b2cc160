package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ict-helpdesk/servicedesk/internal/api/dto"
	"github.com/ict-helpdesk/servicedesk/internal/domain"
	"github.com/ict-helpdesk/servicedesk/internal/repository"
	"github.com/ict-helpdesk/servicedesk/internal/service"
	"github.com/ict-helpdesk/servicedesk/internal/storage"
	apperrors "github.com/ict-helpdesk/servicedesk/pkg/util"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
	files   storage.FileStore
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, files storage.FileStore) *TicketsHandler {
	return &TicketsHandler{service: ticketService, files: files}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DepartmentID: req.DepartmentID,
		CategoryID:   req.CategoryID,
		RequesterID:  req.RequesterID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ListMyTickets GET /tickets.
func (h *TicketsHandler) ListMyTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	limit, offset := parsePagination(c)
	tickets, err := h.service.ListForRequester(c.UserContext(), actor, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAllTickets GET /staff/tickets.
func (h *TicketsHandler) ListAllTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListAll(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.FromTicket(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicketByCode GET /staff/tickets/code/:code.
func (h *TicketsHandler) GetTicketByCode(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	code := c.Params("code")
	if code == "" {
		return apperrors.NewValidationError("code required", nil)
	}
	ticket, err := h.service.GetTicketByCode(c.UserContext(), actor, code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ChangeStatus(c.UserContext(), actor, ticketID, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Assign(c.UserContext(), actor, ticketID, req.TechnicianID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// SelfEditTicket PUT /tickets/:id.
func (h *TicketsHandler) SelfEditTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.SelfEditRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.EmployeeSelfEdit(c.UserContext(), actor, ticketID, service.SelfEditInput{
		Title:        req.Title,
		Description:  req.Description,
		Priority:     req.Priority,
		DepartmentID: req.DepartmentID,
		CategoryID:   req.CategoryID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AddFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) AddFeedback(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AttachFeedback(c.UserContext(), actor, ticketID, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromTicket(ticket)})
}

// AddWorkNote POST /tickets/:id/notes.
func (h *TicketsHandler) AddWorkNote(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.WorkNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.AddWorkNote(c.UserContext(), actor, ticketID, req.Note, req.TimeSpentMinutes); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{"status": "recorded"}})
}

// UploadAttachment POST /tickets/:id/attachments. Multipart upload: the file
// lands in the store first, then its metadata is recorded on the ticket.
func (h *TicketsHandler) UploadAttachment(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", nil)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer src.Close()

	stored, err := h.files.Save(fileHeader.Filename, src)
	if err != nil {
		return apperrors.MapError(err)
	}

	attachment, err := h.service.AttachFile(c.UserContext(), actor, ticketID, service.FileMetadata{
		FileName:   fileHeader.Filename,
		StoredName: stored.StoredName,
		MimeType:   fileHeader.Header.Get("Content-Type"),
		SizeBytes:  stored.SizeBytes,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromAttachment(*attachment)})
}

// ListAttachments GET /tickets/:id/attachments.
func (h *TicketsHandler) ListAttachments(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	attachments, err := h.service.ListAttachments(c.UserContext(), actor, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		items = append(items, dto.FromAttachment(a))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListLog GET /tickets/:id/log.
func (h *TicketsHandler) ListLog(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticketID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.service.ListLog(c.UserContext(), actor, ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketLogResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.FromTicketLog(e))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	filter.Limit, filter.Offset = parsePagination(c)

	for _, raw := range splitCSV(c.Query("status")) {
		if status, ok := domain.ParseTicketStatus(raw); ok {
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	for _, raw := range splitCSV(c.Query("priority")) {
		if priority, ok := domain.ParseTicketPriority(raw); ok {
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if q := c.Query("q"); q != "" {
		filter.SearchTerm = &q
	}
	if raw := c.Query("requester_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.RequesterID = &id
		}
	}
	if raw := c.Query("assignee_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			filter.AssigneeID = &id
		}
	}
	return filter
}
