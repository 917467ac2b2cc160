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

// TicketService owns the ticket lifecycle: status transitions, role-gated
// mutations, the append-only audit trail, and notification fan-out.
type TicketService struct {
	tickets     repository.TicketRepository
	logs        repository.TicketLogRepository
	attachments repository.AttachmentRepository
	uow         repository.UnitOfWork
	directory   Directory
	notifier    Notifier
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	LogRepo        repository.TicketLogRepository
	AttachmentRepo repository.AttachmentRepository
	UnitOfWork     repository.UnitOfWork
	Directory      Directory
	Notifier       Notifier
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		logs:        deps.LogRepo,
		attachments: deps.AttachmentRepo,
		uow:         deps.UnitOfWork,
		directory:   deps.Directory,
		notifier:    deps.Notifier,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title        string
	Description  string
	Priority     string
	DepartmentID int64
	CategoryID   int64
	// RequesterID, when non-zero and different from the actor, requests
	// delegated creation on another user's behalf (admins only).
	RequesterID int64
}

// SelfEditInput describes the fields a requester may edit while a ticket is NEW.
type SelfEditInput struct {
	Title        string
	Description  string
	Priority     string
	DepartmentID int64
	CategoryID   int64
}

// FileMetadata describes an already-stored upload.
type FileMetadata struct {
	FileName   string
	StoredName string
	MimeType   string
	SizeBytes  int64
}

// Create files a new ticket in status NEW, writes the CREATED audit entry,
// and notifies the requester plus every admin. Admin fan-out is best effort.
func (s *TicketService) Create(ctx context.Context, actor Actor, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	priority, ok := domain.ParseTicketPriority(input.Priority)
	if !ok {
		priority = domain.TicketPriorityMedium
	}

	requesterID := actor.ID
	if input.RequesterID != 0 && input.RequesterID != actor.ID {
		if actor.Role != domain.RoleAdmin {
			return nil, apperrors.NewForbidden("only admins may create tickets on behalf of others")
		}
		requesterID = input.RequesterID
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	ticket := &domain.Ticket{
		Code:         code,
		Title:        title,
		Description:  strings.TrimSpace(input.Description),
		Status:       domain.TicketStatusNew,
		Priority:     priority,
		DepartmentID: input.DepartmentID,
		CategoryID:   input.CategoryID,
		RequesterID:  requesterID,
	}

	newStatus := domain.TicketStatusNew
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return s.logs.Append(ctx, &domain.TicketLogEntry{
			TicketID:  ticket.ID,
			ActorID:   actor.ID,
			Action:    domain.LogActionCreated,
			NewStatus: &newStatus,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	link := ticketLink(ticket.ID)
	s.notifier.Notify(ctx, requesterID, "Ticket created",
		fmt.Sprintf("Your ticket %s has been created.", ticket.Code), link)
	s.notifyAdmins(ctx, "New ticket",
		fmt.Sprintf("New ticket %s created by %s.", ticket.Code, s.displayName(ctx, actor.ID)), link)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketCreatedPayload{
			Code:        ticket.Code,
			RequesterID: requesterID,
			Priority:    ticket.Priority,
			Title:       ticket.Title,
		},
	})
	return ticket, nil
}

// ChangeStatus moves a ticket to any of the five lifecycle states and records
// the old/new pair in the audit trail.
func (s *TicketService) ChangeStatus(ctx context.Context, actor Actor, ticketID int64, newStatusRaw string) (*domain.Ticket, error) {
	newStatus, ok := domain.ParseTicketStatus(newStatusRaw)
	if !ok {
		return nil, apperrors.NewValidationError("unrecognized status", map[string]any{"status": newStatusRaw})
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.FeedbackLocked() {
		return nil, apperrors.NewConflict("ticket is locked after feedback", nil)
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.logs.Append(ctx, &domain.TicketLogEntry{
			TicketID:  ticket.ID,
			ActorID:   actor.ID,
			Action:    domain.LogActionStatusChanged,
			OldStatus: &oldStatus,
			NewStatus: &newStatus,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.notifier.Notify(ctx, ticket.RequesterID, "Ticket status updated",
		fmt.Sprintf("Ticket %s moved to %s by %s.", ticket.Code, newStatus, s.displayName(ctx, actor.ID)),
		ticketLink(ticket.ID))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		EntityID: ticket.ID,
		ActorID:  actor.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// Assign sets the ticket's technician. Admin only.
func (s *TicketService) Assign(ctx context.Context, actor Actor, ticketID, technicianID int64) (*domain.Ticket, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only admins may assign tickets")
	}
	if technicianID <= 0 {
		return nil, apperrors.NewValidationError("technician id required", nil)
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.FeedbackLocked() {
		return nil, apperrors.NewConflict("ticket is locked after feedback", nil)
	}

	ticket.AssigneeID = &technicianID
	note := fmt.Sprintf("assigned to %d", technicianID)
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.logs.Append(ctx, &domain.TicketLogEntry{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.LogActionAssigned,
			Note:     &note,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	link := ticketLink(ticket.ID)
	s.fanOut(ctx, []recipientMessage{
		{userID: ticket.RequesterID, title: "Ticket assigned",
			message: fmt.Sprintf("Ticket %s was assigned to a technician.", ticket.Code)},
		{userID: technicianID, title: "New ticket assigned to you",
			message: fmt.Sprintf("Ticket %s has been assigned to you.", ticket.Code)},
	}, link)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		EntityID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketAssignedPayload{AssigneeID: technicianID},
	})
	return ticket, nil
}

// EmployeeSelfEdit lets the requester amend their own ticket while it is
// still NEW. The edit is recorded in the audit trail; nobody is notified.
func (s *TicketService) EmployeeSelfEdit(ctx context.Context, actor Actor, ticketID int64, input SelfEditInput) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("only the requester may edit this ticket")
	}
	if ticket.Status != domain.TicketStatusNew {
		return nil, apperrors.NewConflict("ticket can only be edited while NEW", nil)
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}

	ticket.Title = title
	ticket.Description = description
	if priority, ok := domain.ParseTicketPriority(input.Priority); ok {
		ticket.Priority = priority
	}
	if input.DepartmentID != 0 {
		ticket.DepartmentID = input.DepartmentID
	}
	if input.CategoryID != 0 {
		ticket.CategoryID = input.CategoryID
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.logs.Append(ctx, &domain.TicketLogEntry{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.LogActionUpdatedByEmployee,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// AttachFeedback records the requester's one-time rating on a RESOLVED
// ticket. Any later lifecycle mutation on the ticket is rejected.
func (s *TicketService) AttachFeedback(ctx context.Context, actor Actor, ticketID int64, rating int, comment string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("only the requester may leave feedback")
	}
	if ticket.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewConflict("feedback requires status RESOLVED", nil)
	}
	if ticket.FeedbackRating != nil {
		return nil, apperrors.NewConflict("feedback already recorded", nil)
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}

	now := time.Now()
	ticket.FeedbackRating = &rating
	ticket.FeedbackGivenAt = &now
	if trimmed := strings.TrimSpace(comment); trimmed != "" {
		ticket.FeedbackComment = &trimmed
	}

	note := fmt.Sprintf("rated %d/5", rating)
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		return s.logs.Append(ctx, &domain.TicketLogEntry{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.LogActionFeedbackAdded,
			Note:     &note,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if ticket.AssigneeID != nil {
		s.notifier.Notify(ctx, *ticket.AssigneeID, "Feedback received",
			fmt.Sprintf("Ticket %s received a rating of %d/5.", ticket.Code, rating),
			ticketLink(ticket.ID))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketFeedbackGiven,
		EntityID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketFeedbackGivenPayload{Rating: rating},
	})
	return ticket, nil
}

// AddWorkNote appends a work note to the audit trail. Technicians may only
// note tickets currently assigned to them.
func (s *TicketService) AddWorkNote(ctx context.Context, actor Actor, ticketID int64, note string, timeSpentMinutes int) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return apperrors.NewValidationError("note required", nil)
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.FeedbackLocked() {
		return apperrors.NewConflict("ticket is locked after feedback", nil)
	}
	if actor.Role == domain.RoleTechnician {
		if ticket.AssigneeID == nil || *ticket.AssigneeID != actor.ID {
			return apperrors.NewForbidden("ticket is not assigned to you")
		}
	}

	recorded := note
	if timeSpentMinutes > 0 {
		recorded = fmt.Sprintf("%s (%d min)", note, timeSpentMinutes)
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		return s.logs.Append(ctx, &domain.TicketLogEntry{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.LogActionNoteAdded,
			Note:     &recorded,
		})
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.notifier.Notify(ctx, ticket.RequesterID, "Note added",
		fmt.Sprintf("A note was added to ticket %s.", ticket.Code), ticketLink(ticket.ID))

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketNoteAdded,
		EntityID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketNoteAddedPayload{NotePreview: stringPreview(note, 120)},
	})
	return nil
}

// AttachFile records the metadata of an uploaded file and logs the addition.
func (s *TicketService) AttachFile(ctx context.Context, actor Actor, ticketID int64, meta FileMetadata) (*domain.Attachment, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.FeedbackLocked() {
		return nil, apperrors.NewConflict("ticket is locked after feedback", nil)
	}

	attachment := &domain.Attachment{
		TicketID:   ticket.ID,
		UploaderID: actor.ID,
		FileName:   meta.FileName,
		StoredName: meta.StoredName,
		MimeType:   meta.MimeType,
		SizeBytes:  meta.SizeBytes,
	}
	note := meta.FileName
	err = s.uow.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.attachments.Create(ctx, attachment); err != nil {
			return err
		}
		return s.logs.Append(ctx, &domain.TicketLogEntry{
			TicketID: ticket.ID,
			ActorID:  actor.ID,
			Action:   domain.LogActionAttachmentAdded,
			Note:     &note,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	link := ticketLink(ticket.ID)
	messages := []recipientMessage{
		{userID: ticket.RequesterID, title: "Attachment added",
			message: fmt.Sprintf("File %q was attached to ticket %s.", meta.FileName, ticket.Code)},
	}
	if ticket.AssigneeID != nil {
		messages = append(messages, recipientMessage{
			userID: *ticket.AssigneeID, title: "Attachment added",
			message: fmt.Sprintf("File %q was attached to ticket %s.", meta.FileName, ticket.Code),
		})
	}
	s.fanOut(ctx, messages, link)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketFileAttached,
		EntityID: ticket.ID,
		ActorID:  actor.ID,
		Payload:  events.TicketFileAttachedPayload{FileName: meta.FileName, SizeBytes: meta.SizeBytes},
	})
	return attachment, nil
}

// GetTicket fetches a ticket for the actor: requesters see their own,
// staff see everything.
func (s *TicketService) GetTicket(ctx context.Context, actor Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleEmployee && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// GetTicketByCode resolves a ticket by its public code. Staff only; codes
// are what appears in email and chat, not the numeric id.
func (s *TicketService) GetTicketByCode(ctx context.Context, actor Actor, code string) (*domain.Ticket, error) {
	if actor.Role == domain.RoleEmployee {
		return nil, apperrors.NewForbidden("staff access required")
	}
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListForRequester returns the actor's own tickets.
func (s *TicketService) ListForRequester(ctx context.Context, actor Actor, limit, offset int) ([]domain.Ticket, error) {
	requesterID := actor.ID
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		RequesterID: &requesterID,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAll returns tickets matching the filter. Staff only.
func (s *TicketService) ListAll(ctx context.Context, actor Actor, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if actor.Role == domain.RoleEmployee {
		return nil, apperrors.NewForbidden("staff access required")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListLog returns the full audit trail, ascending by creation time.
func (s *TicketService) ListLog(ctx context.Context, actor Actor, ticketID int64) ([]domain.TicketLogEntry, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleEmployee && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.logs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListAttachments returns the ticket's attachment metadata.
func (s *TicketService) ListAttachments(ctx context.Context, actor Actor, ticketID int64) ([]domain.Attachment, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleEmployee && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

func (s *TicketService) getTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) generateCode(ctx context.Context) (string, error) {
	n, err := s.tickets.NextCodeNumber(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ICT-%d-%04d", time.Now().Year(), n%10000), nil
}

func (s *TicketService) displayName(ctx context.Context, userID int64) string {
	user, err := s.directory.GetByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("user %d", userID)
	}
	return user.Name
}

type recipientMessage struct {
	userID  int64
	title   string
	message string
}

// fanOut dispatches one notification per recipient concurrently and joins
// before returning. Individual failures are absorbed by the notifier.
func (s *TicketService) fanOut(ctx context.Context, messages []recipientMessage, link string) {
	var wg sync.WaitGroup
	for _, msg := range messages {
		wg.Add(1)
		go func(m recipientMessage) {
			defer wg.Done()
			s.notifier.Notify(ctx, m.userID, m.title, m.message, link)
		}(msg)
	}
	wg.Wait()
}

// notifyAdmins fans out to every admin account. A failed admin lookup is
// logged and skipped; it never fails the triggering operation.
func (s *TicketService) notifyAdmins(ctx context.Context, title, message, link string) {
	admins, err := s.directory.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		s.logger.Warn("admin lookup for notification fan-out failed", zap.Error(err))
		return
	}
	messages := make([]recipientMessage, 0, len(admins))
	for _, admin := range admins {
		messages = append(messages, recipientMessage{userID: admin.ID, title: title, message: message})
	}
	s.fanOut(ctx, messages, link)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func ticketLink(id int64) string {
	return fmt.Sprintf("/tickets/%d", id)
}

// stringPreview truncates on rune boundaries so multi-byte text stays valid.
func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
