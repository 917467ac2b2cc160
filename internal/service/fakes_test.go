package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
	"github.com/ict-helpdesk/servicedesk/internal/repository"
)

// In-memory repositories backing the service tests. Each fake honors the
// pgx.ErrNoRows contract of its real counterpart.

type memTicketRepo struct {
	mu      sync.Mutex
	tickets map[int64]domain.Ticket
	nextID  int64
	nextSeq int64

	failCreate error
	failUpdate error
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{tickets: make(map[int64]domain.Ticket)}
}

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	ticket.ID = r.nextID
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return r.failUpdate
	}
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now() // mirrors UPDATE ... RETURNING updated_at
	r.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := ticket
	return &copied, nil
}

func (r *memTicketRepo) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Code == code {
			copied := ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsTicketStatus(filter.Statuses, ticket.Status) {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(ticket.Title), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		out = append(out, ticket)
	}
	return out, nil
}

func (r *memTicketRepo) NextCodeNumber(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	return r.nextSeq, nil
}

func containsTicketStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

type memTicketLogRepo struct {
	mu      sync.Mutex
	entries []domain.TicketLogEntry
	nextID  int64

	failAppend error
}

func newMemTicketLogRepo() *memTicketLogRepo {
	return &memTicketLogRepo{}
}

func (r *memTicketLogRepo) Append(_ context.Context, entry *domain.TicketLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppend != nil {
		return r.failAppend
	}
	r.nextID++
	entry.ID = r.nextID
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memTicketLogRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketLogEntry
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type memAttachmentRepo struct {
	mu          sync.Mutex
	attachments []domain.Attachment
	nextID      int64
}

func newMemAttachmentRepo() *memAttachmentRepo {
	return &memAttachmentRepo{}
}

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	attachment.ID = r.nextID
	r.attachments = append(r.attachments, *attachment)
	return nil
}

func (r *memAttachmentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Attachment
	for _, a := range r.attachments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memTaskRepo struct {
	mu     sync.Mutex
	tasks  map[int64]domain.Task
	nextID int64
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[int64]domain.Task)}
}

func (r *memTaskRepo) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	r.tasks[task.ID] = *task
	return nil
}

func (r *memTaskRepo) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return pgx.ErrNoRows
	}
	task.UpdatedAt = time.Now() // mirrors UPDATE ... RETURNING updated_at
	r.tasks[task.ID] = *task
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := task
	return &copied, nil
}

func (r *memTaskRepo) ListWithFilter(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, task := range r.tasks {
		if filter.AssigneeID != nil && (task.AssigneeID == nil || *task.AssigneeID != *filter.AssigneeID) {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

type memTaskProgressRepo struct {
	mu      sync.Mutex
	entries map[int64]domain.TaskProgressEntry
	order   []int64
	nextID  int64
}

func newMemTaskProgressRepo() *memTaskProgressRepo {
	return &memTaskProgressRepo{entries: make(map[int64]domain.TaskProgressEntry)}
}

func (r *memTaskProgressRepo) Append(_ context.Context, entry *domain.TaskProgressEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	r.entries[entry.ID] = *entry
	r.order = append(r.order, entry.ID)
	return nil
}

func (r *memTaskProgressRepo) GetByID(_ context.Context, id int64) (*domain.TaskProgressEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := entry
	return &copied, nil
}

func (r *memTaskProgressRepo) ListByTask(_ context.Context, taskID int64) ([]domain.TaskProgressEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TaskProgressEntry
	for _, id := range r.order {
		if entry := r.entries[id]; entry.TaskID == taskID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *memTaskProgressRepo) AnnotateComment(_ context.Context, entryID, adminID int64, comment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[entryID]
	if !ok {
		return pgx.ErrNoRows
	}
	entry.AdminComment = &comment
	entry.AdminID = &adminID
	r.entries[entryID] = entry
	return nil
}

type memNotificationRepo struct {
	mu            sync.Mutex
	notifications []domain.Notification
	nextID        int64

	failCreate error
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{}
}

func (r *memNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.nextID++
	notification.ID = r.nextID
	r.notifications = append(r.notifications, *notification)
	return nil
}

func (r *memNotificationRepo) ListByUser(_ context.Context, userID int64, limit, offset int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *memNotificationRepo) MarkAllRead(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.notifications {
		if n.UserID == userID {
			r.notifications[i].Read = true
		}
	}
	return nil
}

// memUserRepo backs the auth flows.
type memUserRepo struct {
	mu     sync.Mutex
	users  map[int64]domain.User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.Role == role && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

// memDirectory resolves users and role listings for fan-out.
type memDirectory struct {
	mu    sync.Mutex
	users map[int64]domain.User

	failListByRole error
}

func newMemDirectory(users ...domain.User) *memDirectory {
	d := &memDirectory{users: make(map[int64]domain.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *memDirectory) GetByID(_ context.Context, id int64) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := user
	return &copied, nil
}

func (d *memDirectory) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failListByRole != nil {
		return nil, d.failListByRole
	}
	var out []domain.User
	for _, u := range d.users {
		if u.Role == role && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

// recordingNotifier captures deliveries. Safe for concurrent fan-out.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

type sentNotification struct {
	userID int64
	title  string
	link   string
}

func (n *recordingNotifier) Notify(_ context.Context, userID int64, title, _ string, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{userID: userID, title: title, link: link})
}

func (n *recordingNotifier) countFor(userID int64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, s := range n.sent {
		if s.userID == userID {
			count++
		}
	}
	return count
}

// passthroughUoW runs the closure directly; there is no transaction to join.
type passthroughUoW struct{}

func (passthroughUoW) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
