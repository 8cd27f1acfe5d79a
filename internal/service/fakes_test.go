package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/taskroom/taskroom-go-api/internal/models"
)

type assignmentKey struct {
	taskID uint
	userID uint
}

type memoryAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[assignmentKey]models.TaskAssignment
	nextID      uint
}

func newMemoryAssignmentRepo() *memoryAssignmentRepo {
	return &memoryAssignmentRepo{
		assignments: make(map[assignmentKey]models.TaskAssignment),
		nextID:      1,
	}
}

func (m *memoryAssignmentRepo) Create(ctx context.Context, assignment *models.TaskAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment.ID = m.nextID
	m.nextID++
	m.assignments[assignmentKey{assignment.TaskID, assignment.UserID}] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Save(ctx context.Context, assignment *models.TaskAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[assignmentKey{assignment.TaskID, assignment.UserID}] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) GetByTaskAndUser(ctx context.Context, taskID, userID uint) (models.TaskAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment, ok := m.assignments[assignmentKey{taskID, userID}]
	if !ok {
		return models.TaskAssignment{}, gorm.ErrRecordNotFound
	}
	return assignment, nil
}

func (m *memoryAssignmentRepo) Exists(ctx context.Context, taskID, userID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.assignments[assignmentKey{taskID, userID}]
	return ok, nil
}

func (m *memoryAssignmentRepo) ListByTask(ctx context.Context, taskID uint) ([]models.TaskAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.TaskAssignment, 0)
	for _, assignment := range m.assignments {
		if assignment.TaskID == taskID {
			results = append(results, assignment)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryAssignmentRepo) ListByUser(ctx context.Context, userID uint) ([]models.TaskAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.TaskAssignment, 0)
	for _, assignment := range m.assignments {
		if assignment.UserID == userID {
			results = append(results, assignment)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryAssignmentRepo) Delete(ctx context.Context, taskID, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := assignmentKey{taskID, userID}
	if _, ok := m.assignments[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, key)
	return nil
}

func (m *memoryAssignmentRepo) DeleteByTask(ctx context.Context, taskID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.assignments {
		if key.taskID == taskID {
			delete(m.assignments, key)
		}
	}
	return nil
}

func (m *memoryAssignmentRepo) FindDue(ctx context.Context, before time.Time) ([]models.TaskAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.TaskAssignment, 0)
	for _, assignment := range m.assignments {
		if !assignment.Status.SweepEligible() {
			continue
		}
		if assignment.Task.Deadline == nil || !assignment.Task.Deadline.Before(before) {
			continue
		}
		results = append(results, assignment)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryAssignmentRepo) BulkSetOverdue(ctx context.Context, before time.Time, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var transitioned int64
	for key, assignment := range m.assignments {
		if !assignment.Status.SweepEligible() {
			continue
		}
		if assignment.Task.Deadline == nil || !assignment.Task.Deadline.Before(before) {
			continue
		}
		assignment.Status = models.StatusOverdue
		assignment.UpdatedAt = now
		m.assignments[key] = assignment
		transitioned++
	}
	return transitioned, nil
}

func (m *memoryAssignmentRepo) FindWithDeadlineInWindow(ctx context.Context, start, end time.Time) ([]models.TaskAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.TaskAssignment, 0)
	for _, assignment := range m.assignments {
		if !assignment.Status.SweepEligible() {
			continue
		}
		deadline := assignment.Task.Deadline
		if deadline == nil || deadline.Before(start) || deadline.After(end) {
			continue
		}
		results = append(results, assignment)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

type memoryScheduleRepo struct {
	mu            sync.Mutex
	notifications map[uint]models.ScheduledNotification
	nextID        uint
}

func newMemoryScheduleRepo() *memoryScheduleRepo {
	return &memoryScheduleRepo{
		notifications: make(map[uint]models.ScheduledNotification),
		nextID:        1,
	}
}

func (m *memoryScheduleRepo) Create(ctx context.Context, notification *models.ScheduledNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	notification.ID = m.nextID
	m.nextID++
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *memoryScheduleRepo) Save(ctx context.Context, notification *models.ScheduledNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[notification.ID] = *notification
	return nil
}

func (m *memoryScheduleRepo) SaveAll(ctx context.Context, notifications []models.ScheduledNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, notification := range notifications {
		m.notifications[notification.ID] = notification
	}
	return nil
}

func (m *memoryScheduleRepo) GetByID(ctx context.Context, id uint) (models.ScheduledNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	notification, ok := m.notifications[id]
	if !ok {
		return models.ScheduledNotification{}, gorm.ErrRecordNotFound
	}
	return notification, nil
}

func (m *memoryScheduleRepo) ExistsPending(ctx context.Context, taskID, userID uint, eventType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, notification := range m.notifications {
		if notification.TaskID == taskID && notification.UserID == userID &&
			notification.EventType == eventType && notification.Status == models.NotificationPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryScheduleRepo) FindPendingByTaskAndUser(ctx context.Context, taskID, userID uint) ([]models.ScheduledNotification, error) {
	return m.filter(func(n models.ScheduledNotification) bool {
		return n.TaskID == taskID && n.UserID == userID && n.Status == models.NotificationPending
	}), nil
}

func (m *memoryScheduleRepo) FindPendingByTask(ctx context.Context, taskID uint) ([]models.ScheduledNotification, error) {
	return m.filter(func(n models.ScheduledNotification) bool {
		return n.TaskID == taskID && n.Status == models.NotificationPending
	}), nil
}

func (m *memoryScheduleRepo) FindPendingInWindow(ctx context.Context, start, end time.Time) ([]models.ScheduledNotification, error) {
	results := m.filter(func(n models.ScheduledNotification) bool {
		return n.Status == models.NotificationPending &&
			!n.ScheduledTime.Before(start) && !n.ScheduledTime.After(end)
	})
	sort.Slice(results, func(i, j int) bool { return results[i].ScheduledTime.Before(results[j].ScheduledTime) })
	return results, nil
}

func (m *memoryScheduleRepo) FindFailedRetryable(ctx context.Context, maxAttempts int) ([]models.ScheduledNotification, error) {
	return m.filter(func(n models.ScheduledNotification) bool {
		return n.Status == models.NotificationFailed && n.AttemptCount < maxAttempts
	}), nil
}

func (m *memoryScheduleRepo) filter(keep func(models.ScheduledNotification) bool) []models.ScheduledNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.ScheduledNotification, 0)
	for _, notification := range m.notifications {
		if keep(notification) {
			results = append(results, notification)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

type memoryTaskRepo struct {
	mu     sync.Mutex
	tasks  map[uint]models.Task
	nextID uint
}

func newMemoryTaskRepo() *memoryTaskRepo {
	return &memoryTaskRepo{tasks: make(map[uint]models.Task), nextID: 1}
}

func (m *memoryTaskRepo) List(ctx context.Context) ([]models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]models.Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		results = append(results, task)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

func (m *memoryTaskRepo) GetByID(ctx context.Context, id uint) (models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return models.Task{}, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (m *memoryTaskRepo) Create(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.ID = m.nextID
	m.nextID++
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryTaskRepo) Update(ctx context.Context, task *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memoryTaskRepo) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.tasks, id)
	return nil
}

type memoryUserRepo struct {
	mu     sync.Mutex
	users  map[uint]models.User
	nextID uint
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uint]models.User), nextID: 1}
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (m *memoryUserRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, gorm.ErrRecordNotFound
}

func (m *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nextID
	}
	if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	m.users[user.ID] = *user
	return nil
}

// captureDispatcher records dispatched events and can be told to fail.
type captureDispatcher struct {
	mu     sync.Mutex
	events []NotificationEvent
	err    error
}

func (d *captureDispatcher) Dispatch(ctx context.Context, event NotificationEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *captureDispatcher) captured() []NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]NotificationEvent, len(d.events))
	copy(out, d.events)
	return out
}

func (d *captureDispatcher) typesSeen() []string {
	types := make([]string, 0)
	for _, event := range d.captured() {
		types = append(types, event.Type)
	}
	return types
}

// memoryFileStore keeps uploaded objects in a map.
type memoryFileStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryFileStore() *memoryFileStore {
	return &memoryFileStore{objects: make(map[string][]byte)}
}

func (f *memoryFileStore) Put(ctx context.Context, key, contentType string, reader io.Reader, size int64) error {
	content, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = content
	return nil
}

func (f *memoryFileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *memoryFileStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://files.test/" + key, nil
}

func (f *memoryFileStore) content(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[key]
	return content, ok
}

func solutionReader(content string) io.Reader {
	return bytes.NewReader([]byte(content))
}
