package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type mockScheduleRepo struct {
	mu         sync.Mutex
	nextID     int64
	schedules  map[int64]*ScheduledOrder
	executions map[int64][]ExecutionRecord
	claims     map[int64]time.Time

	createErr  error
	listDueErr error
	releases   []int64
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{
		schedules:  make(map[int64]*ScheduledOrder),
		executions: make(map[int64][]ExecutionRecord),
		claims:     make(map[int64]time.Time),
	}
}

func (m *mockScheduleRepo) Create(_ context.Context, so *ScheduledOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	so.ID = m.nextID
	cp := *so
	m.schedules[so.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) GetByIDAndUser(_ context.Context, id, userID int64) (*ScheduledOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.schedules[id]
	if !ok || so.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *so
	return &cp, nil
}

func (m *mockScheduleRepo) ListByUser(_ context.Context, userID int64) ([]ScheduledOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ScheduledOrder
	for _, so := range m.schedules {
		if so.UserID == userID {
			out = append(out, *so)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) ListByUserAndStatus(_ context.Context, userID int64, status Status) ([]ScheduledOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ScheduledOrder
	for _, so := range m.schedules {
		if so.UserID == userID && so.Status == status {
			out = append(out, *so)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) ListByUserAndDateRange(_ context.Context, userID int64, from, to time.Time) ([]ScheduledOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ScheduledOrder
	for _, so := range m.schedules {
		if so.UserID == userID && !so.ScheduledDate.Before(from) && !so.ScheduledDate.After(to) {
			out = append(out, *so)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, so *ScheduledOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[so.ID]; !ok {
		return ErrNotFound
	}
	cp := *so
	m.schedules[so.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.schedules[id]
	if !ok {
		return ErrNotFound
	}
	so.Status = status
	return nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(m.schedules, id)
	delete(m.executions, id)
	return nil
}

func (m *mockScheduleRepo) ListDue(_ context.Context, asOf, staleBefore time.Time) ([]ScheduledOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listDueErr != nil {
		return nil, m.listDueErr
	}
	var out []ScheduledOrder
	for _, so := range m.schedules {
		if so.Status != StatusPending && so.Status != StatusActive {
			continue
		}
		if so.NextExecutionDate.After(asOf) {
			continue
		}
		if claimed, ok := m.claims[so.ID]; ok && !claimed.Before(staleBefore) {
			continue
		}
		out = append(out, *so)
	}
	return out, nil
}

func (m *mockScheduleRepo) Claim(_ context.Context, id int64, expectedNext, now, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.schedules[id]
	if !ok || !so.NextExecutionDate.Equal(expectedNext) {
		return false, nil
	}
	if so.Status != StatusPending && so.Status != StatusActive {
		return false, nil
	}
	if claimed, ok := m.claims[id]; ok && !claimed.Before(staleBefore) {
		return false, nil
	}
	m.claims[id] = now
	return true, nil
}

func (m *mockScheduleRepo) ReleaseClaim(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, id)
	m.releases = append(m.releases, id)
	return nil
}

func (m *mockScheduleRepo) Finalize(_ context.Context, id int64, expectedNext time.Time, next *time.Time, status Status, occurrence int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	so, ok := m.schedules[id]
	if !ok || !so.NextExecutionDate.Equal(expectedNext) {
		return false, nil
	}
	if so.Status != StatusPending && so.Status != StatusActive {
		return false, nil
	}
	so.Status = status
	so.CurrentOccurrence = occurrence
	if next != nil {
		so.NextExecutionDate = *next
	}
	delete(m.claims, id)
	return true, nil
}

func (m *mockScheduleRepo) AppendExecution(_ context.Context, rec ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = int64(len(m.executions[rec.ScheduledOrderID]) + 1)
	m.executions[rec.ScheduledOrderID] = append(m.executions[rec.ScheduledOrderID], rec)
	return nil
}

func (m *mockScheduleRepo) ListExecutions(_ context.Context, scheduledOrderID int64) ([]ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutionRecord(nil), m.executions[scheduledOrderID]...), nil
}

var _ Repository = (*mockScheduleRepo)(nil)

func validRequest() CreateRequest {
	return CreateRequest{
		Name:          "Weekly staples",
		Type:          Recurring,
		Recurrence:    Weekly,
		ScheduledDate: day(2026, time.September, 7),
		ScheduledTime: "09:00",
		Lines: []LineInput{
			{ProductID: 1, ProductName: "Whole Milk", Price: dec("2.50"), Quantity: 2},
		},
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockScheduleRepo())

	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		wantErr error
	}{
		{"empty lines", func(r *CreateRequest) { r.Lines = nil }, ErrEmptyLines},
		{"missing date", func(r *CreateRequest) { r.ScheduledDate = time.Time{} }, ErrMissingDate},
		{"recurring without recurrence", func(r *CreateRequest) { r.Recurrence = "" }, ErrRecurrenceMissing},
		{"one-time with recurrence", func(r *CreateRequest) { r.Type = OneTime }, ErrRecurrenceSet},
		{"negative occurrences", func(r *CreateRequest) { r.MaxOccurrences = -1 }, ErrInvalidOccurrence},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), 1, req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCreate_Recurring(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	so, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusPending, so.Status)
	assert.Equal(t, int64(1), so.UserID)
	assert.Zero(t, so.CurrentOccurrence)
	// Recurring schedules seed one period after the scheduled date.
	assert.Equal(t, day(2026, time.September, 14), so.NextExecutionDate)
	// Delivery defaults fall back to the scheduled slot.
	assert.Equal(t, so.ScheduledDate, so.DeliveryDate)
	assert.Equal(t, "09:00", so.DeliveryTime)
	require.Len(t, so.Lines, 1)
	assert.True(t, dec("5.00").Equal(so.Lines[0].Subtotal), "subtotal %s", so.Lines[0].Subtotal)
}

func TestCreate_OneTimeSeedsScheduledDate(t *testing.T) {
	svc := NewService(newMockScheduleRepo())

	req := validRequest()
	req.Type = OneTime
	req.Recurrence = ""

	so, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)
	assert.Equal(t, req.ScheduledDate, so.NextExecutionDate)
}

func TestCreate_ZeroQuantityDefaultsToOne(t *testing.T) {
	svc := NewService(newMockScheduleRepo())

	req := validRequest()
	req.Lines = []LineInput{{ProductID: 9, ProductName: "Bananas", Price: dec("1.20")}}

	so, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)
	assert.Equal(t, 1, so.Lines[0].Quantity)
	assert.True(t, dec("1.20").Equal(so.Lines[0].Subtotal))
}

func TestUpdate_OnlyPending(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	so, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), so.ID, StatusActive))

	_, err = svc.Update(context.Background(), so.ID, 1, validRequest())
	assert.ErrorIs(t, err, ErrUpdateNotPending)
}

func TestUpdate_ReseedsNextExecution(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	so, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)

	req := validRequest()
	req.Name = "Monthly staples"
	req.Recurrence = Monthly
	req.ScheduledDate = day(2026, time.October, 1)

	updated, err := svc.Update(context.Background(), so.ID, 1, req)
	require.NoError(t, err)
	assert.Equal(t, "Monthly staples", updated.Name)
	assert.Equal(t, day(2026, time.November, 1), updated.NextExecutionDate)

	stored, err := svc.Get(context.Background(), so.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Monthly staples", stored.Name)
}

func TestUpdate_OtherUserNotFound(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	so, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), so.ID, 2, validRequest())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		status  Status
		wantErr error
	}{
		{StatusPending, nil},
		{StatusActive, nil},
		{StatusPaused, nil},
		{StatusCompleted, ErrCancelTerminal},
		{StatusCancelled, ErrCancelTerminal},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			repo := newMockScheduleRepo()
			svc := NewService(repo)
			so, err := svc.Create(context.Background(), 1, validRequest())
			require.NoError(t, err)
			require.NoError(t, repo.UpdateStatus(context.Background(), so.ID, tc.status))

			err = svc.Cancel(context.Background(), so.ID, 1)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			got, err := svc.Get(context.Background(), so.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, StatusCancelled, got.Status)
		})
	}
}

func TestPause_OnlyRecurring(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	req := validRequest()
	req.Type = OneTime
	req.Recurrence = ""
	so, err := svc.Create(context.Background(), 1, req)
	require.NoError(t, err)

	err = svc.Pause(context.Background(), so.ID, 1)
	assert.ErrorIs(t, err, ErrPauseNotRecurring)
}

func TestPause_TerminalRejected(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	so, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), so.ID, 1))

	err = svc.Pause(context.Background(), so.ID, 1)
	assert.ErrorIs(t, err, ErrCancelTerminal)
}

func TestPauseResume(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	so, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)

	// Resuming a schedule that is not paused is rejected.
	err = svc.Resume(context.Background(), so.ID, 1)
	assert.ErrorIs(t, err, ErrResumeNotPaused)

	require.NoError(t, svc.Pause(context.Background(), so.ID, 1))
	got, err := svc.Get(context.Background(), so.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, got.Status)

	require.NoError(t, svc.Resume(context.Background(), so.ID, 1))
	got, err = svc.Get(context.Background(), so.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		status  Status
		wantErr error
	}{
		{StatusPending, nil},
		{StatusCancelled, nil},
		{StatusActive, ErrDeleteForbidden},
		{StatusPaused, ErrDeleteForbidden},
		{StatusCompleted, ErrDeleteForbidden},
	}

	for _, tc := range tests {
		t.Run(string(tc.status), func(t *testing.T) {
			repo := newMockScheduleRepo()
			svc := NewService(repo)
			so, err := svc.Create(context.Background(), 1, validRequest())
			require.NoError(t, err)
			require.NoError(t, repo.UpdateStatus(context.Background(), so.ID, tc.status))

			err = svc.Delete(context.Background(), so.ID, 1)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			_, err = svc.Get(context.Background(), so.ID, 1)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestExecutionHistory_OwnershipChecked(t *testing.T) {
	repo := newMockScheduleRepo()
	svc := NewService(repo)

	so, err := svc.Create(context.Background(), 1, validRequest())
	require.NoError(t, err)
	require.NoError(t, repo.AppendExecution(context.Background(), ExecutionRecord{
		ScheduledOrderID: so.ID,
		Status:           ExecutionSuccess,
	}))

	_, err = svc.ExecutionHistory(context.Background(), so.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	recs, err := svc.ExecutionHistory(context.Background(), so.ID, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, ExecutionSuccess, recs[0].Status)
}
