package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// fakeExpenseRepo mirrors the SQL repository: expense visibility
// follows the owning project, and approval rolls the amount into the
// project's spent budget.
type fakeExpenseRepo struct {
	projects *fakeProjectRepo
	expenses map[int]types.Expense
	nextID   int
}

func newFakeExpenseRepo(projects *fakeProjectRepo) *fakeExpenseRepo {
	return &fakeExpenseRepo{
		projects: projects,
		expenses: make(map[int]types.Expense),
		nextID:   1,
	}
}

func (f *fakeExpenseRepo) visible(vis store.Visibility, expense types.Expense) bool {
	project, ok := f.projects.projects[expense.ProjectID]
	if !ok {
		return false
	}
	return f.projects.visible(vis, project)
}

func (f *fakeExpenseRepo) List(_ context.Context, vis store.Visibility, projectID int, status string) ([]types.Expense, error) {
	var all []types.Expense
	for _, e := range f.expenses {
		if !f.visible(vis, e) {
			continue
		}
		if projectID > 0 && e.ProjectID != projectID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		all = append(all, e)
	}
	return all, nil
}

func (f *fakeExpenseRepo) Get(_ context.Context, vis store.Visibility, id int) (types.Expense, error) {
	expense, ok := f.expenses[id]
	if !ok || !f.visible(vis, expense) {
		return types.Expense{}, store.ErrNotFound
	}
	return expense, nil
}

func (f *fakeExpenseRepo) Create(_ context.Context, expense types.Expense) (types.Expense, error) {
	expense.ID = f.nextID
	f.nextID++
	f.expenses[expense.ID] = expense
	return expense, nil
}

func (f *fakeExpenseRepo) SetStatus(_ context.Context, id int, status string, approverID int) (types.Expense, error) {
	expense, ok := f.expenses[id]
	if !ok {
		return types.Expense{}, store.ErrNotFound
	}
	if expense.Status != types.ExpenseStatusPending {
		return types.Expense{}, store.ErrNotPending
	}

	expense.Status = status
	expense.ApprovedBy = &approverID
	if status == types.ExpenseStatusApproved {
		project := f.projects.projects[expense.ProjectID]
		project.SpentBudget += expense.Amount
		f.projects.projects[expense.ProjectID] = project
	}
	f.expenses[id] = expense
	return expense, nil
}

func (f *fakeExpenseRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.expenses[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.expenses, id)
	return nil
}

type fakeNotificationRepo struct {
	notifications []types.Notification
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID int, unreadOnly bool) ([]types.Notification, error) {
	var all []types.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		all = append(all, n)
	}
	return all, nil
}

func (f *fakeNotificationRepo) Get(_ context.Context, id int) (types.Notification, error) {
	for _, n := range f.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return types.Notification{}, store.ErrNotFound
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification types.Notification) (types.Notification, error) {
	notification.ID = len(f.notifications) + 1
	f.notifications = append(f.notifications, notification)
	return notification, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, userID int) error {
	for i, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			f.notifications[i].Read = true
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID int) error {
	for i, n := range f.notifications {
		if n.UserID == userID {
			f.notifications[i].Read = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) Delete(_ context.Context, id, userID int) error {
	for i, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type expenseFixture struct {
	projects      *fakeProjectRepo
	expenses      *fakeExpenseRepo
	notifications *fakeNotificationRepo
}

func newExpenseRouter(t *testing.T, identity Identity) (http.Handler, *expenseFixture) {
	t.Helper()

	fixture := &expenseFixture{
		projects:      newFakeProjectRepo(),
		notifications: &fakeNotificationRepo{},
	}
	fixture.expenses = newFakeExpenseRepo(fixture.projects)

	expenseService := services.NewExpenseService(fixture.expenses, nil)
	projectService := services.NewProjectService(fixture.projects)
	notificationService := services.NewNotificationService(fixture.notifications, nil, nil)
	activityService := services.NewActivityService(&fakeActivityRepo{}, nil)

	router := chi.NewRouter()
	router.Use(withIdentity(identity))
	router.Route("/expenses", func(r chi.Router) {
		ExpenseRouter(r, expenseService, projectService, notificationService, activityService)
	})
	return router, fixture
}

func TestSubmitExpense(t *testing.T) {
	handler, fixture := newExpenseRouter(t, Identity{UserID: 7, Role: authz.RoleUser})
	project := fixture.projects.add(types.Project{Name: "P", ProjectManagerID: 7, TotalBudget: 1000})

	rec := doJSON(t, handler, http.MethodPost, "/expenses", map[string]any{
		"project_id":   project.ID,
		"description":  "Team laptops",
		"amount":       250.0,
		"expense_date": "2026-08-15",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, types.ExpenseStatusPending, created.Status)
	assert.Equal(t, 7, created.SubmittedBy)
	assert.Nil(t, created.ApprovedBy)
}

func TestSubmitExpenseHiddenProject(t *testing.T) {
	handler, fixture := newExpenseRouter(t, Identity{UserID: 7, Role: authz.RoleUser})
	hidden := fixture.projects.add(types.Project{Name: "Hidden", ProjectManagerID: 3})

	rec := doJSON(t, handler, http.MethodPost, "/expenses", map[string]any{
		"project_id": hidden.ID,
		"amount":     50.0,
	})

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveExpenseUpdatesSpend(t *testing.T) {
	handler, fixture := newExpenseRouter(t, Identity{UserID: 9, Role: authz.RoleManager})
	project := fixture.projects.add(types.Project{Name: "P", ProjectManagerID: 9, TotalBudget: 1000})
	expense, err := fixture.expenses.Create(context.Background(), types.Expense{
		ProjectID:   project.ID,
		Amount:      300,
		Status:      types.ExpenseStatusPending,
		SubmittedBy: 4,
	})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/expenses/"+itoa(expense.ID)+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var approved types.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &approved))
	assert.Equal(t, types.ExpenseStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, 9, *approved.ApprovedBy)

	assert.InDelta(t, 300.0, fixture.projects.projects[project.ID].SpentBudget, 0.001)

	// The submitter is told about the decision.
	notes, err := fixture.notifications.ListByUser(context.Background(), 4, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, types.NotificationTypeSuccess, notes[0].Type)
}

func TestApproveExpenseTwiceConflicts(t *testing.T) {
	handler, fixture := newExpenseRouter(t, Identity{UserID: 9, Role: authz.RoleManager})
	project := fixture.projects.add(types.Project{Name: "P", ProjectManagerID: 9})
	expense, err := fixture.expenses.Create(context.Background(), types.Expense{
		ProjectID:   project.ID,
		Amount:      10,
		Status:      types.ExpenseStatusPending,
		SubmittedBy: 4,
	})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/expenses/"+itoa(expense.ID)+"/approve", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/expenses/"+itoa(expense.ID)+"/approve", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRejectExpenseLeavesSpendUntouched(t *testing.T) {
	handler, fixture := newExpenseRouter(t, Identity{UserID: 9, Role: authz.RoleManager})
	project := fixture.projects.add(types.Project{Name: "P", ProjectManagerID: 9, TotalBudget: 100})
	expense, err := fixture.expenses.Create(context.Background(), types.Expense{
		ProjectID:   project.ID,
		Amount:      40,
		Status:      types.ExpenseStatusPending,
		SubmittedBy: 4,
	})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/expenses/"+itoa(expense.ID)+"/reject", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.InDelta(t, 0.0, fixture.projects.projects[project.ID].SpentBudget, 0.001)

	notes, err := fixture.notifications.ListByUser(context.Background(), 4, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, types.NotificationTypeWarning, notes[0].Type)
}

func TestApproveExpenseForbiddenForUserRole(t *testing.T) {
	handler, fixture := newExpenseRouter(t, Identity{UserID: 7, Role: authz.RoleUser})
	project := fixture.projects.add(types.Project{Name: "P", ProjectManagerID: 7})
	expense, err := fixture.expenses.Create(context.Background(), types.Expense{
		ProjectID:   project.ID,
		Amount:      10,
		Status:      types.ExpenseStatusPending,
		SubmittedBy: 7,
	})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/expenses/"+itoa(expense.ID)+"/approve", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReceiptUploadWithoutStorageRejected(t *testing.T) {
	// Storage backend is nil in this fixture, so JSON submissions work
	// but any attached receipt is refused by the service.
	handler, fixture := newExpenseRouter(t, Identity{UserID: 7, Role: authz.RoleUser})
	project := fixture.projects.add(types.Project{Name: "P", ProjectManagerID: 7})

	expense, err := fixture.expenses.Create(context.Background(), types.Expense{
		ProjectID:   project.ID,
		Amount:      10,
		Status:      types.ExpenseStatusPending,
		SubmittedBy: 7,
	})
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodGet, "/expenses/"+itoa(expense.ID)+"/receipt", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
