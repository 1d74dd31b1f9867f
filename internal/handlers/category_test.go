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

type fakeCategoryRepo struct {
	projects   *fakeProjectRepo
	categories map[int]types.BudgetCategory
	nextID     int
}

func newFakeCategoryRepo(projects *fakeProjectRepo) *fakeCategoryRepo {
	return &fakeCategoryRepo{
		projects:   projects,
		categories: make(map[int]types.BudgetCategory),
		nextID:     1,
	}
}

func (f *fakeCategoryRepo) visible(vis store.Visibility, category types.BudgetCategory) bool {
	project, ok := f.projects.projects[category.ProjectID]
	if !ok {
		return false
	}
	return f.projects.visible(vis, project)
}

func (f *fakeCategoryRepo) ListByProject(_ context.Context, vis store.Visibility, projectID int) ([]types.BudgetCategory, error) {
	var all []types.BudgetCategory
	for _, c := range f.categories {
		if c.ProjectID == projectID && f.visible(vis, c) {
			all = append(all, c)
		}
	}
	return all, nil
}

func (f *fakeCategoryRepo) Get(_ context.Context, vis store.Visibility, id int) (types.BudgetCategory, error) {
	category, ok := f.categories[id]
	if !ok || !f.visible(vis, category) {
		return types.BudgetCategory{}, store.ErrNotFound
	}
	return category, nil
}

func (f *fakeCategoryRepo) Create(_ context.Context, category types.BudgetCategory) (types.BudgetCategory, error) {
	category.ID = f.nextID
	f.nextID++
	f.categories[category.ID] = category
	return category, nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, category types.BudgetCategory) (types.BudgetCategory, error) {
	if _, ok := f.categories[category.ID]; !ok {
		return types.BudgetCategory{}, store.ErrNotFound
	}
	f.categories[category.ID] = category
	return category, nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id int) error {
	if _, ok := f.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

func newCategoryRouter(identity Identity) (http.Handler, *fakeProjectRepo, *fakeCategoryRepo) {
	projects := newFakeProjectRepo()
	categories := newFakeCategoryRepo(projects)

	categoryService := services.NewCategoryService(categories)
	projectService := services.NewProjectService(projects)

	router := chi.NewRouter()
	router.Use(withIdentity(identity))
	router.Route("/budget-categories", func(r chi.Router) {
		CategoryRouter(r, categoryService, projectService)
	})
	return router, projects, categories
}

func TestCategoryAllocatedAmountRoundTrip(t *testing.T) {
	handler, projects, _ := newCategoryRouter(Identity{UserID: 5, Role: authz.RoleAnalyst})
	project := projects.add(types.Project{Name: "P", ProjectManagerID: 5, TotalBudget: 10000})

	rec := doJSON(t, handler, http.MethodPost, "/budget-categories", map[string]any{
		"project_id":       project.ID,
		"name":             "Hardware",
		"allocated_amount": 1234.56,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.BudgetCategory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 1234.56, created.AllocatedAmount)

	rec = doJSON(t, handler, http.MethodGet, "/budget-categories/"+itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched types.BudgetCategory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, 1234.56, fetched.AllocatedAmount)
	assert.Equal(t, "Hardware", fetched.Name)
}

func TestCategoryHiddenProjectRejected(t *testing.T) {
	handler, projects, _ := newCategoryRouter(Identity{UserID: 5, Role: authz.RoleAnalyst})
	hidden := projects.add(types.Project{Name: "Hidden", ProjectManagerID: 3})

	rec := doJSON(t, handler, http.MethodPost, "/budget-categories", map[string]any{
		"project_id":       hidden.ID,
		"name":             "Travel",
		"allocated_amount": 10.0,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryWriteForbiddenForUserRole(t *testing.T) {
	handler, projects, _ := newCategoryRouter(Identity{UserID: 5, Role: authz.RoleUser})
	project := projects.add(types.Project{Name: "P", ProjectManagerID: 5})

	rec := doJSON(t, handler, http.MethodPost, "/budget-categories", map[string]any{
		"project_id":       project.ID,
		"name":             "Travel",
		"allocated_amount": 10.0,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCategoryDeleteRequiresManager(t *testing.T) {
	handler, projects, categories := newCategoryRouter(Identity{UserID: 5, Role: authz.RoleAnalyst})
	project := projects.add(types.Project{Name: "P", ProjectManagerID: 5})
	category, err := categories.Create(context.Background(), types.BudgetCategory{
		ProjectID: project.ID,
		Name:      "Software",
	})
	require.NoError(t, err)

	// Analysts may write categories but not delete them.
	rec := doJSON(t, handler, http.MethodDelete, "/budget-categories/"+itoa(category.ID), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
