package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

const (
	maxMultipartMemory = 32 << 20
	maxReceiptBytes    = 16 << 20
	formFieldReceipt   = "receipt"
)

// ExpenseHandler provides HTTP handlers for expenses.
type ExpenseHandler struct {
	expenseService *services.ExpenseService
	projectService *services.ProjectService
	notifications  *services.NotificationService
	activity       *services.ActivityService
}

// NewExpenseHandler constructs a handler with the provided services.
func NewExpenseHandler(
	expenseService *services.ExpenseService,
	projectService *services.ProjectService,
	notifications *services.NotificationService,
	activity *services.ActivityService,
) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		projectService: projectService,
		notifications:  notifications,
		activity:       activity,
	}
}

// ExpenseRouter registers expense routes on the given router.
func ExpenseRouter(
	r chi.Router,
	expenseService *services.ExpenseService,
	projectService *services.ProjectService,
	notifications *services.NotificationService,
	activity *services.ActivityService,
) {
	handler := NewExpenseHandler(expenseService, projectService, notifications, activity)

	r.With(RequirePermission(authz.ResourceExpenses, authz.ActionRead)).Get("/", handler.ListExpenses)
	r.With(RequirePermission(authz.ResourceExpenses, authz.ActionWrite)).Post("/", handler.SubmitExpense)
	r.Route("/{expenseID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceExpenses, authz.ActionRead)).Get("/", handler.GetExpense)
		r.With(RequirePermission(authz.ResourceExpenses, authz.ActionRead)).Get("/receipt", handler.GetReceipt)
		r.With(RequirePermission(authz.ResourceExpenses, authz.ActionAdmin)).Post("/approve", handler.ApproveExpense)
		r.With(RequirePermission(authz.ResourceExpenses, authz.ActionAdmin)).Post("/reject", handler.RejectExpense)
		r.With(RequirePermission(authz.ResourceExpenses, authz.ActionDelete)).Delete("/", handler.DeleteExpense)
	})
}

func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID, err := parseQueryInt(r, "project_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))

	expenses, err := h.expenseService.List(r.Context(), identity.Visibility(), projectID, status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) GetExpense(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := h.expenseService.Get(r.Context(), identity.Visibility(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch expense")
		return
	}

	writeJSON(w, http.StatusOK, expense)
}

// SubmitExpense creates a pending expense. The body is either JSON or
// multipart/form-data; the multipart form may attach a receipt file.
func (h *ExpenseHandler) SubmitExpense(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	expense, receipt, err := parseExpenseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	expense.SubmittedBy = identity.UserID

	// Submitting against an invisible project is indistinguishable
	// from a missing one.
	if _, err := h.projectService.Get(r.Context(), identity.Visibility(), expense.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch project")
		return
	}

	created, err := h.expenseService.Submit(r.Context(), expense, receipt)
	if err != nil {
		if errors.Is(err, services.ErrNoReceipt) {
			writeError(w, http.StatusBadRequest, "receipt storage is not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create expense")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ExpenseHandler) ApproveExpense(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, types.ExpenseStatusApproved)
}

func (h *ExpenseHandler) RejectExpense(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, types.ExpenseStatusRejected)
}

func (h *ExpenseHandler) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var expense types.Expense
	if status == types.ExpenseStatusApproved {
		expense, err = h.expenseService.Approve(r.Context(), identity.Visibility(), id, identity.UserID)
	} else {
		expense, err = h.expenseService.Reject(r.Context(), identity.Visibility(), id, identity.UserID)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "expense not found")
		case errors.Is(err, store.ErrNotPending):
			writeError(w, http.StatusConflict, "expense is not pending")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update expense")
		}
		return
	}

	h.activity.Record(r.Context(), identity.UserID, status, "expense", id, "")

	notifType := types.NotificationTypeSuccess
	if status == types.ExpenseStatusRejected {
		notifType = types.NotificationTypeWarning
	}
	h.notifications.Notify(r.Context(), expense.SubmittedBy,
		"Expense "+status, expense.Description, notifType)

	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.expenseService.Get(r.Context(), identity.Visibility(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch expense")
		return
	}

	if err := h.expenseService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete expense")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "delete", "expense", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// GetReceipt streams the stored receipt attachment.
func (h *ExpenseHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "expenseID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader, err := h.expenseService.OpenReceipt(r.Context(), identity.Visibility(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrNoReceipt):
			writeError(w, http.StatusNotFound, "receipt not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to fetch receipt")
		}
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = io.Copy(w, reader)
}

// ExpenseCreateRequest is the JSON payload for expense submission.
type ExpenseCreateRequest struct {
	ProjectID   int     `json:"project_id"`
	CategoryID  *int    `json:"category_id"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	ExpenseDate string  `json:"expense_date"`
}

func parseExpenseRequest(r *http.Request) (types.Expense, *services.ReceiptFile, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return parseExpenseForm(r)
	}

	var req ExpenseCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return types.Expense{}, nil, errors.New("invalid request")
	}
	expense, err := req.toExpense()
	return expense, nil, err
}

func (req ExpenseCreateRequest) toExpense() (types.Expense, error) {
	if req.ProjectID < 1 {
		return types.Expense{}, errors.New("project_id is required")
	}
	if req.Amount <= 0 {
		return types.Expense{}, errors.New("amount must be positive")
	}
	date, err := parseDate(req.ExpenseDate)
	if err != nil {
		return types.Expense{}, err
	}
	return types.Expense{
		ProjectID:   req.ProjectID,
		CategoryID:  req.CategoryID,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		ExpenseDate: date,
	}, nil
}

func parseExpenseForm(r *http.Request) (types.Expense, *services.ReceiptFile, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return types.Expense{}, nil, errors.New("invalid multipart form")
	}

	projectID, err := strconv.Atoi(strings.TrimSpace(r.FormValue("project_id")))
	if err != nil {
		return types.Expense{}, nil, errors.New("project_id is required")
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("amount")), 64)
	if err != nil {
		return types.Expense{}, nil, errors.New("invalid amount")
	}

	req := ExpenseCreateRequest{
		ProjectID:   projectID,
		Description: r.FormValue("description"),
		Amount:      amount,
		ExpenseDate: r.FormValue("expense_date"),
	}
	if raw := strings.TrimSpace(r.FormValue("category_id")); raw != "" {
		categoryID, err := strconv.Atoi(raw)
		if err != nil {
			return types.Expense{}, nil, errors.New("invalid category_id")
		}
		req.CategoryID = &categoryID
	}

	expense, err := req.toExpense()
	if err != nil {
		return types.Expense{}, nil, err
	}

	receipt, err := parseReceiptFile(r.MultipartForm)
	if err != nil {
		return types.Expense{}, nil, err
	}
	return expense, receipt, nil
}

func parseReceiptFile(form *multipart.Form) (*services.ReceiptFile, error) {
	if form == nil {
		return nil, nil
	}

	files := form.File[formFieldReceipt]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > 1 {
		return nil, errors.New("only one receipt file is allowed")
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("failed to read receipt file")
	}

	data, err := readFileLimited(file, maxReceiptBytes)
	_ = file.Close()
	if err != nil {
		return nil, err
	}

	return &services.ReceiptFile{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
