package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/pbms/apiserver/internal/storage"
	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// ErrNoReceipt is returned when an expense has no stored receipt or
// receipt storage is not configured.
var ErrNoReceipt = errors.New("no receipt available")

// ExpenseRepository defines persistence operations for expenses.
type ExpenseRepository interface {
	List(ctx context.Context, vis store.Visibility, projectID int, status string) ([]types.Expense, error)
	Get(ctx context.Context, vis store.Visibility, id int) (types.Expense, error)
	Create(ctx context.Context, expense types.Expense) (types.Expense, error)
	SetStatus(ctx context.Context, id int, status string, approverID int) (types.Expense, error)
	Delete(ctx context.Context, id int) error
}

// ReceiptFile is an uploaded receipt attachment.
type ReceiptFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExpenseService encapsulates expense use-cases, including receipt
// attachments in object storage.
type ExpenseService struct {
	repo     ExpenseRepository
	receipts *storage.Storage
}

// NewExpenseService constructs an ExpenseService. receipts may be nil,
// in which case receipt uploads are rejected.
func NewExpenseService(repo ExpenseRepository, receipts *storage.Storage) *ExpenseService {
	return &ExpenseService{repo: repo, receipts: receipts}
}

func (s *ExpenseService) List(ctx context.Context, vis store.Visibility, projectID int, status string) ([]types.Expense, error) {
	return s.repo.List(ctx, vis, projectID, status)
}

func (s *ExpenseService) Get(ctx context.Context, vis store.Visibility, id int) (types.Expense, error) {
	return s.repo.Get(ctx, vis, id)
}

// Submit creates a pending expense, storing the receipt first when one
// is attached. Receipt keys are content-addressed so re-uploads of the
// same file are idempotent.
func (s *ExpenseService) Submit(ctx context.Context, expense types.Expense, receipt *ReceiptFile) (types.Expense, error) {
	expense.Status = types.ExpenseStatusPending
	expense.ApprovedBy = nil

	if receipt != nil {
		if s.receipts == nil {
			return types.Expense{}, ErrNoReceipt
		}
		key, err := s.storeReceipt(ctx, receipt)
		if err != nil {
			return types.Expense{}, err
		}
		expense.ReceiptKey = &key
	}

	return s.repo.Create(ctx, expense)
}

// Approve transitions a pending expense to approved and rolls its
// amount into the project and category spend totals.
func (s *ExpenseService) Approve(ctx context.Context, vis store.Visibility, id, approverID int) (types.Expense, error) {
	if _, err := s.repo.Get(ctx, vis, id); err != nil {
		return types.Expense{}, err
	}
	return s.repo.SetStatus(ctx, id, types.ExpenseStatusApproved, approverID)
}

// Reject transitions a pending expense to rejected without touching
// any spend totals.
func (s *ExpenseService) Reject(ctx context.Context, vis store.Visibility, id, approverID int) (types.Expense, error) {
	if _, err := s.repo.Get(ctx, vis, id); err != nil {
		return types.Expense{}, err
	}
	return s.repo.SetStatus(ctx, id, types.ExpenseStatusRejected, approverID)
}

func (s *ExpenseService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// OpenReceipt streams the stored receipt of a visible expense.
func (s *ExpenseService) OpenReceipt(ctx context.Context, vis store.Visibility, id int) (io.ReadCloser, error) {
	expense, err := s.repo.Get(ctx, vis, id)
	if err != nil {
		return nil, err
	}
	if expense.ReceiptKey == nil || s.receipts == nil {
		return nil, ErrNoReceipt
	}
	return s.receipts.Get(ctx, *expense.ReceiptKey)
}

func (s *ExpenseService) storeReceipt(ctx context.Context, receipt *ReceiptFile) (string, error) {
	if len(receipt.Data) == 0 {
		return "", errors.New("empty receipt file")
	}

	hash := sha256.Sum256(receipt.Data)
	key := fmt.Sprintf("receipts/%s/%s", hex.EncodeToString(hash[:]), path.Base(receipt.Filename))

	if err := s.receipts.Put(ctx, key, bytes.NewReader(receipt.Data), int64(len(receipt.Data)), receipt.ContentType); err != nil {
		return "", err
	}
	return key, nil
}
