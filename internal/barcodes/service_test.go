package barcodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrack/barcodes/internal/platform/httpx"
	_ "github.com/stocktrack/barcodes/testing"
)

type memoryRepo struct {
	mu      sync.Mutex
	records []Record
	err     error
	creates int
	lists   int
}

func newMemoryRepo(seed ...Record) *memoryRepo {
	return &memoryRepo{records: append([]Record(nil), seed...)}
}

func (m *memoryRepo) Exists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.find(code)
	return ok, nil
}

func (m *memoryRepo) List(ctx context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *memoryRepo) Create(ctx context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Record{}, m.err
	}
	if _, ok := m.find(rec.Code); ok {
		return Record{}, fmt.Errorf("%w: %s", ErrDuplicate, rec.Code)
	}
	m.creates++
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memoryRepo) Update(ctx context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Record{}, m.err
	}
	idx, ok := m.find(rec.Code)
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, rec.Code)
	}
	stored := m.records[idx]
	stored.EntryDate = rec.EntryDate
	stored.ExpiryDate = rec.ExpiryDate
	stored.WithdrawalDate = rec.WithdrawalDate
	stored.Weight = rec.Weight
	stored.Quantity = rec.Quantity
	stored.Batch = rec.Batch
	m.records[idx] = stored
	return stored, nil
}

func (m *memoryRepo) ListExpiring(ctx context.Context, before Date) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Record
	for _, rec := range m.records {
		if rec.WithdrawalDate != nil || rec.ExpiryDate == nil {
			continue
		}
		if !rec.ExpiryDate.After(before.Time) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryRepo) find(code string) (int, bool) {
	for i, rec := range m.records {
		if rec.Code == code {
			return i, true
		}
	}
	return -1, false
}

func validSaveRequest() SaveRequest {
	return SaveRequest{
		Barcode:    "123",
		Name:       "Milk",
		EntryDate:  "2024-01-01",
		ExpiryDate: "2024-02-01",
		Weight:     "1.5",
		Quantity:   "10",
		Batch:      "B1",
	}
}

func ptr[T any](v T) *T {
	return &v
}

func TestSaveRequiresEveryMandatoryField(t *testing.T) {
	cases := map[string]func(*SaveRequest){
		"barcode":    func(r *SaveRequest) { r.Barcode = "" },
		"name":       func(r *SaveRequest) { r.Name = "" },
		"entryDate":  func(r *SaveRequest) { r.EntryDate = "" },
		"expiryDate": func(r *SaveRequest) { r.ExpiryDate = "" },
		"weight":     func(r *SaveRequest) { r.Weight = "0" },
		"quantity":   func(r *SaveRequest) { r.Quantity = "" },
		"batch":      func(r *SaveRequest) { r.Batch = "" },
	}
	for field, unset := range cases {
		t.Run(field, func(t *testing.T) {
			repo := newMemoryRepo()
			svc := NewService(repo, nil)
			req := validSaveRequest()
			unset(&req)

			_, err := svc.Save(context.Background(), req)
			require.ErrorIs(t, err, ErrFieldsRequired)
			assert.Contains(t, err.Error(), field)
			assert.Equal(t, http.StatusBadRequest, httpx.StatusFor(err))
			assert.Zero(t, repo.creates)
		})
	}
}

func TestSaveInsertsRecordVisibleToCheckAndList(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Save(ctx, validSaveRequest())
	require.NoError(t, err)
	assert.Equal(t, "123", created.Code)
	assert.Nil(t, created.WithdrawalDate)
	assert.Equal(t, 1, repo.creates)

	exists, err := svc.CheckCode(ctx, "123")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.CheckCode(ctx, "999")
	require.NoError(t, err)
	assert.False(t, exists)

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, created, records[0])
	assert.Equal(t, "2024-01-01", records[0].EntryDate.String())
	assert.Equal(t, "2024-02-01", records[0].ExpiryDate.String())
	assert.Equal(t, 1.5, *records[0].Weight)
	assert.Equal(t, int64(10), *records[0].Quantity)
	assert.Equal(t, "B1", *records[0].Batch)
}

func TestSaveParsesOptionalWithdrawalDate(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	req := validSaveRequest()
	req.WithdrawalDate = ptr("2024-01-20T10:30:00.000Z")
	created, err := svc.Save(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, created.WithdrawalDate)
	assert.Equal(t, "2024-01-20", created.WithdrawalDate.String())

	req = validSaveRequest()
	req.Barcode = "456"
	req.WithdrawalDate = ptr("")
	created, err = svc.Save(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, created.WithdrawalDate)
}

func TestSaveRejectsMalformedDate(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	req := validSaveRequest()
	req.ExpiryDate = "01/02/2024"
	_, err := svc.Save(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidDate)
	assert.Zero(t, repo.creates)
}

func TestSaveDuplicateIsAStoreFailure(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, validSaveRequest())
	require.NoError(t, err)

	_, err = svc.Save(ctx, validSaveRequest())
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, http.StatusInternalServerError, httpx.StatusFor(err))
}

func TestCheckCodeRequiresBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.CheckCode(context.Background(), "")
	require.ErrorIs(t, err, ErrCodeRequired)
}

func TestCheckCodePropagatesStoreError(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("connection refused")
	svc := NewService(repo, nil)

	_, err := svc.CheckCode(context.Background(), "123")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, httpx.StatusFor(err))
}

func TestUpdateUnknownBarcodeLeavesStoreUnchanged(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()
	_, err := svc.Save(ctx, validSaveRequest())
	require.NoError(t, err)
	before, err := svc.List(ctx)
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateRequest{Barcode: "missing", Batch: ptr("B9")})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, httpx.StatusFor(err))

	after, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateChangesOnlyMutableColumns(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()
	_, err := svc.Save(ctx, validSaveRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, UpdateRequest{
		Barcode:        "123",
		EntryDate:      ptr("2024-01-05"),
		ExpiryDate:     ptr("2024-03-01"),
		WithdrawalDate: ptr("2024-02-15"),
		Weight:         ptr(json.Number("2.25")),
		Quantity:       ptr(json.Number("4")),
		Batch:          ptr("B2"),
	})
	require.NoError(t, err)

	assert.Equal(t, "123", updated.Code)
	assert.Equal(t, "Milk", updated.Name)
	assert.Equal(t, "2024-01-05", updated.EntryDate.String())
	assert.Equal(t, "2024-03-01", updated.ExpiryDate.String())
	assert.Equal(t, "2024-02-15", updated.WithdrawalDate.String())
	assert.Equal(t, 2.25, *updated.Weight)
	assert.Equal(t, int64(4), *updated.Quantity)
	assert.Equal(t, "B2", *updated.Batch)

	records, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, updated, records[0])
}

func TestSaveParsesNumericFields(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	req := validSaveRequest()
	req.Quantity = "12.0"

	rec, err := svc.Save(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1.5, *rec.Weight)
	assert.Equal(t, int64(12), *rec.Quantity)
}

func TestSaveRejectsFractionalQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	req := validSaveRequest()
	req.Quantity = "2.5"

	_, err := svc.Save(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidBody)
	assert.Zero(t, repo.creates)
}

func TestUpdateRequiresBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Update(context.Background(), UpdateRequest{Batch: ptr("B2")})
	require.ErrorIs(t, err, ErrCodeRequired)
}

func TestListReturnsEmptySlice(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	records, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestExpiringUsesWindow(t *testing.T) {
	repo := newMemoryRepo(
		Record{Code: "expired", ExpiryDate: ptr(NewDate(2024, time.March, 1))},
		Record{Code: "soon", ExpiryDate: ptr(NewDate(2024, time.March, 12))},
		Record{Code: "later", ExpiryDate: ptr(NewDate(2024, time.April, 1))},
		Record{Code: "withdrawn", ExpiryDate: ptr(NewDate(2024, time.March, 2)), WithdrawalDate: ptr(NewDate(2024, time.March, 1))},
	)
	svc := NewService(repo, nil)

	records, err := svc.Expiring(context.Background(), NewDate(2024, time.March, 10), 3)
	require.NoError(t, err)
	codes := make([]string, 0, len(records))
	for _, rec := range records {
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []string{"expired", "soon"}, codes)
}
