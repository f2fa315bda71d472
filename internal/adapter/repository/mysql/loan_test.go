package mysql

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "loan-settlement-engine/internal/domain/loan"
	"loan-settlement-engine/pkg/id"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB creates an isolated in-memory sqlite DB with the full schema.
// One connection: every statement sees the same database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", id.NewID32())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeApplication(tn, email, ssn string) *domain.Application {
	return &domain.Application{
		TrackingNumber:  tn,
		UserID:          "user-1",
		ApplicantName:   "Jane Roe",
		Email:           email,
		SSN:             ssn,
		RequestedAmount: 1_000_000,
		Currency:        "USD",
		Status:          domain.StatusPending,
		StatusUpdatedAt: time.Now().UTC(),
	}
}

func TestCreateAndGetByTrackingNumber(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	a := makeApplication("LN-1", "jane@example.com", "123456789")
	if err := repo.Create(ctx, a); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.ID == 0 {
		t.Fatalf("Create did not set auto-increment ID")
	}

	got, err := repo.GetByTrackingNumber(ctx, "LN-1")
	if err != nil {
		t.Fatalf("GetByTrackingNumber: %v", err)
	}
	if got.Email != "jane@example.com" || got.Status != domain.StatusPending {
		t.Errorf("unexpected application: %+v", got)
	}

	locked, err := repo.GetByTrackingNumberForUpdate(ctx, "LN-1")
	if err != nil || locked.ID != a.ID {
		t.Fatalf("GetByTrackingNumberForUpdate: %v %+v", err, locked)
	}

	byID, err := repo.GetByID(ctx, a.ID)
	if err != nil || byID.TrackingNumber != "LN-1" {
		t.Fatalf("GetByID: %v %+v", err, byID)
	}
}

func TestCreate_DuplicateTrackingNumber(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, makeApplication("LN-DUP", "a@example.com", "1")); err != nil {
		t.Fatal(err)
	}
	err := repo.Create(ctx, makeApplication("LN-DUP", "b@example.com", "2"))
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected ErrDuplicatedKey, got %v", err)
	}

	exists, err := repo.TrackingNumberExists(ctx, "LN-DUP")
	if err != nil || !exists {
		t.Fatalf("TrackingNumberExists = %v, %v", exists, err)
	}
	exists, _ = repo.TrackingNumberExists(ctx, "LN-NOPE")
	if exists {
		t.Fatalf("unexpected tracking number reported as existing")
	}
}

func TestGetByTrackingNumber_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)

	_, err := repo.GetByTrackingNumber(context.Background(), "LN-MISSING")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestFindByIdentity(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	for _, a := range []*domain.Application{
		makeApplication("LN-A", "jane@example.com", "123456789"),
		makeApplication("LN-B", "jane@example.com", "123456789"),
		makeApplication("LN-C", "jane@example.com", "999999999"),
		makeApplication("LN-D", "john@example.com", "123456789"),
	} {
		if err := repo.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.FindByIdentity(ctx, "jane@example.com", "123456789")
	if err != nil {
		t.Fatalf("FindByIdentity: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 matches, got %d", len(got))
	}
	for _, a := range got {
		if a.TrackingNumber != "LN-A" && a.TrackingNumber != "LN-B" {
			t.Fatalf("unexpected match %s", a.TrackingNumber)
		}
	}
}

func TestTransition_CompareAndSet(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	a := makeApplication("LN-CAS", "cas@example.com", "1")
	if err := repo.Create(ctx, a); err != nil {
		t.Fatal(err)
	}

	// two readers see pending
	first, _ := repo.GetByTrackingNumber(ctx, "LN-CAS")
	second, _ := repo.GetByTrackingNumber(ctx, "LN-CAS")

	amt, fee := int64(1_000_000), int64(20_000)
	now := time.Now().UTC()
	first.Status = domain.StatusApproved
	first.ApprovedAmount = &amt
	first.ProcessingFeeAmount = &fee
	first.ApprovedAt = &now
	first.StatusUpdatedAt = now
	if err := repo.Transition(ctx, first, domain.StatusPending); err != nil {
		t.Fatalf("first Transition: %v", err)
	}

	reason := "late"
	second.Status = domain.StatusRejected
	second.RejectionReason = &reason
	err := repo.Transition(ctx, second, domain.StatusPending)
	if !errors.Is(err, domain.ErrStaleStatus) {
		t.Fatalf("second Transition: want ErrStaleStatus, got %v", err)
	}

	got, _ := repo.GetByTrackingNumber(ctx, "LN-CAS")
	if got.Status != domain.StatusApproved || got.FeeAmount() != fee || got.RejectionReason != nil {
		t.Fatalf("unexpected stored application: %+v", got)
	}
}

func TestListAwaitingFee_AndClaimReminder(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	old := now.Add(-72 * time.Hour)
	recent := now.Add(-time.Hour)
	seed := []struct {
		tn         string
		status     domain.Status
		approvedAt *time.Time
	}{
		{"LN-OLD", domain.StatusApproved, &old},
		{"LN-RECENT", domain.StatusApproved, &recent},
		{"LN-PAID", domain.StatusFeePaid, &old},
		{"LN-PENDING", domain.StatusPending, nil},
	}
	for _, s := range seed {
		a := makeApplication(s.tn, s.tn+"@example.com", "1")
		a.Status = s.status
		a.ApprovedAt = s.approvedAt
		if err := repo.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	due, err := repo.ListAwaitingFee(ctx, now.Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListAwaitingFee: %v", err)
	}
	if len(due) != 1 || due[0].TrackingNumber != "LN-OLD" {
		t.Fatalf("unexpected due list: %+v", due)
	}

	ok, err := repo.ClaimFeeReminder(ctx, due[0].ID, now)
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	ok, err = repo.ClaimFeeReminder(ctx, due[0].ID, now)
	if err != nil || ok {
		t.Fatalf("second claim = %v, %v; want false", ok, err)
	}

	due, _ = repo.ListAwaitingFee(ctx, now.Add(-24*time.Hour), 10)
	if len(due) != 0 {
		t.Fatalf("reminded application still listed: %+v", due)
	}
}

func TestActiveIdentity_OneLiveApplicationPerIdentity(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	first := makeApplication("LN-ID1", "jane@example.com", "123456789")
	first.HoldIdentity()
	if err := repo.Create(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := makeApplication("LN-ID2", "jane@example.com", "123456789")
	second.HoldIdentity()
	if err := repo.Create(ctx, second); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("second live application: want ErrDuplicatedKey, got %v", err)
	}

	// a terminal status releases the identity
	reason := "incomplete"
	first.RejectionReason = &reason
	first.MoveTo(domain.StatusRejected, time.Now().UTC())
	if err := repo.Transition(ctx, first, domain.StatusPending); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("resubmission after rejection: %v", err)
	}
}
