package mysql

import (
	"context"
	"errors"
	"testing"

	disbursementDomain "loan-settlement-engine/internal/domain/disbursement"
	feeDomain "loan-settlement-engine/internal/domain/fee"
	walletDomain "loan-settlement-engine/internal/domain/wallet"
	"loan-settlement-engine/pkg/id"

	"gorm.io/gorm"
)

func TestFee_ActiveVersion(t *testing.T) {
	db := openTestDB(t)
	repo := NewFeeRepository(db)
	ctx := context.Background()

	if _, err := repo.GetActive(ctx); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("empty table: want ErrRecordNotFound, got %v", err)
	}

	v1 := &feeDomain.Configuration{Mode: feeDomain.ModePercentage, PercentageRate: 200, IsActive: true}
	if err := repo.Create(ctx, v1); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeactivateAll(ctx); err != nil {
		t.Fatal(err)
	}
	v2 := &feeDomain.Configuration{Mode: feeDomain.ModeFixed, FixedFeeAmount: 5_000, IsActive: true}
	if err := repo.Create(ctx, v2); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetActive(ctx)
	if err != nil || got.ID != v2.ID || got.Mode != feeDomain.ModeFixed {
		t.Fatalf("GetActive = %+v, %v", got, err)
	}
}

func TestWallet_Upsert(t *testing.T) {
	db := openTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	if err := repo.Upsert(ctx, &walletDomain.Wallet{Currency: "ETH", Address: "0x1", UpdatedBy: "admin-1"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Upsert(ctx, &walletDomain.Wallet{Currency: "ETH", Address: "0x2", UpdatedBy: "admin-2"}); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByCurrency(ctx, "ETH")
	if err != nil || got.Address != "0x2" || got.UpdatedBy != "admin-2" {
		t.Fatalf("GetByCurrency = %+v, %v", got, err)
	}
	if _, err := repo.GetByCurrency(ctx, "BTC"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unconfigured currency: got %v", err)
	}
}

func TestDisbursement_OnePerApplication(t *testing.T) {
	db := openTestDB(t)
	repo := NewDisbursementRepository(db)
	ctx := context.Background()
	appID := seedApplication(t, db, "LN-D1")

	mk := func() *disbursementDomain.Disbursement {
		return &disbursementDomain.Disbursement{
			DisbursementID:    id.NewID32(),
			ApplicationID:     appID,
			Amount:            1_000_000,
			Currency:          "USD",
			BankName:          "First Bank",
			BankAccountNumber: "000123456789",
			AccountHolderName: "Jane Roe",
			Status:            disbursementDomain.StatusPending,
			InitiatedBy:       "admin-1",
		}
	}
	d := mk()
	if err := repo.Create(ctx, d); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, mk()); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("second disbursement: want ErrDuplicatedKey, got %v", err)
	}

	ref := "wire-42"
	locked, err := repo.GetByDisbursementIDForUpdate(ctx, d.DisbursementID)
	if err != nil {
		t.Fatal(err)
	}
	locked.Status = disbursementDomain.StatusCompleted
	locked.ExternalRef = &ref
	if err := repo.Save(ctx, locked); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetByApplicationID(ctx, appID)
	if err != nil || got.Status != disbursementDomain.StatusCompleted || got.ExternalRef == nil || *got.ExternalRef != ref {
		t.Fatalf("GetByApplicationID = %+v, %v", got, err)
	}
	if _, err := repo.GetByDisbursementID(ctx, "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("missing: got %v", err)
	}
}
