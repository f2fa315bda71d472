package fee

import (
	"context"
	"errors"
	"testing"

	"loan-settlement-engine/internal/adapter/repository/mysql"
	"loan-settlement-engine/internal/domain/apperr"
	"loan-settlement-engine/internal/domain/fee"
	"loan-settlement-engine/internal/testutil/testdb"

	"go.uber.org/zap/zaptest"
)

func newUsecase(t *testing.T) *Usecase {
	db := testdb.Open(t)
	return NewUsecase(mysql.NewFeeRepository(db), mysql.NewGormUoW(db), zaptest.NewLogger(t))
}

func TestUsecase_NoActiveConfiguration(t *testing.T) {
	uc := newUsecase(t)
	if _, err := uc.Get(context.Background()); !errors.Is(err, fee.ErrNoActiveConfiguration) {
		t.Fatalf("want ErrNoActiveConfiguration, got %v", err)
	}
}

func TestUsecase_ConfigureReplacesActive(t *testing.T) {
	uc := newUsecase(t)
	ctx := context.Background()

	if _, err := uc.Configure(ctx, ConfigureInput{Mode: "percentage", PercentageRate: 200}, "admin-1"); err != nil {
		t.Fatalf("Configure v1: %v", err)
	}
	v2, err := uc.Configure(ctx, ConfigureInput{Mode: "fixed", FixedFeeAmount: 7_500, PercentageRate: 300}, "admin-2")
	if err != nil {
		t.Fatalf("Configure v2: %v", err)
	}
	if v2.PercentageRate != 0 {
		t.Fatalf("fixed mode must clear the percentage rate, got %d", v2.PercentageRate)
	}

	active, err := uc.Active(ctx)
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if active.ID != v2.ID || active.Mode != fee.ModeFixed || active.CreatedBy != "admin-2" {
		t.Fatalf("unexpected active config: %+v", active)
	}
	got, err := Compute(1_000_000, active)
	if err != nil || got != 7_500 {
		t.Fatalf("Compute with active = %d, %v", got, err)
	}
}

func TestUsecase_ConfigureValidation(t *testing.T) {
	uc := newUsecase(t)
	tests := []struct {
		name  string
		in    ConfigureInput
		field string
	}{
		{"unknown mode", ConfigureInput{Mode: "tiered"}, "calculation_mode"},
		{"rate above 100 percent", ConfigureInput{Mode: "percentage", PercentageRate: 10_001}, "percentage_rate"},
		{"negative rate", ConfigureInput{Mode: "percentage", PercentageRate: -1}, "percentage_rate"},
		{"negative fixed", ConfigureInput{Mode: "fixed", FixedFeeAmount: -5}, "fixed_fee_amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Configure(context.Background(), tt.in, "admin")
			e, ok := apperr.As(err)
			if !ok || e.Kind != apperr.KindValidation || e.Field != tt.field {
				t.Fatalf("want validation error on %s, got %v", tt.field, err)
			}
		})
	}
}
