package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/garage-erp/internal/entity"
	"github.com/bitfantasy/garage-erp/internal/notify"
	"github.com/bitfantasy/garage-erp/internal/repository"
	"github.com/bitfantasy/garage-erp/internal/testutil"
	"gorm.io/gorm"
)

func setupStockTest(t *testing.T) (*StockService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewStockService(repos.Inventory, db, nil, notify.NoopNotifier{}), db
}

func TestAdjustRecordsMovementWithSnapshot(t *testing.T) {
	svc, db := setupStockTest(t)
	item := testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-001", 0)

	in, err := svc.Adjust(item.ID, testutil.TestCompanyID, "u1", AdjustRequest{
		Quantity:     10,
		MovementType: entity.MovementTypePurchase,
		UnitCost:     8,
	})
	if err != nil {
		t.Fatalf("purchase adjust: %v", err)
	}

	day := time.Now().Format("20060102")
	if in.MovementNumber != fmt.Sprintf("MOV-%s-0001", day) {
		t.Errorf("unexpected movement number %s", in.MovementNumber)
	}
	if in.QuantityAfterMovement != 10 {
		t.Errorf("expected snapshot 10, got %v", in.QuantityAfterMovement)
	}
	if in.TotalCost != 80 {
		t.Errorf("expected total cost 80, got %v", in.TotalCost)
	}

	// 数量恒为正，方向由类型决定
	out, err := svc.Adjust(item.ID, testutil.TestCompanyID, "u1", AdjustRequest{
		Quantity:     -3,
		MovementType: entity.MovementTypeSale,
	})
	if err != nil {
		t.Fatalf("sale adjust: %v", err)
	}
	if out.Quantity != 3 {
		t.Errorf("movement quantity should be absolute, got %v", out.Quantity)
	}
	if out.QuantityAfterMovement != 7 {
		t.Errorf("expected snapshot 7, got %v", out.QuantityAfterMovement)
	}

	reloaded, _ := svc.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 7 {
		t.Errorf("expected on-hand 7, got %v", reloaded.QuantityOnHand)
	}
}

func TestAdjustRejectsNegativeStock(t *testing.T) {
	svc, db := setupStockTest(t)
	item := testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-002", 5)

	_, err := svc.Adjust(item.ID, testutil.TestCompanyID, "u1", AdjustRequest{
		Quantity:     6,
		MovementType: entity.MovementTypeSale,
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// 拒绝后台账无变化
	reloaded, _ := svc.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 5 {
		t.Errorf("on-hand changed after rejected adjust: %v", reloaded.QuantityOnHand)
	}
	movements, _ := svc.MovementsForReplay(testutil.TestCompanyID, item.ID)
	if len(movements) != 0 {
		t.Errorf("expected no movements, got %d", len(movements))
	}

	// 零数量直接拒绝
	if _, err := svc.Adjust(item.ID, testutil.TestCompanyID, "u1", AdjustRequest{
		Quantity:     0,
		MovementType: entity.MovementTypeAdjustment,
	}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected zero quantity to be rejected, got %v", err)
	}
}

func TestLedgerReplayMatchesOnHand(t *testing.T) {
	svc, db := setupStockTest(t)
	item := testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-003", 0)

	steps := []AdjustRequest{
		{Quantity: 20, MovementType: entity.MovementTypePurchase, UnitCost: 5},
		{Quantity: 4, MovementType: entity.MovementTypeSale},
		{Quantity: 1, MovementType: entity.MovementTypeReturn},
		{Quantity: -2, MovementType: entity.MovementTypeAdjustment},
		{Quantity: 3, MovementType: entity.MovementTypeDamaged},
	}
	for i, req := range steps {
		if _, err := svc.Adjust(item.ID, testutil.TestCompanyID, "u1", req); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	// 正序重放流水必须得到当前在库，且每行快照与累计一致
	movements, err := svc.MovementsForReplay(testutil.TestCompanyID, item.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(movements) != len(steps) {
		t.Fatalf("expected %d movements, got %d", len(steps), len(movements))
	}

	var running float64
	for _, m := range movements {
		running += entity.MovementEffect(m.MovementType, m.Quantity)
		if m.QuantityAfterMovement != running {
			t.Errorf("movement %s snapshot %v != replayed %v", m.MovementNumber, m.QuantityAfterMovement, running)
		}
	}

	reloaded, _ := svc.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != running {
		t.Errorf("on-hand %v != replayed %v", reloaded.QuantityOnHand, running)
	}
	if running != 12 {
		t.Errorf("expected final 12, got %v", running)
	}
}

func TestRestockUpdatesCostPrice(t *testing.T) {
	svc, db := setupStockTest(t)
	item := testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-004", 1)

	movement, err := svc.Restock(item.ID, testutil.TestCompanyID, "u1", RestockRequest{
		Quantity: 9,
		UnitCost: 12.5,
	})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if movement.MovementType != entity.MovementTypePurchase {
		t.Errorf("expected PURCHASE movement, got %s", movement.MovementType)
	}

	reloaded, _ := svc.GetItem(item.ID, testutil.TestCompanyID)
	if reloaded.QuantityOnHand != 10 {
		t.Errorf("expected on-hand 10, got %v", reloaded.QuantityOnHand)
	}
	if reloaded.CostPrice != 12.5 {
		t.Errorf("expected cost price 12.5, got %v", reloaded.CostPrice)
	}
	if reloaded.LastRestockAt == nil {
		t.Error("expected last restock timestamp")
	}
}

func TestLowStockUsesReorderPoint(t *testing.T) {
	svc, db := setupStockTest(t)
	low := testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-LOW", 1)
	testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-OK", 50)

	items, err := svc.LowStock(testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(items) != 1 || items[0].ID != low.ID {
		t.Errorf("expected exactly the low item, got %d items", len(items))
	}
}

func TestStatsWithoutCache(t *testing.T) {
	svc, db := setupStockTest(t)
	testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-A", 4)
	testutil.SeedInventoryItem(t, db, testutil.TestCompanyID, "SKU-B", 0)

	stats, err := svc.Stats(context.Background(), testutil.TestCompanyID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalItems != 2 {
		t.Errorf("expected 2 items, got %d", stats.TotalItems)
	}
	if stats.TotalValue != 40 {
		t.Errorf("expected total value 40, got %v", stats.TotalValue)
	}
}
