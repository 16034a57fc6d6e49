package reservation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:reservation_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedItem(t *testing.T, db *gorm.DB, name string, qty, reserved int) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		ID:          uuid.New(),
		TrackID:     uuid.New(),
		Name:        name,
		Unit:        "units",
		Qty:         qty,
		ReservedQty: reserved,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func reloadItem(t *testing.T, db *gorm.DB, id uuid.UUID) models.InventoryItem {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return item
}

func TestReserveEarmarksStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	brakePads := seedItem(t, db, "Brake Pads", 10, 0)
	tires := seedItem(t, db, "Tires", 8, 3)

	var snapshot []models.ReservedLine
	err := db.Transaction(func(tx *gorm.DB) error {
		var terr error
		snapshot, terr = Reserve(ctx, tx, []models.ReservedLine{
			{ItemID: brakePads.ID, Qty: 4},
			{ItemID: tires.ID, Qty: 5},
		})
		return terr
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if len(snapshot) != 2 {
		t.Fatalf("expected 2 snapshot lines, got %d", len(snapshot))
	}
	if snapshot[0].Name != "Brake Pads" || snapshot[0].Unit != "units" {
		t.Fatalf("snapshot not authoritative: %+v", snapshot[0])
	}

	pads := reloadItem(t, db, brakePads.ID)
	if pads.Qty != 10 || pads.ReservedQty != 4 {
		t.Fatalf("unexpected pads state: qty=%d reserved=%d", pads.Qty, pads.ReservedQty)
	}
	tyres := reloadItem(t, db, tires.ID)
	if tyres.Qty != 8 || tyres.ReservedQty != 8 {
		t.Fatalf("unexpected tires state: qty=%d reserved=%d", tyres.Qty, tyres.ReservedQty)
	}
}

func TestReserveInsufficientStockIsAllOrNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	plenty := seedItem(t, db, "Fuel Cans", 20, 0)
	scarce := seedItem(t, db, "Brake Pads", 10, 8)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, []models.ReservedLine{
			{ItemID: plenty.ID, Qty: 6},
			{ItemID: scarce.ID, Qty: 5},
		})
		return terr
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "Brake Pads: need 5 units, only 2 available" {
		t.Fatalf("unexpected message: %q", typed.Message())
	}

	// rollback must leave both items untouched
	if got := reloadItem(t, db, plenty.ID); got.ReservedQty != 0 {
		t.Fatalf("expected rollback, fuel cans reserved=%d", got.ReservedQty)
	}
	if got := reloadItem(t, db, scarce.ID); got.ReservedQty != 8 {
		t.Fatalf("expected rollback, brake pads reserved=%d", got.ReservedQty)
	}
}

func TestReserveAggregatesDuplicateLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, "Helmets", 5, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, []models.ReservedLine{
			{ItemID: item.ID, Qty: 3},
			{ItemID: item.ID, Qty: 3},
		})
		return terr
	})
	if err == nil {
		t.Fatal("expected duplicate lines to exceed availability")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "Helmets: need 3 units, only 2 available" {
		t.Fatalf("unexpected message: %q", typed.Message())
	}
}

func TestReserveSequentialExclusivity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, "Tires", 6, 0)

	reserve := func(qty int) error {
		return db.Transaction(func(tx *gorm.DB) error {
			_, terr := Reserve(ctx, tx, []models.ReservedLine{{ItemID: item.ID, Qty: qty}})
			return terr
		})
	}

	if err := reserve(4); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	err := reserve(4)
	if err == nil {
		t.Fatal("expected second reserve to fail")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	got := reloadItem(t, db, item.ID)
	if got.ReservedQty != 4 {
		t.Fatalf("expected reserved=4, got %d", got.ReservedQty)
	}
}

func TestReserveValidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, "Gloves", 5, 0)

	cases := []struct {
		name  string
		lines []models.ReservedLine
	}{
		{name: "empty", lines: nil},
		{name: "zero qty", lines: []models.ReservedLine{{ItemID: item.ID, Qty: 0}}},
		{name: "negative qty", lines: []models.ReservedLine{{ItemID: item.ID, Qty: -1}}},
		{name: "missing item id", lines: []models.ReservedLine{{Qty: 1}}},
	}
	for _, tc := range cases {
		_, err := Reserve(ctx, db, tc.lines)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestReserveUnknownItem(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		_, terr := Reserve(ctx, tx, []models.ReservedLine{{ItemID: uuid.New(), Qty: 1}})
		return terr
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReleaseReturnsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, "Tires", 8, 5)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, []models.ReservedLine{{ItemID: item.ID, Qty: 5}})
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}

	got := reloadItem(t, db, item.ID)
	if got.Qty != 8 || got.ReservedQty != 0 {
		t.Fatalf("unexpected state: qty=%d reserved=%d", got.Qty, got.ReservedQty)
	}
}

func TestReleaseUnderflowIsInternalFault(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, "Tires", 8, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Release(ctx, tx, []models.ReservedLine{{ItemID: item.ID, Qty: 5}})
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStockUnderflow {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := reloadItem(t, db, item.ID); got.ReservedQty != 2 {
		t.Fatalf("expected rollback, reserved=%d", got.ReservedQty)
	}
}

func TestCommitDecrementsBothAndWritesMovements(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, "Brake Pads", 10, 4)
	actor := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return Commit(ctx, tx, []models.ReservedLine{{ItemID: item.ID, Name: "Brake Pads", Unit: "units", Qty: 4}}, actor)
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	got := reloadItem(t, db, item.ID)
	if got.Qty != 6 || got.ReservedQty != 0 {
		t.Fatalf("unexpected state: qty=%d reserved=%d", got.Qty, got.ReservedQty)
	}

	var movements []models.StockMovement
	if err := db.Where("item_id = ?", item.ID).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	m := movements[0]
	if m.Type != enums.MovementTypeIssue || m.Qty != 4 || m.ActorID != actor {
		t.Fatalf("unexpected movement: %+v", m)
	}
}

func TestCommitUnderflowIsInternalFault(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	item := seedItem(t, db, "Brake Pads", 3, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return Commit(ctx, tx, []models.ReservedLine{{ItemID: item.ID, Qty: 2}}, uuid.New())
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStockUnderflow {
		t.Fatalf("unexpected error: %v", err)
	}

	got := reloadItem(t, db, item.ID)
	if got.Qty != 3 || got.ReservedQty != 1 {
		t.Fatalf("expected rollback, qty=%d reserved=%d", got.Qty, got.ReservedQty)
	}
}
