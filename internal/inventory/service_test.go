package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
	pkgerrors "github.com/koekemoer93/kart-force-sub000/pkg/errors"
	"github.com/koekemoer93/kart-force-sub000/pkg/outbox"
	"github.com/koekemoer93/kart-force-sub000/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.InventoryItem{}, &models.StockMovement{}, &models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	gdb := newTestDB(t)
	events := outbox.NewService(outbox.NewRepository(gdb), nil)
	svc, err := NewService(NewRepository(gdb), gormTxRunner{db: gdb}, events, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, gdb
}

func TestCreateItemWithInitialStock(t *testing.T) {
	t.Parallel()

	svc, gdb := newTestService(t)
	ctx := context.Background()
	trackID, actorID := uuid.New(), uuid.New()

	dto, err := svc.CreateItem(ctx, trackID, actorID, CreateItemInput{
		Name:     "  Brake Pads  ",
		Qty:      10,
		MinQty:   2,
		UnitCost: decimal.RequireFromString("14.50"),
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if dto.Name != "Brake Pads" {
		t.Fatalf("expected trimmed name, got %q", dto.Name)
	}
	if dto.Unit != "units" {
		t.Fatalf("expected default unit, got %q", dto.Unit)
	}
	if dto.Qty != 10 || dto.AvailableQty != 10 {
		t.Fatalf("unexpected quantities: %+v", dto)
	}
	if !dto.StockValue.Equal(decimal.RequireFromString("145.00")) {
		t.Fatalf("unexpected stock value %s", dto.StockValue)
	}

	var movements []models.StockMovement
	if err := gdb.Where("item_id = ?", dto.ID).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(movements))
	}
	if movements[0].Type != enums.MovementTypeReceive || movements[0].Reason != "initial stock" {
		t.Fatalf("unexpected movement: %+v", movements[0])
	}

	var eventCount int64
	if err := gdb.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventItemCreated).Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected 1 outbox event, got %d", eventCount)
	}
}

func TestCreateItemZeroQtyHasNoMovement(t *testing.T) {
	t.Parallel()

	svc, gdb := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateItem(ctx, uuid.New(), uuid.New(), CreateItemInput{Name: "Fuel Cans"})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	var count int64
	if err := gdb.Model(&models.StockMovement{}).Where("item_id = ?", dto.ID).Count(&count).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no movements, got %d", count)
	}
}

func TestCreateItemValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	trackID, actorID := uuid.New(), uuid.New()

	cases := []struct {
		name  string
		input CreateItemInput
	}{
		{name: "empty name", input: CreateItemInput{Name: "   "}},
		{name: "negative qty", input: CreateItemInput{Name: "Tires", Qty: -1}},
		{name: "negative min", input: CreateItemInput{Name: "Tires", MinQty: -1}},
		{name: "max below min", input: CreateItemInput{Name: "Tires", MinQty: 5, MaxQty: 2}},
		{name: "negative cost", input: CreateItemInput{Name: "Tires", UnitCost: decimal.RequireFromString("-1")}},
	}
	for _, tc := range cases {
		_, err := svc.CreateItem(ctx, trackID, actorID, tc.input)
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestReceiveStock(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	trackID, actorID := uuid.New(), uuid.New()

	item, err := svc.CreateItem(ctx, trackID, actorID, CreateItemInput{Name: "Tires", Qty: 3})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	dto, err := svc.ReceiveStock(ctx, actorID, item.ID, StockChangeInput{Qty: 7, Reason: "weekly delivery"})
	if err != nil {
		t.Fatalf("receive stock: %v", err)
	}
	if dto.Qty != 10 {
		t.Fatalf("expected qty=10, got %d", dto.Qty)
	}

	movements, err := svc.ListMovements(ctx, trackID, item.ID, pagination.Params{})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements.Movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements.Movements))
	}
}

func TestReceiveStockUnknownItem(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.ReceiveStock(context.Background(), uuid.New(), uuid.New(), StockChangeInput{Qty: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIssueStockRejectsInsufficient(t *testing.T) {
	t.Parallel()

	svc, gdb := newTestService(t)
	ctx := context.Background()
	trackID, actorID := uuid.New(), uuid.New()

	item, err := svc.CreateItem(ctx, trackID, actorID, CreateItemInput{Name: "Brake Pads", Qty: 5})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if err := gdb.Model(&models.InventoryItem{}).Where("id = ?", item.ID).
		Update("reserved_qty", 4).Error; err != nil {
		t.Fatalf("set reserved: %v", err)
	}

	_, err = svc.IssueStock(ctx, actorID, item.ID, StockChangeInput{Qty: 2})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	if typed.Message() != "Brake Pads: need 2 units, only 1 available" {
		t.Fatalf("unexpected message: %q", typed.Message())
	}

	// the failed issue must leave qty untouched
	got, err := svc.GetItem(ctx, trackID, item.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got.Qty != 5 {
		t.Fatalf("expected qty=5, got %d", got.Qty)
	}
}

func TestIssueStockSuccess(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	trackID, actorID := uuid.New(), uuid.New()

	item, err := svc.CreateItem(ctx, trackID, actorID, CreateItemInput{Name: "Gloves", Qty: 6})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	dto, err := svc.IssueStock(ctx, actorID, item.ID, StockChangeInput{Qty: 4, Reason: "race day"})
	if err != nil {
		t.Fatalf("issue stock: %v", err)
	}
	if dto.Qty != 2 || dto.AvailableQty != 2 {
		t.Fatalf("unexpected state: %+v", dto)
	}

	movements, err := svc.ListMovements(ctx, trackID, item.ID, pagination.Params{})
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	found := false
	for _, m := range movements.Movements {
		if m.Type == string(enums.MovementTypeIssue) && m.Qty == 4 && m.Reason == "race day" {
			found = true
		}
	}
	if !found {
		t.Fatal("issue movement not recorded")
	}
}

func TestListItemsPagination(t *testing.T) {
	t.Parallel()

	svc, gdb := newTestService(t)
	ctx := context.Background()
	trackID := uuid.New()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		item := models.InventoryItem{
			ID:        uuid.New(),
			TrackID:   trackID,
			Name:      "Item " + uuid.NewString()[:8],
			Unit:      "units",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := gdb.Create(&item).Error; err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}

	first, err := svc.ListItems(ctx, ListItemsInput{
		TrackID:    trackID,
		Pagination: pagination.Params{Limit: 3},
	})
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(first.Items) != 3 || first.NextCursor == "" {
		t.Fatalf("expected full first page with cursor, got %d items", len(first.Items))
	}

	second, err := svc.ListItems(ctx, ListItemsInput{
		TrackID:    trackID,
		Pagination: pagination.Params{Limit: 3, Cursor: first.NextCursor},
	})
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Items) != 2 || second.NextCursor != "" {
		t.Fatalf("expected final page of 2, got %d (cursor %q)", len(second.Items), second.NextCursor)
	}

	seen := map[uuid.UUID]bool{}
	for _, dto := range append(first.Items, second.Items...) {
		if seen[dto.ID] {
			t.Fatalf("duplicate item %s across pages", dto.ID)
		}
		seen[dto.ID] = true
	}
}

func TestItemReadsScopedToTrack(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	trackID, actorID := uuid.New(), uuid.New()

	item, err := svc.CreateItem(ctx, trackID, actorID, CreateItemInput{Name: "Visors", Qty: 2})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	_, err = svc.GetItem(ctx, uuid.New(), item.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign track, got %v", err)
	}

	_, err = svc.ListMovements(ctx, uuid.New(), item.ID, pagination.Params{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign track, got %v", err)
	}
}
