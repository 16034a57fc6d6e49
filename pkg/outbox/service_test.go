package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/koekemoer93/kart-force-sub000/pkg/db/models"
	"github.com/koekemoer93/kart-force-sub000/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:outbox_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.OutboxEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestEmitStoresEnvelope(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewService(NewRepository(gdb), nil)

	aggID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: "admin"}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventRequestApproved,
			AggregateType: enums.AggregateSupplyRequest,
			AggregateID:   aggID,
			Actor:         actor,
			Data:          map[string]any{"status": "approved"},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := NewRepository(gdb).FetchUnpublished(10, 0)
	if err != nil {
		t.Fatalf("fetch unpublished: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rows))
	}
	row := rows[0]
	if row.EventType != enums.EventRequestApproved {
		t.Fatalf("unexpected event type %s", row.EventType)
	}
	if row.AggregateID != aggID {
		t.Fatalf("unexpected aggregate id %s", row.AggregateID)
	}

	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Version != 1 {
		t.Fatalf("expected version 1, got %d", envelope.Version)
	}
	if envelope.EventID == "" {
		t.Fatal("expected event id")
	}
	if envelope.Actor == nil || envelope.Actor.UserID != actor.UserID {
		t.Fatal("actor not preserved")
	}
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(newTestDB(t)), nil)
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatal("expected error without transaction")
	}
}

func TestEmitIfNotExistsSkipsDuplicate(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewService(NewRepository(gdb), nil)

	event := DomainEvent{
		EventType:     enums.EventRequestDispatched,
		AggregateType: enums.AggregateSupplyRequest,
		AggregateID:   uuid.New(),
		Data:          map[string]any{"status": "dispatched"},
	}
	for i := 0; i < 2; i++ {
		err := gdb.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		})
		if err != nil {
			t.Fatalf("emit %d: %v", i, err)
		}
	}

	var count int64
	if err := gdb.Model(&models.OutboxEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}

func TestMarkPublishedAndFailed(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewRepository(gdb)
	svc := NewService(repo, nil)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventStockReceived,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   uuid.New(),
			Data:          map[string]any{"qty": 5},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	rows, err := repo.FetchUnpublished(10, 0)
	if err != nil || len(rows) != 1 {
		t.Fatalf("fetch: %v (%d rows)", err, len(rows))
	}
	id := rows[0].ID

	if err := repo.MarkFailed(id, errors.New("broker unavailable")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	var row models.OutboxEvent
	if err := gdb.First(&row, "id = ?", id).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if row.AttemptCount != 1 || row.LastError == nil {
		t.Fatalf("expected failure recorded, got attempts=%d", row.AttemptCount)
	}

	if err := repo.MarkPublished(id); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	rows, err = repo.FetchUnpublished(10, 0)
	if err != nil {
		t.Fatalf("fetch after publish: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no unpublished events, got %d", len(rows))
	}
}
