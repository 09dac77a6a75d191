package alerting

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"commodity-price-intel/internal/storage"
)

func TestManagerCreate(t *testing.T) {
	store := &fakeAlertStore{}
	m := NewManager(store, zerolog.Nop())

	created, err := m.Create(context.Background(), "user-1", 1, 3000, storage.DirectionDecrease)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("应分配告警 id")
	}
	if !created.Enabled {
		t.Fatal("新建告警应默认启用")
	}

	// multiple simultaneous thresholds on the same commodity are allowed
	if _, err := m.Create(context.Background(), "user-1", 1, 2500, storage.DirectionDecrease); err != nil {
		t.Fatalf("同一商品的多个阈值应允许共存: %v", err)
	}

	alerts, err := m.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("应列出 2 条订阅, 实际 %d", len(alerts))
	}
}

func TestManagerCreateValidation(t *testing.T) {
	m := NewManager(&fakeAlertStore{}, zerolog.Nop())

	if _, err := m.Create(context.Background(), "", 1, 3000, storage.DirectionDecrease); err == nil {
		t.Fatal("缺少 subscriber 应报错")
	}
	if _, err := m.Create(context.Background(), "user-1", 1, 0, storage.DirectionDecrease); err == nil {
		t.Fatal("非正阈值应报错")
	}
	if _, err := m.Create(context.Background(), "user-1", 1, 3000, "sideways"); err == nil {
		t.Fatal("未知方向应报错")
	}
}

func TestManagerDelete(t *testing.T) {
	store := &fakeAlertStore{}
	m := NewManager(store, zerolog.Nop())

	created, err := m.Create(context.Background(), "user-1", 1, 3000, storage.DirectionDecrease)
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	if err := m.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if err := m.Delete(context.Background(), created.ID); err != storage.ErrNotFound {
		t.Fatalf("重复删除应返回 ErrNotFound, 实际 %v", err)
	}
}

func TestManagerDeleteForCommodity(t *testing.T) {
	store := &fakeAlertStore{}
	m := NewManager(store, zerolog.Nop())

	_, _ = m.Create(context.Background(), "user-1", 1, 3000, storage.DirectionDecrease)
	_, _ = m.Create(context.Background(), "user-1", 1, 2500, storage.DirectionIncrease)
	_, _ = m.Create(context.Background(), "user-1", 2, 9000, storage.DirectionDecrease)

	if err := m.DeleteForCommodity(context.Background(), "user-1", 1); err != nil {
		t.Fatalf("DeleteForCommodity 应成功: %v", err)
	}

	alerts, _ := m.List(context.Background(), "user-1")
	if len(alerts) != 1 || alerts[0].CommodityID != 2 {
		t.Fatalf("应只保留其他商品的订阅: %#v", alerts)
	}
}
