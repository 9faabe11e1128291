package bunrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goliatone/go-blocks/pkg/domain"
	"github.com/goliatone/go-blocks/pkg/interfaces/store"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		t.Fatalf("sql open: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	models := []any{
		(*domain.BlockInstance)(nil),
	}
	for _, model := range models {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			t.Fatalf("create table: %v", err)
		}
	}
	return db
}

func TestBlockInstanceRepositoryBun(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewBlockInstanceRepository(db)
	ctx := context.Background()

	instance := &domain.BlockInstance{
		Name:    "news-feed",
		Type:    "rss",
		Enabled: true,
		Options: domain.JSONMap{"url": "http://example.com/feed"},
	}
	if err := repo.Create(ctx, instance); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByName(ctx, "News-Feed")
	if err != nil {
		t.Fatalf("get by name: %v", err)
	}
	if got.Type != "rss" || !got.Enabled {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Options["url"] != "http://example.com/feed" {
		t.Fatalf("expected options round trip, got %v", got.Options)
	}

	if err := repo.Create(ctx, &domain.BlockInstance{Name: "news-feed", Type: "text"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	list, err := repo.List(ctx, store.ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("expected total 1, got %d", list.Total)
	}
}

func TestBlockInstanceRepositoryBunUpdateAndDelete(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewBlockInstanceRepository(db)
	ctx := context.Background()

	instance := &domain.BlockInstance{Name: "intro", Type: "text", Enabled: true}
	if err := repo.Create(ctx, instance); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &domain.BlockInstance{Name: "feed", Type: "rss", Enabled: true}); err != nil {
		t.Fatalf("create feed: %v", err)
	}

	instance.Enabled = false
	if err := repo.Update(ctx, instance); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetByID(ctx, instance.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Enabled {
		t.Fatalf("expected disabled after update")
	}

	texts, err := repo.ListByType(ctx, "text", store.ListOptions{})
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if texts.Total != 1 || texts.Items[0].Name != "intro" {
		t.Fatalf("unexpected listing %+v", texts.Items)
	}
	if upper, _ := repo.ListByType(ctx, "TEXT", store.ListOptions{}); upper.Total != 0 {
		t.Fatalf("expected type filter to be case sensitive, got %d", upper.Total)
	}

	if err := repo.SoftDelete(ctx, instance.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, instance.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
