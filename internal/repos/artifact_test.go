package repos

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repos_test.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.AutoMigrate(
		&types.Artifact{},
		&types.ArtifactImage{},
		&types.Model3D{},
		&types.InfoCard{},
		&types.ColorVariant{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func newTestRepo(t *testing.T) ArtifactRepo {
	t.Helper()
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	return NewArtifactRepo(newTestDB(t), log)
}

func newArtifact(createdAt time.Time) *types.Artifact {
	return &types.Artifact{
		ID:        uuid.New(),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Status:    types.StatusDraft,
	}
}

func TestArtifactCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	artifact := newArtifact(time.Now().UTC())
	if err := repo.Create(ctx, nil, artifact); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, nil, artifact.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatalf("created artifact not found")
	}
	if got.Status != types.StatusDraft {
		t.Fatalf("status = %q", got.Status)
	}

	got, err = repo.GetByID(ctx, nil, uuid.New())
	if err != nil {
		t.Fatalf("GetByID on absent id: %v", err)
	}
	if got != nil {
		t.Fatalf("absent id returned %+v", got)
	}
}

func TestArtifactGetByIDForUpdate(t *testing.T) {
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	gdb := newTestDB(t)
	repo := NewArtifactRepo(gdb, log)
	ctx := context.Background()

	artifact := newArtifact(time.Now().UTC())
	if err := repo.Create(ctx, nil, artifact); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// The sqlite dialect must skip the FOR UPDATE clause, so the locked read
	// behaves exactly like GetByID inside a transaction.
	err := gdb.Transaction(func(tx *gorm.DB) error {
		got, err := repo.GetByIDForUpdate(ctx, tx, artifact.ID)
		if err != nil {
			return err
		}
		if got == nil || got.ID != artifact.ID {
			t.Fatalf("locked read returned %+v", got)
		}
		absent, err := repo.GetByIDForUpdate(ctx, tx, uuid.New())
		if err != nil {
			return err
		}
		if absent != nil {
			t.Fatalf("locked read of absent id returned %+v", absent)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestArtifactUpdateLeavesFieldsMapUntouched(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	artifact := newArtifact(time.Now().UTC())
	if err := repo.Create(ctx, nil, artifact); err != nil {
		t.Fatalf("Create: %v", err)
	}

	fields := map[string]interface{}{"status": types.StatusComplete}
	if err := repo.Update(ctx, nil, artifact.ID, fields); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("caller map mutated: %+v", fields)
	}
	if _, ok := fields["updated_at"]; ok {
		t.Fatalf("updated_at leaked into caller map")
	}
}

func TestArtifactCreateDuplicate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	artifact := newArtifact(time.Now().UTC())
	if err := repo.Create(ctx, nil, artifact); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := newArtifact(time.Now().UTC())
	dup.ID = artifact.ID
	if err := repo.Create(ctx, nil, dup); !apierr.IsCode(err, apierr.CodeDuplicateKey) {
		t.Fatalf("duplicate create error = %v, want %s", err, apierr.CodeDuplicateKey)
	}
}

func TestArtifactGetAllOrdersNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		artifact := newArtifact(base.Add(time.Duration(i) * time.Minute))
		if err := repo.Create(ctx, nil, artifact); err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, artifact.ID)
	}

	all, err := repo.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("GetAll returned %d rows, want 3", len(all))
	}
	for i := range all {
		want := ids[len(ids)-1-i]
		if all[i].ID != want {
			t.Fatalf("position %d = %s, want %s", i, all[i].ID, want)
		}
	}
}

func TestArtifactUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := time.Now().UTC().Add(-time.Minute)
	artifact := newArtifact(created)
	if err := repo.Create(ctx, nil, artifact); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Update(ctx, nil, artifact.ID, map[string]interface{}{"status": types.StatusComplete}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByID(ctx, nil, artifact.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.StatusComplete {
		t.Fatalf("status = %q, want complete", got.Status)
	}
	if !got.UpdatedAt.After(created) {
		t.Fatalf("updatedAt %v not refreshed past %v", got.UpdatedAt, created)
	}

	if err := repo.Update(ctx, nil, uuid.New(), map[string]interface{}{"status": types.StatusError}); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("update of absent id error = %v, want %s", err, apierr.CodeNotFound)
	}
}

func TestArtifactDeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	artifact := newArtifact(time.Now().UTC())
	if err := repo.Create(ctx, nil, artifact); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.DeleteByID(ctx, nil, artifact.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if err := repo.DeleteByID(ctx, nil, artifact.ID); err != nil {
		t.Fatalf("second DeleteByID: %v", err)
	}
	got, err := repo.GetByID(ctx, nil, artifact.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("artifact survived delete: %+v", got)
	}
}

func TestArtifactClear(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := repo.Create(ctx, nil, newArtifact(time.Now().UTC())); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if err := repo.Clear(ctx, nil); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	all, err := repo.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("Clear left %d rows", len(all))
	}
}
