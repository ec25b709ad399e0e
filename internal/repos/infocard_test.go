package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
)

func TestInfoCardUpdateLeavesFieldsMapUntouched(t *testing.T) {
	log := &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
	gdb := newTestDB(t)
	artifacts := NewArtifactRepo(gdb, log)
	cards := NewInfoCardRepo(gdb, log)
	ctx := context.Background()

	artifact := newArtifact(time.Now().UTC())
	if err := artifacts.Create(ctx, nil, artifact); err != nil {
		t.Fatalf("Create artifact: %v", err)
	}
	now := time.Now().UTC()
	card := &types.InfoCard{
		ID:         uuid.New(),
		ArtifactID: artifact.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Material:   "Clay",
		Disclaimer: "speculative",
	}
	if err := cards.Create(ctx, nil, card); err != nil {
		t.Fatalf("Create card: %v", err)
	}

	fields := map[string]interface{}{"material": "Terracotta"}
	if err := cards.Update(ctx, nil, card.ID, fields); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(fields) != 1 {
		t.Fatalf("caller map mutated: %+v", fields)
	}
	if _, ok := fields["updated_at"]; ok {
		t.Fatalf("updated_at leaked into caller map")
	}

	got, err := cards.GetByID(ctx, nil, card.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Material != "Terracotta" {
		t.Fatalf("material = %q", got.Material)
	}
	if !got.UpdatedAt.After(now) {
		t.Fatalf("updatedAt %v not refreshed past %v", got.UpdatedAt, now)
	}

	if err := cards.Update(ctx, nil, uuid.New(), map[string]interface{}{"material": "Bronze"}); !apierr.IsCode(err, apierr.CodeNotFound) {
		t.Fatalf("update of absent card error = %v, want %s", err, apierr.CodeNotFound)
	}
}
