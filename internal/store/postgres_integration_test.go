package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-study/internal/platform/database"
	"github.com/p-n-ai/pai-study/internal/store"
)

func TestPostgresBackend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("study"),
		postgres.WithUsername("study"),
		postgres.WithPassword("study"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	backend := store.NewPostgresBackend(database.Config{URL: url, MaxConns: 4, MinConns: 1})
	s := store.New(backend)
	defer s.Close()

	c := sampleCourse("Algebra")
	if err := s.Insert(ctx, c); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Insert(ctx, c); !errors.Is(err, store.ErrDuplicateKey) {
		t.Errorf("second Insert() error = %v, want ErrDuplicateKey", err)
	}
	if err := backend.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	c.Description = "jsonb round trip"
	if _, err := s.UpsertOrPatch(ctx, c); err != nil {
		t.Fatalf("UpsertOrPatch() error = %v", err)
	}

	got, found, err := s.FindByID(ctx, c.ID)
	if err != nil || !found {
		t.Fatalf("FindByID() = found %v, error %v", found, err)
	}
	if got.Description != "jsonb round trip" {
		t.Errorf("Description = %q", got.Description)
	}
	if got.QuestionSets[0].Questions[0].CorrectAnswer != "4" {
		t.Errorf("CorrectAnswer = %q, want 4", got.QuestionSets[0].Questions[0].CorrectAnswer)
	}

	_, found, err = s.FindByID(ctx, "missing")
	if err != nil || found {
		t.Errorf("FindByID(missing) = found %v, error %v", found, err)
	}
}
