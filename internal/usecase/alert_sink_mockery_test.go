package usecase

import (
	"context"
	"testing"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/player-risk-alerts/internal/domain/alert"
	alertmock "github.com/riskibarqy/player-risk-alerts/internal/mocks/domain/alert"
	"github.com/stretchr/testify/mock"
)

func TestAlertSink_Commit_WarehouseFailureUsingMockery(t *testing.T) {
	t.Parallel()

	repo := alertmock.NewRepository(t)
	warehouse := alertmock.NewWarehouse(t)
	sink := newTestSink(repo, warehouse)

	repo.
		On("CommitFixture", mock.Anything, "run-1", chainFixture.ID, mock.MatchedBy(func(items []alert.Alert) bool {
			return len(items) == 1 && items[0].PlayerID == "p-1" && items[0].Active
		})).
		Return(alert.CommitStats{Upserted: 1}, nil).
		Once()
	warehouse.
		On("Push", mock.Anything, mock.MatchedBy(func(rows []alert.WarehouseRow) bool { return len(rows) == 1 })).
		Return(0, crerr.New("sqlite busy")).
		Once()

	res, err := sink.Commit(t.Context(), CommitInput{RunID: "run-1", Shark: sharkOutput()})
	if !crerr.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if res.Upserted != 1 {
		t.Fatalf("expected transactional commit reported, got %+v", res)
	}
}

func TestAlertSink_Commit_RejectsMissingRunUsingMockery(t *testing.T) {
	t.Parallel()

	repo := alertmock.NewRepository(t)
	sink := newTestSink(repo, nil)

	_, err := sink.Commit(context.Background(), CommitInput{Shark: sharkOutput()})
	if !crerr.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	repo.AssertNotCalled(t, "CommitFixture", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAlertQueryService_AcknowledgeUsingMockery(t *testing.T) {
	t.Parallel()

	repo := alertmock.NewRepository(t)
	service := NewAlertQueryService(repo)

	repo.On("Acknowledge", mock.Anything, "alert-1").Return(true, nil).Once()
	repo.On("Acknowledge", mock.Anything, "alert-404").Return(false, nil).Once()

	if err := service.Acknowledge(t.Context(), "alert-1"); err != nil {
		t.Fatalf("acknowledge failed: %v", err)
	}
	if err := service.Acknowledge(t.Context(), "alert-404"); !crerr.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAlertQueryService_LatestForFixturesUsingMockery(t *testing.T) {
	t.Parallel()

	repo := alertmock.NewRepository(t)
	service := NewAlertQueryService(repo)

	repo.
		On("ListActiveByFixtures", mock.Anything, []string{"fx-1", "fx-2"}).
		Return([]alert.Alert{{ID: "a-1", FixtureID: "fx-1"}}, nil).
		Once()

	got, err := service.LatestForFixtures(t.Context(), []string{"fx-1", " fx-2 ", "fx-1", ""})
	if err != nil {
		t.Fatalf("latest for fixtures failed: %v", err)
	}
	if len(got) != 2 || len(got["fx-1"]) != 1 || len(got["fx-2"]) != 0 {
		t.Fatalf("unexpected grouping: %+v", got)
	}
}
