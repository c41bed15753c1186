package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"octopus/internal/trust/agents"
	"octopus/internal/trust/models"
	id "octopus/pkg/domain"
	"octopus/pkg/platform/sentinel"
)

type TrustStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *TrustStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestTrustStoreSuite(t *testing.T) {
	suite.Run(t, new(TrustStoreSuite))
}

func (s *TrustStoreSuite) newScore(pid id.ProviderID, score int, at time.Time) *models.TrustScore {
	return &models.TrustScore{
		ID:           id.NewTrustScoreID(),
		ProviderID:   pid,
		Score:        score,
		Decision:     models.DefaultThresholds().Decide(score),
		Verdicts:     []models.AgentVerdict{{Agent: models.AgentVerification, Score: score, Weight: 15}},
		CalculatedAt: at,
	}
}

func (s *TrustStoreSuite) TestAppendAndLatest() {
	pid := id.NewProviderID()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Run("unknown provider has no latest", func() {
		_, err := s.store.Latest(s.ctx, pid)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("latest is the most recent append", func() {
		s.Require().NoError(s.store.Append(s.ctx, s.newScore(pid, 55, base)))
		s.Require().NoError(s.store.Append(s.ctx, s.newScore(pid, 82, base.Add(time.Hour))))

		latest, err := s.store.Latest(s.ctx, pid)
		s.Require().NoError(err)
		s.Equal(82, latest.Score)
	})

	s.Run("records sharing a timestamp resolve to the last append", func() {
		at := base.Add(2 * time.Hour)
		s.Require().NoError(s.store.Append(s.ctx, s.newScore(pid, 64, at)))
		s.Require().NoError(s.store.Append(s.ctx, s.newScore(pid, 82, at)))

		latest, err := s.store.Latest(s.ctx, pid)
		s.Require().NoError(err)
		s.Equal(82, latest.Score)

		history, err := s.store.History(s.ctx, pid, 2)
		s.Require().NoError(err)
		s.Equal([]int{82, 64}, []int{history[0].Score, history[1].Score})
	})

	s.Run("returned records are copies", func() {
		latest, err := s.store.Latest(s.ctx, pid)
		s.Require().NoError(err)
		latest.Score = 0

		again, err := s.store.Latest(s.ctx, pid)
		s.Require().NoError(err)
		s.Equal(82, again.Score)
	})
}

func (s *TrustStoreSuite) TestHistory() {
	pid := id.NewProviderID()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, score := range []int{40, 65, 90} {
		s.Require().NoError(s.store.Append(s.ctx, s.newScore(pid, score, base.Add(time.Duration(i)*time.Hour))))
	}

	s.Run("newest first", func() {
		history, err := s.store.History(s.ctx, pid, 0)
		s.Require().NoError(err)
		s.Require().Len(history, 3)
		s.Equal([]int{90, 65, 40}, []int{history[0].Score, history[1].Score, history[2].Score})
	})

	s.Run("limit", func() {
		history, err := s.store.History(s.ctx, pid, 2)
		s.Require().NoError(err)
		s.Len(history, 2)
		s.Equal(90, history[0].Score)
	})

	s.Run("other providers are isolated", func() {
		history, err := s.store.History(s.ctx, id.NewProviderID(), 10)
		s.Require().NoError(err)
		s.Empty(history)
	})
}

func (s *TrustStoreSuite) TestPendingReviews() {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	awaiting := s.newScore(id.NewProviderID(), 64, base)
	awaiting.NeedsManualReview = true
	s.Require().NoError(s.store.Append(s.ctx, awaiting))

	reviewed := s.newScore(id.NewProviderID(), 66, base)
	reviewed.NeedsManualReview = true
	s.Require().NoError(s.store.Append(s.ctx, reviewed))
	override := s.newScore(reviewed.ProviderID, 66, base.Add(time.Hour))
	override.Decision = models.DecisionVerified
	s.Require().NoError(s.store.Append(s.ctx, override))

	s.Require().NoError(s.store.Append(s.ctx, s.newScore(id.NewProviderID(), 90, base)))

	n, err := s.store.PendingReviews(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *TrustStoreSuite) TestContributionSummary() {
	ledger := NewInMemoryContributions()
	pid := id.NewProviderID()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	entries := []models.Contribution{
		{Hours: 4, Verified: true, Quality: 0.9, OccurredAt: now.AddDate(0, -1, 0)},
		{Hours: 6, Verified: true, Quality: 0.7, OccurredAt: now.AddDate(0, -3, 0)},
		{Hours: 3, Verified: false, Quality: 0.1, OccurredAt: now.AddDate(0, -2, 0)},
		{Hours: 50, Verified: true, Quality: 1, OccurredAt: now.AddDate(-2, 0, 0)},
	}
	for i := range entries {
		entries[i].ID = uuid.New()
		entries[i].ProviderID = pid
		s.Require().NoError(ledger.Record(s.ctx, &entries[i]))
	}

	sum, err := ledger.Summary(s.ctx, agents.Subject{ProviderID: pid}, now.AddDate(-1, 0, 0))
	s.Require().NoError(err)
	s.InDelta(13.0, sum.Hours, 0.0001)
	s.Equal(3, sum.Count)
	s.Equal(2, sum.VerifiedCount)
	s.InDelta(0.8, sum.AverageQuality, 0.0001)
	s.Equal(now.AddDate(0, -1, 0), sum.LastAt)
}
