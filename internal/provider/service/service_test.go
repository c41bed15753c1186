package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"octopus/internal/provider/models"
	"octopus/internal/provider/store"
	trust "octopus/internal/trust/models"
	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
	"octopus/pkg/platform/events"
	"octopus/pkg/requestcontext"
)

var frozen = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

type ProviderServiceSuite struct {
	suite.Suite
	svc    *Service
	store  *store.InMemory
	events *events.MemoryPublisher
	ctx    context.Context
}

func TestProviderServiceSuite(t *testing.T) {
	suite.Run(t, new(ProviderServiceSuite))
}

func (s *ProviderServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.events = events.NewMemoryPublisher()
	s.svc = New(s.store, WithPublisher(s.events))
	s.ctx = requestcontext.WithTime(context.Background(), frozen)
}

func claimRequest() *models.ClaimRequest {
	return &models.ClaimRequest{
		BusinessName:      " Acme Plumbing ",
		ContactName:       "Dana",
		Email:             "Ops@Acme.test",
		Phone:             "555-0100",
		Website:           "https://acme.test",
		Services:          []string{"Plumbing", "plumbing", "Drains"},
		ServiceAreaCities: []string{"Austin"},
	}
}

func (s *ProviderServiceSuite) claim() *models.Provider {
	p, err := s.svc.Claim(s.ctx, claimRequest())
	s.Require().NoError(err)
	return p
}

func (s *ProviderServiceSuite) TestClaim() {
	s.Run("creates a pending provider with normalised fields", func() {
		p := s.claim()
		s.Equal(models.StatusPending, p.Status)
		s.Equal("Acme Plumbing", p.BusinessName)
		s.Equal("ops@acme.test", p.Email)
		s.Equal([]string{"plumbing", "drains"}, p.Services)
		s.Equal(frozen, p.CreatedAt)
		s.Len(s.events.OfType(events.ProviderClaimed), 1)
	})

	s.Run("second claim of the same business and email conflicts", func() {
		_, err := s.svc.Claim(s.ctx, claimRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid request is rejected before storage", func() {
		req := claimRequest()
		req.Email = "not-an-email"
		_, err := s.svc.Claim(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ProviderServiceSuite) TestGet_NotFound() {
	_, err := s.svc.Get(s.ctx, id.NewProviderID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ProviderServiceSuite) TestSearch() {
	p := s.claim()
	_, err := s.svc.ApplyTrustDecision(s.ctx, &trust.TrustScore{ProviderID: p.ID, Score: 82, Decision: trust.DecisionVerified})
	s.Require().NoError(err)

	s.Run("min trust score", func() {
		res, err := s.svc.Search(s.ctx, models.SearchFilter{MinTrustScore: 80})
		s.Require().NoError(err)
		s.Equal(1, res.Total)
		s.Equal(models.DefaultSearchLimit, res.Limit)

		res, err = s.svc.Search(s.ctx, models.SearchFilter{MinTrustScore: 90})
		s.Require().NoError(err)
		s.Zero(res.Total)
	})

	s.Run("out of range min score", func() {
		_, err := s.svc.Search(s.ctx, models.SearchFilter{MinTrustScore: 101})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown status", func() {
		_, err := s.svc.Search(s.ctx, models.SearchFilter{Status: "ACTIVE"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("pending list excludes verified providers", func() {
		res, err := s.svc.ListPending(s.ctx, 0, 0)
		s.Require().NoError(err)
		s.Zero(res.Total)
	})
}

func (s *ProviderServiceSuite) TestApplyTrustDecision() {
	s.Run("verified decision admits a pending provider", func() {
		p := s.claim()
		got, err := s.svc.ApplyTrustDecision(s.ctx, &trust.TrustScore{ProviderID: p.ID, Score: 82, Decision: trust.DecisionVerified})
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, got.Status)
		s.Require().NotNil(got.VerifiedAt)
		s.Equal(frozen, *got.VerifiedAt)
		s.Len(s.events.OfType(events.ProviderStatus), 1)
	})

	s.Run("manual review keeps pending and emits nothing", func() {
		s.SetupTest()
		p := s.claim()
		got, err := s.svc.ApplyTrustDecision(s.ctx, &trust.TrustScore{
			ProviderID: p.ID, Score: 65, Decision: trust.DecisionManualReview, NeedsManualReview: true,
		})
		s.Require().NoError(err)
		s.Equal(models.StatusPending, got.Status)
		s.Equal(65, got.TrustScore)
		s.Empty(s.events.OfType(events.ProviderStatus))
	})

	s.Run("unknown provider", func() {
		_, err := s.svc.ApplyTrustDecision(s.ctx, &trust.TrustScore{ProviderID: id.NewProviderID(), Score: 90, Decision: trust.DecisionVerified})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProviderServiceSuite) TestSuspendAndReinstate() {
	p := s.claim()
	ctx := requestcontext.WithActorID(s.ctx, "ops-1")

	_, err := s.svc.Suspend(ctx, p.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	suspended, err := s.svc.Suspend(ctx, p.ID, "fraud report")
	s.Require().NoError(err)
	s.Equal(models.StatusSuspended, suspended.Status)

	_, err = s.svc.Suspend(ctx, p.ID, "again")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	reinstated, err := s.svc.Reinstate(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, reinstated.Status)
	s.Empty(reinstated.SuspendedReason)

	_, err = s.svc.Reinstate(ctx, p.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	changes := s.events.OfType(events.ProviderStatus)
	s.Require().Len(changes, 2)
	s.Equal("ops-1", changes[0].ActorID)
}

func (s *ProviderServiceSuite) TestUpdate() {
	s.Run("edits the profile and emits an update", func() {
		p := s.claim()
		name := "Dana Cruz"
		got, err := s.svc.Update(s.ctx, p.ID, &models.UpdateRequest{ContactName: &name})
		s.Require().NoError(err)
		s.Equal("Dana Cruz", got.ContactName)
		s.Equal(models.StatusPending, got.Status)

		updates := s.events.OfType(events.ProviderUpdated)
		s.Require().Len(updates, 1)
		s.JSONEq(`{"reverify":false}`, string(updates[0].Payload))
	})

	s.Run("empty update is a validation error", func() {
		s.SetupTest()
		p := s.claim()
		_, err := s.svc.Update(s.ctx, p.ID, &models.UpdateRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("suspended provider cannot be edited", func() {
		s.SetupTest()
		p := s.claim()
		_, err := s.svc.Suspend(s.ctx, p.ID, "fraud report")
		s.Require().NoError(err)
		phone := "555-0199"
		_, err = s.svc.Update(s.ctx, p.ID, &models.UpdateRequest{Phone: &phone})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("renaming onto another claim conflicts", func() {
		s.SetupTest()
		s.claim()
		req := claimRequest()
		req.BusinessName = "Bolt Electric"
		other, err := s.svc.Claim(s.ctx, req)
		s.Require().NoError(err)

		name := "acme plumbing"
		_, err = s.svc.Update(s.ctx, other.ID, &models.UpdateRequest{BusinessName: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown provider", func() {
		phone := "555-0199"
		_, err := s.svc.Update(s.ctx, id.NewProviderID(), &models.UpdateRequest{Phone: &phone})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProviderServiceSuite) TestApplyReviewOverride() {
	p := s.claim()
	got, err := s.svc.ApplyReviewOverride(s.ctx, p.ID, false, 64)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, got.Status)
	s.Equal(64, got.TrustScore)

	_, err = s.svc.ApplyReviewOverride(s.ctx, p.ID, true, 64)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *ProviderServiceSuite) TestSubject() {
	p := s.claim()
	subject, err := s.svc.Subject(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, subject.ProviderID)
	s.Equal("https://acme.test", subject.Website)
	s.Equal([]string{"Austin"}, subject.Cities)

	_, err = s.svc.Subject(s.ctx, id.NewProviderID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

type failingStore struct {
	*store.InMemory
	err error
}

func (f failingStore) Create(context.Context, *models.Provider) error { return f.err }

func TestClaim_StoreFailureIsInternal(t *testing.T) {
	svc := New(failingStore{InMemory: store.NewInMemory(), err: errors.New("connection reset")})
	_, err := svc.Claim(context.Background(), claimRequest())
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
}

func TestClaim_PublishFailureDoesNotFailClaim(t *testing.T) {
	pub := events.NewMemoryPublisher()
	pub.FailWith(errors.New("broker down"))
	svc := New(store.NewInMemory(), WithPublisher(pub))

	p, err := svc.Claim(context.Background(), claimRequest())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, p.Status)
}

type stubVerifier struct {
	svc   *Service
	score *trust.TrustScore
	err   error

	mu     sync.Mutex
	called []id.ProviderID
	ctxErr error
}

func (v *stubVerifier) Evaluate(ctx context.Context, providerID id.ProviderID) (*trust.TrustScore, error) {
	v.mu.Lock()
	v.called = append(v.called, providerID)
	v.ctxErr = ctx.Err()
	v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	score := *v.score
	score.ProviderID = providerID
	if _, err := v.svc.ApplyTrustDecision(ctx, &score); err != nil {
		return nil, err
	}
	return &score, nil
}

func TestClaim_StartsVerification(t *testing.T) {
	t.Run("verified decision admits the claimed provider", func(t *testing.T) {
		st := store.NewInMemory()
		svc := New(st)
		verifier := &stubVerifier{svc: svc, score: &trust.TrustScore{Score: 82, Decision: trust.DecisionVerified}}
		svc.AttachVerifier(verifier)

		ctx, cancel := context.WithCancel(context.Background())
		p, err := svc.Claim(ctx, claimRequest())
		cancel()
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, p.Status)

		svc.Wait()
		require.Equal(t, []id.ProviderID{p.ID}, verifier.called)
		got, err := st.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusVerified, got.Status)
		assert.Equal(t, 82, got.TrustScore)
	})

	t.Run("request cancellation does not reach the evaluation", func(t *testing.T) {
		svc := New(store.NewInMemory())
		verifier := &stubVerifier{svc: svc, score: &trust.TrustScore{Score: 40, Decision: trust.DecisionRejected}}
		svc.AttachVerifier(verifier)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Claim(ctx, claimRequest())
		require.NoError(t, err)

		svc.Wait()
		assert.NoError(t, verifier.ctxErr)
	})

	t.Run("unavailable evaluation leaves the provider pending", func(t *testing.T) {
		st := store.NewInMemory()
		svc := New(st)
		svc.AttachVerifier(&stubVerifier{
			svc: svc,
			err: dErrors.New(dErrors.CodeEvaluationUnavailable, "not enough agents succeeded"),
		})

		p, err := svc.Claim(context.Background(), claimRequest())
		require.NoError(t, err)
		svc.Wait()

		got, err := st.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Zero(t, got.TrustScore)
	})

	t.Run("rejected claims start no evaluation", func(t *testing.T) {
		svc := New(store.NewInMemory())
		verifier := &stubVerifier{svc: svc, score: &trust.TrustScore{Score: 90, Decision: trust.DecisionVerified}}
		svc.AttachVerifier(verifier)

		req := claimRequest()
		req.Phone = ""
		_, err := svc.Claim(context.Background(), req)
		require.Error(t, err)
		svc.Wait()
		assert.Empty(t, verifier.called)
	})
}

func TestUpdate_ReverifiesOnCheckedFields(t *testing.T) {
	svc := New(store.NewInMemory())
	p, err := svc.Claim(context.Background(), claimRequest())
	require.NoError(t, err)

	verifier := &stubVerifier{svc: svc, score: &trust.TrustScore{Score: 82, Decision: trust.DecisionVerified}}
	svc.AttachVerifier(verifier)

	description := "Emergency plumbing"
	_, err = svc.Update(context.Background(), p.ID, &models.UpdateRequest{Description: &description})
	require.NoError(t, err)
	svc.Wait()
	assert.Empty(t, verifier.called, "description is not read by the agents")

	website := "https://acme-plumbing.test"
	_, err = svc.Update(context.Background(), p.ID, &models.UpdateRequest{Website: &website})
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, []id.ProviderID{p.ID}, verifier.called)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, got.Status)
}
