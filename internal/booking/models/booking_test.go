package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
)

var now = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func requested(rate float64) *Booking {
	return NewBooking(id.NewBookingID(), Draft{
		LeadID:       id.NewLeadID(),
		ProviderID:   id.NewProviderID(),
		CustomerName: " Riley ",
	}, rate, now)
}

func confirmedByBoth(rate float64) *Booking {
	b := requested(rate)
	b.Confirm(PartyProvider, now)
	b.Confirm(PartyCustomer, now)
	return b
}

func TestCommissionPolicy_Rate(t *testing.T) {
	p := DefaultCommissionPolicy()
	assert.Equal(t, 0.05, p.Rate(nil))
	assert.Equal(t, 0.04, p.Rate(ptr(0.04)))
	assert.Equal(t, 0.03, p.Rate(ptr(0.03)))
	assert.Equal(t, 0.07, p.Rate(ptr(0.07)))
	assert.Equal(t, 0.05, p.Rate(ptr(0.02)))
	assert.Equal(t, 0.05, p.Rate(ptr(0.5)))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 60.0, Round2(1200*0.05))
	assert.Equal(t, 33.33, Round2(333.33*0.1))
	assert.Equal(t, 0.01, Round2(0.005))
}

func TestRevenue_Add(t *testing.T) {
	var r Revenue
	first := confirmedByBoth(0.05)
	first.Complete(1200, now)
	second := confirmedByBoth(0.07)
	second.Complete(333.33, now)
	open := confirmedByBoth(0.05)

	r.Add(first)
	r.Add(second)
	r.Add(open)

	assert.Equal(t, 2, r.Bookings)
	assert.Equal(t, 1533.33, r.Gross)
	assert.Equal(t, 83.33, r.Commission)
}

func TestBooking_Confirm(t *testing.T) {
	b := requested(0.05)
	assert.Equal(t, "Riley", b.CustomerName)

	require.NoError(t, b.CanConfirm(PartyCustomer))
	assert.True(t, b.Confirm(PartyCustomer, now))
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.False(t, b.BothConfirmed())

	t.Run("repeat by the same party is a no-op", func(t *testing.T) {
		first := *b.CustomerConfirmedAt
		require.NoError(t, b.CanConfirm(PartyCustomer))
		assert.False(t, b.Confirm(PartyCustomer, now.Add(time.Hour)))
		assert.Equal(t, first, *b.CustomerConfirmedAt)
	})

	t.Run("order independent", func(t *testing.T) {
		assert.True(t, b.Confirm(PartyProvider, now))
		assert.True(t, b.BothConfirmed())
		assert.Equal(t, StatusConfirmed, b.Status)
	})

	t.Run("unknown party", func(t *testing.T) {
		err := b.CanConfirm(Party("broker"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("not after start", func(t *testing.T) {
		b.Start(now)
		assert.True(t, dErrors.HasCode(b.CanConfirm(PartyProvider), dErrors.CodeInvalidTransition))
	})
}

func TestBooking_Start(t *testing.T) {
	half := requested(0.05)
	half.Confirm(PartyProvider, now)
	assert.True(t, dErrors.HasCode(half.CanStart(), dErrors.CodeInvalidTransition))

	b := confirmedByBoth(0.05)
	require.NoError(t, b.CanStart())
	b.Start(now)
	assert.Equal(t, StatusInProgress, b.Status)
	assert.True(t, dErrors.HasCode(b.CanStart(), dErrors.CodeInvalidTransition))
}

func TestBooking_Complete(t *testing.T) {
	t.Run("computes commission once", func(t *testing.T) {
		b := confirmedByBoth(0.05)
		require.NoError(t, b.CanComplete(1200))
		b.Complete(1200, now)

		assert.Equal(t, StatusCompleted, b.Status)
		require.NotNil(t, b.CommissionAmount)
		assert.Equal(t, 60.0, *b.CommissionAmount)
		assert.Equal(t, 1200.0, *b.ActualValue)

		err := b.CanComplete(2000)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("from in progress", func(t *testing.T) {
		b := confirmedByBoth(0.07)
		b.Start(now)
		require.NoError(t, b.CanComplete(99.99))
		b.Complete(99.99, now)
		assert.Equal(t, 7.0, *b.CommissionAmount)
	})

	t.Run("requires both confirmations", func(t *testing.T) {
		b := requested(0.05)
		b.Confirm(PartyProvider, now)
		assert.True(t, dErrors.HasCode(b.CanComplete(100), dErrors.CodeInvalidTransition))
	})

	t.Run("rejects negative values", func(t *testing.T) {
		b := confirmedByBoth(0.05)
		assert.True(t, dErrors.HasCode(b.CanComplete(-1), dErrors.CodeValidation))
	})
}

func TestBooking_Cancel(t *testing.T) {
	b := requested(0.05)
	assert.True(t, dErrors.HasCode(b.CanCancel(" "), dErrors.CodeValidation))
	require.NoError(t, b.CanCancel("customer moved"))
	b.Cancel("customer moved", now)
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Nil(t, b.CommissionAmount)

	partial := requested(0.05)
	partial.Confirm(PartyCustomer, now)
	require.NoError(t, partial.CanCancel("provider unavailable"))

	both := confirmedByBoth(0.05)
	assert.Equal(t, StatusConfirmed, both.Status)
	assert.True(t, dErrors.HasCode(both.CanCancel("changed mind"), dErrors.CodeInvalidTransition))

	started := confirmedByBoth(0.05)
	started.Start(now)
	assert.True(t, dErrors.HasCode(started.CanCancel("late"), dErrors.CodeInvalidTransition))
}

func TestBooking_DisputeAndResolve(t *testing.T) {
	t.Run("resolve as completed settles commission", func(t *testing.T) {
		b := confirmedByBoth(0.05)
		b.Start(now)
		require.NoError(t, b.CanDispute("scope disagreement"))
		b.Dispute("scope disagreement", now)
		assert.Equal(t, StatusDisputed, b.Status)
		assert.True(t, dErrors.HasCode(b.CanDispute("again"), dErrors.CodeInvalidTransition))
		assert.True(t, dErrors.HasCode(b.CanComplete(100), dErrors.CodeInvalidTransition))

		r := Resolution{Outcome: OutcomeCompleted, ReviewerID: "ops-1", Notes: "partial", ActualValue: ptr(800.0)}
		require.NoError(t, b.CanResolve(r))
		b.Resolve(r, now)
		assert.Equal(t, StatusCompleted, b.Status)
		assert.Equal(t, 40.0, *b.CommissionAmount)
		assert.Equal(t, "ops-1", b.ResolvedBy)
		assert.Equal(t, OutcomeCompleted, b.Resolution)
	})

	t.Run("resolve as cancelled carries no commission", func(t *testing.T) {
		b := requested(0.05)
		b.Dispute("no show", now)
		r := Resolution{Outcome: OutcomeCancelled, ReviewerID: "ops-1"}
		require.NoError(t, b.CanResolve(r))
		b.Resolve(r, now)
		assert.Equal(t, StatusCancelled, b.Status)
		assert.Nil(t, b.CommissionAmount)
		assert.NotNil(t, b.CancelledAt)
	})

	t.Run("resolution validation", func(t *testing.T) {
		b := requested(0.05)
		b.Dispute("no show", now)
		tests := []Resolution{
			{Outcome: "refund", ReviewerID: "ops"},
			{Outcome: OutcomeCancelled},
			{Outcome: OutcomeCompleted, ReviewerID: "ops"},
			{Outcome: OutcomeCompleted, ReviewerID: "ops", ActualValue: ptr(-5.0)},
		}
		for _, r := range tests {
			assert.True(t, dErrors.HasCode(b.CanResolve(r), dErrors.CodeValidation), "%+v", r)
		}
	})

	t.Run("only disputed bookings resolve", func(t *testing.T) {
		b := requested(0.05)
		err := b.CanResolve(Resolution{Outcome: OutcomeCancelled, ReviewerID: "ops"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("terminal bookings cannot be disputed", func(t *testing.T) {
		b := requested(0.05)
		b.Cancel("changed mind", now)
		assert.True(t, dErrors.HasCode(b.CanDispute("late"), dErrors.CodeInvalidTransition))
	})
}
