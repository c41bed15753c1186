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

func captured() *Lead {
	return &Lead{ID: id.NewLeadID(), Status: StatusCaptured, CreatedAt: now, UpdatedAt: now}
}

func TestCaptureRequest_Validate(t *testing.T) {
	valid := func() *CaptureRequest {
		return &CaptureRequest{
			ProviderID:        id.NewProviderID().String(),
			CustomerName:      " Riley ",
			CustomerEmail:     " Riley@Example.test ",
			ServiceRequested:  " Plumbing ",
			AttributionSource: " QR ",
		}
	}

	req := valid()
	req.Normalize()
	require.NoError(t, req.Validate())
	assert.Equal(t, "riley@example.test", req.CustomerEmail)
	assert.Equal(t, "plumbing", req.ServiceRequested)
	assert.Equal(t, "qr", req.AttributionSource)
	assert.False(t, req.ParsedProviderID().IsNil())

	tests := []struct {
		name   string
		mutate func(*CaptureRequest)
		code   dErrors.Code
	}{
		{"bad provider id", func(r *CaptureRequest) { r.ProviderID = "nope" }, dErrors.CodeInvalidInput},
		{"missing name", func(r *CaptureRequest) { r.CustomerName = "" }, dErrors.CodeValidation},
		{"no contact", func(r *CaptureRequest) { r.CustomerEmail = "" }, dErrors.CodeValidation},
		{"bad email", func(r *CaptureRequest) { r.CustomerEmail = "riley" }, dErrors.CodeValidation},
		{"missing service", func(r *CaptureRequest) { r.ServiceRequested = "" }, dErrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.mutate(r)
			r.Normalize()
			assert.True(t, dErrors.HasCode(r.Validate(), tt.code))
		})
	}

	t.Run("phone alone is enough", func(t *testing.T) {
		r := valid()
		r.CustomerEmail = ""
		r.CustomerPhone = "555-0100"
		r.Normalize()
		assert.NoError(t, r.Validate())
	})
}

func TestLead_Advance(t *testing.T) {
	l := captured()

	require.NoError(t, l.CanAdvance(StatusContacted))
	assert.True(t, l.Advance(StatusContacted, now.Add(time.Hour)))
	first := *l.ContactedAt

	t.Run("re-entry keeps the first timestamp", func(t *testing.T) {
		require.NoError(t, l.CanAdvance(StatusContacted))
		assert.False(t, l.Advance(StatusContacted, now.Add(2*time.Hour)))
		assert.Equal(t, first, *l.ContactedAt)
	})

	t.Run("no skipping ahead", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(l.CanAdvance(StatusBooked), dErrors.CodeInvalidTransition))
	})

	require.NoError(t, l.CanAdvance(StatusQuoted))
	l.Advance(StatusQuoted, now.Add(3*time.Hour))

	t.Run("no going back", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(l.CanAdvance(StatusContacted), dErrors.CodeInvalidTransition))
	})

	require.NoError(t, l.CanAdvance(StatusBooked))
	l.Advance(StatusBooked, now.Add(4*time.Hour))
	require.NoError(t, l.CanAdvance(StatusCompleted))
	l.Advance(StatusCompleted, now.Add(5*time.Hour))

	assert.Equal(t, StatusCompleted, l.Status)
	assert.NotNil(t, l.QuotedAt)
	assert.NotNil(t, l.BookedAt)
	assert.NotNil(t, l.CompletedAt)
	assert.True(t, l.Status.IsTerminal())
}

func TestLead_MarkLost(t *testing.T) {
	l := captured()
	assert.True(t, dErrors.HasCode(l.CanMarkLost(" "), dErrors.CodeValidation))

	require.NoError(t, l.CanMarkLost("went with a competitor"))
	assert.True(t, l.MarkLost("went with a competitor", now))
	assert.Equal(t, StatusLost, l.Status)

	t.Run("absorbing", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(l.CanAdvance(StatusContacted), dErrors.CodeInvalidTransition))
		require.NoError(t, l.CanMarkLost("again"))
		assert.False(t, l.MarkLost("again", now.Add(time.Hour)))
		assert.Equal(t, "went with a competitor", l.LostReason)
	})

	t.Run("booked leads cannot be lost", func(t *testing.T) {
		b := captured()
		b.Status = StatusBooked
		assert.True(t, dErrors.HasCode(b.CanMarkLost("x"), dErrors.CodeInvalidTransition))
	})
}
