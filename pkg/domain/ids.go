// Package domain holds the typed identifiers shared across modules.
//
// Each identifier is a distinct named type over uuid.UUID so the compiler
// rejects passing a LeadID where a BookingID is expected. Parse functions are
// the trust boundary: they reject empty, malformed and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "octopus/pkg/domain-errors"
)

type (
	ProviderID   uuid.UUID
	TrustScoreID uuid.UUID
	LeadID       uuid.UUID
	BookingID    uuid.UUID
	ReviewerID   uuid.UUID
)

func NewProviderID() ProviderID     { return ProviderID(uuid.New()) }
func NewTrustScoreID() TrustScoreID { return TrustScoreID(uuid.New()) }
func NewLeadID() LeadID             { return LeadID(uuid.New()) }
func NewBookingID() BookingID       { return BookingID(uuid.New()) }

func (id ProviderID) String() string   { return uuid.UUID(id).String() }
func (id TrustScoreID) String() string { return uuid.UUID(id).String() }
func (id LeadID) String() string       { return uuid.UUID(id).String() }
func (id BookingID) String() string    { return uuid.UUID(id).String() }
func (id ReviewerID) String() string   { return uuid.UUID(id).String() }

func (id ProviderID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id TrustScoreID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id LeadID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id BookingID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReviewerID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func (id ProviderID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id TrustScoreID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id LeadID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id BookingID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ReviewerID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }

// UnmarshalText accepts any well-formed UUID so stored and echoed records
// round-trip; request input goes through the Parse functions instead.
func (id *ProviderID) UnmarshalText(b []byte) error   { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *TrustScoreID) UnmarshalText(b []byte) error { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *LeadID) UnmarshalText(b []byte) error       { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *BookingID) UnmarshalText(b []byte) error    { return unmarshalUUID(b, (*uuid.UUID)(id)) }
func (id *ReviewerID) UnmarshalText(b []byte) error   { return unmarshalUUID(b, (*uuid.UUID)(id)) }

func unmarshalUUID(b []byte, dst *uuid.UUID) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "malformed UUID")
	}
	*dst = u
	return nil
}

func ParseProviderID(s string) (ProviderID, error) {
	u, err := parseUUID(s, "provider_id")
	return ProviderID(u), err
}

func ParseTrustScoreID(s string) (TrustScoreID, error) {
	u, err := parseUUID(s, "trust_score_id")
	return TrustScoreID(u), err
}

func ParseLeadID(s string) (LeadID, error) {
	u, err := parseUUID(s, "lead_id")
	return LeadID(u), err
}

func ParseBookingID(s string) (BookingID, error) {
	u, err := parseUUID(s, "booking_id")
	return BookingID(u), err
}

func ParseReviewerID(s string) (ReviewerID, error) {
	u, err := parseUUID(s, "reviewer_id")
	return ReviewerID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a valid UUID", field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", field)
	}
	return u, nil
}
