// Package attribution derives the immutable attribution hash of a lead and
// the time-bounded signed URL that carries it.
//
// Two horizons apply to every attribution. The signed URL is valid for
// URLValidity after capture and gates access; the attribution window gates
// whether the lead can still settle commission or disputes. Verify checks
// both independently.
package attribution

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	id "octopus/pkg/domain"
	dErrors "octopus/pkg/domain-errors"
)

const (
	DefaultURLValidity       = 72 * time.Hour
	DefaultAttributionWindow = 30 * 24 * time.Hour

	hashDomain = "octopus.attribution.v1"
	keyInfo    = "octopus attribution signing key"
	issuer     = "octopus"
)

// Status is the outcome of verifying an attribution hash.
type Status string

const (
	StatusValid   Status = "VALID"
	StatusExpired Status = "EXPIRED"
	StatusUnknown Status = "UNKNOWN"
)

const (
	ReasonURLExpired     = "url_expired"
	ReasonWindowElapsed  = "attribution_window_elapsed"
	ReasonNoMatchingLead = "no_matching_lead"
)

// Record is what the funnel stores per attribution hash.
type Record struct {
	Hash         string        `json:"hash"`
	LeadID       id.LeadID     `json:"lead_id"`
	ProviderID   id.ProviderID `json:"provider_id"`
	Source       string        `json:"source"`
	CapturedAt   time.Time     `json:"captured_at"`
	URLExpiresAt time.Time     `json:"url_expires_at"`
}

// SignedURL is the customer-facing link for a lead.
type SignedURL struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Verification reports both horizons for one hash.
type Verification struct {
	Status       Status    `json:"status"`
	Reasons      []string  `json:"reasons,omitempty"`
	Record       *Record   `json:"record,omitempty"`
	URLValid     bool      `json:"url_valid"`
	WindowOpen   bool      `json:"window_open"`
	WindowEndsAt time.Time `json:"window_ends_at,omitzero"`
	VerifiedAt   time.Time `json:"verified_at"`
}

type claims struct {
	ProviderID string `json:"pid"`
	jwt.RegisteredClaims
}

// Codec signs and verifies attribution URLs.
type Codec struct {
	key         []byte
	baseURL     string
	urlValidity time.Duration
	window      time.Duration
}

type Option func(*Codec)

func WithURLValidity(d time.Duration) Option {
	return func(c *Codec) {
		if d > 0 {
			c.urlValidity = d
		}
	}
}

func WithAttributionWindow(d time.Duration) Option {
	return func(c *Codec) {
		if d > 0 {
			c.window = d
		}
	}
}

// NewCodec derives the HS256 key from secret with HKDF-SHA256. baseURL is the
// public origin the signed links point at.
func NewCodec(secret, baseURL string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("attribution secret is required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive attribution key: %w", err)
	}
	c := &Codec{
		key:         key,
		baseURL:     strings.TrimRight(baseURL, "/"),
		urlValidity: DefaultURLValidity,
		window:      DefaultAttributionWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Codec) URLValidity() time.Duration       { return c.urlValidity }
func (c *Codec) AttributionWindow() time.Duration { return c.window }

// Hash is hex(SHA-256) over a length-prefixed encoding of the capture tuple,
// so no two distinct tuples share an encoding.
func Hash(providerID id.ProviderID, leadID id.LeadID, source string, capturedAt time.Time) string {
	h := sha256.New()
	for _, field := range []string{
		hashDomain,
		providerID.String(),
		leadID.String(),
		source,
		capturedAt.UTC().Format(time.RFC3339Nano),
	} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		h.Write(n[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// NewRecord hashes the tuple and stamps the URL expiry.
func (c *Codec) NewRecord(providerID id.ProviderID, leadID id.LeadID, source string, capturedAt time.Time) *Record {
	return &Record{
		Hash:         Hash(providerID, leadID, source, capturedAt),
		LeadID:       leadID,
		ProviderID:   providerID,
		Source:       source,
		CapturedAt:   capturedAt,
		URLExpiresAt: capturedAt.Add(c.urlValidity),
	}
}

// Sign issues the signed URL for hash. The token's exp is capture time plus
// the URL validity.
func (c *Codec) Sign(hash string, providerID id.ProviderID, capturedAt time.Time) (SignedURL, error) {
	expiresAt := capturedAt.Add(c.urlValidity)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ProviderID: providerID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   hash,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(capturedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(c.key)
	if err != nil {
		return SignedURL{}, fmt.Errorf("sign attribution token: %w", err)
	}
	return SignedURL{
		URL:       c.baseURL + "/api/v1/leads/attribution/" + hash + "?token=" + url.QueryEscape(signed),
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// ParseToken checks the signature and URL expiry at now and returns the hash
// the token was issued for.
func (c *Codec) ParseToken(token string, now time.Time) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeExpiredAttribution, "signed URL has expired")
		}
		return "", dErrors.New(dErrors.CodeInvalidSignature, "attribution token is invalid")
	}
	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || cl.Subject == "" {
		return "", dErrors.New(dErrors.CodeInvalidSignature, "attribution token is invalid")
	}
	return cl.Subject, nil
}

// Verify classifies a looked-up record at now. A nil record is UNKNOWN.
// EXPIRED is reported when either horizon has passed; Reasons names each.
func (c *Codec) Verify(rec *Record, now time.Time) Verification {
	if rec == nil {
		return Verification{Status: StatusUnknown, Reasons: []string{ReasonNoMatchingLead}, VerifiedAt: now}
	}
	windowEnds := rec.CapturedAt.Add(c.window)
	v := Verification{
		Record:       rec,
		URLValid:     now.Before(rec.URLExpiresAt),
		WindowOpen:   now.Before(windowEnds),
		WindowEndsAt: windowEnds,
		VerifiedAt:   now,
	}
	if !v.URLValid {
		v.Reasons = append(v.Reasons, ReasonURLExpired)
	}
	if !v.WindowOpen {
		v.Reasons = append(v.Reasons, ReasonWindowElapsed)
	}
	v.Status = StatusValid
	if len(v.Reasons) > 0 {
		v.Status = StatusExpired
	}
	return v
}

// IsHash reports whether s has the shape of an attribution hash.
func IsHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
