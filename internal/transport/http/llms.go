package httptransport

import "net/http"

const llmsDocument = `# Octopus

> Marketplace trust and lead engine. Providers are verified by five automated
> agents, leads carry a signed attribution link, and bookings settle commission.

## Providers
- POST /api/v1/providers/claim: claim a business listing (verification starts automatically)
- GET /api/v1/providers/search?q=&service=&city=&min_trust_score=: search verified providers
- GET /api/v1/providers/{id}: provider profile

## Trust
- GET /api/v1/trust/{id}: latest trust score with per-agent verdicts
- GET /api/v1/trust/{id}/history: score history, newest first
- POST /api/v1/trust/{id}/calculate: run every verification agent now

## Leads
- POST /api/v1/leads/capture: capture a lead for a provider (send attribution_source "agent" when acting for a user)
- GET /api/v1/leads/{id}: lead status
- GET /api/v1/leads/attribution/{hash}?token=: verify an attribution link
- POST /api/v1/leads/{id}/contacted | quoted | lost | convert

## Bookings
- GET /api/v1/bookings/{id}
- POST /api/v1/bookings/{id}/confirm | start | complete | cancel | dispute

Errors are JSON objects with an "error" code and an optional "error_description".
Requests are rate limited per minute and per hour. Send an X-API-Key header to be
limited per key instead of per client address.
`

func llmsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(llmsDocument))
}
