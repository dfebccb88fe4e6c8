package api

import (
	"net/http"

	"github.com/vladislavdragonenkov/glowup/internal/service/webhook"
)

// StripeSignatureHeader содержит подпись платёжного провайдера.
const StripeSignatureHeader = "Stripe-Signature"

func (s *Server) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.Payments.Handle(r.Context(), payload, r.Header.Get(StripeSignatureHeader))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) refundWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Refunds.Authorize(r.Header.Get(webhook.RefundSecretHeader)); err != nil {
		s.writeError(w, r, err)
		return
	}

	var event webhook.RefundEvent
	if err := decodeJSON(w, r, &event); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.Refunds.Handle(r.Context(), event)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
