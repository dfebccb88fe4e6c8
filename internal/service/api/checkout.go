package api

import (
	"net/http"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/service/checkout"
)

type checkoutRequest struct {
	ShippingMethod string          `json:"shippingMethod"`
	Address        *domain.Address `json:"address"`
	PointsToRedeem int64           `json:"pointsToRedeem"`
}

func (s *Server) createCheckoutIntent(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	intent, err := s.svc.Checkout.CreateIntent(r.Context(), checkout.Request{
		Identity:       IdentityFrom(r.Context()),
		ShippingMethod: req.ShippingMethod,
		Address:        req.Address,
		PointsToRedeem: req.PointsToRedeem,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}
