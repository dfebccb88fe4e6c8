package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

type ordersResponse struct {
	Orders []domain.Order `json:"orders"`
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"trackingNumber"`
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := requireUser(identity); err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.svc.Orders.GetUserOrders(r.Context(), identity.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: list})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.svc.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.authorizeOwner(IdentityFrom(r.Context()), order.Owner()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := s.svc.Admins.Require(identity.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	order, err := s.svc.Orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status, req.TrackingNumber, identity.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) adminListOrders(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := s.svc.Admins.Require(identity.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	status, err := parseStatus(r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.svc.Orders.GetOrdersByStatus(r.Context(), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersResponse{Orders: list})
}

func parseStatus(raw string) (domain.OrderStatus, error) {
	if raw == "" {
		return "", domain.Validation("Status required")
	}
	return domain.ParseOrderStatus(raw)
}

// authorizeOwner пропускает владельца ресурса и администраторов.
func (s *Server) authorizeOwner(identity, owner domain.Identity) error {
	if identity.Effective().Owns(owner) || s.svc.Admins.IsAdmin(identity.UserID) {
		return nil
	}
	return domain.ErrAdminRequired
}
