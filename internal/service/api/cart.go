package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context()).Effective()
	cart, err := s.svc.Carts.GetOrCreate(r.Context(), identity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var input domain.AddCartItemInput
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity := IdentityFrom(r.Context()).Effective()
	cart, err := s.svc.Carts.AddItem(r.Context(), identity, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

type updateCartItemRequest struct {
	Quantity *int64 `json:"quantity"`
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	identity := IdentityFrom(r.Context()).Effective()
	cart, err := s.svc.Carts.UpdateItem(r.Context(), identity, domain.UpdateCartItemInput{
		ID:       chi.URLParam(r, "id"),
		Quantity: req.Quantity,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context()).Effective()
	cart, err := s.svc.Carts.RemoveItem(r.Context(), identity, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// mergeCart переносит корзину анонимной сессии в корзину вошедшего пользователя.
func (s *Server) mergeCart(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := requireUser(identity); err != nil {
		s.writeError(w, r, err)
		return
	}

	cart, err := s.svc.Carts.Merge(r.Context(), identity.UserID, identity.SessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
