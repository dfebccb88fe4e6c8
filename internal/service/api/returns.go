package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

func (s *Server) createReturn(w http.ResponseWriter, r *http.Request) {
	var input domain.CreateReturnInput
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, err)
		return
	}

	request, err := s.svc.Returns.CreateReturn(r.Context(), IdentityFrom(r.Context()), input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (s *Server) getReturn(w http.ResponseWriter, r *http.Request) {
	request, err := s.svc.Returns.GetReturn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.authorizeOwner(IdentityFrom(r.Context()), request.Owner()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (s *Server) decideReturn(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := s.svc.Admins.Require(identity.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}

	var input domain.ReturnDecisionInput
	if err := decodeJSON(w, r, &input); err != nil {
		s.writeError(w, r, domain.Validation("Invalid decision"))
		return
	}

	request, err := s.svc.Returns.Decide(r.Context(), chi.URLParam(r, "id"), identity.UserID, input)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, request)
}
