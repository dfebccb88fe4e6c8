package api

import (
	"net/http"
	"strconv"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/service/loyalty"
)

const maxTransactionsLimit = 100

type balanceResponse struct {
	UserID        string      `json:"userId"`
	Balance       int64       `json:"balance"`
	TotalEarned   int64       `json:"totalEarned"`
	TotalRedeemed int64       `json:"totalRedeemed"`
	Tier          domain.Tier `json:"tier"`
}

type transactionsResponse struct {
	Transactions []domain.LoyaltyTransaction `json:"transactions"`
}

type redeemRequest struct {
	Points  int64  `json:"points"`
	OrderID string `json:"orderId"`
}

type redeemedTransaction struct {
	ID          string  `json:"id"`
	Points      int64   `json:"points"`
	Balance     int64   `json:"balance"`
	DiscountKES float64 `json:"discountKES"`
}

type redeemResponse struct {
	Success     bool                `json:"success"`
	Transaction redeemedTransaction `json:"transaction"`
}

func (s *Server) loyaltyBalance(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := requireUser(identity); err != nil {
		s.writeError(w, r, err)
		return
	}

	account, err := s.svc.Loyalty.GetOrCreateAccount(r.Context(), identity.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{
		UserID:        account.UserID,
		Balance:       account.Balance,
		TotalEarned:   account.TotalEarned,
		TotalRedeemed: account.TotalRedeemed,
		Tier:          account.Tier,
	})
}

func (s *Server) loyaltyTransactions(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := requireUser(identity); err != nil {
		s.writeError(w, r, err)
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	txs, err := s.svc.Loyalty.GetTransactions(r.Context(), identity.UserID, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: txs})
}

func (s *Server) redeemPoints(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFrom(r.Context())
	if err := requireUser(identity); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Points <= 0 {
		s.writeError(w, r, domain.Validation("Invalid points value"))
		return
	}

	tx, discount, err := s.svc.Loyalty.Redeem(r.Context(), identity.UserID, req.Points, req.OrderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, redeemResponse{
		Success: true,
		Transaction: redeemedTransaction{
			ID:          tx.ID,
			Points:      tx.Points,
			Balance:     tx.Balance,
			DiscountKES: discount,
		},
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return loyalty.DefaultTransactionsLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxTransactionsLimit {
		return 0, domain.Validation("Invalid limit")
	}
	return limit, nil
}
