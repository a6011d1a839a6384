package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/susu3304/seisanbot/internal/settle"
	"go.uber.org/zap"
)

type settleRequest struct {
	Balances         []balanceRequest `json:"balances" validate:"required,min=2,dive"`
	TimeLimitSeconds int              `json:"time_limit_seconds" validate:"gte=0"`
}

type balanceRequest struct {
	Name   string `json:"name" validate:"required,max=64"`
	Points int64  `json:"points" validate:"min=-1000000000000,max=1000000000000"`
}

type transferResponse struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type settleResponse struct {
	RunID     string             `json:"run_id"`
	Status    string             `json:"status"`
	Transfers []transferResponse `json:"transfers"`
	ElapsedMS int64              `json:"elapsed_ms"`
}

type settleErrorResponse struct {
	Error     string             `json:"error"`
	Message   string             `json:"message"`
	Residual  *int64             `json:"residual,omitempty"`
	BestKnown []transferResponse `json:"best_known,omitempty"`
}

// handleSettle computes a minimal-edge settlement for posted balances.
func (a *API) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if err := a.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", validationMessage(err))
		return
	}
	if maxN := a.config.MaxParticipants; maxN > 0 && len(req.Balances) > maxN {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("at most %d participants are allowed", maxN))
		return
	}

	balances := make(settle.Balances, 0, len(req.Balances))
	for _, b := range req.Balances {
		balances = append(balances, settle.Balance{Participant: settle.Participant(b.Name), Amount: b.Points})
	}
	limit := a.config.ClampTimeLimit(time.Duration(req.TimeLimitSeconds) * time.Second)

	res, err := settle.Settle(r.Context(), balances, settle.Options{
		TimeLimit: limit,
		Solver:    a.solver,
		Logger:    a.logger,
	})
	if err != nil {
		a.writeSettleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settleResponse{
		RunID:     res.RunID,
		Status:    res.Status.String(),
		Transfers: toTransferResponses(res.Transfers),
		ElapsedMS: res.Elapsed.Milliseconds(),
	})
}

func (a *API) writeSettleError(w http.ResponseWriter, err error) {
	var (
		unbalanced *settle.UnbalancedInputError
		degenerate *settle.DegenerateInputError
		duplicate  *settle.DuplicateParticipantError
		timeout    *settle.TimeoutError
	)
	switch {
	case errors.As(err, &unbalanced):
		residual := unbalanced.Residual
		writeJSON(w, http.StatusBadRequest, settleErrorResponse{
			Error:    "unbalanced",
			Message:  fmt.Sprintf("%dptずれがあります。", residual),
			Residual: &residual,
		})
	case errors.As(err, &degenerate), errors.As(err, &duplicate):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &timeout):
		writeJSON(w, http.StatusGatewayTimeout, settleErrorResponse{
			Error:     "timeout",
			Message:   err.Error(),
			BestKnown: toTransferResponses(timeout.BestKnown),
		})
	default:
		a.logger.Error("settlement failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "settlement failed")
	}
}

func toTransferResponses(transfers []settle.Transfer) []transferResponse {
	if transfers == nil {
		return nil
	}
	out := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, transferResponse{From: string(t.From), To: string(t.To), Amount: t.Amount})
	}
	return out
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag())
}
