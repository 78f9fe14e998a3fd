package api

import (
	"encoding/json"
	"errors"
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/fundlock-io/settlement-ledger/internal/effort"
	"github.com/fundlock-io/settlement-ledger/internal/escrow"
	"github.com/fundlock-io/settlement-ledger/internal/fee"
	"github.com/fundlock-io/settlement-ledger/internal/ledger"
	"github.com/fundlock-io/settlement-ledger/internal/settlement"
	"github.com/fundlock-io/settlement-ledger/internal/types"
)

type openContractRequest struct {
	Manager          string `json:"manager"`
	Capital          string `json:"capital"`
	ProviderShareBps uint16 `json:"provider_share_bps"`
	ManagerShareBps  uint16 `json:"manager_share_bps"`
}

type settleRequest struct {
	FinalBalance string `json:"final_balance"`
}

type recordEffortRequest struct {
	ContractID string `json:"contract_id"`
	Manager    string `json:"manager"`
	ActionKind string `json:"action_kind"`
	ProofRef   string `json:"proof_ref"`
}

type setFeeRateRequest struct {
	RateBps uint16 `json:"rate_bps"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type adjustCustodyRequest struct {
	Delta string `json:"delta"`
}

type contractResponse struct {
	ID               string `json:"id"`
	FundProvider     string `json:"fund_provider"`
	Manager          string `json:"manager"`
	Capital          string `json:"capital"`
	ProviderShareBps uint16 `json:"provider_share_bps"`
	ManagerShareBps  uint16 `json:"manager_share_bps"`
	Status           string `json:"status"`
}

type outcomeResponse struct {
	Contract       contractResponse `json:"contract"`
	Profit         string           `json:"profit"`
	Loss           string           `json:"loss"`
	ProviderPayout string           `json:"provider_payout"`
	ManagerPayout  string           `json:"manager_payout"`
}

type feePreviewResponse struct {
	Fee     string `json:"fee"`
	Blocked bool   `json:"blocked"`
	RateBps uint16 `json:"rate_bps"`
}

type solvencyResponse struct {
	Assets      string `json:"assets"`
	Liabilities string `json:"liabilities"`
	Deficit     string `json:"deficit"`
	Solvent     bool   `json:"solvent"`
	Escrow      string `json:"escrow_balance"`
}

func (s *Server) handleOpenContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req openContractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	capital, ok := parseAmount(w, "capital", req.Capital)
	if !ok {
		return
	}

	contract, err := s.svc.OpenContract(
		r.Context(), caller, types.NormalizeIdentity(req.Manager),
		capital, req.ProviderShareBps, req.ManagerShareBps,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractResponse(contract))
}

func (s *Server) handleGetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := s.svc.Contract(chi.URLParam(r, "contractID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResponse(contract))
}

func (s *Server) handleAvailableBalance(w http.ResponseWriter, r *http.Request) {
	available, err := s.svc.AvailableFor(chi.URLParam(r, "contractID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"available": available.String()})
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req settleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	finalBalance, ok := parseAmount(w, "final_balance", req.FinalBalance)
	if !ok {
		return
	}

	outcome, err := s.svc.Settle(r.Context(), caller, chi.URLParam(r, "contractID"), finalBalance)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeResponse{
		Contract:       toContractResponse(outcome.Contract),
		Profit:         outcome.Profit.String(),
		Loss:           outcome.Loss.String(),
		ProviderPayout: outcome.ProviderPayout.String(),
		ManagerPayout:  outcome.ManagerPayout.String(),
	})
}

func (s *Server) handleRecordEffort(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerFrom(w, r); !ok {
		return
	}

	var req recordEffortRequest
	if !decodeBody(w, r, &req) {
		return
	}
	actionKind, err := types.ParseActionKind(req.ActionKind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	record, err := s.svc.RecordEffort(
		r.Context(), req.ContractID,
		types.NormalizeIdentity(req.Manager), actionKind, req.ProofRef,
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"weight":    record.Weight.String(),
		"timestamp": record.Timestamp.Format(http.TimeFormat),
	})
}

func (s *Server) handleContractEffort(w http.ResponseWriter, r *http.Request) {
	contractEffort, err := s.svc.ContractEffort(chi.URLParam(r, "contractID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contract_id": contractEffort.ContractID,
		"manager":     contractEffort.Manager.String(),
		"total_units": contractEffort.TotalUnits.String(),
		"entry_count": contractEffort.EntryCount,
		"active":      contractEffort.Active,
		"burned":      contractEffort.Burned,
	})
}

func (s *Server) handleManagerStats(w http.ResponseWriter, r *http.Request) {
	manager := types.NormalizeIdentity(chi.URLParam(r, "manager"))
	stats, ok := s.svc.ManagerStats(manager)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "manager has no recorded effort"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"manager":               stats.Manager.String(),
		"lifetime_units":        stats.LifetimeUnits.String(),
		"burned_units":          stats.BurnedUnits.String(),
		"lifetime_profit":       stats.LifetimeProfit.String(),
		"contract_count":        stats.ContractCount,
		"burned_contract_count": stats.BurnedContractCount,
		"burn_ratio_bps":        s.svc.BurnRatio(manager).String(),
	})
}

func (s *Server) handlePreviewFee(w http.ResponseWriter, r *http.Request) {
	profit, ok := parseAmount(w, "profit", r.URL.Query().Get("profit"))
	if !ok {
		return
	}
	feeAmount, blocked, err := s.svc.PreviewFee(profit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feePreviewResponse{
		Fee:     feeAmount.String(),
		Blocked: blocked,
		RateBps: s.svc.FeeRate(),
	})
}

func (s *Server) handleSetFeeRate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req setFeeRateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.svc.SetFeeRate(caller, req.RateBps); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint16{"rate_bps": req.RateBps})
}

func (s *Server) handleReleaseFees(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}
	if err := s.svc.ReleaseFees(r.Context(), caller, amount); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"escrow_balance": s.svc.EscrowBalance().String()})
}

func (s *Server) handleCoverDeficit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, "amount", req.Amount)
	if !ok {
		return
	}
	if err := s.svc.CoverDeficit(r.Context(), caller, amount); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"escrow_balance": s.svc.EscrowBalance().String()})
}

func (s *Server) handleAdjustCustody(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}

	var req adjustCustodyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	delta, ok := sdkmath.NewIntFromString(req.Delta)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be an integer"})
		return
	}
	price, err := s.svc.AdjustCustodyValue(r.Context(), caller, delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"delta": delta.String(),
		"price": price.Price.String(),
	})
}

func (s *Server) handleSolvency(w http.ResponseWriter, r *http.Request) {
	snapshot := s.svc.LedgerSnapshot()
	writeJSON(w, http.StatusOK, solvencyResponse{
		Assets:      snapshot.Assets.String(),
		Liabilities: snapshot.Liabilities.String(),
		Deficit:     snapshot.Deficit.String(),
		Solvent:     snapshot.Solvent,
		Escrow:      s.svc.EscrowBalance().String(),
	})
}

func toContractResponse(c *settlement.Contract) contractResponse {
	return contractResponse{
		ID:               c.ID,
		FundProvider:     c.FundProvider.String(),
		Manager:          c.Manager.String(),
		Capital:          c.Capital.String(),
		ProviderShareBps: c.ProviderShareBps,
		ManagerShareBps:  c.ManagerShareBps,
		Status:           c.Status.String(),
	}
}

func callerFrom(w http.ResponseWriter, r *http.Request) (types.Identity, bool) {
	caller := types.NormalizeIdentity(r.Header.Get(CallerHeader))
	if caller.IsZero() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + CallerHeader + " header"})
		return types.ZeroIdentity, false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func parseAmount(w http.ResponseWriter, field, raw string) (sdkmath.Int, bool) {
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": field + " must be an integer"})
		return sdkmath.Int{}, false
	}
	return amount, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var notFound *settlement.ContractNotFoundError
	var alreadySettled *settlement.AlreadySettledError
	var reentrant *settlement.ReentrantCallError

	switch {
	case types.IsUnauthorizedError(err),
		errors.As(err, new(*settlement.NotManagerError)):
		status = http.StatusForbidden
	case errors.As(err, &notFound),
		errors.As(err, new(*effort.ContractNotActiveError)):
		status = http.StatusNotFound
	case errors.As(err, &alreadySettled),
		errors.As(err, new(*effort.AlreadyBurnedError)),
		errors.As(err, &reentrant):
		status = http.StatusConflict
	case errors.As(err, new(*settlement.InsufficientAvailableBalanceError)),
		errors.As(err, new(*settlement.CounterpartyNotApprovedError)),
		errors.As(err, new(*escrow.ProtocolInsolventError)),
		errors.As(err, new(*escrow.InsufficientEscrowError)),
		errors.As(err, new(*ledger.InsufficientAssetsError)),
		errors.As(err, new(*ledger.SolvencyViolationError)):
		status = http.StatusUnprocessableEntity
	case types.IsValidationError(err),
		errors.As(err, new(*settlement.InvalidSplitError)),
		errors.As(err, new(*fee.RateTooHighError)),
		errors.As(err, new(*effort.ZeroWeightError)):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
