package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"escrowd/escrow"
)

const (
	codeEscrowInvalidParams = -32021
	codeEscrowNotFound      = -32022
	codeEscrowForbidden     = -32023
	codeEscrowConflict      = -32024
	codeEscrowInternal      = -32025
	codeEscrowNoFunds       = -32026
)

type escrowCreateParams struct {
	Buyer       string `json:"buyer"`
	Seller      string `json:"seller"`
	Arbiter     string `json:"arbiter"`
	ArbiterFee  string `json:"arbiterFee"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type escrowIDParams struct {
	ID uint64 `json:"id"`
}

type escrowActorParams struct {
	ID     uint64 `json:"id"`
	Caller string `json:"caller"`
}

type escrowResolveParams struct {
	ID         uint64 `json:"id"`
	Caller     string `json:"caller"`
	FavorBuyer bool   `json:"favorBuyer"`
}

type addressParams struct {
	Address string `json:"address"`
}

type platformFeeParams struct {
	Caller  string `json:"caller"`
	Percent uint64 `json:"percent"`
}

type escrowCreateResult struct {
	ID uint64 `json:"id"`
}

type withdrawResult struct {
	Amount string `json:"amount"`
}

type pendingResult struct {
	Address string `json:"address"`
	Pending string `json:"pending"`
}

type platformStatsResult struct {
	EscrowCounter      uint64 `json:"escrowCounter"`
	TotalVolume        string `json:"totalVolume"`
	PlatformFeePercent uint64 `json:"platformFeePercent"`
}

type escrowJSON struct {
	ID             uint64 `json:"id"`
	Buyer          string `json:"buyer"`
	Seller         string `json:"seller"`
	Arbiter        string `json:"arbiter"`
	Amount         string `json:"amount"`
	ArbiterFee     string `json:"arbiterFee"`
	Description    string `json:"description"`
	Status         string `json:"status"`
	BuyerApproved  bool   `json:"buyerApproved"`
	SellerApproved bool   `json:"sellerApproved"`
	CreatedAt      uint64 `json:"createdAt"`
	CompletedAt    uint64 `json:"completedAt,omitempty"`
}

func (s *Server) handleEscrowCreate(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowCreateParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	buyer, err := parseAddress(params.Buyer)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("buyer: %v", err))
		return
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("seller: %v", err))
		return
	}
	arbiter, err := parseAddress(params.Arbiter)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("arbiter: %v", err))
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("amount: %v", err))
		return
	}
	arbiterFee, err := parseNonNegativeBigInt(params.ArbiterFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("arbiterFee: %v", err))
		return
	}
	id, err := s.engine.Create(buyer, seller, arbiter, arbiterFee, params.Description, amount)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowCreateResult{ID: id})
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params escrowIDParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	esc, err := s.engine.Get(params.ID)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatEscrowJSON(esc))
}

func (s *Server) handleUserEscrows(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := s.engine.UserEscrows(addr)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ids)
}

func (s *Server) handleEscrowTransition(w http.ResponseWriter, r *http.Request, req *RPCRequest, fn func(uint64, common.Address) error) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowActorParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("caller: %v", err))
		return
	}
	if err := fn(params.ID, caller); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleEscrowResolve(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params escrowResolveParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("caller: %v", err))
		return
	}
	if err := s.engine.ResolveDispute(params.ID, caller, params.FavorBuyer); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params addressParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := s.engine.Withdraw(caller)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, withdrawResult{Amount: amount.String()})
}

func (s *Server) handlePendingWithdrawal(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params addressParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return
	}
	pending, err := s.engine.PendingWithdrawal(addr)
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, pendingResult{Address: addr.Hex(), Pending: pending.String()})
}

func (s *Server) handleUpdatePlatformFee(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params platformFeeParams
	if !decodeSingleParam(w, req, &params) {
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", fmt.Sprintf("caller: %v", err))
		return
	}
	if err := s.engine.UpdatePlatformFee(caller, params.Percent); err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handlePlatformStats(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	stats, err := s.engine.PlatformStats()
	if err != nil {
		writeEscrowError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, platformStatsResult{
		EscrowCounter:      stats.EscrowCounter,
		TotalVolume:        stats.TotalVolume.String(),
		PlatformFeePercent: stats.PlatformFeePercent,
	})
}

func decodeSingleParam(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", "exactly one parameter object expected")
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeEscrowInvalidParams, "invalid_params", err.Error())
		return false
	}
	return true
}

func parseAddress(addr string) (common.Address, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return common.Address{}, fmt.Errorf("address required")
	}
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", trimmed)
	}
	return common.HexToAddress(trimmed), nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	amount, err := parseNonNegativeBigInt(value)
	if err != nil {
		return nil, err
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func parseNonNegativeBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", trimmed)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must be non-negative")
	}
	return amount, nil
}

func formatEscrowJSON(esc *escrow.Escrow) escrowJSON {
	amount := "0"
	if esc.Amount != nil {
		amount = esc.Amount.String()
	}
	arbiterFee := "0"
	if esc.ArbiterFee != nil {
		arbiterFee = esc.ArbiterFee.String()
	}
	return escrowJSON{
		ID:             esc.ID,
		Buyer:          esc.Buyer.Hex(),
		Seller:         esc.Seller.Hex(),
		Arbiter:        esc.Arbiter.Hex(),
		Amount:         amount,
		ArbiterFee:     arbiterFee,
		Description:    esc.Description,
		Status:         esc.Status.String(),
		BuyerApproved:  esc.BuyerApproved,
		SellerApproved: esc.SellerApproved,
		CreatedAt:      esc.CreatedAt,
		CompletedAt:    esc.CompletedAt,
	}
}

func writeEscrowError(w http.ResponseWriter, id interface{}, err error) {
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	code := codeEscrowInternal
	message := "internal_error"
	switch {
	case errors.Is(err, escrow.ErrNotFound):
		status = http.StatusNotFound
		code = codeEscrowNotFound
		message = "not_found"
	case errors.Is(err, escrow.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeEscrowForbidden
		message = "forbidden"
	case errors.Is(err, escrow.ErrInvalidState):
		status = http.StatusConflict
		code = codeEscrowConflict
		message = "conflict"
	case errors.Is(err, escrow.ErrInvalidInput):
		status = http.StatusBadRequest
		code = codeEscrowInvalidParams
		message = "invalid_params"
	case errors.Is(err, escrow.ErrNoFunds):
		status = http.StatusConflict
		code = codeEscrowNoFunds
		message = "no_funds"
	}
	writeError(w, status, id, code, message, err.Error())
}
