package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethpandaops/curvewatch/curve"
)

type APIWalletResponseV1 struct {
	Address      string                `json:"address"`
	Token        string                `json:"token,omitempty"`
	Native       APIBalanceResponseV1  `json:"native"`
	TokenBalance *APIBalanceResponseV1 `json:"tokenBalance,omitempty"`
	Stale        bool                  `json:"stale"`
	LastError    string                `json:"lastError,omitempty"`
	LastUpdated  int64                 `json:"lastUpdated"`
}

type APIBalanceResponseV1 struct {
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
	Truncated string `json:"truncated"`
}

type APIWalletValidateResponseV1 struct {
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Valid     bool   `json:"valid"`
}

type APIWalletMaxResponseV1 struct {
	Direction string `json:"direction"`
	Max       string `json:"max"`
}

func buildBalanceResponse(balance *curve.Balance) APIBalanceResponseV1 {
	response := APIBalanceResponseV1{
		Raw:       "0",
		Formatted: balance.Formatted,
		Truncated: balance.Truncated,
	}
	if balance.Raw != nil {
		response.Raw = balance.Raw.String()
	}
	return response
}

func parseDirectionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	direction := r.URL.Query().Get("direction")
	if _, err := curve.ParseDirection(direction); err != nil {
		sendBadRequestResponse(w, r.URL.String(), "invalid direction provided")
		return "", false
	}
	return direction, true
}

// ApiWalletV1 returns the balances of the tracked wallet
// @Summary Get wallet balances
// @Tags Wallet
// @Produce  json
// @Success 200 {object} ApiResponse{data=APIWalletResponseV1} "Success"
// @Failure 404 {object} ApiResponse "No wallet configured"
// @Router /api/v1/wallet [get]
func ApiWalletV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	state, err := cs.GetWalletState(r.Context())
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}

	response := &APIWalletResponseV1{
		Address:     state.Address.Hex(),
		Native:      buildBalanceResponse(&state.Native),
		Stale:       state.Stale,
		LastUpdated: state.LastUpdated.Unix(),
	}
	if state.Token != nil {
		response.Token = state.Token.Hex()
	}
	if state.TokenBalance != nil {
		balance := buildBalanceResponse(state.TokenBalance)
		response.TokenBalance = &balance
	}
	if state.LastError != nil {
		response.LastError = state.LastError.Error()
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{response})
}

// ApiWalletTokenV1 switches the token whose balance is tracked, an empty token tracks none
// @Summary Set tracked wallet token
// @Tags Wallet
// @Produce  json
// @Param  token query string false "Token address, empty to track none"
// @Success 200 {object} ApiResponse{data=APIWalletResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Invalid address"
// @Failure 404 {object} ApiResponse "No wallet configured"
// @Router /api/v1/wallet/token [post]
func ApiWalletTokenV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	token := r.URL.Query().Get("token")
	if err := cs.SetWalletToken(token); err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}

	state := cs.Wallet().GetState()
	var lastUpdated int64
	if state != nil {
		lastUpdated = state.LastUpdated.Unix()
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{&APIWalletResponseV1{
		Address:     cs.Wallet().Address().Hex(),
		Token:       token,
		Stale:       true,
		LastUpdated: lastUpdated,
	}})
}

// ApiWalletValidateV1 checks an amount against the wallet balance of the direction
// @Summary Validate a trade amount
// @Tags Wallet
// @Produce  json
// @Param  direction query string true "buy or sell"
// @Param  amount query string true "Decimal input amount"
// @Success 200 {object} ApiResponse{data=APIWalletValidateResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Invalid direction"
// @Router /api/v1/wallet/validate [get]
func ApiWalletValidateV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	direction, ok := parseDirectionParam(w, r)
	if !ok {
		return
	}
	amount := r.URL.Query().Get("amount")

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{&APIWalletValidateResponseV1{
		Direction: direction,
		Amount:    amount,
		Valid:     cs.IsValidAmount(amount, direction),
	}})
}

// ApiWalletMaxV1 returns the largest tradable amount of the direction
// @Summary Get maximum trade amount
// @Tags Wallet
// @Produce  json
// @Param  direction query string true "buy or sell"
// @Success 200 {object} ApiResponse{data=APIWalletMaxResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Invalid direction"
// @Router /api/v1/wallet/max [get]
func ApiWalletMaxV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	direction, ok := parseDirectionParam(w, r)
	if !ok {
		return
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{&APIWalletMaxResponseV1{
		Direction: direction,
		Max:       cs.GetMaxAmount(direction),
	}})
}
