package api

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ethpandaops/curvewatch/curve"
	"github.com/ethpandaops/curvewatch/services"
	"github.com/ethpandaops/curvewatch/utils"
)

const defaultSlippage = 1.0

type APITokenResponseV1 struct {
	Token             string                    `json:"token"`
	State             string                    `json:"state"`
	Tradable          bool                      `json:"tradable"`
	Price             string                    `json:"price"`
	Collateral        string                    `json:"collateral"`
	VirtualSupply     string                    `json:"virtualSupply"`
	FundingGoal       string                    `json:"fundingGoal"`
	MaxSupply         string                    `json:"maxSupply"`
	TotalSupply       string                    `json:"totalSupply"`
	TradingFeeBps     uint64                    `json:"tradingFeeBps"`
	TradingFee        float64                   `json:"tradingFee"`
	FundingPercentage float64                   `json:"fundingPercentage"`
	IsGoalReached     bool                      `json:"isGoalReached"`
	SupplyUtilization float64                   `json:"supplyUtilization"`
	Display           APITokenDisplayResponseV1 `json:"display"`
	Stale             bool                      `json:"stale"`
	LastError         string                    `json:"lastError,omitempty"`
	LastUpdated       int64                     `json:"lastUpdated"`
}

type APITokenDisplayResponseV1 struct {
	Price             string `json:"price"`
	Collateral        string `json:"collateral"`
	FundingGoal       string `json:"fundingGoal"`
	FundingPercentage string `json:"fundingPercentage"`
}

type APIEstimateResponseV1 struct {
	Token     string `json:"token"`
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Estimate  string `json:"estimate"`
}

func getCurveService(w http.ResponseWriter, r *http.Request) *services.CurveService {
	if services.GlobalCurveService == nil {
		sendErrorWithCodeResponse(w, r.URL.String(), "curve service not ready", http.StatusServiceUnavailable)
		return nil
	}
	return services.GlobalCurveService
}

func buildTokenResponse(cs *services.CurveService, snapshot *curve.Snapshot) *APITokenResponseV1 {
	decimals := cs.Decimals()
	toAmount := func(value *big.Int) string {
		return curve.FromBaseUnits(value, decimals).String()
	}

	state := snapshot.State
	response := &APITokenResponseV1{
		Token:             state.Token.Hex(),
		State:             state.State.String(),
		Tradable:          state.State.IsTradable(),
		Price:             toAmount(state.Price),
		Collateral:        toAmount(state.Collateral),
		VirtualSupply:     toAmount(state.VirtualSupply),
		FundingGoal:       toAmount(state.FundingGoal),
		MaxSupply:         toAmount(state.MaxSupply),
		TotalSupply:       toAmount(state.TotalSupply),
		TradingFeeBps:     state.TradingFeeBps,
		TradingFee:        state.TradingFee,
		FundingPercentage: snapshot.Progress.FundingPercentage,
		IsGoalReached:     snapshot.Progress.IsGoalReached,
		SupplyUtilization: snapshot.Progress.SupplyUtilization,
		Stale:             snapshot.Stale,
		LastUpdated:       snapshot.LastUpdated.Unix(),
	}

	symbol := cs.NativeSymbol()
	response.Display = APITokenDisplayResponseV1{
		Price:             utils.FormatTokenAmount(curve.FromBaseUnits(state.Price, decimals), decimals, symbol),
		Collateral:        utils.FormatTokenAmount(curve.FromBaseUnits(state.Collateral, decimals), cs.DisplayDecimals(), symbol),
		FundingGoal:       utils.FormatTokenAmount(curve.FromBaseUnits(state.FundingGoal, decimals), cs.DisplayDecimals(), symbol),
		FundingPercentage: utils.FormatPercentage(snapshot.Progress.FundingPercentage),
	}

	if snapshot.LastError != nil {
		response.LastError = snapshot.LastError.Error()
	}

	return response
}

// ApiTokenV1 returns the aggregated on-chain state of a token
// @Summary Get token state
// @Tags Token
// @Description Returns the aggregated on-chain state of a bonding curve token with display strings
// @Produce  json
// @Param  address path string true "Token address"
// @Success 200 {object} ApiResponse{data=APITokenResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Invalid address"
// @Failure 422 {object} ApiResponse "Contract reverted"
// @Failure 503 {object} ApiResponse "Node unavailable"
// @Router /api/v1/token/{address} [get]
func ApiTokenV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	vars := mux.Vars(r)
	snapshot, err := cs.GetSnapshot(r.Context(), vars["address"])
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{buildTokenResponse(cs, snapshot)})
}

// ApiTokenEstimateV1 returns the counterparty amount of a trade
// @Summary Estimate a trade
// @Tags Token
// @Description Returns the token amount received for a buy or the native amount received for a sell
// @Produce  json
// @Param  address path string true "Token address"
// @Param  direction query string true "buy or sell"
// @Param  amount query string true "Decimal input amount"
// @Success 200 {object} ApiResponse{data=APIEstimateResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Invalid input"
// @Failure 503 {object} ApiResponse "Node unavailable"
// @Router /api/v1/token/{address}/estimate [get]
func ApiTokenEstimateV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	vars := mux.Vars(r)
	query := r.URL.Query()
	direction := query.Get("direction")
	amount := query.Get("amount")

	estimate, err := cs.Estimate(r.Context(), direction, amount, vars["address"])
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{&APIEstimateResponseV1{
		Token:     vars["address"],
		Direction: direction,
		Amount:    amount,
		Estimate:  estimate,
	}})
}

// ApiTokenImpactV1 returns the price impact of a trade and the minimum received amount at the given slippage
// @Summary Get trade price impact
// @Tags Token
// @Produce  json
// @Param  address path string true "Token address"
// @Param  direction query string true "buy or sell"
// @Param  amount query string true "Decimal input amount"
// @Param  slippage query number false "Slippage tolerance in percent"
// @Success 200 {object} ApiResponse{data=services.TradeImpact} "Success"
// @Failure 400 {object} ApiResponse "Invalid input"
// @Router /api/v1/token/{address}/impact [get]
func ApiTokenImpactV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 2) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	vars := mux.Vars(r)
	query := r.URL.Query()

	slippage := defaultSlippage
	if query.Has("slippage") {
		var err error
		slippage, err = strconv.ParseFloat(query.Get("slippage"), 64)
		if err != nil {
			sendBadRequestResponse(w, r.URL.String(), "invalid slippage provided")
			return
		}
	}

	impact, err := cs.PriceImpact(r.Context(), query.Get("direction"), query.Get("amount"), vars["address"], slippage)
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{impact})
}

// ApiTokenRefreshV1 drops the cached estimates of a token and returns its freshly read state
// @Summary Refresh token state
// @Tags Token
// @Produce  json
// @Param  address path string true "Token address"
// @Success 200 {object} ApiResponse{data=APITokenResponseV1} "Success"
// @Failure 400 {object} ApiResponse "Invalid address"
// @Router /api/v1/token/{address}/refresh [post]
func ApiTokenRefreshV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 5) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	vars := mux.Vars(r)
	snapshot, err := cs.Refresh(r.Context(), vars["address"])
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{buildTokenResponse(cs, snapshot)})
}

// ApiTokenMetadataV1 returns the off-chain metadata of a token with its status badge
// @Summary Get token metadata
// @Tags Token
// @Produce  json
// @Param  address path string true "Token address"
// @Success 200 {object} ApiResponse{data=services.TokenInfo} "Success"
// @Failure 404 {object} ApiResponse "Unknown token or metadata disabled"
// @Router /api/v1/token/{address}/metadata [get]
func ApiTokenMetadataV1(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !checkCallLimit(w, r, 1) {
		return
	}
	cs := getCurveService(w, r)
	if cs == nil {
		return
	}

	vars := mux.Vars(r)
	info, err := cs.GetTokenInfo(r.Context(), vars["address"])
	if err != nil {
		sendCurveErrorResponse(w, r.URL.String(), err)
		return
	}

	SendOKResponse(json.NewEncoder(w), r.URL.String(), []interface{}{info})
}
