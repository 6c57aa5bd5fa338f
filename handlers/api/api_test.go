package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/donovanhide/eventsource"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/curvewatch/config"
	"github.com/ethpandaops/curvewatch/curve"
	"github.com/ethpandaops/curvewatch/curve/curvetest"
	"github.com/ethpandaops/curvewatch/services"
	"github.com/ethpandaops/curvewatch/types"
)

var tokenPath = "/api/v1/token/" + curvetest.Token.Hex()

type testResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func setupTestService(t *testing.T, backend *curvetest.Backend, withWallet bool) *services.CurveService {
	t.Helper()

	cfg := &types.Config{}
	require.NoError(t, yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg))
	cfg.Chain.FactoryAddress = curvetest.Factory.Hex()
	cfg.Curve.RetryAttempts = 0
	cfg.Curve.EstimateDebounce = 10 * time.Millisecond
	cfg.Curve.NotifyCooldown = 0
	if withWallet {
		cfg.Wallet.Address = curvetest.Wallet.Hex()
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger, _ := test.NewNullLogger()
	service, err := services.NewCurveService(ctx, backend, cfg, logger)
	require.NoError(t, err)

	services.GlobalCurveService = service
	t.Cleanup(func() {
		services.GlobalCurveService = nil
		cancel()
	})

	return service
}

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, method string, path string, data interface{}) (int, string) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if rec.Code == http.StatusMethodNotAllowed {
		return rec.Code, ""
	}

	response := &testResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response), rec.Body.String())
	if data != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(response.Data, data))
	}

	return rec.Code, response.Status
}

func TestApiToken(t *testing.T) {
	backend := curvetest.NewBackend()
	setupTestService(t, backend, false)

	token := &APITokenResponseV1{}
	code, status := doRequest(t, "GET", tokenPath, token)
	require.Equal(t, http.StatusOK, code, status)
	assert.Equal(t, "OK", status)

	assert.Equal(t, curvetest.Token.Hex(), token.Token)
	assert.Equal(t, "TRADING", token.State)
	assert.True(t, token.Tradable)
	assert.Equal(t, "20", token.Collateral)
	assert.Equal(t, "25", token.FundingGoal)
	assert.Equal(t, 80.0, token.FundingPercentage)
	assert.False(t, token.IsGoalReached)
	assert.Equal(t, uint64(30), token.TradingFeeBps)
	assert.Equal(t, "20 ETH", token.Display.Collateral)
	assert.Equal(t, "80%", token.Display.FundingPercentage)
	assert.False(t, token.Stale)
}

func TestApiTokenErrors(t *testing.T) {
	backend := curvetest.NewBackend()
	setupTestService(t, backend, false)

	code, status := doRequest(t, "GET", "/api/v1/token/0x1234", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.True(t, strings.HasPrefix(status, "ERROR: "))

	backend.Set(func(b *curvetest.Backend) {
		b.Reverts["collateral"] = true
	})
	code, _ = doRequest(t, "GET", tokenPath, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	backend.Set(func(b *curvetest.Backend) {
		b.Reverts = map[string]bool{}
		b.State = 9
	})
	code, _ = doRequest(t, "GET", tokenPath, nil)
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestApiEstimate(t *testing.T) {
	setupTestService(t, curvetest.NewBackend(), false)

	tests := []struct {
		name     string
		query    string
		code     int
		estimate string
	}{
		{"buy", "?direction=buy&amount=2", http.StatusOK, "2000"},
		{"sell", "?direction=sell&amount=0.5", http.StatusOK, "500"},
		{"missing amount", "?direction=buy", http.StatusBadRequest, ""},
		{"malformed amount", "?direction=buy&amount=1e5", http.StatusBadRequest, ""},
		{"too many decimals", "?direction=buy&amount=0.0000000000000000001", http.StatusBadRequest, ""},
		{"unknown direction", "?direction=swap&amount=1", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			estimate := &APIEstimateResponseV1{}
			code, status := doRequest(t, "GET", tokenPath+"/estimate"+tt.query, estimate)
			require.Equal(t, tt.code, code, status)
			if tt.code == http.StatusOK {
				assert.Equal(t, tt.estimate, estimate.Estimate)
			}
		})
	}
}

func TestApiImpact(t *testing.T) {
	setupTestService(t, curvetest.NewBackend(), false)

	impact := &services.TradeImpact{}
	code, status := doRequest(t, "GET", tokenPath+"/impact?direction=buy&amount=1", impact)
	require.Equal(t, http.StatusOK, code, status)
	assert.Equal(t, "1000", impact.Estimate)
	assert.Equal(t, 1.0, impact.Slippage)
	assert.Equal(t, "990", impact.MinReceived)

	code, status = doRequest(t, "GET", tokenPath+"/impact?direction=buy&amount=1&slippage=5", impact)
	require.Equal(t, http.StatusOK, code, status)
	assert.Equal(t, "950", impact.MinReceived)

	code, _ = doRequest(t, "GET", tokenPath+"/impact?direction=buy&amount=1&slippage=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestApiRefresh(t *testing.T) {
	backend := curvetest.NewBackend()
	setupTestService(t, backend, false)

	backend.Set(func(b *curvetest.Backend) {
		b.Values["collateral"] = curvetest.Ether("25")
	})

	token := &APITokenResponseV1{}
	code, status := doRequest(t, "POST", tokenPath+"/refresh", token)
	require.Equal(t, http.StatusOK, code, status)
	assert.True(t, token.IsGoalReached)

	code, _ = doRequest(t, "GET", tokenPath+"/refresh", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}

func TestApiMetadataDisabled(t *testing.T) {
	setupTestService(t, curvetest.NewBackend(), false)

	code, _ := doRequest(t, "GET", tokenPath+"/metadata", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestApiWallet(t *testing.T) {
	backend := curvetest.NewBackend()
	backend.Native = curvetest.Ether("2")
	backend.Balances[curvetest.Token] = curvetest.Ether("300")
	setupTestService(t, backend, true)

	wallet := &APIWalletResponseV1{}
	code, status := doRequest(t, "GET", "/api/v1/wallet", wallet)
	require.Equal(t, http.StatusOK, code, status)
	assert.Equal(t, curvetest.Wallet.Hex(), wallet.Address)
	assert.Equal(t, "2000000000000000000", wallet.Native.Raw)
	assert.Equal(t, "2", wallet.Native.Truncated)
	assert.Nil(t, wallet.TokenBalance)

	code, status = doRequest(t, "POST", "/api/v1/wallet/token?token="+curvetest.Token.Hex(), nil)
	require.Equal(t, http.StatusOK, code, status)

	require.Eventually(t, func() bool {
		_, err := services.GlobalCurveService.Wallet().RefreshNow(context.Background())
		if err != nil {
			return false
		}
		wallet := &APIWalletResponseV1{}
		doRequest(t, "GET", "/api/v1/wallet", wallet)
		return wallet.TokenBalance != nil && wallet.TokenBalance.Truncated == "300"
	}, time.Second, 10*time.Millisecond)

	validate := &APIWalletValidateResponseV1{}
	code, _ = doRequest(t, "GET", "/api/v1/wallet/validate?direction=buy&amount=1.5", validate)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, validate.Valid)

	code, _ = doRequest(t, "GET", "/api/v1/wallet/validate?direction=sell&amount=301", validate)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, validate.Valid)

	max := &APIWalletMaxResponseV1{}
	code, _ = doRequest(t, "GET", "/api/v1/wallet/max?direction=buy", max)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.9", max.Max)

	code, _ = doRequest(t, "GET", "/api/v1/wallet/max?direction=hold", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestApiWalletNotConfigured(t *testing.T) {
	setupTestService(t, curvetest.NewBackend(), false)

	code, _ := doRequest(t, "GET", "/api/v1/wallet", nil)
	assert.Equal(t, http.StatusNotFound, code)

	max := &APIWalletMaxResponseV1{}
	code, _ = doRequest(t, "GET", "/api/v1/wallet/max?direction=buy", max)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "0", max.Max)
}

func TestApiServiceNotReady(t *testing.T) {
	services.GlobalCurveService = nil

	code, _ := doRequest(t, "GET", tokenPath, nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestApiRateLimit(t *testing.T) {
	setupTestService(t, curvetest.NewBackend(), false)

	services.GlobalCallRateLimiter = services.NewCallRateLimiter(0, 1, 1)
	t.Cleanup(func() {
		services.GlobalCallRateLimiter = nil
	})

	code, _ := doRequest(t, "GET", tokenPath, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = doRequest(t, "GET", tokenPath, nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestApiTokenEvents(t *testing.T) {
	backend := curvetest.NewBackend()
	backend.Head = 100
	service := setupTestService(t, backend, false)
	require.NoError(t, service.GetWatcher().Poll(context.Background()))

	server := httptest.NewServer(newTestRouter())
	defer server.Close()

	stream, err := eventsource.Subscribe(server.URL+tokenPath+"/events", "")
	require.NoError(t, err)
	defer stream.Close()

	backend.Set(func(b *curvetest.Backend) {
		b.Logs = append(b.Logs, b.PurchaseLog(curvetest.Token, 101))
		b.Head = 101
	})
	require.NoError(t, service.GetWatcher().Poll(context.Background()))

	select {
	case ev := <-stream.Events:
		assert.Equal(t, string(curve.EventTokensPurchased), ev.Event())
		assert.Equal(t, "101-0", ev.Id())

		parsed := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(ev.Data()), &parsed))
		assert.Equal(t, curvetest.Token.Hex(), parsed["tokenAddress"])
	case err := <-stream.Errors:
		t.Fatalf("stream error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("no event streamed")
	}
}

func TestApiDocs(t *testing.T) {
	router := mux.NewRouter()
	RegisterDocs(router)

	req := httptest.NewRequest("GET", "/api/docs/doc.json", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	doc := struct {
		BasePath string                            `json:"basePath"`
		Paths    map[string]map[string]interface{} `json:"paths"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc), rec.Body.String())
	assert.Equal(t, "/", doc.BasePath)

	routes := []struct {
		path   string
		method string
	}{
		{"/api/v1/token/{address}", "get"},
		{"/api/v1/token/{address}/estimate", "get"},
		{"/api/v1/token/{address}/refresh", "post"},
		{"/api/v1/token/{address}/events", "get"},
		{"/api/v1/wallet/token", "post"},
		{"/api/v1/wallet/max", "get"},
	}
	for _, route := range routes {
		assert.Contains(t, doc.Paths[route.path], route.method, route.path)
	}
}
