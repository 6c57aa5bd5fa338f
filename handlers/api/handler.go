package api

import (
	"github.com/gorilla/mux"
)

// @title Curvewatch API
// @version 1.0
// @description Read-only access to bonding curve token state, trade estimates and wallet balances.
// @BasePath /
// @schemes http https

// @tag.name Token
// @tag.description Bonding curve token state and trade estimates

// @tag.name Wallet
// @tag.description Tracked wallet balances

// @tag.name Events
// @tag.description Server sent event streams

// RegisterRoutes adds all api v1 routes to router
func RegisterRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/token/{address}", ApiTokenV1).Methods("GET")
	apiRouter.HandleFunc("/token/{address}/estimate", ApiTokenEstimateV1).Methods("GET")
	apiRouter.HandleFunc("/token/{address}/impact", ApiTokenImpactV1).Methods("GET")
	apiRouter.HandleFunc("/token/{address}/refresh", ApiTokenRefreshV1).Methods("POST")
	apiRouter.HandleFunc("/token/{address}/metadata", ApiTokenMetadataV1).Methods("GET")
	apiRouter.HandleFunc("/token/{address}/events", ApiTokenEventsV1).Methods("GET")
	apiRouter.HandleFunc("/notices", ApiNoticesV1).Methods("GET")

	apiRouter.HandleFunc("/wallet", ApiWalletV1).Methods("GET")
	apiRouter.HandleFunc("/wallet/token", ApiWalletTokenV1).Methods("POST")
	apiRouter.HandleFunc("/wallet/validate", ApiWalletValidateV1).Methods("GET")
	apiRouter.HandleFunc("/wallet/max", ApiWalletMaxV1).Methods("GET")
}
