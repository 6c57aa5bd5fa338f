package api

import (
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/ethpandaops/curvewatch/docs"
)

// RegisterDocs serves the swagger ui and the api description below /api/docs/
func RegisterDocs(router *mux.Router) {
	router.PathPrefix("/api/docs/").Handler(httpSwagger.WrapHandler)
}
