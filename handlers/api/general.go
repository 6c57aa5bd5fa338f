package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/curvewatch/curve"
	"github.com/ethpandaops/curvewatch/metadata"
	"github.com/ethpandaops/curvewatch/services"
)

type ApiResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

func sendBadRequestResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, http.StatusBadRequest)
}

func sendServerErrorResponse(w http.ResponseWriter, route, message string) {
	sendErrorWithCodeResponse(w, route, message, http.StatusInternalServerError)
}

func sendErrorWithCodeResponse(w http.ResponseWriter, route, message string, errorcode int) {
	w.WriteHeader(errorcode)
	j := json.NewEncoder(w)
	response := &ApiResponse{}
	response.Status = "ERROR: " + message
	err := j.Encode(response)

	if err != nil {
		logrus.Errorf("error serializing json error for API %v route: %v", route, err)
	}
}

// sendCurveErrorResponse maps err to the status code of its error kind
func sendCurveErrorResponse(w http.ResponseWriter, route string, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, curve.ErrInvalidInput):
		code = http.StatusBadRequest
	case errors.Is(err, metadata.ErrTokenNotFound), errors.Is(err, metadata.ErrDisabled), errors.Is(err, services.ErrNoWallet):
		code = http.StatusNotFound
	case errors.Is(err, curve.ErrContractReverted):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, curve.ErrDecodeError):
		code = http.StatusBadGateway
	case errors.Is(err, curve.ErrNetworkUnavailable), errors.Is(err, curve.ErrCancelled):
		code = http.StatusServiceUnavailable
	case errors.Is(err, curve.ErrTimeout):
		code = http.StatusGatewayTimeout
	}

	sendErrorWithCodeResponse(w, route, err.Error(), code)
}

func SendOKResponse(j *json.Encoder, route string, data []interface{}) {
	response := &ApiResponse{}
	response.Status = "OK"

	if len(data) == 1 {
		response.Data = data[0]
	} else {
		response.Data = data
	}
	err := j.Encode(response)

	if err != nil {
		logrus.Errorf("error serializing json data for API %v route: %v", route, err)
	}
}

// checkCallLimit applies the call rate limit, it writes the error response and returns false if the call is rejected
func checkCallLimit(w http.ResponseWriter, r *http.Request, cost uint) bool {
	if err := services.GlobalCallRateLimiter.CheckCallLimit(r, cost); err != nil {
		sendErrorWithCodeResponse(w, r.URL.String(), err.Error(), http.StatusTooManyRequests)
		return false
	}
	return true
}
