package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/digitalboy/Investment-Strategy-Designer/internal/chart"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/engine"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/marketdata"
	"github.com/digitalboy/Investment-Strategy-Designer/internal/store"
)

// Error codes carried in the JSON error envelope.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeData       = "DATA_ERROR"
	CodeBacktest   = "BACKTEST_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
)

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is every problem found in one request.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// ErrorBody is the payload under "error" in failed HTTP responses.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details []ValidationError `json:"details,omitempty"`
}

// classify maps a service error to its envelope, HTTP status and gRPC code.
func classify(err error) (ErrorBody, int, codes.Code) {
	var verrs ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return ErrorBody{Code: CodeValidation, Message: "Invalid input parameters", Details: verrs},
			http.StatusBadRequest, codes.InvalidArgument
	case errors.Is(err, store.ErrNotFound):
		return ErrorBody{Code: CodeNotFound, Message: "Resource not found"},
			http.StatusNotFound, codes.NotFound
	case errors.Is(err, marketdata.ErrNoData):
		return ErrorBody{Code: CodeData, Message: fmt.Sprintf("Price data is required for backtesting: %v", err)},
			http.StatusUnprocessableEntity, codes.FailedPrecondition
	case errors.Is(err, chart.ErrTooFewPoints):
		return ErrorBody{Code: CodeData, Message: "Not enough points to draw a chart"},
			http.StatusUnprocessableEntity, codes.FailedPrecondition
	case errors.Is(err, engine.ErrBacktestFailed):
		return ErrorBody{Code: CodeBacktest, Message: "An error occurred while running the backtest"},
			http.StatusInternalServerError, codes.Internal
	default:
		return ErrorBody{Code: CodeInternal, Message: "Internal server error"},
			http.StatusInternalServerError, codes.Internal
	}
}
