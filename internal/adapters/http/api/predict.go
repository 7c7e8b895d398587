package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"

	service "github.com/okian/fraudrisk/internal/app"
	"github.com/okian/fraudrisk/internal/domain/model"
)

// Request body limits.
const (
	maxPredictBody = 64 << 10
	maxBatchBody   = 8 << 20
)

// predictRequest mirrors the OpenAPI schema for POST /predict. Pointers
// distinguish a missing field from a zero value.
type predictRequest struct {
	TotalTransactions *wholeNumber `json:"total_transactions"`
	TotalDaysActive   *wholeNumber `json:"total_days_active"`
	TotalBulkOrders   *wholeNumber `json:"total_bulk_orders"`
	WeekendOrders     *wholeNumber `json:"weekend_orders"`
	AvgOrderValue     *float64     `json:"avg_order_value"`
	AvgInvoiceHour    *float64     `json:"avg_invoice_hour"`
}

// wholeNumber is a count decoded from any JSON number with an integral
// value, so 40 and 40.0 are accepted and 40.5 is not.
type wholeNumber int64

var int64Type = reflect.TypeFor[int64]()

func (n *wholeNumber) UnmarshalJSON(b []byte) error {
	s := string(b)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = wholeNumber(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= -math.MinInt64 {
		return &json.UnmarshalTypeError{Value: jsonKind(b), Type: int64Type}
	}
	*n = wholeNumber(f)
	return nil
}

// jsonKind names a raw JSON value the way encoding/json reports it.
func jsonKind(b []byte) string {
	switch b[0] {
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case '{':
		return "object"
	case '[':
		return "array"
	default:
		return "number " + string(b)
	}
}

// toRawInput checks presence in declaration order and converts.
func (p predictRequest) toRawInput() (model.RawInput, error) {
	switch {
	case p.TotalTransactions == nil:
		return model.RawInput{}, missing(model.FieldTotalTransactions)
	case p.TotalDaysActive == nil:
		return model.RawInput{}, missing(model.FieldTotalDaysActive)
	case p.TotalBulkOrders == nil:
		return model.RawInput{}, missing(model.FieldTotalBulkOrders)
	case p.WeekendOrders == nil:
		return model.RawInput{}, missing(model.FieldWeekendOrders)
	case p.AvgOrderValue == nil:
		return model.RawInput{}, missing(model.FieldAvgOrderValue)
	case p.AvgInvoiceHour == nil:
		return model.RawInput{}, missing(model.FieldAvgInvoiceHour)
	}
	return model.RawInput{
		TotalTransactions: int64(*p.TotalTransactions),
		TotalDaysActive:   int64(*p.TotalDaysActive),
		TotalBulkOrders:   int64(*p.TotalBulkOrders),
		WeekendOrders:     int64(*p.WeekendOrders),
		AvgOrderValue:     *p.AvgOrderValue,
		AvgInvoiceHour:    *p.AvgInvoiceHour,
	}, nil
}

func missing(field string) error {
	return &model.FieldError{Field: field, Message: "field required"}
}

type batchRequest struct {
	Inputs []predictRequest `json:"inputs"`
}

type batchResponse struct {
	Results []model.RiskResult `json:"results"`
}

// PredictHandler serves the scoring endpoints.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}

	var req predictRequest
	if err := decodeBody(w, r, maxPredictBody, &req); err != nil {
		writeDecodeError(w, op, err)
		return
	}
	in, err := req.toRawInput()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", WrapKind(op, ErrValidation, err))
		return
	}

	_, result, err := h.deps.Assess(r.Context(), in)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandlePredictBatch handles POST /predict/batch requests.
func (h *PredictHandler) HandlePredictBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict_batch"
	if !allowMethod(w, r, op, http.MethodPost) {
		return
	}

	var req batchRequest
	if err := decodeBody(w, r, maxBatchBody, &req); err != nil {
		writeDecodeError(w, op, err)
		return
	}
	if req.Inputs == nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", WrapKind(op, ErrValidation, missing("inputs")))
		return
	}

	inputs := make([]model.RawInput, len(req.Inputs))
	for i, item := range req.Inputs {
		in, err := item.toRawInput()
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error",
				WrapKind(op, ErrValidation, &service.BatchItemError{Index: i, Err: err}))
			return
		}
		inputs[i] = in
	}

	results, err := h.deps.AssessBatch(r.Context(), inputs)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results})
}

// decodeBody reads exactly one JSON value from the body. Unknown fields are
// ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// writeDecodeError maps JSON type mismatches to 422 (the field is known) and
// everything else to 400.
func writeDecodeError(w http.ResponseWriter, op string, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		fe := &model.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
		}
		writeError(w, http.StatusUnprocessableEntity, "validation_error", WrapKind(op, ErrValidation, fe))
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
}

// writeServiceError translates service errors into HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var fe *model.FieldError
	switch {
	case errors.As(err, &fe), errors.Is(err, service.ErrEmptyBatch):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", WrapKind(op, ErrValidation, err))
	case errors.Is(err, service.ErrBatchTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "batch_too_large", WrapKind(op, ErrValidation, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrInternal, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", WrapKind(op, ErrInternal, err))
	}
}
