package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/internal/domain/types"
	"github.com/okian/fraudrisk/pkg/logger"
)

// resultTemplate renders the #result fragment patched into the dashboard.
var resultTemplate = template.Must(template.New("result").Parse(`
<div id="result" class="result {{.Class}}">
  <h2>Risk assessment</h2>
  <div class="gauge"><div class="gauge-fill" style="width: {{.Width}}%"></div></div>
  <div class="tiles">
    <div class="tile"><span>Risk score</span><strong>{{printf "%.2f" .Result.RiskScore}}</strong></div>
    <div class="tile"><span>Fraud probability</span><strong>{{printf "%.4f" .Result.FraudProbability}}</strong></div>
    <div class="tile"><span>Risk level</span><strong>{{.Result.RiskLevel}}</strong></div>
    <div class="tile"><span>Decision</span><strong>{{.Result.Decision}}</strong></div>
  </div>
  <h3>Derived features</h3>
  <div class="tiles">
    <div class="tile"><span>Invoices per day</span><strong>{{printf "%.2f" .Derived.AvgInvoiceFrequency}}</strong></div>
    <div class="tile"><span>Bulk ratio</span><strong>{{printf "%.2f" .Derived.BulkRatio}}</strong></div>
    <div class="tile"><span>Weekend ratio</span><strong>{{printf "%.2f" .Derived.WeekendRatio}}</strong></div>
  </div>
  <h3>Customer inputs</h3>
  <div class="bars">
    {{- range .Inputs}}
    <div class="bar-row"><span>{{.Label}}</span><div class="bar"><div class="bar-fill" style="width: {{.Width}}%"></div></div><strong>{{.Value}}</strong></div>
    {{- end}}
  </div>
</div>`))

var failureTemplate = template.Must(template.New("failure").Parse(`
<div id="result" class="result failure">
  <h2>Could not score this customer</h2>
  <p>{{.}}</p>
</div>`))

const genericFailure = "The risk service could not process the request. Check the inputs and try again."

// signalNumber accepts a JSON number or a numeric string, since bound
// inputs may report either.
type signalNumber float64

func (n *signalNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return errors.New("empty value")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = signalNumber(f)
	return nil
}

// analyzeSignals are the sidebar inputs sent by the dashboard page.
type analyzeSignals struct {
	TotalTransactions signalNumber `json:"totalTransactions"`
	TotalDaysActive   signalNumber `json:"totalDaysActive"`
	TotalBulkOrders   signalNumber `json:"totalBulkOrders"`
	WeekendOrders     signalNumber `json:"weekendOrders"`
	AvgOrderValue     signalNumber `json:"avgOrderValue"`
	AvgInvoiceHour    signalNumber `json:"avgInvoiceHour"`
}

func (s analyzeSignals) toRawInput() (model.RawInput, error) {
	counts := []struct {
		field string
		value signalNumber
	}{
		{model.FieldTotalTransactions, s.TotalTransactions},
		{model.FieldTotalDaysActive, s.TotalDaysActive},
		{model.FieldTotalBulkOrders, s.TotalBulkOrders},
		{model.FieldWeekendOrders, s.WeekendOrders},
	}
	for _, c := range counts {
		v := float64(c.value)
		if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
			return model.RawInput{}, &model.FieldError{Field: c.field, Message: "must be a whole number"}
		}
	}
	return model.RawInput{
		TotalTransactions: int64(s.TotalTransactions),
		TotalDaysActive:   int64(s.TotalDaysActive),
		TotalBulkOrders:   int64(s.TotalBulkOrders),
		WeekendOrders:     int64(s.WeekendOrders),
		AvgOrderValue:     float64(s.AvgOrderValue),
		AvgInvoiceHour:    float64(s.AvgInvoiceHour),
	}, nil
}

type resultView struct {
	Result  model.RiskResult
	Derived model.DerivedFeatures
	Inputs  []inputBar
	Class   string
	Width   float64
}

// inputBar is one raw input drawn on a shared scale.
type inputBar struct {
	Label string
	Value string
	Width float64
}

// inputBars scales every raw input against the largest one.
func inputBars(in model.RawInput) []inputBar {
	values := []struct {
		label string
		value float64
	}{
		{"Total transactions", float64(in.TotalTransactions)},
		{"Total days active", float64(in.TotalDaysActive)},
		{"Total bulk orders", float64(in.TotalBulkOrders)},
		{"Weekend orders", float64(in.WeekendOrders)},
		{"Average order value", in.AvgOrderValue},
		{"Average invoice hour", in.AvgInvoiceHour},
	}
	peak := 0.0
	for _, v := range values {
		peak = math.Max(peak, v.value)
	}
	bars := make([]inputBar, 0, len(values))
	for _, v := range values {
		var width float64
		if peak > 0 {
			width = math.Round(v.value / peak * 100)
		}
		bars = append(bars, inputBar{
			Label: v.label,
			Value: strconv.FormatFloat(v.value, 'f', -1, 64),
			Width: width,
		})
	}
	return bars
}

// dashboardHandler serves the dashboard page and its analyze stream.
type dashboardHandler struct {
	deps   Dependencies
	logger logger.Logger
}

func newDashboardHandler(deps Dependencies, log logger.Logger) *dashboardHandler {
	return &dashboardHandler{deps: deps, logger: log}
}

// HandleDashboard handles GET /dashboard requests.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, "api.dashboard", http.MethodGet) {
		return
	}
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}

// HandleAnalyze handles POST /dashboard/analyze. It always answers with an
// SSE stream; failures patch a generic notice instead of the result.
func (h *dashboardHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, "api.dashboard_analyze", http.MethodPost) {
		return
	}

	var signals analyzeSignals
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		h.logger.Warn(r.Context(), "dashboard signals rejected", logger.Error(readErr))
		h.patchFailure(r, sse, genericFailure)
		return
	}

	in, err := signals.toRawInput()
	if err != nil {
		h.patchFailure(r, sse, err.Error())
		return
	}

	derived, result, err := h.deps.Assess(r.Context(), in)
	if err != nil {
		var fe *model.FieldError
		msg := genericFailure
		if errors.As(err, &fe) {
			msg = fe.Error()
		} else {
			h.logger.Error(r.Context(), "dashboard assessment failed", logger.Error(err))
		}
		h.patchFailure(r, sse, msg)
		return
	}

	var buf bytes.Buffer
	view := resultView{
		Result:  result,
		Derived: derived,
		Inputs:  inputBars(in),
		Class:   levelClass(result.RiskLevel),
		Width:   math.Min(math.Max(result.RiskScore, 0), 100),
	}
	if err := resultTemplate.Execute(&buf, view); err != nil {
		h.logger.Error(r.Context(), "render result fragment", logger.Error(err))
		h.patchFailure(r, sse, genericFailure)
		return
	}
	if err := sse.PatchElements(buf.String()); err != nil {
		h.logger.Debug(r.Context(), "patch result fragment", logger.Error(err))
		return
	}

	score, _ := json.Marshal(map[string]any{"lastScore": result.RiskScore})
	_ = sse.PatchSignals(score)
}

func (h *dashboardHandler) patchFailure(r *http.Request, sse *datastar.ServerSentEventGenerator, msg string) {
	var buf bytes.Buffer
	if err := failureTemplate.Execute(&buf, msg); err != nil {
		h.logger.Error(r.Context(), "render failure fragment", logger.Error(err))
		return
	}
	if err := sse.PatchElements(buf.String()); err != nil {
		h.logger.Debug(r.Context(), "patch failure fragment", logger.Error(err))
	}
}

func levelClass(l types.RiskLevel) string {
	switch l {
	case types.RiskHigh:
		return "high"
	case types.RiskMedium:
		return "medium"
	default:
		return "low"
	}
}
