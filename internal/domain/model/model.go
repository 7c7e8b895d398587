// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"

	"github.com/okian/fraudrisk/internal/domain/types"
)

// Field names as they appear on the wire and in model artifacts.
const (
	FieldTotalTransactions   = "total_transactions"
	FieldTotalDaysActive     = "total_days_active"
	FieldTotalBulkOrders     = "total_bulk_orders"
	FieldWeekendOrders       = "weekend_orders"
	FieldAvgOrderValue       = "avg_order_value"
	FieldAvgInvoiceHour      = "avg_invoice_hour"
	FieldAvgInvoiceFrequency = "avg_invoice_frequency"
	FieldBulkRatio           = "bulk_ratio"
	FieldWeekendRatio        = "weekend_ratio"
)

// Hour bounds for AvgInvoiceHour, inclusive.
const (
	MinInvoiceHour = 0
	MaxInvoiceHour = 23
)

// FeatureCount is the length of the classifier input.
const FeatureCount = 6

// FeatureNames is the column order the normalizer and classifier were fit on.
// Reordering it silently corrupts predictions.
var FeatureNames = [FeatureCount]string{
	FieldAvgInvoiceFrequency,
	FieldTotalTransactions,
	FieldAvgOrderValue,
	FieldBulkRatio,
	FieldWeekendRatio,
	FieldAvgInvoiceHour,
}

// RawInput holds the behavioural counters submitted for one customer.
type RawInput struct {
	TotalTransactions int64   `json:"total_transactions"`
	TotalDaysActive   int64   `json:"total_days_active"`
	TotalBulkOrders   int64   `json:"total_bulk_orders"`
	WeekendOrders     int64   `json:"weekend_orders"`
	AvgOrderValue     float64 `json:"avg_order_value"`
	AvgInvoiceHour    float64 `json:"avg_invoice_hour"`
}

// FieldError reports the first constraint a RawInput violates.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the per-field constraints. It returns a *FieldError for the
// first violation in declaration order.
func (in RawInput) Validate() error {
	switch {
	case in.TotalTransactions <= 0:
		return &FieldError{Field: FieldTotalTransactions, Message: "must be greater than 0"}
	case in.TotalDaysActive <= 0:
		return &FieldError{Field: FieldTotalDaysActive, Message: "must be greater than 0"}
	case in.TotalBulkOrders < 0:
		return &FieldError{Field: FieldTotalBulkOrders, Message: "must be greater than or equal to 0"}
	case in.WeekendOrders < 0:
		return &FieldError{Field: FieldWeekendOrders, Message: "must be greater than or equal to 0"}
	case math.IsNaN(in.AvgOrderValue) || math.IsInf(in.AvgOrderValue, 0) || in.AvgOrderValue <= 0:
		return &FieldError{Field: FieldAvgOrderValue, Message: "must be a finite number greater than 0"}
	case math.IsNaN(in.AvgInvoiceHour) || in.AvgInvoiceHour < MinInvoiceHour || in.AvgInvoiceHour > MaxInvoiceHour:
		return &FieldError{Field: FieldAvgInvoiceHour, Message: "must be between 0 and 23"}
	}
	return nil
}

// DerivedFeatures are the ratios computed from a RawInput. They are never
// stored; callers recompute them from the raw counters.
type DerivedFeatures struct {
	AvgInvoiceFrequency float64 `json:"avg_invoice_frequency"`
	BulkRatio           float64 `json:"bulk_ratio"`
	WeekendRatio        float64 `json:"weekend_ratio"`
}

// FeatureVector is the classifier input, ordered as FeatureNames.
type FeatureVector [FeatureCount]float64

// RiskResult is the scoring outcome returned to callers.
type RiskResult struct {
	FraudProbability float64         `json:"fraud_probability"`
	RiskScore        float64         `json:"risk_score"`
	RiskLevel        types.RiskLevel `json:"risk_level"`
	Decision         types.Decision  `json:"decision"`
}
