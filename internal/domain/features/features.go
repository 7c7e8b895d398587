// Package features derives the ratio features and assembles the classifier
// input vector from raw behavioural counters.
package features

import "github.com/okian/fraudrisk/internal/domain/model"

// Derive computes the three ratio features. Denominators are floored at 1,
// so a zero counter divides by one rather than being skipped.
func Derive(in model.RawInput) model.DerivedFeatures {
	days := float64(max(in.TotalDaysActive, 1))
	txns := float64(max(in.TotalTransactions, 1))

	return model.DerivedFeatures{
		AvgInvoiceFrequency: float64(in.TotalTransactions) / days,
		BulkRatio:           float64(in.TotalBulkOrders) / txns,
		WeekendRatio:        float64(in.WeekendOrders) / txns,
	}
}

// Vector assembles the classifier input in model.FeatureNames order.
func Vector(in model.RawInput, d model.DerivedFeatures) model.FeatureVector {
	return model.FeatureVector{
		d.AvgInvoiceFrequency,
		float64(in.TotalTransactions),
		in.AvgOrderValue,
		d.BulkRatio,
		d.WeekendRatio,
		in.AvgInvoiceHour,
	}
}

// Build derives the ratios and assembles the vector in one step.
func Build(in model.RawInput) (model.DerivedFeatures, model.FeatureVector) {
	d := Derive(in)
	return d, Vector(in, d)
}
