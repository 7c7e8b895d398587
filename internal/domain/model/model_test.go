package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/okian/fraudrisk/internal/domain/model"
	"github.com/okian/fraudrisk/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func validInput() model.RawInput {
	return model.RawInput{
		TotalTransactions: 100,
		TotalDaysActive:   50,
		TotalBulkOrders:   10,
		WeekendOrders:     20,
		AvgOrderValue:     250,
		AvgInvoiceHour:    14,
	}
}

func TestRawInputValidate(t *testing.T) {
	Convey("Given a valid raw input", t, func() {
		in := validInput()

		Convey("Then it validates", func() {
			So(in.Validate(), ShouldBeNil)
		})

		Convey("And the inclusive bounds are accepted", func() {
			in.TotalBulkOrders = 0
			in.WeekendOrders = 0
			in.AvgInvoiceHour = 0
			So(in.Validate(), ShouldBeNil)
			in.AvgInvoiceHour = 23
			So(in.Validate(), ShouldBeNil)
		})
	})

	Convey("Given inputs that violate one constraint each", t, func() {
		cases := []struct {
			field  string
			mutate func(*model.RawInput)
		}{
			{model.FieldTotalTransactions, func(in *model.RawInput) { in.TotalTransactions = 0 }},
			{model.FieldTotalDaysActive, func(in *model.RawInput) { in.TotalDaysActive = -1 }},
			{model.FieldTotalBulkOrders, func(in *model.RawInput) { in.TotalBulkOrders = -1 }},
			{model.FieldWeekendOrders, func(in *model.RawInput) { in.WeekendOrders = -3 }},
			{model.FieldAvgOrderValue, func(in *model.RawInput) { in.AvgOrderValue = 0 }},
			{model.FieldAvgOrderValue, func(in *model.RawInput) { in.AvgOrderValue = math.Inf(1) }},
			{model.FieldAvgInvoiceHour, func(in *model.RawInput) { in.AvgInvoiceHour = 23.5 }},
			{model.FieldAvgInvoiceHour, func(in *model.RawInput) { in.AvgInvoiceHour = -0.1 }},
			{model.FieldAvgInvoiceHour, func(in *model.RawInput) { in.AvgInvoiceHour = math.NaN() }},
		}

		for _, c := range cases {
			in := validInput()
			c.mutate(&in)
			err := in.Validate()

			So(err, ShouldNotBeNil)
			var fe *model.FieldError
			So(errors.As(err, &fe), ShouldBeTrue)
			So(fe.Field, ShouldEqual, c.field)
			So(err.Error(), ShouldStartWith, c.field+": ")
		}
	})
}

func TestFeatureNames(t *testing.T) {
	Convey("Given the model feature order", t, func() {
		Convey("Then it matches the order the model was fit on", func() {
			So(model.FeatureNames, ShouldResemble, [model.FeatureCount]string{
				"avg_invoice_frequency",
				"total_transactions",
				"avg_order_value",
				"bulk_ratio",
				"weekend_ratio",
				"avg_invoice_hour",
			})
		})
	})
}

func TestRiskResultJSON(t *testing.T) {
	Convey("Given a risk result", t, func() {
		res := model.RiskResult{
			FraudProbability: 0.4321,
			RiskScore:        43.21,
			RiskLevel:        types.RiskMedium,
			Decision:         types.DecisionManualReview,
		}

		Convey("When encoded", func() {
			b, err := json.Marshal(res)
			So(err, ShouldBeNil)

			Convey("Then exactly the four contract fields are present", func() {
				var m map[string]interface{}
				So(json.Unmarshal(b, &m), ShouldBeNil)
				So(len(m), ShouldEqual, 4)
				So(m["fraud_probability"], ShouldEqual, 0.4321)
				So(m["risk_score"], ShouldEqual, 43.21)
				So(m["risk_level"], ShouldEqual, "Medium")
				So(m["decision"], ShouldEqual, "Manual Review")
			})
		})
	})
}
