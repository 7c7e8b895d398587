package features_test

import (
	"testing"

	"github.com/okian/fraudrisk/internal/domain/features"
	"github.com/okian/fraudrisk/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDerive(t *testing.T) {
	Convey("Given the reference customer", t, func() {
		in := model.RawInput{
			TotalTransactions: 100,
			TotalDaysActive:   50,
			TotalBulkOrders:   10,
			WeekendOrders:     20,
			AvgOrderValue:     250.0,
			AvgInvoiceHour:    14,
		}

		Convey("When deriving features", func() {
			d := features.Derive(in)

			Convey("Then the ratios match the reference values", func() {
				So(d.AvgInvoiceFrequency, ShouldEqual, 2.0)
				So(d.BulkRatio, ShouldEqual, 0.1)
				So(d.WeekendRatio, ShouldEqual, 0.2)
			})
		})

		Convey("When building the model vector", func() {
			_, vec := features.Build(in)

			Convey("Then it follows the fixed feature order", func() {
				So(vec, ShouldResemble, model.FeatureVector{2.0, 100, 250.0, 0.1, 0.2, 14})
			})
		})
	})

	Convey("Given a customer active for a single day", t, func() {
		in := model.RawInput{TotalTransactions: 7, TotalDaysActive: 1, AvgOrderValue: 1, AvgInvoiceHour: 0}

		Convey("Then the frequency equals the transaction count", func() {
			So(features.Derive(in).AvgInvoiceFrequency, ShouldEqual, 7.0)
		})
	})

	Convey("Given zero bulk and weekend orders", t, func() {
		in := model.RawInput{TotalTransactions: 3, TotalDaysActive: 9}

		Convey("Then both ratios are zero", func() {
			d := features.Derive(in)
			So(d.BulkRatio, ShouldEqual, 0)
			So(d.WeekendRatio, ShouldEqual, 0)
			So(d.AvgInvoiceFrequency, ShouldEqual, 3.0/9.0)
		})
	})

	Convey("Given zero denominators outside the validated domain", t, func() {
		in := model.RawInput{TotalTransactions: 0, TotalDaysActive: 0, TotalBulkOrders: 4, WeekendOrders: 2}

		Convey("Then the denominators are floored at one", func() {
			d := features.Derive(in)
			So(d.AvgInvoiceFrequency, ShouldEqual, 0)
			So(d.BulkRatio, ShouldEqual, 4.0)
			So(d.WeekendRatio, ShouldEqual, 2.0)
		})
	})

	Convey("Given ratios above one", t, func() {
		in := model.RawInput{TotalTransactions: 4, TotalDaysActive: 2, TotalBulkOrders: 10, WeekendOrders: 6}

		Convey("Then they are not capped", func() {
			d := features.Derive(in)
			So(d.BulkRatio, ShouldEqual, 2.5)
			So(d.WeekendRatio, ShouldEqual, 1.5)
		})
	})
}
