package types_test

import (
	"testing"

	types "github.com/okian/fraudrisk/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRiskLevel(t *testing.T) {
	Convey("Given the risk tiers", t, func() {
		Convey("Then each tier is bound to exactly one decision", func() {
			So(types.RiskLow.Decision(), ShouldEqual, types.DecisionAllow)
			So(types.RiskMedium.Decision(), ShouldEqual, types.DecisionManualReview)
			So(types.RiskHigh.Decision(), ShouldEqual, types.DecisionFlagBlock)
			So(types.RiskLevel("Critical").Decision(), ShouldEqual, types.Decision(""))
		})

		Convey("And the wire forms match the response contract", func() {
			So(types.RiskLow.String(), ShouldEqual, "Low")
			So(types.RiskMedium.String(), ShouldEqual, "Medium")
			So(types.RiskHigh.String(), ShouldEqual, "High")
			So(types.DecisionFlagBlock.String(), ShouldEqual, "Flag / Block")
			So(types.DecisionManualReview.String(), ShouldEqual, "Manual Review")
		})

		Convey("And RiskLevels is ordered from lowest to highest", func() {
			So(types.RiskLevels, ShouldResemble, []types.RiskLevel{types.RiskLow, types.RiskMedium, types.RiskHigh})
		})
	})
}

func TestParse(t *testing.T) {
	Convey("Given wire strings", t, func() {
		Convey("When parsing known values", func() {
			lvl, err := types.ParseRiskLevel("Medium")
			So(err, ShouldBeNil)
			So(lvl, ShouldEqual, types.RiskMedium)

			dec, err := types.ParseDecision("Flag / Block")
			So(err, ShouldBeNil)
			So(dec, ShouldEqual, types.DecisionFlagBlock)
		})

		Convey("When parsing unknown or differently-cased values", func() {
			_, err := types.ParseRiskLevel("low")
			So(err, ShouldNotBeNil)

			_, err = types.ParseDecision("Block")
			So(err, ShouldNotBeNil)
		})
	})
}
