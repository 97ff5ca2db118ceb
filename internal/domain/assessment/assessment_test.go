package assessment_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/okian/talentscore/internal/domain/assessment"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given raw scores", t, func() {
		Convey("When they are out of range", func() {
			So(assessment.Normalize(-12), ShouldEqual, 0)
			So(assessment.Normalize(140.7), ShouldEqual, 100)
		})

		Convey("When they carry extra precision", func() {
			So(assessment.Normalize(87.46), ShouldEqual, 87.5)
			So(assessment.Normalize(87.44), ShouldEqual, 87.4)
		})

		Convey("When the value is NaN", func() {
			So(assessment.Normalize(math.NaN()), ShouldEqual, 0)
		})

		Convey("When normalizing twice", func() {
			for _, v := range []float64{-5, 0, 33.333, 72.25, 99.99, 250} {
				once := assessment.Normalize(v)
				So(assessment.Normalize(once), ShouldEqual, once)
			}
		})

		Convey("When the optional value is absent", func() {
			out := assessment.NormalizeOptional(assessment.None[float64]())
			So(out.IsSome(), ShouldBeFalse)
		})

		Convey("When the optional value is present", func() {
			out := assessment.NormalizeOptional(assessment.Some(101.0))
			v, ok := out.Get()
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 100)
		})
	})
}

func TestNormalizeTags(t *testing.T) {
	Convey("Given category tags", t, func() {
		Convey("When they contain case variants and duplicates", func() {
			tags := assessment.NormalizeTags([]string{" Singer", "singer", "Voice Over", "", "dancer"})
			So(tags, ShouldResemble, []string{"singer", "voice-over", "dancer"})
		})

		Convey("When nothing usable is supplied", func() {
			So(assessment.NormalizeTags(nil), ShouldResemble, []string{assessment.GenericTag})
			So(assessment.TagsFromHint(" , "), ShouldResemble, []string{assessment.GenericTag})
		})

		Convey("When a hint lists several categories", func() {
			So(assessment.TagsFromHint("Actor, comedian"), ShouldResemble, []string{"actor", "comedian"})
		})
	})
}

func TestAssessmentJSON(t *testing.T) {
	Convey("Given an assessment with undetected modalities", t, func() {
		a := assessment.Assessment{
			PerformanceScore: 81.2,
			ExpressionScore:  80,
			TimingScore:      79,
			QualityScore:     84,
			MovementScore:    assessment.Some(66.5),
			CategoryTags:     []string{"dancer"},
			Strategy:         assessment.StrategyVision,
		}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(a)
			So(err, ShouldBeNil)

			var decoded map[string]any
			So(json.Unmarshal(raw, &decoded), ShouldBeNil)

			Convey("Then absent scores are null and internal fields are hidden", func() {
				So(decoded["vocalScore"], ShouldBeNil)
				So(decoded["movementScore"], ShouldEqual, 66.5)
				So(decoded, ShouldNotContainKey, "feedback")
				So(decoded, ShouldNotContainKey, "Strategy")
			})
		})
	})
}

func TestAssessmentNormalized(t *testing.T) {
	Convey("Given an assessment with raw values", t, func() {
		a := assessment.Assessment{
			PerformanceScore: 120,
			ExpressionScore:  -4,
			TimingScore:      70.04,
			QualityScore:     75.56,
			VocalScore:       assessment.Some(100.01),
		}

		Convey("When it is normalized", func() {
			n := a.Normalized()

			Convey("Then every field lands in range", func() {
				So(n.PerformanceScore, ShouldEqual, 100)
				So(n.ExpressionScore, ShouldEqual, 0)
				So(n.TimingScore, ShouldEqual, 70)
				So(n.QualityScore, ShouldEqual, 75.6)
				So(n.VocalScore.OrElse(-1), ShouldEqual, 100)
				So(n.MovementScore.IsSome(), ShouldBeFalse)
				So(n.CategoryTags, ShouldResemble, []string{assessment.GenericTag})
			})
		})
	})
}
