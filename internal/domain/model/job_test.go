package model_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewJob(t *testing.T) {
	convey.Convey("Given a video request", t, func() {
		req := assessment.Request{VideoID: "v-1", VideoLocator: "https://cdn.example.com/v-1/master.m3u8"}

		convey.Convey("When two jobs are created", func() {
			before := time.Now()
			a := model.NewJob(req)
			b := model.NewJob(req)

			convey.Convey("Then each carries a distinct UUID", func() {
				_, err := uuid.Parse(a.ID)
				convey.So(err, convey.ShouldBeNil)
				convey.So(a.ID, convey.ShouldNotEqual, b.ID)
			})

			convey.Convey("Then the request and enqueue time are kept", func() {
				convey.So(a.Request, convey.ShouldResemble, req)
				convey.So(a.EnqueuedAt, convey.ShouldHappenOnOrAfter, before)
			})
		})
	})
}
