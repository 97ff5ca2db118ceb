package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/talentscore/internal/app"
	"github.com/okian/talentscore/internal/config"
	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/scoring"
	"github.com/okian/talentscore/internal/domain/signal"
	"github.com/okian/talentscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeInference struct {
	reply string
	err   error
	calls atomic.Int32
}

func (f *fakeInference) Describe(_ context.Context, _ scoring.VisionRequest) (string, error) {
	f.calls.Add(1)
	return f.reply, f.err
}

type fakeDecoder struct {
	wave signal.Waveform
	err  error
}

func (f fakeDecoder) Decode(context.Context, string, int) (signal.Waveform, error) {
	return f.wave, f.err
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.VisionInlineImages = false
	cfg.WorkerCount = 2
	cfg.QueueSize = 4
	cfg.DedupeSize = 100
	return cfg
}

func videoRequest(id string) service.VideoRequest {
	return service.VideoRequest{Request: assessment.Request{
		VideoID:      id,
		VideoLocator: "https://cdn.example.com/" + id + "/master.m3u8",
		Duration:     assessment.Some(45.0),
		CategoryHint: "Singing",
	}}
}

func TestService_AnalyzeVideo(t *testing.T) {
	Convey("Given a service without vision credentials", t, func() {
		svc := service.New(testConfig(), service.WithNoise(scoring.ZeroNoise{}))
		ctx := context.Background()

		Convey("When a video is analyzed", func() {
			res, err := svc.AnalyzeVideo(ctx, videoRequest("v-1"))

			Convey("Then the heuristic assessment is returned", func() {
				So(err, ShouldBeNil)
				a := res.Assessment
				So(a.PerformanceScore, ShouldEqual, 72)
				So(a.TimingScore, ShouldEqual, 72)
				So(a.Feedback, ShouldEqual, scoring.HeuristicFeedback)
				So(a.CategoryTags, ShouldResemble, []string{"singing"})
				So(a.VocalScore.IsSome(), ShouldBeFalse)
			})
		})

		Convey("When required identifiers are missing", func() {
			_, err := svc.AnalyzeVideo(ctx, service.VideoRequest{Request: assessment.Request{VideoID: "v-1"}})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
			_, err = svc.AnalyzeVideo(ctx, service.VideoRequest{Request: assessment.Request{VideoLocator: "x.mp4"}})
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})

		Convey("When the duration is negative", func() {
			req := videoRequest("v-1")
			req.Duration = assessment.Some(-1.0)
			_, err := svc.AnalyzeVideo(ctx, req)
			So(errors.Is(err, service.ErrInvalidRequest), ShouldBeTrue)
		})
	})

	Convey("Given a service with a vision model", t, func() {
		client := &fakeInference{reply: `{"performanceScore": 88.26, "vocalScore": 90, "categoryTags": ["Vocal Jazz"]}`}
		svc := service.New(testConfig(), service.WithInferenceClient(client))

		Convey("When a video is analyzed", func() {
			res, err := svc.AnalyzeVideo(context.Background(), videoRequest("v-2"))

			Convey("Then the vision assessment is returned", func() {
				So(err, ShouldBeNil)
				So(res.Assessment.PerformanceScore, ShouldEqual, 88.3)
				So(res.Assessment.VocalScore.OrElse(0), ShouldEqual, 90)
				So(res.Assessment.CategoryTags, ShouldResemble, []string{"vocal-jazz"})
				So(client.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the model fails", func() {
			client.err = errors.New("boom")
			res, err := svc.AnalyzeVideo(context.Background(), videoRequest("v-3"))

			Convey("Then the heuristic result is used", func() {
				So(err, ShouldBeNil)
				So(res.Assessment.Feedback, ShouldEqual, scoring.HeuristicFeedback)
			})
		})
	})

	Convey("Given a service with an audio decoder", t, func() {
		ctx := context.Background()

		Convey("When the decoder fails", func() {
			svc := service.New(testConfig(),
				service.WithNoise(scoring.ZeroNoise{}),
				service.WithDecoder(fakeDecoder{err: errors.New("no ffmpeg")}),
			)
			req := videoRequest("v-4")
			req.AudioLocator = "https://cdn.example.com/v-4/audio.m4a"
			res, err := svc.AnalyzeVideo(ctx, req)

			Convey("Then the audio signal is skipped", func() {
				So(err, ShouldBeNil)
				So(res.Signals.Audio, ShouldBeNil)
				So(res.Assessment.VocalScore.IsSome(), ShouldBeFalse)
			})
		})

		Convey("When movement frames are supplied", func() {
			svc := service.New(testConfig(), service.WithNoise(scoring.ZeroNoise{}))
			req := videoRequest("v-5")
			req.Bundle.Pose = []signal.LandmarkFrame{
				{Points: []signal.Point{{X: 0.1, Y: 0.1}}},
				{Points: []signal.Point{{X: 0.2, Y: 0.1}}},
				{Points: []signal.Point{{X: 0.3, Y: 0.1}}},
			}
			res, err := svc.AnalyzeVideo(ctx, req)

			Convey("Then the movement score is fused in", func() {
				So(err, ShouldBeNil)
				So(res.Signals.Movement, ShouldNotBeNil)
				So(res.Signals.Movement.Detected, ShouldBeTrue)
				So(res.Assessment.MovementScore.IsSome(), ShouldBeTrue)
			})
		})
	})
}

func TestService_SignalAnalyzers(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := service.New(testConfig(), service.WithDecoder(fakeDecoder{err: errors.New("missing")}))
		ctx := context.Background()

		Convey("When audio is empty", func() {
			r := svc.AnalyzeAudio(ctx, signal.Waveform{SampleRate: 8000})
			So(r, ShouldResemble, signal.DefaultAudioReport)
		})

		Convey("When an audio source cannot be decoded", func() {
			r := svc.AnalyzeAudioSource(ctx, "clip.mp4")
			So(r, ShouldResemble, signal.DefaultAudioReport)
		})

		Convey("When no pose is detected", func() {
			r := svc.AnalyzeMovement(ctx, []signal.LandmarkFrame{{}, {}}, 0)
			So(r, ShouldResemble, signal.DefaultMovementReport)
		})

		Convey("When no face is detected", func() {
			r := svc.AnalyzeExpression(ctx, nil, 0)
			So(r, ShouldResemble, signal.DefaultExpressionReport)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(testConfig())
		ctx := context.Background()

		Convey("When batch work is submitted before start", func() {
			_, err := svc.SubmitBatch(ctx, nil)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When the service starts and stops", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stats()["started"], ShouldEqual, true)

			status, services := svc.Health(ctx)
			So(status, ShouldEqual, service.StatusHealthy)
			So(services["queue"], ShouldEqual, service.StatusReady)
			So(services["vision"], ShouldEqual, "unconfigured")

			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(sctx), ShouldBeNil)

			Convey("Then it reports stopped and degraded", func() {
				So(svc.Stats()["started"], ShouldEqual, false)
				status, _ := svc.Health(ctx)
				So(status, ShouldEqual, service.StatusDegraded)
				So(svc.Stop(sctx), ShouldBeNil)
			})
		})
	})
}
