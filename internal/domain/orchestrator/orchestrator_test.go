package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/orchestrator"
	"github.com/okian/talentscore/internal/domain/scoring"
	"github.com/okian/talentscore/internal/domain/signal"
	"github.com/okian/talentscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type fakeScorer struct {
	mu        sync.Mutex
	result    assessment.Assessment
	err       error
	block     bool
	thumbnail string
}

func (f *fakeScorer) Score(ctx context.Context, thumbnail, _ string) (assessment.Assessment, error) {
	f.mu.Lock()
	f.thumbnail = thumbnail
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return assessment.Assessment{}, fmt.Errorf("%w: %w", scoring.ErrUpstream, ctx.Err())
	}
	return f.result, f.err
}

func visionResult() assessment.Assessment {
	return assessment.Assessment{
		PerformanceScore: 91.26,
		ExpressionScore:  88,
		TimingScore:      90,
		QualityScore:     93,
		VocalScore:       assessment.Some(94.0),
		CategoryTags:     []string{"singer"},
	}
}

func zeroHeuristic() orchestrator.Option {
	return orchestrator.WithHeuristic(scoring.NewHeuristicScorer(scoring.WithNoise(scoring.ZeroNoise{})))
}

func shouldBeValid(actual any, _ ...any) string {
	a, ok := actual.(assessment.Assessment)
	if !ok {
		return "expected an assessment"
	}
	scores := []float64{a.PerformanceScore, a.ExpressionScore, a.TimingScore, a.QualityScore}
	if v, ok := a.VocalScore.Get(); ok {
		scores = append(scores, v)
	}
	if v, ok := a.MovementScore.Get(); ok {
		scores = append(scores, v)
	}
	for _, s := range scores {
		if s < 0 || s > 100 || assessment.Normalize(s) != s {
			return fmt.Sprintf("score %v is not normalized", s)
		}
	}
	if len(a.CategoryTags) == 0 {
		return "category tags are empty"
	}
	if a.Strategy == "" {
		return "strategy is not set"
	}
	return ""
}

func TestResolveThumbnail(t *testing.T) {
	Convey("Given video locators", t, func() {
		cases := []struct {
			in, want string
			ok       bool
		}{
			{"https://cdn.example.com/v/42/master.m3u8", "https://cdn.example.com/v/42/thumbnail.jpg", true},
			{"https://cdn.example.com/v/42/Playlist.M3U8?token=abc#t=3", "https://cdn.example.com/v/42/thumbnail.jpg", true},
			{"https://cdn.example.com/v/42/manifest.mpd", "https://cdn.example.com/v/42/thumbnail.jpg", true},
			{"https://cdn.example.com/v/42/720p.m3u8", "https://cdn.example.com/v/42/720p.jpg", true},
			{"https://cdn.example.com/v/42/poster.png?x=1", "https://cdn.example.com/v/42/poster.png", true},
			{"s3-bucket/v/42/index.m3u8", "s3-bucket/v/42/thumbnail.jpg", true},
			{"https://cdn.example.com/v/42/clip.mp4", "", false},
			{"https://cdn.example.com/", "", false},
			{"", "", false},
			{"://bad url", "", false},
		}

		for _, c := range cases {
			Convey("When resolving "+c.in, func() {
				got, ok := orchestrator.ResolveThumbnail(c.in, "")
				So(ok, ShouldEqual, c.ok)
				So(got, ShouldEqual, c.want)
			})
		}

		Convey("When a custom thumbnail file is configured", func() {
			got, ok := orchestrator.ResolveThumbnail("https://cdn.example.com/v/1/master.m3u8", "poster.webp")
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, "https://cdn.example.com/v/1/poster.webp")
		})
	})
}

func TestOrchestratorAnalyze(t *testing.T) {
	Convey("Given an orchestrator", t, func() {
		ctx := context.Background()
		manifest := assessment.Request{VideoID: "v-1", VideoLocator: "https://cdn.example.com/v/1/master.m3u8"}

		Convey("When vision is not configured", func() {
			o := orchestrator.New(zeroHeuristic())
			a := o.Analyze(ctx, manifest)

			Convey("Then the heuristic scorer is used", func() {
				So(a.Strategy, ShouldEqual, assessment.StrategyHeuristic)
				So(a.PerformanceScore, ShouldEqual, 72)
				So(a.Feedback, ShouldEqual, scoring.HeuristicFeedback)
			})
		})

		Convey("When vision succeeds", func() {
			vision := &fakeScorer{result: visionResult()}
			o := orchestrator.New(orchestrator.WithVision(vision))
			a := o.Analyze(ctx, manifest)

			Convey("Then the vision result is normalized and returned", func() {
				So(a.Strategy, ShouldEqual, assessment.StrategyVision)
				So(a.PerformanceScore, ShouldEqual, 91.3)
				So(a.VocalScore.OrElse(0), ShouldEqual, 94)
				So(vision.thumbnail, ShouldEqual, "https://cdn.example.com/v/1/thumbnail.jpg")
			})
		})

		Convey("When an explicit thumbnail is given", func() {
			vision := &fakeScorer{result: visionResult()}
			o := orchestrator.New(orchestrator.WithVision(vision))
			req := manifest
			req.ThumbnailLocator = "https://img.example.com/custom.jpg"
			o.Analyze(ctx, req)
			So(vision.thumbnail, ShouldEqual, "https://img.example.com/custom.jpg")
		})

		Convey("When no thumbnail can be resolved", func() {
			vision := &fakeScorer{result: visionResult()}
			o := orchestrator.New(orchestrator.WithVision(vision), zeroHeuristic())
			a := o.Analyze(ctx, assessment.Request{VideoLocator: "https://cdn.example.com/v/1/clip.mp4"})

			Convey("Then vision is skipped", func() {
				So(a.Strategy, ShouldEqual, assessment.StrategyHeuristic)
				So(vision.thumbnail, ShouldEqual, "")
			})
		})

		Convey("When vision fails", func() {
			o := orchestrator.New(
				orchestrator.WithVision(&fakeScorer{err: fmt.Errorf("%w: bad gateway", scoring.ErrUpstream)}),
				zeroHeuristic(),
			)
			a := o.Analyze(ctx, manifest)
			So(a.Strategy, ShouldEqual, assessment.StrategyHeuristic)
			So(a.PerformanceScore, ShouldEqual, 72)
		})

		Convey("When vision hangs past the timeout", func() {
			o := orchestrator.New(
				orchestrator.WithVision(&fakeScorer{block: true}),
				orchestrator.WithVisionTimeout(20*time.Millisecond),
				zeroHeuristic(),
			)
			start := time.Now()
			a := o.Analyze(ctx, manifest)

			Convey("Then the heuristic result arrives promptly", func() {
				So(a.Strategy, ShouldEqual, assessment.StrategyHeuristic)
				So(time.Since(start), ShouldBeLessThan, 2*time.Second)
			})
		})

		Convey("When the vision provider fails", func() {
			o := orchestrator.New(
				orchestrator.WithVisionProvider(func() (scoring.Scorer, error) {
					return nil, errors.New("missing api key")
				}),
			)
			So(o.Analyze(ctx, manifest).Strategy, ShouldEqual, assessment.StrategyHeuristic)
		})

		Convey("When many requests race on first use", func() {
			var built int32
			o := orchestrator.New(orchestrator.WithVisionProvider(func() (scoring.Scorer, error) {
				atomic.AddInt32(&built, 1)
				return &fakeScorer{result: visionResult()}, nil
			}))

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					o.Analyze(ctx, manifest)
				}()
			}
			wg.Wait()

			Convey("Then the provider runs once", func() {
				So(atomic.LoadInt32(&built), ShouldEqual, 1)
			})
		})
	})
}

func TestOrchestratorNeverFails(t *testing.T) {
	Convey("Given every combination of vision, thumbnail and network outcome", t, func() {
		ctx := context.Background()
		locators := map[string]string{
			"resolvable":   "https://cdn.example.com/v/9/index.m3u8",
			"unresolvable": "rtmp://live.example.com/stream",
		}
		outcomes := map[string]*fakeScorer{
			"success":   {result: visionResult()},
			"failure":   {err: errors.New("dial tcp: connection refused")},
			"malformed": {err: fmt.Errorf("%w: no_object", scoring.ErrMalformedResponse)},
		}

		for locName, loc := range locators {
			for outName, scorer := range outcomes {
				for _, withVision := range []bool{true, false} {
					name := fmt.Sprintf("When vision=%v locator=%s outcome=%s", withVision, locName, outName)
					Convey(name, func() {
						opts := []orchestrator.Option{}
						if withVision {
							opts = append(opts, orchestrator.WithVision(scorer))
						}
						o := orchestrator.New(opts...)
						a := o.Analyze(ctx, assessment.Request{
							VideoLocator: loc,
							Duration:     assessment.Some(45.0),
						})
						So(a, shouldBeValid)
					})
				}
			}
		}
	})
}

func TestOrchestratorSignals(t *testing.T) {
	Convey("Given an orchestrator with raw signals", t, func() {
		ctx := context.Background()
		o := orchestrator.New(zeroHeuristic())

		still := signal.LandmarkFrame{Points: []signal.Point{{X: 0.5, Y: 0.5}}}
		faceFrame := signal.LandmarkFrame{Points: make([]signal.Point, 160)}
		faceFrame.Points[signal.DefaultLowerLipIndex] = signal.Point{Y: 0.05}
		faceFrame.Points[signal.DefaultEyeBottomIndex] = signal.Point{Y: 0.02}

		bundle := signal.Bundle{
			Audio: &signal.Waveform{SampleRate: 22050},
			Pose:  []signal.LandmarkFrame{still, still, still},
			Face:  []signal.LandmarkFrame{faceFrame, faceFrame},
		}

		Convey("When the request is analysed", func() {
			a, s := o.AnalyzeWithSignals(ctx, assessment.Request{VideoLocator: "clip.mp4"}, bundle)

			Convey("Then every supplied modality is reported", func() {
				So(s.Audio, ShouldNotBeNil)
				So(s.Audio.Detected, ShouldBeFalse)
				So(s.Movement.Detected, ShouldBeTrue)
				So(s.Expression.Detected, ShouldBeTrue)
			})

			Convey("And detected modalities are fused", func() {
				So(a.VocalScore.IsSome(), ShouldBeFalse)
				So(a.MovementScore.OrElse(0), ShouldEqual, 66.3)
				So(a.ExpressionScore, ShouldEqual, 67.6)
				So(a, shouldBeValid)
			})
		})

		Convey("When the bundle is empty", func() {
			_, s := o.AnalyzeWithSignals(ctx, assessment.Request{VideoLocator: "clip.mp4"}, signal.Bundle{})
			So(s.Audio, ShouldBeNil)
			So(s.Movement, ShouldBeNil)
			So(s.Expression, ShouldBeNil)
		})
	})
}

func TestFuse(t *testing.T) {
	Convey("Given an assessment that already has a vocal score", t, func() {
		a := assessment.Assessment{VocalScore: assessment.Some(90.0), ExpressionScore: 80, Strategy: assessment.StrategyVision}
		audio := signal.AudioReport{PitchAccuracy: 50, RhythmScore: 50, Clarity: 50, Dynamics: 50, Expression: 50, Detected: true}

		Convey("When audio is fused", func() {
			out := orchestrator.Fuse(a, orchestrator.Signals{Audio: &audio})

			Convey("Then the existing score wins", func() {
				So(out.VocalScore.OrElse(0), ShouldEqual, 90)
				So(out.Strategy, ShouldEqual, assessment.StrategyVision)
			})
		})
	})
}

func TestOrchestratorTracing(t *testing.T) {
	Convey("Given an orchestrator with a recording tracer", t, func() {
		recorder := tracetest.NewSpanRecorder()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		o := orchestrator.New(orchestrator.WithTracer(tp.Tracer("test")), zeroHeuristic())

		Convey("When a request is analysed", func() {
			o.Analyze(context.Background(), assessment.Request{VideoID: "v-7", VideoLocator: "clip.mp4"})

			Convey("Then one span records the strategy", func() {
				spans := recorder.Ended()
				So(spans, ShouldHaveLength, 1)
				So(spans[0].Name(), ShouldEqual, "Orchestrator.Analyze")

				attrs := map[string]string{}
				for _, kv := range spans[0].Attributes() {
					attrs[string(kv.Key)] = kv.Value.Emit()
				}
				So(attrs["video.id"], ShouldEqual, "v-7")
				So(attrs["strategy"], ShouldEqual, "heuristic")
			})
		})
	})
}
