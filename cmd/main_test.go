package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	service "github.com/okian/talentscore/internal/app"
	"github.com/okian/talentscore/internal/config"
	"github.com/okian/talentscore/internal/domain/scoring"
	"github.com/okian/talentscore/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func setEnv(kv map[string]string) func() {
	for k, v := range kv {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range kv {
			_ = os.Unsetenv(k)
		}
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			defer setEnv(map[string]string{
				"TALENTSCORE_ADDR":         ":8080",
				"TALENTSCORE_QUEUE_SIZE":   "1000",
				"TALENTSCORE_WORKER_COUNT": "4",
			})()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			defer setEnv(map[string]string{"TALENTSCORE_WORKER_COUNT": "0"})()

			convey.Convey("Then loading fails", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainRoutes(t *testing.T) {
	convey.Convey("Given the assembled mux", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.WorkerCount = 1
		cfg.QueueSize = 4
		svc := service.New(cfg, service.WithNoise(scoring.ZeroNoise{}))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() {
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_ = svc.Stop(sctx)
		}()
		mux := newMux(ctx, svc)

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then the landing page, docs and health routes respond", func() {
			for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/health", "/stats", "/healthz"} {
				convey.So(get(path).Code, convey.ShouldEqual, http.StatusOK)
			}
			convey.So(get("/nope").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then a video can be analyzed end to end", func() {
			w := httptest.NewRecorder()
			body := `{"videoId":"v-1","videoUrl":"https://cdn.example.com/v-1.mp4","duration":45,"categoryId":"dance"}`
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/analyze/video", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"categoryTags":["dance"]`)
		})

		convey.Convey("Then metric updaters run without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)

			tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			convey.So(func() {
				startSystemMetricsUpdater(tctx)
				startServiceMetricsUpdater(tctx, svc)
			}, convey.ShouldNotPanic)
		})
	})
}
