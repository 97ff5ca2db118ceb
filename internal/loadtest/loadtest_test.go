package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/talentscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// fakeService answers like the analysis API: scores by duration, fails
// videos without a category and reports every second batch entry as a
// duplicate.
type fakeService struct {
	mu     sync.Mutex
	seen   map[string]bool
	videos int
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "healthy", "services": map[string]string{"heuristic": "ready"}})
	})
	mux.HandleFunc("POST /analyze/video", func(w http.ResponseWriter, r *http.Request) {
		var v Video
		_ = json.NewDecoder(r.Body).Decode(&v)
		f.mu.Lock()
		f.videos++
		f.mu.Unlock()
		if v.CategoryID == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_request"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(Assessment{PerformanceScore: min(v.Duration/6, 100), CategoryTags: []string{v.CategoryID}})
	})
	mux.HandleFunc("POST /analyze/batch", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Videos []Video `json:"videos"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		receipt := BatchReceipt{Queued: []QueuedJob{}, Duplicates: []string{}, Rejected: []Rejection{}}
		f.mu.Lock()
		for _, v := range req.Videos {
			if f.seen[v.VideoID] {
				receipt.Duplicates = append(receipt.Duplicates, v.VideoID)
				continue
			}
			f.seen[v.VideoID] = true
			receipt.Queued = append(receipt.Queued, QueuedJob{JobID: "j-" + v.VideoID, VideoID: v.VideoID})
		}
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(receipt)
	})
	return mux
}

func TestGenerator(t *testing.T) {
	Convey("Given two generators with the same seed", t, func() {
		a := NewGenerator(7, true).Videos(50)
		b := NewGenerator(7, true).Videos(50)

		Convey("Then durations and categories repeat but IDs stay unique", func() {
			ids := map[string]bool{}
			for i := range a {
				So(a[i].Duration, ShouldEqual, b[i].Duration)
				So(a[i].CategoryID, ShouldEqual, b[i].CategoryID)
				So(a[i].Duration, ShouldBeBetweenOrEqual, shortMin, longMax)
				So(a[i].VideoURL, ShouldContainSubstring, a[i].VideoID)
				So(a[i].Signals.Pose, ShouldHaveLength, poseFrames)
				ids[a[i].VideoID] = true
			}
			So(ids, ShouldHaveLength, 50)
		})
	})

	Convey("Given a generator without signals", t, func() {
		v := NewGenerator(1, false).Videos(3)
		So(v[0].Signals, ShouldBeNil)
	})
}

func TestSummaries(t *testing.T) {
	Convey("Given recorded latencies and scores", t, func() {
		col := &collector{}
		for i := 1; i <= 100; i++ {
			col.success(time.Duration(i)*time.Millisecond, float64(i))
		}
		col.failure()

		s := summarize(col, batchTotals{}, time.Second)

		Convey("Then percentiles and the histogram are derived", func() {
			So(s.Submitted, ShouldEqual, 101)
			So(s.Failed, ShouldEqual, 1)
			So(s.Latency.P50, ShouldEqual, 50*time.Millisecond)
			So(s.Latency.P90, ShouldEqual, 90*time.Millisecond)
			So(s.Latency.Max, ShouldEqual, 100*time.Millisecond)
			So(s.Scores.Min, ShouldEqual, 1.0)
			So(s.Scores.Max, ShouldEqual, 100.0)
			So(s.Scores.Mean, ShouldAlmostEqual, 50.5, 0.001)
			So(s.Scores.Histogram[0], ShouldEqual, 9)
			So(s.Scores.Histogram[9], ShouldEqual, 11)
			So(s.Throughput, ShouldEqual, 101.0)
		})
	})

	Convey("Given nothing recorded", t, func() {
		s := summarize(&collector{}, batchTotals{}, 0)
		So(s.SuccessRate(), ShouldEqual, 0.0)
		So(s.Latency, ShouldResemble, LatencySummary{})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running analysis service", t, func() {
		fake := &fakeService{seen: map[string]bool{}}
		server := httptest.NewServer(fake.handler())
		defer server.Close()

		out := filepath.Join(t.TempDir(), "runs", "videos.json")
		cfg := Config{
			BaseURL:    server.URL,
			NumVideos:  40,
			Workers:    4,
			Timeout:    5 * time.Second,
			BatchSize:  15,
			Seed:       3,
			OutputFile: out,
		}

		Convey("When the load test runs", func() {
			var buf bytes.Buffer
			summary, err := Run(context.Background(), cfg, &buf)

			Convey("Then every video is submitted and summarized", func() {
				So(err, ShouldBeNil)
				So(summary.Submitted, ShouldEqual, 40)
				So(summary.Succeeded+summary.Failed, ShouldEqual, 40)
				So(fake.videos, ShouldEqual, 40)
				So(summary.BatchCalls, ShouldEqual, 3)
				So(summary.BatchQueued, ShouldEqual, 40)
				So(summary.BatchDuplicates, ShouldEqual, 0)
				So(buf.String(), ShouldContainSubstring, "Score distribution")
				So(buf.String(), ShouldContainSubstring, "Batch queued")

				raw, err := os.ReadFile(out)
				So(err, ShouldBeNil)
				var saved []Video
				So(json.Unmarshal(raw, &saved), ShouldBeNil)
				So(saved, ShouldHaveLength, 40)
			})
		})

		Convey("When the configuration is invalid", func() {
			cfg.Workers = 0
			_, err := Run(context.Background(), cfg, nil)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable service", t, func() {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()
		_, err := Run(context.Background(), Config{BaseURL: server.URL, NumVideos: 1, Workers: 1, Timeout: time.Second}, nil)
		So(err, ShouldNotBeNil)
	})
}
