package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/talentscore/internal/app"
	"github.com/okian/talentscore/internal/domain/assessment"
	"github.com/okian/talentscore/internal/domain/model"
	"github.com/okian/talentscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type collectingSink struct {
	mu      sync.Mutex
	results map[string]model.Result
}

func newCollectingSink() *collectingSink {
	return &collectingSink{results: make(map[string]model.Result)}
}

func (c *collectingSink) Deliver(_ context.Context, r model.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[r.VideoID] = r
	return nil
}

func (c *collectingSink) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func batch(ids ...string) []assessment.Request {
	out := make([]assessment.Request, len(ids))
	for i, id := range ids {
		out[i] = videoRequest(id).Request
	}
	return out
}

func TestServiceBatch(t *testing.T) {
	Convey("Given a started service with a collecting sink", t, func() {
		ctx := context.Background()
		sink := newCollectingSink()
		cfg := testConfig()
		cfg.QueueSize = 16
		svc := service.New(cfg, service.WithSink(sink), service.WithNoise(scoring.ZeroNoise{}))
		So(svc.Start(ctx), ShouldBeNil)

		stop := func() {
			sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			So(svc.Stop(sctx), ShouldBeNil)
		}

		Convey("When a batch with duplicates and invalid entries is submitted", func() {
			reqs := batch("v-1", "v-2", "v-1")
			reqs = append(reqs, assessment.Request{VideoID: "v-bad"})
			receipt, err := svc.SubmitBatch(ctx, reqs)
			stop()

			Convey("Then the receipt classifies every entry", func() {
				So(err, ShouldBeNil)
				So(receipt.Queued, ShouldHaveLength, 2)
				So(receipt.Duplicates, ShouldResemble, []string{"v-1"})
				So(receipt.Rejected, ShouldHaveLength, 1)
				So(receipt.Rejected[0].Index, ShouldEqual, 3)
			})

			Convey("Then queued videos are analyzed in the background", func() {
				So(sink.len(), ShouldEqual, 2)
				r := sink.results["v-2"]
				So(r.Strategy, ShouldEqual, assessment.StrategyHeuristic)
				So(r.Assessment.PerformanceScore, ShouldEqual, 72)
			})
		})

		Convey("When the same video is submitted in a later batch", func() {
			_, err := svc.SubmitBatch(ctx, batch("v-9"))
			So(err, ShouldBeNil)
			receipt, err := svc.SubmitBatch(ctx, batch("v-9"))
			stop()

			Convey("Then it is reported as a duplicate", func() {
				So(err, ShouldBeNil)
				So(receipt.Queued, ShouldBeEmpty)
				So(receipt.Duplicates, ShouldResemble, []string{"v-9"})
			})
		})

		Convey("When many goroutines submit concurrently", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			queued := 0
			for g := 0; g < 4; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					for i := 0; i < 4; i++ {
						for {
							receipt, err := svc.SubmitBatch(ctx, batch(fmt.Sprintf("c-%d-%d", g, i)))
							if err != nil {
								return
							}
							if len(receipt.Queued) == 1 {
								mu.Lock()
								queued++
								mu.Unlock()
								break
							}
							// queue full; the deduper forgot the video, try again
							time.Sleep(time.Millisecond)
						}
					}
				}(g)
			}
			wg.Wait()
			stop()

			Convey("Then every video is analyzed once", func() {
				So(queued, ShouldEqual, 16)
				So(sink.len(), ShouldEqual, 16)
			})
		})
	})
}
