package loadtest

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"
)

// Score histogram layout.
const (
	histogramBuckets = 10
	bucketWidth      = 100.0 / histogramBuckets
	percent          = 100
)

// LatencySummary holds request latency percentiles.
type LatencySummary struct {
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P99 time.Duration `json:"p99"`
	Max time.Duration `json:"max"`
}

// ScoreSummary describes the distribution of performance scores.
type ScoreSummary struct {
	Min       float64               `json:"min"`
	Mean      float64               `json:"mean"`
	StdDev    float64               `json:"stdDev"`
	Max       float64               `json:"max"`
	Histogram [histogramBuckets]int `json:"histogram"`
}

// Summary is the outcome of a load test run.
type Summary struct {
	Submitted  int            `json:"submitted"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Duration   time.Duration  `json:"duration"`
	Throughput float64        `json:"throughput"`
	Latency    LatencySummary `json:"latency"`
	Scores     ScoreSummary   `json:"scores"`

	BatchCalls      int `json:"batchCalls"`
	BatchFailed     int `json:"batchFailed"`
	BatchQueued     int `json:"batchQueued"`
	BatchDuplicates int `json:"batchDuplicates"`
	BatchRejected   int `json:"batchRejected"`
}

// SuccessRate returns the share of successful submissions in percent.
func (s Summary) SuccessRate() float64 {
	if s.Submitted == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Submitted) * percent
}

func summarize(col *collector, batch batchTotals, elapsed time.Duration) Summary {
	s := Summary{
		Submitted:       int(col.submitted.Load()),
		Succeeded:       int(col.succeeded.Load()),
		Failed:          int(col.failed.Load()),
		Duration:        elapsed,
		Latency:         latencySummary(col.latencies),
		Scores:          scoreSummary(col.scores),
		BatchCalls:      batch.Calls,
		BatchFailed:     batch.Failed,
		BatchQueued:     batch.Queued,
		BatchDuplicates: batch.Duplicates,
		BatchRejected:   batch.Rejected,
	}
	if elapsed > 0 {
		s.Throughput = float64(s.Submitted) / elapsed.Seconds()
	}
	return s
}

func latencySummary(latencies []time.Duration) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	ns := make([]float64, len(latencies))
	for i, l := range latencies {
		ns[i] = float64(l)
	}
	slices.Sort(ns)
	q := func(p float64) time.Duration {
		return time.Duration(stat.Quantile(p, stat.Empirical, ns, nil))
	}
	return LatencySummary{
		P50: q(0.5),
		P90: q(0.9),
		P99: q(0.99),
		Max: time.Duration(ns[len(ns)-1]),
	}
}

func scoreSummary(scores []float64) ScoreSummary {
	var s ScoreSummary
	if len(scores) == 0 {
		return s
	}
	sorted := slices.Clone(scores)
	slices.Sort(sorted)
	s.Min, s.Max = sorted[0], sorted[len(sorted)-1]
	s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		s.StdDev = 0
	}
	for _, v := range sorted {
		b := int(v / bucketWidth)
		s.Histogram[min(max(b, 0), histogramBuckets-1)]++
	}
	return s
}

// Render writes the summary as tables.
func (s Summary) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Load test")
	tw.AppendRows([]table.Row{
		{"Submitted", s.Submitted},
		{"Succeeded", s.Succeeded},
		{"Failed", s.Failed},
		{"Success rate", fmt.Sprintf("%.1f%%", s.SuccessRate())},
		{"Duration", s.Duration.Round(time.Millisecond)},
		{"Throughput", fmt.Sprintf("%.1f req/s", s.Throughput)},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Latency p50", s.Latency.P50.Round(time.Microsecond)},
		{"Latency p90", s.Latency.P90.Round(time.Microsecond)},
		{"Latency p99", s.Latency.P99.Round(time.Microsecond)},
		{"Latency max", s.Latency.Max.Round(time.Microsecond)},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Score min", fmt.Sprintf("%.1f", s.Scores.Min)},
		{"Score mean", fmt.Sprintf("%.1f ± %.1f", s.Scores.Mean, s.Scores.StdDev)},
		{"Score max", fmt.Sprintf("%.1f", s.Scores.Max)},
	})
	if s.BatchCalls > 0 {
		tw.AppendSeparator()
		tw.AppendRows([]table.Row{
			{"Batch calls", fmt.Sprintf("%d (%d failed)", s.BatchCalls, s.BatchFailed)},
			{"Batch queued", s.BatchQueued},
			{"Batch duplicates", s.BatchDuplicates},
			{"Batch rejected", s.BatchRejected},
		})
	}
	tw.Render()

	hist := table.NewWriter()
	hist.SetOutputMirror(w)
	hist.SetStyle(table.StyleRounded)
	hist.SetTitle("Score distribution")
	hist.AppendHeader(table.Row{"Range", "Videos"})
	for i, n := range s.Scores.Histogram {
		lo := int(float64(i) * bucketWidth)
		hi := int(float64(i+1) * bucketWidth)
		hist.AppendRow(table.Row{strconv.Itoa(lo) + "-" + strconv.Itoa(hi), n})
	}
	hist.Render()
}
