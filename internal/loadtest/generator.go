package loadtest

import (
	"math/rand/v2"

	"github.com/google/uuid"
)

// Duration buckets, in seconds. Most uploads are medium length; short and
// long clips exercise the heuristic penalty and bonus.
const (
	shortMin  = 3.0
	shortMax  = 15.0
	mediumMin = 15.0
	mediumMax = 120.0
	longMin   = 120.0
	longMax   = 600.0

	shortShare  = 0.2
	mediumShare = 0.6

	poseFrames  = 30
	posePoints  = 33
	faceFrames  = 20
	facePoints  = 68
	jitter      = 0.02
	noFaceShare = 0.1
)

var categories = []string{
	"singing", "dance", "comedy", "magic", "beatbox",
	"instrumental", "acrobatics", "spoken word", "Street Dance", "",
}

// Generator produces synthetic analysis requests.
type Generator struct {
	rng     *rand.Rand
	signals bool
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint64, signals bool) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), signals: signals}
}

// Videos returns n requests with unique IDs.
func (g *Generator) Videos(n int) []Video {
	out := make([]Video, n)
	for i := range out {
		out[i] = g.video()
	}
	return out
}

func (g *Generator) video() Video {
	id := uuid.NewString()
	v := Video{
		VideoID:    id,
		VideoURL:   "https://cdn.example.com/videos/" + id + "/master.m3u8",
		Duration:   g.duration(),
		CategoryID: categories[g.rng.IntN(len(categories))],
	}
	if g.signals {
		v.Signals = &Signals{Pose: g.frames(poseFrames, posePoints)}
		if g.rng.Float64() >= noFaceShare {
			v.Signals.Face = g.frames(faceFrames, facePoints)
		}
	}
	return v
}

func (g *Generator) duration() float64 {
	lo, hi := mediumMin, mediumMax
	switch p := g.rng.Float64(); {
	case p < shortShare:
		lo, hi = shortMin, shortMax
	case p >= shortShare+mediumShare:
		lo, hi = longMin, longMax
	}
	return lo + g.rng.Float64()*(hi-lo)
}

// frames returns a random walk of count frames with points landmarks each.
func (g *Generator) frames(count, points int) []Frame {
	base := make([]Point, points)
	for i := range base {
		base[i] = Point{X: g.rng.Float64(), Y: g.rng.Float64(), Z: g.rng.Float64() * 0.1}
	}
	out := make([]Frame, count)
	for f := range out {
		pts := make([]Point, points)
		for i, p := range base {
			p.X += (g.rng.Float64()*2 - 1) * jitter
			p.Y += (g.rng.Float64()*2 - 1) * jitter
			base[i] = p
			pts[i] = p
		}
		out[f] = Frame{Points: pts}
	}
	return out
}
