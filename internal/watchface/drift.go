package watchface

import (
	"image"
	"math"
	"math/rand"
)

const maxDriftPercent = 100

// Drift picks a random burn-in offset within size. X falls in
// [-2*size.X, 0] and Y in [-size.Y, size.Y], so the face only ever drifts
// left of its resting position.
func Drift(rng *rand.Rand, size image.Point) image.Point {
	length := rng.Float64() * maxDriftPercent
	angle := math.Round(rng.Float64()*360) * math.Pi / 180
	sx, sy := float64(size.X), float64(size.Y)
	return image.Pt(
		int((sx*math.Cos(angle)-sx)/maxDriftPercent*length),
		int(sy*math.Sin(angle)/maxDriftPercent*length),
	)
}
