package animation

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// FaceMeshLandmarks is the number of points in a full face mesh.
const FaceMeshLandmarks = 468

// Landmark is a normalised face-mesh point.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

var (
	leftEyeIndices  = []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}
	rightEyeIndices = []int{362, 382, 381, 380, 374, 373, 390, 249, 263, 466, 388, 387, 386, 385, 384, 398}
	mouthIndices    = []int{13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32}
)

const (
	mouthCornerLeft  = 61
	mouthCornerRight = 291

	openEyeHeight  = 0.1
	openMouthRange = 0.15
	smileSpan      = 0.3
)

// FromLandmarks estimates blendshape weights from face-mesh geometry.
// Only eye blinks, jaw opening and smiles are measured; every other shape
// is reported at 0.
func FromLandmarks(points []Landmark) Blendshapes {
	b := NeutralBlendshapes()

	b["eyeBlink_L"] = math.Max(0, 1-yRange(points, leftEyeIndices, openEyeHeight)/openEyeHeight)
	b["eyeBlink_R"] = math.Max(0, 1-yRange(points, rightEyeIndices, openEyeHeight)/openEyeHeight)
	b["jawOpen"] = math.Min(1, yRange(points, mouthIndices, 0)/openMouthRange)

	smile := smileIntensity(points)
	b["mouthSmile_L"] = smile
	b["mouthSmile_R"] = smile

	return b.Clamp()
}

// yRange returns the vertical extent of the indexed points, or def when
// the mesh is too small to contain them.
func yRange(points []Landmark, indices []int, def float64) float64 {
	if float64(len(points)) <= floats.Max(toFloats(indices)) {
		return def
	}
	ys := make([]float64, len(indices))
	for i, idx := range indices {
		ys[i] = finite(points[idx].Y)
	}
	return floats.Max(ys) - floats.Min(ys)
}

func smileIntensity(points []Landmark) float64 {
	if len(points) <= mouthCornerRight {
		return 0
	}
	l, r := points[mouthCornerLeft], points[mouthCornerRight]
	dist := floats.Distance(vec(l), vec(r), 2)
	return math.Min(1, dist/smileSpan)
}

func vec(p Landmark) []float64 {
	return []float64{finite(p.X), finite(p.Y), finite(p.Z)}
}

func toFloats(idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, v := range idx {
		out[i] = float64(v)
	}
	return out
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
