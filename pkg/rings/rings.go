// Package rings turns a sensor reading of the starter stack into a ring
// count.
//
// Two vocabularies exist side by side and are deliberately not mapped onto
// each other: the colour/distance sensor reports Count (Zero, One, Three)
// while the vision detector reports labels (None, Single, Quad).  Routines
// branch on whichever they asked for.
package rings

import (
	"fmt"

	"github.com/15303/UltimateGoal/pkg/config"
)

type Count int

const (
	Zero Count = iota
	One
	Three
)

func (c Count) String() string {
	switch c {
	case Zero:
		return "zero"
	case One:
		return "one"
	case Three:
		return "three"
	default:
		return fmt.Sprintf("count(%d)", int(c))
	}
}

// Rings returns the number of rings the count stands for.
func (c Count) Rings() int {
	switch c {
	case One:
		return 1
	case Three:
		return 3
	default:
		return 0
	}
}

// Reading is one sample from the ring sensor.
type Reading struct {
	Red, Green, Blue uint32
	// DistanceMM is the distance to the nearest surface seen by the
	// proximity channel.
	DistanceMM float64
}

func (r Reading) String() string {
	return fmt.Sprintf("rgb=(%d,%d,%d) dist=%.1fmm", r.Red, r.Green, r.Blue, r.DistanceMM)
}

type Classifier interface {
	Classify(Reading) Count
}

// ThresholdClassifier is the default Classifier.  A reading that is not
// ring orange, or that sees nothing within range, is Zero.  Otherwise the
// distance to the top of the stack decides between One and Three.
type ThresholdClassifier struct {
	MinRedGreenRatio   float64
	MaxBlueFraction    float64
	MaxStackDistanceMM float64
	TallStackMaxMM     float64
}

func NewClassifier(cfg config.Rings) ThresholdClassifier {
	return ThresholdClassifier{
		MinRedGreenRatio:   cfg.MinRedGreenRatio,
		MaxBlueFraction:    cfg.MaxBlueFraction,
		MaxStackDistanceMM: cfg.MaxStackDistanceMM,
		TallStackMaxMM:     cfg.TallStackMaxMM,
	}
}

func (c ThresholdClassifier) IsOrange(r Reading) bool {
	total := float64(r.Red) + float64(r.Green) + float64(r.Blue)
	if total == 0 || r.Green == 0 {
		return r.Red > 0 && r.Blue == 0 && r.Green == 0
	}
	return float64(r.Red)/float64(r.Green) >= c.MinRedGreenRatio &&
		float64(r.Blue)/total <= c.MaxBlueFraction
}

func (c ThresholdClassifier) Classify(r Reading) Count {
	if !c.IsOrange(r) || r.DistanceMM > c.MaxStackDistanceMM {
		return Zero
	}
	if r.DistanceMM <= c.TallStackMaxMM {
		return Three
	}
	return One
}

// Vision labels, as produced by the stack detector.
const (
	LabelNone   = "None"
	LabelSingle = "Single"
	LabelQuad   = "Quad"
)

type Detection struct {
	Label      string
	Confidence float64
}

// BestLabel returns the label of the most confident detection, or LabelNone
// when there are none.  Ties go to the earlier detection.
func BestLabel(detections []Detection) string {
	best := LabelNone
	bestConfidence := 0.0
	found := false
	for _, d := range detections {
		if !found || d.Confidence > bestConfidence {
			best = d.Label
			bestConfidence = d.Confidence
			found = true
		}
	}
	return best
}

// ClassifyStack labels a ring-coloured blob from its bounding box and
// contour area.  A stack of four is much taller for its width than a
// single ring.  Confidence is how much of the box the blob fills.
func ClassifyStack(width, height int, area, quadMinAspect float64) (Detection, bool) {
	if width <= 0 || height <= 0 || area <= 0 {
		return Detection{}, false
	}
	fill := area / float64(width*height)
	if fill > 1 {
		fill = 1
	}
	label := LabelSingle
	if float64(height)/float64(width) >= quadMinAspect {
		label = LabelQuad
	}
	return Detection{Label: label, Confidence: fill}, true
}
