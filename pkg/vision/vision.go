// Package vision finds the starter stack in webcam frames and labels it
// None, Single or Quad.
package vision

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/15303/UltimateGoal/pkg/config"
	"github.com/15303/UltimateGoal/pkg/rings"
)

const frameWidth = 320

type Detector struct {
	cfg config.Rings

	lock sync.Mutex
	cam  *gocv.VideoCapture
	img  gocv.Mat
}

func Open(deviceID int, cfg config.Rings) (*Detector, error) {
	cam, err := gocv.VideoCaptureDevice(deviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open camera %d", deviceID)
	}
	return &Detector{cfg: cfg, cam: cam, img: gocv.NewMat()}, nil
}

func (d *Detector) Close() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.img.Close()
	return d.cam.Close()
}

// See grabs a frame and returns every ring-coloured blob that looks like a
// stack.
func (d *Detector) See() ([]rings.Detection, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if ok := d.cam.Read(&d.img); !ok || d.img.Empty() {
		return nil, errors.New("failed to read camera frame")
	}
	hsv := ScaleAndConvertToHSV(d.img, frameWidth)
	defer hsv.Close()
	return FindStacks(hsv, d.cfg), nil
}

func ScaleAndConvertToHSV(img gocv.Mat, desiredWidth int) (hsv gocv.Mat) {
	// Scale to desired width.
	width := img.Cols()
	scaleFactor := float64(desiredWidth) / float64(width)
	scaled := gocv.NewMat()
	gocv.Resize(img, &scaled, image.Point{}, scaleFactor, scaleFactor, gocv.InterpolationLinear)
	defer scaled.Close()

	// Convert to HSV.
	hsv = gocv.NewMat()
	gocv.CvtColor(scaled, &hsv, gocv.ColorBGRToHSV)

	return
}

func hsvMaskNoWrapAround(hsv gocv.Mat, r config.HSVRange) gocv.Mat {
	lb, _ := gocv.NewMatFromBytes(1, 3, gocv.MatTypeCV8U, []byte{r.HueMin, r.SatMin, r.ValMin})
	defer lb.Close()
	ub, _ := gocv.NewMatFromBytes(1, 3, gocv.MatTypeCV8U, []byte{r.HueMax, r.SatMax, r.ValMax})
	defer ub.Close()
	mask := gocv.NewMatWithSize(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	gocv.InRange(hsv, lb, ub, &mask)
	return mask
}

// HSVMask masks the pixels inside r.  A hue range with HueMax below HueMin
// wraps through 180.
func HSVMask(hsv gocv.Mat, r config.HSVRange) gocv.Mat {
	if r.HueMax > r.HueMin {
		return hsvMaskNoWrapAround(hsv, r)
	}
	range1 := r
	range1.HueMax = 180
	mask1 := hsvMaskNoWrapAround(hsv, range1)
	defer mask1.Close()
	range2 := r
	range2.HueMin = 0
	mask2 := hsvMaskNoWrapAround(hsv, range2)
	defer mask2.Close()
	mask := gocv.NewMatWithSize(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)
	gocv.BitwiseOr(mask1, mask2, &mask)
	return mask
}

func FindStacks(hsv gocv.Mat, cfg config.Rings) []rings.Detection {
	mask := HSVMask(hsv, cfg.HSV)
	defer mask.Close()

	// Two iterations each of erosion and dilation, to remove noise.
	nullMat := gocv.NewMat()
	defer nullMat.Close()
	gocv.Erode(mask, &mask, nullMat)
	gocv.Erode(mask, &mask, nullMat)
	gocv.Dilate(mask, &mask, nullMat)
	gocv.Dilate(mask, &mask, nullMat)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var detections []rings.Detection
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < cfg.MinContourArea {
			continue
		}
		rect := gocv.BoundingRect(c)
		if d, ok := rings.ClassifyStack(rect.Dx(), rect.Dy(), area, cfg.QuadMinAspect); ok {
			detections = append(detections, d)
		}
	}
	return detections
}
