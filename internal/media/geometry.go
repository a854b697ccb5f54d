package media

import "fmt"

// GeometryMode selects how a frame is brought to the target size
type GeometryMode int

const (
	// ScaleOnly resizes straight to the target size
	ScaleOnly GeometryMode = iota
	// CropThenScale cuts a centred region of the target ratio, then resizes it
	CropThenScale
)

func (m GeometryMode) String() string {
	if m == CropThenScale {
		return "crop_then_scale"
	}
	return "scale_only"
}

// CropRect is a crop window in source pixels
type CropRect struct {
	Width  int
	Height int
	X      int
	Y      int
}

// GeometryPlan describes the filter chain needed to reach Target
type GeometryPlan struct {
	Mode   GeometryMode
	Crop   *CropRect // nil for ScaleOnly
	Target Resolution
}

// PlanGeometry decides between scale-only and crop-then-scale.
//
// A source whose ratio is at most the target ratio is scaled directly;
// equal ratios never crop. A wider source is cropped to the target ratio at
// full height, centred horizontally, then scaled.
func PlanGeometry(current, target Resolution) (GeometryPlan, error) {
	if !current.Valid() {
		return GeometryPlan{}, fmt.Errorf("%w: current resolution %s", ErrInvalidGeometry, current)
	}
	if !target.Valid() {
		return GeometryPlan{}, fmt.Errorf("%w: target resolution %s", ErrInvalidGeometry, target)
	}

	// w/h <= tw/th  <=>  w*th <= tw*h
	if int64(current.Width)*int64(target.Height) <= int64(target.Width)*int64(current.Height) {
		return GeometryPlan{Mode: ScaleOnly, Target: target}, nil
	}

	cropW := int(int64(current.Height) * int64(target.Width) / int64(target.Height))
	return GeometryPlan{
		Mode: CropThenScale,
		Crop: &CropRect{
			Width:  cropW,
			Height: current.Height,
			X:      (current.Width - cropW) / 2,
			Y:      0,
		},
		Target: target,
	}, nil
}

// Filter renders the plan as an ffmpeg -vf expression.
func (p GeometryPlan) Filter() string {
	scale := fmt.Sprintf("scale=%d:%d", p.Target.Width, p.Target.Height)
	if p.Crop == nil {
		return scale
	}
	return fmt.Sprintf("crop=%d:%d:%d:%d,%s", p.Crop.Width, p.Crop.Height, p.Crop.X, p.Crop.Y, scale)
}
