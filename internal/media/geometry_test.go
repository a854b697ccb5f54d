package media

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanGeometry(t *testing.T) {
	vertical := Resolution{Width: 1080, Height: 1920}

	tests := []struct {
		name    string
		current Resolution
		target  Resolution
		mode    GeometryMode
		crop    *CropRect
		filter  string
	}{
		{
			name:    "4k landscape is cropped",
			current: Resolution{Width: 3840, Height: 2160},
			target:  vertical,
			mode:    CropThenScale,
			crop:    &CropRect{Width: 1215, Height: 2160, X: 1312, Y: 0},
			filter:  "crop=1215:2160:1312:0,scale=1080:1920",
		},
		{
			name:    "1080p landscape floors the crop width",
			current: Resolution{Width: 1920, Height: 1080},
			target:  vertical,
			mode:    CropThenScale,
			crop:    &CropRect{Width: 607, Height: 1080, X: 656, Y: 0},
			filter:  "crop=607:1080:656:0,scale=1080:1920",
		},
		{
			name:    "already vertical",
			current: Resolution{Width: 1080, Height: 1920},
			target:  vertical,
			mode:    ScaleOnly,
			filter:  "scale=1080:1920",
		},
		{
			name:    "same ratio smaller frame",
			current: Resolution{Width: 720, Height: 1280},
			target:  vertical,
			mode:    ScaleOnly,
			filter:  "scale=1080:1920",
		},
		{
			name:    "narrower than target",
			current: Resolution{Width: 1000, Height: 3000},
			target:  vertical,
			mode:    ScaleOnly,
			filter:  "scale=1080:1920",
		},
		{
			name:    "square target",
			current: Resolution{Width: 1920, Height: 1080},
			target:  Resolution{Width: 1080, Height: 1080},
			mode:    CropThenScale,
			crop:    &CropRect{Width: 1080, Height: 1080, X: 420, Y: 0},
			filter:  "crop=1080:1080:420:0,scale=1080:1080",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanGeometry(tt.current, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, plan.Mode)
			assert.Equal(t, tt.crop, plan.Crop)
			assert.Equal(t, tt.target, plan.Target)
			assert.Equal(t, tt.filter, plan.Filter())
		})
	}
}

func TestPlanGeometry_Invalid(t *testing.T) {
	for _, tc := range []struct{ current, target Resolution }{
		{Resolution{0, 1080}, Resolution{1080, 1920}},
		{Resolution{1920, 1080}, Resolution{1080, -1}},
	} {
		_, err := PlanGeometry(tc.current, tc.target)
		assert.True(t, errors.Is(err, ErrInvalidGeometry), "%v -> %v", tc.current, tc.target)
	}
}

// Every crop window must lie inside the frame, keep full height and be the
// widest integer width not exceeding the target ratio.
func TestPlanGeometry_CropProperties(t *testing.T) {
	targets := []Resolution{{1080, 1920}, {720, 1280}, {1080, 1350}, {1000, 1000}}
	for _, target := range targets {
		for w := 2; w <= 4000; w += 97 {
			for h := 2; h <= 2400; h += 89 {
				cur := Resolution{Width: w, Height: h}
				plan, err := PlanGeometry(cur, target)
				require.NoError(t, err)

				wider := int64(w)*int64(target.Height) > int64(target.Width)*int64(h)
				if !wider {
					assert.Equal(t, ScaleOnly, plan.Mode, "%v -> %v", cur, target)
					assert.Nil(t, plan.Crop)
					continue
				}

				c := plan.Crop
				require.NotNil(t, c)
				assert.Equal(t, h, c.Height)
				assert.Equal(t, 0, c.Y)
				assert.GreaterOrEqual(t, c.X, 0)
				assert.LessOrEqual(t, c.X+c.Width, w)
				assert.LessOrEqual(t, int64(c.Width)*int64(target.Height), int64(target.Width)*int64(h))
				assert.Greater(t, int64(c.Width+1)*int64(target.Height), int64(target.Width)*int64(h))
				assert.Equal(t, (w-c.Width)/2, c.X)
			}
		}
	}
}

func TestGeometryMode_String(t *testing.T) {
	assert.Equal(t, "scale_only", ScaleOnly.String())
	assert.Equal(t, "crop_then_scale", CropThenScale.String())
}
