package postprocess

import (
	"fmt"
	"image"

	"github.com/swdee/go-crowdcount"
	"github.com/swdee/go-crowdcount/render"
	"gocv.io/x/gocv"
)

// GrayscaleMap is used to not apply coloring to the density heatmap, but to
// leave it as grayscale
const GrayscaleMap = gocv.ColormapTypes(9999)

// CountFormat is the format of the estimated count label
const CountFormat = "Est Count: %d"

// colormaps maps the configuration names onto the OpenCV colormaps
var colormaps = map[string]gocv.ColormapTypes{
	"autumn":  gocv.ColormapAutumn,
	"bone":    gocv.ColormapBone,
	"jet":     gocv.ColormapJet,
	"winter":  gocv.ColormapWinter,
	"rainbow": gocv.ColormapRainbow,
	"ocean":   gocv.ColormapOcean,
	"summer":  gocv.ColormapSummer,
	"spring":  gocv.ColormapSpring,
	"cool":    gocv.ColormapCool,
	"hsv":     gocv.ColormapHsv,
	"pink":    gocv.ColormapPink,
	"hot":     gocv.ColormapHot,
	"parula":  gocv.ColormapParula,
}

// ColormapByName returns the OpenCV colormap for the given name, "gray" leaves
// the heatmap uncolored
func ColormapByName(name string) (gocv.ColormapTypes, error) {

	if name == "gray" {
		return GrayscaleMap, nil
	}

	c, ok := colormaps[name]

	if !ok {
		return 0, fmt.Errorf("unknown colormap: %s", name)
	}

	return c, nil
}

// Heatmap defines the struct for crowd density map post processing
type Heatmap struct {
	// Params are the heatmap configuration parameters
	Params HeatmapParams
}

// HeatmapParams define how the density map is rendered
type HeatmapParams struct {
	// Colormap to apply to the normalized density map, if you want it left as
	// grayscale then pass postprocess.GrayscaleMap
	Colormap gocv.ColormapTypes
	// Interpolation used to scale the density map up to the display size
	Interpolation gocv.InterpolationFlags
	// Label draws the estimated count text
	Label render.Labeler
	// Anchor is the baseline position of the count label.  It is a fixed
	// pixel position tuned for 640x480 frames and is not moved for other sizes.
	Anchor image.Point
}

// HeatmapDefaultParams returns the JET colormap with bilinear scaling and the
// count label in the bottom left corner
func HeatmapDefaultParams() HeatmapParams {
	return HeatmapParams{
		Colormap:      gocv.ColormapJet,
		Interpolation: gocv.InterpolationLinear,
		Label:         render.DefaultFont(),
		Anchor:        image.Pt(40, 440),
	}
}

// NewHeatmap returns an instance of the Heatmap post processor
func NewHeatmap(p HeatmapParams) *Heatmap {
	return &Heatmap{
		Params: p,
	}
}

// CreateHeatmap normalizes the density map to 0-255, scales it to size and
// applies the colormap.  The result is written to dst as an 8-bit 3 channel
// image, or single channel when GrayscaleMap is used.
func (h *Heatmap) CreateHeatmap(dm *crowdcount.DensityMap, size image.Point, dst *gocv.Mat) error {

	scaled := dm.Scaled()

	floatMat := gocv.NewMatWithSize(dm.Height, dm.Width, gocv.MatTypeCV32F)
	defer floatMat.Close()

	buf, err := floatMat.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("failed to create density mat: %w", err)
	}

	copy(buf, scaled)

	// resize before quantizing to keep the interpolation smooth
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(floatMat, &resized, size, 0, 0, h.Params.Interpolation)

	u8Mat := gocv.NewMat()
	defer u8Mat.Close()
	resized.ConvertTo(&u8Mat, gocv.MatTypeCV8U)

	if h.Params.Colormap == GrayscaleMap {
		// no coloring
		u8Mat.CopyTo(dst)

	} else {
		// apply colormap
		gocv.ApplyColorMap(u8Mat, dst, h.Params.Colormap)
	}

	return nil
}

// Render produces the composite output for one frame.  The density map is
// turned into a heatmap the size of display, annotated with the estimated
// count and placed to the right of display in dst.  It returns the estimated
// count.
func (h *Heatmap) Render(dm *crowdcount.DensityMap, display gocv.Mat, dst *gocv.Mat) (int, error) {

	if display.Empty() || display.Type() != gocv.MatTypeCV8UC3 {
		return 0, fmt.Errorf("display frame must be a non empty 8-bit 3 channel image")
	}

	count := dm.Count()

	heat := gocv.NewMat()
	defer heat.Close()

	err := h.CreateHeatmap(dm, image.Pt(display.Cols(), display.Rows()), &heat)

	if err != nil {
		return 0, err
	}

	if heat.Channels() == 1 {
		gocv.CvtColor(heat, &heat, gocv.ColorGrayToBGR)
	}

	if h.Params.Label != nil {
		err = h.Params.Label.Draw(&heat, fmt.Sprintf(CountFormat, count), h.Params.Anchor)

		if err != nil {
			return 0, fmt.Errorf("error drawing count label: %w", err)
		}
	}

	if err := render.SideBySide(display, heat, dst); err != nil {
		return 0, err
	}

	return count, nil
}
