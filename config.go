package crowdcount

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// ChannelOrder is the color channel order of the tensor fed to the model
type ChannelOrder string

const (
	BGR ChannelOrder = "bgr"
	RGB ChannelOrder = "rgb"
)

// Normalization defines how 8-bit pixel values are scaled before inference
type Normalization string

const (
	// NormalizeNone passes the raw 0-255 pixel values
	NormalizeNone Normalization = "none"
	// Normalize255 divides pixel values by 255
	Normalize255 Normalization = "255"
	// NormalizeImageNet divides by 255 then applies the ImageNet mean and
	// standard deviation per channel
	NormalizeImageNet Normalization = "imagenet"
)

// Colormaps are the colormap names accepted by RenderConfig.Colormap
var Colormaps = []string{
	"autumn", "bone", "jet", "winter", "rainbow", "ocean", "summer",
	"spring", "cool", "hsv", "pink", "hot", "parula", "gray",
}

// Config holds all the tunable parameters of the crowd counting demo.  The
// defaults are tuned for the cascaded multi-task crowd counting model.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Input     InputConfig     `yaml:"input"`
	Engine    EngineConfig    `yaml:"engine"`
	Render    RenderConfig    `yaml:"render"`
	Video     VideoConfig     `yaml:"video"`
	Benchmark BenchmarkConfig `yaml:"benchmark"`
}

// ModelConfig locates the model artifacts
type ModelConfig struct {
	// WeightFile is the ONNX weights filename
	WeightFile string `yaml:"weight_file"`
	// TopologyFile is the network topology descriptor filename
	TopologyFile string `yaml:"topology_file"`
	// RemoteURL is the base location artifacts are downloaded from when missing
	RemoteURL string `yaml:"remote_url"`
	// Dir is the local directory the artifacts are stored in
	Dir string `yaml:"dir"`
	// RKNNFile is the compiled model used by the rknn engine
	RKNNFile string `yaml:"rknn_file"`
}

// InputConfig describes the input tensor the model expects
type InputConfig struct {
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	ChannelOrder ChannelOrder  `yaml:"channel_order"`
	Normalize    Normalization `yaml:"normalize"`
	// DefaultImage is used when no input image path is given
	DefaultImage string `yaml:"default_image"`
	// DefaultSavePath is the image mode output path
	DefaultSavePath string `yaml:"default_save_path"`
}

// EngineConfig configures the inference backends
type EngineConfig struct {
	// LibraryPath of the onnxruntime shared library, searched for if empty
	LibraryPath string `yaml:"library_path"`
	// Threads used for intra op parallelism, 0 lets the runtime decide
	Threads int `yaml:"threads"`
	// Platform is the Rockchip platform used by the rknn engine
	Platform string `yaml:"platform"`
	// CoreMask selects the NPU cores, one of auto|0|1|2|0_1|0_1_2, empty
	// skips setting it for single core NPUs
	CoreMask string `yaml:"core_mask"`
	// Quantized dequantizes raw NPU outputs on the CPU
	Quantized bool `yaml:"quantized"`
}

// RenderConfig controls the heatmap and count label
type RenderConfig struct {
	Colormap  string  `yaml:"colormap"`
	AnchorX   int     `yaml:"anchor_x"`
	AnchorY   int     `yaml:"anchor_y"`
	FontScale float64 `yaml:"font_scale"`
	Thickness int     `yaml:"thickness"`
	// FontFile is an optional TTF font to render the label with instead of
	// the built in Hershey font
	FontFile string `yaml:"font_file"`
	// FontSize in points for FontFile
	FontSize float64 `yaml:"font_size"`
}

// VideoConfig controls the streaming mode video writer
type VideoConfig struct {
	FourCC string  `yaml:"fourcc"`
	FPS    float64 `yaml:"fps"`
}

// BenchmarkConfig controls benchmark mode
type BenchmarkConfig struct {
	Runs int `yaml:"runs"`
}

// DefaultConfig returns the configuration of the stock crowd counting demo
func DefaultConfig() Config {
	return Config{
		Model: ModelConfig{
			WeightFile:   "crowdcount.onnx",
			TopologyFile: "crowdcount.onnx.prototxt",
			RemoteURL:    "https://storage.googleapis.com/ailia-models/crowd_count/",
			Dir:          ".",
			RKNNFile:     "crowdcount-rk3588.rknn",
		},
		Input: InputConfig{
			Width:           640,
			Height:          480,
			ChannelOrder:    BGR,
			Normalize:       NormalizeNone,
			DefaultImage:    "test.jpeg",
			DefaultSavePath: "result.png",
		},
		Engine: EngineConfig{
			Platform: "rk3588",
			CoreMask: "auto",
		},
		Render: RenderConfig{
			Colormap:  "jet",
			AnchorX:   40,
			AnchorY:   440,
			FontScale: 0.8,
			Thickness: 2,
			FontSize:  24,
		},
		Video: VideoConfig{
			FourCC: "mp4v",
			FPS:    20,
		},
		Benchmark: BenchmarkConfig{
			Runs: DefaultBenchmarkRuns,
		},
	}
}

// LoadConfig reads the YAML file at path over the top of DefaultConfig.  Keys
// missing from the file keep their default value.  An empty path returns the
// defaults.
func LoadConfig(path string) (Config, error) {

	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)

	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration values are usable
func (c Config) Validate() error {

	var err error

	if c.Model.WeightFile == "" || c.Model.TopologyFile == "" {
		err = multierr.Append(err, errors.New("model weight and topology filenames are required"))
	}

	if c.Input.Width <= 0 || c.Input.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("input size %dx%d must be positive",
			c.Input.Width, c.Input.Height))
	}

	switch c.Input.ChannelOrder {
	case BGR, RGB:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown channel order %q", c.Input.ChannelOrder))
	}

	switch c.Input.Normalize {
	case NormalizeNone, Normalize255, NormalizeImageNet:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown normalization %q", c.Input.Normalize))
	}

	if !validColormap(c.Render.Colormap) {
		err = multierr.Append(err, fmt.Errorf("unknown colormap %q, use one of %s",
			c.Render.Colormap, strings.Join(Colormaps, ", ")))
	}

	if c.Render.FontScale <= 0 || c.Render.Thickness <= 0 {
		err = multierr.Append(err, errors.New("font scale and thickness must be positive"))
	}

	if c.Render.FontFile != "" && c.Render.FontSize <= 0 {
		err = multierr.Append(err, errors.New("font size must be positive when a font file is set"))
	}

	if len(c.Video.FourCC) != 4 {
		err = multierr.Append(err, fmt.Errorf("video fourcc %q must be 4 characters", c.Video.FourCC))
	}

	if c.Video.FPS <= 0 {
		err = multierr.Append(err, errors.New("video fps must be positive"))
	}

	if c.Benchmark.Runs < 1 {
		err = multierr.Append(err, errors.New("benchmark runs must be at least 1"))
	}

	return err
}

// validColormap returns true if name is one of Colormaps
func validColormap(name string) bool {

	for _, c := range Colormaps {
		if c == name {
			return true
		}
	}

	return false
}
