package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kilianp07/simforecast/core/prediction/position"
	"github.com/kilianp07/simforecast/core/prediction/sequence"
	"github.com/kilianp07/simforecast/core/regression"
)

// PositionConfig configures the position forecaster.
type PositionConfig struct {
	// Dataset is the telemetry CSV exported by the simulator.
	Dataset string `json:"dataset"`
	// Output receives "<x> <y>".
	Output string `json:"output"`
	// Window is the number of most recent vehicle rows used for fitting.
	Window int          `json:"window"`
	Kernel KernelConfig `json:"kernel"`
}

// KernelConfig holds the RBF regressor hyperparameters.
type KernelConfig struct {
	// Gamma is "scale" or a positive number.
	Gamma string  `json:"gamma"`
	Alpha float64 `json:"alpha"`
}

// SetDefaults applies sane defaults.
func (c *PositionConfig) SetDefaults() {
	if c.Dataset == "" {
		c.Dataset = "simulator_data.csv"
	}
	if c.Output == "" {
		c.Output = "outputSVR.txt"
	}
	if c.Window == 0 {
		c.Window = position.DefaultWindow
	}
	if c.Kernel.Gamma == "" {
		c.Kernel.Gamma = "scale"
	}
	if c.Kernel.Alpha == 0 {
		c.Kernel.Alpha = 1
	}
}

// Validate checks mandatory fields.
func (c PositionConfig) Validate() error {
	if c.Dataset == "" || c.Output == "" {
		return fmt.Errorf("dataset and output are required")
	}
	if c.Window < 0 {
		return fmt.Errorf("window must not be negative")
	}
	if !(c.Kernel.Alpha > 0) || math.IsInf(c.Kernel.Alpha, 0) {
		return fmt.Errorf("kernel alpha must be positive")
	}
	if _, err := c.Kernel.GammaValue(); err != nil {
		return err
	}
	return nil
}

// GammaValue resolves Gamma to a number, regression.GammaScale for "scale".
func (k KernelConfig) GammaValue() (float64, error) {
	if strings.EqualFold(k.Gamma, "scale") {
		return regression.GammaScale, nil
	}
	v, err := strconv.ParseFloat(k.Gamma, 64)
	if err != nil || !(v > 0) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid kernel gamma %q", k.Gamma)
	}
	return v, nil
}

// Factory returns the regressor factory for these hyperparameters.
func (k KernelConfig) Factory() (regression.Factory, error) {
	gamma, err := k.GammaValue()
	if err != nil {
		return nil, err
	}
	return regression.NewKernelRidge(gamma, k.Alpha), nil
}

// SequenceConfig configures the sequence forecaster.
type SequenceConfig struct {
	// Input holds the historical sequence.
	Input string `json:"input"`
	// Recent holds the sample whose mean seeds the query window.
	Recent string `json:"recent"`
	// Output receives the predicted value.
	Output       string  `json:"output"`
	Window       int     `json:"window"`
	Step         float64 `json:"step"`
	Hidden       int     `json:"hidden"`
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	// ClipNorm bounds the gradient norm. Unset means 5, 0 disables clipping.
	ClipNorm *float64 `json:"clip_norm"`
	Seed     uint64   `json:"seed"`
}

const defaultClipNorm = 5.0

// SetDefaults applies sane defaults.
func (c *SequenceConfig) SetDefaults() {
	if c.Input == "" {
		c.Input = "inputLSTM.txt"
	}
	if c.Recent == "" {
		c.Recent = "inputLSTMTestData.txt"
	}
	if c.Output == "" {
		c.Output = "outputLSTM.txt"
	}
	if c.Window == 0 {
		c.Window = 5
	}
	if c.Step == 0 {
		c.Step = 5
	}
	if c.Hidden == 0 {
		c.Hidden = 20
	}
	if c.Epochs == 0 {
		c.Epochs = 25
	}
	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.001
	}
	if c.ClipNorm == nil {
		clip := defaultClipNorm
		c.ClipNorm = &clip
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

// Validate checks mandatory fields.
func (c SequenceConfig) Validate() error {
	if c.Input == "" || c.Recent == "" || c.Output == "" {
		return fmt.Errorf("input, recent and output are required")
	}
	if c.Window < 1 || c.Hidden < 1 || c.Epochs < 1 || c.BatchSize < 1 {
		return fmt.Errorf("window, hidden, epochs and batch_size must be positive")
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive")
	}
	if c.ClipNorm != nil && *c.ClipNorm < 0 {
		return fmt.Errorf("clip_norm must not be negative")
	}
	return nil
}

// Forecaster returns the sequence forecaster settings.
func (c SequenceConfig) Forecaster() sequence.Config {
	clip := defaultClipNorm
	if c.ClipNorm != nil {
		clip = *c.ClipNorm
	}
	return sequence.Config{
		Window: c.Window,
		Step:   c.Step,
		Network: sequence.NetworkConfig{
			Hidden:       c.Hidden,
			Epochs:       c.Epochs,
			BatchSize:    c.BatchSize,
			LearningRate: c.LearningRate,
			ClipNorm:     clip,
			Seed:         c.Seed,
		},
	}
}
