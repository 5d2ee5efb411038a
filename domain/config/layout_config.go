package config

import (
	"fmt"
	"math"

	"github.com/santiagotion/sentinel-sub001/domain/core/entities"
	pkgerrors "github.com/santiagotion/sentinel-sub001/pkg/errors"
	"github.com/santiagotion/sentinel-sub001/pkg/utils"
)

// ChargeStrengths holds the repulsion magnitude per node kind
type ChargeStrengths struct {
	Account float64 `json:"account" yaml:"account" toml:"account" validate:"gte=0"`
	Event   float64 `json:"event" yaml:"event" toml:"event" validate:"gte=0"`
}

// TimelineConfig controls the timeline projection
type TimelineConfig struct {
	MinPointRadius float64 `json:"minPointRadius" yaml:"minPointRadius" toml:"minPointRadius" validate:"gte=0"`
	MaxPointRadius float64 `json:"maxPointRadius" yaml:"maxPointRadius" toml:"maxPointRadius" validate:"gtefield=MinPointRadius"`
}

// LayoutConfig holds every tunable of the force layout, the interaction
// controller and the timeline projection. Zero values are not defaults:
// start from DefaultLayoutConfig and override.
type LayoutConfig struct {
	// Forces
	BaseLinkDistance     float64         `json:"baseLinkDistance" yaml:"baseLinkDistance" toml:"baseLinkDistance" validate:"gt=0"`
	LinkStiffness        float64         `json:"linkStiffness" yaml:"linkStiffness" toml:"linkStiffness" validate:"gte=0"`
	ChargeStrengthByKind ChargeStrengths `json:"chargeStrengthByKind" yaml:"chargeStrengthByKind" toml:"chargeStrengthByKind"`
	CollisionPadding     float64         `json:"collisionPadding" yaml:"collisionPadding" toml:"collisionPadding" validate:"gte=0"`
	CollisionStrength    float64         `json:"collisionStrength" yaml:"collisionStrength" toml:"collisionStrength" validate:"gte=0,lte=1"`
	CenterStrength       float64         `json:"centerStrength" yaml:"centerStrength" toml:"centerStrength" validate:"gte=0,lte=1"`
	VelocityDecay        float64         `json:"velocityDecay" yaml:"velocityDecay" toml:"velocityDecay" validate:"gte=0,lt=1"`

	// Spatial partitioning for the charge force
	Theta              float64 `json:"theta" yaml:"theta" toml:"theta" validate:"gte=0"`
	BarnesHutThreshold int     `json:"barnesHutThreshold" yaml:"barnesHutThreshold" toml:"barnesHutThreshold" validate:"gte=0"`

	// Cooling
	AlphaDecay       float64 `json:"alphaDecay" yaml:"alphaDecay" toml:"alphaDecay" validate:"gt=0,lt=1"`
	AlphaThreshold   float64 `json:"alphaThreshold" yaml:"alphaThreshold" toml:"alphaThreshold" validate:"gt=0,lt=1"`
	DragAlphaTarget  float64 `json:"dragAlphaTarget" yaml:"dragAlphaTarget" toml:"dragAlphaTarget" validate:"gte=0,lte=1"`
	ReleaseAlpha     float64 `json:"releaseAlpha" yaml:"releaseAlpha" toml:"releaseAlpha" validate:"gte=0,lte=1"`
	MaxTicks         int     `json:"maxTicks" yaml:"maxTicks" toml:"maxTicks" validate:"gte=0"`
	DivergenceJitter float64 `json:"divergenceJitter" yaml:"divergenceJitter" toml:"divergenceJitter" validate:"gt=0"`
	Seed             uint64  `json:"seed" yaml:"seed" toml:"seed"`

	// Canvas and zoom
	CanvasWidth  float64 `json:"canvasWidth" yaml:"canvasWidth" toml:"canvasWidth" validate:"gt=0"`
	CanvasHeight float64 `json:"canvasHeight" yaml:"canvasHeight" toml:"canvasHeight" validate:"gt=0"`
	MinScale     float64 `json:"minScale" yaml:"minScale" toml:"minScale" validate:"gt=0"`
	MaxScale     float64 `json:"maxScale" yaml:"maxScale" toml:"maxScale" validate:"gtefield=MinScale"`

	Timeline TimelineConfig `json:"timeline" yaml:"timeline" toml:"timeline"`
}

// DefaultLayoutConfig returns the documented defaults
func DefaultLayoutConfig() *LayoutConfig {
	return &LayoutConfig{
		BaseLinkDistance: 80,
		LinkStiffness:    1,
		ChargeStrengthByKind: ChargeStrengths{
			Account: 300,
			Event:   120,
		},
		CollisionPadding:  3,
		CollisionStrength: 0.7,
		CenterStrength:    0.1,
		VelocityDecay:     0.4,

		Theta:              0.9,
		BarnesHutThreshold: 200,

		AlphaDecay:       0.99,
		AlphaThreshold:   0.001,
		DragAlphaTarget:  0.3,
		ReleaseAlpha:     0.3,
		MaxTicks:         0, // No cap by default
		DivergenceJitter: 1,
		Seed:             1,

		CanvasWidth:  960,
		CanvasHeight: 600,
		MinScale:     0.1,
		MaxScale:     8,

		Timeline: TimelineConfig{
			MinPointRadius: 3,
			MaxPointRadius: 12,
		},
	}
}

// LargeGraphLayoutConfig trades accuracy for frame budget on big graphs
func LargeGraphLayoutConfig() *LayoutConfig {
	cfg := DefaultLayoutConfig()

	cfg.BarnesHutThreshold = 100
	cfg.Theta = 1.0
	cfg.AlphaDecay = 0.98
	cfg.MaxTicks = 1000

	return cfg
}

// DevelopmentLayoutConfig caps runaway simulations so local runs always end
func DevelopmentLayoutConfig() *LayoutConfig {
	cfg := DefaultLayoutConfig()
	cfg.MaxTicks = 2000
	return cfg
}

// LoadLayoutConfig returns the preset for an environment
func LoadLayoutConfig(environment string) *LayoutConfig {
	switch environment {
	case "large":
		return LargeGraphLayoutConfig()
	case "development":
		return DevelopmentLayoutConfig()
	default:
		return DefaultLayoutConfig()
	}
}

// Clone returns an independent copy
func (c *LayoutConfig) Clone() *LayoutConfig {
	clone := *c
	return &clone
}

// Validate fails fast on structurally invalid configuration
func (c *LayoutConfig) Validate() error {
	if c == nil {
		return pkgerrors.NewConfigurationError("layout config is nil")
	}

	for name, v := range c.floatFields() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return pkgerrors.NewConfigurationError(fmt.Sprintf("%s must be a finite number", name)).
				WithDetail("field", name)
		}
	}

	if c.MinScale > c.MaxScale {
		return pkgerrors.NewConfigurationError(
			fmt.Sprintf("minScale (%g) must not exceed maxScale (%g)", c.MinScale, c.MaxScale),
		).WithDetail("field", "minScale")
	}

	if err := utils.ValidateStruct(c); err != nil {
		return pkgerrors.NewConfigurationError("invalid layout config").WithCause(err)
	}

	return nil
}

// ChargeTable returns the per-kind repulsion as a NodeKind lookup table
func (c *LayoutConfig) ChargeTable() entities.ChargeTable {
	return entities.ChargeTable{
		entities.NodeKindAccount: c.ChargeStrengthByKind.Account,
		entities.NodeKindEvent:   c.ChargeStrengthByKind.Event,
	}
}

func (c *LayoutConfig) floatFields() map[string]float64 {
	return map[string]float64{
		"baseLinkDistance":             c.BaseLinkDistance,
		"linkStiffness":                c.LinkStiffness,
		"chargeStrengthByKind.account": c.ChargeStrengthByKind.Account,
		"chargeStrengthByKind.event":   c.ChargeStrengthByKind.Event,
		"collisionPadding":             c.CollisionPadding,
		"theta":                        c.Theta,
		"divergenceJitter":             c.DivergenceJitter,
		"canvasWidth":                  c.CanvasWidth,
		"canvasHeight":                 c.CanvasHeight,
		"minScale":                     c.MinScale,
		"maxScale":                     c.MaxScale,
		"timeline.maxPointRadius":      c.Timeline.MaxPointRadius,
	}
}
