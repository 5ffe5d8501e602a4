package gotransit

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Model names accepted by Config.Model.
const (
	ModelUniform               = "uniform"
	ModelQuadratic             = "quadratic"
	ModelInterpolatedQuadratic = "interpolated_quadratic"
	ModelPower2                = "power-2"
	ModelChromosphere          = "chromosphere"
)

// ModelNames lists the supported model names.
var ModelNames = []string{ModelUniform, ModelQuadratic, ModelInterpolatedQuadratic, ModelPower2, ModelChromosphere}

// TableStore persists interpolation tables between model instances.
// Load returns an error wrapping ErrTableNotFound on a miss.
type TableStore interface {
	Load(ctx context.Context, key TableKey) (*Table, error)
	Save(ctx context.Context, t *Table) error
}

// Config selects and tunes a transit model.
type Config struct {
	// Model is one of ModelNames.
	Model string
	// NLDC is the number of limb darkening coefficients per passband. The
	// quadratic model accepts 0, which selects the uniform disk.
	NLDC int
	// Interpolate evaluates the quadratic model through an interpolation table.
	Interpolate bool
	KMin        float64
	KMax        float64
	NK          int
	NZ          int

	// Supersampling and ExposureTime are used for datasets that do not set
	// them per light curve.
	Supersampling int
	ExposureTime  float64

	// Eclipse models secondary eclipses instead of transits. Samples with the
	// other geometry evaluate to 1. The chromosphere model always sets it.
	Eclipse bool

	// Workers bounds evaluation parallelism, GOMAXPROCS when zero.
	Workers           int
	ChromosphereNodes int

	Tables TableStore
	Logger hclog.Logger
}

// DefaultConfig returns the quadratic model with the default table layout.
func DefaultConfig() Config {
	return Config{
		Model:             ModelQuadratic,
		NLDC:              2,
		KMin:              DefaultKMin,
		KMax:              DefaultKMax,
		NK:                DefaultNK,
		NZ:                DefaultNZ,
		Supersampling:     1,
		ExposureTime:      DefaultExposureTime,
		ChromosphereNodes: DefaultChromosphereNodes,
	}
}

func (c Config) tableKey() TableKey {
	return TableKey{KMin: c.KMin, KMax: c.KMax, NK: c.NK, NZ: c.NZ}
}

// resolve maps the configuration onto a kernel kind and checks the
// coefficient count.
func (c Config) resolve() (kind Kind, interpolate bool, err error) {
	name := strings.ToLower(strings.TrimSpace(c.Model))
	switch name {
	case ModelUniform:
		if c.NLDC != 0 {
			return 0, false, fmt.Errorf("%w: uniform model takes no coefficients, got %d", ErrLDCCount, c.NLDC)
		}
		return Uniform, false, nil

	case ModelQuadratic, ModelInterpolatedQuadratic:
		switch c.NLDC {
		case 0:
			return Uniform, false, nil
		case 2:
			return Quadratic, name == ModelInterpolatedQuadratic || c.Interpolate, nil
		}
		return 0, false, fmt.Errorf("%w: quadratic model takes 0 or 2 coefficients, got %d", ErrLDCCount, c.NLDC)

	case ModelPower2:
		if c.NLDC != 2 {
			return 0, false, fmt.Errorf("%w: power-2 model takes 2 coefficients, got %d", ErrLDCCount, c.NLDC)
		}
		return Power2, false, nil

	case ModelChromosphere:
		if c.NLDC != 0 {
			return 0, false, fmt.Errorf("%w: chromosphere model takes no coefficients, got %d", ErrLDCCount, c.NLDC)
		}
		return Chromosphere, false, nil
	}
	return 0, false, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownModel, c.Model, strings.Join(ModelNames, ", "))
}

// Preset returns a named configuration bundle: uniform, quadratic,
// interpolated-quadratic, power-2 or chromosphere.
func Preset(name string) (Config, error) {
	cfg := DefaultConfig()
	switch strings.ReplaceAll(strings.ToLower(name), "_", "-") {
	case "quadratic":
	case "interpolated-quadratic":
		cfg.Model = ModelInterpolatedQuadratic
		cfg.Interpolate = true
	case "uniform":
		cfg.Model = ModelUniform
		cfg.NLDC = 0
	case "power-2", "power2", "qpower2":
		cfg.Model = ModelPower2
	case "chromosphere":
		cfg.Model = ModelChromosphere
		cfg.NLDC = 0
		cfg.Eclipse = true
	default:
		return Config{}, fmt.Errorf("%w: no preset named %q", ErrUnknownModel, name)
	}
	return cfg, nil
}
