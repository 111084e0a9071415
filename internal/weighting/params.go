package weighting

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	apperrors "github.com/lexstat/pivotnorm/pkg/errors"
)

// PivotAuto selects the fitted average document length as the pivot.
const PivotAuto = "auto"

// PivotSetting is the pivot half of the configuration surface: either the
// string "auto" or a positive real value. The zero value means "auto".
type PivotSetting struct {
	auto  bool
	value float64
}

// AutoPivot returns the setting that resolves to the fitted average
// document length.
func AutoPivot() PivotSetting {
	return PivotSetting{auto: true}
}

// FixedPivot returns a setting with an explicit pivot value.
func FixedPivot(value float64) PivotSetting {
	return PivotSetting{value: value}
}

// IsAuto reports whether the pivot resolves from fitted statistics.
func (p PivotSetting) IsAuto() bool {
	return p.auto || p.value == 0
}

// Resolve returns the concrete pivot for the given fitted average document
// length.
func (p PivotSetting) Resolve(avgDocLength float64) float64 {
	if p.IsAuto() {
		return avgDocLength
	}
	return p.value
}

// UnmarshalJSON accepts either a number or the string "auto".
func (p *PivotSetting) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return p.fromString(s)
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: pivot must be a number or %q", apperrors.ErrConfiguration, PivotAuto)
	}
	*p = FixedPivot(v)
	return nil
}

// MarshalJSON emits "auto" or the numeric value.
func (p PivotSetting) MarshalJSON() ([]byte, error) {
	if p.IsAuto() {
		return json.Marshal(PivotAuto)
	}
	return json.Marshal(p.value)
}

// UnmarshalYAML accepts either a number or the string "auto".
func (p *PivotSetting) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		return p.fromString(s)
	}
	var v float64
	if err := unmarshal(&v); err != nil {
		return fmt.Errorf("%w: pivot must be a number or %q", apperrors.ErrConfiguration, PivotAuto)
	}
	*p = FixedPivot(v)
	return nil
}

func (p *PivotSetting) fromString(s string) error {
	if strings.EqualFold(s, PivotAuto) {
		*p = AutoPivot()
		return nil
	}
	return fmt.Errorf("%w: unrecognized pivot value %q", apperrors.ErrConfiguration, s)
}

// Params is the normalization configuration: the pivot reference point and
// the interpolation slope. Slope is conventionally in [0,1] but may be swept
// outside that range for experimentation; only non-finite values are
// rejected.
type Params struct {
	Pivot PivotSetting `json:"pivot"`
	Slope float64      `json:"slope"`
}

// Validate checks the parameter domain.
func (p Params) Validate() error {
	if !p.Pivot.IsAuto() && p.Pivot.value < 0 {
		return fmt.Errorf("%w: pivot must be positive, got %g", apperrors.ErrConfiguration, p.Pivot.value)
	}
	if math.IsNaN(p.Slope) || math.IsInf(p.Slope, 0) {
		return fmt.Errorf("%w: slope must be finite, got %g", apperrors.ErrConfiguration, p.Slope)
	}
	return nil
}

// ParseParams builds Params from a loose key/value configuration map,
// rejecting unrecognized keys. Recognized keys are "pivot" and "slope".
func ParseParams(raw map[string]any) (Params, error) {
	params := Params{Pivot: AutoPivot(), Slope: 1.0}
	for key, value := range raw {
		switch key {
		case "pivot":
			switch v := value.(type) {
			case string:
				if err := params.Pivot.fromString(v); err != nil {
					return Params{}, err
				}
			case float64:
				params.Pivot = FixedPivot(v)
			case int:
				params.Pivot = FixedPivot(float64(v))
			default:
				return Params{}, fmt.Errorf("%w: pivot must be a number or %q", apperrors.ErrConfiguration, PivotAuto)
			}
		case "slope":
			switch v := value.(type) {
			case float64:
				params.Slope = v
			case int:
				params.Slope = float64(v)
			default:
				return Params{}, fmt.Errorf("%w: slope must be a number", apperrors.ErrConfiguration)
			}
		default:
			return Params{}, fmt.Errorf("%w: unrecognized option %q", apperrors.ErrConfiguration, key)
		}
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}
