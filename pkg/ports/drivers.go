package ports

import (
	"context"

	"github.com/buzzauk/sixarm/pkg/domain"
)

// Actuator applies a pose to the physical (or simulated) outputs.
// Implementations must not retain the pose after Apply returns.
type Actuator interface {
	// Apply drives every channel to the given pulse widths.
	Apply(ctx context.Context, p domain.Pose) error
}

// Sampler reads the operator's analog inputs as a target pose.
// Values are already scaled to pulse widths inside the configured range.
type Sampler interface {
	Sample(ctx context.Context) (domain.Pose, error)
}

// ButtonLevels is one raw reading of the four panel buttons.
// A true level means the contact is closed (pressed).
type ButtonLevels struct {
	Record bool
	Run    bool
	Stop   bool
	Clear  bool
}

// Buttons reads the instantaneous button levels. Debouncing happens in
// the control core, not in the driver.
type Buttons interface {
	Levels(ctx context.Context) (ButtonLevels, error)
}

// Indicator shows the current mode color. Implementations that cannot
// blink may ignore Color.Blink and render the base color steadily.
type Indicator interface {
	Set(ctx context.Context, c domain.Color) error
}

// Diagnoser is optionally implemented by drivers that can report
// device-side fault detail. Errors returns nil when the device has
// nothing to complain about; reading may clear the device's register.
type Diagnoser interface {
	Errors(ctx context.Context) error
}
