package domain

// NumChannels is the number of independent position channels on the rig.
const NumChannels = 6

// Default pulse bounds in microseconds. Device-specific; most hobby
// servos accept roughly this range. Overridable through PulseRange.
const (
	DefaultMinPulse uint16 = 600
	DefaultMaxPulse uint16 = 2400
)

// ChannelNames maps channel indices 0-5 to the joints of the arm,
// matching servo IDs 1-6 on the bus.
var ChannelNames = [NumChannels]string{
	"shoulder_pan",
	"shoulder_lift",
	"elbow_flex",
	"wrist_flex",
	"wrist_roll",
	"gripper",
}

// PulseRange bounds every channel value. Values outside the range are
// clamped, never rejected: a slightly miscalibrated pot must not make
// the rig unusable.
type PulseRange struct {
	Min uint16 `json:"min" yaml:"min"`
	Max uint16 `json:"max" yaml:"max"`
}

// DefaultPulseRange returns the standard hobby-servo bounds.
func DefaultPulseRange() PulseRange {
	return PulseRange{Min: DefaultMinPulse, Max: DefaultMaxPulse}
}

// ClampValue forces a single channel value into the range.
func (r PulseRange) ClampValue(v uint16) uint16 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Pose is an ordered vector of six pulse-width values, one per channel.
// It has value semantics: poses are copied wholesale, never mutated in
// place by consumers. A zero Pose is valid but below any real pulse
// range; clamp before driving hardware.
type Pose [NumChannels]uint16

// Clamp returns a copy of the pose with every channel forced into r.
func (p Pose) Clamp(r PulseRange) Pose {
	for i, v := range p {
		p[i] = r.ClampValue(v)
	}
	return p
}

// Within reports whether every channel of p is within tol of the
// corresponding channel of other.
func (p Pose) Within(other Pose, tol int) bool {
	for i := range p {
		d := int(p[i]) - int(other[i])
		if d < 0 {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}

// Mid returns a pose with every channel at the center of r. Used as a
// safe boot position before the first sensor read.
func Mid(r PulseRange) Pose {
	var p Pose
	c := r.Min + (r.Max-r.Min)/2
	for i := range p {
		p[i] = c
	}
	return p
}
