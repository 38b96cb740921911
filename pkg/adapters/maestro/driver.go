// Package maestro drives a Pololu Maestro servo controller over a
// serial link. One link backs all four driver ports: servo outputs,
// pot inputs, button inputs, and the indicator channels.
//
// Frames use the compact protocol, which assumes a single controller
// on the bus. See https://www.pololu.com/docs/pdf/0J40/maestro.pdf.
package maestro

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tarm/serial"

	"github.com/buzzauk/sixarm/pkg/domain"
	"github.com/buzzauk/sixarm/pkg/ports"
)

// Compact-protocol command bytes.
const (
	cmdSetTarget          = 0x84
	cmdGetPosition        = 0x90
	cmdSetMultipleTargets = 0x9F
	cmdGetErrors          = 0xA1
	cmdGoHome             = 0xA2
)

// analogFullScale is the top of the Maestro's 10-bit input range.
const analogFullScale = 1023

// Port is the serial link the driver talks over. *serial.Port
// satisfies it; tests substitute a scripted fake.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// ButtonChannels maps each panel button to its input channel.
type ButtonChannels struct {
	Record int
	Run    int
	Stop   int
	Clear  int
}

// Options is the channel map of one rig. Zero-valued fields take the
// standard layout: servos on 0-5, pots on 6-11, buttons on 12-15 and
// the indicator on 16-18.
type Options struct {
	// Device is the serial device path, e.g. /dev/ttyACM0.
	Device string
	// Baud is the serial bit rate.
	Baud int
	// Range bounds the servo pulse widths in microseconds.
	Range domain.PulseRange
	// Servos are the output channels, one per position channel.
	Servos [domain.NumChannels]int
	// Pots are the analog input channels, one per position channel.
	Pots [domain.NumChannels]int
	// Buttons are the button input channels.
	Buttons ButtonChannels
	// Indicator are the R, G, B indicator channels.
	Indicator [3]int
}

func applyDefaults(opts *Options) {
	if opts.Baud == 0 {
		opts.Baud = 57600
	}
	if opts.Range == (domain.PulseRange{}) {
		opts.Range = domain.DefaultPulseRange()
	}
	if opts.Servos == ([domain.NumChannels]int{}) {
		opts.Servos = [domain.NumChannels]int{0, 1, 2, 3, 4, 5}
	}
	if opts.Pots == ([domain.NumChannels]int{}) {
		opts.Pots = [domain.NumChannels]int{6, 7, 8, 9, 10, 11}
	}
	if opts.Buttons == (ButtonChannels{}) {
		opts.Buttons = ButtonChannels{Record: 12, Run: 13, Stop: 14, Clear: 15}
	}
	if opts.Indicator == ([3]int{}) {
		opts.Indicator = [3]int{16, 17, 18}
	}
}

// Driver implements ports.Actuator, ports.Sampler, ports.Buttons and
// ports.Indicator over one Maestro link. The mutex serializes frames:
// the control loop owns the driver, but shutdown parking may arrive
// from another goroutine.
type Driver struct {
	mu   sync.Mutex
	port Port
	opts Options
}

var (
	_ ports.Actuator  = (*Driver)(nil)
	_ ports.Sampler   = (*Driver)(nil)
	_ ports.Buttons   = (*Driver)(nil)
	_ ports.Indicator = (*Driver)(nil)
	_ ports.Diagnoser = (*Driver)(nil)
)

// Open dials the serial device and returns a connected driver.
func Open(opts Options) (*Driver, error) {
	applyDefaults(&opts)
	port, err := serial.OpenPort(&serial.Config{Name: opts.Device, Baud: opts.Baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", opts.Device, err)
	}
	return New(port, opts), nil
}

// New wraps an already-open port.
func New(port Port, opts Options) *Driver {
	applyDefaults(&opts)
	return &Driver{port: port, opts: opts}
}

// Data bytes carry 7 bits each on the wire.
func lo(v uint16) byte { return byte(v & 0x7F) }
func hi(v uint16) byte { return byte(v >> 7 & 0x7F) }

// Targets are expressed in quarter-microseconds.
func quarterMicros(pulse uint16) uint16 { return pulse * 4 }

// Apply drives the servo outputs to the pose. Contiguous channel maps
// go out as one multi-target frame; anything else falls back to one
// frame per channel.
func (d *Driver) Apply(ctx context.Context, pose domain.Pose) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if first, ok := d.contiguousServos(); ok {
		frame := []byte{cmdSetMultipleTargets, domain.NumChannels, byte(first)}
		for _, v := range pose {
			t := quarterMicros(d.opts.Range.ClampValue(v))
			frame = append(frame, lo(t), hi(t))
		}
		return d.write(frame)
	}

	for i, v := range pose {
		t := quarterMicros(d.opts.Range.ClampValue(v))
		if err := d.write([]byte{cmdSetTarget, byte(d.opts.Servos[i]), lo(t), hi(t)}); err != nil {
			return err
		}
	}
	return nil
}

// Sample reads the pot inputs and scales the 10-bit readings into the
// pulse range.
func (d *Driver) Sample(ctx context.Context) (domain.Pose, error) {
	if err := ctx.Err(); err != nil {
		return domain.Pose{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var pose domain.Pose
	span := uint32(d.opts.Range.Max - d.opts.Range.Min)
	for i, ch := range d.opts.Pots {
		raw, err := d.getPosition(ch)
		if err != nil {
			return domain.Pose{}, err
		}
		if raw > analogFullScale {
			raw = analogFullScale
		}
		pose[i] = d.opts.Range.Min + uint16(uint32(raw)*span/analogFullScale)
	}
	return pose, nil
}

// Levels reads the button inputs. Anything above half scale counts as
// pressed, which covers both digital and pulled-up analog wiring.
func (d *Driver) Levels(ctx context.Context) (ports.ButtonLevels, error) {
	if err := ctx.Err(); err != nil {
		return ports.ButtonLevels{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var lv ports.ButtonLevels
	for _, b := range []struct {
		ch      int
		pressed *bool
	}{
		{d.opts.Buttons.Record, &lv.Record},
		{d.opts.Buttons.Run, &lv.Run},
		{d.opts.Buttons.Stop, &lv.Stop},
		{d.opts.Buttons.Clear, &lv.Clear},
	} {
		raw, err := d.getPosition(b.ch)
		if err != nil {
			return ports.ButtonLevels{}, err
		}
		*b.pressed = raw > analogFullScale/2
	}
	return lv, nil
}

// Set drives the indicator channels. Each color component scales onto
// the pulse range, which suits LED drivers keyed to pulse width. The
// hardware cannot flash, so blinking colors render steady.
func (d *Driver) Set(ctx context.Context, c domain.Color) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	span := uint32(d.opts.Range.Max - d.opts.Range.Min)
	for i, comp := range [3]uint8{c.R, c.G, c.B} {
		t := quarterMicros(d.opts.Range.Min + uint16(uint32(comp)*span/255))
		if err := d.write([]byte{cmdSetTarget, byte(d.opts.Indicator[i]), lo(t), hi(t)}); err != nil {
			return err
		}
	}
	return nil
}

// GoHome sends every channel to its configured home position. Close
// issues it automatically so a released rig parks instead of freezing
// mid-motion; it is exported for embedders that want to park without
// giving up the port.
func (d *Driver) GoHome(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.write([]byte{cmdGoHome})
}

// Bit positions of the Maestro error register.
var errorBits = []string{
	"serial signal error",
	"serial overrun error",
	"serial buffer full",
	"serial crc error",
	"serial protocol error",
	"serial timeout",
	"script stack error",
	"script call stack error",
	"script program counter error",
}

// Errors reads and clears the controller's error register, returning
// nil when no bits are set.
func (d *Driver) Errors(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write([]byte{cmdGetErrors}); err != nil {
		return err
	}
	buf := make([]byte, 2)
	if _, err := io.ReadFull(d.port, buf); err != nil {
		return fmt.Errorf("failed to read error reply: %w", err)
	}
	return decodeErrors(uint16(buf[0]) | uint16(buf[1])<<8)
}

func decodeErrors(val uint16) error {
	var s []string
	for i, msg := range errorBits {
		if val&(1<<i) != 0 {
			s = append(s, msg)
		}
	}
	if len(s) == 0 {
		return nil
	}
	return errors.New(strings.Join(s, ","))
}

// Close parks the servos with a GoHome frame, then releases the
// serial port. The port is closed even when parking fails.
func (d *Driver) Close() error {
	d.mu.Lock()
	parkErr := d.write([]byte{cmdGoHome})
	d.mu.Unlock()
	if err := d.port.Close(); err != nil {
		return err
	}
	return parkErr
}

func (d *Driver) contiguousServos() (int, bool) {
	first := d.opts.Servos[0]
	for i, ch := range d.opts.Servos {
		if ch != first+i {
			return 0, false
		}
	}
	return first, true
}

func (d *Driver) write(frame []byte) error {
	if _, err := d.port.Write(frame); err != nil {
		return fmt.Errorf("failed to write serial frame: %w", err)
	}
	return nil
}

func (d *Driver) getPosition(ch int) (uint16, error) {
	if err := d.write([]byte{cmdGetPosition, byte(ch)}); err != nil {
		return 0, err
	}
	buf := make([]byte, 2)
	if _, err := io.ReadFull(d.port, buf); err != nil {
		return 0, fmt.Errorf("failed to read position reply: %w", err)
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}
