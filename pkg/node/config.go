package node

import (
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/robotalks/laserlink/pkg/buffer"
	"github.com/robotalks/laserlink/pkg/driver/periph"
	"github.com/robotalks/laserlink/pkg/l1"
	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/laser/msgs"
	"github.com/robotalks/laserlink/pkg/pdm"
	"github.com/robotalks/laserlink/pkg/sim"
)

// Drivers
const (
	DriverSim  = "sim"
	DriverGPIO = "gpio"
)

// Config defines the configurations for the node.
type Config struct {
	// Driver selects the hardware: sim or gpio.
	Driver string
	// SimRealtime paces the simulated beam in real time.
	SimRealtime bool

	LaserPin     string
	DetectorPin  string
	IndicatorPin string

	// Pulse widths in microseconds.
	High0Us int
	Low0Us  int
	High1Us int
	Low1Us  int

	OutboxSize int
	InboxSize  int
	// Capacity of the bit accumulator.
	Capacity int

	ReceiveDuration time.Duration
}

var defaultConfig = Config{
	Driver:          DriverSim,
	LaserPin:        "GPIO17",
	DetectorPin:     "GPIO27",
	IndicatorPin:    "GPIO22",
	High0Us:         int(pdm.DefaultTiming.High0 / time.Microsecond),
	Low0Us:          int(pdm.DefaultTiming.Low0 / time.Microsecond),
	High1Us:         int(pdm.DefaultTiming.High1 / time.Microsecond),
	Low1Us:          int(pdm.DefaultTiming.Low1 / time.Microsecond),
	OutboxSize:      buffer.DefaultSize,
	InboxSize:       buffer.DefaultSize,
	Capacity:        laser.DefaultCapacity,
	ReceiveDuration: msgs.DefaultReceiveDuration,
}

func init() {
	for name, dst := range map[string]*string{
		"LASERLINK_DRIVER":        &defaultConfig.Driver,
		"LASERLINK_LASER_PIN":     &defaultConfig.LaserPin,
		"LASERLINK_DETECTOR_PIN":  &defaultConfig.DetectorPin,
		"LASERLINK_INDICATOR_PIN": &defaultConfig.IndicatorPin,
	} {
		if val := os.Getenv(name); val != "" {
			*dst = val
		}
	}
	for name, dst := range map[string]*int{
		"LASERLINK_HIGH0_US": &defaultConfig.High0Us,
		"LASERLINK_LOW0_US":  &defaultConfig.Low0Us,
		"LASERLINK_HIGH1_US": &defaultConfig.High1Us,
		"LASERLINK_LOW1_US":  &defaultConfig.Low1Us,
	} {
		if val, err := strconv.Atoi(os.Getenv(name)); err == nil {
			*dst = val
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Driver, "driver", defaultConfig.Driver, "Hardware driver: sim or gpio.")
	flag.BoolVar(&defaultConfig.SimRealtime, "sim-realtime", defaultConfig.SimRealtime, "Pace the simulated beam in real time.")
	flag.StringVar(&defaultConfig.LaserPin, "laser-pin", defaultConfig.LaserPin, "Laser output pin.")
	flag.StringVar(&defaultConfig.DetectorPin, "detector-pin", defaultConfig.DetectorPin, "Detector input pin.")
	flag.StringVar(&defaultConfig.IndicatorPin, "indicator-pin", defaultConfig.IndicatorPin, "Indicator LED pin, empty for none.")
	flag.IntVar(&defaultConfig.High0Us, "high0", defaultConfig.High0Us, "Pulse width of 0 in microseconds.")
	flag.IntVar(&defaultConfig.Low0Us, "low0", defaultConfig.Low0Us, "Gap after 0 in microseconds.")
	flag.IntVar(&defaultConfig.High1Us, "high1", defaultConfig.High1Us, "Pulse width of 1 in microseconds.")
	flag.IntVar(&defaultConfig.Low1Us, "low1", defaultConfig.Low1Us, "Gap after 1 in microseconds.")
	flag.IntVar(&defaultConfig.OutboxSize, "outbox-size", defaultConfig.OutboxSize, "Outbox size in bytes.")
	flag.IntVar(&defaultConfig.InboxSize, "inbox-size", defaultConfig.InboxSize, "Inbox size in bytes.")
	flag.IntVar(&defaultConfig.Capacity, "rx-capacity", defaultConfig.Capacity, "Bits collected per receive window.")
	flag.DurationVar(&defaultConfig.ReceiveDuration, "rx-duration", defaultConfig.ReceiveDuration, "Default receive window.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Timing returns the configured pulse timing.
func (c *Config) Timing() pdm.Timing {
	return pdm.Timing{
		High0: time.Duration(c.High0Us) * time.Microsecond,
		Low0:  time.Duration(c.Low0Us) * time.Microsecond,
		High1: time.Duration(c.High1Us) * time.Microsecond,
		Low1:  time.Duration(c.Low1Us) * time.Microsecond,
	}
}

// NewController creates a controller using the config. Events are
// sent through reg, which may be nil.
func (c *Config) NewController(reg l1.Registrar, opts ...laser.Option) (*Controller, error) {
	timing := c.Timing()
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	board, closer, err := c.openBoard()
	if err != nil {
		return nil, errors.Wrapf(err, "open %s board", c.Driver)
	}
	ctl := &Controller{
		Registrar:       reg,
		Outbox:          buffer.NewOutbox(c.OutboxSize),
		Inbox:           buffer.NewInbox(c.InboxSize),
		ReceiveDuration: c.ReceiveDuration,
		closer:          closer,
		statusChanged:   true,
	}
	opts = append([]laser.Option{laser.WithTiming(timing), laser.WithCapacity(c.Capacity)}, opts...)
	if ctl.Session, err = laser.NewSession(board, ctl.Outbox, ctl.Inbox, opts...); err != nil {
		ctl.close()
		return nil, errors.Wrap(err, "create session")
	}
	if err = ctl.Session.Attach(); err != nil {
		ctl.close()
		return nil, errors.Wrap(err, "attach receiver")
	}
	return ctl, nil
}

// MustNewController creates a controller and fails on error.
func (c *Config) MustNewController(reg l1.Registrar, opts ...laser.Option) *Controller {
	ctl, err := c.NewController(reg, opts...)
	if err != nil {
		log.Fatalln(err)
	}
	return ctl
}

func (c *Config) openBoard() (laser.Board, io.Closer, error) {
	switch c.Driver {
	case DriverSim:
		b := sim.NewLoopback()
		b.Laser.Realtime = c.SimRealtime
		return b.Board(), nil, nil
	case DriverGPIO:
		b, err := periph.Open(periph.Config{
			LaserPin:     c.LaserPin,
			DetectorPin:  c.DetectorPin,
			IndicatorPin: c.IndicatorPin,
		})
		if err != nil {
			return laser.Board{}, nil, err
		}
		return b.Board(), b, nil
	}
	return laser.Board{}, nil, errors.Errorf("unknown driver %q", c.Driver)
}
