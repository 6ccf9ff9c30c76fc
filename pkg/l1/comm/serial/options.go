// Package serial carries L1 packets over a serial line, e.g. a USB
// CDC port to a microcontroller or between two hosts.
package serial

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// PortOptions are the line settings.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// DefaultBaudRate is used when the URL has none.
const DefaultBaudRate = 115200

// Normalize validates the options and fills in defaults.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}
	switch parity := strings.TrimSpace(strings.ToUpper(opts.Parity)); parity {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	return opts, nil
}

// Mode converts the options for serial.Open.
func (o PortOptions) Mode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	mode := &serial.Mode{BaudRate: opts.BaudRate, DataBits: opts.DataBits}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	} else {
		mode.StopBits = serial.OneStopBit
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}
	return mode, nil
}

// ParseURL parses serial:///dev/ttyUSB0?baud=115200&databits=8&stopbits=1&parity=N
// into the port name and options.
func ParseURL(rawURL string) (port string, opts PortOptions, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	if u.Scheme != "serial" {
		err = fmt.Errorf("serial URL scheme must be serial: %q", u.Scheme)
		return
	}
	if port = u.Host + u.Path; port == "" {
		err = fmt.Errorf("serial URL without port: %q", rawURL)
		return
	}
	q := u.Query()
	for key, dst := range map[string]*int{
		"baud":     &opts.BaudRate,
		"databits": &opts.DataBits,
		"stopbits": &opts.StopBits,
	} {
		if val := q.Get(key); val != "" {
			if *dst, err = strconv.Atoi(val); err != nil {
				err = fmt.Errorf("serial URL %s: %w", key, err)
				return
			}
		}
	}
	opts.Parity = q.Get("parity")
	opts, err = opts.Normalize()
	return
}
