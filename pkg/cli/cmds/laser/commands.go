// Package laser provides shell commands for a laser link node.
package laser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/laserlink/pkg/cli/sh"
	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/laser/msgs"
)

// ParseDuration accepts a Go duration ("2s") or milliseconds ("2000").
func ParseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %v", d)
	}
	return d, nil
}

func text(args []string) []byte {
	return []byte(strings.Join(args, " "))
}

var (
	// OutboxWriteCmd replaces the outbox.
	OutboxWriteCmd = ishell.Cmd{
		Name:    "outbox.write",
		Aliases: []string{"ow"},
		Help:    "TEXT...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.OutboxWrite{Data: text(c.Args)})
		}),
	}

	// OutboxAppendCmd appends to the outbox.
	OutboxAppendCmd = ishell.Cmd{
		Name:    "outbox.append",
		Aliases: []string{"oa"},
		Help:    "TEXT...",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.OutboxWrite{Data: text(c.Args), Append: true})
		}),
	}

	// TransmitCmd transmits the outbox, or TEXT if given.
	TransmitCmd = ishell.Cmd{
		Name:    "tx",
		Aliases: []string{"transmit", "t"},
		Help:    "[TEXT...]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.Transmit{Data: text(c.Args), Length: laser.FullLength})
		}),
	}

	// TransmitPrefixCmd transmits the first N bytes of the outbox.
	TransmitPrefixCmd = ishell.Cmd{
		Name:    "tx.len",
		Aliases: []string{"tn"},
		Help:    "N",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("length expected"))
				return
			}
			n, err := strconv.ParseInt(c.Args[0], 10, 32)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, &msgs.Transmit{Length: int32(n)})
		}),
	}

	// ReceiveCmd opens a receive window.
	ReceiveCmd = ishell.Cmd{
		Name:    "rx",
		Aliases: []string{"receive", "r"},
		Help:    "[DURATION]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var msg msgs.Receive
			if len(c.Args) > 0 {
				d, err := ParseDuration(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				msg.DurationMs = uint32(d / time.Millisecond)
			}
			sh.DoCommand(c, &msg)
		}),
	}

	// InboxCmd prints the inbox.
	InboxCmd = ishell.Cmd{
		Name:    "inbox",
		Aliases: []string{"i"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.InboxRead{})
		}),
	}

	// InboxTakeCmd prints and clears the inbox.
	InboxTakeCmd = ishell.Cmd{
		Name:    "inbox.take",
		Aliases: []string{"it"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.InboxRead{Clear: true})
		}),
	}

	// StatusCmd queries the link status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.LinkStatusQuery{})
		}),
	}
)

func init() {
	sh.AddCmds(
		&OutboxWriteCmd,
		&OutboxAppendCmd,
		&TransmitCmd,
		&TransmitPrefixCmd,
		&ReceiveCmd,
		&InboxCmd,
		&InboxTakeCmd,
		&StatusCmd,
	)
}
