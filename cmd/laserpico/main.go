//go:build tinygo

// laserpico runs the transceiver on a Raspberry Pi Pico. Lines typed on
// the console are transmitted, everything else is spent receiving.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/robotalks/laserlink/pkg/buffer"
	mcu "github.com/robotalks/laserlink/pkg/driver/machine"
	"github.com/robotalks/laserlink/pkg/laser"
)

const (
	window  = 2 * time.Second
	maxLine = 256
)

func main() {
	board := mcu.NewBoard(mcu.Config{
		Laser:     machine.GP16,
		Detector:  machine.GP17,
		Indicator: machine.LED,
	})
	outbox := buffer.NewOutbox(maxLine)
	inbox := buffer.NewInbox(buffer.DefaultSize)
	session, err := laser.NewSession(board, outbox, inbox)
	if err != nil {
		println("session:", err.Error())
		return
	}
	if err := session.Attach(); err != nil {
		println("attach:", err.Error())
		return
	}

	console := machine.Serial
	line := make([]byte, 0, maxLine)
	for {
		for console.Buffered() > 0 {
			c, err := console.ReadByte()
			if err != nil {
				break
			}
			if c != '\r' && c != '\n' {
				if len(line) < maxLine {
					line = append(line, c)
				}
				continue
			}
			if len(line) == 0 {
				continue
			}
			if err := outbox.Write(line); err == nil {
				outcome, _, err := session.TransmitOutbox(laser.FullLength)
				if err != nil {
					println("tx:", err.Error())
				} else {
					println("tx:", outcome.String())
				}
			}
			line = line[:0]
		}

		res, err := session.StartReceive(context.Background(), window)
		if err != nil {
			println("rx:", err.Error())
			continue
		}
		if res.Outcome == laser.OK {
			println("rx:", inbox.Take())
		}
	}
}
