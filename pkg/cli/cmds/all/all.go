// Package all registers all shell commands.
package all

import (
	_ "github.com/robotalks/laserlink/pkg/cli/cmds/laser"
)
