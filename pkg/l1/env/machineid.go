package env

import (
	"github.com/denisbrodbeck/machineid"
)

// AppID scopes the machine ID so the raw ID isn't exposed on the wire.
const AppID = "laserlink"

// MachineID retrieves a unique ID identifying the machine, hashed
// with AppID and shortened for topic names.
func MachineID() (string, error) {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		return "", err
	}
	if len(id) > 16 {
		id = id[:16]
	}
	return id, nil
}
