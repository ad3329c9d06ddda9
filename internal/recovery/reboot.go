package recovery

import (
	"os/exec"

	"weighstation/internal/logger"
)

// Rebooter triggers the fleet-level recovery action after a scale channel
// exhausts its reconnect budget. A failed USB-attached scale usually needs a
// bus re-enumeration, which only an OS reboot provides.
type Rebooter interface {
	Reboot() error
}

// SystemRebooter issues a privileged OS reboot.
type SystemRebooter struct {
	log *logger.Logger
}

func NewSystemRebooter(log *logger.Logger) *SystemRebooter {
	return &SystemRebooter{log: log}
}

func (r *SystemRebooter) Reboot() error {
	r.log.Errorw("rebooting system")
	return exec.Command("sudo", "reboot").Run()
}
