//go:build linux

package boost

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// setRealtimePriority moves the calling thread to SCHED_RR.
func setRealtimePriority(priority int) error {
	attr := unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_RR,
		Priority: uint32(priority),
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		return fmt.Errorf("failed to set SCHED_RR priority %d on thread %d: %w", priority, unix.Gettid(), err)
	}

	return nil
}
