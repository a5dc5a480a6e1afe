//go:build !linux

package boost

import "errors"

func setRealtimePriority(int) error {
	return errors.New("real-time scheduling is only supported on linux")
}
