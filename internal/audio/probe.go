package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNoCaptureDevice = errors.New("no usable capture device")

// DeviceInfo describes one capture device as enumerated at startup.
type DeviceInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// preference lists name fragments in the order they are favoured.
var preference = [][]string{
	{"usb", "hardware"},
	{"usb"},
	{"webcam"},
	{"c-media"},
}

// Probe picks the capture device to use. It has no side effects: the caller
// enumerates devices once and passes them in.
//
// A non-empty preferred value selects by index ("2") or by case-insensitive
// name fragment and fails if nothing matches. Otherwise USB hardware devices
// win, then other USB/webcam devices, then the system default, then the first
// device that is not a monitor of an output.
func Probe(devices []DeviceInfo, preferred string) (DeviceInfo, error) {
	if len(devices) == 0 {
		return DeviceInfo{}, ErrNoCaptureDevice
	}

	if p := strings.TrimSpace(preferred); p != "" {
		if idx, err := strconv.Atoi(p); err == nil {
			for _, d := range devices {
				if d.Index == idx {
					return d, nil
				}
			}
			return DeviceInfo{}, fmt.Errorf("%w: index %d not present", ErrNoCaptureDevice, idx)
		}
		lp := strings.ToLower(p)
		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), lp) {
				return d, nil
			}
		}
		return DeviceInfo{}, fmt.Errorf("%w: no device matching %q", ErrNoCaptureDevice, p)
	}

	var usable []DeviceInfo
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), "monitor") {
			continue
		}
		usable = append(usable, d)
	}
	if len(usable) == 0 {
		return DeviceInfo{}, ErrNoCaptureDevice
	}

	for _, frags := range preference {
		for _, d := range usable {
			if containsAll(strings.ToLower(d.Name), frags) {
				return d, nil
			}
		}
	}
	for _, d := range usable {
		if d.IsDefault {
			return d, nil
		}
	}
	return usable[0], nil
}

func containsAll(s string, frags []string) bool {
	for _, f := range frags {
		if !strings.Contains(s, f) {
			return false
		}
	}
	return true
}
