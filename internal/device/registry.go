// Package device mirrors the upstream reader's view of connected input
// devices. The registry is replaced wholesale whenever the device list
// changes; consumers treat a failed lookup as a race with that refresh, not
// an error.
package device

import "github.com/bnema/lagmon/internal/event"

// Identity is the stable hardware identity of a device.
type Identity struct {
	Name    string
	Vendor  uint16
	Product uint16
}

// Device describes one connected input device.
type Device struct {
	ID           event.DeviceID
	Identity     Identity
	KeyboardType event.KeyboardType
	Sources      uint32
}

// Registry holds the current device list. It is owned by a single goroutine
// and performs no locking; serialize access externally if shared.
type Registry struct {
	devices []Device
}

func NewRegistry() *Registry {
	return &Registry{}
}

// SetDevices replaces the known device list.
func (r *Registry) SetDevices(devices []Device) {
	r.devices = devices
}

// Find returns the device with the given id. The device list is small, so a
// linear scan beats a map here.
func (r *Registry) Find(id event.DeviceID) (Device, bool) {
	for _, d := range r.devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// KeyboardType returns the keyboard type for the device, or
// KeyboardTypeNone when the device is unknown.
func (r *Registry) KeyboardType(id event.DeviceID) event.KeyboardType {
	if d, ok := r.Find(id); ok {
		return d.KeyboardType
	}
	return event.KeyboardTypeNone
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	return len(r.devices)
}
