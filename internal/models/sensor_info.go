package models

import "time"

// DeviceInfo contains metadata about the controller board
type DeviceInfo struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	Variant   string    `json:"variant"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
}

// Uptime returns the duration since the controller started
func (d *DeviceInfo) Uptime() time.Duration {
	return time.Since(d.StartTime)
}

// SinceStart returns milliseconds elapsed since start, used as the snapshot timestamp
func (d *DeviceInfo) SinceStart() int64 {
	return time.Since(d.StartTime).Milliseconds()
}

// NewDeviceInfo creates a new DeviceInfo with the current time as start time
func NewDeviceInfo(id, location, variant, version string) *DeviceInfo {
	return &DeviceInfo{
		ID:        id,
		Location:  location,
		Variant:   variant,
		Version:   version,
		StartTime: time.Now(),
	}
}
