// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, replaced in tests.
var (
	paInitialize             = portaudio.Initialize
	paTerminate              = portaudio.Terminate
	paDevicesFunc            = portaudio.Devices
	paDefaultInputDeviceFunc = portaudio.DefaultInputDevice
)

// Session owns the PortAudio library. Sources opened on a session never
// terminate the library themselves; Terminate must be called once every
// source is closed.
type Session struct {
	mu         sync.Mutex
	terminated bool
}

// Initialize sets up the PortAudio subsystem.
func Initialize() (*Session, error) {
	if err := paInitialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &Session{}, nil
}

// Terminate shuts PortAudio down. Calling it more than once is a no-op.
func (s *Session) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return nil
	}
	s.terminated = true

	if err := paTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Device describes one host audio device.
type Device struct {
	ID                      int
	Name                    string
	HostAPI                 string
	MaxInputChannels        int
	MaxOutputChannels       int
	DefaultSampleRate       float64
	DefaultLowInputLatency  time.Duration
	DefaultHighInputLatency time.Duration
	IsDefaultInput          bool
}

// Stereo reports whether the device can deliver both capture channels.
func (d Device) Stereo() bool {
	return d.MaxInputChannels >= DefaultChannels
}

// Type is "Input", "Output" or "Input/Output".
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return ""
	}
}

// HostDevices lists every device PortAudio reports. The session must be live.
func (s *Session) HostDevices() ([]Device, error) {
	infos, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("%w: listing devices: %w", ErrDevice, err)
	}

	var defaultName string
	if def, err := paDefaultInputDeviceFunc(); err == nil && def != nil {
		defaultName = def.Name
	}

	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                      i,
			Name:                    info.Name,
			MaxInputChannels:        info.MaxInputChannels,
			MaxOutputChannels:       info.MaxOutputChannels,
			DefaultSampleRate:       info.DefaultSampleRate,
			DefaultLowInputLatency:  info.DefaultLowInputLatency,
			DefaultHighInputLatency: info.DefaultHighInputLatency,
			IsDefaultInput:          defaultName != "" && info.Name == defaultName,
		}
		if info.HostApi != nil {
			devices[i].HostAPI = info.HostApi.Name
		}
	}
	return devices, nil
}

// inputDevice resolves a device ID. DefaultDeviceID selects the system
// default input device.
func inputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == DefaultDeviceID {
		device, err := paDefaultInputDeviceFunc()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %w", ErrDevice, err)
		}
		return device, nil
	}

	devices, err := paDevicesFunc()
	if err != nil {
		return nil, fmt.Errorf("%w: listing devices: %w", ErrDevice, err)
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("%w: invalid device ID: %d", ErrDevice, deviceID)
	}
	if devices[deviceID].MaxInputChannels < 1 {
		return nil, fmt.Errorf("%w: device %d (%s) has no input channels", ErrDevice, deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// ListDevices writes a human-readable device listing to w.
func (s *Session) ListDevices(w io.Writer) error {
	devices, err := s.HostDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Audio Devices\n\n")

	for _, device := range devices {
		marker := ""
		if device.IsDefaultInput {
			marker = " *default input*"
		}
		fmt.Fprintf(w, "[%d] %s (%s)%s\n", device.ID, device.Name, device.Type(), marker)
		fmt.Fprintf(w, "    Input channels: %d, Output channels: %d\n", device.MaxInputChannels, device.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n",
			device.DefaultLowInputLatency.Seconds()*1000,
			device.DefaultHighInputLatency.Seconds()*1000)
		fmt.Fprintln(w)
	}

	return nil
}
