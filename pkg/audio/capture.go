package audio

import (
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
)

// ErrBackendUnavailable marks a failed audio backend init, meaning the
// environment has no capture capability at all. Device-level failures wrap
// the backend error instead.
var ErrBackendUnavailable = errors.New("audio backend unavailable")

// CaptureDevice is an open microphone stream delivering fixed-size PCM16
// blocks to a callback at the capture period. The callback fires on the
// audio thread; it must not block.
type CaptureDevice struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	closed bool
}

// OpenCapture initializes the audio backend and starts the default capture
// device. A context init failure means no capture capability exists in this
// environment; a device init/start failure usually means access was denied.
func OpenCapture(onBlock func(pcm []byte)) (*CaptureDevice, error) {
	cfg := malgo.ContextConfig{}
	cfg.ThreadPriority = malgo.ThreadPriorityRealtime

	ctx, err := malgo.InitContext(nil, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = Channels
	deviceConfig.SampleRate = CaptureSampleRateHz
	deviceConfig.PeriodSizeInMilliseconds = CaptureBlockMS

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, _ uint32) {
			if len(pInput) == 0 {
				return
			}
			block := make([]byte, len(pInput))
			copy(block, pInput)
			onBlock(block)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("start microphone: %w", err)
	}

	return &CaptureDevice{ctx: ctx, device: device}, nil
}

// Close stops the device and releases the audio context. Idempotent;
// teardown failures are swallowed.
func (c *CaptureDevice) Close() {
	if c == nil || c.closed {
		return
	}
	c.closed = true
	if c.device != nil {
		_ = c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}
