package stream

import (
	"errors"

	"golang.org/x/sys/unix"

	"detectconsole/apperror"
)

type Prober interface {
	Probe() error
}

// DeviceProber checks that a local video device can be opened. The handle is
// released straight away; the detection service owns the camera.
type DeviceProber struct {
	Path string
}

func (p DeviceProber) Probe() error {
	if p.Path == "" {
		return apperror.UnsupportedError
	}

	fd, err := unix.Open(p.Path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
			return apperror.PermissionError.Wrap(err)
		case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
			return apperror.UnsupportedError.SetMessage("No camera device found").Wrap(err)
		default:
			return apperror.UnsupportedError.Wrap(err)
		}
	}

	_ = unix.Close(fd)
	return nil
}
