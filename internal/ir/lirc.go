//go:build linux

package ir

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sweeney/ir-learner/internal/logic"
)

// LIRC ioctls and modes from <linux/lirc.h>.
const (
	lircGetFeatures = 0x80046900 // _IOR('i', 0x00, __u32)
	lircSetSendMode = 0x40046911 // _IOW('i', 0x11, __u32)
	lircSetRecMode  = 0x40046912 // _IOW('i', 0x12, __u32)

	lircModeScancode      = 0x00000008
	lircCanRecScancode    = lircModeScancode << 16
	lircCanSendPulse      = 0x00000002
	defaultReceiverDevice = "/dev/lirc0"
)

// LircReceiver reads kernel-decoded scancodes from a LIRC device.
type LircReceiver struct {
	fd   int
	path string
	now  func() time.Time
	buf  []byte
}

// NewLircReceiver opens path (e.g. /dev/lirc0) non-blocking in scancode mode.
// now stamps each decoded event.
func NewLircReceiver(path string, now func() time.Time) (*LircReceiver, error) {
	if path == "" {
		path = defaultReceiverDevice
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	features, err := unix.IoctlGetUint32(fd, lircGetFeatures)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: get features: %w", path, err)
	}
	if features&lircCanRecScancode == 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: device cannot receive scancodes (features=0x%x)", path, features)
	}
	if err := unix.IoctlSetPointerInt(fd, lircSetRecMode, lircModeScancode); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: set scancode receive mode: %w", path, err)
	}

	return &LircReceiver{
		fd:   fd,
		path: path,
		now:  now,
		buf:  make([]byte, scancodeSize),
	}, nil
}

// TryDecode reads one scancode record if the kernel has one queued.
func (r *LircReceiver) TryDecode() (logic.DecodedEvent, bool, error) {
	n, err := unix.Read(r.fd, r.buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return logic.DecodedEvent{}, false, nil
		}
		return logic.DecodedEvent{}, false, fmt.Errorf("read %s: %w", r.path, err)
	}
	rec, err := unmarshalScancode(r.buf[:n])
	if err != nil {
		return logic.DecodedEvent{}, false, fmt.Errorf("%s: %w", r.path, err)
	}
	return rec.toEvent(r.now()), true, nil
}

// Close releases the device.
func (r *LircReceiver) Close() error {
	if err := unix.Close(r.fd); err != nil {
		return fmt.Errorf("close %s: %w", r.path, err)
	}
	return nil
}

// LircTransmitter writes scancodes to a LIRC transmit device and lets the
// kernel encoder generate the waveform.
type LircTransmitter struct {
	fd   int
	path string
}

// NewLircTransmitter opens path (e.g. /dev/lirc1) in scancode send mode.
func NewLircTransmitter(path string) (*LircTransmitter, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	features, err := unix.IoctlGetUint32(fd, lircGetFeatures)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: get features: %w", path, err)
	}
	if features&lircCanSendPulse == 0 {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: device cannot transmit (features=0x%x)", path, features)
	}
	if err := unix.IoctlSetPointerInt(fd, lircSetSendMode, lircModeScancode); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: set scancode send mode: %w", path, err)
	}

	return &LircTransmitter{fd: fd, path: path}, nil
}

func (t *LircTransmitter) send(p logic.Primitive, value uint64, bits uint16) error {
	proto, err := txProto(p, value, bits)
	if err != nil {
		return err
	}
	rec := lircScancode{RCProto: proto, Scancode: value}
	if _, err := unix.Write(t.fd, rec.marshal()); err != nil {
		return fmt.Errorf("write %s: %w", t.path, err)
	}
	return nil
}

func (t *LircTransmitter) SendNEC(v uint64, b uint16) error  { return t.send(logic.SendNEC, v, b) }
func (t *LircTransmitter) SendSony(v uint64, b uint16) error { return t.send(logic.SendSony, v, b) }
func (t *LircTransmitter) SendRC5(v uint64, b uint16) error  { return t.send(logic.SendRC5, v, b) }
func (t *LircTransmitter) SendRC6(v uint64, b uint16) error  { return t.send(logic.SendRC6, v, b) }
func (t *LircTransmitter) SendSAMSUNG(v uint64, b uint16) error {
	return t.send(logic.SendSamsung, v, b)
}
func (t *LircTransmitter) SendLG(v uint64, b uint16) error { return t.send(logic.SendLG, v, b) }
func (t *LircTransmitter) SendPanasonic64(v uint64, b uint16) error {
	return t.send(logic.SendPanasonic64, v, b)
}
func (t *LircTransmitter) SendSharpRaw(v uint64, b uint16) error {
	return t.send(logic.SendSharpRaw, v, b)
}
func (t *LircTransmitter) SendMitsubishi(v uint64, b uint16) error {
	return t.send(logic.SendMitsubishi, v, b)
}
func (t *LircTransmitter) SendJVC(v uint64, b uint16) error { return t.send(logic.SendJVC, v, b) }

// Close releases the device.
func (t *LircTransmitter) Close() error {
	if err := unix.Close(t.fd); err != nil {
		return fmt.Errorf("close %s: %w", t.path, err)
	}
	return nil
}
