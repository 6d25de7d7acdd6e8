//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the buttons from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip     *gpiocdev.Chip
	sendPin  *gpiocdev.Line
	learnPin *gpiocdev.Line
}

// NewRealReader requests both button lines on chipName (usually gpiochip0).
func NewRealReader(chipName string, pinSend, pinLearn int) (*RealReader, error) {
	if chipName == "" {
		chipName = "gpiochip0"
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}

	// Buttons short the line to ground, so hold it high when released.
	sendLine, err := chip.RequestLine(pinSend, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request send pin %d: %w", pinSend, err)
	}

	learnLine, err := chip.RequestLine(pinLearn, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		sendLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request learn pin %d: %w", pinLearn, err)
	}

	return &RealReader{
		chip:     chip,
		sendPin:  sendLine,
		learnPin: learnLine,
	}, nil
}

// Read returns the logical pressed states of Send and Learn.
func (r *RealReader) Read() (bool, bool, error) {
	sendRaw, err := r.sendPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read send pin: %w", err)
	}

	learnRaw, err := r.learnPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read learn pin: %w", err)
	}

	// Active low: raw 0 = pressed
	return sendRaw == 0, learnRaw == 0, nil
}

// Close releases GPIO resources. Lines are returned to plain inputs with
// pull-down, the Pi boot default for these pins.
func (r *RealReader) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{{"send", r.sendPin}, {"learn", r.learnPin}} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
