package gpu

import (
	"log"
	"sync"

	"github.com/cockroachdb/errors"
)

// Driver opens devices for one backend.
type Driver interface {
	// Name returns the name of the driver. It must not open a device.
	Name() string
	// Formats returns the shader formats devices of this driver accept.
	Formats() ShaderFormat
	Open(debug bool) (Device, error)
}

var (
	mu      sync.Mutex
	drivers = make([]Driver, 0, 2)
)

// Register registers a Driver. Backends call it exactly once, from init.
// A driver with the same name as an existing one replaces it.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			log.Printf("[!] gpu driver '%s' replaced", drv.Name())
			return
		}
	}
	drivers = append(drivers, drv)
}

// Drivers returns the names of the registered drivers in registration order.
func Drivers() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, len(drivers))
	for i, drv := range drivers {
		names[i] = drv.Name()
	}
	return names
}

// CreateDevice opens a device on the named driver, or on the first
// registered driver accepting any of formats when name is empty.
func CreateDevice(formats ShaderFormat, debug bool, name string) (Device, error) {
	mu.Lock()
	candidates := make([]Driver, len(drivers))
	copy(candidates, drivers)
	mu.Unlock()

	var errs error
	for _, drv := range candidates {
		if name != "" && drv.Name() != name {
			continue
		}
		if drv.Formats()&formats == 0 {
			if name != "" {
				return nil, errors.Wrapf(ErrUnsupportedFormat, "driver '%s' accepts %s, requested %s", name, drv.Formats(), formats)
			}
			continue
		}

		dev, err := drv.Open(debug)
		if err == nil {
			return dev, nil
		}
		if name != "" {
			return nil, errors.Wrapf(err, "failed to open driver '%s'", name)
		}
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "driver '%s'", drv.Name()))
	}

	if name != "" && errs == nil {
		return nil, errors.Wrapf(ErrNoDriver, "driver '%s' is not registered", name)
	}
	if errs != nil {
		return nil, errors.WithSecondaryError(errors.Wrapf(ErrNoDriver, "formats %s", formats), errs)
	}
	return nil, errors.Wrapf(ErrNoDriver, "formats %s", formats)
}
