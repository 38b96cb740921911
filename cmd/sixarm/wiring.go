package main

import (
	"fmt"
	"io"

	"github.com/buzzauk/sixarm"
	"github.com/buzzauk/sixarm/internal/config"
	"github.com/buzzauk/sixarm/pkg/adapters/file"
	"github.com/buzzauk/sixarm/pkg/adapters/maestro"
	"github.com/buzzauk/sixarm/pkg/adapters/memory"
	redisblob "github.com/buzzauk/sixarm/pkg/adapters/redis"
	"github.com/buzzauk/sixarm/pkg/adapters/sim"
	"github.com/buzzauk/sixarm/pkg/ports"
)

// openBlob builds the step bank backend selected by the configuration.
func openBlob(cfg *config.Config) (ports.Blob, error) {
	switch cfg.Storage.Backend {
	case "file":
		return file.Open(cfg.Storage.Path)
	case "redis":
		r := cfg.Storage.Redis
		return redisblob.New(r.Addr, r.Password, r.DB, redisblob.WithKey(r.Key)), nil
	case "memory":
		return memory.NewBlob(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// openDrivers builds the hardware ports selected by the configuration.
// The returned closer parks the servos where the driver supports it; it
// is nil for drivers with nothing to release.
func openDrivers(cfg *config.Config) (sixarm.Drivers, io.Closer, error) {
	switch cfg.Driver.Backend {
	case "sim":
		rig := sim.New(cfg.PulseRange())
		return sixarm.Drivers{Actuator: rig, Sampler: rig, Buttons: rig, Indicator: rig}, nil, nil
	case "maestro":
		d, err := maestro.Open(maestro.Options{
			Device: cfg.Driver.Port,
			Baud:   cfg.Driver.Baud,
			Range:  cfg.PulseRange(),
			Pots:   cfg.Driver.Pots,
			Buttons: maestro.ButtonChannels{
				Record: cfg.Driver.Buttons.Record,
				Run:    cfg.Driver.Buttons.Run,
				Stop:   cfg.Driver.Buttons.Stop,
				Clear:  cfg.Driver.Buttons.Clear,
			},
			Indicator: cfg.Driver.Indicator,
		})
		if err != nil {
			return sixarm.Drivers{}, nil, err
		}
		drv := sixarm.Drivers{Actuator: d, Sampler: d, Buttons: d, Indicator: d}
		if cfg.Driver.Indicator[0] < 0 {
			drv.Indicator = nil
		}
		return drv, d, nil
	}
	return sixarm.Drivers{}, nil, fmt.Errorf("unknown driver backend %q", cfg.Driver.Backend)
}
