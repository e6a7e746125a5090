package main

import (
	"context"
	"errors"

	"github.com/CristiGvl/picoRing0/internal/config"
	"github.com/CristiGvl/picoRing0/internal/cpu"
	"github.com/CristiGvl/picoRing0/internal/cpuid"
	"github.com/CristiGvl/picoRing0/internal/disk"
	"github.com/CristiGvl/picoRing0/internal/logging"
	"github.com/CristiGvl/picoRing0/internal/platform"
	"github.com/CristiGvl/picoRing0/internal/ring0"
	"github.com/CristiGvl/picoRing0/internal/sensor"
	"github.com/CristiGvl/picoRing0/internal/smart"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// hostRuntime holds the hardware opened for one command
type hostRuntime struct {
	cfg        *config.Config
	logger     zerolog.Logger
	registry   *sensor.Registry
	port       ring0.Port
	processors []*cpu.IntelCPU
	disks      *disk.Monitor
}

func loadRuntime(cmd *cobra.Command, configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := logging.NewFromValues(cfg.Logging.Level, cfg.Logging.Format)
	if err := platform.ValidateSupport(); err != nil {
		return nil, logger, err
	}
	if !platform.IsPrivileged() {
		logger.Warn().Msg("not running with administrator rights; register and SMART reads will fail")
	}
	return cfg, logger, nil
}

// openRuntime opens the register driver and the SMART pass-through when the
// command needs them and the configuration enables them. Either can be missing; the monitor then serves what
// remains.
func openRuntime(ctx context.Context, cmd *cobra.Command, configPath string, withCPU, withDrives bool) (*hostRuntime, error) {
	cfg, logger, err := loadRuntime(cmd, configPath)
	if err != nil {
		return nil, err
	}
	rt := &hostRuntime{cfg: cfg, logger: logger, registry: sensor.NewRegistry()}

	if withCPU && cfg.CPU.Enabled {
		rt.openProcessors(ctx)
	}
	if withDrives && cfg.Drives.Enabled {
		rt.openDrives()
	}
	return rt, nil
}

func (rt *hostRuntime) openProcessors(ctx context.Context) {
	ids, err := cpuid.Detect(ctx)
	if err != nil {
		if errors.Is(err, cpuid.ErrNoProcessors) {
			rt.logger.Warn().Msg("no processors enumerated")
		} else {
			rt.logger.Error().Err(err).Msg("processor detection failed")
		}
		return
	}

	var intel []*cpuid.Identity
	for _, id := range ids {
		if !id.IsIntel() {
			rt.logger.Info().Int("processor", id.Index).Str("vendor", id.Vendor).Msg("skipping processor without an Intel register layout")
			continue
		}
		intel = append(intel, id)
	}
	if len(intel) == 0 {
		return
	}

	port, err := ring0.Open(rt.logger)
	if err != nil {
		rt.logger.Error().Err(err).Msg("register driver unavailable")
		return
	}
	rt.port = ring0.Synchronized(port)

	rt.processors = cpu.NewIntelCPUs(intel, rt.port, rt.registry, cpu.WithLogger(rt.logger))
	for _, c := range rt.processors {
		rt.applyOverrides(c)
	}
}

// applyOverrides moves the temperature parameters off their defaults
func (rt *hostRuntime) applyOverrides(c *cpu.IntelCPU) {
	for _, s := range c.CoreTemperatures() {
		if float32(rt.cfg.CPU.TSlope) != cpu.DefaultTSlope {
			if err := s.SetParameter("TSlope", float32(rt.cfg.CPU.TSlope)); err != nil {
				rt.logger.Warn().Err(err).Msg("tslope override rejected")
			}
		}
		if rt.cfg.CPU.TjMax > 0 {
			if err := s.SetParameter("TjMax", float32(rt.cfg.CPU.TjMax)); err != nil {
				rt.logger.Warn().Err(err).Msg("tjmax override rejected")
			}
		}
	}
	if len(c.CoreTemperatures()) > 0 {
		c.Update()
	}
}

func (rt *hostRuntime) openDrives() {
	client, err := smart.NewPlatformClient(rt.logger)
	if err != nil {
		rt.logger.Error().Err(err).Msg("SMART pass-through unavailable")
		return
	}
	opts := []disk.Option{disk.WithLogger(rt.logger)}
	if len(rt.cfg.Drives.Indices) > 0 {
		opts = append(opts, disk.WithDrives(rt.cfg.Drives.Indices...))
	}
	rt.disks = disk.NewMonitor(client, rt.registry, opts...)
}

// updateProcessors samples every processor package
func (rt *hostRuntime) updateProcessors(context.Context) error {
	for _, c := range rt.processors {
		c.Update()
	}
	return nil
}

func (rt *hostRuntime) Close() {
	if rt.port != nil {
		if err := rt.port.Close(); err != nil {
			rt.logger.Warn().Err(err).Msg("closing register driver")
		}
	}
}
