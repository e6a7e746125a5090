package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/CristiGvl/picoRing0/api"
	"github.com/CristiGvl/picoRing0/internal/cpu"
	"github.com/CristiGvl/picoRing0/internal/disk"
	"github.com/CristiGvl/picoRing0/internal/monitor"
	"github.com/CristiGvl/picoRing0/internal/temps"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll sensors and serve them over HTTP (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

func runServe(cmd *cobra.Command, configPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cmd, configPath, true, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	poller := monitor.NewPoller(rt.logger)
	if len(rt.processors) > 0 {
		if err := poller.Register("cpu", rt.cfg.Poll.Interval, monitor.UpdaterFunc(rt.updateProcessors)); err != nil {
			return err
		}
	}
	var disks disk.Reader = disk.NoDrives{}
	if rt.disks != nil {
		disks = rt.disks
		if err := poller.Register("drives", rt.cfg.Drives.Interval, rt.disks); err != nil {
			return err
		}
	}

	reporters := make([]api.Reporter, 0, len(rt.processors))
	for _, c := range rt.processors {
		reporters = append(reporters, c)
	}
	server, err := api.NewServer(api.Dependencies{
		CPU:       cpu.NewReader(rt.processors...),
		Disks:     disks,
		Temps:     temps.NewReader(rt.registry),
		Registry:  rt.registry,
		Reporters: reporters,
		Scheduler: poller,
		Logger:    rt.logger,
	})
	if err != nil {
		return err
	}

	poller.Start()
	defer poller.Stop(shutdownTimeout)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(rt.cfg.Server.Addr()) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		rt.logger.Info().Msg("shutting down")
		return server.Shutdown()
	}
}

func cpuCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cpu",
		Short: "Print the calibration and register report of each Intel processor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), cmd, *configPath, true, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(rt.processors) == 0 {
				return fmt.Errorf("no Intel processor with register access")
			}
			out := cmd.OutOrStdout()
			for _, c := range rt.processors {
				fmt.Fprint(out, c.Report())
			}
			return printJSON(out, rt.registry.Snapshots())
		},
	}
}

func smartCmd(configPath *string) *cobra.Command {
	var drives []int

	cmd := &cobra.Command{
		Use:   "smart",
		Short: "Read SMART identity, attributes and health of drives",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd.Context(), cmd, *configPath, false, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			if len(drives) > 0 {
				rt.cfg.Drives.Indices = drives
			}
			rt.openDrives()
			if rt.disks == nil {
				return fmt.Errorf("SMART pass-through unavailable on this host")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			infos, err := rt.disks.GetInfo(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), infos)
		},
	}
	cmd.Flags().IntSliceVar(&drives, "drive", nil, "Drive index to read (repeatable); default enumerates")
	return cmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
