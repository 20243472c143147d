package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/encoderdaq/internal/analysis"
	"github.com/banshee-data/encoderdaq/internal/config"
	"github.com/banshee-data/encoderdaq/internal/daq"
	"github.com/banshee-data/encoderdaq/internal/db"
	"github.com/banshee-data/encoderdaq/internal/fsutil"
	"github.com/banshee-data/encoderdaq/internal/monitoring"
	"github.com/banshee-data/encoderdaq/internal/network"
	"github.com/banshee-data/encoderdaq/internal/rundir"
	"github.com/banshee-data/encoderdaq/internal/store"
	"github.com/banshee-data/encoderdaq/internal/timeutil"
)

// options carries everything one acquisition needs. Tests substitute the
// filesystem, socket factory and clock.
type options struct {
	RunName     string
	Target      daq.RunTarget
	Config      *config.DAQConfig
	CatalogPath string // empty disables the catalog
	PCAPPath    string // replay instead of listening when set
	PCAPPort    uint16

	FS      fsutil.FileSystem
	Sockets network.UDPSocketFactory
	Clock   timeutil.Clock
	Confirm rundir.Confirmer // nil overwrites without asking
}

// run performs one acquisition: prepare the run directory, record until the
// target is reached or ctx is cancelled, then post-process and catalog.
func run(ctx context.Context, o options) error {
	cfg := o.Config
	if cfg == nil {
		cfg = &config.DAQConfig{}
	}
	master := cfg.GetMasterDir()

	layout, err := rundir.Prepare(o.FS, master, o.RunName, o.Confirm)
	if err != nil {
		return err
	}
	monitoring.Logf("All encoder data for run %s is stored in %s", o.RunName, layout.Raw)

	sink, err := store.OpenCSVSink(o.FS, layout.Raw, o.RunName)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			monitoring.Logf("Warning: failed to close data files: %v", err)
		}
	}()

	var catalog *db.DB
	var record *db.Run
	if o.CatalogPath != "" {
		catalog, err = db.NewDB(o.CatalogPath)
		if err != nil {
			return fmt.Errorf("open run catalog: %w", err)
		}
		defer catalog.Close()
		record, err = catalog.CreateRun(ctx, o.RunName, layout.Run, o.Target, o.Clock.Now())
		if err != nil {
			return err
		}
	}

	session := daq.NewSession(daq.SessionConfig{
		Sink:          sink,
		Target:        o.Target,
		RetainPartial: cfg.GetRetainPartial(),
	})
	stats := network.NewPacketStats(o.Clock)

	monitoring.Logf("Starting")
	acqErr := acquire(ctx, o, cfg, session, stats)
	stats.LogStats()

	c := session.Counters()
	monitoring.Logf("Done: %d encoder packets, %d IRIG packets, %d timing faults, %d framing errors",
		c.EncoderPackets, c.IrigPackets, c.TimingFaults, c.FramingErrors)

	summary, procErr := postProcess(o.FS, layout.Raw, o.RunName, session, float64(cfg.GetSlitCount()))

	runErr := acqErr
	if runErr == nil {
		runErr = procErr
	}
	if record != nil {
		status := db.RunCompleted
		if acqErr != nil {
			status = db.RunFailed
		}
		// The catalog is updated even after a signal.
		dbCtx := context.WithoutCancel(ctx)
		if summary != nil {
			if err := catalog.RecordSummary(dbCtx, record.ID, *summary); err != nil {
				monitoring.Logf("Warning: failed to record run summary: %v", err)
			}
		}
		if err := catalog.FinishRun(dbCtx, record.ID, status, c, o.Clock.Now(), runErr); err != nil {
			monitoring.Logf("Warning: failed to finish catalog entry %s: %v", record.ID, err)
		}
	}

	if acqErr != nil {
		if errors.Is(acqErr, context.Canceled) {
			return fmt.Errorf("acquisition interrupted: %w", acqErr)
		}
		return acqErr
	}
	return procErr
}

// acquire drives the session from the socket or a capture file while a
// second goroutine logs throughput. Stats logging stops with acquisition.
func acquire(ctx context.Context, o options, cfg *config.DAQConfig, session *daq.Session, stats *network.PacketStats) error {
	g, gctx := errgroup.WithContext(ctx)
	statsCtx, stopStats := context.WithCancel(gctx)

	g.Go(func() error {
		defer stopStats()
		if o.PCAPPath != "" {
			return replay(gctx, o, cfg, session, stats)
		}
		listener := network.NewListener(network.ListenerConfig{
			Address:     cfg.GetListenAddress(),
			ChunkSize:   cfg.GetReadChunkSize(),
			ReadTimeout: cfg.GetReadTimeout(),
			Sockets:     o.Sockets,
			Clock:       o.Clock,
			Stats:       stats,
		})
		return listener.Run(gctx, session)
	})
	g.Go(func() error {
		return stats.Run(statsCtx, cfg.GetStatsInterval())
	})
	return g.Wait()
}

func replay(ctx context.Context, o options, cfg *config.DAQConfig, session *daq.Session, stats *network.PacketStats) error {
	port := o.PCAPPort
	if port == 0 {
		p, err := listenPort(cfg.GetListenAddress())
		if err != nil {
			return err
		}
		port = p
	}
	f, err := os.Open(o.PCAPPath)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	n, err := network.ReplayPCAP(ctx, f, port, session, stats)
	monitoring.Logf("Replayed %d datagrams from %s", n, o.PCAPPath)
	if err != nil {
		return err
	}
	if !session.Done() {
		monitoring.Logf("Warning: capture ended before the run target was reached")
	}
	return nil
}

func listenPort(address string) (uint16, error) {
	_, p, err := net.SplitHostPort(address)
	if err != nil {
		return 0, fmt.Errorf("invalid listen address %q: %w", address, err)
	}
	port, err := strconv.ParseUint(p, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid listen port %q: %w", p, err)
	}
	return uint16(port), nil
}

// postProcess reconciles the collected series, writes the angle file and
// summarises the rotation.
func postProcess(fsys fsutil.FileSystem, dir, name string, session *daq.Session, slits float64) (*analysis.Summary, error) {
	res, err := analysis.Process(session.EncoderSeries(), session.IrigSeries(), slits)
	if err != nil {
		return nil, fmt.Errorf("post-processing: %w", err)
	}
	if err := store.WriteAngles(fsys, dir, name, res.Samples); err != nil {
		return nil, err
	}
	s := analysis.Summarize(res.Samples)
	monitoring.Logf("Rotation: %s", s)
	return &s, nil
}
