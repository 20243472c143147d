package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/encoderdaq/internal/db"
)

// printRuns writes the catalog schema version and one line per run, newest
// first. An empty name lists every run.
func printRuns(ctx context.Context, w io.Writer, catalogPath, name string) error {
	catalog, err := db.NewDB(catalogPath)
	if err != nil {
		return fmt.Errorf("open catalog %s: %w", catalogPath, err)
	}
	defer catalog.Close()

	version, dirty, err := catalog.MigrateVersion(db.MigrationsFS())
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	runs, err := catalog.ListRuns(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "catalog %s (schema v%d", catalogPath, version)
	if dirty {
		fmt.Fprint(w, ", dirty")
	}
	fmt.Fprintf(w, "): %d runs\n", len(runs))
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %-20s %-9s %-8s enc=%d irig=%d faults=%d rate=%s",
			r.StartedAt.Format(time.RFC3339), r.Name, r.Status, targetString(r),
			r.Counters.EncoderPackets, r.Counters.IrigPackets, r.Counters.TimingFaults,
			rateString(r))
		if r.Error != "" {
			fmt.Fprintf(w, " error=%q", r.Error)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func targetString(r db.Run) string {
	if r.Target.Packets > 0 {
		return fmt.Sprintf("%dpkt", r.Target.Packets)
	}
	return fmt.Sprintf("%ds", r.Target.Seconds)
}

func rateString(r db.Run) string {
	if r.Summary == nil || r.Summary.Samples < 2 {
		return "-"
	}
	return fmt.Sprintf("%.4frad/s", r.Summary.Rate)
}
