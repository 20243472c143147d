package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/encoderdaq/internal/monitoring"
	"github.com/banshee-data/encoderdaq/internal/timeutil"
	"github.com/banshee-data/encoderdaq/internal/version"
)

var (
	addr        = flag.String("addr", "127.0.0.1:8080", "UDP address of the acquisition listener")
	duration    = flag.Duration("duration", 10*time.Second, "How long to send (0 = until interrupted)")
	tick        = flag.Duration("tick", 10*time.Millisecond, "Send interval")
	clockHz     = flag.Float64("clock-hz", 100e6, "Sender counter frequency")
	slits       = flag.Int("slits", 1140, "Encoder slit count")
	revHz       = flag.Float64("rev-hz", 2, "Encoder revolutions per second")
	clockOffset = flag.Uint64("clock-offset", 0, "Counter value at the first IRIG edge (near 1<<32 to exercise overflow)")
	startTime   = flag.String("start", "", "Time of day carried by the first IRIG packet, HH:MM:SS (default now, UTC)")
	faultEvery  = flag.Int("fault-every", 0, "Send a timing fault after every Nth IRIG packet (0 = never)")
	verbose     = flag.Bool("v", false, "Log progress every second")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `encoder-sim - send a synthetic encoder and IRIG packet stream over UDP

Usage:
  encoder-sim [flags]

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("encoder-sim"))
		return
	}
	if flag.NArg() != 0 {
		printUsage()
		os.Exit(1)
	}
	monitoring.SetVerbose(*verbose)

	start := time.Now().UTC()
	if *startTime != "" {
		t, err := time.Parse(time.TimeOnly, *startTime)
		if err != nil {
			log.Fatalf("Invalid -start %q: %v", *startTime, err)
		}
		start = t
	}
	if *clockHz <= 0 || *slits <= 0 || *revHz <= 0 {
		log.Fatalf("-clock-hz, -slits and -rev-hz must be positive")
	}

	conn, err := net.Dial("udp", *addr)
	if err != nil {
		log.Fatalf("Failed to dial %s: %v", *addr, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := newGenerator(*clockHz, float64(*slits)*(*revHz), start, *clockOffset, *faultEvery)
	monitoring.Logf("Sending to %s: %.0f samples/s, counter %.0f Hz", *addr, gen.sampleHz, gen.clockHz)

	n, err := send(ctx, conn, gen, timeutil.RealClock{}, *tick, *duration)
	monitoring.Logf("Sent %d datagrams", n)
	if err != nil && ctx.Err() == nil {
		log.Printf("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

// send writes every due datagram on each tick until duration has elapsed or
// ctx is cancelled. Each datagram is one Write.
func send(ctx context.Context, w io.Writer, gen *generator, clock timeutil.Clock, tick, duration time.Duration) (int, error) {
	started := clock.Now()
	ticker := clock.NewTicker(tick)
	defer ticker.Stop()

	sent := 0
	lastSecond := int64(-1)
	for {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		case <-ticker.C():
		}

		elapsed := clock.Since(started)
		final := duration > 0 && elapsed >= duration
		if final {
			elapsed = duration
		}
		for _, dg := range gen.next(elapsed) {
			if _, err := w.Write(dg); err != nil {
				return sent, fmt.Errorf("send datagram %d: %w", sent+1, err)
			}
			sent++
		}
		if s := int64(elapsed / time.Second); s != lastSecond {
			monitoring.Debugf("%ds: %d datagrams sent", s, sent)
			lastSecond = s
		}
		if final {
			return sent, nil
		}
	}
}
