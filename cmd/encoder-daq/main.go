package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/banshee-data/encoderdaq/internal/config"
	"github.com/banshee-data/encoderdaq/internal/daq"
	"github.com/banshee-data/encoderdaq/internal/fsutil"
	"github.com/banshee-data/encoderdaq/internal/monitoring"
	"github.com/banshee-data/encoderdaq/internal/network"
	"github.com/banshee-data/encoderdaq/internal/rundir"
	"github.com/banshee-data/encoderdaq/internal/timeutil"
	"github.com/banshee-data/encoderdaq/internal/version"
)

var (
	configPath    = flag.String("config", "", "Path to a JSON config file (defaults from config/daq.defaults.json)")
	listenAddr    = flag.String("listen", "", "UDP address to receive sender datagrams on (overrides config)")
	masterDir     = flag.String("master-dir", "", "Master data directory holding one directory per run (overrides config)")
	packetTarget  = flag.Int("packets", 0, "Stop after this many encoder packets instead of <seconds> of IRIG time")
	pcapFile      = flag.String("pcap", "", "Replay UDP payloads from a capture file instead of listening")
	pcapPort      = flag.Int("pcap-port", 0, "Destination port to replay from the capture (0 = port of the listen address)")
	catalogPath   = flag.String("catalog", "", "Run catalog database (default <master-dir>/runs.db, \"none\" disables)")
	slitCount     = flag.Int("slits", 0, "Encoder slit count used for angle conversion (overrides config)")
	retainPartial = flag.Bool("retain-partial", false, "Keep undersized buffers for completion by the next datagram")
	overwrite     = flag.Bool("y", false, "Overwrite an existing run without asking")
	listCatalog   = flag.Bool("list", false, "Print the run catalog, optionally only <run name>, and exit")
	verbose       = flag.Bool("v", false, "Log per-packet detail")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func printUsage() {
	fmt.Fprintf(os.Stderr, `encoder-daq - record encoder and IRIG packets for one run

Usage:
  encoder-daq [flags] <run name> <seconds>
  encoder-daq -list [run name]

Data is written to <master-dir>/<run name>/rawData/. The run ends after
<seconds> of IRIG time, or after -packets encoder packets when set.

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String("encoder-daq"))
		return
	}

	if *listCatalog {
		if flag.NArg() > 1 {
			printUsage()
			os.Exit(1)
		}
		cfg := mustLoadConfig()
		if *catalogPath == "none" {
			log.Fatalf("-list needs a catalog")
		}
		if err := printRuns(context.Background(), os.Stdout, cfg.GetCatalogPath(), flag.Arg(0)); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	if flag.NArg() != 2 {
		printUsage()
		os.Exit(1)
	}
	name, target, err := parseRunArgs(flag.Args(), *packetTarget)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}

	cfg := mustLoadConfig()
	monitoring.SetVerbose(*verbose)

	catalog := cfg.GetCatalogPath()
	if *catalogPath == "none" {
		catalog = ""
	}

	opts := options{
		RunName:     name,
		Target:      target,
		Config:      cfg,
		CatalogPath: catalog,
		FS:          fsutil.OSFileSystem{},
		Sockets:     network.RealUDPSocketFactory{},
		Clock:       timeutil.RealClock{},
	}
	if !*overwrite {
		opts.Confirm = &rundir.PromptConfirmer{In: os.Stdin, Out: os.Stdout}
	}
	if *pcapFile != "" {
		opts.PCAPPath = *pcapFile
		opts.PCAPPort = uint16(*pcapPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		if errors.Is(err, rundir.ErrOverwriteDeclined) {
			log.Printf("Exiting: %v", err)
		} else {
			log.Printf("Error: %v", err)
		}
		stop()
		os.Exit(1)
	}
}

// parseRunArgs validates the positional arguments. The seconds argument is
// required even in packet mode, where it is ignored.
func parseRunArgs(args []string, packets int) (string, daq.RunTarget, error) {
	if len(args) != 2 {
		return "", daq.RunTarget{}, fmt.Errorf("expected <run name> <seconds>, got %d arguments", len(args))
	}
	name := args[0]
	seconds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return "", daq.RunTarget{}, fmt.Errorf("invalid seconds %q: %w", args[1], err)
	}
	if packets < 0 {
		return "", daq.RunTarget{}, fmt.Errorf("-packets must be non-negative, got %d", packets)
	}
	if packets > 0 {
		return name, daq.RunTarget{Packets: packets}, nil
	}
	if seconds <= 0 {
		return "", daq.RunTarget{}, fmt.Errorf("seconds must be positive, got %d", seconds)
	}
	return name, daq.RunTarget{Seconds: seconds}, nil
}

// mustLoadConfig loads the config file, applies flag overrides and exits on
// an invalid result.
func mustLoadConfig() *config.DAQConfig {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	return cfg
}

func loadConfig(path string) (*config.DAQConfig, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return &config.DAQConfig{}, nil
		}
		path = config.DefaultConfigPath
	}
	return config.LoadDAQConfig(path)
}

func applyFlags(cfg *config.DAQConfig) {
	if *listenAddr != "" {
		cfg.ListenAddress = listenAddr
	}
	if *masterDir != "" {
		cfg.MasterDir = masterDir
	}
	if *slitCount > 0 {
		cfg.SlitCount = slitCount
	}
	if *retainPartial {
		cfg.RetainPartial = retainPartial
	}
	if *catalogPath != "" && *catalogPath != "none" {
		cfg.CatalogPath = catalogPath
	}
}
