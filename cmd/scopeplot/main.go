package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/davecgh/go-spew/spew"

	oscope "github.com/abruno-tek/Oscope-automation"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "idn":
		err = idnCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("scopeplot %s: %v", cmd, err)
	}
}

type commonFlags struct {
	cfgPath  *string
	address  *string
	channel  *string
	simulate *bool
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		cfgPath:  fs.String("config", "", "Path to configuration file (defaults apply when empty)"),
		address:  fs.String("address", "", "Instrument host name or IP address"),
		channel:  fs.String("channel", "", "Channel to acquire, e.g. ch1"),
		simulate: fs.Bool("simulate", false, "Use the in-process simulated instrument"),
	}
}

func (f commonFlags) load() (*oscope.Config, error) {
	cfg := oscope.DefaultConfig()
	if *f.cfgPath != "" {
		loaded, err := oscope.LoadConfig(*f.cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if *f.address != "" {
		cfg.Instrument.Address = *f.address
	}
	if *f.channel != "" {
		cfg.Instrument.Channel = *f.channel
	}
	if *f.simulate {
		cfg.Simulate = true
	}
	return cfg, nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := registerCommon(fs)
	yes := fs.Bool("yes", false, "Skip the operator prompt")
	output := fs.String("output", "", "Plot output path (.png, .svg, .pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if *yes {
		cfg.Prompt.Skip = true
	}
	if *output != "" {
		cfg.Plot.Output = *output
	}

	rt, err := oscope.NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := rt.Run(ctx); err != nil {
		return err
	}
	fmt.Println("End of simple plot run")
	return nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	common := registerCommon(fs)
	dump := fs.Bool("dump", false, "Print the resolved configuration")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}
	if *dump {
		spew.Config.DisableMethods = true
		spew.Dump(cfg)
	}
	fmt.Printf("config %s looks good\n", describe(*common.cfgPath))
	return nil
}

func idnCommand(args []string) error {
	fs := flag.NewFlagSet("idn", flag.ExitOnError)
	common := registerCommon(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := common.load()
	if err != nil {
		return err
	}
	rt, err := oscope.NewRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idn, err := rt.Identify(ctx)
	if err != nil {
		return err
	}
	fmt.Println(idn)
	return nil
}

// statsCommand prints the counters a previous run left in the metrics
// textfile.
func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	path := fs.String("textfile", "./scopeplot.prom", "Prometheus textfile written by run")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()

	targets := []string{
		"scope_runs_total",
		"scope_run_failures_total",
		"scope_commands_total",
		"scope_queries_total",
		"scope_waveform_samples",
		"scope_transfer_seconds_sum",
		"scope_opc_wait_seconds_sum",
	}
	values := map[string]float64{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for _, key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %g", &value); err == nil {
					values[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	for _, key := range targets {
		fmt.Printf("%-28s %g\n", key, values[key])
	}
	return nil
}

func describe(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

func printUsage() {
	fmt.Printf(`scopeplot: acquire one waveform from an oscilloscope and plot it

Usage:
  scopeplot <command> [flags]

Commands:
  run        Configure the scope, acquire a single sequence, transfer and plot
  validate   Load and validate a config file without touching the instrument
  idn        Print the instrument identity string
  stats      Print the counters from the metrics textfile of previous runs

Examples:
  scopeplot run -config ./configs/scopeplot.example.yaml
  scopeplot run -simulate -yes -output wave.svg
  scopeplot validate -config ./configs/scopeplot.example.yaml -dump
  scopeplot idn -address 10.233.65.146
  scopeplot stats -textfile ./scopeplot.prom
`)
}
