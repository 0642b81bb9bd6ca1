package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/edp1096/circuitsim/pkg/circuit"
	"github.com/edp1096/circuitsim/pkg/matrix"
	"github.com/edp1096/circuitsim/pkg/netlist"
	"github.com/edp1096/circuitsim/pkg/plot"
	"github.com/edp1096/circuitsim/pkg/util"
)

var (
	plotFile   = flag.String("plot", "", "write node voltage waveforms to this image (png, svg, pdf)")
	htmlFile   = flag.String("html", "", "write an interactive waveform page to this file")
	verbose    = flag.Bool("v", false, "log solver diagnostics to stderr")
	showMatrix = flag.Bool("matrix", false, "print the stamped system before the analysis")
	backend    = flag.String("backend", "", "matrix backend: sparse or dense (overrides .options)")
	method     = flag.String("method", "", "integration method: trap or euler (overrides .options)")
	itl        = flag.Int("itl", 0, "sub-iteration cap per timestep (overrides .options)")
)

func buildConfig(nd *netlist.NetlistData) (circuit.Config, error) {
	cfg := circuit.DefaultConfig()
	if err := nd.Options.Apply(&cfg); err != nil {
		return cfg, err
	}

	var errs []error
	flag.Visit(func(f *flag.Flag) {
		var err error
		switch f.Name {
		case "backend":
			cfg.Backend, err = matrix.ParseBackend(*backend)
		case "method":
			cfg.Method, err = util.ParseIntegrationMethod(*method)
		case "itl":
			if *itl <= 0 {
				err = fmt.Errorf("itl must be positive, got %d", *itl)
			}
			cfg.MaxSubIterations = *itl
		}
		if err != nil {
			errs = append(errs, err)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}

	if *verbose {
		cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return cfg, nil
}

func printResults(results map[string][]float64, names []string) {
	fmt.Println("\nAnalysis Results:")
	fmt.Println("================")

	var voltageNames, currentNames []string
	for _, name := range names {
		if strings.HasPrefix(name, "V(") {
			voltageNames = append(voltageNames, name)
		} else if strings.HasPrefix(name, "I(") {
			currentNames = append(currentNames, name)
		}
	}

	// DC sweep
	if sweep, ok := results["SWEEP1"]; ok {
		inner := results["SWEEP2"]
		fmt.Printf("\nDC Sweep Results (%d points):\n", len(sweep))
		fmt.Println("Sweep       Node Voltages        Element Currents")
		fmt.Println("------------------------------------------------")
		for i, v := range sweep {
			fmt.Printf("%9g  ", v)
			if inner != nil {
				fmt.Printf("%9g  ", inner[i])
			}
			for _, name := range voltageNames {
				fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], "V"))
			}
			for _, name := range currentNames {
				fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], "A"))
			}
			fmt.Println()
		}
		return
	}

	// Operating point
	times := results["TIME"]
	if len(times) <= 1 {
		fmt.Println("\nNode Voltages:")
		for _, name := range voltageNames {
			fmt.Printf("%s = %s\n", name, util.FormatValueFactor(results[name][0], "V"))
		}
		fmt.Println("\nElement Currents:")
		for _, name := range currentNames {
			fmt.Printf("%s = %s\n", name, util.FormatValueFactor(results[name][0], "A"))
		}
		return
	}

	// Transient
	fmt.Printf("\nTransient Analysis Results (%d time points):\n", len(times))
	fmt.Println("Time        Node Voltages        Element Currents")
	fmt.Println("------------------------------------------------")

	for i, t := range times {
		fmt.Printf("%9s  ", util.FormatValueFactor(t, "s"))
		for _, name := range voltageNames {
			fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], "V"))
		}
		for _, name := range currentNames {
			fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], "A"))
		}
		fmt.Println()
	}
}

func writeCharts(title string, results map[string][]float64, names []string) {
	chart, err := plot.FromResults(title, results, names)
	if err != nil {
		log.Fatalf("Error preparing charts: %v", err)
	}

	if *plotFile != "" {
		if err := chart.Select("V(").Save(*plotFile); err != nil {
			log.Fatalf("Error writing plot: %v", err)
		}
		fmt.Printf("Waveforms written to %s\n", *plotFile)
	}

	if *htmlFile != "" {
		f, err := os.Create(*htmlFile)
		if err != nil {
			log.Fatalf("Error creating %s: %v", *htmlFile, err)
		}
		defer f.Close()
		if err := chart.RenderHTML(f); err != nil {
			log.Fatalf("Error writing charts: %v", err)
		}
		fmt.Printf("Charts written to %s\n", *htmlFile)
	}
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: circuitsim [flags] <netlist_file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	// 1. Open and read netlist
	content, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Error reading netlist file: %v", err)
	}

	// 2. Parse netlist
	nd, err := netlist.Parse(string(content))
	if err != nil {
		log.Fatalf("Error parsing netlist: %v", err)
	}

	// 3. Build circuit and analyzer
	cfg, err := buildConfig(nd)
	if err != nil {
		log.Fatalf("Error in options: %v", err)
	}
	sim, err := nd.Build(cfg)
	if err != nil {
		log.Fatalf("Error setting up devices: %v", err)
	}

	if *showMatrix {
		if err := sim.Circuit.PrintSystem(os.Stdout); err != nil {
			log.Fatalf("Error printing system: %v", err)
		}
	}

	// 4. Run analysis
	if err := sim.Analysis.Setup(sim.Circuit); err != nil {
		log.Fatalf("Analysis setup failed: %v", err)
	}
	if err := sim.Analysis.Execute(); err != nil {
		log.Fatalf("Analysis execution failed: %v", err)
	}

	// 5. Print result
	names := make([]string, len(sim.Probes))
	for i, p := range sim.Probes {
		names[i] = p.Name
	}
	results := sim.Analysis.GetResults()
	printResults(results, names)

	if *plotFile != "" || *htmlFile != "" {
		writeCharts(nd.Title, results, names)
	}
}
