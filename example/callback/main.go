package main

import (
	"context"
	"fmt"
	"log"

	"github.com/abruno-tek/Oscope-automation/pkg/oscope"
)

// printPlotter replaces the image renderer with a short text dump.
type printPlotter struct{ every int }

func (p printPlotter) Plot(_ context.Context, req oscope.PlotRequest) (string, error) {
	fmt.Printf("%s (%s vs %s), %d points\n", req.Title, req.YLabel, req.XLabel, len(req.X))
	for i := 0; i < len(req.X); i += p.every {
		fmt.Printf("%12.6g %s  %9.4f %s\n", req.X[i], req.XLabel, req.Y[i], req.YLabel)
	}
	return "stdout", nil
}

func main() {
	cfg := oscope.DefaultConfig()
	cfg.Simulate = true
	cfg.Prompt.Skip = true
	cfg.Sim.Samples = 200

	rt, err := oscope.NewRuntime(cfg, oscope.WithPlotter(printPlotter{every: 20}))
	if err != nil {
		log.Fatalf("runtime: %v", err)
	}
	defer rt.Close()

	res, err := rt.Run(context.Background())
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	fmt.Printf("peak-to-peak %.3f %s\n", res.Summary.PeakToPeak, res.Summary.Units)
}
