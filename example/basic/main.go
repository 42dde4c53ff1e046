package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	oscope "github.com/abruno-tek/Oscope-automation"
)

func main() {
	rt, err := oscope.Conf("../../configs/scopeplot.example.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := rt.Run(ctx)
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	log.Printf("run %s plotted %d samples to %s", res.RunID, res.Waveform.Len(), res.PlotPath)
}
