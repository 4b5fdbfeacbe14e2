package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hbomb79/mediagetter/internal"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

var log = logger.Get("Bootstrap")

// main is the entry point to the program. The configuration is read from the
// file provided by '-config' (if any), with environment variables taking
// precedence, before the server is started. The server runs until it
// receives an interrupt or terminate signal.
func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	var config internal.Config
	if *configPath != "" {
		if err := config.LoadFromFile(*configPath); err != nil {
			log.Fatalf("%v\n", err)
		}
	} else if err := config.LoadFromEnv(); err != nil {
		log.Fatalf("%v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := internal.New(config)
	if err != nil {
		log.Fatalf("Failed to initialise: %v\n", err)
	}

	if err := server.Run(ctx); err != nil {
		log.Emit(logger.FATAL, "Stopped with error: %v\n", err)
		stop()
		os.Exit(1)
	}

	log.Emit(logger.STOP, "Shutdown complete\n")
}
