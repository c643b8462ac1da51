package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"glade/internal/config"
	"glade/internal/server"
)

func main() {
	var (
		cfgPath string
		listen  string
	)
	flag.StringVar(&cfgPath, "config", "", "path to scene server configuration file")
	flag.StringVar(&listen, "listen", "", "listen address override")
	flag.Parse()

	logger := log.New(os.Stdout, "glade-server ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatalf("initialise scene server: %v", err)
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	if cfgPath != "" {
		if err := config.Watch(ctx, cfgPath, logger, srv.ApplyConfig); err != nil {
			logger.Printf("config watch disabled: %v", err)
		}
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatalf("server exited with error: %v", err)
	}
}

func signalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}

		// Ensure the process terminates if shutdown stalls.
		time.AfterFunc(10*time.Second, func() {
			logger.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
