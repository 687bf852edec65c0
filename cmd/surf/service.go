package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yorha59/surf/internal/rpc"
	"github.com/yorha59/surf/internal/task"
)

// runService starts the JSON-RPC dispatcher and blocks until SIGINT.
func runService(opts *options) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	mgr := task.NewManager(time.Duration(opts.taskTTLSec) * time.Second)
	server := rpc.NewServer(mgr, logger)

	addr := net.JoinHostPort(opts.host, strconv.Itoa(opts.port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		_ = server.Close()
	}()

	return server.ListenAndServe(addr)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
