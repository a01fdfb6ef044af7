package commands

import (
	"context"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rgb-tools/rgb-multisig-bridge/internal/logger"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/api"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/auth"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/bridge/store"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/config"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/filestore"
	"github.com/rgb-tools/rgb-multisig-bridge/pkg/metrics"
)

func runStart(cmd *cobra.Command, args []string) error {
	appDir := args[0]

	params, err := config.Load(appDir, daemonListeningPort)
	if err != nil {
		return err
	}

	// stdout at INFO, daily rolling file at DEBUG
	if err := logger.Init(logger.Config{
		Level:   "INFO",
		FileDir: filepath.Join(appDir, config.LogsDirName),
	}); err != nil {
		return err
	}
	defer logger.Close()

	st, err := store.Open(store.Config{
		Path:         filepath.Join(appDir, config.DBName),
		MaxOpenConns: len(params.CosignerXpubs),
	})
	if err != nil {
		return &config.IOError{Err: err}
	}
	defer st.Close()

	files, err := filestore.New(filepath.Join(appDir, config.FilesDirName))
	if err != nil {
		return &config.IOError{Err: err}
	}

	b, err := bridge.New(st, files, params)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(params.RootPublicKey)
	server := api.NewServer(params.DaemonListeningPort, b, tokens)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsErr := make(chan error, 1)
	if params.MetricsListeningPort != 0 {
		metrics.Init()
		metricsServer := metrics.NewServer(params.MetricsListeningPort)
		go func() {
			metricsErr <- metricsServer.Start(ctx)
		}()
	} else {
		metricsErr <- nil
	}

	logger.Info("bridge started",
		"app_dir", appDir,
		"port", params.DaemonListeningPort,
		"cosigners", len(params.CosignerXpubs))

	err = server.Start(ctx)

	// make sure the metrics listener winds down too
	stop()
	if merr := <-metricsErr; err == nil {
		err = merr
	}
	return err
}
