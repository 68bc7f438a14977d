package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/ozontech/seq-registry/buildinfo"
	"github.com/ozontech/seq-registry/config"
	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv/snapshot"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/network/debugserver"
	"github.com/ozontech/seq-registry/pathfinder"
	"github.com/ozontech/seq-registry/pemstore"
	"github.com/ozontech/seq-registry/proxyapi"
	"github.com/ozontech/seq-registry/registry"
	"github.com/ozontech/seq-registry/tracing"
)

func main() {
	kingpin.Version(buildinfo.Version)
	cmd := kingpin.Parse()

	logger.Info("hi, I am seq-registry",
		zap.String("version", buildinfo.Version),
		zap.String("build_time", buildinfo.BuildTime),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Parse(*flagConfig)
	if err != nil {
		logger.Fatal("can't load config", zap.Error(err))
	}
	applyFlags(&cfg)

	switch cmd {
	case cmdServe.FullCommand():
		err = serve(ctx, cfg)
	case cmdKeysInit.FullCommand():
		err = keysInit(cfg.Keys)
	case cmdKeysShow.FullCommand():
		err = keysShow(cfg.Keys)
	case cmdSnapshotSave.FullCommand():
		err = snapshotSave(ctx, cfg, *flagSnapshotOut)
	case cmdSnapshotLoad.FullCommand():
		err = snapshotLoad(ctx, cfg, *flagSnapshotIn)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

func applyFlags(cfg *config.Config) {
	if *flagAddr != "" {
		cfg.Address.HTTP = *flagAddr
	}
	if *flagDebugAddr != "" {
		cfg.Address.Debug = *flagDebugAddr
	}
	if *flagStorage != "" {
		cfg.Storage.Backend = *flagStorage
	}
	if *flagDataDir != "" {
		cfg.Storage.SetDataDir(*flagDataDir)
	}
	if *flagTracingProbability != 0 {
		cfg.Tracing.Probability = *flagTracingProbability
	}
}

func serve(ctx context.Context, cfg config.Config) (err error) {
	runtime.SetMutexProfileFraction(5)

	var serviceReady atomic.Bool
	debugServer := debugserver.New(cfg.Address.Debug, &serviceReady)
	go debugServer.Start()
	defer debugServer.Stop(consts.DebugShutdownTimeout)

	if err := tracing.Start(cfg.Tracing.FromEnv()); err != nil {
		logger.Error("error initializing tracing", zap.Error(err))
	}

	st, err := openStorage(ctx, cfg.Storage, true)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.close())
	}()

	reg, err := registry.New(st, cfg.Paging.Mixnodes)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Address.HTTP)
	if err != nil {
		return fmt.Errorf("can't listen %s: %w", cfg.Address.HTTP, err)
	}
	api := proxyapi.New(cfg.APIConfig(), reg)
	go api.Start(listener)

	waitSnapshots := st.persistEvery(ctx, cfg.Storage.Snapshot.Interval)

	serviceReady.Store(true)
	logger.Info("registry is ready",
		zap.String("addr", cfg.Address.HTTP),
		zap.Uint32("default_limit", reg.PagingConfig().DefaultLimit),
		zap.Uint32("max_limit", reg.PagingConfig().MaxLimit),
	)

	<-ctx.Done()
	logger.Info("got signal to quit")
	serviceReady.Store(false)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), consts.HTTPShutdownTimeout)
	defer stopCancel()
	api.Stop(stopCtx)

	// the exit snapshot reuses the tmp file of the periodic one
	waitSnapshots()

	saveCtx, saveCancel := context.WithTimeout(context.Background(), consts.SnapshotSaveTimeout)
	defer saveCancel()
	if err := st.persist(saveCtx); err != nil {
		return fmt.Errorf("saving snapshot on exit: %w", err)
	}

	logger.Info("quit")
	return nil
}

func keysInit(cfg pathfinder.Config) error {
	pf, err := pathfinder.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	kp, err := pemstore.Generate()
	if err != nil {
		return err
	}
	if err := pemstore.Write(pf, kp); err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, kp.PublicString())
	return err
}

func keysShow(cfg pathfinder.Config) error {
	pf, err := pathfinder.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	kp, err := pemstore.Read(pf)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, kp.PublicString())
	return err
}

func snapshotSave(ctx context.Context, cfg config.Config, path string) (err error) {
	st, err := openStorage(ctx, cfg.Storage, true)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.close())
	}()

	_, err = snapshot.SaveFile(ctx, path, st, st.codec, st.level)
	return err
}

func snapshotLoad(ctx context.Context, cfg config.Config, path string) (err error) {
	start := time.Now()
	st, err := openStorage(ctx, cfg.Storage, false)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, st.close())
	}()

	stats, err := st.restore(ctx, path)
	if err != nil {
		return err
	}
	logger.Info("snapshot restored", zap.Int("records", stats.Records), zap.Duration("took", time.Since(start)))
	return nil
}
