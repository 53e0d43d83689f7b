package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/comfforts/logger"

	"github.com/hankgalt/watch-history/internal/infra/temporal"
	"github.com/hankgalt/watch-history/internal/usecase/workflows/aggregate"
	envutils "github.com/hankgalt/watch-history/pkg/utils/environment"
)

const DEFAULT_WORKER_HOST = "aggregate-worker"

func main() {
	fmt.Println("Starting aggregate worker - setting up logger instance")
	l := logger.GetSlogMultiLogger("data")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, l)

	// setup host identity for worker
	host, err := os.Hostname()
	if err != nil {
		l.Debug("error getting host name, using default", "error", err.Error())
		host = DEFAULT_WORKER_HOST
	} else {
		host = fmt.Sprintf("%s-%s", host, DEFAULT_WORKER_HOST)
	}

	tCfg := envutils.BuildTemporalConfig(host)

	startupCtx, startupCancel := context.WithTimeout(ctx, 5*time.Second)
	defer startupCancel()

	clientOpts, shutdown, tracingInt, err := temporal.NewConnectionBuilder(tCfg).Build(startupCtx)
	defer func() {
		if shutdown != nil {
			l.Info("closing otel client", "host", host)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				l.Error("error shutting down OTel", "error", err.Error())
			}
		}
	}()
	if err != nil {
		l.Error("error building temporal client options", "error", err.Error())
		panic(fmt.Errorf("error building temporal client options: %w", err))
	}

	tClient, err := client.Dial(clientOpts)
	if err != nil {
		l.Error("error connecting temporal server", "error", err.Error())
		panic(err)
	}
	defer func() {
		l.Info("closing temporal client", "host", host)
		tClient.Close()
	}()

	workerOptions := worker.Options{
		BackgroundActivityContext: ctx,
		EnableLoggingInReplay:     true,
		Identity:                  aggregate.HostID,
	}
	if tracingInt != nil {
		workerOptions.Interceptors = []interceptor.WorkerInterceptor{tracingInt}
	}
	w := worker.New(tClient, aggregate.ApplicationName, workerOptions)

	aggregate.RegisterAll(w)

	if err := w.Start(); err != nil {
		l.Error("error starting aggregate worker", "error", err.Error())
		panic(err)
	}
	l.Info(
		"aggregate worker started, waiting for interrupt signal to shutdown",
		"host", host,
		"task-queue", aggregate.ApplicationName,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("stopping aggregate worker", "host", host)
	w.Stop()
}
