package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"camrelay/app"
	"camrelay/config"
	"camrelay/logger"
	"camrelay/metrics"
	"camrelay/web/controller"
	"camrelay/web/router"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal(err)
	}
	conf := config.GetConfig()

	logman := logger.New(os.Stdout)
	if conf.LogFolder != "" {
		logfile := fmt.Sprintf("camrelay_logs_%s.log", time.Now().Format("2006-01-02_15-04-05"))

		var err error
		logman, err = logger.NewLogger(filepath.Join(conf.LogFolder, logfile))

		if err != nil {
			log.Fatal(err)
		}
	}
	logman.SetDebug(conf.Environment == "dev")

	m := metrics.New()
	svc, err := app.NewApp(conf, logman, m)

	if err != nil {
		logman.LogError(err, "Error creating app")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc.Start(ctx)

	ctrl := controller.NewController(svc, logman)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", conf.Port),
		Handler:           router.InitRouter(ctrl, logman, m, conf.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logman.LogInfo("Starting camera relay", "port", conf.Port, "cameras", conf.Relay.MaxCameras)

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		logman.LogError(err, "Error starting server")
		os.Exit(1)
	}

	if err := serve(ctx, server, listener, conf.ShutdownTimeout, logman); err != nil {
		logman.LogError(err, "Error serving requests")
		os.Exit(1)
	}

	<-svc.Done()
	logman.LogInfo("Camera relay stopped")
}

// serve runs server on listener until ctx is done, then shuts it down. It
// returns only after Shutdown finished draining open requests or timeout
// expired; ListenAndServe-style loops return as soon as Shutdown starts.
func serve(ctx context.Context, server *http.Server, listener net.Listener, timeout time.Duration, logman *logger.Logger) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logman.LogInfo("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logman.LogError(err, "Error shutting down server")
		}
	}()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-shutdownDone
	return nil
}
