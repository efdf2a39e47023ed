package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"detectconsole/app"
	"detectconsole/config"
	"detectconsole/logger"
	"detectconsole/web/controller"
	"detectconsole/web/router"
)

func main() {
	config.Load()
	conf := config.GetConfig()
	logfile := fmt.Sprintf("detectconsole_logs_%s.log", time.Now().Format("2006-01-02_15:04:05"))

	logman, err := logger.NewLogger(filepath.Join(conf.LogFolder, logfile))

	if err != nil {
		log.Fatal(err)
	}

	svc, err := app.NewApp(conf, logman)

	if err != nil {
		logman.LogError(err, "Error creating app")
		log.Fatal(err)
	}

	ctrl := controller.NewController(svc, logman)
	r := router.InitRouter(ctrl, logman)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", conf.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logman.LogInfo("Starting server", "port", conf.Port, "service", conf.ServiceURL)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logman.LogError(err, "Error starting server")
			stop()
		}
	}()

	<-ctx.Done()
	logman.LogInfo("Shutting down")

	// end the webcam session first so stream handlers return
	svc.EndSession()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logman.LogError(err, "Error shutting down server")
	}

	svc.Close()
}
