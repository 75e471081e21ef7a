package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"siapguru/config"
	"siapguru/services/attendance/delivery"
	"siapguru/services/attendance/usecase"
)

var log *logrus.Logger
var wg sync.WaitGroup

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using process environment")
	}

	log = config.GetLogrusInstance()

	startHTTP()
}

func startHTTP() {
	log.Info("Starting HTTP")
	app := fiber.New(config.GetFiberConfig())

	app.Use(recover.New())
	// CORS Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote, closeRemote, err := config.InitRemoteStore(ctx, log)
	if err != nil {
		log.Fatalf("Failed to init remote store: %v", err)
		return
	}
	defer closeRemote()

	cache, err := config.InitLocalCache(ctx)
	if err != nil {
		log.Fatalf("Failed to init local cache: %v", err)
		return
	}

	// Regis repo and Usecase Here
	reconciler := usecase.NewSyncReconciler(remote, cache, log, config.GetRemoteTimeout(), config.GetSyncGrace())
	if err := reconciler.Restore(ctx); err != nil {
		log.WithError(err).Warn("Starting without local snapshot")
	}
	report := reconciler.Pull(ctx)
	log.WithField("outcome", report.Outcome).Info("Initial pull finished")

	stopWatch, err := reconciler.Watch(ctx)
	if err != nil {
		log.WithError(err).Warn("Change feed unavailable, relying on polling")
		stopWatch = func() {}
	}
	defer stopWatch()

	poller, err := usecase.NewPoller(reconciler, config.GetPullSchedule(), log)
	if err != nil {
		log.Fatalf("Failed to schedule pulls: %v", err)
		return
	}
	poller.Start()

	attendanceUC := usecase.NewAttendanceUseCase(reconciler, config.GetResolutionCacheTTL())

	// delivery here
	delivery.NewAttendanceDelivery(app, attendanceUC)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("Starting HTTP server for Public on port %s", config.GetFiberHttpPort())
		if err := app.Listen(config.GetFiberListenAddress()); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	<-signalChan

	log.Info("Shutting down the server...")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	poller.Stop(stopCtx)

	if err := app.Shutdown(); err != nil {
		log.Errorf("Error during server shutdown: %v", err)
	}

	wg.Wait()
	log.Info("Server shut down gracefully")
}
