package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/ethpandaops/curvewatch/handlers/api"
	"github.com/ethpandaops/curvewatch/handlers/middleware"
	"github.com/ethpandaops/curvewatch/metrics"
	"github.com/ethpandaops/curvewatch/services"
	"github.com/ethpandaops/curvewatch/types"
	"github.com/ethpandaops/curvewatch/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		logrus.Fatalf("error reading config file: %v", err)
	}
	utils.Config = cfg
	logWriter, logger := utils.InitLogger()
	defer logWriter.Dispose()

	logger.WithFields(logrus.Fields{
		"config":  *configPath,
		"version": utils.BuildVersion,
		"release": utils.BuildRelease,
		"factory": cfg.Chain.FactoryAddress,
	}).Printf("starting")

	err = services.InitCurveService(ctx, logger.WithField("service", "curve"))
	if err != nil {
		logger.Fatalf("error initializing curve service: %v", err)
	}

	if cfg.Metrics.Enabled && !cfg.Metrics.Public {
		_, err = metrics.StartMetricsServer(logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			logger.Fatalf("error starting metrics server: %v", err)
		}
	}

	err = services.GlobalCurveService.StartService()
	if err != nil {
		utils.LogFatal(err, "error starting curve service", 0)
	}

	if cfg.RateLimit.Enabled {
		err = services.StartCallRateLimiter(ctx, cfg.RateLimit.ProxyCount, cfg.RateLimit.Rate, cfg.RateLimit.Burst)
		if err != nil {
			logger.Fatalf("error starting call rate limiter: %v", err)
		}
	}

	var webserver *http.Server
	if cfg.Api.Enabled {
		webserver, err = startWebserver(logger)
		if err != nil {
			logger.Fatalf("error starting webserver: %v", err)
		}
	}

	utils.WaitForCtrlC()
	logger.Println("exiting...")

	if webserver != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := webserver.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warnf("error shutting down webserver")
		}
		shutdownCancel()
	}

	services.GlobalCurveService.StopService()
}

func startWebserver(logger logrus.FieldLogger) (*http.Server, error) {
	router := mux.NewRouter()
	api.RegisterRoutes(router)
	api.RegisterDocs(router)

	if utils.Config.Metrics.Enabled && utils.Config.Metrics.Public {
		router.Handle("/metrics", metrics.GetMetricsHandler())
	}

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(middleware.NewCorsMiddleware(utils.Config.Api.CorsOrigins)(router))

	if utils.Config.Server.HttpReadTimeout == 0 {
		utils.Config.Server.HttpReadTimeout = time.Second * 15
	}
	if utils.Config.Server.HttpIdleTimeout == 0 {
		utils.Config.Server.HttpIdleTimeout = time.Second * 60
	}
	// a zero write timeout keeps event streams open
	srv := &http.Server{
		Addr:         utils.Config.Server.Host + ":" + utils.Config.Server.Port,
		WriteTimeout: utils.Config.Server.HttpWriteTimeout,
		ReadTimeout:  utils.Config.Server.HttpReadTimeout,
		IdleTimeout:  utils.Config.Server.HttpIdleTimeout,
		Handler:      n,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	logger.Printf("http server listening on %v", srv.Addr)
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Error serving api")
		}
	}()

	return srv, nil
}
