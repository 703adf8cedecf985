// Package relay wires the hub, gateway and metrics into one running
// realtime notification service.
package relay

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/hackfest/realtime/internal/gateway"
	"github.com/hackfest/realtime/internal/hub"
	"github.com/hackfest/realtime/internal/metrics"
)

// Config represents the parameters for a relay instance
type Config struct {

	// Port to listen on
	Port int

	// Audience must match the aud in bearer tokens
	Audience string

	// Secret validates bearer tokens
	Secret string

	// Registry for prometheus collectors; nil gets a fresh one
	Registry *prometheus.Registry
}

// Relay runs the realtime notification service until closed is closed
func Relay(closed <-chan struct{}, parentwg *sync.WaitGroup, config Config) {

	defer parentwg.Done()

	registry := config.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := metrics.New(registry)

	h := hub.New().WithMetrics(m)

	router := gateway.Router(closed, gateway.Config{
		Audience: config.Audience,
		Secret:   config.Secret,
		Hub:      h,
	})

	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(config.Port),
		Handler: router,
	}

	go func() {
		<-closed
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithField("error", err).Error("server shutdown error")
		}
	}()

	log.WithField("port", config.Port).Info("realtime service listening")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithField("error", err).Error("server error")
	}

	log.Trace("relay done")
}
