// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"topdown/internal/topdown"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promMetricPrefix = "topdown_"

// exporter holds the gauges that expose analysis results to Prometheus
type exporter struct {
	registry    *prometheus.Registry
	metrics     *prometheus.GaugeVec
	boundedness *prometheus.GaugeVec
}

func newExporter() *exporter {
	e := &exporter{
		registry: prometheus.NewRegistry(),
		metrics: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + "metric",
				Help: "Topdown hierarchical metric value as a fraction of pipeline slots",
			},
			[]string{"metric", "sample", "region"},
		),
		boundedness: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + "boundedness",
				Help: "Value of each category on the sample's boundedness path",
			},
			[]string{"sample", "region", "level", "category"},
		),
	}
	e.registry.MustRegister(e.metrics, e.boundedness)
	return e
}

// update sets the gauges from classified samples. NaN values are not exported.
func (e *exporter) update(samples []topdown.Sample, regionField string) {
	for _, s := range samples {
		sample := strconv.Itoa(s.Index)
		region := ""
		if v, ok := s.Field(regionField); ok {
			region = fmt.Sprintf("%v", v)
		}
		for m := topdown.Metric(0); m < topdown.NumMetrics; m++ {
			if math.IsNaN(s.Metrics[m]) {
				continue
			}
			e.metrics.WithLabelValues(m.String(), sample, region).Set(s.Metrics[m])
		}
		for _, label := range s.Boundedness {
			name, _, _ := strings.Cut(label, " ")
			m, ok := topdown.MetricByName(name)
			if !ok || math.IsNaN(s.Metrics[m]) {
				continue
			}
			e.boundedness.WithLabelValues(sample, region, strconv.Itoa(m.Level()), name).Set(s.Metrics[m])
		}
	}
}

// serveMetrics exposes the samples on listenAddr until the context is done or the process
// receives SIGINT or SIGTERM
func serveMetrics(ctx context.Context, listenAddr string, samples []topdown.Sample, regionField string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e := newExporter()
	e.update(samples, regionField)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errChannel := make(chan error, 1)
	slog.Info("Starting Prometheus metrics server", slog.String("address", listenAddr))
	fmt.Fprintf(os.Stderr, "Serving metrics on %s/metrics, press Ctrl+C to stop\n", listenAddr)
	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errChannel <- err
		}
		close(errChannel)
	}()
	select {
	case err := <-errChannel:
		if err != nil {
			slog.Error("Prometheus HTTP server ListenAndServe error", slog.String("error", err.Error()))
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Stopping Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
