// Package di provides dependency injection container
package di

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/EarthScope/sac2mseed/pkg/codec"
	"github.com/EarthScope/sac2mseed/pkg/logging"
	"github.com/EarthScope/sac2mseed/pkg/metrics"
	"github.com/EarthScope/sac2mseed/pkg/reader"
	"github.com/EarthScope/sac2mseed/pkg/trace"
)

// Container holds all the dependencies for the application
type Container struct {
	codec    *codec.RawCodec
	logger   logging.L
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

// NewContainer creates a new dependency injection container with a
// silent logger and a private metrics registry.
func NewContainer() *Container {
	reg := prometheus.NewRegistry()
	return &Container{
		codec:    codec.NewRawCodec(),
		logger:   logging.Nop,
		registry: reg,
		metrics:  metrics.NewMetrics(reg),
	}
}

// GetCodec returns the record codec
func (c *Container) GetCodec() *codec.RawCodec {
	return c.codec
}

// GetLogger returns the logger
func (c *Container) GetLogger() logging.L {
	return c.logger
}

// SetLogger replaces the logger
func (c *Container) SetLogger(l logging.L) {
	c.logger = logging.Must(l)
}

// GetRegistry returns the registry the metrics are registered with
func (c *Container) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetMetrics returns the metrics
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// NewCursor returns a cursor wired to the container's codec, logger and
// metrics.
func (c *Container) NewCursor(opts ...reader.CursorOption) *reader.Cursor {
	base := []reader.CursorOption{
		reader.WithDecoder(c.codec),
		reader.WithLogger(c.logger),
		reader.WithMetrics(c.metrics),
	}
	return reader.NewCursor(append(base, opts...)...)
}

// NewGroup returns an empty trace group wired to the container's logger
// and metrics.
func (c *Container) NewGroup() *trace.Group {
	return trace.NewGroup(trace.WithLogger(c.logger), trace.WithMetrics(c.metrics))
}
