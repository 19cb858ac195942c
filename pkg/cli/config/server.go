package config

import (
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Flags returns CLI flags for Server configuration
func (s *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Sources:     cli.EnvVars("VANTAGE_ADDR"),
			Destination: &s.Addr,
		},
		&cli.DurationFlag{
			Name:        "shutdown-timeout",
			Usage:       "Time allowed for in-flight requests and Slack notifications to finish on shutdown",
			Value:       10 * time.Second,
			Sources:     cli.EnvVars("VANTAGE_SHUTDOWN_TIMEOUT"),
			Destination: &s.ShutdownTimeout,
		},
	}
}

// LogValue returns structured log value
func (s Server) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("addr", s.Addr),
		slog.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
}
