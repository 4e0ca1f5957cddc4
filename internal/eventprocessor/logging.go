// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package eventprocessor

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/marathon/internal/logging"
)

// NewWatermillLogger returns a watermill logger that writes through the
// process zerolog logger with a component field.
func NewWatermillLogger(component string) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewComponentSlogLogger(component))
}

// natsServerLogger adapts zerolog to the embedded server's logger.
type natsServerLogger struct {
	logger zerolog.Logger
}

var _ server.Logger = (*natsServerLogger)(nil)

func newNATSServerLogger() *natsServerLogger {
	return &natsServerLogger{logger: logging.WithComponent("nats-server")}
}

func (l *natsServerLogger) Noticef(format string, v ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, v...))
}

func (l *natsServerLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, v...))
}

func (l *natsServerLogger) Fatalf(format string, v ...interface{}) {
	// The server shuts itself down after a fatal; exiting here would skip
	// the supervisor's cleanup.
	l.logger.Error().Bool("fatal", true).Msg(fmt.Sprintf(format, v...))
}

func (l *natsServerLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, v...))
}

func (l *natsServerLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, v...))
}

func (l *natsServerLogger) Tracef(format string, v ...interface{}) {
	l.logger.Trace().Msg(fmt.Sprintf(format, v...))
}
