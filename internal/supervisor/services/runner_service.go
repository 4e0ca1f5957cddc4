// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/marathon/internal/eventprocessor"
	"github.com/tomtom215/marathon/internal/logging"
)

// RunFunc blocks until ctx is canceled or the component fails.
// Producer.Run, Aggregator.Run and Hub.RunWithContext all match it.
type RunFunc func(ctx context.Context) error

// RunnerService supervises a RunFunc. Non-fatal errors are returned as is
// and suture restarts the component. Fatal errors stop the tree.
type RunnerService struct {
	name    string
	run     RunFunc
	onFatal func(error)
}

// NewRunnerService wraps run. onFatal, if not nil, is called with any error
// that eventprocessor.IsFatal recognises before the tree is terminated.
func NewRunnerService(name string, run RunFunc, onFatal func(error)) *RunnerService {
	return &RunnerService{
		name:    name,
		run:     run,
		onFatal: onFatal,
	}
}

// Serve implements suture.Service.
func (s *RunnerService) Serve(ctx context.Context) error {
	err := s.run(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}

	if eventprocessor.IsFatal(err) {
		logging.Error().Err(err).Str("service", s.name).Msg("fatal error, stopping supervisor tree")
		if s.onFatal != nil {
			s.onFatal(err)
		}
		return errors.Join(suture.ErrTerminateSupervisorTree, err)
	}

	logging.Warn().Err(err).Str("service", s.name).Msg("service failed, supervisor will restart it")
	return err
}

// String implements fmt.Stringer.
func (s *RunnerService) String() string {
	return s.name
}
