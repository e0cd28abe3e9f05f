// Package sutureext adapts suture supervisors to slog and to services that return
// context errors on their own.
package sutureext

import (
	"context"
	"errors"
	"log/slog"

	"github.com/thejerf/suture/v4"
)

// NewSimple returns a supervisor named name that logs its events through slog.
func NewSimple(name string) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: EventHook(slog.Default()),
	})
}

func EventHook(logger *slog.Logger) suture.EventHook {
	logger = logger.With("package", "suture")
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			logger.Warn("Service did not stop in time", "supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventServicePanic:
			logger.Error("Service panicked", "supervisor", e.SupervisorName, "service", e.ServiceName, "panic", e.PanicMsg)
			logger.Debug(e.Stacktrace)
		case suture.EventServiceTerminate:
			logger.Error("Service failed", "supervisor", e.SupervisorName, "service", e.ServiceName, "restarting", e.Restarting, "error", e.Err)
		case suture.EventBackoff:
			logger.Warn("Too many service failures, backing off", "supervisor", e.SupervisorName)
		case suture.EventResume:
			logger.Info("Resuming after backoff", "supervisor", e.SupervisorName)
		default:
			logger.Warn("Unknown supervisor event", "type", int(e.Type()), "event", e.String())
		}
	}
}

// Service is a suture service with a name for the logs.
type Service interface {
	String() string
	suture.Service
}

// Add adds service to super with its errors passed through SanitizeError.
func Add(super *suture.Supervisor, service Service) suture.ServiceToken {
	return super.Add(sanitized{Service: service})
}

type sanitized struct {
	Service
}

func (s sanitized) Serve(ctx context.Context) error {
	return SanitizeError(ctx, s.Service.Serve(ctx))
}

// SanitizeError hides context errors that did not come from ctx. Suture stops
// restarting a service that returns a context error, so one leaking from an inner
// operation would take the service down for good.
func SanitizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	errs := []error{errors.New(err.Error())}
	if errors.Is(err, suture.ErrDoNotRestart) {
		errs = append(errs, suture.ErrDoNotRestart)
	}
	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		errs = append(errs, suture.ErrTerminateSupervisorTree)
	}
	return errors.Join(errs...)
}
