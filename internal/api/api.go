// Package api exposes the compositor over HTTP.
package api

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ItsNotGoodName/composer/internal/build"
	"github.com/ItsNotGoodName/composer/internal/bus"
	"github.com/ItsNotGoodName/composer/internal/compositor"
	"github.com/ItsNotGoodName/composer/pkg/chiext"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Compositor is the part of the compositor the API talks to.
type Compositor interface {
	Push(msgs ...compositor.Message)
	Latest() compositor.View
}

// NewHandler builds the router. ui is served at / when it is not nil.
func NewHandler(c Compositor, events *bus.Hub[any], ui fs.FS) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(chiext.Logger())
	r.Use(middleware.Recoverer)

	if ui != nil {
		static, err := chiext.StaticFS(chiext.StaticFSConfig{FileSystem: ui})
		if err != nil {
			return nil, err
		}
		r.Use(static)
	}

	api := humachi.New(r, huma.DefaultConfig("Composer", build.Current.Version))
	Register(api, c, events)

	return r, nil
}

// NewEvents returns a hub carrying every outbound compositor notification.
func NewEvents(b *bus.Bus) *bus.Hub[any] {
	hub := bus.NewHub[any]()
	forward[compositor.Frame](b, hub)
	forward[compositor.Configure](b, hub)
	forward[compositor.FocusChanged](b, hub)
	forward[compositor.StackingChanged](b, hub)
	forward[compositor.CloseRequested](b, hub)
	forward[compositor.LaunchRequested](b, hub)
	forward[compositor.DropPerformed](b, hub)
	return hub
}

func forward[T any](b *bus.Bus, hub *bus.Hub[any]) {
	bus.Subscribe(b, "api.Events", func(ctx context.Context, event T) error {
		return hub.Broadcast(ctx, event)
	})
}

type Server struct {
	addr    string
	handler http.Handler
}

func NewServer(addr string, handler http.Handler) Server {
	return Server{
		addr:    addr,
		handler: handler,
	}
}

func (s Server) String() string {
	return "api.Server"
}

func (s Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(l net.Listener) context.Context { return ctx },
	}

	errC := make(chan error, 1)
	go func() { errC <- srv.ListenAndServe() }()
	slog.Info("Listening", "package", "api", "address", s.addr)

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
