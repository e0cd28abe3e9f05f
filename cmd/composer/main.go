package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ItsNotGoodName/composer/internal/api"
	"github.com/ItsNotGoodName/composer/internal/appinfo"
	"github.com/ItsNotGoodName/composer/internal/build"
	"github.com/ItsNotGoodName/composer/internal/bus"
	"github.com/ItsNotGoodName/composer/internal/compositor"
	"github.com/ItsNotGoodName/composer/internal/config"
	"github.com/ItsNotGoodName/composer/internal/core"
	"github.com/ItsNotGoodName/composer/internal/web"
	"github.com/ItsNotGoodName/composer/pkg/sutureext"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/phsym/console-slog"
)

type Options struct {
	Debug  bool   `doc:"enable debug"`
	Host   string `doc:"host to listen on"`
	Port   int    `doc:"port to listen on" default:"8080"`
	Config string `doc:"config file" default:".composer.yaml"`
	NoUI   bool   `doc:"do not serve the scene viewer"`
}

func main() {
	godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		if options.Debug {
			InitLogger(slog.LevelDebug)
		} else {
			InitLogger(slog.LevelInfo)
		}

		OnServe(hooks, func(ctx context.Context) error {
			return Serve(ctx, options)
		})
	})

	cli.Root().Version = build.Current.Version
	cli.Root().AddCommand(SceneCommand())

	cli.Run()
}

func Serve(ctx context.Context, options *Options) error {
	configFilePath, err := filepath.Abs(options.Config)
	if err != nil {
		return err
	}

	store, err := config.NewStore(config.NewDriver(configFilePath))
	if err != nil {
		return err
	}

	if err := config.Normalize(store); err != nil {
		return err
	}

	cfg, err := store.GetConfig()
	if err != nil {
		return err
	}

	opts, err := compositor.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	b := bus.New()
	b.SetContext(ctx)

	comp := compositor.New(b, opts)

	resolver := appinfo.NewResolver(appinfo.OSDirs(cfg.AppInfo.Dirs), appinfo.OSDirs(cfg.AppInfo.IconDirs), func(res appinfo.Result) {
		comp.Push(compositor.AppIconResolved{AppID: res.AppID, Name: res.Name, Icon: res.Icon, Exec: res.Exec})
	})
	bus.Subscribe(b, resolver.String(), func(ctx context.Context, event compositor.AppInfoRequested) error {
		if !resolver.Request(event.AppID) {
			comp.Push(compositor.AppInfoDropped{AppID: event.AppID})
		}
		return nil
	})

	bus.Subscribe(b, "main", func(ctx context.Context, event compositor.LaunchRequested) error {
		slog.Info("Launch requested", "app", event.Launcher.AppID, "exec", event.Launcher.Exec)
		return nil
	})

	handler, err := api.NewHandler(comp, api.NewEvents(b), ui(options))
	if err != nil {
		return err
	}
	server := api.NewServer(core.Address(options.Host, options.Port), handler)

	super := sutureext.NewSimple("composer")
	sutureext.Add(super, comp)
	sutureext.Add(super, resolver)
	sutureext.Add(super, server)

	slog.Info("Starting", "version", build.Current.Version, "config", configFilePath)

	return super.Serve(ctx)
}

func ui(options *Options) fs.FS {
	if options.NoUI {
		return nil
	}
	return web.FS()
}

func InitLogger(level slog.Level) {
	slog.SetDefault(slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: level,
	})))
}

func OnServe(hooks humacli.Hooks, serveFn func(ctx context.Context) error) {
	stopC := make(chan struct{})
	hooks.OnStart(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errC := make(chan error, 1)

		go func() { errC <- serveFn(ctx) }()

		select {
		case <-stopC:
			cancel()
		case err := <-errC:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
			return
		}

		<-errC
		<-stopC
	})
	hooks.OnStop(func() {
		stopC <- struct{}{}
		stopC <- struct{}{}
	})
}
