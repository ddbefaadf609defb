// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package cli provides a ready made command line for Lambda functions
// which wrap an [http.Handler].
//
// The command tree has two commands:
//
//	start               serve invocations through the AWS Lambda runtime API
//	invoke EVENT...     invoke the function locally with API Gateway proxy
//	                    events read from files, "-" meaning stdin
//
// Config is layered in the following order, later layers winning: built-in
// defaults, sources registered with [ConfigSource], the YAML file given by
// --config (rendered as a text/template first), LAMBDAWRAP_ prefixed
// environment variables and, lastly, flags.
package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/z5labs/lambdawrap"
	"github.com/z5labs/lambdawrap/app"
	"github.com/z5labs/lambdawrap/config"
	"github.com/z5labs/lambdawrap/config/key"
	"github.com/z5labs/lambdawrap/inject"
	"github.com/z5labs/lambdawrap/lifecycle"
	"github.com/z5labs/lambdawrap/pkg/maskslog"
	"github.com/z5labs/lambdawrap/pkg/otelconfig"
	lambdart "github.com/z5labs/lambdawrap/runtime/lambda"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// MaskedHeaders are the headers whose values never reach the logs.
var MaskedHeaders = []string{
	"authorization",
	"cookie",
	"proxy-authorization",
	"x-api-key",
}

// Builder builds the [http.Handler] served by the function.
type Builder[T Configurer] interface {
	Build(ctx context.Context, cfg T) (http.Handler, error)
}

// BuilderFunc is a functional implementation of the [Builder] interface.
type BuilderFunc[T Configurer] func(context.Context, T) (http.Handler, error)

// Build implements the [Builder] interface.
func (f BuilderFunc[T]) Build(ctx context.Context, cfg T) (http.Handler, error) {
	return f(ctx, cfg)
}

type options struct {
	name        string
	start       lambdart.StartFunc
	sources     []config.Source
	serverOpts  []inject.ServerOption
	handlerOpts []lambdawrap.Option
}

// Option configures the command tree.
type Option func(*options)

// Name sets the name of the root command. It is also used as the
// OpenTelemetry service name when none is configured.
func Name(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithStart overrides how the start command enters the Lambda runtime loop.
func WithStart(f lambdart.StartFunc) Option {
	return func(o *options) {
		o.start = f
	}
}

// ConfigSource registers a config source applied after the built-in
// defaults and before the --config file.
func ConfigSource(src config.Source) Option {
	return func(o *options) {
		o.sources = append(o.sources, src)
	}
}

// ServerOptions are applied to the injection server after the
// options derived from config.
func ServerOptions(opts ...inject.ServerOption) Option {
	return func(o *options) {
		o.serverOpts = append(o.serverOpts, opts...)
	}
}

// HandlerOptions are applied to the Lambda handler after the
// options derived from config.
func HandlerOptions(opts ...lambdawrap.Option) Option {
	return func(o *options) {
		o.handlerOpts = append(o.handlerOpts, opts...)
	}
}

// Execute runs the command tree returned by [New] with the process arguments.
func Execute[T Configurer](b Builder[T], opts ...Option) error {
	return New(b, opts...).ExecuteContext(context.Background())
}

// New returns the root command.
func New[T Configurer](b Builder[T], opts ...Option) *cobra.Command {
	o := &options{
		name: filepath.Base(os.Args[0]),
	}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()
	v.SetEnvPrefix("LAMBDAWRAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range Keys {
		v.BindEnv(k)
	}

	var cfgPath string
	root := &cobra.Command{
		Use:          o.name,
		Short:        "Serve an HTTP handler from AWS Lambda",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", "", "YAML config file, rendered as a text/template")
	flags.String("base-path", "", "custom domain base path stripped from every event path")
	flags.String("log-level", "", "minimum log level")
	flags.String("otel-exporter", "", "trace exporter: none, stdout or otlp")
	flags.String("otel-target", "", "OTLP collector address")
	v.BindPFlag("handler.basePath", flags.Lookup("base-path"))
	v.BindPFlag("logging.level", flags.Lookup("log-level"))
	v.BindPFlag("otel.exporter", flags.Lookup("otel-exporter"))
	v.BindPFlag("otel.target", flags.Lookup("otel-target"))

	start := &cobra.Command{
		Use:   "start",
		Short: "Serve invocations through the AWS Lambda runtime API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, o, cfgPath, b, func(h *lambdawrap.Handler, lh slog.Handler) app.App {
				rtOpts := []lambdart.RuntimeOption{lambdart.LogHandler(lh)}
				if o.start != nil {
					rtOpts = append(rtOpts, lambdart.Start(o.start))
				}
				return lambdart.NewRuntime(h, rtOpts...)
			})
		},
	}

	var concurrency int
	invoke := &cobra.Command{
		Use:   "invoke EVENT_FILE...",
		Short: "Invoke the function locally with API Gateway proxy events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, o, cfgPath, b, func(h *lambdawrap.Handler, lh slog.Handler) app.App {
				srcs := make([]io.Reader, len(args))
				for i, arg := range args {
					srcs[i] = openEvent(cmd, arg)
				}
				return lambdart.NewLocal(
					h,
					cmd.OutOrStdout(),
					srcs,
					lambdart.Concurrency(concurrency),
					lambdart.FunctionName(o.name),
					lambdart.LocalLogHandler(lh),
				)
			})
		},
	}
	invoke.Flags().IntVar(&concurrency, "concurrency", 0, "maximum events invoked at once, 0 means unlimited")

	root.AddCommand(start, invoke)
	return root
}

func openEvent(cmd *cobra.Command, path string) io.Reader {
	if path == "-" {
		return cmd.InOrStdin()
	}
	return openFile(path)
}

func openFile(path string) *config.FileReader {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return config.NewFileReader(os.DirFS(filepath.Dir(abs)), filepath.Base(abs))
}

func readConfig[T Configurer](v *viper.Viper, o *options, path string) (T, error) {
	var cfg T

	srcs := []config.Source{defaults()}
	srcs = append(srcs, o.sources...)
	if path != "" {
		srcs = append(srcs, config.FromYaml(config.RenderTextTemplate(openFile(path))))
	}

	overrides := config.Map{}
	for _, k := range Keys {
		if !v.IsSet(k) {
			continue
		}
		err := overrides.Set(key.Parse(k), v.Get(k))
		if err != nil {
			return cfg, ConfigReadError{Cause: err}
		}
	}
	srcs = append(srcs, overrides)

	m, err := config.Read(srcs...)
	if err != nil {
		return cfg, ConfigReadError{Cause: err}
	}

	err = m.Unmarshal(&cfg)
	if err != nil {
		return cfg, ConfigUnmarshalError{Cause: err}
	}
	return cfg, nil
}

func run[T Configurer](cmd *cobra.Command, v *viper.Viper, o *options, cfgPath string, b Builder[T], newApp func(*lambdawrap.Handler, slog.Handler) app.App) error {
	cfg, err := readConfig[T](v, o, cfgPath)
	if err != nil {
		return err
	}
	base := cfg.CLIConfig()

	var lh slog.Handler = slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: base.Logging.Level,
	})
	lh = maskslog.NewHandler(lh, maskslog.Keys(MaskedHeaders...))

	otelCfg := base.OTel
	if otelCfg.ServiceName == "" {
		otelCfg.ServiceName = o.name
	}
	initializer, err := otelconfig.FromConfig(otelCfg)
	if err != nil {
		return AppBuildError{Cause: err}
	}

	serverOpts := []inject.ServerOption{
		inject.Compression(base.Server.Compression),
		inject.CompressionMinBytes(base.Server.CompressionMinBytes),
		inject.LogHandler(lh),
	}
	if initializer != otelconfig.Noop {
		serverOpts = append(serverOpts, inject.Traced(o.name))
	}
	serverOpts = append(serverOpts, o.serverOpts...)

	handlerOpts := []lambdawrap.Option{
		lambdawrap.BasePath(base.Handler.BasePath),
		lambdawrap.SetRequestID(base.Handler.SetRequestID),
		lambdawrap.LogHandler(lh),
	}
	handlerOpts = append(handlerOpts, o.handlerOpts...)

	lc := &lifecycle.Context{}
	lc.OnPreRun(lifecycle.ManageOTel(initializer))

	rt := app.RunFunc(func(ctx context.Context) error {
		f := lambdawrap.Pending(ctx, func(ctx context.Context) (lambdawrap.Server, error) {
			h, err := b.Build(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return inject.NewServer(h, serverOpts...), nil
		})
		return newApp(lambdawrap.NewHandler(f, handlerOpts...), lh).Run(ctx)
	})

	a := app.Recover(app.WithSignalNotifications(app.WithLifecycleHooks(rt, lc), os.Interrupt))
	err = a.Run(cmd.Context())
	if err != nil {
		return AppRunError{Cause: err}
	}
	return nil
}
