package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/waypoint"
	"github.com/vango-dev/waypoint/internal/catalog"
	"github.com/vango-dev/waypoint/internal/config"
	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/registry"
	"github.com/vango-dev/waypoint/pkg/routeconf"
	"github.com/vango-dev/waypoint/pkg/router"
)

type globalFlags struct {
	configDir string
	routes    string
	logLevel  string
}

// loadConfig reads the config directory, or returns defaults when none
// was given.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg := config.New()
	if flags.configDir != "" {
		var err error
		if cfg, err = config.Load(flags.configDir); err != nil {
			return nil, err
		}
	}
	if flags.routes != "" {
		routes, err := filepath.Abs(flags.routes)
		if err != nil {
			return nil, err
		}
		cfg.Routes = routes
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// buildApp assembles the application described by cfg. The demo catalog
// provides guards, resolvers and views in every case; the route table
// comes from cfg.Routes when set.
func buildApp(ctx context.Context, cfg *config.Config, session *catalog.Session, extra waypoint.Config) (*waypoint.App, error) {
	reg := registry.New()
	if err := catalog.Register(reg, catalog.DemoDirectory()); err != nil {
		return nil, err
	}

	table, err := loadTable(cfg, reg)
	if err != nil {
		return nil, err
	}

	notFound := cfg.NotFound
	if notFound == "" && cfg.Routes == "" {
		notFound = catalog.NotFoundView
	}

	wc := extra
	wc.Table = table
	wc.Registry = reg
	wc.NotFound = notFound
	wc.MaxRedirects = cfg.Navigation.MaxRedirects
	wc.HistoryLimit = cfg.Navigation.HistoryLimit
	wc.Session = session
	wc.Preload = cfg.Preload
	wc.MetricsNamespace = cfg.Metrics.Namespace
	wc.Tracing = cfg.Tracing.Enabled
	wc.TracerName = cfg.Tracing.TracerName
	wc.Logger = cfg.Logger(os.Stderr)
	if cfg.HasRemoteViews() {
		wc.Fetchers = append(wc.Fetchers, s3Fetcher(cfg.Views))
	}
	return waypoint.New(ctx, wc)
}

func loadTable(cfg *config.Config, reg *registry.Registry) (*router.Table, error) {
	path := cfg.RoutesPath()
	if path == "" {
		return catalog.Table(reg)
	}
	return routeconf.Load(path, reg)
}

// s3Fetcher builds the remote view source. Credentials come from the
// standard AWS environment variables; without them requests are anonymous.
func s3Fetcher(vc config.ViewsConfig) loader.Fetcher {
	opts := s3.Options{
		Region:       vc.Region,
		UsePathStyle: vc.PathStyle,
		Credentials:  aws.AnonymousCredentials{},
	}
	if vc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(vc.Endpoint)
	}
	if id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); id != "" && secret != "" {
		opts.Credentials = aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     id,
				SecretAccessKey: secret,
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
				Source:          "environment",
			}, nil
		})
	}
	return loader.NewS3Fetcher(s3.New(opts), vc.Bucket, vc.Prefix)
}

func usageError(detail string) error {
	return werrors.New("W500").WithDetail(detail)
}
