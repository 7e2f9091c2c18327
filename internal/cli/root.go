// Package cli implements the forge-delivery command line: dispatching change
// events, rendering and applying stage graphs, approving promotions and
// running pipelines locally.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	gobilly "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-delivery/config"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "FORGE_DELIVERY"

// App holds what every command shares. Fields left nil are defaulted by
// NewRootCommand.
type App struct {
	// FS is where the delivery configuration is read from.
	FS gobilly.Filesystem

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// LoadAWSConfig resolves AWS settings for the given region and profile.
	LoadAWSConfig func(ctx context.Context, region, profile string) (aws.Config, error)

	v      *viper.Viper
	logger *slog.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand(app *App) *cobra.Command {
	if app == nil {
		app = &App{}
	}
	app.defaults()

	root := &cobra.Command{
		Use:   "forge-delivery",
		Short: "Change dispatch and staged multi-account rollout",
		Long: `forge-delivery routes repository changes to the pipelines that watch the
changed paths, and builds the staged rollout graph each pipeline promotes
through: source, build, then one deploy stage per account, with manual
approval in front of gated accounts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init()
		},
	}
	root.SetIn(app.In)
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	flags := root.PersistentFlags()
	flags.StringP("config", "c", config.DefaultPath, "delivery configuration file")
	flags.String("region", "", "AWS region")
	flags.String("profile", "", "AWS shared config profile")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Int("concurrency", 0, "maximum concurrent pipeline triggers (0 = unbounded)")
	flags.Int("max-retries", 0, "retry throttled AWS calls up to this many attempts (0 = SDK default)")
	_ = app.v.BindPFlags(flags)

	root.AddCommand(
		newValidateCommand(app),
		newGraphCommand(app),
		newDispatchCommand(app),
		newApplyCommand(app),
		newApproveCommand(app),
		newStatusCommand(app),
		newRunCommand(app),
	)
	return root
}

// Execute runs the CLI against the process environment.
func Execute(ctx context.Context) error {
	return NewRootCommand(nil).ExecuteContext(ctx)
}

func (a *App) defaults() {
	if a.FS == nil {
		a.FS = osfs.New(".")
	}
	if a.In == nil {
		a.In = os.Stdin
	}
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.Err == nil {
		a.Err = os.Stderr
	}
	if a.LoadAWSConfig == nil {
		a.LoadAWSConfig = loadAWSConfig
	}
	a.v = viper.New()
	a.v.SetEnvPrefix(EnvPrefix)
	// e.g. FORGE_DELIVERY_LOG_LEVEL for log-level
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()
}

func (a *App) init() error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	a.logger, err = newLogger(a.Err, s.LogLevel, s.LogFormat)
	return err
}

func (a *App) loadConfig(ctx context.Context) (*config.DeliveryConfig, error) {
	s, err := a.settings()
	if err != nil {
		return nil, err
	}
	return config.Load(ctx, a.FS, s.ConfigPath)
}

func (a *App) awsConfig(ctx context.Context) (aws.Config, error) {
	s, err := a.settings()
	if err != nil {
		return aws.Config{}, err
	}
	return a.LoadAWSConfig(ctx, s.Region, s.Profile)
}

func loadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
