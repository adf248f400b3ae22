package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/menta2k/deepzoom"
	"github.com/menta2k/deepzoom/internal/config"
)

// app carries state shared by the subcommands
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:   "dzconvert",
		Short: "Convert large raster images into Deep Zoom tile pyramids",
		Long: `dzconvert cuts a large raster image (TIFF, JPEG, PNG, BMP, GIF or WebP)
into a multi-resolution tile pyramid plus a DZI descriptor, the format read
by OpenSeadragon and other deep-zoom viewers.

Examples:
  # Six levels of 254px JPEG tiles into ./slide
  dzconvert convert slide.tif

  # PNG tiles into a chosen directory, printing the viewer snippet
  dzconvert convert slide.tif --out web/slide --format png --viewer

  # Derive the level count so the finest level is the native resolution
  dzconvert convert scan.tiff --level-policy derived --workers 8

  # Show the geometry described by an existing descriptor
  dzconvert inspect web/slide/slide.dzi`,
		Version:       deepzoom.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.dzconvert.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")

	// Pyramid geometry is shared by convert and inspect
	rootCmd.PersistentFlags().Int("levels", 6, "number of levels for the fixed level policy")
	rootCmd.PersistentFlags().String("level-policy", "fixed", "level count policy (fixed|derived)")
	rootCmd.PersistentFlags().Bool("apply-overlap", false, "grow tile rectangles by the overlap on interior edges")
	a.bind(rootCmd.PersistentFlags().Lookup("levels"), "pyramid.levels")
	a.bind(rootCmd.PersistentFlags().Lookup("level-policy"), "pyramid.level_policy")
	a.bind(rootCmd.PersistentFlags().Lookup("apply-overlap"), "pyramid.apply_overlap")

	rootCmd.AddCommand(newConvertCmd(a), newInspectCmd(a))
	return rootCmd
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig(stderr io.Writer) error {
	a.v.SetEnvPrefix("dzconvert")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		a.v.SetConfigFile(config.GetConfigPath())
		// The default file is optional
		if err := a.v.ReadInConfig(); err != nil {
			return nil
		}
	}
	if a.verbose {
		fmt.Fprintln(stderr, "Using config file:", a.v.ConfigFileUsed())
	}
	return nil
}

func (a *app) bind(flag *pflag.Flag, key string) {
	cobra.CheckErr(a.v.BindPFlag(key, flag))
}

func (a *app) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig decodes the merged flag, env and file configuration and
// applies the lenient or strict rules
func (a *app) loadConfig(log *slog.Logger) (*config.Config, error) {
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return nil, err
	}
	warnings, err := cfg.Resolve()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
