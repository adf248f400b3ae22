package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menta2k/deepzoom"
	"github.com/menta2k/deepzoom/internal/utils"
	"github.com/menta2k/deepzoom/pkg/processing"
)

func newConvertCmd(a *app) *cobra.Command {
	var viewer bool

	cmd := &cobra.Command{
		Use:   "convert INPUT",
		Short: "Generate the tile pyramid and DZI descriptor for an image",
		Long: `convert reads INPUT (a file path or http(s) URL) and writes

  {out}/{name}.dzi
  {out}/{name}_files/{level}/{column}_{row}.{ext}

where name is the last element of the output directory. The output
directory defaults to the input file name without extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, args[0], viewer)
		},
	}

	flags := cmd.Flags()
	flags.StringP("out", "o", "", "output directory (default: input name without extension)")
	flags.StringP("format", "f", "jpg", "tile format (jpg|png|webp)")
	flags.IntP("tile-size", "t", 254, "tile size in pixels")
	flags.Int("overlap", 1, "tile overlap recorded in the descriptor")
	flags.IntP("quality", "q", 85, "JPEG/WebP quality (1-100)")
	flags.Bool("lossless", false, "WebP lossless mode")
	flags.Int("palette", 0, "quantize PNG tiles to this many colors (0 keeps full color)")
	flags.IntP("workers", "w", 1, "tiles written concurrently")
	flags.Bool("strict", false, "reject invalid values instead of falling back to defaults")
	flags.BoolVar(&viewer, "viewer", false, "print an OpenSeadragon HTML snippet for the result")

	a.bind(flags.Lookup("out"), "output.dir")
	a.bind(flags.Lookup("format"), "tile.format")
	a.bind(flags.Lookup("tile-size"), "tile.size")
	a.bind(flags.Lookup("overlap"), "tile.overlap")
	a.bind(flags.Lookup("quality"), "tile.quality")
	a.bind(flags.Lookup("lossless"), "tile.lossless")
	a.bind(flags.Lookup("palette"), "tile.palette")
	a.bind(flags.Lookup("workers"), "workers")
	a.bind(flags.Lookup("strict"), "strict")

	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, input string, viewer bool) error {
	log := a.logger(cmd.ErrOrStderr())

	if !utils.FileExists(input) && !processing.IsURL(input) {
		return fmt.Errorf("file %q not found", input)
	}

	cfg, err := a.loadConfig(log)
	if err != nil {
		return err
	}
	outDir := cfg.Output.Dir
	if outDir == "" {
		outDir = utils.DefaultOutputDir(input)
	}

	planner := cfg.Planner()
	conv, err := deepzoom.New(cfg.Tiles(),
		deepzoom.WithLevelPolicy(planner.Policy),
		deepzoom.WithApplyOverlap(planner.ApplyOverlap),
		deepzoom.WithWorkers(cfg.Workers),
		deepzoom.WithLogger(log),
	)
	if err != nil {
		return err
	}

	res, err := conv.Convert(cmd.Context(), input, outDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Image size: %dx%d\n", res.Document.Width, res.Document.Height)
	for _, lvl := range res.Levels {
		fmt.Fprintf(out, "Level %d: %dx%d (%d tiles)\n", lvl.Index, lvl.Width, lvl.Height, lvl.TileCount())
	}
	fmt.Fprintf(out, "DZI file: %s\n", res.DescriptorPath)
	fmt.Fprintf(out, "Tiles directory: %s\n", res.TilesDir)

	if viewer {
		return writeViewerSnippet(out, res.DescriptorPath)
	}
	return nil
}
