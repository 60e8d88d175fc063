package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/chartsnap/chart2csv/internal/chart"
	"github.com/chartsnap/chart2csv/internal/export"
	"github.com/chartsnap/chart2csv/internal/imaging"
	"github.com/chartsnap/chart2csv/internal/ocr"
	"github.com/chartsnap/chart2csv/internal/pipeline"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("chart2csv %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)

	// Optional .env for vision reader credentials
	_ = godotenv.Load()

	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("chart2csv: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("chart2csv", flag.ExitOnError)

	output := fs.String("output", "", "CSV output path (default: stdout)")
	metadata := fs.String("metadata", "", "write run metadata JSON to this path")
	overlay := fs.String("overlay", "", "write annotated verification PNG to this path")
	chartType := fs.String("chart-type", "", "chart type: scatter, line or bar (default: auto)")
	cropFlag := fs.String("crop", "", "manual plot area as x1,y1,x2,y2")
	xAxisFlag := fs.Int("x-axis", -1, "manual x-axis pixel row")
	yAxisFlag := fs.Int("y-axis", -1, "manual y-axis pixel column")
	calibrate := fs.Bool("calibrate", false, "prompt for two calibration points per axis")
	calibFlag := fs.String("calibration", "", "calibration as px:val,px:val/px:val,px:val (x pair / y pair)")
	xScale := fs.String("x-scale", "linear", "x-axis scale: linear or log (log requires calibration)")
	yScale := fs.String("y-scale", "linear", "y-axis scale: linear or log (log requires calibration)")
	reader := fs.String("reader", "tesseract", "label reader: tesseract or vision")
	batch := fs.Bool("batch", false, "treat arguments as multiple images")
	outputDir := fs.String("output-dir", ".", "output directory for batch mode")
	quiet := fs.Bool("quiet", false, "suppress progress logging")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "chart2csv - extract numeric data from chart images")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Usage: chart2csv [options] image.png")
		fmt.Fprintln(os.Stderr, "       chart2csv --batch [options] image1.png image2.png ...")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Environment variables (vision reader):")
		fmt.Fprintln(os.Stderr, "  CHART2CSV_VISION_ENDPOINT  chat completions URL")
		fmt.Fprintln(os.Stderr, "  CHART2CSV_VISION_API_KEY   API key")
		fmt.Fprintln(os.Stderr, "  CHART2CSV_VISION_MODEL     model name")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("no input image given")
	}

	opts := pipeline.Options{
		ChartType: chart.ChartType(*chartType),
		XScale:    chart.Scale(*xScale),
		YScale:    chart.Scale(*yScale),
	}

	if *cropFlag != "" {
		box, err := parseCrop(*cropFlag)
		if err != nil {
			return err
		}
		opts.Crop = &box
	}
	if *xAxisFlag >= 0 {
		opts.XAxisPos = xAxisFlag
	}
	if *yAxisFlag >= 0 {
		opts.YAxisPos = yAxisFlag
	}
	if *calibFlag != "" {
		cal, err := parseCalibration(*calibFlag)
		if err != nil {
			return err
		}
		opts.Calibration = &cal
	}
	if *calibrate && opts.Calibration == nil {
		cal, err := promptCalibration(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		opts.Calibration = &cal
	}

	switch *reader {
	case "tesseract":
		opts.Reader = ocr.NewTesseractReader()
	case "vision":
		endpoint := os.Getenv("CHART2CSV_VISION_ENDPOINT")
		if endpoint == "" {
			return fmt.Errorf("--reader=vision requires CHART2CSV_VISION_ENDPOINT")
		}
		opts.Reader = ocr.NewVisionReader(endpoint,
			os.Getenv("CHART2CSV_VISION_API_KEY"),
			os.Getenv("CHART2CSV_VISION_MODEL"))
	default:
		return fmt.Errorf("unknown reader %q", *reader)
	}

	var logger *log.Logger
	if !*quiet {
		logger = log.Default()
	}
	p := pipeline.New(pipeline.DefaultConfig(), logger)
	cache := imaging.NewImageCache()
	ctx := context.Background()

	if *batch {
		return runBatch(ctx, p, cache, fs.Args(), opts, *outputDir)
	}

	return runOne(ctx, p, cache, fs.Arg(0), opts, *output, *metadata, *overlay)
}

func runOne(ctx context.Context, p *pipeline.Pipeline, cache *imaging.ImageCache, path string, opts pipeline.Options, output, metadata, overlay string) error {
	img, err := cache.Load(path)
	if err != nil {
		return err
	}

	res, art, err := p.RunDetailed(ctx, img, opts)
	if err != nil {
		return err
	}

	for _, w := range res.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}

	if err := writeCSVTo(output, res); err != nil {
		return err
	}
	if metadata != "" {
		if err := writeFile(metadata, func(f *os.File) error {
			return export.WriteMetadata(f, res)
		}); err != nil {
			return err
		}
	}
	if overlay != "" {
		if err := writeFile(overlay, func(f *os.File) error {
			return export.WriteOverlay(f, res, art)
		}); err != nil {
			return err
		}
	}
	return nil
}

// runBatch processes images sequentially, each as an independent run.
// Outputs land in outputDir named after the input: chart.png -> chart.csv
// plus chart.json metadata. One failing image does not abort the rest.
func runBatch(ctx context.Context, p *pipeline.Pipeline, cache *imaging.ImageCache, paths []string, opts pipeline.Options, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	failures := 0
	for _, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		csvPath := filepath.Join(outputDir, base+".csv")
		metaPath := filepath.Join(outputDir, base+".json")

		if err := runOne(ctx, p, cache, path, opts, csvPath, metaPath, ""); err != nil {
			log.Printf("%s: %v", path, err)
			failures++
			continue
		}
		cache.Evict(path)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d images failed", failures, len(paths))
	}
	return nil
}

func writeCSVTo(path string, res *chart.ChartResult) error {
	if path == "" {
		return export.WriteCSV(os.Stdout, res)
	}
	return writeFile(path, func(f *os.File) error {
		return export.WriteCSV(f, res)
	})
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return err
	}
	return f.Close()
}

// parseCrop parses "x1,y1,x2,y2".
func parseCrop(s string) (chart.CropBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return chart.CropBox{}, fmt.Errorf("crop must be x1,y1,x2,y2, got %q", s)
	}
	vals := make([]int, 4)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return chart.CropBox{}, fmt.Errorf("invalid crop coordinate %q: %w", part, err)
		}
		vals[i] = v
	}
	return chart.CropBox{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}, nil
}

// parseCalibration parses "px:val,px:val/px:val,px:val" with the x-axis pair
// before the slash.
func parseCalibration(s string) (chart.Calibration, error) {
	var cal chart.Calibration
	axes := strings.Split(s, "/")
	if len(axes) != 2 {
		return cal, fmt.Errorf("calibration must be two /-separated axis pairs, got %q", s)
	}
	for i, axis := range axes {
		pair := strings.Split(axis, ",")
		if len(pair) != 2 {
			return cal, fmt.Errorf("calibration axis needs two px:val points, got %q", axis)
		}
		for j, pt := range pair {
			tick, err := parseTick(pt)
			if err != nil {
				return cal, err
			}
			if i == 0 {
				cal.X[j] = tick
			} else {
				cal.Y[j] = tick
			}
		}
	}
	return cal, nil
}

func parseTick(s string) (chart.Tick, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return chart.Tick{}, fmt.Errorf("calibration point must be px:val, got %q", s)
	}
	px, err := strconv.Atoi(parts[0])
	if err != nil {
		return chart.Tick{}, fmt.Errorf("invalid pixel %q: %w", parts[0], err)
	}
	val, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return chart.Tick{}, fmt.Errorf("invalid value %q: %w", parts[1], err)
	}
	return chart.Tick{Pixel: px, Value: val}, nil
}

// promptCalibration interactively asks for two points per axis.
func promptCalibration(in *os.File, out *os.File) (chart.Calibration, error) {
	var cal chart.Calibration
	scanner := bufio.NewScanner(in)

	prompts := []struct {
		label string
		dest  *chart.Tick
	}{
		{"x-axis point 1 (pixel:value): ", &cal.X[0]},
		{"x-axis point 2 (pixel:value): ", &cal.X[1]},
		{"y-axis point 1 (pixel:value): ", &cal.Y[0]},
		{"y-axis point 2 (pixel:value): ", &cal.Y[1]},
	}
	for _, p := range prompts {
		fmt.Fprint(out, p.label)
		if !scanner.Scan() {
			return cal, fmt.Errorf("calibration input ended early")
		}
		tick, err := parseTick(scanner.Text())
		if err != nil {
			return cal, err
		}
		*p.dest = tick
	}
	return cal, nil
}
