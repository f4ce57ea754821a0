package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/image-grid-mcp/internal/config"
	"github.com/ironsheep/image-grid-mcp/internal/imaging"
	"github.com/ironsheep/image-grid-mcp/internal/library"
	"github.com/ironsheep/image-grid-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-grid-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp(os.Stdout)
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(nil)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "split" {
		code := runSplit(ctx, cfg, os.Args[2:], os.Stdout)
		stop()
		os.Exit(code)
	}

	if cfg.Debug() {
		log.Printf("Image Grid MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv := server.New(cfg)
	if cfg.S3Enabled() {
		sink, err := newS3Sink(ctx, cfg)
		if err != nil {
			log.Fatalf("S3 setup failed: %v", err)
		}
		srv.SetRemoteSink(sink)
	}

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "image-grid-mcp - MCP server that cuts photos into a 3x3 grid")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  image-grid-mcp [options]           Run the MCP server on stdin/stdout")
	fmt.Fprintln(w, "  image-grid-mcp split <image> [dir] Cut <image> and save the nine tiles")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=debug          Enable debug logging\n", config.EnvLogLevel)
	fmt.Fprintf(w, "  %s=<dir>         Where tiles are saved locally\n", config.EnvOutputDir)
	fmt.Fprintf(w, "  %s=png|jpeg          Tile encoding (default png)\n", config.EnvFormat)
	fmt.Fprintf(w, "  %s=1-100        JPEG quality (default 90)\n", config.EnvJPEGQuality)
	fmt.Fprintf(w, "  %s=<name>         Enable the s3 destination\n", config.EnvS3Bucket)
	fmt.Fprintf(w, "  %s, %s\n", config.EnvS3Endpoint, config.EnvS3Region)
	fmt.Fprintf(w, "  %s, %s, %s\n", config.EnvS3AccessKey, config.EnvS3SecretKey, config.EnvS3Prefix)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This server communicates via MCP protocol over stdin/stdout.")
	fmt.Fprintln(w, "Configure it in your MCP client (e.g., Claude Desktop).")
}

// newS3Sink connects to the configured bucket, creating it if needed.
func newS3Sink(ctx context.Context, cfg *config.Config) (*library.S3Sink, error) {
	client, err := library.NewS3Client(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	sink := library.NewS3Sink(client, cfg.S3, cfg.Format, cfg.JPEGQuality)
	if err := sink.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return sink, nil
}

// runSplit implements the split subcommand and returns the exit status.
func runSplit(ctx context.Context, cfg *config.Config, args []string, out io.Writer) int {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(out, "usage: image-grid-mcp split <image> [dir]")
		return 2
	}
	dir := cfg.OutputDir
	if len(args) == 2 {
		dir = args[1]
	}

	img, err := imaging.NewImageCache().Load(args[0])
	if err != nil {
		fmt.Fprintf(out, "Save error: %v\n", err)
		return 1
	}
	tiles, err := imaging.Partition(img, imaging.DefaultGrid)
	if err != nil {
		fmt.Fprintf(out, "Save error: %v\n", err)
		return 1
	}

	sink := library.NewDirSink(dir, cfg.Format, cfg.JPEGQuality)
	notifier := library.LogNotifier{Logger: log.New(out, "", 0)}
	outcomes := library.SaveTiles(ctx, sink, notifier, library.NewBatchID(), imaging.DefaultGrid, tiles)

	if failed := library.Failed(outcomes); failed > 0 {
		fmt.Fprintf(out, "%d of %d tiles failed\n", failed, len(outcomes))
		return 1
	}
	fmt.Fprintf(out, "%d tiles saved to %s\n", len(outcomes), dir)
	return 0
}
