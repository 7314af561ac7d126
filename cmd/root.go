package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/ppmse/internal/metric"
	"github.com/cwbudde/ppmse/internal/ppm"
	"github.com/spf13/cobra"
)

var (
	logLevel string
	logger   *slog.Logger
)

// errUsage marks an invocation with the wrong number of arguments; main
// turns it into the usage line instead of a generic error message.
var errUsage = errors.New("expected exactly two image paths")

var rootCmd = &cobra.Command{
	Use:   "ppmse <file1.ppm> <file2.ppm>",
	Short: "Mean squared error between two plain-text PPM images",
	Long: `ppmse reads two P3 (plain-text PPM) images, normalizes both to the
[0,1] range, and prints the pixelwise mean squared error between them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errUsage
		}
		return nil
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelWarn
		}

		// Logs go to stderr so stdout carries exactly the result line.
		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stderr, opts)
		logger = slog.New(handler)
		slog.SetDefault(logger)
	},
	RunE: runCompare,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	img1, err := ppm.Load(args[0], true)
	if err != nil {
		return err
	}

	img2, err := ppm.Load(args[1], true)
	if err != nil {
		return err
	}

	slog.Info("Comparing images",
		"file1", args[0],
		"file2", args[1],
		"width", img1.Width,
		"height", img1.Height,
	)

	mse, err := metric.MSE(img1, img2)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "MSE (0-1 range): %.6f\n", mse)
	return nil
}
