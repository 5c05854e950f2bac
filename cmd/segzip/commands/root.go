package commands

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xDarkicex/segio"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration

	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "segzip",
	Short: "Compress and decompress gzip files",
	Long: `segzip - gzip compression over segmented buffers.

Output is byte-compatible with gzip(1). Headers carry no timestamp or
OS byte, so equal input always produces equal output.

Examples:
  segzip compress access.log
  segzip compress --level 9 -o archive.gz data.bin
  segzip decompress archive.gz -o data.bin
  segzip cat access.log.gz`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verbose {
			log, err = zap.NewDevelopment()
		} else {
			log, err = zap.NewProduction()
		}
		if err != nil {
			return err
		}
		segio.SetLogger(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "per-call I/O timeout (0 disables)")
}

// openInput returns a source for path, or stdin for "-".
func openInput(path string) (*segio.ReaderSource, error) {
	var src *segio.ReaderSource
	if path == "-" {
		src = segio.NewReaderSource(os.Stdin)
	} else {
		var err error
		if src, err = segio.OpenSource(path); err != nil {
			return nil, err
		}
	}
	src.Timeout().SetTimeout(timeout)
	return src, nil
}

// createOutput returns a sink for path, or stdout for "-".
func createOutput(path string) (*segio.WriterSink, error) {
	var sink *segio.WriterSink
	if path == "-" {
		sink = segio.NewWriterSink(nopCloser{os.Stdout})
	} else {
		var err error
		if sink, err = segio.CreateSink(path); err != nil {
			return nil, err
		}
	}
	sink.Timeout().SetTimeout(timeout)
	return sink, nil
}

// nopCloser keeps stdout open when its sink is closed.
type nopCloser struct {
	*os.File
}

func (nopCloser) Close() error { return nil }
