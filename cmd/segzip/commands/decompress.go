package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xDarkicex/segio"
)

var decompressOutput string

var decompressCmd = &cobra.Command{
	Use:   "decompress <file>",
	Short: "Decompress a gzip file",
	Long: `Decompress a gzip file.

The output defaults to <file> without its .gz suffix, or stdout when the
input has no such suffix. Use "-" for stdin or stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := decompressOutput
		if out == "" {
			out = strings.TrimSuffix(args[0], ".gz")
			if out == args[0] {
				out = "-"
			}
		}
		return decompress(args[0], out)
	},
}

var catCmd = &cobra.Command{
	Use:   "cat <file>",
	Short: "Decompress a gzip file to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return decompress(args[0], "-")
	},
}

func init() {
	decompressCmd.Flags().StringVarP(&decompressOutput, "output", "o", "", "output file")
	rootCmd.AddCommand(decompressCmd)
	rootCmd.AddCommand(catCmd)
}

func decompress(in, out string) error {
	src, err := openInput(in)
	if err != nil {
		return err
	}
	gz := segio.NewGzipSource(src)
	defer gz.Close()

	sink, err := createOutput(out)
	if err != nil {
		return err
	}
	bs := segio.NewBufferedSink(sink)

	n, err := segio.Copy(bs, gz)
	if cerr := bs.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("decompress %s: %w", in, err)
	}
	log.Debug("decompressed",
		zap.String("input", in),
		zap.String("output", out),
		zap.Int64("bytes", n),
		zap.String("name", gz.Name()))
	return nil
}
