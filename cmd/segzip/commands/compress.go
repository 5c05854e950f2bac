package commands

import (
	"fmt"

	"github.com/klauspost/compress/flate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xDarkicex/segio"
)

var (
	compressLevel  int
	compressOutput string
)

var compressCmd = &cobra.Command{
	Use:   "compress <file>",
	Short: "Compress a file into the gzip format",
	Long: `Compress a file into the gzip format.

The output defaults to <file>.gz. Use "-" for stdin or stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().IntVarP(&compressLevel, "level", "l", flate.DefaultCompression,
		"deflate level: -2 (huffman only), -1 (default), 0 (store) to 9 (best)")
	compressCmd.Flags().StringVarP(&compressOutput, "output", "o", "", "output file")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := compressOutput
	if out == "" {
		if in == "-" {
			out = "-"
		} else {
			out = in + ".gz"
		}
	}

	src, err := openInput(in)
	if err != nil {
		return err
	}
	defer src.Close()

	sink, err := createOutput(out)
	if err != nil {
		return err
	}
	gz, err := segio.NewGzipSink(sink, segio.WithLevel(compressLevel))
	if err != nil {
		_ = sink.Close()
		return err
	}

	n, err := segio.Copy(gz, src)
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("compress %s: %w", in, err)
	}
	log.Debug("compressed",
		zap.String("input", in),
		zap.String("output", out),
		zap.Int64("bytes", n),
		zap.Uint32("crc32", gz.CRC32()))
	return nil
}
