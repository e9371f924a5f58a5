package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/aurb/bank"
)

func newPackCommand(ctx *commandContext) *cobra.Command {
	var output string
	var bankID string
	var compression string
	var metadataPath string
	var noMetadata bool

	cmd := &cobra.Command{
		Use:   "pack -o BANK [ID=]FILE...",
		Short: "Pack audio files into a bank",
		Long: "Pack audio files into an AURB bank in argument order.\n\n" +
			"Each asset id defaults to the file name without its extension;\n" +
			"use ID=FILE to choose one. Companion metadata is written next to\n" +
			"the bank unless --no-metadata is given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if output == "" {
				return errors.New("--output is required")
			}
			if compression == "" {
				compression = cfg.Encoder.Compression
			}
			comp, err := bank.ParseCompression(compression)
			if err != nil {
				return err
			}
			if bankID == "" {
				bankID = trimExt(filepath.Base(output))
			}

			assets, err := readAssets(args)
			if err != nil {
				return err
			}

			meta, size, err := writeBank(cmd, output, assets,
				bank.WithBankID(bankID),
				bank.WithCompression(comp),
				bank.WithLogger(ctx.logger()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Packed %d assets into %s (%s)\n", len(assets), output, humanize.IBytes(uint64(size))) //nolint:gosec // size is a file length
			if noMetadata {
				return nil
			}
			if metadataPath == "" {
				metadataPath = trimExt(output) + ".json"
			}
			if err := writeMetadata(metadataPath, meta); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote metadata to %s (%s)\n", metadataPath, meta.Digest)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Bank file to write")
	cmd.Flags().StringVar(&bankID, "bank-id", "", "Bank id recorded in the metadata (default: output name)")
	cmd.Flags().StringVar(&compression, "compression", "", "Chunk compression: none or zstd (default from config)")
	cmd.Flags().StringVar(&metadataPath, "metadata", "", "Metadata file to write (default: output with .json)")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "Skip writing companion metadata")
	return cmd
}

// readAssets reads [ID=]FILE arguments in order.
func readAssets(args []string) ([]bank.Asset, error) {
	assets := make([]bank.Asset, 0, len(args))
	for _, arg := range args {
		id, path, ok := strings.Cut(arg, "=")
		if !ok {
			path = arg
			id = trimExt(filepath.Base(path))
		}
		if id == "" {
			return nil, fmt.Errorf("empty asset id in %q", arg)
		}
		data, err := os.ReadFile(path) //nolint:gosec // packing caller-selected files is the purpose
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		assets = append(assets, bank.Asset{ID: id, Path: path, Data: data})
	}
	return assets, nil
}

func writeBank(cmd *cobra.Command, path string, assets []bank.Asset, opts ...bank.Option) (meta *bank.Metadata, size int64, err error) {
	f, err := os.Create(path) //nolint:gosec // output path chosen by the caller
	if err != nil {
		return nil, 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	w := bufio.NewWriter(f)
	meta, err = bank.EncodeTo(cmd.Context(), w, assets, opts...)
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, 0, fmt.Errorf("write %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	return meta, info.Size(), nil
}

func writeMetadata(path string, meta *bank.Metadata) error {
	f, err := os.Create(path) //nolint:gosec // output path chosen by the caller
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := meta.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// readMetadata loads companion metadata. A missing file at an implied path
// is not an error.
func readMetadata(path string, required bool) (*bank.Metadata, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-selected metadata file
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return bank.ParseMetadata(data)
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
