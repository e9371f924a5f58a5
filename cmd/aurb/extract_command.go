package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/aurb/bank"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var plainHTTP bool

	cmd := &cobra.Command{
		Use:   "extract BANK [ID...]",
		Short: "Write bank assets to files",
		Long: "Write the assets of a bank to files in a directory, decompressing\n" +
			"zstd chunks. With no ids every asset is extracted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readBankArg(cmd, ctx, args[0], plainHTTP)
			if err != nil {
				return err
			}
			cat, err := bank.Parse(data)
			if err != nil {
				return err
			}

			ids := args[1:]
			if len(ids) == 0 {
				for e := range cat.Entries() {
					ids = append(ids, e.Name)
				}
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}

			logger := ctx.logger()
			out := cmd.OutOrStdout()
			seen := make([]string, 0, len(ids))
			for _, id := range ids {
				if slices.Contains(seen, id) {
					continue
				}
				seen = append(seen, id)

				e, ok := cat.Lookup(id)
				if !ok {
					return fmt.Errorf("%w: %q", bank.ErrNotFound, id)
				}
				content, err := cat.Read(id)
				if err != nil {
					return err
				}
				name := extractName(e, content)
				if !filepath.IsLocal(name) {
					return fmt.Errorf("asset %q does not map to a file inside %s", id, dir)
				}
				target := filepath.Join(dir, name)
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(target, content, 0o644); err != nil { //nolint:gosec // extracted audio is not secret
					return fmt.Errorf("write %s: %w", target, err)
				}
				logger.Debug("asset extracted", "id", id, "path", target, "bytes", len(content))
				fmt.Fprintf(out, "%s -> %s (%s)\n", id, target, humanize.IBytes(uint64(len(content))))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Output directory")
	cmd.Flags().BoolVar(&plainHTTP, "plain-http", false, "Use plain HTTP for oci:// references")
	return cmd
}

// extractName returns the file name for an asset. Ids that already carry an
// extension keep it; others get one from the codec tag or the content.
func extractName(e bank.Entry, content []byte) string {
	if filepath.Ext(e.Name) != "" {
		return filepath.FromSlash(e.Name)
	}
	format := bank.FormatForCodec(e.Codec)
	if format == "" {
		format = bank.SniffFormat(content)
	}
	if format == "" {
		format = "bin"
	}
	return filepath.FromSlash(e.Name) + "." + format
}
