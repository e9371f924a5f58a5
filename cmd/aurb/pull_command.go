package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newPullCommand(ctx *commandContext) *cobra.Command {
	var output string
	var plainHTTP bool

	cmd := &cobra.Command{
		Use:   "pull REF",
		Short: "Download a published bank",
		Long: "Download a bank from an OCI registry. The companion metadata, when\n" +
			"published, is written next to the bank with a .json extension.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient(plainHTTP)
			if err != nil {
				return err
			}
			defer client.Close()
			b, err := client.Pull(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if output == "" {
				name := b.Manifest.BankID()
				if name == "" {
					name = "bank"
				}
				output = name + ".aurb"
			}
			if err := os.WriteFile(output, b.Blob, 0o644); err != nil { //nolint:gosec // banks are not secret
				return fmt.Errorf("write %s: %w", output, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pulled %s (%s) to %s\n", b.Manifest.Digest(), humanize.IBytes(uint64(len(b.Blob))), output)
			if b.Metadata == nil {
				return nil
			}
			metaPath := trimExt(output) + ".json"
			if err := writeMetadata(metaPath, b.Metadata); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote metadata to %s\n", metaPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Bank file to write (default: <bank id>.aurb)")
	cmd.Flags().BoolVar(&plainHTTP, "plain-http", false, "Use plain HTTP instead of HTTPS")
	return cmd
}
