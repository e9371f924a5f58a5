package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/aurb/registry"
)

func newPushCommand(ctx *commandContext) *cobra.Command {
	var metadataPath string
	var tags []string
	var annotations []string
	var plainHTTP bool

	cmd := &cobra.Command{
		Use:   "push REF BANK",
		Short: "Publish a bank to an OCI registry",
		Long: "Publish a bank and its companion metadata to an OCI registry.\n\n" +
			"REF must carry a tag, for example oci://ghcr.io/acme/sfx:v1.\n" +
			"Metadata is read from --metadata or from BANK with a .json extension\n" +
			"when that file exists.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, bankPath := args[0], args[1]
			blob, err := os.ReadFile(bankPath) //nolint:gosec // caller-selected bank file
			if err != nil {
				return fmt.Errorf("read bank: %w", err)
			}

			required := metadataPath != ""
			if !required {
				metadataPath = trimExt(bankPath) + ".json"
			}
			meta, err := readMetadata(metadataPath, required)
			if err != nil {
				return err
			}

			parsed, err := parseAnnotations(annotations)
			if err != nil {
				return err
			}

			client, err := ctx.newClient(plainHTTP)
			if err != nil {
				return err
			}
			defer client.Close()
			desc, err := client.Push(cmd.Context(), ref, blob, meta,
				registry.WithTags(tags...),
				registry.WithAnnotations(parsed))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pushed %s\n", ref)
			fmt.Fprintf(out, "Digest: %s\n", desc.Digest)
			if meta == nil {
				fmt.Fprintln(out, "Metadata: none")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metadataPath, "metadata", "", "Companion metadata file")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Additional tags to apply")
	cmd.Flags().StringArrayVarP(&annotations, "annotation", "a", nil, "Manifest annotation as KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&plainHTTP, "plain-http", false, "Use plain HTTP instead of HTTPS")
	return cmd
}

func parseAnnotations(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid annotation %q: want KEY=VALUE", v)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}
