package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/aurb/bank"
	"github.com/meigma/aurb/registry"
)

type inspectEntry struct {
	ID         string `json:"id"`
	Hash       string `json:"hash"`
	Codec      string `json:"codec"`
	Offset     uint64 `json:"offset"`
	Length     uint64 `json:"length"`
	Compressed bool   `json:"compressed"`
}

type inspectReport struct {
	Version     string         `json:"version"`
	Flags       uint16         `json:"flags"`
	EntryCount  uint32         `json:"entryCount"`
	IndexOffset uint32         `json:"indexOffset"`
	IndexLength uint32         `json:"indexLength"`
	FileSize    uint64         `json:"fileSize"`
	Entries     []inspectEntry `json:"entries"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var plainHTTP bool

	cmd := &cobra.Command{
		Use:   "inspect BANK",
		Short: "Show the header and index of a bank",
		Long:  "Show the header and index of a bank file or an oci:// reference.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readBankArg(cmd, ctx, args[0], plainHTTP)
			if err != nil {
				return err
			}
			cat, err := bank.Parse(data)
			if err != nil {
				return err
			}
			report := newInspectReport(cat)
			if jsonOutput {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Version:  %s\n", report.Version)
			fmt.Fprintf(out, "Entries:  %d\n", report.EntryCount)
			fmt.Fprintf(out, "Index:    %d+%d\n", report.IndexOffset, report.IndexLength)
			fmt.Fprintf(out, "Size:     %s\n", humanize.IBytes(report.FileSize))
			if len(report.Entries) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(report.Entries))
			for _, e := range report.Entries {
				rows = append(rows, []string{
					e.ID,
					e.Codec,
					strconv.FormatUint(e.Offset, 10),
					humanize.IBytes(e.Length),
					yesNo(e.Compressed),
					e.Hash,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Codec", "Offset", "Size", "Zstd", "Hash"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&plainHTTP, "plain-http", false, "Use plain HTTP for oci:// references")
	return cmd
}

func newInspectReport(cat *bank.Catalog) inspectReport {
	h := cat.Header()
	report := inspectReport{
		Version:     h.VersionString(),
		Flags:       h.Flags,
		EntryCount:  h.EntryCount,
		IndexOffset: h.IndexOffset,
		IndexLength: h.IndexLength,
		FileSize:    h.FileSize,
		Entries:     make([]inspectEntry, 0, cat.Len()),
	}
	for e := range cat.Entries() {
		report.Entries = append(report.Entries, inspectEntry{
			ID:         e.Name,
			Hash:       fmt.Sprintf("%08x", e.Hash),
			Codec:      e.Codec.String(),
			Offset:     e.Offset,
			Length:     e.Length,
			Compressed: e.Compressed(),
		})
	}
	return report
}

// readBankArg reads a bank from a local path or an oci:// reference.
func readBankArg(cmd *cobra.Command, ctx *commandContext, arg string, plainHTTP bool) ([]byte, error) {
	if !strings.HasPrefix(arg, registry.Scheme+"://") {
		data, err := os.ReadFile(arg) //nolint:gosec // caller-selected bank file
		if err != nil {
			return nil, fmt.Errorf("read bank: %w", err)
		}
		return data, nil
	}
	client, err := ctx.newClient(plainHTTP)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Registry().PullBlob(cmd.Context(), arg)
}
