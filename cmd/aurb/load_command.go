package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/aurb"
	"github.com/meigma/aurb/fetch"
	"github.com/meigma/aurb/loader"
	"github.com/meigma/aurb/manifest"
	"github.com/meigma/aurb/registry"
)

type loadedAsset struct {
	ID       string  `json:"id"`
	Mode     string  `json:"mode"`
	Refs     int     `json:"refs"`
	Source   string  `json:"source"`
	Decoded  bool    `json:"decoded"`
	Duration float64 `json:"durationSeconds,omitempty"`
	Streamed bool    `json:"streamed"`
}

type loadReport struct {
	Assets []loadedAsset `json:"assets"`
	Stats  loader.Stats  `json:"stats"`
}

func newLoadCommand(ctx *commandContext) *cobra.Command {
	var metadataURL string
	var ready bool
	var jsonOutput bool
	var plainHTTP bool

	cmd := &cobra.Command{
		Use:   "load SOURCE",
		Short: "Load a bank and report what was cached",
		Long: "Load a bank manifest (JSON, JSONC or YAML) or a binary bank (.aurb\n" +
			"file, URL or oci:// reference) through the asset loader and report\n" +
			"the resulting cache entries. Use --ready to decode lazy assets too.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			l, err := ctx.newClient(plainHTTP)
			if err != nil {
				return err
			}
			defer l.Close()

			start := time.Now()
			if err := loadSource(cmd, l, src, metadataURL); err != nil {
				return err
			}
			if ready {
				for _, id := range l.IDs() {
					if err := l.EnsureReady(cmd.Context(), id); err != nil {
						return err
					}
				}
			}
			elapsed := time.Since(start)

			report := loadReport{Stats: l.Stats()}
			for _, id := range l.IDs() {
				report.Assets = append(report.Assets, describeAsset(l, id))
			}
			if jsonOutput {
				return writeJSON(cmd, report)
			}
			renderLoadReport(cmd, report, elapsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&metadataURL, "metadata", "", "Companion metadata for a binary bank")
	cmd.Flags().BoolVar(&ready, "ready", false, "Decode lazy assets after loading")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&plainHTTP, "plain-http", false, "Use plain HTTP for oci:// references")
	return cmd
}

func loadSource(cmd *cobra.Command, c *aurb.Client, src, metadataURL string) error {
	switch {
	case fetch.Scheme(src) == registry.Scheme && metadataURL == "":
		return c.LoadRef(cmd.Context(), src)
	case fetch.Scheme(src) == registry.Scheme:
		return c.LoadBankBinary(cmd.Context(), src, metadataURL)
	case strings.EqualFold(loader.Ext(src), "aurb"):
		return c.LoadBankBinary(cmd.Context(), src, metadataURL)
	default:
		return c.LoadBankURL(cmd.Context(), src)
	}
}

func describeAsset(l *aurb.Client, id string) loadedAsset {
	mode, _ := l.Mode(id)
	source, _ := l.Source(id)
	a := loadedAsset{
		ID:       id,
		Mode:     string(mode),
		Refs:     l.RefCount(id),
		Source:   source,
		Streamed: mode == manifest.ModeStream,
	}
	if buf := l.Buffer(id); buf != nil {
		a.Decoded = true
		a.Duration = buf.Duration().Seconds()
	}
	return a
}

func renderLoadReport(cmd *cobra.Command, report loadReport, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Assets))
	for _, a := range report.Assets {
		duration := "-"
		if a.Decoded {
			duration = strconv.FormatFloat(a.Duration, 'f', 2, 64) + "s"
		}
		rows = append(rows, []string{a.ID, a.Mode, strconv.Itoa(a.Refs), duration, a.Source})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Mode", "Refs", "Duration", "Source"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}
	s := report.Stats
	fmt.Fprintf(out, "%d entries, %d groups, %d catalogs; %s fetches, %s decodes in %s\n",
		s.Entries, s.Groups, s.Catalogs,
		humanize.Comma(s.Fetches), humanize.Comma(s.Decodes),
		elapsed.Round(time.Millisecond))
}
