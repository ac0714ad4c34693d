package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neilberkman/qbench/internal/core/report"
	"github.com/neilberkman/qbench/pkg/buildbench"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <id|url>",
	Short: "Export a build to markdown, JSON or YAML",
	Long: `Export a build with its code, options, results and compiler output.

The build is read from the local history, or fetched from the service when
the history does not have it. By default exports to the current directory
as build-<id>.<ext>. Use --output - to write to stdout.

Examples:
  qbench export 5e1f3c2a
  qbench export 5e1f3c2a --format yaml --output bench.yaml
  qbench export 5e1f3c2a -f json -o -`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: build-<id>.<ext> in current directory)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "Output format: markdown, json or yaml")
}

func runExport(cmd *cobra.Command, args []string) error {
	ext, ok := map[string]string{"markdown": "md", "md": "md", "json": "json", "yaml": "yaml", "yml": "yaml"}[exportFormat]
	if !ok {
		return fmt.Errorf("unknown format %q (want markdown, json or yaml)", exportFormat)
	}

	s, err := loadStored(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	pageURL := ""
	if s.Identity() != "" {
		pageURL = buildbench.PageURL(cfg.ServiceURL, s.Identity())
	}
	r := report.FromSession(s, pageURL, report.Full)

	var data []byte
	switch ext {
	case "md":
		md, err := r.Markdown()
		if err != nil {
			return err
		}
		data = []byte(md)
	case "json":
		data, err = json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		data = append(data, '\n')
	case "yaml":
		data, err = r.YAML()
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
	}

	if exportOutput == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	outputPath := exportOutput
	if outputPath == "" {
		shortID := s.Identity()
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		outputPath = filepath.Join(cwd, fmt.Sprintf("build-%s.%s", shortID, ext))
	} else if !filepath.IsAbs(outputPath) {
		outputPath = filepath.Join(cwd, outputPath)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("Exported build to: %s\n", outputPath)
	return nil
}
