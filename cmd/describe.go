package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/segmenta/internal/dataset"
	"github.com/KaramelBytes/segmenta/internal/pipeline"
	"github.com/KaramelBytes/segmenta/internal/session"
	"github.com/KaramelBytes/segmenta/internal/utils"
	"github.com/spf13/cobra"
)

var (
	descOutputPath string
	descSheet      string
	descJSON       bool
	descDecimal    string
	descThousands  string
)

var describeCmd = &cobra.Command{
	Use:   "describe <files...>",
	Short: "Summarize the columns of one or more CSV/TSV/XLSX files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		c, err := currentConfig()
		if err != nil {
			return err
		}
		opts := pipelineOptions(c)
		if opts.Number, err = numberOptions(descDecimal, descThousands); err != nil {
			return err
		}
		pipe := pipeline.New(opts, logger)

		var out strings.Builder
		for i, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return fmt.Errorf("read file: %w", err)
			}
			var st session.State
			res, err := pipe.Load(&st, f, content, descSheet)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			if descJSON {
				b, err := utils.PrettyJSON(res)
				if err != nil {
					return err
				}
				out.Write(b)
				out.WriteByte('\n')
				continue
			}
			if i > 0 {
				out.WriteString("\n")
			}
			name := filepath.Base(f)
			if res.Sheet != "" {
				name += " [" + res.Sheet + "]"
			}
			out.WriteString(res.Description.Markdown(name))
		}

		if descOutputPath != "" {
			if err := utils.SafeWriteFile(descOutputPath, []byte(out.String())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", descOutputPath)
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), out.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVarP(&descOutputPath, "output", "o", "", "optional path to write the summary")
	describeCmd.Flags().StringVar(&descSheet, "sheet", "", "XLSX: sheet name (default is the first sheet)")
	describeCmd.Flags().BoolVar(&descJSON, "json", false, "print the description as JSON")
	describeCmd.Flags().StringVar(&descDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	describeCmd.Flags().StringVar(&descThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// numberOptions parses the --decimal / --thousands flag values.
func numberOptions(decimal, thousands string) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	switch strings.ToLower(strings.TrimSpace(decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", decimal)
	}
	switch strings.ToLower(strings.TrimSpace(thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", thousands)
	}
	return opt, nil
}
