package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KaramelBytes/segmenta/internal/cluster"
	cfgpkg "github.com/KaramelBytes/segmenta/internal/config"
	"github.com/KaramelBytes/segmenta/internal/export"
	"github.com/KaramelBytes/segmenta/internal/persist"
	"github.com/KaramelBytes/segmenta/internal/pipeline"
	"github.com/KaramelBytes/segmenta/internal/session"
	"github.com/KaramelBytes/segmenta/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runColumns   []string
	runK         int
	runAutoK     bool
	runKMin      int
	runKMax      int
	runSheet     string
	runFormat    string
	runOutput    string
	runPlot      string
	runPersist   string
	runIDColumn  string
	runDecimal   string
	runThousands string
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Cluster a CSV/TSV/XLSX file and print the segment summary",
	Long: `Run loads the file, standardizes the selected columns (all columns by default),
fits k-means and prints the ranked segment summary. Optionally writes the cluster
statistics (--output), a PCA scatter plot (--plot) and the row assignments to Redis
(--persist).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		opts := pipelineOptions(c)
		if opts.Number, err = numberOptions(runDecimal, runThousands); err != nil {
			return err
		}
		format := exportFormat(runFormat, runOutput)
		switch format {
		case export.FormatJSON, export.FormatCSV, export.FormatYAML:
		default:
			return fmt.Errorf("unsupported --format: %s (use json|csv|yaml)", format)
		}
		if runPersist != "" && !persist.ValidKey(runPersist) {
			return fmt.Errorf("invalid --persist key %q", runPersist)
		}

		path := args[0]
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		pipe := pipeline.New(opts, logger)
		var st session.State
		if _, err := pipe.Load(&st, path, content, runSheet); err != nil {
			return err
		}
		if _, err := pipe.Preprocess(&st, runColumns); err != nil {
			return err
		}
		req := pipeline.KRequest{AutoK: runAutoK, KMin: runKMin, KMax: runKMax}
		if cmd.Flags().Changed("k") {
			k := runK
			req.K = &k
		}
		res, err := pipe.KMeans(&st, req)
		if err != nil {
			return err
		}
		sum, err := pipe.Conclude(&st)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.KInfo.Method == cluster.MethodAuto {
			fmt.Fprintf(out, "Selected K=%d by silhouette over %d candidates\n\n", res.KInfo.K, len(res.KInfo.Scores))
		}
		fmt.Fprint(out, sum.Text)

		if runOutput != "" {
			rep, err := pipe.Export(&st)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := export.Write(&buf, format, rep); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(runOutput, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %s statistics to %s\n", format, runOutput)
		}
		if runPlot != "" {
			var buf bytes.Buffer
			if err := export.WriteScatter(&buf, res.Clustering); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(runPlot, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote scatter plot to %s\n", runPlot)
		}
		if runPersist != "" {
			n, err := persistAssignments(cmd.Context(), c, pipe, &st, runPersist, runIDColumn)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Persisted %d assignments under %s\n", n, runPersist)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVarP(&runColumns, "columns", "c", nil, "comma-separated columns to cluster on (default: all)")
	runCmd.Flags().IntVarP(&runK, "k", "k", 0, "number of clusters (default from config)")
	runCmd.Flags().BoolVar(&runAutoK, "auto-k", false, "choose K by silhouette score over [k-min, k-max]")
	runCmd.Flags().IntVar(&runKMin, "k-min", 0, "lower bound for --auto-k (default from config)")
	runCmd.Flags().IntVar(&runKMax, "k-max", 0, "upper bound for --auto-k (default from config)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "XLSX: sheet name (default is the first sheet)")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "statistics format for --output: json|csv|yaml (default from extension)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "optional path to write cluster statistics")
	runCmd.Flags().StringVar(&runPlot, "plot", "", "optional path to write a PNG scatter of the PCA projection")
	runCmd.Flags().StringVar(&runPersist, "persist", "", "Redis key to store row assignments under (requires redis_addr)")
	runCmd.Flags().StringVar(&runIDColumn, "id-column", "", "column identifying rows in persisted assignments (default: row index)")
	runCmd.Flags().StringVar(&runDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	runCmd.Flags().StringVar(&runThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}

// exportFormat picks the explicit format, else the output extension, else JSON.
func exportFormat(flag, output string) string {
	if flag != "" {
		return strings.ToLower(flag)
	}
	switch strings.ToLower(filepath.Ext(output)) {
	case ".csv":
		return export.FormatCSV
	case ".yaml", ".yml":
		return export.FormatYAML
	}
	return export.FormatJSON
}

func persistAssignments(ctx context.Context, c *cfgpkg.Global, pipe *pipeline.Pipeline, st *session.State, key, idColumn string) (int, error) {
	if c.RedisAddr == "" {
		return 0, fmt.Errorf("--persist requires redis_addr to be configured")
	}
	pairs, err := pipe.Assignments(st, idColumn)
	if err != nil {
		return 0, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := persist.Dial(ctx, c.RedisAddr, c.RedisDB, time.Duration(c.RedisKeyTTLSec)*time.Second)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.Save(ctx, key, pairs)
}
