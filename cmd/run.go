package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
)

var (
	runFile string
	runKind string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single unit from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		data, err := os.ReadFile(runFile)
		if err != nil {
			return eris.Wrapf(err, "read unit file %s", runFile)
		}
		var unit model.ProcessingUnit
		if err := json.Unmarshal(data, &unit); err != nil {
			return eris.Wrap(err, "parse unit file")
		}
		if unit.Kind == "" {
			unit.Kind = model.UnitKind(runKind)
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.Store.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		ref, res, err := e.Coordinator.Process(ctx, unit)
		if err != nil {
			return err
		}

		zap.L().Info("unit processed",
			zap.String("record_ref", ref),
			zap.Int("facts", len(res.Facts)),
			zap.Int("entities", len(res.Entities)),
			zap.Int("quotes", len(res.Quotes)),
			zap.Float64("importance", res.Importance),
		)

		out, err := json.MarshalIndent(map[string]any{
			"record_ref": ref,
			"result":     res,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "path to a JSON file holding the processing unit (required)")
	runCmd.Flags().StringVar(&runKind, "kind", "article", "unit kind when the file omits it: article or fragment")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}
