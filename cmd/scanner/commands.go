package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/goran-ethernal/ColorScanner/internal/colordata"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	pkgconfig "github.com/goran-ethernal/ColorScanner/pkg/config"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

var kernelsCmd = &cobra.Command{
	Use:   "kernels",
	Short: "List available color kernels",
	Long:  `List all registered color kernels that can be used in scanner.kernels.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Available color kernels:")
		names := colordata.DefaultRegistry(logger.NewNopLogger()).ListRegistered()
		if len(names) == 0 {
			fmt.Println("  (no kernels registered)")
			return
		}
		for _, name := range names {
			fmt.Printf("  - %s\n", name)
		}
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the configuration JSON schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := &jsonschema.Reflector{
			FieldNameTag:               "json",
			RequiredFromJSONSchemaTags: true,
		}

		schema := reflector.Reflect(&pkgconfig.Config{})
		schema.Title = "ColorScanner configuration"

		out, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode schema: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var rewindCmd = &cobra.Command{
	Use:   "rewind <height>",
	Short: "Undo every indexed height down to <height> inclusive",
	Long: `Rewind removes the scan rows and the color state of every indexed height from the
index tip down to the given height. The next run rescans from there.`,
	Args: cobra.ExactArgs(1),
	RunE: runRewind,
}

func runRewind(cmd *cobra.Command, args []string) error {
	target, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid height %q: %w", args[0], err)
	}
	if target < 0 {
		return errors.New("height must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentScanner, cfg.Logging)

	app, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	coordinator, err := app.coordinator(log)
	if err != nil {
		return err
	}
	if err := coordinator.Open(ctx); err != nil {
		return err
	}

	if err := coordinator.UndoTo(ctx, target); err != nil {
		return fmt.Errorf("rewind failed: %w", err)
	}

	tip, err := app.store.GetLatest(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "index tip is now at height %d\n", tip.Height)
	return nil
}
