package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoasesor/internal/metrics"
	"autoasesor/internal/storage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show learning statistics and system maturity",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	stats, err := st.GetSystemStats()
	if err != nil {
		exitErr("stats", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Reglas aprendidas:    %d\n", stats.TotalRules)
	fmt.Fprintf(out, "Usuarios registrados: %d\n", stats.TotalUsers)
	fmt.Fprintf(out, "Memorias acumuladas:  %d\n", stats.TotalMemories)
	if len(stats.ErrorDistribution) > 0 {
		fmt.Fprintln(out, "\nDistribución de errores:")
		for category, count := range stats.ErrorDistribution {
			fmt.Fprintf(out, "  %s: %d\n", category, count)
		}
	}
	if stats.AvgValidationScore > 0 {
		fmt.Fprintf(out, "\nScore promedio de validación: %.2f/1.0\n", stats.AvgValidationScore)
	}
	fmt.Fprintf(out, "\nNivel de madurez: %d/100\n", metrics.Maturity(stats))

	if cfg.LogFilePath != "" {
		if rec, err := storage.NewFileRecorder(cfg.LogFilePath); err == nil {
			if events, err := rec.LoadInteractions(); err == nil {
				fmt.Fprintf(out, "Interacciones registradas: %d\n", len(events))
			}
		}
	}
}
