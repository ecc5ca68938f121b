// Package cli implements the assistant's operator commands.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"autoasesor/internal/config"
	"autoasesor/internal/llm"
	"autoasesor/internal/store"
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "autoasesor",
	Short: "Asistente auto-mejorable para la compra de autos seminuevos",
	Long: "Asistente conversacional de Kavak que aprende de la retroalimentación de los usuarios:\n" +
		"acumula memoria por usuario y reglas globales validadas, y puede medir su propia mejora.",
}

var logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "autoasesor"})

func loadConfig() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.Open(cfg.DBPath)
}

// newLLMClient validates credentials and builds the configured provider.
// A missing credential is fatal at startup, never mid-conversation.
func newLLMClient(cfg *config.Config) (llm.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
