package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear learned state (destructive)",
		Long: "Clears all rules and memories and, in the full variant, all users, restarting the\n" +
			"id sequences. The system's maturity returns to zero. Asks for confirmation first.",
		Run: runReset,
	}

	cmd.Flags().Bool("rules", false, "Clear only the learned rules")
	cmd.Flags().Bool("memories", false, "Clear only the user memories")
	cmd.Flags().Bool("yes", false, "Skip the confirmation prompt")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	rulesOnly, _ := cmd.Flags().GetBool("rules")
	memoriesOnly, _ := cmd.Flags().GetBool("memories")
	yes, _ := cmd.Flags().GetBool("yes")

	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	stats, err := st.GetSystemStats()
	if err != nil {
		exitErr("stats", err)
	}

	var what string
	switch {
	case rulesOnly:
		what = fmt.Sprintf("%d reglas", stats.TotalRules)
	case memoriesOnly:
		what = fmt.Sprintf("%d memorias", stats.TotalMemories)
	default:
		what = fmt.Sprintf("%d reglas, %d memorias y %d usuarios", stats.TotalRules, stats.TotalMemories, stats.TotalUsers)
	}

	if !yes {
		fmt.Fprintf(out, "Se eliminarán %s. Esta acción no se puede deshacer.\n", what)
		fmt.Fprint(out, "Escribe SI para confirmar: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "SI" {
			fmt.Fprintln(out, "Reseteo cancelado.")
			return
		}
	}

	switch {
	case rulesOnly:
		err = st.ClearRules()
	case memoriesOnly:
		err = st.ClearMemories()
	default:
		err = st.ResetAll()
	}
	if err != nil {
		exitErr("reset", err)
	}
	fmt.Fprintf(out, "Listo: se eliminaron %s.\n", what)
}
