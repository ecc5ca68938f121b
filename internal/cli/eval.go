package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"autoasesor/internal/evaluation"
)

func init() {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the baseline-vs-rules comparative study",
		Long: "Answers the canonical question set twice, once with all rules suppressed and once\n" +
			"with sample rules staged, scores both passes with an LLM judge and writes a JSON report.\n" +
			"The persisted rule set is restored afterwards.",
		Run: runEval,
	}

	RootCmd.AddCommand(cmd)
}

func runEval(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	client, err := newLLMClient(cfg)
	if err != nil {
		exitErr("llm", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer st.Close()

	harness := evaluation.NewHarness(client, st, cfg.ReportDir, logger)
	report, err := harness.Run(cmd.Context())
	if err != nil {
		exitErr("eval", err)
	}

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), evaluation.RenderComparison(report))
}
