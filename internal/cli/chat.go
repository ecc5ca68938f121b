package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"autoasesor/internal/agent"
	"autoasesor/internal/chat"
	"autoasesor/internal/llm"
	"autoasesor/internal/metrics"
	"autoasesor/internal/storage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a console conversation",
		Run:   runChat,
	}

	cmd.Flags().StringP("user", "u", "", "User id (required)")
	cmd.Flags().StringP("name", "n", "", "Display name for first-time users")
	cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	userID, _ := cmd.Flags().GetString("user")
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = userID
	}

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

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			logger.Warn("no se pudo iniciar el registro de interacciones", "error", err)
		} else {
			rec = fr
		}
	}

	session, err := chat.NewSession(userID, name, st, client, rec, logger)
	if err != nil {
		exitErr("start session", err)
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Sesión iniciada para %s.\n", userID)
	fmt.Fprintln(out, "Escribe tu pregunta, '+' o '-' para calificar la última respuesta, 'salir' para terminar.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "\ntú> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "salir":
			if err := session.Close(ctx); err != nil {
				fmt.Fprintf(out, "[no se pudo guardar la memoria de la sesión: %s]\n", llm.Describe(err))
			}
			stats, err := st.GetSystemStats()
			if err != nil {
				logger.Warn("no se pudieron leer las estadísticas", "error", err)
			} else {
				fmt.Fprintln(out)
				fmt.Fprint(out, metrics.RenderReport(session.Metrics(), stats))
			}
			fmt.Fprintln(out, "\n¡Gracias por usar el asistente de Kavak! Hasta pronto.")
			return

		case "+":
			summary, err := session.PositiveFeedback(ctx)
			if err != nil {
				fmt.Fprintf(out, "[no se pudo guardar la memoria: %s]\n", feedbackNotice(err))
				continue
			}
			fmt.Fprintln(out, "[memoria guardada, se recordará en futuras conversaciones]")
			fmt.Fprintf(out, "[resumen: %s]\n", summary)

		case "-":
			outcome, err := session.NegativeFeedback(ctx)
			if err != nil {
				fmt.Fprintf(out, "[no se pudo aprender de este error: %s]\n", feedbackNotice(err))
				continue
			}
			reportOutcome(out, outcome)

		default:
			answer, err := session.Ask(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "[%s]\n", llm.Describe(err))
				continue
			}
			fmt.Fprintf(out, "\nasistente> %s\n", answer)
		}
	}
}

func reportOutcome(out io.Writer, outcome chat.FeedbackOutcome) {
	category := outcome.Result.Classification.Category
	switch {
	case outcome.Persisted:
		fmt.Fprintf(out, "[regla validada (score %.1f) y guardada, categoría: %s]\n", outcome.Result.Score, category)
	case outcome.Duplicate:
		fmt.Fprintf(out, "[la regla ya existía, categoría: %s]\n", category)
	default:
		fmt.Fprintf(out, "[regla descartada (score %.1f), no mejora las respuestas]\n", outcome.Result.Score)
	}
}

func feedbackNotice(err error) string {
	if errors.Is(err, chat.ErrEmptyConversation) || errors.Is(err, agent.ErrNoExchange) {
		return "aún no hay una respuesta que calificar"
	}
	return llm.Describe(err)
}
