package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/deepread/internal/llm"
	"github.com/abhisek/deepread/internal/store"
	"github.com/abhisek/deepread/internal/ui/theme"
)

// degradedTo names what each purpose falls back to once its retries are
// exhausted.
var degradedTo = map[string]string{
	llm.PurposeEvaluation: "placeholder score",
	llm.PurposeQuestions:  "template questions",
	llm.PurposeConcepts:   "built-in concepts",
	llm.PurposeDepth:      "default depth",
}

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect recorded LLM calls",
	Long: `Every call to the language model (concept extraction, depth assignment,
question generation and answer evaluation) is recorded in the local store.
These commands show the calls, their payloads and how often each purpose
failed.`,
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		failed, _ := cmd.Flags().GetBool("failed")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{
			Limit:      limit,
			Purpose:    purpose,
			FailedOnly: failed,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No LLM calls recorded.")
			return nil
		}

		fmt.Printf("%5s  %-16s  %-12s  %-24s  %11s  %6s  %s\n",
			"ID", "When", "Purpose", "Model", "Tokens", "Ms", "Result")
		fmt.Println(strings.Repeat("─", 96))
		for _, e := range events {
			result := theme.Passed.Render("ok")
			if !e.Success {
				result = theme.Failed.Render("failed")
			}
			lipgloss.Printf("%5d  %-16s  %-12s  %-24s  %5d/%-5d  %6d  %s\n",
				e.ID,
				e.Timestamp.Local().Format("01-02 15:04:05"),
				e.Purpose,
				truncate(e.Model, 24),
				e.InputTokens, e.OutputTokens,
				e.LatencyMs,
				result,
			)
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the request and response of one LLM call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("no LLM call with id %d", id)
		}

		lipgloss.Println(theme.Title.Render(fmt.Sprintf("#%d %s", e.ID, e.Purpose)))
		fmt.Printf("%s via %s, %s\n", e.Model, e.Provider, e.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("%d tokens in, %d out, %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
		if !e.Success {
			lipgloss.Println(theme.Failed.Render("Failed: " + e.ErrorMessage))
			if d, ok := degradedTo[e.Purpose]; ok {
				fmt.Println(theme.Hint.Render("Without a successful retry the caller uses its " + d + "."))
			}
		}

		printBody("Request", e.RequestBody)
		printBody("Response", e.ResponseBody)
		return nil
	},
}

// printBody prints a captured payload, indenting it when it is JSON.
func printBody(title, body string) {
	fmt.Println()
	lipgloss.Println(theme.Title.Render(title))
	if body == "" {
		fmt.Println(theme.Hint.Render("(not captured)"))
		return
	}
	var buf bytes.Buffer
	if json.Indent(&buf, []byte(body), "", "  ") == nil {
		body = buf.String()
	}
	fmt.Println(body)
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show LLM usage, failure rates and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		usage, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(usage) == 0 {
			fmt.Println("No LLM calls recorded.")
			return nil
		}

		lipgloss.Println(theme.Title.Render("Calls by purpose"))
		fmt.Printf("%-12s  %6s  %10s  %-20s  %9s  %9s  %7s\n",
			"Purpose", "Calls", "Failed", "Fallback", "In", "Out", "Avg ms")
		fmt.Println(strings.Repeat("─", 86))

		var calls, failures, in, out int
		for _, u := range usage {
			failed := fmt.Sprintf("%d", u.Failures)
			if u.Failures > 0 {
				failed = fmt.Sprintf("%d (%.0f%%)", u.Failures, failureRate(u.Failures, u.Calls))
			}
			fallback, ok := degradedTo[u.Purpose]
			if !ok {
				fallback = "-"
			}
			fmt.Printf("%-12s  %6d  %10s  %-20s  %9d  %9d  %7d\n",
				u.Purpose, u.Calls, failed, fallback, u.InputTokens, u.OutputTokens, u.AvgLatencyMs)
			calls += u.Calls
			failures += u.Failures
			in += u.InputTokens
			out += u.OutputTokens
		}
		fmt.Println(strings.Repeat("─", 86))
		fmt.Printf("%-12s  %6d  %10d  %-20s  %9d  %9d\n", "all", calls, failures, "", in, out)
		if failures > 0 {
			lipgloss.Println(theme.Placeholder.Render(fmt.Sprintf(
				"%.0f%% of calls failed; see `deepread llm list --failed`.", failureRate(failures, calls))))
		}

		models, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		printCost(models)
		return nil
	},
}

func printCost(models []store.ModelUsage) {
	if len(models) == 0 {
		return
	}
	fmt.Println()
	lipgloss.Println(theme.Title.Render("Estimated cost (USD)"))

	var (
		total   float64
		unknown []string
	)
	for _, m := range models {
		price := llm.LookupCost(m.Model)
		cost := "?"
		if price == nil {
			unknown = append(unknown, m.Model)
		} else {
			c := price.Cost(m.InputTokens, m.OutputTokens)
			total += c
			cost = formatCost(c)
		}
		fmt.Printf("%-32s  %6d calls  %10s\n", truncate(m.Model, 32), m.Calls, cost)
	}

	label := "total"
	if len(unknown) > 0 {
		label = "total (partial)"
	}
	fmt.Printf("%-32s  %12s  %10s\n", label, "", formatCost(total))
	if len(unknown) > 0 {
		fmt.Println(theme.Hint.Render("No pricing for: " + strings.Join(unknown, ", ")))
	}
}

func failureRate(failures, calls int) float64 {
	if calls == 0 {
		return 0
	}
	return 100 * float64(failures) / float64(calls)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only this purpose (concepts, depth-assign, question-gen, evaluation)")
	llmListCmd.Flags().Bool("failed", false, "Only failed calls")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
