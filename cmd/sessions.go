package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/deepread/internal/pgstore"
	"github.com/abhisek/deepread/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect saved practice responses",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List practice responses for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		insight, _ := cmd.Flags().GetString("insight")
		limit, _ := cmd.Flags().GetInt("limit")
		remote, _ := cmd.Flags().GetBool("remote")
		ctx := cmd.Context()

		if err := store.ValidateID("user", user); err != nil {
			return err
		}

		var records []store.PracticeRecord
		if remote {
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("--remote needs postgres.dsn or DATABASE_URL")
			}
			pg, err := pgstore.Open(ctx, cfg.Postgres.DSN)
			if err != nil {
				return err
			}
			defer pg.Close()
			if records, err = pg.ListPractice(ctx, user, insight, limit); err != nil {
				return err
			}
		} else {
			s, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			records, err = s.PracticeRepo().List(ctx, store.PracticeFilter{UserID: user, InsightID: insight, Limit: limit})
			if err != nil {
				return fmt.Errorf("query practice records: %w", err)
			}
		}

		if len(records) == 0 {
			fmt.Println("No practice responses found.")
			return nil
		}

		fmt.Printf("%-19s  %-5s  %-6s  %-8s  %s\n", "Submitted", "Level", "Score", "Next", "Question / Answer")
		fmt.Println(strings.Repeat("─", 100))
		for _, r := range records {
			level := "-"
			if r.Level > 0 {
				level = fmt.Sprintf("%d", r.Level)
			}
			text := r.ResponseText
			if r.Question != "" {
				text = r.Question + " / " + text
			}
			fmt.Printf("%-19s  %-5s  %-6.2f  %-8s  %s\n",
				r.SubmittedAt.Local().Format("2006-01-02 15:04:05"),
				level,
				r.EvalScore*5,
				r.DifficultyNext,
				truncate(strings.ReplaceAll(text, "\n", " "), 52),
			)
		}
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().String("user", "", "User id (required)")
	sessionsListCmd.Flags().String("insight", "", "Only responses for this insight id")
	sessionsListCmd.Flags().IntP("limit", "n", 20, "Number of responses to show")
	sessionsListCmd.Flags().Bool("remote", false, "Read from the Supabase database instead of the local copy (needs --insight)")
	_ = sessionsListCmd.MarkFlagRequired("user")

	sessionsCmd.AddCommand(sessionsListCmd)
}
