package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/deepread/internal/depth"
	"github.com/abhisek/deepread/internal/practice"
	"github.com/abhisek/deepread/internal/ui/theme"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Practice a concept in the terminal",
	Long: `Climb the depth levels of one concept by answering question batches.

Every answer is scored against the rubric of its level. A level is passed
when all of its answers pass; otherwise the batch is retried with the
previous answers kept for editing. Responses are saved only when --user,
--book-id and --insight-id are given.`,
	RunE: runPractice,
}

func init() {
	practiceCmd.Flags().String("concept", "", "Concept to practice (required)")
	practiceCmd.Flags().Int("target", int(depth.DefaultTarget), "Depth target, 1-6")
	practiceCmd.Flags().String("book", "", "Book title, used as question context")
	practiceCmd.Flags().String("insight", "", "Insight text shown to the evaluator")
	practiceCmd.Flags().String("user", "", "User id to save responses under")
	practiceCmd.Flags().String("book-id", "", "Book id to save responses under")
	practiceCmd.Flags().String("insight-id", "", "Insight id to save responses under")
	_ = practiceCmd.MarkFlagRequired("concept")
}

func runPractice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	concept, _ := flags.GetString("concept")
	target, _ := flags.GetInt("target")
	book, _ := flags.GetString("book")
	insight, _ := flags.GetString("insight")
	user, _ := flags.GetString("user")
	bookID, _ := flags.GetString("book-id")
	insightID, _ := flags.GetString("insight-id")

	svc, err := buildServices(ctx, cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	deps := practice.Deps{
		Generator: svc.questions,
		Evaluator: svc.evaluator,
		Logger:    logger,
	}
	if user != "" {
		if deps.Persister, err = svc.persister(ctx); err != nil {
			return err
		}
	}

	s, err := practice.New(practice.Config{
		Concept:     concept,
		DepthTarget: target,
		BookTitle:   book,
		Insight:     insight,
		Keys:        practice.Keys{UserID: user, BookID: bookID, InsightID: insightID},
	}, deps)
	if err != nil {
		return err
	}

	fmt.Println(theme.Title.Render(concept))
	if book != "" {
		fmt.Println(theme.Hint.Render("from " + book))
	}
	fmt.Printf("Target: %s\n\n", depth.DisplayName(target))

	runErr := practiceLoop(ctx, s, bufio.NewScanner(os.Stdin))

	if err := s.Close(ctx); err != nil {
		lipgloss.Println(theme.Placeholder.Render("Warning: " + err.Error()))
	}
	if deps.Persister == nil && s.Log().Len() > 0 {
		fmt.Println(theme.Hint.Render(fmt.Sprintf("%d responses not saved (no --user).", s.Log().Len())))
	}
	return runErr
}

var errInputClosed = errors.New("input closed")

func practiceLoop(ctx context.Context, s *practice.Session, in *bufio.Scanner) error {
	if err := s.Load(ctx); err != nil {
		return err
	}
	for {
		snap := s.Snapshot()
		switch snap.Phase {
		case practice.AwaitingAnswers, practice.Retrying:
			if err := askBatch(s, snap, in); err != nil {
				if errors.Is(err, errInputClosed) {
					fmt.Println("\n(input closed)")
					return nil
				}
				return err
			}
			fmt.Println(theme.Hint.Render("Evaluating..."))
			err := s.Submit(ctx)
			var incomplete *practice.IncompleteAnswersError
			if errors.As(err, &incomplete) {
				lipgloss.Println(theme.Failed.Render(incomplete.Error()))
				continue
			}
			if err != nil {
				return err
			}

		case practice.ShowingResults:
			printOutcome(s.Outcome())
			progress, err := s.Continue(ctx)
			if err != nil {
				return err
			}
			if progress.FlushErr != nil {
				lipgloss.Println(theme.Placeholder.Render("Warning: " + progress.FlushErr.Error()))
			}
			switch progress.Phase {
			case practice.Retrying:
				fmt.Println(theme.Hint.Render("Not every answer passed. Try the level again."))
			case practice.AwaitingAnswers:
				lipgloss.Println(theme.Passed.Render(fmt.Sprintf("Level passed! On to %s.", depth.DisplayName(progress.Level))))
			}
			fmt.Println()

		case practice.Completed:
			lipgloss.Println(theme.Passed.Render(fmt.Sprintf("Depth target reached: %s.", depth.DisplayName(snap.DepthTarget))))
			return nil

		default:
			return fmt.Errorf("unexpected phase %s", snap.Phase)
		}
	}
}

// askBatch reads an answer for each question. On a retry an empty line
// keeps the previous answer.
func askBatch(s *practice.Session, snap practice.Snapshot, in *bufio.Scanner) error {
	badge := theme.LevelBadge(snap.Level, depth.DisplayName(snap.Level))
	if snap.Attempt > 1 {
		badge += theme.Hint.Render(fmt.Sprintf("  attempt %d", snap.Attempt))
	}
	lipgloss.Println(badge)
	fmt.Println(theme.Hint.Render(depth.Description(snap.Level)))
	fmt.Println()

	for i, q := range snap.Questions {
		lipgloss.Println(theme.Card.Render(fmt.Sprintf("%d. %s", i+1, q)))
		prev := snap.Answers[i]
		if prev != "" {
			fmt.Println(theme.Hint.Render("Previous: " + prev + "  (Enter to keep)"))
		}
		fmt.Print("> ")
		if !in.Scan() {
			return errInputClosed
		}
		answer := strings.TrimSpace(in.Text())
		if answer == "" {
			answer = prev
		}
		if err := s.SetAnswer(i, answer); err != nil {
			return err
		}
	}
	return nil
}

func printOutcome(outcome []practice.AnswerOutcome) {
	for _, o := range outcome {
		verdict := theme.Failed.Render("✗ " + o.Label)
		if o.Passed {
			verdict = theme.Passed.Render("✓ " + o.Label)
		}
		if o.Placeholder {
			verdict = theme.Placeholder.Render("? could not be scored")
		}
		lipgloss.Printf("%d. %s  %s %.1f/5\n", o.Index+1, verdict, theme.ScoreBar(o.Result.SimplifiedScore), o.Result.SimplifiedScore)
		if o.Result.Explanation != "" {
			fmt.Println("   " + theme.Body.Render(o.Result.Explanation))
		}
	}
}
