package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/deepread/internal/depth"
)

var conceptsCmd = &cobra.Command{
	Use:   "concepts <book title>",
	Short: "Extract the key concepts of a book",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		assign, _ := cmd.Flags().GetBool("assign")
		title := strings.Join(args, " ")
		ctx := cmd.Context()

		svc, err := buildServices(ctx, cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ex, err := svc.concepts.Extract(ctx, title)
		if err != nil {
			return err
		}
		fmt.Printf("%s  (%d concepts, source: %s)\n", title, len(ex.Concepts), ex.Source)
		if ex.Cause != nil {
			fmt.Printf("  fallback: %v\n", ex.Cause)
		}
		fmt.Println(strings.Repeat("─", 60))

		if !assign {
			for i, c := range ex.Concepts {
				fmt.Printf("%2d. %s\n", i+1, c)
			}
			return nil
		}

		a, err := svc.concepts.AssignDepths(ctx, title, ex.Concepts)
		if err != nil {
			return err
		}
		fmt.Printf("%-40s  %s\n", "Concept", "Depth target")
		for _, c := range a.Concepts {
			fmt.Printf("%-40s  %s\n", truncate(c.Name, 40), depth.DisplayName(c.DepthTarget))
		}
		if a.Cause != nil {
			fmt.Printf("\nDepth targets defaulted: %v\n", a.Cause)
		}
		return nil
	},
}

func init() {
	conceptsCmd.Flags().Bool("assign", false, "Also assign a depth target to each concept")
}
