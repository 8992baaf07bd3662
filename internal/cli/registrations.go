package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hrhgit/loginweb-cli/internal/export"
)

func newRegistrationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "registrations",
		Aliases: []string{"regs"},
		Short:   "List and export event registrations",
	}

	cmd.AddCommand(newRegistrationsListCmd())
	cmd.AddCommand(newRegistrationsExportCmd())

	return cmd
}

func newRegistrationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registrations for the event",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			cfg := client.GetConfig()
			if cfg.EventID == "" {
				return errors.New("event id is required (use --event or config)")
			}

			ctx := GetContext()
			regs, err := client.ListRegistrations(ctx, cfg.EventID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEMAIL\tSTATUS\tREGISTERED")
			for _, reg := range regs {
				name, email := "", ""
				if reg.User != nil {
					name, email = reg.User.Name, reg.User.Email
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					name, email, reg.Status, reg.CreatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()

			fmt.Printf("\n%d registration(s)\n", len(regs))
			return nil
		},
	}
}

func newRegistrationsExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export registrations to an xlsx workbook",
		Long: `Export registrations to an xlsx workbook.

The sheet has fixed identity columns followed by one column per
registration form question, in form order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			cfg := client.GetConfig()
			if cfg.EventID == "" {
				return errors.New("event id is required (use --event or config)")
			}

			ctx := GetContext()
			regs, err := client.ListRegistrations(ctx, cfg.EventID)
			if err != nil {
				return err
			}
			if len(regs) == 0 {
				// Nothing to export is not a failure.
				fmt.Printf("Event %s has no registrations, nothing to export\n", cfg.EventID)
				return nil
			}
			questions, err := client.ListQuestions(ctx, cfg.EventID)
			if err != nil {
				return err
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}

			if err := export.Registrations(f, regs, questions); err != nil {
				f.Close()
				os.Remove(outPath)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}

			fmt.Printf("Exported %d registration(s) to %s\n", len(regs), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "registrations.xlsx", "Output file path")

	return cmd
}
