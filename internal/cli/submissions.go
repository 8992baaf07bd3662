package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hrhgit/loginweb-cli/internal/api"
	"github.com/hrhgit/loginweb-cli/internal/batch"
	"github.com/hrhgit/loginweb-cli/internal/constants"
	"github.com/hrhgit/loginweb-cli/internal/http"
	"github.com/hrhgit/loginweb-cli/internal/models"
	"github.com/hrhgit/loginweb-cli/internal/progress"
	"github.com/hrhgit/loginweb-cli/internal/submit"
)

func newSubmissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "submissions",
		Aliases: []string{"subs"},
		Short:   "Manage team project submissions",
	}

	cmd.AddCommand(newSubmissionsListCmd())
	cmd.AddCommand(newSubmissionsGetCmd())
	cmd.AddCommand(newSubmissionsSubmitCmd())
	cmd.AddCommand(newSubmissionsEditCmd())
	cmd.AddCommand(newSubmissionsPackCmd())
	cmd.AddCommand(newSubmissionsFetchCmd())
	cmd.AddCommand(newSubmissionsDeleteDraftCmd())

	return cmd
}

func requireEvent(client *api.Client) (string, error) {
	evID := client.GetConfig().EventID
	if evID == "" {
		return "", errors.New("event id is required (use --event or config)")
	}
	return evID, nil
}

func newSubmissionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List submissions for the event",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			evID, err := requireEvent(client)
			if err != nil {
				return err
			}

			subs, err := client.ListSubmissions(GetContext(), evID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TEAM\tPROJECT\tMODE\tUPDATED")
			for _, sub := range subs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					sub.TeamName(), sub.ProjectName, sub.Mode,
					sub.UpdatedAt.Format("2006-01-02 15:04"))
			}
			w.Flush()

			fmt.Printf("\n%d submission(s)\n", len(subs))
			return nil
		},
	}
}

func newSubmissionsGetCmd() *cobra.Command {
	var teamID string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show one team's submission",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			evID, err := requireEvent(client)
			if err != nil {
				return err
			}

			sub, err := client.GetSubmission(GetContext(), evID, teamID)
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return fmt.Errorf("team %s has no submission", teamID)
				}
				return err
			}

			fmt.Printf("Team:     %s\n", sub.TeamName())
			fmt.Printf("Project:  %s\n", sub.ProjectName)
			fmt.Printf("Mode:     %s\n", sub.Mode)
			if sub.Mode == models.ModeLink {
				fmt.Printf("Link:     %s\n", sub.RepoURL)
			} else {
				fmt.Printf("File:     %s\n", sub.StoragePath)
			}
			if sub.CoverPath != "" {
				fmt.Printf("Cover:    %s\n", sub.CoverPath)
			}
			if sub.Intro != "" {
				fmt.Printf("Intro:    %s\n", sub.Intro)
			}
			fmt.Printf("Updated:  %s\n", sub.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "Team ID")
	cmd.MarkFlagRequired("team")

	return cmd
}

type submitFlags struct {
	teamID   string
	project  string
	mode     string
	file     string
	link     string
	cover    string
	password string
	intro    string
}

func (f *submitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.teamID, "team", "", "Team ID")
	cmd.Flags().StringVar(&f.project, "project", "", "Project name")
	cmd.Flags().StringVar(&f.mode, "mode", models.ModeFile, "Submission mode: file or link")
	cmd.Flags().StringVar(&f.file, "file", "", "Project archive to upload (file mode)")
	cmd.Flags().StringVar(&f.link, "link", "", "Repository URL (link mode)")
	cmd.Flags().StringVar(&f.cover, "cover", "", "Cover image to upload")
	cmd.Flags().StringVar(&f.password, "password", "", "Access password for the submission")
	cmd.Flags().StringVar(&f.intro, "intro", "", "Short project introduction")
}

func runSubmitWorkflow(client *api.Client, evID string, draft *submit.Draft) error {
	ctx := GetContext()

	store, err := getStore(ctx, client)
	if err != nil {
		return err
	}

	workflow := submit.NewWorkflow(client, store, GetLogger())

	var pcb func(float64)
	if draft.LocalFile != "" {
		bar := progress.NewCLIProgress()
		bar.Start(100, "Uploading "+draft.LocalFile)
		defer bar.Finish()
		pcb = func(frac float64) {
			bar.Update(int64(frac * 100))
		}
	}

	saved, err := workflow.Submit(ctx, evID, draft, pcb)
	if errors.Is(err, submit.ErrNoChanges) {
		fmt.Printf("No changes for team %s, nothing written\n", draft.TeamID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Submission stored for team %s (project %q)\n", draft.TeamID, saved.ProjectName)
	return nil
}

func newSubmissionsSubmitCmd() *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create or replace a team's submission",
		Long: `Create or replace a team's submission.

The draft is validated locally before anything is sent. Uploaded files are
cleaned up again if the submission cannot be stored, and the stored row is
read back to confirm the write.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			evID, err := requireEvent(client)
			if err != nil {
				return err
			}

			draft := &submit.Draft{
				TeamID:      flags.teamID,
				ProjectName: flags.project,
				Mode:        flags.mode,
				RepoURL:     flags.link,
				LocalFile:   flags.file,
				CoverFile:   flags.cover,
				Password:    flags.password,
				Intro:       flags.intro,
			}
			return runSubmitWorkflow(client, evID, draft)
		},
	}

	flags.register(cmd)
	cmd.MarkFlagRequired("team")
	cmd.MarkFlagRequired("project")

	return cmd
}

func newSubmissionsEditCmd() *cobra.Command {
	var flags submitFlags

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit an existing submission",
		Long: `Edit an existing submission.

Only the flags given change; everything else keeps its stored value.
If nothing actually changes, no write is issued.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			evID, err := requireEvent(client)
			if err != nil {
				return err
			}

			existing, err := client.GetSubmission(GetContext(), evID, flags.teamID)
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return fmt.Errorf("team %s has no submission to edit", flags.teamID)
				}
				return err
			}

			// Start from the stored values, override with whatever was given.
			draft := &submit.Draft{
				TeamID:      flags.teamID,
				ProjectName: existing.ProjectName,
				Mode:        existing.Mode,
				RepoURL:     existing.RepoURL,
				Password:    existing.Password,
				Intro:       existing.Intro,
			}
			if cmd.Flags().Changed("project") {
				draft.ProjectName = flags.project
			}
			if cmd.Flags().Changed("mode") {
				draft.Mode = flags.mode
			}
			if cmd.Flags().Changed("link") {
				draft.RepoURL = flags.link
			}
			if cmd.Flags().Changed("password") {
				draft.Password = flags.password
			}
			if cmd.Flags().Changed("intro") {
				draft.Intro = flags.intro
			}
			draft.LocalFile = flags.file
			draft.CoverFile = flags.cover

			return runSubmitWorkflow(client, evID, draft)
		},
	}

	flags.register(cmd)
	cmd.MarkFlagRequired("team")

	return cmd
}

func newSubmissionsDeleteDraftCmd() *cobra.Command {
	var teamID string
	var force bool

	cmd := &cobra.Command{
		Use:   "delete-draft",
		Short: "Delete a team's draft submission",
		Long: `Delete a team's draft submission, including its uploaded files.

Finalized submissions are never deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			evID, err := requireEvent(client)
			if err != nil {
				return err
			}

			ctx := GetContext()
			sub, err := client.GetSubmission(ctx, evID, teamID)
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					return fmt.Errorf("team %s has no submission", teamID)
				}
				return err
			}
			if !sub.IsDraft() {
				return fmt.Errorf("team %s submission is finalized, not deleting", teamID)
			}

			if !force {
				ok, err := confirm(fmt.Sprintf("Delete draft %q of team %s?", sub.ProjectName, sub.TeamName()))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted")
					return nil
				}
			}

			store, err := getStore(ctx, client)
			if err != nil {
				return err
			}

			workflow := submit.NewWorkflow(client, store, GetLogger())
			if err := workflow.DeleteDraft(ctx, evID, teamID); err != nil {
				return err
			}

			fmt.Printf("Deleted draft of team %s\n", sub.TeamName())
			return nil
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "Team ID")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without asking")
	cmd.MarkFlagRequired("team")

	return cmd
}

// selectSubmissions collects the event's submissions, optionally restricted
// to the given teams, de-duplicated in order. With downloadableOnly set,
// submissions without a stored file are dropped; otherwise they stay in the
// selection and fail per item downstream.
func selectSubmissions(ctx context.Context, client *api.Client, evID string, teams []string, downloadableOnly bool) ([]models.Submission, error) {
	subs, err := client.ListSubmissions(ctx, evID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(teams))
	for _, t := range teams {
		wanted[t] = true
	}

	set := batch.NewSelectionSet()
	for _, sub := range subs {
		if downloadableOnly && !sub.Downloadable() {
			continue
		}
		if len(wanted) > 0 && !wanted[sub.TeamID] && !wanted[sub.TeamName()] {
			continue
		}
		set.Add(sub)
	}

	if set.Len() == 0 {
		return nil, errors.New("no downloadable submissions matched")
	}
	return set.Items(), nil
}

// uiReporter logs item completion above the progress bars and tracks the
// overall percentage.
func uiReporter(ui *progress.BatchUI) progress.BatchReporter {
	return progress.BatchReporterFunc(func(completed, total int, name string, err error) {
		fmt.Fprintf(ui.LogWriter(), "Progress: %d%% (%d/%d)\n",
			progress.Percent(completed, total), completed, total)
	})
}

// uiFetcher wraps a fetcher so each item renders its own progress bar.
func uiFetcher(ui *progress.BatchUI, items []batch.Item, inner batch.ContentFetcher) batch.ContentFetcher {
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.Submission.TeamID] = i
	}

	return func(ctx context.Context, sub models.Submission, w io.Writer) error {
		i := index[sub.TeamID]
		bar := ui.AddItem(i+1, items[i].Name, 0)
		cw := &countingWriter{w: w, bar: bar}
		err := inner(ctx, sub, cw)
		bar.SetTotal(cw.written)
		bar.Complete(err)
		return err
	}
}

type countingWriter struct {
	w       io.Writer
	bar     *progress.ItemBar
	written int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.written += int64(n)
	c.bar.SetCurrent(c.written)
	return n, err
}

func newSubmissionsPackCmd() *cobra.Command {
	var outPath string
	var teams []string

	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Download submissions into a single zip archive",
		Long: `Download all downloadable submissions into one flat zip archive.

Entries are named "NNN-team-project.ext". A submission that fails to
download becomes a "<name>.error.txt" entry instead of aborting the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			evID, err := requireEvent(client)
			if err != nil {
				return err
			}

			ctx := GetContext()
			subs, err := selectSubmissions(ctx, client, evID, teams, false)
			if err != nil {
				return err
			}
			items := batch.BuildItems(subs)

			store, err := getStore(ctx, client)
			if err != nil {
				return err
			}

			out, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("failed to create archive: %w", err)
			}

			ui := progress.NewBatchUI(len(items))
			fetch := uiFetcher(ui, items, batch.StoreFetcher(store))

			packErr := batch.Pack(ctx, items, out, fetch, uiReporter(ui))
			ui.Wait()

			if closeErr := out.Close(); packErr == nil {
				packErr = closeErr
			}
			if packErr != nil {
				os.Remove(outPath)
				return packErr
			}

			fmt.Printf("Packed %d submission(s) into %s\n", len(items), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "submissions.zip", "Output archive path")
	cmd.Flags().StringArrayVar(&teams, "team", nil, "Limit to specific teams (repeatable)")

	return cmd
}

func newSubmissionsFetchCmd() *cobra.Command {
	var destDir string
	var teams []string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download submissions as separate files",
		Long: `Download each submission to its own file via signed URLs, pausing
between items. Failed items leave a "<name>.error.txt" marker file and
the batch continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}
			evID, err := requireEvent(client)
			if err != nil {
				return err
			}

			ctx := GetContext()
			subs, err := selectSubmissions(ctx, client, evID, teams, true)
			if err != nil {
				return err
			}
			items := batch.BuildItems(subs)

			httpClient, err := http.CreateOptimizedClient(client.GetConfig())
			if err != nil {
				return err
			}

			nameByTeam := make(map[string]string, len(items))
			for _, item := range items {
				nameByTeam[item.Submission.TeamID] = item.Name
			}

			signedFetch := func(ctx context.Context, sub models.Submission, w io.Writer) error {
				signed, err := client.CreateSignedURL(ctx, sub.StoragePath, constants.SignedURLExpiry, nameByTeam[sub.TeamID])
				if err != nil {
					return fmt.Errorf("failed to sign url: %w", err)
				}

				req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, signed.URL, nil)
				if err != nil {
					return err
				}
				resp, err := httpClient.Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()
				if resp.StatusCode != nethttp.StatusOK {
					return fmt.Errorf("download returned status %d", resp.StatusCode)
				}

				_, err = io.Copy(w, resp.Body)
				return err
			}

			ui := progress.NewBatchUI(len(items))
			fetch := uiFetcher(ui, items, signedFetch)

			err = batch.FetchSpaced(ctx, items, destDir, fetch, uiReporter(ui))
			ui.Wait()
			if err != nil {
				return err
			}

			fmt.Printf("Fetched %d submission(s) into %s\n", len(items), destDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&destDir, "dest", "d", "submissions", "Destination directory")
	cmd.Flags().StringArrayVar(&teams, "team", nil, "Limit to specific teams (repeatable)")

	return cmd
}
