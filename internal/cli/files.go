package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hrhgit/loginweb-cli/internal/constants"
	"github.com/hrhgit/loginweb-cli/internal/progress"
	"github.com/hrhgit/loginweb-cli/internal/storage"
)

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Move files to and from event storage",
	}

	cmd.AddCommand(newFilesUploadCmd())
	cmd.AddCommand(newFilesDownloadCmd())
	cmd.AddCommand(newFilesDeleteCmd())
	cmd.AddCommand(newFilesSignCmd())

	return cmd
}

func newFilesUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <local-file> <object-path>",
		Short: "Upload a file to event storage",
		Long: `Upload a file to event storage.

Large files go up in chunks with a resume checkpoint next to the source
file; an interrupted upload continues where it stopped. If the chunked
upload fails outright, a single-shot upload of the same object is tried
before giving up.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath, objectPath := args[0], args[1]

			client, err := getAPIClient()
			if err != nil {
				return err
			}
			ctx := GetContext()
			store, err := getStore(ctx, client)
			if err != nil {
				return err
			}

			info, err := os.Stat(localPath)
			if err != nil {
				return err
			}

			bar := progress.NewCLIProgress()
			bar.Start(info.Size(), "Uploading "+localPath)
			pcb := func(frac float64) {
				bar.Update(int64(frac * float64(info.Size())))
			}

			if err := storage.UploadWithFallback(ctx, store, localPath, objectPath, pcb); err != nil {
				bar.Error(err)
				return err
			}
			bar.Finish()

			fmt.Printf("Uploaded %s to %s\n", localPath, objectPath)
			return nil
		},
	}
}

func newFilesDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <object-path> <local-file>",
		Short: "Download an object from event storage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectPath, localPath := args[0], args[1]

			client, err := getAPIClient()
			if err != nil {
				return err
			}
			ctx := GetContext()
			store, err := getStore(ctx, client)
			if err != nil {
				return err
			}

			tmpPath := localPath + ".part"
			f, err := os.Create(tmpPath)
			if err != nil {
				return err
			}

			bar := progress.NewCLIProgress()
			bar.Start(100, "Downloading "+objectPath)
			pcb := func(frac float64) {
				bar.Update(int64(frac * 100))
			}

			if err := store.Download(ctx, objectPath, f, pcb); err != nil {
				bar.Error(err)
				f.Close()
				os.Remove(tmpPath)
				return err
			}
			if err := f.Close(); err != nil {
				os.Remove(tmpPath)
				return err
			}
			if err := os.Rename(tmpPath, localPath); err != nil {
				os.Remove(tmpPath)
				return err
			}
			bar.Finish()

			fmt.Printf("Downloaded %s to %s\n", objectPath, localPath)
			return nil
		},
	}
}

func newFilesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <object-path>",
		Short: "Delete an object from event storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectPath := args[0]

			if !force {
				ok, err := confirm(fmt.Sprintf("Delete %s?", objectPath))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted")
					return nil
				}
			}

			client, err := getAPIClient()
			if err != nil {
				return err
			}
			ctx := GetContext()
			store, err := getStore(ctx, client)
			if err != nil {
				return err
			}

			if err := store.Delete(ctx, objectPath); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", objectPath)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation")

	return cmd
}

func newFilesSignCmd() *cobra.Command {
	var expiry time.Duration
	var downloadName string

	cmd := &cobra.Command{
		Use:   "sign <object-path>",
		Short: "Create a time-limited signed URL for an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			signed, err := client.CreateSignedURL(GetContext(), args[0], expiry, downloadName)
			if err != nil {
				return err
			}

			fmt.Println(signed.URL)
			fmt.Fprintf(os.Stderr, "Expires: %s\n", signed.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&expiry, "expiry", constants.SignedURLExpiry, "How long the URL stays valid")
	cmd.Flags().StringVar(&downloadName, "name", "", "Filename the browser saves the object under")

	return cmd
}
