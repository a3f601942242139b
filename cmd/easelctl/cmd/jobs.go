package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/atelierhq/easel/internal/adapters/studioapi"
	"github.com/atelierhq/easel/internal/domain"
	"github.com/spf13/cobra"
)

var listLimit int
var listJSON bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Work with generation jobs",
}

func printJob(job domain.Job) {
	errMsg := ""
	if job.Error != nil {
		errMsg = *job.Error
	}
	fmt.Printf("%s  %-10s  progress=%3.0f%%  created=%s  err=%q\n",
		job.JobID, job.Status, job.Progress*100, job.CreatedAt.Format("2006-01-02 15:04:05"), errMsg)
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		jobs, err := api.ListJobs(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		if listJSON {
			b, _ := json.MarshalIndent(jobs, "", "  ")
			fmt.Println(string(b))
			return nil
		}
		for _, job := range jobs {
			printJob(job)
		}
		return nil
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show a single job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := api.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		b, _ := json.MarshalIndent(job, "", "  ")
		fmt.Println(string(b))
		return nil
	},
}

var jobsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the job stream, printing each update",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stream, err := api.OpenStream(ctx)
		if err != nil {
			return err
		}
		defer stream.Close()

		go func() {
			<-ctx.Done()
			stream.Close()
		}()

		for {
			event, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, studioapi.ErrMalformedPayload) {
				fmt.Fprintln(os.Stderr, "skipping malformed payload")
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}

			if event.Connected {
				fmt.Fprintln(os.Stderr, "connected")
				continue
			}
			printJob(event.Job)
		}
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request cancellation of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := api.CancelJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printJob(job)
		return nil
	},
}

var jobsDismissCmd = &cobra.Command{
	Use:   "dismiss <job-id>",
	Short: "Remove a job from the list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.DismissJob(cmd.Context(), args[0])
	},
}

func init() {
	jobsListCmd.Flags().IntVar(&listLimit, "limit", 50, "Max jobs to list")
	jobsListCmd.Flags().BoolVar(&listJSON, "json", false, "JSON output")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsWatchCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	jobsCmd.AddCommand(jobsDismissCmd)
	rootCmd.AddCommand(jobsCmd)
}
