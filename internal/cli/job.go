package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/uiforge/uiforge/internal/tcc"
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Create and manage component generation jobs",
}

var jobCreateCmd = &cobra.Command{
	Use:     "create <description>",
	Aliases: []string{"run"},
	Short:   "Create a job and run the pipeline",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		toolType, _ := cmd.Flags().GetString("type")
		audience, _ := cmd.Flags().GetString("audience")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		noWait, _ := cmd.Flags().GetBool("no-wait")

		job, err := a.ctl.StartJob(tcc.UserInput{
			Description:    strings.Join(args, " "),
			ToolType:       toolType,
			TargetAudience: audience,
			Tags:           tags,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created job %s\n", job.JobID)
		if noWait {
			return nil
		}
		done, err := a.waitForOutcome(job.JobID)
		if err != nil {
			return err
		}
		return printOutcome(cmd, done)
	},
}

var jobResumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume a paused or halted job from its current step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.ctl.Resume(args[0]); err != nil {
			return err
		}
		done, err := a.waitForOutcome(args[0])
		if err != nil {
			return err
		}
		return printOutcome(cmd, done)
	},
}

var jobStepCmd = &cobra.Command{
	Use:   "step <job-id>",
	Short: "Run exactly one step, then pause the job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.ctl.StepForward(context.Background(), args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		outcome := "completed"
		if !res.Success {
			outcome = "failed"
		} else if res.Fallback {
			outcome = "completed with fallback"
		}
		fmt.Fprintf(w, "Step %s %s (model %s, %s)\n", res.Step, outcome, res.Model.Model, res.Duration.Round(time.Millisecond))
		if res.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", res.Error)
		}
		return nil
	},
}

var jobPauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Pause a job; the in-flight step finishes but nothing chains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.ctl.Pause(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Paused job %s\n", args[0])
		return nil
	},
}

var jobStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show detailed job status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		t, err := a.ctl.Status(args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Job %s: %s\n", t.JobID, t.UserInput.Description)
		fmt.Fprintf(w, "  Status:       %s\n", t.JobStatus)
		if t.CurrentStep != "" {
			fmt.Fprintf(w, "  Current Step: %s\n", t.CurrentStep)
		}
		if t.UserInput.ToolType != "" {
			fmt.Fprintf(w, "  Tool Type:    %s\n", t.UserInput.ToolType)
		}
		fmt.Fprintf(w, "  Created:      %s\n", t.CreatedAt)
		fmt.Fprintf(w, "  Updated:      %s\n", t.UpdatedAt)

		fmt.Fprintln(w, "  Steps:")
		printStep := func(s tcc.Step) {
			rec := t.Record(s)
			line := fmt.Sprintf("    %-20s %s", s, rec.Status)
			if rec.Attempts > 1 {
				line += fmt.Sprintf(" (attempt %d)", rec.Attempts)
			}
			if rec.Fallback {
				line += " [fallback]"
			}
			if rec.Error != "" && rec.Status == tcc.StatusFailed {
				line += ": " + rec.Error
			}
			fmt.Fprintln(w, line)
		}
		for _, s := range tcc.Sequence {
			if s == tcc.ParallelSiblings[0] {
				printStep(tcc.ParallelSiblings[0])
				printStep(tcc.ParallelSiblings[1])
				continue
			}
			if s == tcc.ParallelSiblings[1] {
				continue
			}
			printStep(s)
		}

		if t.FinalProduct != nil {
			fmt.Fprintf(w, "  Component:    %s\n", t.FinalProduct.ComponentName)
		}
		return nil
	},
}

var jobListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		statusFilter, _ := cmd.Flags().GetString("status")
		jobs, err := a.ctl.List(tcc.JobStatus(statusFilter))
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No jobs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-38s %-10s %-18s %-10s %s\n", "JOB", "STATUS", "STEP", "FALLBACK", "DESCRIPTION")
		for _, t := range jobs {
			fb := ""
			if t.UsedFallbacks() {
				fb = "yes"
			}
			fmt.Fprintf(w, "%-38s %-10s %-18s %-10s %s\n",
				t.JobID, t.JobStatus, t.CurrentStep, fb, truncateDesc(t.UserInput.Description, 50))
		}
		return nil
	},
}

var jobShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Print the finished component code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		t, err := a.ctl.Status(args[0])
		if err != nil {
			return err
		}
		if t.FinalProduct == nil {
			return fmt.Errorf("job %s has no final product yet (status %s)", t.JobID, t.JobStatus)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.FinalProduct.ComponentCode)
		return nil
	},
}

func printOutcome(cmd *cobra.Command, t *tcc.ToolConstructionContext) error {
	w := cmd.OutOrStdout()
	switch t.JobStatus {
	case tcc.JobCompleted:
		name := ""
		if t.FinalProduct != nil {
			name = t.FinalProduct.ComponentName
		}
		fmt.Fprintf(w, "Job %s completed: component %s\n", t.JobID, name)
		if t.UsedFallbacks() {
			fmt.Fprintln(w, "Warning: one or more steps used fallback output; review before shipping.")
		}
	case tcc.JobHalted:
		fmt.Fprintf(w, "Job %s halted at %s. Fix the cause and run: uiforge job resume %s\n",
			t.JobID, t.CurrentStep, t.JobID)
	case tcc.JobPaused:
		fmt.Fprintf(w, "Job %s paused at %s.\n", t.JobID, t.CurrentStep)
	}
	return nil
}

func truncateDesc(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	jobCreateCmd.Flags().String("type", "", "Tool type hint (calculator, quiz, planner, ...)")
	jobCreateCmd.Flags().String("audience", "", "Target audience hint")
	jobCreateCmd.Flags().StringSlice("tag", nil, "Freeform tag (repeatable)")
	jobCreateCmd.Flags().Bool("no-wait", false, "Return after creating the job instead of waiting")

	jobListCmd.Flags().String("status", "", "Filter by job status (pending, running, paused, halted, completed)")

	jobCmd.AddCommand(jobCreateCmd)
	jobCmd.AddCommand(jobResumeCmd)
	jobCmd.AddCommand(jobStepCmd)
	jobCmd.AddCommand(jobPauseCmd)
	jobCmd.AddCommand(jobStatusCmd)
	jobCmd.AddCommand(jobListCmd)
	jobCmd.AddCommand(jobShowCmd)
}
