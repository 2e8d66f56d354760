package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/isolated"
	"github.com/uiforge/uiforge/internal/tcc"
)

var isolatedCmd = &cobra.Command{
	Use:   "isolated",
	Short: "Run a single agent step against a copied context",
	Long: `Isolated runs execute one pipeline step without advancing any job.
The context comes from --job (a copy of that job's state) or --mock (a
synthesized context with canned dependency payloads). Job state on disk is
never written.`,
}

func stepFromFlags(cmd *cobra.Command) (tcc.Step, error) {
	agent, _ := cmd.Flags().GetString("agent")
	if step, ok := tcc.StepForAgent(agent); ok {
		return step, nil
	}
	step := tcc.Step(agent)
	if tcc.KnownStep(step) {
		return step, nil
	}
	return "", fmt.Errorf("unknown agent or step %q", agent)
}

var isolatedRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a step's output from scratch in isolation",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		step, err := stepFromFlags(cmd)
		if err != nil {
			return err
		}
		jobID, _ := cmd.Flags().GetString("job")
		mock, _ := cmd.Flags().GetBool("mock")
		model, _ := cmd.Flags().GetString("model")

		res, err := a.ctl.RunIsolated(context.Background(), isolated.Request{
			Step:          step,
			JobID:         jobID,
			Mock:          mock,
			Mode:          agents.ModeIsolatedCreate,
			ModelOverride: model,
		})
		if err != nil {
			return err
		}
		return printIsolatedResult(cmd, res)
	},
}

var isolatedEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Revise a step's existing output with edit instructions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		step, err := stepFromFlags(cmd)
		if err != nil {
			return err
		}
		jobID, _ := cmd.Flags().GetString("job")
		instructions, _ := cmd.Flags().GetString("instructions")
		model, _ := cmd.Flags().GetString("model")

		before, err := a.store.Get(jobID)
		if err != nil {
			return err
		}

		res, err := a.ctl.RunIsolated(context.Background(), isolated.Request{
			Step:             step,
			JobID:            jobID,
			Mode:             agents.ModeIsolatedEdit,
			EditInstructions: instructions,
			ModelOverride:    model,
		})
		if err != nil {
			return err
		}

		// Show what the edit changed when the step carries code.
		oldCode := artifactCode(before, step)
		newCode := artifactCode(res.Context, step)
		if oldCode != "" && newCode != "" && oldCode != newCode {
			dmp := diffmatchpatch.New()
			diffs := dmp.DiffMain(oldCode, newCode, false)
			dmp.DiffCleanupSemantic(diffs)
			fmt.Fprintln(cmd.OutOrStdout(), dmp.DiffPrettyText(diffs))
			return nil
		}
		return printIsolatedResult(cmd, res)
	},
}

// artifactCode returns the code artifact a step owns on the given context,
// or "" for non-code steps.
func artifactCode(t *tcc.ToolConstructionContext, step tcc.Step) string {
	switch step {
	case tcc.StepApplyStyling:
		if t.Styling != nil {
			return t.Styling.StyledCode
		}
	case tcc.StepAssembleComponent:
		if t.AssembledCode != nil {
			return t.AssembledCode.ComponentCode
		}
	case tcc.StepFinalizeTool:
		if t.FinalProduct != nil {
			return t.FinalProduct.ComponentCode
		}
	}
	return ""
}

func printIsolatedResult(cmd *cobra.Command, res *isolated.Result) error {
	w := cmd.OutOrStdout()
	sr := res.StepResult
	if !sr.Success {
		fmt.Fprintf(w, "Step %s failed: %s\n", sr.Step, sr.Error)
		return nil
	}
	if sr.Fallback {
		fmt.Fprintf(w, "Step %s fell back to placeholder output: %s\n", sr.Step, sr.Error)
	}
	out, ok := res.Context.OutputFor(sr.Step)
	if !ok {
		return fmt.Errorf("no output recorded for %s", sr.Step)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func init() {
	for _, c := range []*cobra.Command{isolatedRunCmd, isolatedEditCmd} {
		c.Flags().String("agent", "", "Agent name or step id (e.g. style-designer or apply_styling)")
		c.Flags().String("job", "", "Copy context from this job")
		c.Flags().String("model", "", "Model override for this run")
		_ = c.MarkFlagRequired("agent")
	}
	isolatedRunCmd.Flags().Bool("mock", false, "Use a synthesized context instead of a job")
	isolatedEditCmd.Flags().String("instructions", "", "What to change in the existing output")
	_ = isolatedEditCmd.MarkFlagRequired("job")
	_ = isolatedEditCmd.MarkFlagRequired("instructions")

	isolatedCmd.AddCommand(isolatedRunCmd)
	isolatedCmd.AddCommand(isolatedEditCmd)
}
