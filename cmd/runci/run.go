package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lei/runci/internal/config"
	"github.com/lei/runci/internal/engine"
	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/pkg/logger"
)

var runFlags struct {
	event          string
	ref            string
	workdir        string
	maxConcurrency int
	verbose        bool
}

var runCmd = &cobra.Command{
	Use:   "run <pipeline.yaml>",
	Short: "Execute a pipeline document locally against a synthetic event",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipeline,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.event, "event", "push", "event kind (push or pull_request)")
	runCmd.Flags().StringVar(&runFlags.ref, "ref", "main", "branch ref carried by the event")
	runCmd.Flags().StringVar(&runFlags.workdir, "workdir", ".", "working directory for step commands")
	runCmd.Flags().IntVar(&runFlags.maxConcurrency, "max-concurrency", engine.DefaultMaxConcurrency, "maximum jobs running at once")
	runCmd.Flags().BoolVar(&runFlags.verbose, "verbose", false, "enable debug logging")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	pipeline, err := config.LoadPipeline(args[0])
	if err != nil {
		return err
	}

	event := models.Event{Kind: models.EventKind(runFlags.event), Ref: runFlags.ref}
	switch event.Kind {
	case models.EventPush, models.EventPullRequest:
	default:
		return fmt.Errorf("unknown event kind %q", runFlags.event)
	}

	jobs := engine.SelectJobs(event, pipeline)
	if jobs == nil {
		fmt.Printf("no trigger rule matches %s on %q, nothing to run\n", event.Kind, event.Ref)
		return nil
	}

	level := "warn"
	if runFlags.verbose {
		level = "debug"
	}
	log := logger.New(level, "text")

	executor := engine.NewExecutor(0, 0, 0, log)
	jobRunner := engine.NewJobRunner(executor, runFlags.workdir, log)
	scheduler := engine.NewScheduler(jobRunner, runFlags.maxConcurrency, log)

	run, err := engine.NewRun(pipeline.Name, event, jobs)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, _ := scheduler.Schedule(ctx, run)
	printResult(pipeline.Name, result)

	if result.Status != models.StatusSuccess {
		return fmt.Errorf("run %s", result.Status)
	}
	return nil
}

func printResult(pipeline string, result models.RunResult) {
	fmt.Printf("pipeline %s: %s (%.1fs)\n", pipeline, result.Status, result.Duration.Seconds())
	for _, jr := range result.Jobs {
		fmt.Printf("  job %s: %s\n", jr.Name, jr.Status)
		for _, sr := range jr.Steps {
			switch sr.Status {
			case models.StatusSuccess:
				fmt.Printf("    ok   %s (%.1fs)\n", sr.Name, sr.Duration.Seconds())
			case models.StatusSkipped:
				fmt.Printf("    skip %s\n", sr.Name)
			case models.StatusCanceled:
				fmt.Printf("    stop %s (%s)\n", sr.Name, cause(sr))
			default:
				fmt.Printf("    FAIL %s (%s)\n", sr.Name, cause(sr))
				if sr.Output != "" {
					fmt.Print(indent(sr.Output))
					if sr.Truncated {
						fmt.Println("      ... output truncated")
					}
				}
			}
		}
	}
}

func cause(sr models.StepResult) string {
	if sr.Cause != "" {
		return sr.Cause
	}
	if sr.Error != "" {
		return sr.Error
	}
	return fmt.Sprintf("exit %d", sr.ExitCode)
}

func indent(out string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		b.WriteString("      ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
