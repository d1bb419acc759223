package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cgast/atwork/pkg/events"
	"github.com/cgast/atwork/pkg/plan"
	"github.com/cgast/atwork/pkg/taskspec"
	"github.com/cgast/atwork/pkg/userdata"
	"github.com/cgast/atwork/pkg/workflow"
)

// errWrongFormat makes the process exit non-zero after a rejected spec.
var errWrongFormat = errors.New("task specification rejected")

func newRunCmd(a *app) *cobra.Command {
	var (
		test          string
		simulate      bool
		reparse       bool
		inspectorPort int
		keepServing   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Acquire a task and build its task list",
		Long: `Run the acquisition workflow: fetch the specification (or use the built-in
one with --simulate), keep a copy, parse it and derive the task list. With
--reparse the stored copy is parsed again without contacting the referee box.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.taskType(test)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			bus := events.NewMemoryBus()
			port := inspectorPort
			if port == 0 && a.cfg.Inspector.Enabled {
				port = a.cfg.Inspector.Port
			}
			a.startInspector(ctx, port, bus, store)

			var m *workflow.Machine
			if reparse {
				// Without --test the stored copy is parsed as the type it
				// was declared with.
				if test == "" {
					t = ""
				}
				m = workflow.Reacquire(t, store, bus, a.logger)
			} else {
				f, err := a.fetcher(t, simulate)
				if err != nil {
					return err
				}
				m = workflow.AcquireTask(t, f, store, bus, a.logger)
			}

			res, err := m.Run(ctx)
			if err != nil {
				return err
			}
			if err := report(a, store, res); err != nil {
				return err
			}

			if keepServing && port > 0 {
				<-ctx.Done()
			}
			if res.Outcome == workflow.OutcomeWrongTaskFormat {
				return errWrongFormat
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&test, "test", "", "Declared task type (default from config)")
	cmd.Flags().BoolVar(&simulate, "simulate", false, "Use the built-in specification instead of the referee box")
	cmd.Flags().BoolVar(&reparse, "reparse", false, "Parse the stored specification copy again")
	cmd.Flags().IntVar(&inspectorPort, "inspector", 0, "Serve the inspector on this port")
	cmd.Flags().BoolVar(&keepServing, "wait", false, "Keep the inspector running after the workflow ends")
	return cmd
}

// report prints the run and whatever it left in the task scope.
func report(a *app, store userdata.Store, res workflow.Result) error {
	r := a.renderer()
	if r.json {
		out := map[string]any{"run": res}
		var task taskspec.Task
		if err := store.Get(userdata.ScopeTask, workflow.KeyParsed, &task); err == nil {
			out["task"] = task
		}
		var p plan.Plan
		if err := store.Get(userdata.ScopeTask, workflow.KeyTaskList, &p); err == nil {
			out["task_list"] = p
		}
		var pe taskspec.ParseError
		if err := store.Get(userdata.ScopeTask, workflow.KeyError, &pe); err == nil {
			out["error"] = pe
		}
		return r.writeJSON(out)
	}

	if err := r.run(res); err != nil {
		return err
	}
	switch res.Outcome {
	case workflow.OutcomeWrongTaskFormat:
		var pe taskspec.ParseError
		if err := store.Get(userdata.ScopeTask, workflow.KeyError, &pe); err == nil {
			_ = r.parseError(&pe)
		}
	case workflow.OutcomeSucceeded:
		var task taskspec.Task
		if err := store.Get(userdata.ScopeTask, workflow.KeyParsed, &task); err != nil {
			return err
		}
		if err := r.task(task); err != nil {
			return err
		}
		var p plan.Plan
		if err := store.Get(userdata.ScopeTask, workflow.KeyTaskList, &p); err != nil {
			return err
		}
		return r.plan(p)
	}
	return nil
}
