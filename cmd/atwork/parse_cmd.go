package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cgast/atwork/pkg/plan"
	"github.com/cgast/atwork/pkg/taskspec"
)

func newParseCmd(a *app) *cobra.Command {
	var withPlan bool

	cmd := &cobra.Command{
		Use:   "parse [TYPE] SPEC",
		Short: "Parse a task specification string",
		Long: `Parse a referee box task specification. With one argument the task type
is taken from the specification's tag. Use "-" as SPEC to read stdin.`,
		Example: `  atwork parse 'PPT<S6,S5>'
  atwork parse BTT "$(cat spec.txt)" --plan
  echo 'BNT<(D,W,3)>' | atwork parse BNT -`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(a, cmd.InOrStdin(), args, withPlan)
		},
	}

	cmd.Flags().BoolVar(&withPlan, "plan", false, "Also print the derived task list")
	return cmd
}

func runParse(a *app, stdin io.Reader, args []string, withPlan bool) error {
	raw := args[len(args)-1]
	if raw == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}

	var (
		task taskspec.Task
		err  error
	)
	if len(args) == 2 {
		t, terr := taskspec.ParseTaskType(args[0])
		if terr != nil {
			return terr
		}
		task, err = taskspec.Parse(t, raw)
	} else {
		task, err = taskspec.ParseDetected(raw)
	}

	r := a.renderer()
	if err != nil {
		return r.parseError(err)
	}
	a.logger.Debug("parsed task", "type", task.Type)

	if !withPlan {
		return r.task(task)
	}
	p, err := plan.Build(task)
	if err != nil {
		return err
	}
	if r.json {
		return r.writeJSON(map[string]any{"task": task, "task_list": p})
	}
	if err := r.task(task); err != nil {
		return err
	}
	return r.plan(p)
}
