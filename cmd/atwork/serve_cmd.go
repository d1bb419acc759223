package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cgast/atwork/pkg/events"
	"github.com/cgast/atwork/pkg/plan"
	"github.com/cgast/atwork/pkg/protocol"
	"github.com/cgast/atwork/pkg/taskspec"
	"github.com/cgast/atwork/pkg/userdata"
	"github.com/cgast/atwork/pkg/workflow"
)

func newServeCmd(a *app) *cobra.Command {
	var inspectorPort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve JSON-RPC 2.0 requests on stdin/stdout",
		Long: `Read newline-delimited JSON-RPC 2.0 requests from stdin and write one
response per line to stdout. Methods: task.parse, task.reparse,
task.classify, task.plan, task.fetch, userdata.get, fixtures.list, history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			h := protocol.NewHandler()
			(&service{app: a, store: store, bus: bus, ctx: ctx}).register(h)
			a.logger.Info("serving JSON-RPC on stdio", "methods", h.Methods())
			return h.Serve(ctx, cmd.InOrStdin(), a.stdout)
		},
	}

	cmd.Flags().IntVar(&inspectorPort, "inspector", 0, "Serve the inspector on this port")
	return cmd
}

// service implements the JSON-RPC methods.
type service struct {
	app   *app
	store userdata.Store
	bus   *events.MemoryBus
	ctx   context.Context
}

func (s *service) register(h *protocol.Handler) {
	h.Register(protocol.MethodTaskParse, s.parse)
	h.Register(protocol.MethodTaskReparse, s.reparse)
	h.Register(protocol.MethodTaskClassify, s.classify)
	h.Register(protocol.MethodTaskPlan, s.plan)
	h.Register(protocol.MethodTaskFetch, s.fetch)
	h.Register(protocol.MethodUserdataGet, s.userdataGet)
	h.Register(protocol.MethodFixturesList, func(json.RawMessage) (any, *protocol.Error) {
		return fixtureList(), nil
	})
	h.Register(protocol.MethodHistory, func(json.RawMessage) (any, *protocol.Error) {
		items, err := s.store.List(userdata.ScopeHistory)
		if err != nil {
			return nil, &protocol.Error{Code: protocol.CodeInternalError, Message: err.Error()}
		}
		return items, nil
	})
}

func (s *service) parseTask(params json.RawMessage) (taskspec.Task, *protocol.Error) {
	p, rpcErr := protocol.ParseParams[protocol.TaskParams](params)
	if rpcErr != nil {
		return taskspec.Task{}, rpcErr
	}
	if p.Spec == "" {
		return taskspec.Task{}, &protocol.Error{Code: protocol.CodeInvalidParams, Message: "spec is required"}
	}

	var (
		task taskspec.Task
		err  error
	)
	if p.Type == "" {
		task, err = taskspec.ParseDetected(p.Spec)
	} else {
		t, terr := taskspec.ParseTaskType(p.Type)
		if terr != nil {
			return taskspec.Task{}, &protocol.Error{Code: protocol.CodeInvalidParams, Message: terr.Error()}
		}
		task, err = taskspec.Parse(t, p.Spec)
	}
	if err != nil {
		return taskspec.Task{}, protocol.SpecError(err)
	}
	return task, nil
}

func (s *service) parse(params json.RawMessage) (any, *protocol.Error) {
	task, rpcErr := s.parseTask(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return task, nil
}

func (s *service) plan(params json.RawMessage) (any, *protocol.Error) {
	task, rpcErr := s.parseTask(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	p, err := plan.Build(task)
	if err != nil {
		return nil, &protocol.Error{Code: protocol.CodePlanFailed, Message: err.Error()}
	}
	return p, nil
}

func (s *service) classify(params json.RawMessage) (any, *protocol.Error) {
	p, rpcErr := protocol.ParseParams[protocol.TaskParams](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	t, err := taskspec.Classify(p.Spec)
	if err != nil {
		return nil, protocol.SpecError(err)
	}
	return protocol.ClassifyResult{Type: string(t), Name: t.Name()}, nil
}

func (s *service) fetch(params json.RawMessage) (any, *protocol.Error) {
	p, rpcErr := protocol.ParseParams[protocol.FetchParams](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	t, err := s.app.taskType(p.Type)
	if err != nil {
		return nil, &protocol.Error{Code: protocol.CodeInvalidParams, Message: err.Error()}
	}
	f, err := s.app.fetcher(t, p.Simulate)
	if err != nil {
		return nil, &protocol.Error{Code: protocol.CodeInvalidParams, Message: err.Error()}
	}
	res, err := workflow.AcquireTask(t, f, s.store, s.bus, s.app.logger).Run(s.ctx)
	if err != nil {
		return nil, &protocol.Error{Code: protocol.CodeRefboxFailed, Message: err.Error()}
	}
	return s.runResult(res), nil
}

func (s *service) reparse(params json.RawMessage) (any, *protocol.Error) {
	p, rpcErr := protocol.ParseParams[protocol.ReparseParams](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var t taskspec.TaskType
	if p.Type != "" {
		var err error
		if t, err = taskspec.ParseTaskType(p.Type); err != nil {
			return nil, &protocol.Error{Code: protocol.CodeInvalidParams, Message: err.Error()}
		}
	}
	res, err := workflow.Reacquire(t, s.store, s.bus, s.app.logger).Run(s.ctx)
	if err != nil {
		if errors.Is(err, userdata.ErrNotFound) {
			return nil, &protocol.Error{Code: protocol.CodeNotFound, Message: "no specification copy stored"}
		}
		return nil, &protocol.Error{Code: protocol.CodeInternalError, Message: err.Error()}
	}
	return s.runResult(res), nil
}

func (s *service) runResult(res workflow.Result) protocol.RunResult {
	out := protocol.RunResult{RunID: res.RunID, Outcome: string(res.Outcome)}
	_ = s.store.Get(userdata.ScopeTask, workflow.KeySpecCopy, &out.SpecCopy)
	switch res.Outcome {
	case workflow.OutcomeWrongTaskFormat:
		var pe taskspec.ParseError
		if err := s.store.Get(userdata.ScopeTask, workflow.KeyError, &pe); err == nil {
			out.Error = pe
		}
	case workflow.OutcomeSucceeded:
		var task taskspec.Task
		if err := s.store.Get(userdata.ScopeTask, workflow.KeyParsed, &task); err == nil {
			out.Task = task
		}
		var p plan.Plan
		if err := s.store.Get(userdata.ScopeTask, workflow.KeyTaskList, &p); err == nil {
			out.TaskList = p
		}
	}
	return out
}

func (s *service) userdataGet(params json.RawMessage) (any, *protocol.Error) {
	p, rpcErr := protocol.ParseParams[protocol.UserdataGetParams](params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if p.Scope == "" {
		return nil, &protocol.Error{Code: protocol.CodeInvalidParams, Message: "scope is required"}
	}
	if p.Key == "" {
		items, err := s.store.List(p.Scope)
		if err != nil {
			return nil, &protocol.Error{Code: protocol.CodeNotFound, Message: err.Error()}
		}
		return items, nil
	}
	var v any
	if err := s.store.Get(p.Scope, p.Key, &v); err != nil {
		return nil, &protocol.Error{Code: protocol.CodeNotFound, Message: fmt.Sprintf("%s/%s: %v", p.Scope, p.Key, err)}
	}
	return v, nil
}
