// Command prana runs a single compiled workflow to completion (or to
// its first suspension) from the command line, grounded on the
// teacher's cmd/server/main.go flag-parsing and graceful-shutdown
// structure but driving the Graph Executor directly instead of an HTTP
// server (the REST/websocket layer is out of scope here, see DESIGN.md).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/bluzky/prana/internal/builtin"
	"github.com/bluzky/prana/internal/config"
	"github.com/bluzky/prana/internal/observability"
	"github.com/bluzky/prana/internal/store"
	"github.com/bluzky/prana/pkg/workflow"

	"github.com/bluzky/prana"
)

func main() {
	var (
		workflowPath = flag.String("workflow", "", "path to a workflow definition YAML file")
		triggerJSON  = flag.String("trigger-data", "{}", "JSON payload delivered to the trigger node")
		pretty       = flag.Bool("pretty", true, "use colorized console logging instead of JSON")
	)
	flag.Parse()

	if *workflowPath == "" {
		fmt.Fprintln(os.Stderr, "prana: -workflow is required")
		os.Exit(2)
	}

	cfg := config.Load()
	observability.Setup(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *workflowPath, *triggerJSON, *pretty); err != nil {
		fmt.Fprintln(os.Stderr, "prana:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, workflowPath, triggerJSON string, pretty bool) error {
	src, err := os.ReadFile(workflowPath)
	if err != nil {
		return fmt.Errorf("read workflow: %w", err)
	}
	def, err := workflow.FromYAML(src)
	if err != nil {
		return fmt.Errorf("parse workflow: %w", err)
	}
	w, derr := workflow.Compile(def)
	if derr != nil {
		return fmt.Errorf("compile workflow: %s", derr.Message)
	}

	registry := prana.NewRegistry()
	if err := builtin.RegisterAll(registry); err != nil {
		return fmt.Errorf("register builtins: %w", err)
	}

	engine := prana.NewEngine(registry, nil, cfg.EngineConfig())

	// NewConsoleSink only colorizes an *os.File that is a terminal, so
	// wrapping stdout keeps the non-pretty output as plain JSON lines.
	var consoleOut io.Writer = struct{ io.Writer }{os.Stdout}
	if pretty {
		consoleOut = os.Stdout
	}
	engine.RegisterMiddleware(observability.NewConsoleSink(consoleOut).Handle)

	graph, derr := engine.Compile(w, def.TriggerKey)
	if derr != nil {
		return fmt.Errorf("compile graph: %s", derr.Message)
	}

	var triggerData any
	if err := json.Unmarshal([]byte(triggerJSON), &triggerData); err != nil {
		return fmt.Errorf("parse -trigger-data: %w", err)
	}

	result, err := engine.Execute(ctx, graph, "manual", triggerData, def.Variables, nil)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	if cfg.DatabaseDSN != "" {
		s := store.New(cfg.DatabaseDSN)
		defer s.Close()
		if err := s.InitSchema(ctx); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
		if err := s.SaveWorkflow(ctx, def); err != nil {
			return fmt.Errorf("save workflow: %w", err)
		}
		if err := s.SaveExecution(ctx, result.Execution); err != nil {
			return fmt.Errorf("save execution: %w", err)
		}
	}

	switch result.Status {
	case prana.StatusCompleted:
		fmt.Println("completed:", result.Execution.ID)
	case prana.StatusSuspended:
		fmt.Println("suspended:", result.Execution.ID, "at", result.Execution.SuspendedNodeKey)
	case prana.StatusFailed:
		fmt.Println("failed:", result.Execution.ID, result.Err.Message)
	}
	return nil
}
