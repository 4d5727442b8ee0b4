// Package program loads a YAML description of a runnable scheduler
// program — how many slots to allocate and which bodies to install —
// and builds a live *sched.Scheduler from it. It is a thin demo/test
// harness, not a persistence format: there is no step dependency graph
// and nothing here is written back to disk.
package program

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/me/cosched/internal/bodies"
	"github.com/me/cosched/internal/scriptcor"
	"github.com/me/cosched/pkg/sched"
)

// TaskDef is one YAML task entry: either a builtin body (Body, Args) or
// an inline JS generator (Script). Exactly one of Body or Script should
// be set.
type TaskDef struct {
	Name   string         `yaml:"name"`
	Body   string         `yaml:"body,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`
	Script string         `yaml:"script,omitempty"`
	Mutex  string         `yaml:"mutex,omitempty"`
}

// File is the root of a program YAML document.
type File struct {
	Capacity int       `yaml:"capacity"`
	Tick     string    `yaml:"tick,omitempty"` // "wallclock" or "virtual"; parsed but not read by Build or the CLI (its --tick flag picks the source)
	Idle     string    `yaml:"idle,omitempty"` // optional builtin idle body name
	Tasks    []TaskDef `yaml:"tasks"`
}

// Load reads and parses a program file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse program %s: %w", path, err)
	}
	if f.Capacity < 1 {
		return nil, fmt.Errorf("program %s: capacity must be >= 1", path)
	}
	return &f, nil
}

// Build constructs a *sched.Scheduler from f, resolving each task
// against registry (for named builtin bodies) or engine (for inline JS
// generator scripts). Tasks that share a Mutex name are given the same
// *sched.Mutex instance, so demo.mutexer-style bodies can demonstrate
// contention across tasks.
func Build(f *File, ts sched.TickSource, registry *bodies.Registry, engine *scriptcor.Engine, logger *slog.Logger) (*sched.Scheduler, error) {
	s, err := sched.New(f.Capacity, ts, sched.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	if f.Idle != "" {
		ctor, err := registry.Get(f.Idle)
		if err != nil {
			return nil, fmt.Errorf("resolve idle body %q: %w", f.Idle, err)
		}
		if err := s.SetIdle(ctor(nil)); err != nil {
			return nil, fmt.Errorf("set idle body: %w", err)
		}
	}

	mutexes := make(map[string]*sched.Mutex)
	for _, td := range f.Tasks {
		body, err := resolveBody(td, registry, engine, mutexes, logger)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", td.Name, err)
		}
		if _, err := s.CreateTask(body, nil); err != nil {
			return nil, fmt.Errorf("create task %q: %w", td.Name, err)
		}
	}
	return s, nil
}

func resolveBody(td TaskDef, registry *bodies.Registry, engine *scriptcor.Engine, mutexes map[string]*sched.Mutex, logger *slog.Logger) (sched.Body, error) {
	if td.Script != "" {
		return engine.NewBody(td.Name, td.Script)
	}
	if td.Body == "" {
		return nil, fmt.Errorf("task has neither body nor script")
	}
	ctor, err := registry.Get(td.Body)
	if err != nil {
		return nil, err
	}
	args := td.Args
	if td.Mutex != "" {
		m, ok := mutexes[td.Mutex]
		if !ok {
			m = sched.NewMutex()
			mutexes[td.Mutex] = m
		}
		if args == nil {
			args = make(map[string]any, 1)
		}
		args["mutex"] = m
	}
	return ctor(args), nil
}
