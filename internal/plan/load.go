package plan

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Load reads and validates a plan file at path, shell-splitting any raw
// string command forms. A structural problem is returned as *Error; any
// other error (missing file, unreadable YAML) is returned wrapped.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading plan %s", path)
	}

	var spec Spec
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, errors.Wrapf(err, "parsing plan %s", path)
	}

	if err := normalizeAndValidate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func normalizeAndValidate(spec *Spec) error {
	perr := &Error{}

	if len(spec.Tasks) == 0 {
		perr.Add("tasks", "at least one task", 0, "a plan must declare at least one task")
		return perr
	}

	seen := make(map[string]int, len(spec.Tasks))
	for i := range spec.Tasks {
		t := &spec.Tasks[i]
		field := fmt.Sprintf("tasks[%d]", i)

		if t.ID == "" {
			perr.Add(field+".id", "non-empty id", t.ID, "task id must not be empty")
			continue
		}
		if len(t.ID) > 128 {
			perr.Add(field+".id", "1..128 chars", len(t.ID), "task id exceeds 128 characters")
		}
		if !idPattern.MatchString(t.ID) {
			perr.Add(field+".id", "alphanumeric start, [A-Za-z0-9._-]", t.ID, "task id contains disallowed characters")
		}
		key := strings.ToLower(t.ID)
		if prev, dup := seen[key]; dup {
			perr.Add(field+".id", "unique id", t.ID, fmt.Sprintf("duplicates tasks[%d].id (case-insensitive)", prev))
		}
		seen[key] = i

		argv, err := t.Cmd.Resolve()
		if err != nil {
			perr.Add(field+".cmd", "non-empty command", nil, err.Error())
		} else if len(argv) == 0 {
			perr.Add(field+".cmd", "non-empty command", nil, "command is empty")
		} else {
			t.Argv = argv
		}

		if t.Retries < 0 {
			perr.Add(field+".retries", ">= 0", t.Retries, "retries must not be negative")
		}
		if t.TimeoutSec != nil && *t.TimeoutSec <= 0 {
			perr.Add(field+".timeout_sec", "> 0", *t.TimeoutSec, "timeout_sec must be positive")
		}
		for j, b := range t.RetryBackoffSec {
			if b < 0 {
				perr.Add(fmt.Sprintf("%s.retry_backoff_sec[%d]", field, j), ">= 0", b, "backoff must not be negative")
			}
		}
		for k := range t.Env {
			if k == "" || strings.Contains(k, "=") {
				perr.Add(field+".env", "key with no '='", k, "invalid environment variable name")
			}
		}
	}

	for i := range spec.Tasks {
		t := &spec.Tasks[i]
		field := fmt.Sprintf("tasks[%d].depends_on", i)
		for _, dep := range t.DependsOn {
			if _, ok := seen[strings.ToLower(dep)]; !ok {
				perr.Add(field, "existing task id", dep, fmt.Sprintf("%s depends on unknown task %q", t.ID, dep))
			}
		}
	}

	if perr.HasErrors() {
		return perr
	}

	if cycle := findCycle(spec.Tasks); len(cycle) > 0 {
		perr.Add("tasks", "acyclic dependency graph", cycle, fmt.Sprintf("cycle detected among tasks: %s", strings.Join(cycle, " -> ")))
		return perr
	}

	return nil
}

// findCycle runs Kahn's algorithm and returns the ids left over when no
// more zero-in-degree nodes can be removed — i.e. the offending cycle.
func findCycle(tasks []TaskSpec) []string {
	indeg := make(map[string]int, len(tasks))
	adj := make(map[string][]string, len(tasks))
	order := make([]string, 0, len(tasks))

	for _, t := range tasks {
		indeg[t.ID] = 0
		order = append(order, t.ID)
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			adj[dep] = append(adj[dep], t.ID)
			indeg[t.ID]++
		}
	}

	queue := make([]string, 0, len(tasks))
	for _, id := range order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[id] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited == len(tasks) {
		return nil
	}

	var remaining []string
	for _, id := range order {
		if indeg[id] > 0 {
			remaining = append(remaining, id)
		}
	}
	return remaining
}

// TopoOrder returns one valid topological ordering of task ids. Callers
// must have already confirmed acyclicity.
func TopoOrder(spec *Spec) []string {
	indeg := make(map[string]int, len(spec.Tasks))
	adj := make(map[string][]string, len(spec.Tasks))
	order := make([]string, 0, len(spec.Tasks))

	for _, t := range spec.Tasks {
		indeg[t.ID] = 0
		order = append(order, t.ID)
	}
	for _, t := range spec.Tasks {
		for _, dep := range t.DependsOn {
			adj[dep] = append(adj[dep], t.ID)
			indeg[t.ID]++
		}
	}

	queue := make([]string, 0, len(spec.Tasks))
	for _, id := range order {
		if indeg[id] == 0 {
			queue = append(queue, id)
		}
	}

	result := make([]string, 0, len(spec.Tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		result = append(result, id)
		for _, next := range adj[id] {
			indeg[next]--
			if indeg[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return result
}
