// Package plan loads and validates the YAML task plans that drive a run.
package plan

// TaskSpec is the static, load-time description of one node in the DAG.
type TaskSpec struct {
	ID              string            `yaml:"id"`
	Cmd             yamlCmd           `yaml:"cmd"`
	DependsOn       []string          `yaml:"depends_on"`
	Cwd             string            `yaml:"cwd"`
	Env             map[string]string `yaml:"env"`
	TimeoutSec      *float64          `yaml:"timeout_sec"`
	Retries         int               `yaml:"retries"`
	RetryBackoffSec []float64         `yaml:"retry_backoff_sec"`
	Outputs         []string          `yaml:"outputs"`

	// Argv is the normalized, shell-split argument vector. Populated by Load.
	Argv []string `yaml:"-"`
}

// Spec is the root document of a plan file.
type Spec struct {
	Goal         string     `yaml:"goal"`
	ArtifactsDir string     `yaml:"artifacts_dir"`
	MaxParallel  int        `yaml:"max_parallel"`
	FailFast     *bool      `yaml:"fail_fast"`
	Tasks        []TaskSpec `yaml:"tasks"`
}

// FailFastOr returns FailFast if set, or def otherwise.
func (s *Spec) FailFastOr(def bool) bool {
	if s.FailFast == nil {
		return def
	}
	return *s.FailFast
}
