package runstate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Load reads state.json from runDir, rejecting unknown fields and
// validating the result before returning it.
func Load(runDir string) (*RunState, error) {
	statePath := filepath.Join(runDir, "state.json")

	file, err := os.Open(statePath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open state.json")
	}
	defer file.Close()

	var state RunState
	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&state); err != nil {
		return nil, errors.Wrap(err, "cannot decode state.json")
	}

	if err := state.Validate(); err != nil {
		return nil, errors.Wrap(err, "state validation failed")
	}

	return &state, nil
}

// Save atomically persists state to runDir/state.json: marshal, write to a
// temp file, fsync best-effort, then rename over the target. Concurrent
// readers never observe a partially-written file.
func Save(runDir string, state *RunState) error {
	if err := state.Validate(); err != nil {
		return errors.Wrap(err, "refusing to save invalid state")
	}

	statePath := filepath.Join(runDir, "state.json")
	tempPath := statePath + ".tmp"

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot marshal state")
	}

	f, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "cannot create temp state file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tempPath)
		return errors.Wrap(err, "cannot write temp state file")
	}
	_ = f.Sync() // best-effort; a failed fsync does not invalidate the rename
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "cannot close temp state file")
	}

	if err := os.Rename(tempPath, statePath); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "cannot rename temp state file")
	}

	return nil
}
