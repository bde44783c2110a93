package plan

import "fmt"

// yamlCmd accepts either a raw command string (shell-split at load time) or
// an explicit argv list, mirroring how the plan format lets an author write
// whichever is more convenient for a given task.
type yamlCmd struct {
	raw   string
	argv  []string
	isRaw bool
}

func (c *yamlCmd) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		c.raw = s
		c.isRaw = true
		return nil
	}

	var list []string
	if err := unmarshal(&list); err != nil {
		return fmt.Errorf("cmd must be a string or a list of strings: %w", err)
	}
	c.argv = list
	c.isRaw = false
	return nil
}

// Resolve returns the argv form of the command, shell-splitting a raw
// string form. An explicit list is returned unchanged; the caller rejects
// an empty result during validation.
func (c yamlCmd) Resolve() ([]string, error) {
	if !c.isRaw {
		return c.argv, nil
	}
	return SplitShellWords(c.raw)
}
