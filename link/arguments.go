package link

import (
	"fmt"
	"strings"
)

// Arguments selects the documents to load and the phases to run.
type Arguments struct {
	Verbosity int

	DoPacking bool
	DoLinking bool

	Targets     []string // target documents
	Objects     []string // object documents
	Constraints []string // constraint documents

	// AllocationOutput is where the packing phase writes addresses; empty skips it.
	AllocationOutput string

	// TargetInputs and TargetOutputs map target ids to file paths. They
	// override the paths named in the target documents.
	TargetInputs  map[string]string
	TargetOutputs map[string]string

	// AllocationInputs are allocation files loaded before either phase.
	// Entries naming an object pin it; the rest resolve references to
	// things linked elsewhere.
	AllocationInputs []string

	// AllowExternal downgrades unresolved references to warnings.
	AllowExternal bool

	// MaxSteps bounds the packing search; 0 means unbounded.
	MaxSteps int
}

// Validate checks the flag combination.
func (a *Arguments) Validate() error {
	var problems []string
	if !a.DoPacking && !a.DoLinking {
		problems = append(problems, "nothing to do: packing and linking are both disabled")
	}
	if len(a.Targets) == 0 {
		problems = append(problems, "no target documents")
	}
	if len(a.Objects) == 0 {
		problems = append(problems, "no object documents")
	}
	if !a.DoPacking && len(a.AllocationInputs) == 0 {
		problems = append(problems, "linking without packing needs an allocation file")
	}
	if a.MaxSteps < 0 {
		problems = append(problems, "negative step budget")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfig, strings.Join(problems, "; "))
	}
	return nil
}
