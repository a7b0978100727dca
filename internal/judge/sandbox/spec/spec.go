// Package spec defines the execution specification and resource limits.
package spec

// ResourceLimit describes hard limits enforced by the sandbox.
type ResourceLimit struct {
	CPUTimeMs      int64 `yaml:"cpuTimeMs" json:"CPUTimeMs"`
	WallTimeMs     int64 `yaml:"wallTimeMs" json:"WallTimeMs"`
	MemoryMB       int64 `yaml:"memoryMB" json:"MemoryMB"`
	AddressSpaceMB int64 `yaml:"addressSpaceMB" json:"AddressSpaceMB"`
	StackMB        int64 `yaml:"stackMB" json:"StackMB"`
	OutputMB       int64 `yaml:"outputMB" json:"OutputMB"`
	PIDs           int64 `yaml:"pids" json:"PIDs"`
}

// Merge overlays the positive fields of override onto base.
func Merge(base, override ResourceLimit) ResourceLimit {
	if override.CPUTimeMs > 0 {
		base.CPUTimeMs = override.CPUTimeMs
	}
	if override.WallTimeMs > 0 {
		base.WallTimeMs = override.WallTimeMs
	}
	if override.MemoryMB > 0 {
		base.MemoryMB = override.MemoryMB
	}
	if override.AddressSpaceMB > 0 {
		base.AddressSpaceMB = override.AddressSpaceMB
	}
	if override.StackMB > 0 {
		base.StackMB = override.StackMB
	}
	if override.OutputMB > 0 {
		base.OutputMB = override.OutputMB
	}
	if override.PIDs > 0 {
		base.PIDs = override.PIDs
	}
	return base
}

// MountSpec describes a bind mount inside the sandbox.
type MountSpec struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RunSpec is the unified execution specification for one harness run.
type RunSpec struct {
	SubmissionID string
	RunID        string
	WorkDir      string
	Cmd          []string
	Env          []string
	BindMounts   []MountSpec
	Profile      string
	Limits       ResourceLimit
}
