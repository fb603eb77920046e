package stack

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/procfs"
)

// CommLength is the kernel's limit on a process comm name, including the
// terminating NUL.
const CommLength = 16

// ProcFS is a ProcessTable backed by /proc.
type ProcFS struct {
	fs procfs.FS
}

// NewProcFS opens the proc filesystem mounted at mountPoint. An empty
// mountPoint uses the default /proc.
func NewProcFS(mountPoint string) (*ProcFS, error) {
	if mountPoint == "" {
		mountPoint = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", mountPoint, err)
	}
	return &ProcFS{fs: fs}, nil
}

// FindByName returns processes whose comm or executable base name equals
// name. comm is truncated by the kernel, so long names are compared
// against the executable instead.
func (p *ProcFS) FindByName(name string) ([]Process, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, err
	}

	var out []Process
	for _, proc := range procs {
		if matchesName(proc, name) {
			out = append(out, procfsProcess{proc: proc})
		}
	}
	return out, nil
}

func matchesName(proc procfs.Proc, name string) bool {
	comm, err := proc.Comm()
	if err != nil {
		return false
	}
	if comm == name {
		return true
	}
	if len(name) < CommLength-1 {
		return false
	}
	exe, err := proc.Executable()
	if err != nil {
		return false
	}
	return filepath.Base(exe) == name
}

// procfsProcess adapts procfs.Proc to Process.
type procfsProcess struct {
	proc procfs.Proc
}

func (p procfsProcess) PID() int {
	return p.proc.PID
}

func (p procfsProcess) Mappings() ([]Mapping, error) {
	maps, err := p.proc.ProcMaps()
	if err != nil {
		return nil, err
	}

	out := make([]Mapping, len(maps))
	for i, m := range maps {
		out[i] = Mapping{
			Path:  m.Pathname,
			Range: fmt.Sprintf("%x-%x", m.StartAddr, m.EndAddr),
		}
	}
	return out, nil
}
