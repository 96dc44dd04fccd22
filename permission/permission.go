package permission

import "os"

// Result is the outcome of a grant request.
type Result struct {
	Granted bool
	Message string
}

// Checker reports whether the process may use the Bluetooth radio.
type Checker interface {
	CheckGranted() bool
	RequestGrant() Result
}

// Process grants radio access to privileged processes. BlueZ discovery
// needs root (or CAP_NET_ADMIN); demo mode never touches the radio.
type Process struct {
	Demo bool

	// euid is swapped out in tests.
	euid func() int
}

// NewProcess returns a Checker for the running process.
func NewProcess(demo bool) *Process {
	return &Process{Demo: demo, euid: os.Geteuid}
}

// CheckGranted reports whether scanning is allowed without prompting.
func (p *Process) CheckGranted() bool {
	if p.Demo {
		return true
	}
	return p.euid() == 0
}

// RequestGrant cannot elevate a running process, so it only explains how to.
func (p *Process) RequestGrant() Result {
	if p.CheckGranted() {
		return Result{Granted: true, Message: "permission granted"}
	}
	return Result{
		Granted: false,
		Message: "bluetooth scanning requires root: run with sudo, or try --demo",
	}
}

// Static is a Checker with a fixed answer.
type Static struct {
	Granted bool
	Message string
}

func (s Static) CheckGranted() bool { return s.Granted }

func (s Static) RequestGrant() Result {
	return Result{Granted: s.Granted, Message: s.Message}
}
