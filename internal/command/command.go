// Package command executes the cluster-automation backend's commands as
// local subprocesses.
//
// The backend protocol (list, launch, destroy, reset, info, scp, run,
// change_config) is expressed as a typed Command built by the constructors
// below instead of formatted shell strings, so bridge logic never touches
// quoting and the protocol can be exercised against a fake Runner in tests.
package command

import (
	"strconv"
	"strings"
)

// tool is the automation backend binary driven by every Command.
const tool = "ctool"

// Op identifies one operation of the backend protocol.
type Op string

const (
	OpList         Op = "list"
	OpLaunch       Op = "launch"
	OpDestroy      Op = "destroy"
	OpReset        Op = "reset"
	OpInfo         Op = "info"
	OpCopy         Op = "scp"
	OpRun          Op = "run"
	OpChangeConfig Op = "change_config"
	// OpRaw marks a command that bypasses the backend protocol entirely.
	OpRaw Op = "raw"
)

// Command is one fully-built backend invocation.
type Command struct {
	op   Op
	argv []string
}

// Op returns the protocol operation this command performs.
func (c Command) Op() Op { return c.op }

// Argv returns the complete argument vector, program name first.
func (c Command) Argv() []string { return c.argv }

// String renders the command for logs.
func (c Command) String() string { return strings.Join(c.argv, " ") }

// List builds the list-known-clusters query.
func List() Command {
	return Command{op: OpList, argv: []string{tool, "list"}}
}

// Launch builds the provision command for a cluster of nodeCount nodes.
func Launch(cluster string, nodeCount int) Command {
	return Command{op: OpLaunch, argv: []string{tool, "launch", cluster, strconv.Itoa(nodeCount)}}
}

// Destroy builds the deallocate command for a cluster.
func Destroy(cluster string) Command {
	return Command{op: OpDestroy, argv: []string{tool, "destroy", cluster}}
}

// Reset builds the wipe-to-clean-state command for a cluster.
func Reset(cluster string) Command {
	return Command{op: OpReset, argv: []string{tool, "reset", cluster}}
}

// Info builds the host-list query for a cluster.
func Info(cluster string) Command {
	return Command{op: OpInfo, argv: []string{tool, "info", cluster, "--hosts"}}
}

// NodeSelector addresses the target nodes of a Copy or RunRemote.
type NodeSelector string

// AllNodes addresses every node of the cluster.
const AllNodes NodeSelector = "all"

// Node addresses a single node by zero-based ordinal.
func Node(ordinal int) NodeSelector {
	return NodeSelector(strconv.Itoa(ordinal))
}

// CopyTo builds the file transfer from the local src to dst on the selected
// nodes.
func CopyTo(cluster string, nodes NodeSelector, localSrc, remoteDst string) Command {
	return Command{op: OpCopy, argv: []string{tool, "scp", cluster, string(nodes), localSrc, remoteDst}}
}

// CopyFrom builds the file transfer from src on the selected nodes down to
// the local dst. Directories are copied recursively.
func CopyFrom(cluster string, nodes NodeSelector, remoteSrc, localDst string) Command {
	return Command{op: OpCopy, argv: []string{tool, "scp", "-r", cluster, string(nodes), localDst, remoteSrc}}
}

// RunRemote builds the run-on-nodes command for an arbitrary remote command
// line, executed on every selected node.
func RunRemote(cluster string, nodes NodeSelector, remote string) Command {
	return Command{op: OpRun, argv: []string{tool, "run", cluster, string(nodes), remote}}
}

// ChangeConfig builds one configuration-override command for every node.
func ChangeConfig(cluster, key, value string) Command {
	return Command{
		op:   OpChangeConfig,
		argv: []string{tool, "change_config", cluster, "all", "--k", key, "--value", value},
	}
}

// Raw wraps an arbitrary argv as a Command, outside the backend protocol.
// Used by tests and by local helper invocations.
func Raw(argv ...string) Command {
	if len(argv) == 0 {
		panic("command: Raw requires at least a program name")
	}
	return Command{op: OpRaw, argv: argv}
}
