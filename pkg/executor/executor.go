// Package executor provides execution environments for commands: the local
// machine and remote machines over SSH. Commands are executed
// asynchronously and tracked through TaskHandle instances.
package executor

// Executor is responsible for creating execution environment for given command.
// It returns a TaskHandle when the command started gracefully.
// The command is executed asynchronously.
type Executor interface {
	// Execute executes command on underlying platform.
	Execute(command string) (TaskHandle, error)
	// Name returns user-friendly name of executor.
	Name() string
}
