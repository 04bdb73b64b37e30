package realtime

import (
	"sort"
)

// Command is work queued for the driver goroutine. Commands are how other
// goroutines reach the machine: they run at the start of the next tick,
// before Update.
type Command func()

// CommandWithMeta adds sequencing metadata for deterministic ordering
type CommandWithMeta struct {
	Command     Command
	SequenceNum uint64
	Priority    int
}

// sortCommands orders commands deterministically: higher priority first,
// then earlier sequence number.
func sortCommands(cmds []CommandWithMeta) {
	sort.SliceStable(cmds, func(i, j int) bool {
		if cmds[i].Priority != cmds[j].Priority {
			return cmds[i].Priority > cmds[j].Priority
		}
		return cmds[i].SequenceNum < cmds[j].SequenceNum
	})
}
