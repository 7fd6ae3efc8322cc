package process

// Wire commands, parent to child.
const (
	cmdStep byte = 's'
	cmdEnd  byte = 'e'
)

// Yield payloads, child to parent, on the control channel.
const (
	yieldRunning byte = 0
	yieldDone    byte = 1
)
