package server

import "strings"

// Command is one parsed client request.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits input into a lower-cased command name and its arguments.
func ParseCommand(input string) *Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Name: "", Args: []string{}}
	}

	return &Command{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

const helpText = "commands: step [n], run, reset [seed], place <row> <col> <tile>, resize <rows> <cols>, snapshot, help, quit"
