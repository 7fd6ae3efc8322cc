package process

import (
	"fmt"
	"os"
)

// HostCommand is the hidden subcommand that turns an executable into a program image.
const HostCommand = "host"

// Image is a spawnable program image.
type Image struct {
	Command string
	Args    []string
	Env     []string
	Dir     string
}

// SelfImage returns an image that re-executes the current binary hosting program.
func SelfImage(program string) (Image, error) {
	exe, err := os.Executable()
	if err != nil {
		return Image{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	return Image{
		Command: exe,
		Args:    []string{HostCommand, program},
	}, nil
}

func (img Image) String() string {
	return fmt.Sprintf("%s %v", img.Command, img.Args)
}
