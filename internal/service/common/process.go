//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-ps"
)

// RunningProcesses returns which of names match a running process executable,
// ignoring case and the current process.
func RunningProcesses(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	wanted := make(map[string]string, len(names))
	for _, name := range names {
		wanted[strings.ToLower(name)] = name
	}

	processList, err := ps.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()
	found := make([]string, 0, len(names))

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		key := strings.ToLower(process.Executable())

		name, ok := wanted[key]
		if !ok {
			continue
		}

		found = append(found, name)
		delete(wanted, key)
	}

	return found, nil
}
