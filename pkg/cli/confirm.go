package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm asks question on out and reads a yes/no answer from in. Only
// "y", "ye" and "yes" (any case) confirm; end of input counts as no.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [yes/no]: ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "ye", "yes":
		return true, nil
	}
	return false, nil
}
