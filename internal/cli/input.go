package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword; tests replace it to
// avoid touching the terminal.
var readPassword = term.ReadPassword

// getSimpleText prints a prompt to w and reads one line from reader. The
// trailing newline is trimmed; a partial line before EOF is returned.
func getSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// getPIN reads the 4-digit invite PIN from the terminal without echo, so
// it cannot be shoulder-surfed while the creator reads it out.
func getPIN(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Enter PIN: "); err != nil {
		return "", err
	}
	pin, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pin)), nil
}
