package tui

// TUI package provides the interactive terminal pieces of the ask command:
//   - Arrow-key menu selection (raw mode via x/term), numbered fallback
//   - Hidden input for credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// =============================================================================
// COLORS
// =============================================================================

const (
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
	ColorGreen  = "\033[0;32m"
	ColorCyan   = "\033[0;36m"
	ColorYellow = "\033[1;33m"
)

// ErrCancelled is returned when the user leaves a menu without choosing.
var ErrCancelled = errors.New("cancelled")

// =============================================================================
// MENU SELECTION
// =============================================================================

// MenuItem represents an item in a menu.
type MenuItem struct {
	Label       string // Display label
	Description string // Optional description
	Value       string // Return value (if different from label)
}

// key is a decoded keypress.
type key int

const (
	keyOther key = iota
	keyUp
	keyDown
	keyEnter
	keyCancel
)

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// SelectMenu displays a menu and returns the selected index.
// On a terminal it uses arrow keys; otherwise it reads a number from stdin.
func SelectMenu(prompt string, items []MenuItem) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select")
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return selectNumbered(os.Stdin, os.Stdout, prompt, items)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return selectNumbered(os.Stdin, os.Stdout, prompt, items)
	}
	defer term.Restore(fd, oldState)

	fmt.Print("\033[?25l")       // hide cursor
	defer fmt.Print("\033[?25h") // show cursor on exit

	return selectArrow(bufio.NewReader(os.Stdin), os.Stdout, prompt, items)
}

// selectArrow runs the arrow-key loop. The terminal must already be in raw mode.
func selectArrow(in *bufio.Reader, out io.Writer, prompt string, items []MenuItem) (int, error) {
	selected := 0
	totalLines := 3 + len(items) + 2 // prompt + blank + items + blank + help
	first := true

	render := func() {
		if !first {
			fmt.Fprintf(out, "\033[%dA", totalLines)
		}
		first = false
		fmt.Fprintf(out, "\033[2K\r\n%s%s%s%s\r\n\r\n", ColorBold, ColorCyan, prompt, ColorReset)
		for i, item := range items {
			fmt.Fprint(out, "\033[2K\r")
			if i == selected {
				fmt.Fprintf(out, "  %s❯%s %s%s%s", ColorGreen, ColorReset, ColorBold, item.Label, ColorReset)
			} else {
				fmt.Fprintf(out, "    %s", item.Label)
			}
			if item.Description != "" {
				fmt.Fprintf(out, " %s- %s%s", ColorDim, item.Description, ColorReset)
			}
			fmt.Fprint(out, "\r\n")
		}
		fmt.Fprintf(out, "\033[2K\r\n  %s[↑/↓] Navigate  [Enter] Select  [q/Esc] Cancel%s\r\n", ColorDim, ColorReset)
	}
	erase := func() {
		fmt.Fprintf(out, "\033[%dA", totalLines)
		for i := 0; i < totalLines; i++ {
			fmt.Fprint(out, "\033[2K\r\n")
		}
		fmt.Fprintf(out, "\033[%dA", totalLines)
	}

	render()
	for {
		k, err := readKey(in)
		if err != nil {
			return -1, err
		}
		switch k {
		case keyUp:
			if selected > 0 {
				selected--
			}
			render()
		case keyDown:
			if selected < len(items)-1 {
				selected++
			}
			render()
		case keyEnter:
			erase()
			return selected, nil
		case keyCancel:
			erase()
			return -1, ErrCancelled
		}
	}
}

// readKey decodes one keypress: arrows, vim j/k, Enter, q/Esc/Ctrl-C.
func readKey(in *bufio.Reader) (key, error) {
	b, err := in.ReadByte()
	if err != nil {
		return keyOther, err
	}
	switch b {
	case 'k':
		return keyUp, nil
	case 'j':
		return keyDown, nil
	case '\r', '\n':
		return keyEnter, nil
	case 'q', 3: // q or Ctrl-C
		return keyCancel, nil
	case 27: // Escape, possibly the start of an arrow sequence
		if in.Buffered() == 0 {
			return keyCancel, nil
		}
		next, _ := in.ReadByte()
		if next != '[' {
			return keyCancel, nil
		}
		arrow, _ := in.ReadByte()
		switch arrow {
		case 'A':
			return keyUp, nil
		case 'B':
			return keyDown, nil
		}
	}
	return keyOther, nil
}

// selectNumbered is a fallback for non-interactive terminals.
func selectNumbered(in io.Reader, out io.Writer, prompt string, items []MenuItem) (int, error) {
	fmt.Fprintf(out, "\n%s%s%s%s\n\n", ColorBold, ColorCyan, prompt, ColorReset)

	for i, item := range items {
		fmt.Fprintf(out, "  %s[%d]%s %s", ColorGreen, i+1, ColorReset, item.Label)
		if item.Description != "" {
			fmt.Fprintf(out, " %s- %s%s", ColorDim, item.Description, ColorReset)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "  %s[0]%s Cancel\n\n", ColorYellow, ColorReset)

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Enter number: ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		if input == "0" || input == "q" {
			return -1, ErrCancelled
		}

		var num int
		if _, scanErr := fmt.Sscanf(input, "%d", &num); scanErr == nil && num >= 1 && num <= len(items) {
			return num - 1, nil
		}
		if err != nil {
			return -1, err
		}
		fmt.Fprintf(out, "Invalid choice. Enter 1-%d or 0 to cancel.\n", len(items))
	}
}

// =============================================================================
// PROMPTS
// =============================================================================

// PromptPassword prompts for a secret (hidden input on a terminal).
func PromptPassword(prompt string) string {
	fmt.Print(prompt)

	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println() // New line after hidden input
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
