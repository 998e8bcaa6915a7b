package ui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// Prompter asks the user for values. Every method offers the current value
// as the default.
type Prompter interface {
	Select(label string, items []string, current string) (string, error)
	Confirm(label string, current bool) (bool, error)
	Int(label string, current, minimum, maximum int) (int, error)
	String(label string, current string) (string, error)
}

// TerminalPrompter implements Prompter with promptui.
type TerminalPrompter struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewTerminalPrompter creates a prompter bound to the given streams; nil
// streams fall back to the process stdin and stdout.
func NewTerminalPrompter(stdin io.ReadCloser, stdout io.WriteCloser) *TerminalPrompter {
	return &TerminalPrompter{stdin: stdin, stdout: stdout}
}

func (prompter *TerminalPrompter) Select(label string, items []string, current string) (string, error) {
	cursor := 0
	for index, item := range items {
		if item == current {
			cursor = index
			break
		}
	}
	selection := promptui.Select{
		Label:     label,
		Items:     items,
		CursorPos: cursor,
		Size:      len(items),
		Stdin:     prompter.stdin,
		Stdout:    prompter.stdout,
	}
	_, value, err := selection.Run()
	return value, err
}

func (prompter *TerminalPrompter) Confirm(label string, current bool) (bool, error) {
	defaultAnswer := "n"
	if current {
		defaultAnswer = "y"
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   defaultAnswer,
		Stdin:     prompter.stdin,
		Stdout:    prompter.stdout,
	}
	answer, err := prompt.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return current, nil
	}
	return answer == "y" || answer == "yes", nil
}

func (prompter *TerminalPrompter) Int(label string, current, minimum, maximum int) (int, error) {
	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("%s (%d-%d)", label, minimum, maximum),
		Default:   strconv.Itoa(current),
		AllowEdit: true,
		Validate:  intRangeValidator(minimum, maximum),
		Stdin:     prompter.stdin,
		Stdout:    prompter.stdout,
	}
	answer, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(answer))
}

func (prompter *TerminalPrompter) String(label string, current string) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   current,
		AllowEdit: true,
		Stdin:     prompter.stdin,
		Stdout:    prompter.stdout,
	}
	answer, err := prompt.Run()
	return strings.TrimSpace(answer), err
}

func intRangeValidator(minimum, maximum int) promptui.ValidateFunc {
	return func(input string) error {
		value, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil {
			return errors.New("invalid number")
		}
		if value < minimum || value > maximum {
			return fmt.Errorf("must be between %d and %d", minimum, maximum)
		}
		return nil
	}
}
