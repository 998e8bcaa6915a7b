package mocks

import (
	"fmt"
	"sync"
)

// MockPrompter answers interactive prompts from canned responses keyed by label.
type MockPrompter struct {
	lock sync.Mutex

	SelectResponses  map[string]string
	ConfirmResponses map[string]bool
	IntResponses     map[string]int
	StringResponses  map[string]string
	FailPrompts      map[string]error
	CallLog          []string
}

// NewMockPrompter creates an empty prompter. Unanswered prompts return the
// default value offered by the caller.
func NewMockPrompter() *MockPrompter {
	return &MockPrompter{
		SelectResponses:  make(map[string]string),
		ConfirmResponses: make(map[string]bool),
		IntResponses:     make(map[string]int),
		StringResponses:  make(map[string]string),
		FailPrompts:      make(map[string]error),
	}
}

func (prompter *MockPrompter) record(kind, label string) error {
	prompter.lock.Lock()
	defer prompter.lock.Unlock()
	prompter.CallLog = append(prompter.CallLog, fmt.Sprintf("%s: %s", kind, label))
	return prompter.FailPrompts[label]
}

func (prompter *MockPrompter) Select(label string, items []string, current string) (string, error) {
	if err := prompter.record("Select", label); err != nil {
		return "", err
	}
	if response, found := prompter.SelectResponses[label]; found {
		return response, nil
	}
	return current, nil
}

func (prompter *MockPrompter) Confirm(label string, current bool) (bool, error) {
	if err := prompter.record("Confirm", label); err != nil {
		return false, err
	}
	if response, found := prompter.ConfirmResponses[label]; found {
		return response, nil
	}
	return current, nil
}

func (prompter *MockPrompter) Int(label string, current, minimum, maximum int) (int, error) {
	if err := prompter.record("Int", label); err != nil {
		return 0, err
	}
	if response, found := prompter.IntResponses[label]; found {
		if response < minimum || response > maximum {
			return 0, fmt.Errorf("%s must be between %d and %d", label, minimum, maximum)
		}
		return response, nil
	}
	return current, nil
}

func (prompter *MockPrompter) String(label string, current string) (string, error) {
	if err := prompter.record("String", label); err != nil {
		return "", err
	}
	if response, found := prompter.StringResponses[label]; found {
		return response, nil
	}
	return current, nil
}
