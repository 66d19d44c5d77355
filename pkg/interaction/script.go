// pkg/interaction/script.go

package interaction

import (
	"context"

	cerr "github.com/cockroachdb/errors"
)

// ScriptedPrompter replays canned answers in order. It records every prompt
// it was asked, which lets tests assert on the exact interaction sequence.
// An empty scripted answer selects the caller's default, mirroring how an
// operator accepts a default by pressing enter.
type ScriptedPrompter struct {
	Answers []string
	Asked   []string
	pos     int
}

func NewScriptedPrompter(answers ...string) *ScriptedPrompter {
	return &ScriptedPrompter{Answers: answers}
}

func (s *ScriptedPrompter) next(prompt string) (string, error) {
	s.Asked = append(s.Asked, prompt)
	if s.pos >= len(s.Answers) {
		return "", cerr.Newf("scripted prompter exhausted after %d answer(s), asked: %q", len(s.Answers), prompt)
	}
	answer := s.Answers[s.pos]
	s.pos++
	return answer, nil
}

func (s *ScriptedPrompter) Confirm(_ context.Context, prompt string, def bool) (bool, error) {
	input, err := s.next(prompt)
	if err != nil {
		return def, err
	}
	if answer, ok := NormalizeYesNoInput(input); ok {
		return answer, nil
	}
	return def, nil
}

func (s *ScriptedPrompter) ReadValue(_ context.Context, prompt, def string) (string, error) {
	input, err := s.next(prompt)
	if err != nil {
		return def, err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}

func (s *ScriptedPrompter) ReadSecret(_ context.Context, prompt string) (string, error) {
	return s.next(prompt)
}
