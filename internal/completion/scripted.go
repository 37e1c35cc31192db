package completion

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedResponse is one canned reply for a ScriptedService. When Err is
// non-nil the call fails with that error instead of returning Text.
type ScriptedResponse struct {
	Text string
	Err  error
}

// ScriptedService implements Service with a fixed queue of responses.
// It backs tests and dry runs: calls consume responses in order, and the
// full request log is retained for assertions. When the queue is
// exhausted, Complete returns a deterministic placeholder so long
// multi-step runs do not need an exact call count.
//
// ScriptedService is safe for concurrent use.
type ScriptedService struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	requests  []Request
	calls     int
}

// NewScriptedService creates a ScriptedService with the given responses.
func NewScriptedService(responses ...ScriptedResponse) *ScriptedService {
	return &ScriptedService{responses: responses}
}

// Script appends text-only responses to the queue.
func (s *ScriptedService) Script(texts ...string) *ScriptedService {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range texts {
		s.responses = append(s.responses, ScriptedResponse{Text: t})
	}
	return s
}

// FailNext appends a failing response to the queue.
func (s *ScriptedService) FailNext(err error) *ScriptedService {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, ScriptedResponse{Err: err})
	return s
}

// Complete implements Service.
func (s *ScriptedService) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(req.Messages) == 0 {
		return "", ErrEmptyRequest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	s.calls++

	if len(s.responses) == 0 {
		return fmt.Sprintf("scripted response %d", s.calls), nil
	}

	resp := s.responses[0]
	s.responses = s.responses[1:]
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// Calls returns how many completion calls have been made.
func (s *ScriptedService) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Requests returns a copy of every request seen so far, in call order.
func (s *ScriptedService) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}
