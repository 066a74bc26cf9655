package rebalance

import "sync"

type State string

type Event string

const (
	StateIdle       State = "IDLE"
	StateEvaluating State = "EVALUATING"
	StateBuying     State = "BUYING"
	StateSelling    State = "SELLING"
	StateSkipped    State = "SKIPPED"
)

const (
	EventEvaluate Event = "EVALUATE"
	EventBuy      Event = "BUY"
	EventSell     Event = "SELL"
	EventSkip     Event = "SKIP"
	EventDone     Event = "DONE"
)

type StateMachine struct {
	mu    sync.Mutex
	State State
}

func NewStateMachine() *StateMachine {
	return &StateMachine{State: StateIdle}
}

func (s *StateMachine) Apply(event Event) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = nextState(s.State, event)
	return s.State
}

func (s *StateMachine) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func nextState(current State, event Event) State {
	switch current {
	case StateIdle:
		if event == EventEvaluate {
			return StateEvaluating
		}
	case StateEvaluating:
		switch event {
		case EventBuy:
			return StateBuying
		case EventSell:
			return StateSelling
		case EventSkip:
			return StateSkipped
		}
	case StateBuying, StateSelling, StateSkipped:
		if event == EventDone {
			return StateIdle
		}
	}
	return current
}
