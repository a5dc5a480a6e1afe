package display

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/uditkarode/cpu-event-boost/internal/notifier"
)

const chainName = "display"

// Event kinds delivered on the display chain. EarlyEventBlank is published
// before the panel changes power state, EventBlank after it did.
const (
	EarlyEventBlank notifier.Action = iota + 1
	EventBlank
)

type BlankState int

const (
	Unblank BlankState = iota
	Lowpower
	Powerdown
)

func (b BlankState) String() string {
	switch b {
	case Unblank:
		return "unblank"
	case Lowpower:
		return "lowpower"
	case Powerdown:
		return "powerdown"
	default:
		return fmt.Sprintf("BlankState(%d)", int(b))
	}
}

// ParseBlankState is the inverse of BlankState.String.
func ParseBlankState(s string) (BlankState, error) {
	switch s {
	case "unblank":
		return Unblank, nil
	case "lowpower":
		return Lowpower, nil
	case "powerdown":
		return Powerdown, nil
	}
	return 0, fmt.Errorf("unknown blank state %q", s)
}

type Event struct {
	Display int
	Blank   BlankState
}

// Source is the display power event source. Subsystems publish panel
// transitions, interested parties register handlers.
type Source struct {
	chain *notifier.Chain[Event]
	log   logr.Logger
}

func NewSource(log logr.Logger) *Source {
	chain := notifier.NewChain[Event](chainName)
	return &Source{
		chain: chain,
		log:   log.WithName(chain.Name()),
	}
}

func (s *Source) Register(name string, priority int, handler notifier.Handler[Event]) error {
	return s.chain.Register(name, priority, handler)
}

func (s *Source) Unregister(name string) error {
	return s.chain.Unregister(name)
}

// Publish delivers a transition to every handler. Each physical transition is
// expected to be published twice, EarlyEventBlank first.
func (s *Source) Publish(kind notifier.Action, event Event) {
	s.log.V(5).Info("publishing display event", "kind", kind, "blank", event.Blank.String(), "display", event.Display)
	s.chain.Call(kind, event)
}

// PublishTransition publishes both the early and the regular notification for
// one power transition.
func (s *Source) PublishTransition(event Event) {
	s.Publish(EarlyEventBlank, event)
	s.Publish(EventBlank, event)
}

func (s *Source) Close() {
	s.chain.Close()
}
