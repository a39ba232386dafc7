package slider

// Event identifies a value change emitted while dragging
type Event int

const (
	LowerChanged Event = iota
	MiddleChanged
	UpperChanged
	ValueChanged
)

func (e Event) String() string {
	switch e {
	case LowerChanged:
		return "lower_changed"
	case MiddleChanged:
		return "middle_changed"
	case UpperChanged:
		return "upper_changed"
	case ValueChanged:
		return "value_changed"
	default:
		return "unknown"
	}
}

// Listener receives drag events in the order they were emitted
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

type listeners struct {
	next int
	subs []subscription
}

func (l *listeners) add(fn Listener) func() {
	l.next++
	id := l.next
	l.subs = append(l.subs, subscription{id: id, fn: fn})
	return func() {
		for i, s := range l.subs {
			if s.id == id {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

func (l *listeners) emit(events []Event) {
	for _, ev := range events {
		for _, s := range l.subs {
			s.fn(ev)
		}
	}
}
