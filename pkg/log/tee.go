package log

// Tee returns a Logger that hands every event to each non-nil sink in
// order. With no sinks it returns NoopLogger, and with one it returns that
// sink unchanged.
func Tee(sinks ...Logger) Logger {
	var live tee
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return NoopLogger{}
	case 1:
		return live[0]
	}
	return live
}

type tee []Logger

func (t tee) Log(event Event) {
	for _, s := range t {
		s.Log(event)
	}
}
