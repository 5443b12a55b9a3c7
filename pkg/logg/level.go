package logg

type Level int

const (
	Panic Level = iota
	Fatal
	Error
	Warning
	Info
	Debug
	Trace
)

func Levels() []Level {
	return []Level{
		Panic,
		Fatal,
		Error,
		Warning,
		Info,
		Debug,
		Trace,
	}
}

func (i Level) Value() string {
	switch i {
	case Panic:
		return "panic"
	case Fatal:
		return "fatal"
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Debug:
		return "debug"
	case Trace:
		return "trace"
	}
	return "unknown"
}

func NewLevelFromValue(val string) Level {
	for _, e := range Levels() {
		if e.Value() == val {
			return e
		}
	}
	panic("unknown level: " + val)
}

func ValidLevelValues() (result []string) {
	levels := Levels()
	result = make([]string, len(levels))
	for i := range levels {
		result[i] = levels[i].Value()
	}
	return
}
