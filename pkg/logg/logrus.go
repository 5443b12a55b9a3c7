package logg

import (
	"io"

	lr "github.com/sirupsen/logrus"
)

const prefixFieldName = "prefix"

// Logrus logg implementation
type LogrusLogg struct {
	ent *lr.Entry
}

func NewLogrusLogg(logrusInput interface{}) *LogrusLogg {
	return &LogrusLogg{ent: getEntry(logrusInput)}
}

func (l *LogrusLogg) Output() io.Writer {
	return l.ent.Logger.Out
}

func (l *LogrusLogg) SetOutput(output io.Writer) {
	l.ent.Logger.SetOutput(output)
}

func (l *LogrusLogg) Data() (result Fields) {
	result = make(Fields, len(l.ent.Data))
	for key, value := range l.ent.Data {
		result[key] = value
	}
	return
}

func (l *LogrusLogg) Level() Level {
	return NewLevelFromValue(l.ent.Logger.Level.String())
}

func (l *LogrusLogg) WithPrefix(prefix string) Logg {
	return l.spawnMe(l.ent.WithField(prefixFieldName, prefix))
}

func (l *LogrusLogg) WithError(err error) Logg {
	return l.spawnMe(l.ent.WithError(err))
}

func (l *LogrusLogg) WithField(key string, value interface{}) Logg {
	return l.spawnMe(l.ent.WithField(key, value))
}

func (l *LogrusLogg) WithFields(fields Fields) Logg {
	newFields := make(lr.Fields, len(fields))
	for key := range fields {
		newFields[key] = fields[key]
	}
	return l.spawnMe(l.ent.WithFields(newFields))
}

func (l *LogrusLogg) Tracef(format string, args ...interface{}) {
	l.ent.Tracef(format, args...)
}

func (l *LogrusLogg) Debugf(format string, args ...interface{}) {
	l.ent.Debugf(format, args...)
}

func (l *LogrusLogg) Infof(format string, args ...interface{}) {
	l.ent.Infof(format, args...)
}

func (l *LogrusLogg) Warnf(format string, args ...interface{}) {
	l.ent.Warnf(format, args...)
}

func (l *LogrusLogg) Errorf(format string, args ...interface{}) {
	l.ent.Errorf(format, args...)
}

func (l *LogrusLogg) Trace(args ...interface{}) {
	l.ent.Trace(args...)
}

func (l *LogrusLogg) Debug(args ...interface{}) {
	l.ent.Debug(args...)
}

func (l *LogrusLogg) Info(args ...interface{}) {
	l.ent.Info(args...)
}

func (l *LogrusLogg) Warn(args ...interface{}) {
	l.ent.Warn(args...)
}

func (l *LogrusLogg) Error(args ...interface{}) {
	l.ent.Error(args...)
}

func (l *LogrusLogg) spawnMe(entry *lr.Entry) *LogrusLogg {
	return &LogrusLogg{ent: entry}
}

func getEntry(logrusInput interface{}) (result *lr.Entry) {
	switch logrusHmm := logrusInput.(type) {
	case *lr.Logger:
		result = lr.NewEntry(logrusHmm)
	case lr.Logger:
		result = lr.NewEntry(&logrusHmm)
	case lr.Entry:
		result = &logrusHmm
	case *lr.Entry:
		result = logrusHmm
	case *LogrusLogg:
		result = logrusHmm.ent
	case LogrusLogg:
		result = logrusHmm.ent
	default:
		panic("invalid object")
	}
	return
}
