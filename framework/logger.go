package framework

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is the logging interface used throughout the harness. A *log.Logger satisfies it.
type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Println(args ...interface{})                {}
func (n nullLogger) Printf(message string, args ...interface{}) {}

// NullLogger returns a Logger that discards everything.
func NullLogger() Logger { return nullLogger{} }

type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger records output in memory. The suite runner gives one to every scope it
// runs: a case's logger starts with a copy of what its suite logged so far, and while the case
// is running anything logged at suite level is routed to the case instead.
type CapturingLogger struct {
	output   []CapturedMessage
	children []*CapturingLogger
	lock     sync.Mutex
}

func (l *CapturingLogger) Println(args ...interface{}) {
	l.append(CapturedMessage{Time: time.Now(), Message: strings.TrimSuffix(fmt.Sprintln(args...), "\n")})
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.append(CapturedMessage{Time: time.Now(), Message: fmt.Sprintf(message, args...)})
}

func (l *CapturingLogger) append(m CapturedMessage) {
	l.lock.Lock()
	children := append([]*CapturingLogger(nil), l.children...)
	if len(children) == 0 {
		l.output = append(l.output, m)
	}
	l.lock.Unlock()
	for _, c := range children {
		c.append(m)
	}
}

// Output returns a copy of everything captured so far.
func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append(CapturedOutput(nil), l.output...)
}

// AddChildLogger copies l's output into the start of child's, and routes all further output
// for l to child until RemoveChildLogger is called.
func (l *CapturingLogger) AddChildLogger(child *CapturingLogger) {
	l.lock.Lock()
	l.children = append(l.children, child)
	inherited := append([]CapturedMessage(nil), l.output...)
	l.lock.Unlock()
	child.lock.Lock()
	child.output = append(inherited, child.output...)
	child.lock.Unlock()
}

func (l *CapturingLogger) RemoveChildLogger(child *CapturingLogger) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i, c := range l.children {
		if c == child {
			l.children = append(l.children[:i], l.children[i+1:]...)
			return
		}
	}
}

// ToString formats the output one message per line, each starting with prefix and a timestamp.
func (output CapturedOutput) ToString(prefix string) string {
	lines := make([]string, 0, len(output))
	for _, m := range output {
		lines = append(lines, fmt.Sprintf("%s[%s] %s", prefix, m.Time.Format(timestampFormat), m.Message))
	}
	return strings.Join(lines, "\n")
}

type prefixedLogger struct {
	base   Logger
	prefix string
}

// LoggerWithPrefix returns a Logger that adds prefix to every message before passing it on.
func LoggerWithPrefix(baseLogger Logger, prefix string) Logger {
	return prefixedLogger{baseLogger, prefix}
}

func (p prefixedLogger) Println(args ...interface{}) {
	p.base.Println(append([]interface{}{p.prefix}, args...)...)
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.base.Printf(p.prefix+message, args...)
}
