package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type LogStatus int

const (
	VERBOSE LogStatus = iota
	DEBUG
	INFO
	SUCCESS
	NEW
	REMOVE
	STOP
	WARNING
	ERROR
	FATAL
)

func (e LogStatus) String() string {
	return []string{
		"V",
		"D",
		"I",
		"✓",
		"+",
		"-",
		"X",
		"!",
		"!!",
		"PANIC",
	}[e]
}

func (e LogStatus) Color() *color.Color {
	return []*color.Color{
		color.New(color.FgWhite, color.Faint),                 //Verbose
		color.New(color.FgWhite, color.Italic),                //Debug
		color.New(color.FgWhite),                              //Info
		color.New(color.FgHiGreen),                            //Success
		color.New(color.FgGreen, color.Italic),                //New
		color.New(color.FgYellow, color.Italic),               //Remove
		color.New(color.FgHiYellow),                           //Stop
		color.New(color.FgYellow, color.Underline),            //Warning
		color.New(color.FgHiRed, color.Bold),                  //Error
		color.New(color.FgHiRed, color.Bold, color.Underline), //PANIC
	}[e]
}

// Level returns the numeric level of the status, suitable for
// use with SetMinLoggingLevel.
func (e LogStatus) Level() int { return int(e) }

type Logger interface {
	Emit(LogStatus, string, ...any)
	Verbosef(string, ...any)
	Debugf(string, ...any)
	Infof(string, ...any)
	Warnf(string, ...any)
	Errorf(string, ...any)

	// Printf and Fatalf allow a Logger to be handed to libraries
	// which expect a printf-style logger (e.g. goose).
	Printf(string, ...any)
	Fatalf(string, ...any)
}

type loggerImpl struct {
	name string
}

func (l *loggerImpl) Emit(status LogStatus, message string, interpolations ...any) {
	Log.Emit(status, l.name, message, interpolations...)
}

func (l *loggerImpl) Verbosef(message string, args ...any) { l.Emit(VERBOSE, message, args...) }
func (l *loggerImpl) Debugf(message string, args ...any)   { l.Emit(DEBUG, message, args...) }
func (l *loggerImpl) Infof(message string, args ...any)    { l.Emit(INFO, message, args...) }
func (l *loggerImpl) Warnf(message string, args ...any)    { l.Emit(WARNING, message, args...) }
func (l *loggerImpl) Errorf(message string, args ...any)   { l.Emit(ERROR, message, args...) }
func (l *loggerImpl) Printf(message string, args ...any)   { l.Emit(INFO, message, args...) }

func (l *loggerImpl) Fatalf(message string, args ...any) {
	l.Emit(FATAL, message, args...)
	os.Exit(1)
}

type LoggerManager interface {
	GetLogger(string) Logger
	Emit(LogStatus, string, string, ...any)
}

var Log LoggerManager = &loggerMgr{
	offset:   0,
	minLevel: INFO,
}

type loggerMgr struct {
	sync.Mutex
	offset   int
	minLevel LogStatus
}

func (l *loggerMgr) GetLogger(name string) Logger {
	return &loggerImpl{name: name}
}

func (l *loggerMgr) Emit(status LogStatus, name string, message string, interpolations ...any) {
	l.Lock()
	defer l.Unlock()
	if status < l.minLevel {
		return
	}

	if len(name) > l.offset {
		l.offset = len(name)
	}

	padding := strings.Repeat(" ", l.offset-len(name))
	msg := fmt.Sprintf("[%s] %s(%s) %s", name, padding, status, fmt.Sprintf(message, interpolations...))
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	status.Color().Print(msg)
}

func (l *loggerMgr) setMinLevel(level LogStatus) {
	l.Lock()
	defer l.Unlock()
	l.minLevel = level
}

// SetMinLoggingLevel suppresses all log lines with a status
// below the level provided. Levels outside of the known range
// are clamped.
func SetMinLoggingLevel(level int) {
	mgr, ok := Log.(*loggerMgr)
	if !ok {
		return
	}

	if level < VERBOSE.Level() {
		level = VERBOSE.Level()
	} else if level > FATAL.Level() {
		level = FATAL.Level()
	}

	mgr.setMinLevel(LogStatus(level))
}

// ParseLevel converts a level name (e.g. "debug", "WARNING") in to
// the matching LogStatus. Unknown names return INFO and false.
func ParseLevel(name string) (LogStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "VERBOSE":
		return VERBOSE, true
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARNING", "WARN":
		return WARNING, true
	case "ERROR":
		return ERROR, true
	}

	return INFO, false
}

func Get(name string) Logger {
	return Log.GetLogger(name)
}
