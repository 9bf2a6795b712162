// Package logger provides a minimal leveled logger with per-component tags.
package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(INFO))
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
}

// SetLevel sets the global minimum log level.
func SetLevel(l Level) {
	currentLevel.Store(int32(l))
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

func logf(l Level, component, msg string, fields map[string]any) {
	if l < Level(currentLevel.Load()) {
		return
	}
	if len(fields) == 0 {
		log.Printf("[%s] [%s] %s", l, component, msg)
		return
	}
	// Fields are rendered as a single JSON object so log lines stay greppable.
	enc, err := json.Marshal(fields)
	if err != nil {
		enc = fmt.Appendf(nil, "%v", fields)
	}
	log.Printf("[%s] [%s] %s %s", l, component, msg, enc)
}

func DebugC(component, msg string)                    { logf(DEBUG, component, msg, nil) }
func DebugCF(component, msg string, f map[string]any) { logf(DEBUG, component, msg, f) }
func InfoC(component, msg string)                     { logf(INFO, component, msg, nil) }
func InfoCF(component, msg string, f map[string]any)  { logf(INFO, component, msg, f) }
func WarnC(component, msg string)                     { logf(WARN, component, msg, nil) }
func WarnCF(component, msg string, f map[string]any)  { logf(WARN, component, msg, f) }
func ErrorC(component, msg string)                    { logf(ERROR, component, msg, nil) }
func ErrorCF(component, msg string, f map[string]any) { logf(ERROR, component, msg, f) }
