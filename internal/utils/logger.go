package utils

import (
	"log"
	"os"
)

// Logger is a simple logger for the application
type Logger struct {
	infoLog  *log.Logger
	errorLog *log.Logger
}

// NewLogger creates a new logger
func NewLogger() *Logger {
	return &Logger{
		infoLog:  log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile),
		errorLog: log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// Named returns a logger whose messages carry a component prefix,
// e.g. "INFO: [accesscontrol] ...".
func (l *Logger) Named(component string) *Logger {
	return &Logger{
		infoLog:  log.New(l.infoLog.Writer(), "INFO: ["+component+"] ", l.infoLog.Flags()),
		errorLog: log.New(l.errorLog.Writer(), "ERROR: ["+component+"] ", l.errorLog.Flags()),
	}
}

// Info logs an informational message
func (l *Logger) Info(format string, v ...interface{}) {
	l.infoLog.Printf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.errorLog.Printf(format, v...)
}
