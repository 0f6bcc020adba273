// Package plog is a small labelled logger on top of klog.
package plog

import (
	"fmt"

	"github.com/plan-systems/klog"
)

// Logger abstracts the logging calls made by propbag and its tools.
//
// Verbose level conventions:
//
//  0. Enabled in production. Use for important high-level events.
//  1. Enabled during testing and development.
//  2. Enabled during low-level debugging.
type Logger interface {
	Label() string
	Info(verboseLevel int32, args ...interface{})
	Infof(verboseLevel int32, format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type logger struct {
	label  string
	prefix string
}

// New returns a Logger writing through klog. Every entry is prefixed with "[label] "
// when label is non-empty.
func New(label string) Logger {
	l := &logger{label: label}
	if label != "" {
		l.prefix = fmt.Sprintf("[%s] ", label)
	}
	return l
}

func (l *logger) Label() string {
	return l.label
}

// Info logs to the INFO log. Arguments are handled like fmt.Print.
func (l *logger) Info(verboseLevel int32, args ...interface{}) {
	if verboseLevel == 0 {
		klog.InfoDepth(1, l.prefix+fmt.Sprint(args...))
		return
	}
	klog.V(klog.Level(verboseLevel)).Info(l.prefix + fmt.Sprint(args...))
}

// Infof logs to the INFO log. Arguments are handled like fmt.Printf.
func (l *logger) Infof(verboseLevel int32, format string, args ...interface{}) {
	if verboseLevel == 0 {
		klog.InfoDepth(1, l.prefix+fmt.Sprintf(format, args...))
		return
	}
	klog.V(klog.Level(verboseLevel)).Info(l.prefix + fmt.Sprintf(format, args...))
}

// Warnf logs to the WARNING and INFO logs.
//
// Warnings are for inconsistencies that do not break expected behavior, such as a
// corrupted document that was refused.
func (l *logger) Warnf(format string, args ...interface{}) {
	klog.WarningDepth(1, l.prefix+fmt.Sprintf(format, args...))
}

// Errorf logs to the ERROR, WARNING, and INFO logs.
func (l *logger) Errorf(format string, args ...interface{}) {
	klog.ErrorDepth(1, l.prefix+fmt.Sprintf(format, args...))
}

type nop struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Label() string { return "" }
func (nop) Info(int32, ...interface{}) {}
func (nop) Infof(int32, string, ...interface{}) {}
func (nop) Warnf(string, ...interface{}) {}
func (nop) Errorf(string, ...interface{}) {}
