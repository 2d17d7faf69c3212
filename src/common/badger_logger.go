package common

import "github.com/sirupsen/logrus"

// BadgerLogger routes badger's internal logs to logrus. Badger is chatty at
// info level, so info is demoted to debug.
type BadgerLogger struct {
	entry *logrus.Entry
}

// NewBadgerLogger returns a badger logger writing to entry.
func NewBadgerLogger(entry *logrus.Entry) *BadgerLogger {
	return &BadgerLogger{entry.WithField("component", "badger")}
}

func (l *BadgerLogger) Errorf(f string, v ...interface{})   { l.entry.Errorf(f, v...) }
func (l *BadgerLogger) Warningf(f string, v ...interface{}) { l.entry.Warnf(f, v...) }
func (l *BadgerLogger) Infof(f string, v ...interface{})    { l.entry.Debugf(f, v...) }
func (l *BadgerLogger) Debugf(f string, v ...interface{})   { l.entry.Debugf(f, v...) }
