package pbkernel

import "github.com/sirupsen/logrus"

// defaultLog is the fallback logger used by a PropEngine until SetLogger
// overrides it. Gleaned from operator-lifecycle-manager's
// logrus.WithField(...)-per-component idiom; the teacher itself has no
// structured logging, just log.Fatal calls in its CLI main.
func defaultLog() *logrus.Entry {
	return logrus.WithField("component", "propengine")
}
