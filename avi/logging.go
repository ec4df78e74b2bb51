package avi

import "github.com/sirupsen/logrus"

// Log is the package-level logger used for diagnostic events the caller has
// no other way to observe: RIFF rollover, standard-index flushes, and
// super-index exhaustion warnings. Replace it with SetLogger if the host
// application wants these folded into its own logging pipeline.
var Log = logrus.StandardLogger()

// SetLogger overrides the package-level logger.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		Log = l
	}
}

// logFields is a local alias so callers don't import logrus just to build
// structured fields.
type logFields = logrus.Fields
