package helpers

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// serviceHook stamps every entry with the process name and environment.
type serviceHook struct {
	fields logrus.Fields
}

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	for k, v := range h.fields {
		if _, ok := e.Data[k]; !ok {
			e.Data[k] = v
		}
	}
	return nil
}

// NewLogger logs text at debug level in development and JSON at info
// level everywhere else.
func NewLogger(appName, env string) *logrus.Logger {
	return newLogger(os.Stdout, appName, env)
}

func newLogger(w io.Writer, appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.AddHook(serviceHook{fields: logrus.Fields{"app": appName, "env": env}})
	logger.Debug("logger initialized")
	return logger
}

func entry(logger *logrus.Logger, fields logrus.Fields) *logrus.Entry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(fields)
}

// LogError logs msg with err under the "error" key. fields is not modified.
func LogError(logger *logrus.Logger, msg string, err error, fields logrus.Fields) {
	e := entry(logger, fields)
	if err != nil {
		e = e.WithField("error", err.Error())
	}
	e.Error(msg)
}

func LogInfo(logger *logrus.Logger, msg string, fields logrus.Fields) {
	entry(logger, fields).Info(msg)
}
