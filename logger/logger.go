package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetupLogger ENV=DEBUG 时打开 debug 日志
func SetupLogger() {
	if os.Getenv("ENV") == "DEBUG" {
		log.SetLevel(logrus.DebugLevel)
	}
}

// SetLevel 命令行可以通过参数调整日志级别
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

// IsDebug 是否输出 debug 日志
func IsDebug() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

// WithFields 附带结构化字段
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

func Debug(args ...interface{}) {
	log.Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Info(args ...interface{}) {
	log.Info(args...)
}

func Infoln(args ...interface{}) {
	log.Infoln(args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warn(args ...interface{}) {
	log.Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

func Error(args ...interface{}) {
	log.Error(args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}
