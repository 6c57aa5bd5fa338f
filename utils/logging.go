package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logrus.Entry {
	logFields := logrus.NewEntry(logrus.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logrus.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	errColl := []string{}
	for {
		errColl = append(errColl, fmt.Sprint(err))
		nextErr := errors.Unwrap(err)
		if nextErr != nil {
			err = nextErr
		} else {
			break
		}
	}

	errMarkSign := "~"
	for idx := 0; idx < (len(errColl) - 1); idx++ {
		errInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx, errMarkSign)
		nextErrInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx+1, errMarkSign)
		if idx == (len(errColl) - 2) {
			nextErrInfoText = fmt.Sprintf("%serror%s", errMarkSign, errMarkSign)
		}

		// Replace the last occurrence of the next error in the current error
		lastIdx := strings.LastIndex(errColl[idx], errColl[idx+1])
		if lastIdx != -1 {
			errColl[idx] = errColl[idx][:lastIdx] + nextErrInfoText + errColl[idx][lastIdx+len(errColl[idx+1]):]
		}

		errInfoText = strings.ReplaceAll(errInfoText, errMarkSign, "")
		logFields = logFields.WithField(errInfoText, errColl[idx])
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}

// LogWriter owns the log outputs opened by InitLogger
type LogWriter struct {
	file *os.File
}

// Dispose closes the log file, if any
func (w *LogWriter) Dispose() {
	if w == nil || w.file == nil {
		return
	}
	w.file.Close()
	w.file = nil
}

// InitLogger configures the standard logger from the logging config.
// Console and file output are attached as hooks so each can have its own level.
func InitLogger() (*LogWriter, logrus.FieldLogger) {
	logger := logrus.StandardLogger()
	writer := &LogWriter{}

	cfg := Config
	if cfg == nil {
		return writer, logger
	}

	var console io.Writer = os.Stdout
	if cfg.Logging.OutputStderr {
		console = os.Stderr
	}

	outputLevel := parseLogLevel(cfg.Logging.OutputLevel, logrus.InfoLevel)
	maxLevel := outputLevel

	logger.SetOutput(io.Discard)
	logger.AddHook(&logHook{
		writer:    console,
		formatter: &logrus.TextFormatter{FullTimestamp: true},
		level:     outputLevel,
	})

	if cfg.Logging.FilePath != "" {
		file, err := os.OpenFile(cfg.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.WithError(err).Errorf("failed opening log file %v", cfg.Logging.FilePath)
		} else {
			writer.file = file

			fileLevel := parseLogLevel(cfg.Logging.FileLevel, outputLevel)
			if fileLevel > maxLevel {
				maxLevel = fileLevel
			}
			logger.AddHook(&logHook{
				writer:    file,
				formatter: &logrus.JSONFormatter{},
				level:     fileLevel,
			})
		}
	}

	logger.SetLevel(maxLevel)

	return writer, logger
}

func parseLogLevel(level string, fallback logrus.Level) logrus.Level {
	if level == "" {
		return fallback
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fallback
	}
	return parsed
}

type logHook struct {
	writer    io.Writer
	formatter logrus.Formatter
	level     logrus.Level
}

func (h *logHook) Levels() []logrus.Level {
	return logrus.AllLevels[:h.level+1]
}

func (h *logHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
