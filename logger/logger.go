package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	Log           *logrus.Logger
	logDir        string
	logFile       *os.File
	lastRotation  time.Time
	rotationMutex sync.Mutex
	startRotation sync.Once
)

func init() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})
	Log.SetOutput(os.Stdout)
}

// Setup sets the log level and, when dir is non-empty, mirrors output to a
// daily file under dir.
func Setup(dir string, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.WithError(err).Warnf("Invalid log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	rotationMutex.Lock()
	logDir = dir
	rotationMutex.Unlock()

	if err := rotateLog(); err != nil {
		return err
	}

	startRotation.Do(func() {
		go checkRotation()
	})
	return nil
}

func rotateLog() error {
	rotationMutex.Lock()
	defer rotationMutex.Unlock()

	logFileName := filepath.Join(logDir, time.Now().Format("2006-01-02")+".txt")
	newLogFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}

	if logFile != nil {
		logFile.Close()
	}
	logFile = newLogFile
	Log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	lastRotation = time.Now()
	return nil
}

func checkRotation() {
	for {
		time.Sleep(1 * time.Hour) // Check every hour

		rotationMutex.Lock()
		due := time.Now().YearDay() != lastRotation.YearDay()
		rotationMutex.Unlock()

		if due {
			if err := rotateLog(); err != nil {
				Log.WithError(err).Error("Failed to rotate log file")
				continue
			}
			Log.Info("Log file rotated")
		}
	}
}
