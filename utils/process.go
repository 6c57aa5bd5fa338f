package utils

import (
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// WaitForCtrlC will block/wait until a control-c is pressed
func WaitForCtrlC() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// SubroutineRestartDelay is the pause before a panicked subroutine is restarted
var SubroutineRestartDelay = 10 * time.Second

// HandleSubroutinePanic recovers a panicking subroutine and restarts it via restartFn after a short pause.
// Must be deferred directly.
func HandleSubroutinePanic(identifier string, restartFn func()) {
	if err := recover(); err != nil {
		logrus.WithField("panic", err).Errorf("uncaught panic in %v subroutine: %v, stack: %v", identifier, err, string(debug.Stack()))

		if restartFn != nil {
			go func() {
				time.Sleep(SubroutineRestartDelay)
				logrus.Infof("restarting %v subroutine", identifier)
				restartFn()
			}()
		}
	}
}
