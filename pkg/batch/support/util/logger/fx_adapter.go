package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter implements fxevent.Logger and routes container events to the "fx" logger.
// Hook and provide events are only visible at DEBUG level.
type FxLoggerAdapter struct {
	log *Logger
}

// NewFxLoggerAdapter creates a new FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{log: Named("fx")}
}

// LogEvent logs events from Fx.
func (a *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		a.log.Debugf("OnStart hook executing: %s", trimFuncName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			a.log.Errorf("OnStart hook failed: %s: %v", trimFuncName(e.FunctionName), e.Err)
			return
		}
		a.log.Debugf("OnStart hook executed: %s (%s)", trimFuncName(e.FunctionName), e.Runtime)
	case *fxevent.OnStopExecuting:
		a.log.Debugf("OnStop hook executing: %s", trimFuncName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			a.log.Errorf("OnStop hook failed: %s: %v", trimFuncName(e.FunctionName), e.Err)
			return
		}
		a.log.Debugf("OnStop hook executed: %s (%s)", trimFuncName(e.FunctionName), e.Runtime)
	case *fxevent.Supplied:
		if e.Err != nil {
			a.log.Errorf("Supply of %s failed: %v", e.TypeName, e.Err)
			return
		}
		a.log.Debugf("Supplied: %s", e.TypeName)
	case *fxevent.Provided:
		if e.Err != nil {
			a.log.Errorf("Provide via %s failed: %v", trimFuncName(e.ConstructorName), e.Err)
			return
		}
		for _, name := range e.OutputTypeNames {
			a.log.Debugf("Provided: %s", name)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			a.log.Errorf("Invoke of %s failed: %v", trimFuncName(e.FunctionName), e.Err)
		}
	case *fxevent.Stopping:
		a.log.Infof("Received signal %s, stopping.", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			a.log.Errorf("Stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		a.log.Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			a.log.Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			a.log.Errorf("Start failed: %v", e.Err)
			return
		}
		a.log.Debugf("Container started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			a.log.Errorf("Logger initialization failed: %v", e.Err)
		}
	}
}

// trimFuncName strips anonymous function suffixes such as ".func1" from an Fx function name.
func trimFuncName(name string) string {
	if idx := strings.LastIndex(name, ".func"); idx != -1 {
		return name[:idx]
	}
	return name
}
