package cli

import (
	"os"
	"runtime"

	"github.com/Vitruves/abtest-report/internal/logger"
)

func init() {
	// Windows consoles get plain output unless FORCE_COLOR is set
	if runtime.GOOS == "windows" && os.Getenv("FORCE_COLOR") == "" {
		logger.DisableColor()
	}

	if os.Getenv("NO_COLOR") != "" {
		logger.DisableColor()
	}
}

// SetColorEnabled allows manual control of color output
func SetColorEnabled(enabled bool) {
	if !enabled {
		logger.DisableColor()
	}
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	logger.Error(format, args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	logger.Warning(format, args...)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	logger.Success(format, args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}

// PrintArtifact reports a file written by the run
func PrintArtifact(kind, path string) {
	logger.Value(kind, "%s", path)
}
