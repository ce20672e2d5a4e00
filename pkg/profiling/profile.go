package profiling

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
)

// Starts CPU profiling into the given file and returns a function to stop profiling.
// Does nothing if the path is empty.
func InitCPUProfiling(path string, logger *logrus.Entry) func() {
	if path == "" {
		return func() {}
	}

	logger = logger.WithField("path", path)
	logger.Info("initializing CPU profiling")

	file, err := os.Create(path)
	if err != nil {
		logger.WithError(err).Fatal("could not create CPU profile")
	}

	if err := pprof.StartCPUProfile(file); err != nil {
		logger.WithError(err).Fatal("could not start CPU profile")
	}

	return func() {
		pprof.StopCPUProfile()

		if err := file.Close(); err != nil {
			logger.WithError(err).Error("could not close CPU profile")
		}
	}
}

// Returns a function that writes a heap profile into the given file.
// The returned function does nothing if the path is empty.
func InitMemoryProfiling(path string, logger *logrus.Entry) func() {
	if path == "" {
		return func() {}
	}

	logger = logger.WithField("path", path)
	logger.Info("initializing memory profiling")

	return func() {
		file, err := os.Create(path)
		if err != nil {
			logger.WithError(err).Error("could not create memory profile")
			return
		}
		defer file.Close()

		runtime.GC()

		if err := pprof.WriteHeapProfile(file); err != nil {
			logger.WithError(err).Error("could not write memory profile")
		}
	}
}
