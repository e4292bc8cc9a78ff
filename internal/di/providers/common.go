package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// VersionName is the injector key of the build version string.
	VersionName = "version"
)
