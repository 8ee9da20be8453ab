package common

// File permission constants shared by everything that writes to disk.
const (
	// FilePermissionSecure is used for martflow.yaml, which may hold passwords.
	FilePermissionSecure = 0600

	// FilePermissionNormal is used for materialized tables, manifests and metrics.
	FilePermissionNormal = 0644

	// DirPermissionNormal is used for output directories.
	DirPermissionNormal = 0755
)
