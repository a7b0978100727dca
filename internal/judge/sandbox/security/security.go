// Package security defines sandbox isolation and security profiles.
package security

// IsolationProfile describes namespace, filesystem and seccomp settings.
type IsolationProfile struct {
	// RootFS is a prepared root filesystem to chroot into. Empty keeps the host root.
	RootFS string
	// ReadOnlyRoot remounts RootFS read-only so bind mounts and tmpfs are the only writable paths.
	ReadOnlyRoot bool
	// TmpfsMB sizes the tmpfs mounted at /tmp inside RootFS. Zero skips it.
	TmpfsMB        int64
	SeccompProfile string
	DisableNetwork bool
}
