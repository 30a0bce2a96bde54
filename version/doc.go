// Package version reports build information for the bufferstream binary.
//
// Values are injected with -ldflags and fall back to the VCS stamp Go
// embeds in the binary:
//
//	go build -ldflags "-X github.com/kbukum/bufferstream/version.Version=1.0.0" ./cmd/bufferstream
package version
