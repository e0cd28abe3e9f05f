// Package core holds small helpers shared by every package.
package core

import (
	"errors"
	"io/fs"
	"net"
	"os"
	"strconv"
)

// Address joins host and port. IPv6 hosts are bracketed.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func FileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// FlagChannel signals c without blocking. Pending signals are merged.
func FlagChannel(c chan<- struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}

// Optional dereferences value or falls back to fallback when it is nil.
func Optional[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}
