package utils

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
)

// EnsureDirs creates each directory (and parents) if it does not exist.
func EnsureDirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// CopyFile copies src over dst in place, truncating dst if it exists.
// The write is not atomic: a failure midway leaves dst partially written.
// Returns the digest of the bytes written.
func CopyFile(src, dst string) (digest.Digest, error) {
	in, err := os.Open(src) //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close() //nolint:errcheck

	fi, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm()) //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("open %s: %w", dst, err)
	}

	digester := digest.Canonical.Digester()
	if _, err := io.Copy(io.MultiWriter(out, digester.Hash()), in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", dst, err)
	}
	return digester.Digest(), nil
}

// FileDigest returns the canonical (sha256) digest of the file at path.
func FileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return "", err
	}
	defer f.Close() //nolint:errcheck
	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return d, nil
}

// IsNotExist reports whether err (possibly wrapped) means a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
