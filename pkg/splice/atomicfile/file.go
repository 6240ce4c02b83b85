// Copyright 2020 VMware, Inc.
// SPDX-License-Identifier: BSD-2-Clause

// Package atomicfile replaces file contents through a temporary sibling file
// that is renamed over the target, so readers never observe a partial write.
package atomicfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"copyset.io/pkg/splice/transform"
)

// Writer returns an AtomicWriter that writes data to a temporary file
// which gets renamed atomically as filename upon Commit.
// If filename already exists its permissions are preserved and perm is ignored.
func Writer(filename string, perm os.FileMode) (*AtomicWriter, error) {
	if st, err := os.Stat(filename); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		perm = st.Mode().Perm()
	}

	out, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".*~")
	if err != nil {
		return nil, err
	}
	if err := out.Chmod(perm); err != nil {
		out.Close()
		os.Remove(out.Name())
		return nil, err
	}

	return &AtomicWriter{File: out, filename: filename}, nil
}

// An AtomicWriter is a temporary file bound to its final name.
type AtomicWriter struct {
	*os.File
	filename string
	closed   bool
}

// Close discards the temporary file. It's a no-op after Commit.
func (a *AtomicWriter) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	defer os.Remove(a.Name())
	return a.File.Close()
}

// Commit flushes the temporary file and renames it over the target.
func (a *AtomicWriter) Commit() error {
	if a.closed {
		return fmt.Errorf("atomicfile: commit of closed writer for %q", a.filename)
	}
	if err := a.Sync(); err != nil {
		a.Close()
		return err
	}
	if err := a.File.Close(); err != nil {
		a.Close()
		return err
	}
	if err := os.Rename(a.Name(), a.filename); err != nil {
		a.closed = true
		os.Remove(a.Name())
		return err
	}
	a.closed = true
	return nil
}

// WriteFrom atomically replaces filename with the contents of r.
func WriteFrom(filename string, r io.Reader, perm os.FileMode) error {
	w, err := Writer(filename, perm)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		return err
	}
	return w.Commit()
}

// WriteFile is a drop-in replacement for os.WriteFile that writes the file atomically.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return WriteFrom(filename, bytes.NewReader(data), perm)
}

// Transform reads the content of an existing file, passes it through a transformer and writes it back atomically.
// If the transformer fails, the file is left untouched.
func Transform(t transform.Transformer, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := Writer(filename, 0)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := t.Transform(w, f); err != nil {
		return err
	}
	return w.Commit()
}
