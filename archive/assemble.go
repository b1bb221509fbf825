// Package archive handles the raw-data plumbing around the analysis inputs:
// reassembling split archives, streaming lz4-framed logs and extracting the
// clearinghouse tar.xz snapshot.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// AssembleParts concatenates sorted <name>.part-* files in dir into
// dir/<name>. If the consolidated file already exists it is returned as-is.
// When neither the file nor any parts exist the error carries the manual
// remediation hint, since the parts usually live in object storage.
func AssembleParts(dir, name string) (string, error) {
	target := filepath.Join(dir, name)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	parts, err := filepath.Glob(filepath.Join(dir, name+".part-*"))
	if err != nil {
		return "", err
	}
	if len(parts) == 0 {
		return "", fmt.Errorf(
			"%s not found and no split parts present; recreate it with `cat %s.part-* > %s`",
			target, target, target)
	}
	sort.Strings(parts)

	tmp := target + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}

	for _, part := range parts {
		if err := appendFile(out, part); err != nil {
			out.Close()
			_ = os.Remove(tmp)
			return "", fmt.Errorf("append %s: %w", part, err)
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return target, nil
}

func appendFile(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}
