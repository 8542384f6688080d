package main

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// extractArchive unpacks every member of the zip at archive into dest,
// keeping the archive's directory structure. onMember, if set, is called
// after each member with the total member count. It returns the number of
// members processed.
func extractArchive(archive, dest string, onMember func(total int)) (int, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return 0, fmt.Errorf("open archive %s: %w", archive, err)
	}
	defer zr.Close()

	total := len(zr.File)
	for i, member := range zr.File {
		if err := extractMember(member, dest); err != nil {
			return i, err
		}
		if onMember != nil {
			onMember(total)
		}
	}
	return total, nil
}

func extractMember(member *zip.File, dest string) error {
	rel := memberPath(member.Name)
	if rel == "" {
		return nil
	}
	target := filepath.Join(dest, rel)

	if member.FileInfo().IsDir() || strings.HasSuffix(member.Name, "/") {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", target, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", target, err)
	}

	src, err := member.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", member.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("extract %s: %w", member.Name, err)
	}
	return dst.Close()
}

// memberPath turns an archive member name into a relative path that cannot
// leave the extraction root: drive letters, leading separators, "." and ".."
// components are dropped.
func memberPath(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if len(name) >= 2 && name[1] == ':' {
		name = name[2:]
	}
	var parts []string
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		parts = append(parts, part)
	}
	return filepath.Join(parts...)
}
