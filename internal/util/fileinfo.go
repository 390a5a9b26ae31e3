package util

import (
	"os"

	"golang.org/x/sys/unix"
)

// FileInfo contains the stat fields used for change detection.
type FileInfo struct {
	ModTime int64  // Last modification time in unix milliseconds
	Size    int64  // File size in bytes
	Inode   uint64 // Inode number
	IsDir   bool
}

// GetFileInfo stats filepath, following symlinks.
func GetFileInfo(filepath string) (*FileInfo, error) {
	var st unix.Stat_t
	if err := unix.Stat(filepath, &st); err != nil {
		return nil, &os.PathError{Op: "stat", Path: filepath, Err: err}
	}

	sec, nsec := st.Mtim.Unix()
	return &FileInfo{
		ModTime: sec*1000 + nsec/1_000_000,
		Size:    int64(st.Size),
		Inode:   uint64(st.Ino),
		IsDir:   st.Mode&unix.S_IFMT == unix.S_IFDIR,
	}, nil
}

// LastModified returns the modification time of filepath in unix milliseconds,
// or 0 when the file cannot be stat'ed.
func LastModified(filepath string) int64 {
	info, err := GetFileInfo(filepath)
	if err != nil {
		return 0
	}
	return info.ModTime
}

// ReadFileAsString reads a whole file, logging and reporting false on failure.
func ReadFileAsString(filepath string) (string, bool) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		LogErrorf("Failed to read %s: %v", filepath, err)
		return "", false
	}
	return string(data), true
}
