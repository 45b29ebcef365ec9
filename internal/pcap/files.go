package pcap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IsCaptureFile reports whether path has a .pcap or .pcapng extension.
func IsCaptureFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pcap" || ext == ".pcapng"
}

// CollectCaptureFiles returns root itself when it is a file, or the sorted
// pcap/pcapng files beneath it when it is a directory.
func CollectCaptureFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var captures []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsCaptureFile(path) {
			captures = append(captures, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk captures: %w", err)
	}
	sort.Strings(captures)
	return captures, nil
}
