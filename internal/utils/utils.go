package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.2fμs", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1000000)
	}
	return d.Round(time.Millisecond).String()
}

func CalculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// ReplaceExt swaps the extension of filename for ext (without the dot).
func ReplaceExt(filename, ext string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + "." + ext
}

// OutputPath joins name onto dir unless name is already absolute.
func OutputPath(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
