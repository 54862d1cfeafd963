package inference

import (
	"fmt"
	"runtime"
)

// GetSharedLibPath returns the default onnxruntime library path for the current platform.
//
// Returns:
//   - string: The path to the shared library.
//   - error: If no build is shipped for this platform.
func GetSharedLibPath() (string, error) {
	if runtime.GOOS == "darwin" {
		return "./third_party/libonnxruntime.1.21.0.dylib", nil
	}
	if runtime.GOOS == "linux" {
		switch runtime.GOARCH {
		case "arm64":
			return "./third_party/onnxruntime_arm64.so", nil
		case "arm":
			return "./third_party/onnxruntime_armhf.so", nil
		case "amd64":
			return "./third_party/onnxruntime.so", nil
		}
	}
	return "", fmt.Errorf("no onnxruntime library for %s/%s", runtime.GOOS, runtime.GOARCH)
}
