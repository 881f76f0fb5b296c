package preflight

import (
	"fmt"
	"syscall"
)

// MinFileDescriptors is the open file limit the watcher and store need.
const MinFileDescriptors = 256

// CheckFileDescriptors checks the soft open file limit. A low limit only
// hurts large inbox directories, so it warns instead of failing.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name: "file_descriptors",
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to read open file limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (minimum: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 4096' before watching large directories"
		return result
	}

	result.Status = StatusPass
	return result
}
