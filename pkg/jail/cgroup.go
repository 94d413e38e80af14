package jail

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/jail-ai/jailctl/pkg/jailerrors"
)

// CgroupV1Root and CgroupV2Root are the conventional cgroup filesystem
// mount points this package expects on a rootless Linux host.
const (
	CgroupV1Root = "/sys/fs/cgroup"
	CgroupV2Root = "/sys/fs/cgroup"
)

// DiscoverCgroup resolves the cgroup path for a process by reading its
// /proc/<pid>/cgroup attribution (§4.C "Name-to-cgroup discovery"). v2's
// single unified hierarchy line ("0::<path>") is preferred; if absent,
// the first v1 controller line is used instead.
func DiscoverCgroup(pid int) (string, error) {
	procPath := fmt.Sprintf("/proc/%d/cgroup", pid)
	f, err := os.Open(procPath)
	if err != nil {
		return "", jailerrors.New(jailerrors.KindRuntimeState, procPath, err)
	}
	defer f.Close()

	var v1Fallback string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.SplitN(line, ":", 3)
		if len(fields) != 3 {
			continue
		}
		hierarchyID, controllers, cgroupPath := fields[0], fields[1], fields[2]
		if hierarchyID == "0" && controllers == "" {
			return path.Join(CgroupV2Root, cgroupPath), nil
		}
		if v1Fallback == "" {
			v1Fallback = path.Join(CgroupV1Root, controllers, cgroupPath)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", jailerrors.New(jailerrors.KindRuntimeState, procPath, err)
	}
	if v1Fallback == "" {
		return "", jailerrors.New(jailerrors.KindRuntimeState, procPath, errNoCgroupEntry)
	}
	return v1Fallback, nil
}

type cgroupErr string

func (e cgroupErr) Error() string { return string(e) }

var errNoCgroupEntry = cgroupErr("no cgroup entry found for process")

// ValidateCgroupPath enforces the privileged helper's acceptance rules
// (§4.E step 1): absolute, no parent-traversal components, underneath
// one of the recognized cgroup filesystem roots, and an existing
// directory.
func ValidateCgroupPath(p string) error {
	if !path.IsAbs(p) {
		return jailerrors.New(jailerrors.KindEgress, p, errCgroupNotAbsolute)
	}
	clean := path.Clean(p)
	if clean != p || strings.Contains(p, "..") {
		return jailerrors.New(jailerrors.KindEgress, p, errCgroupTraversal)
	}
	if !strings.HasPrefix(clean, CgroupV2Root+"/") && clean != CgroupV2Root {
		return jailerrors.New(jailerrors.KindEgress, p, errCgroupOutsideRoot)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return jailerrors.New(jailerrors.KindEgress, p, err)
	}
	if !info.IsDir() {
		return jailerrors.New(jailerrors.KindEgress, p, errCgroupNotDirectory)
	}
	return nil
}

var (
	errCgroupNotAbsolute  = cgroupErr("cgroup path must be absolute")
	errCgroupTraversal    = cgroupErr("cgroup path must not contain parent-traversal components")
	errCgroupOutsideRoot  = cgroupErr("cgroup path must be underneath the cgroup filesystem root")
	errCgroupNotDirectory = cgroupErr("cgroup path must be an existing directory")
)
