package readiness

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const procRoot = "/proc"

// openForWrite reports whether any process visible under /proc holds path
// open with write access. Producers such as cp or rsync never take a lock,
// so an advisory flock alone cannot see them. Without a readable /proc it
// reports false and the settle check is the only guard.
func openForWrite(path string) (bool, error) {
	var target unix.Stat_t
	if err := unix.Stat(path, &target); err != nil {
		return false, err
	}

	procs, err := os.ReadDir(procRoot)
	if err != nil {
		return false, nil
	}
	for _, proc := range procs {
		if !proc.IsDir() || !isPID(proc.Name()) {
			continue
		}
		fdDir := filepath.Join(procRoot, proc.Name(), "fd")
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			// Exited, or owned by another user.
			continue
		}
		for _, fd := range fds {
			var st unix.Stat_t
			if err := unix.Stat(filepath.Join(fdDir, fd.Name()), &st); err != nil {
				continue
			}
			if st.Dev != target.Dev || st.Ino != target.Ino {
				continue
			}
			if writableFD(filepath.Join(procRoot, proc.Name(), "fdinfo", fd.Name())) {
				return true, nil
			}
		}
	}
	return false, nil
}

// writableFD parses the octal flags line of an fdinfo file.
func writableFD(fdinfo string) bool {
	data, err := os.ReadFile(fdinfo)
	if err != nil {
		return false
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || key != "flags" {
			continue
		}
		flags, err := strconv.ParseUint(strings.TrimSpace(value), 8, 64)
		if err != nil {
			return false
		}
		return flags&unix.O_ACCMODE != unix.O_RDONLY
	}
	return false
}

func isPID(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
