package capture

import "golang.org/x/sys/unix"

func closeFd(fd int) {
	if fd >= 0 {
		_ = unix.Close(fd)
	}
}
