//go:build unix

package arena

import "golang.org/x/sys/unix"

func platformAlignment() int {
	if pageSize := unix.Getpagesize(); pageSize > 0 {
		return pageSize
	}
	return 4096
}
