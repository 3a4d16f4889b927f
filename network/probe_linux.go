//go:build linux

package network

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// isAlive probes a socket without consuming bytes. A socket that polls
// readable with nothing pending has been closed by the peer. Any probe
// failure counts as dead.
func isAlive(conn net.Conn) bool {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return true
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return false
	}

	alive := true
	err = raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, perr := unix.Poll(fds, 0)
		if perr != nil {
			alive = false
			return
		}
		if n == 0 {
			return
		}
		if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			alive = false
			return
		}
		if fds[0].Revents&unix.POLLIN != 0 {
			pending, ierr := unix.IoctlGetInt(int(fd), unix.TIOCINQ)
			if ierr != nil || pending == 0 {
				alive = false
			}
		}
	})
	if err != nil {
		return false
	}
	return alive
}
