//go:build linux

package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"tinygo.org/x/drivers"
)

// From <linux/i2c-dev.h> and <linux/i2c.h>.
const (
	i2cRdwr = 0x0707
	i2cMRd  = 0x0001
)

// i2cMsg mirrors struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   *byte
}

// i2cRdwrData mirrors struct i2c_rdwr_ioctl_data.
type i2cRdwrData struct {
	msgs  *i2cMsg
	nmsgs uint32
}

// rdwrMsgs builds the messages of one combined transfer: the write half,
// then the read half behind a repeated start.
func rdwrMsgs(addr uint16, w, r []byte) []i2cMsg {
	msgs := make([]i2cMsg, 0, 2)
	if len(w) > 0 {
		msgs = append(msgs, i2cMsg{addr: addr, len: uint16(len(w)), buf: &w[0]})
	}
	if len(r) > 0 {
		msgs = append(msgs, i2cMsg{addr: addr, flags: i2cMRd, len: uint16(len(r)), buf: &r[0]})
	}
	return msgs
}

// LinuxI2C drives an adapter through /dev/i2c-N. Each Tx is one I2C_RDWR
// transfer, so a register read keeps the bus between its halves.
type LinuxI2C struct {
	mu   sync.Mutex
	path string
	fd   int
}

func OpenLinuxI2C(path string) (*LinuxI2C, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return &LinuxI2C{path: path, fd: fd}, nil
}

func (l *LinuxI2C) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0xFFFF || len(r) > 0xFFFF {
		return fmt.Errorf("%s: transfer too long", l.path)
	}
	msgs := rdwrMsgs(addr, w, r)
	if len(msgs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fd < 0 {
		return os.ErrClosed
	}

	var pin runtime.Pinner
	defer pin.Unpin()
	for i := range msgs {
		pin.Pin(msgs[i].buf)
	}
	pin.Pin(&msgs[0])
	data := i2cRdwrData{msgs: &msgs[0], nmsgs: uint32(len(msgs))}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(l.fd), i2cRdwr, uintptr(unsafe.Pointer(&data)))
	if errno != 0 {
		return fmt.Errorf("%s: transfer to 0x%02x: %w", l.path, addr, errno)
	}
	return nil
}

func (l *LinuxI2C) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fd < 0 {
		return nil
	}
	err := unix.Close(l.fd)
	l.fd = -1
	return err
}

type linuxI2CFactory struct {
	mu    sync.Mutex
	dev   string // path prefix, "/dev/i2c-"
	buses map[string]*LinuxI2C
}

// Open opens /dev/i2c-N for "i2cN" on first use and reports why it could
// not, such as a missing node or a permission problem.
func (f *linuxI2CFactory) Open(id string) (drivers.I2C, error) {
	n, ok := strings.CutPrefix(id, "i2c")
	if !ok || n == "" {
		return nil, fmt.Errorf("bad bus id %q", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.buses[id]; ok {
		return b, nil
	}
	b, err := OpenLinuxI2C(f.dev + n)
	if err != nil {
		return nil, err
	}
	f.buses[id] = b
	return b, nil
}

func (f *linuxI2CFactory) ByID(id string) (drivers.I2C, bool) {
	b, err := f.Open(id)
	return b, err == nil
}

// LinuxI2CFactory serves i2c-dev adapters.
func LinuxI2CFactory() (I2CBusFactory, error) {
	return &linuxI2CFactory{dev: "/dev/i2c-", buses: make(map[string]*LinuxI2C)}, nil
}
