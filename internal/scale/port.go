package scale

import (
	"strings"
	"time"

	"go.bug.st/serial"
)

// Conn is the slice of a serial port the controller needs. go.bug.st's
// serial.Port satisfies it; tests substitute fakes.
type Conn interface {
	Read(p []byte) (n int, err error)
	ResetInputBuffer() error
	Close() error
}

// Opener opens the serial device behind a path at the given baud rate.
type Opener func(path string, baudRate int) (Conn, error)

// Per-line wait. Bounded so a silent scale cannot stall the whole tick.
const readTimeout = 1 * time.Second

const maxLineLen = 256

// OpenSerial opens a real serial port with a bounded read timeout.
func OpenSerial(path string, baudRate int) (Conn, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, err
	}
	return port, nil
}

// readLine reads bytes until a newline, the read timeout (a zero-byte read),
// or the length cap. The returned line has CR/LF trimmed.
func readLine(c Conn) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for sb.Len() < maxLineLen {
		n, err := c.Read(buf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			// read timeout: hand back whatever arrived
			break
		}
		if buf[0] == '\n' {
			break
		}
		sb.WriteByte(buf[0])
	}
	return strings.TrimRight(sb.String(), "\r"), nil
}
