package watch

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/gobwas/ws/wsutil"
)

// IsErrClosed checks for errors indicating a closed connection.
func IsErrClosed(err error) bool {
	if err == nil {
		return false
	}
	var cerr wsutil.ClosedError
	if errors.As(err, &cerr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
