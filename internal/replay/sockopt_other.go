//go:build !unix

package replay

import (
	"fmt"
	"runtime"
	"syscall"
)

func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return fmt.Errorf("SO_REUSEADDR is not supported on %s", runtime.GOOS)
}
