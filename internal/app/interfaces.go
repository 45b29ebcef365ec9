package app

import (
	"io"
	"os"

	"github.com/tturner/udpreplay/internal/netdetect"
	"github.com/tturner/udpreplay/internal/report"
)

// RunInterfaces lists local interfaces and the addresses --new-src can bind.
func RunInterfaces(out io.Writer, includeDown bool) error {
	interfaces, err := netdetect.ListInterfaces()
	if err != nil {
		return err
	}
	if !includeDown {
		up := interfaces[:0]
		for _, iface := range interfaces {
			if iface.IsUp {
				up = append(up, iface)
			}
		}
		interfaces = up
	}
	if out == nil {
		out = os.Stdout
	}
	report.WriteInterfaces(out, interfaces)
	return nil
}
