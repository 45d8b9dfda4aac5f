package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sysattr/sysattr-go/pkg/discovery"
	"github.com/sysattr/sysattr-go/pkg/version"
)

// Browser streams hosts found on the network. Implemented by
// discovery.MDNSBrowser.
type Browser interface {
	Browse(ctx context.Context) (<-chan *discovery.NamespaceService, error)
}

// RunDiscover browses for timeout and prints each host as it is found.
// It returns the number of hosts seen.
func RunDiscover(ctx context.Context, b Browser, timeout time.Duration, w io.Writer) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return 0, err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tBASE\tENTRIES\tURL\tROOT\tVERSION")

	count := 0
	for {
		select {
		case svc, ok := <-results:
			if !ok {
				return count, tw.Flush()
			}
			count++
			ver := svc.Version
			if ver == "" {
				ver = "-"
			} else if err := version.Check(ver); err != nil {
				ver += " (incompatible)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
				svc.InstanceName, svc.BaseName, svc.Entries, svc.URL(), svc.Root, ver)
		case <-ctx.Done():
			return count, tw.Flush()
		}
	}
}
