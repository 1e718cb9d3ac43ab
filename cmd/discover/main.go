// Command discover lists the inkbook servers answering on the local network.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/inkbook/inkbook/internal/discovery"
)

func main() {
	timeout := flag.Duration("timeout", 3*time.Second, "how long to wait for answers")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	servers, err := discovery.Browse(ctx, *timeout)
	if err != nil {
		slog.Error("browse", "error", err)
		os.Exit(1)
	}
	if len(servers) == 0 {
		fmt.Fprintln(os.Stderr, "no servers found")
		os.Exit(1)
	}
	for _, s := range servers {
		fmt.Printf("%s\t%s\t%s\n", s.Addr, s.Instance, strings.Join(s.Info, " "))
	}
}
