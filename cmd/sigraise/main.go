// Command sigraise delivers a signal to one or more processes, kill(1)
// style, with optional repetition.
//
//	sigraise [-s signal] [-n count] [-i interval-ms] pid...
package main

import (
	"fmt"
	"os"
	"strconv"
	"syscall"
	"time"

	"git.sr.ht/~sircmpwn/getopt"
	"golang.org/x/sys/unix"

	"github.com/srozzo/go-sigwait/sigwait"
)

type invocation struct {
	sig      syscall.Signal
	count    int
	interval time.Duration
	pids     []int
}

func main() {
	inv, err := parseArgs(os.Args)
	if err != nil {
		warn(err)
		fmt.Fprintf(os.Stderr, "Usage: %s [-s signal] [-n count] [-i interval-ms] pid...\n", os.Args[0])
		os.Exit(1)
	}

	for i := 0; i < inv.count; i++ {
		if i > 0 {
			time.Sleep(inv.interval)
		}
		for _, pid := range inv.pids {
			if err := unix.Kill(pid, inv.sig); err != nil {
				die(fmt.Errorf("pid %d: %w", pid, err))
			}
		}
	}
}

func parseArgs(argv []string) (invocation, error) {
	inv := invocation{
		sig:      syscall.SIGTERM,
		count:    1,
		interval: 100 * time.Millisecond,
	}

	opts, optind, err := getopt.Getopts(argv, "s:n:i:")
	if err != nil {
		return inv, err
	}
	for _, opt := range opts {
		switch opt.Option {
		case 's':
			sig, err := sigwait.ParseSignal(opt.Value)
			if err != nil {
				return inv, err
			}
			inv.sig = sig.(syscall.Signal)
		case 'n':
			n, err := strconv.Atoi(opt.Value)
			if err != nil || n < 1 {
				return inv, fmt.Errorf("invalid count %q", opt.Value)
			}
			inv.count = n
		case 'i':
			ms, err := strconv.Atoi(opt.Value)
			if err != nil || ms < 0 {
				return inv, fmt.Errorf("invalid interval %q", opt.Value)
			}
			inv.interval = time.Duration(ms) * time.Millisecond
		}
	}

	rest := argv[optind:]
	if len(rest) == 0 {
		return inv, fmt.Errorf("no pids given")
	}
	for _, arg := range rest {
		pid, err := strconv.Atoi(arg)
		if err != nil || pid <= 0 {
			return inv, fmt.Errorf("invalid pid %q", arg)
		}
		inv.pids = append(inv.pids, pid)
	}
	return inv, nil
}

func warn(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", os.Args[0], err)
}

func die(err error) {
	warn(err)
	os.Exit(1)
}
