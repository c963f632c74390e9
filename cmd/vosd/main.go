// Command vosd is the reference server and workload driver for the
// versioned object store: `serve` opens a container and exposes its
// metrics for scraping, `bench` drives a fixed update/fetch workload
// through one event queue and reports completion counts.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/vosd/vos/common"
	"github.com/vosd/vos/common/fdlimit"
	"github.com/vosd/vos/eq"
	"github.com/vosd/vos/log"
	"github.com/vosd/vos/metrics"
	"github.com/vosd/vos/metrics/prometheus"
	"github.com/vosd/vos/vos"
)

func init() {
	if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {})); err != nil {
		fmt.Fprintf(os.Stderr, "vosd: maxprocs: %v\n", err)
	}
}

var (
	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "path to the container's on-disk store; empty runs in-memory",
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "address to serve Prometheus text exposition on",
		Value: "127.0.0.1:9190",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity, 0 (crit) to 5 (trace)",
		Value: 3,
	}
)

func main() {
	app := &cli.App{
		Name:  "vosd",
		Usage: "versioned object store daemon",
		Flags: []cli.Flag{verbosityFlag},
		Before: func(ctx *cli.Context) error {
			lvl := slogLevel(ctx.Int(verbosityFlag.Name))
			log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
			return nil
		},
		Commands: []*cli.Command{
			serveCommand,
			benchCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "vosd: %v\n", err)
		os.Exit(1)
	}
}

func slogLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return log.LevelCrit
	case v == 1:
		return log.LevelError
	case v == 2:
		return log.LevelWarn
	case v == 3:
		return log.LevelInfo
	case v == 4:
		return log.LevelDebug
	default:
		return log.LevelTrace
	}
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "open a container and serve its metrics until terminated",
	Flags: []cli.Flag{dbFlag, listenFlag},
	Action: func(ctx *cli.Context) error {
		if raised, err := fdlimit.Raise(65536); err != nil {
			log.Warn("failed to raise file descriptor limit", "err", err)
		} else {
			log.Debug("raised file descriptor limit", "limit", raised)
		}

		c, err := openContainer(ctx.String(dbFlag.Name))
		if err != nil {
			return err
		}
		defer c.Close()

		if err := eq.LibInit(); err != nil {
			return err
		}
		defer eq.LibFini()

		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			fmt.Fprint(w, prometheus.Handler(metrics.DefaultRegistry))
		})
		srv := &http.Server{Addr: ctx.String(listenFlag.Name), Handler: mux}

		go func() {
			log.Info("serving metrics", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server exited", "err", err)
			}
		}()

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
		<-sigc
		log.Info("shutting down")
		return srv.Close()
	},
}

var (
	benchOpsFlag = &cli.IntFlag{
		Name:  "ops",
		Usage: "number of update+fetch cycles to drive",
		Value: 1000,
	}
)

var benchCommand = &cli.Command{
	Name:  "bench",
	Usage: "drive a fixed update/fetch workload through one event queue",
	Flags: []cli.Flag{dbFlag, benchOpsFlag},
	Action: func(ctx *cli.Context) error {
		c, err := openContainer(ctx.String(dbFlag.Name))
		if err != nil {
			return err
		}
		defer c.Close()

		if err := eq.LibInit(); err != nil {
			return err
		}
		defer eq.LibFini()

		return runBench(c, ctx.Int(benchOpsFlag.Name))
	},
}

func openContainer(path string) (*vos.Container, error) {
	if path == "" {
		return vos.OpenMem()
	}
	return vos.Open(path)
}

// runBench wraps each update+fetch cycle in its own event, launched
// against a shared queue and completed in place. Completed events are not
// reaped; the final inflight and unreaped counts are logged.
func runBench(c *vos.Container, ops int) error {
	h, err := eq.Create()
	if err != nil {
		return err
	}
	defer eq.Destroy(h, true)

	updateTimer := metrics.NewRegisteredTimer("vosd/bench/update", nil)
	fetchTimer := metrics.NewRegisteredTimer("vosd/bench/fetch", nil)

	obj := common.NewObjID()
	cookie := common.NewCookie()
	dkey := []byte("bench")
	akey := []byte("a")

	for i := 0; i < ops; i++ {
		ev := eq.NewEvent()
		if err := ev.Init(h, nil); err != nil {
			return err
		}
		if err := ev.Launch(nil, nil); err != nil {
			return err
		}

		rc := 0
		start := time.Now()
		iods := []vos.IOD{{Akey: akey, Recx: []vos.Recx{{Idx: uint64(i), Nr: 1}}, Rsize: 8}}
		sgls := []vos.SGL{{Iovs: []vos.IOV{{Buf: []byte("deadbeef")}}}}
		if err := c.Update(obj, vos.Epoch(i+1), cookie, dkey, iods, sgls); err != nil {
			rc = 1
		}
		updateTimer.UpdateSince(start)

		start = time.Now()
		fetchIods := []vos.IOD{{Akey: akey, Recx: []vos.Recx{{Idx: uint64(i), Nr: 1}}}}
		fetchSgls := []vos.SGL{{Iovs: []vos.IOV{{Buf: make([]byte, 8)}}}}
		if err := c.Fetch(obj, vos.EpochMax, dkey, fetchIods, fetchSgls); err != nil {
			rc = 1
		}
		fetchTimer.UpdateSince(start)

		if err := ev.Complete(rc); err != nil {
			return err
		}
	}

	nDispatch, nCompleted, err := eq.QueryCounts(h)
	if err != nil {
		return err
	}
	log.Info("bench done", "ops", ops, "inflight", nDispatch, "unreaped", nCompleted,
		"update_mean_ns", updateTimer.Snapshot().Mean(), "fetch_mean_ns", fetchTimer.Snapshot().Mean())
	return nil
}
