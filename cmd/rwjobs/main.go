// Command rwjobs is the thin CLI wrapper around the job engine: work,
// workoff, start/stop a detached worker pool, and clear. It is
// explicitly outside the core (the core is {Adapter, Worker, Executor}
// plus the Job base and Scheduler facade) but specified for
// compatibility with application deploy scripts.
//
// Grounded on the teacher's bootstrap.Run: same signal handling and
// context-cancellation shape, generalized from a fixed two-worker pool
// into the -n queue:count spec below.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/ryanb006/rwjobs/internal/adapter"
	"github.com/ryanb006/rwjobs/internal/config"
	"github.com/ryanb006/rwjobs/internal/jobclass"
	"github.com/ryanb006/rwjobs/internal/joblog"
	"github.com/ryanb006/rwjobs/internal/metricsserver"
	"github.com/ryanb006/rwjobs/internal/worker"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "work":
		runWork(os.Args[2:], false)
	case "workoff":
		runWork(os.Args[2:], true)
	case "start":
		runStart(os.Args[2:])
	case "stop":
		runStop(os.Args[2:])
	case "clear":
		runClear(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: rwjobs <work|workoff|start|stop|clear> [-n spec] [-queue name]")
}

// runWork runs one worker in the foreground. SIGINT requests a
// graceful drain (finish the current job, then exit); SIGTERM exits
// the process immediately, without waiting for Run to return, since
// there is no cooperative cancellation into user code.
func runWork(args []string, workoff bool) {
	fs := flag.NewFlagSet("work", flag.ExitOnError)
	queue := fs.String("queue", "", "queue to poll; empty means any queue")
	processName := fs.String("name", "", "process name; defaults to rw-jobs-worker[.<queue>].<pid>")
	_ = fs.Parse(args)

	cfg := config.Load()
	if *queue != "" {
		cfg.Queue = *queue
	}
	name := *processName
	if name == "" {
		name = workerProcessTitle(cfg.Queue, os.Getpid())
	}

	log := joblog.New("rwjobs-worker")
	a := mustAdapter(cfg.DatabaseURL)
	metrics := metricsserver.New()

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		if s == syscall.SIGTERM {
			log.Warn("SIGTERM received, exiting immediately")
			os.Exit(0)
		}
		log.Info("SIGINT received, draining")
		cancel()
	}()

	w := worker.New(worker.Config{
		Adapter:     a,
		ProcessName: name,
		Logger:      log,
		Registry:    jobclass.Default,
		Queue:       cfg.Queue,
		MaxRuntime:  cfg.MaxRuntime,
		WaitTime:    cfg.WaitTime,
		MaxAttempts: cfg.MaxAttempts,
		Workoff:     workoff,
		Metrics:     metrics,
	})

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	srv := serveMetrics(cfg.HTTPAddr, metrics, log)
	defer srv.Close()

	if err := w.Run(ctx); err != nil {
		log.Error("worker run failed", "error", err)
		os.Exit(1)
	}
}

func runClear(args []string) {
	cfg := config.Load()
	a := mustAdapter(cfg.DatabaseURL)
	if err := a.Clear(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "clear failed:", err)
		os.Exit(1)
	}
}

// runStart forks the detached worker processes the -n spec names:
// count workers for each queue:count pair. Process supervision beyond fork-and-record-pid is
// an external collaborator's job (out of the core's scope); this is
// the minimal compatibility surface the CLI table promises.
func runStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	n := fs.String("n", "1", "integer, or comma-separated queue:count pairs")
	_ = fs.Parse(args)

	spec, err := parsePoolSpec(*n)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid -n spec:", err)
		os.Exit(2)
	}

	var wg sync.WaitGroup
	for _, entry := range spec {
		for i := 0; i < entry.Count; i++ {
			wg.Add(1)
			go func(queue string, idx int) {
				defer wg.Done()
				if err := startDetachedWorker(queue, idx); err != nil {
					fmt.Fprintln(os.Stderr, "start failed:", err)
				}
			}(entry.Queue, i)
		}
	}
	wg.Wait()
}

func runStop(args []string) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	n := fs.String("n", "", "integer, or comma-separated queue:count pairs; empty means all")
	_ = fs.Parse(args)

	var queues []string
	if *n != "" {
		spec, err := parsePoolSpec(*n)
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid -n spec:", err)
			os.Exit(2)
		}
		for _, e := range spec {
			queues = append(queues, e.Queue)
		}
	}

	if err := stopWorkers(queues); err != nil {
		fmt.Fprintln(os.Stderr, "stop failed:", err)
		os.Exit(1)
	}
}

func mustAdapter(databaseURL string) adapter.Adapter {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open db:", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		fmt.Fprintln(os.Stderr, "ping db:", err)
		os.Exit(1)
	}
	a, err := adapter.NewPostgresAdapter(db, "jobs")
	if err != nil {
		fmt.Fprintln(os.Stderr, "adapter:", err)
		os.Exit(1)
	}
	return a
}

func serveMetrics(addr string, m *metricsserver.Metrics, log joblog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()
	return srv
}
