package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dmgomes/nextup/internal/clock"
	"github.com/dmgomes/nextup/internal/config"
	"github.com/dmgomes/nextup/internal/notify"
	"github.com/dmgomes/nextup/internal/rpc"
	"github.com/dmgomes/nextup/internal/scheduler"
	"github.com/dmgomes/nextup/internal/storage/sqlite"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the nextup daemon",
	Long: `Run the daemon in the foreground. The daemon owns the database,
serves CLI requests over a unix socket, pushes queue and stats updates
to subscribed clients, and periodically re-sorts the queue by potential.

It also watches the database file, so changes made by another process
in direct mode still trigger update notifications.`,
	Run: func(cmd *cobra.Command, args []string) {
		logFile, _ := cmd.Flags().GetString("log")
		interval, _ := cmd.Flags().GetDuration("reorder-interval")
		if !cmd.Flags().Changed("reorder-interval") {
			interval = config.GetDuration("reorder-interval")
		}
		if !cmd.Flags().Changed("log") {
			logFile = config.GetString("log-file")
		}
		if err := runServe(logFile, interval); err != nil {
			fatalf("%v", err)
		}
	},
}

func runServe(logFile string, reorderInterval time.Duration) error {
	logger := newServeLogger(logFile)

	if dbPath == "" {
		return fmt.Errorf("no database path configured")
	}
	if socketPath == "" {
		return fmt.Errorf("no socket path configured")
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	hub := notify.NewHub(config.GetInt("notify-buffer"))
	defer hub.Close()

	svc := scheduler.NewService(store, clock.System{}, hub)
	svc.SetWeights(configuredWeights())
	rpc.Version = Version
	server := rpc.NewServer(socketPath, svc, hub, dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Printf("daemon starting (pid %d, socket %s, db %s)", os.Getpid(), socketPath, dbPath)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(ctx)
	})

	// A shutdown RPC from a client stops the whole group.
	g.Go(func() error {
		select {
		case <-server.ShutdownRequested():
			logger.Printf("shutdown requested over rpc")
			server.Stop()
			stop()
			return nil
		case <-ctx.Done():
			return nil
		}
	})

	if reorderInterval > 0 {
		g.Go(func() error {
			return runReorderLoop(ctx, svc, reorderInterval, logger)
		})
	}

	g.Go(func() error {
		return watchDatabase(ctx, dbPath, hub, logger)
	})

	err = g.Wait()
	server.Stop()
	logger.Printf("daemon stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runReorderLoop periodically re-sorts the configured queue so stored
// order tracks accumulated potential even when no client asks for it.
func runReorderLoop(ctx context.Context, svc *scheduler.Service, interval time.Duration, logger *log.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	queue := config.GetString("queue")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := svc.ReorderQueue(ctx, queue); err != nil {
				logger.Printf("periodic reorder failed: %v", err)
			}
		}
	}
}

// watchDatabase publishes a stats update whenever the database file
// changes on disk. SQLite in WAL mode mostly touches the -wal file, so
// the whole directory is watched and events filtered by prefix.
func watchDatabase(ctx context.Context, dbPath string, hub *notify.Hub, logger *log.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		return fmt.Errorf("failed to watch database directory: %w", err)
	}

	base := filepath.Base(dbPath)

	// Debounce: SQLite produces bursts of writes per transaction.
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if name != base && name != base+"-wal" {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				hub.Publish(notify.TopicStatsUpdate, map[string]interface{}{"source": "fswatch"})
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Printf("watcher error: %v", err)
		}
	}
}

// newServeLogger logs to a rotating file when one is configured,
// otherwise to stderr.
func newServeLogger(logFile string) *log.Logger {
	if logFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    config.GetInt("log-max-size-mb"),
		MaxBackups: config.GetInt("log-max-backups"),
	}, "", log.LstdFlags)
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running daemon to shut down",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := rpc.TryConnect(socketPath)
		if err != nil || client == nil {
			fatalf("no daemon running on %s", socketPath)
		}
		defer func() { _ = client.Close() }()

		if err := client.Call(rpc.OpShutdown, nil, nil); err != nil {
			fatalf("failed to stop daemon: %v", err)
		}
		fmt.Println("Daemon shutting down")
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Run: func(cmd *cobra.Command, args []string) {
		client, err := rpc.TryConnect(socketPath)
		if err != nil || client == nil {
			if jsonOutput {
				outputJSON(map[string]bool{"running": false})
				return
			}
			fmt.Println("Daemon is not running")
			return
		}
		defer func() { _ = client.Close() }()

		var status rpc.StatusResponse
		if err := client.Call(rpc.OpStatus, nil, &status); err != nil {
			fatalf("failed to query daemon: %v", err)
		}
		if jsonOutput {
			outputJSON(status)
			return
		}
		fmt.Printf("Daemon running (pid %d, version %s)\n", status.PID, status.Version)
		fmt.Printf("  socket: %s\n", status.SocketPath)
		fmt.Printf("  db:     %s\n", status.DatabasePath)
		fmt.Printf("  uptime: %s\n", time.Duration(status.UptimeSeconds*float64(time.Second)).Round(time.Second))
	},
}

func init() {
	serveCmd.Flags().String("log", "", "Log file path (default: stderr; rotated when set)")
	serveCmd.Flags().Duration("reorder-interval", time.Minute, "How often to re-sort the queue (0 disables)")

	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}
