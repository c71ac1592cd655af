// synodl is a command-line client for Synology Download Station.
//
// Credentials come from the config file, SYNODL_* environment
// variables, or a .env file in the working directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/synodl/synodl/internal/config"
	"github.com/synodl/synodl/internal/downloadstation"
	"github.com/synodl/synodl/internal/logger"
	"github.com/synodl/synodl/internal/syno"
)

const usage = `Usage: synodl [-config path] <command> [arguments]

Commands:
  list                     list all download tasks
  get <id>...              show details for one or more tasks
  add <uri>                add a download from a URL or magnet link
  add-file <path>          add a download from a torrent file
  pause <id>               pause a task
  resume <id>              resume a paused task
  complete <id>            force a task to finalize now
  delete <id>              remove a task
  clear                    remove all finished tasks
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "synodl:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("missing command")
	}

	// Best effort; credentials may come from the real environment
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	api, err := syno.New(syno.Config{
		URL:         cfg.Station.URL,
		Username:    cfg.Station.Username,
		Password:    cfg.Station.Password,
		SessionName: cfg.Station.Session,
		Timeout:     time.Duration(cfg.Station.TimeoutSeconds) * time.Second,
	}, log.Logger)
	if err != nil {
		return err
	}
	station := downloadstation.New(api, log.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "list":
		return runList(ctx, station)
	case "get":
		return runGet(ctx, station, args)
	case "add":
		return runAdd(ctx, station, args)
	case "add-file":
		return runAddFile(ctx, station, args)
	case "pause":
		return runSimple(ctx, args, command, station.Pause)
	case "resume":
		return runResume(ctx, station, args)
	case "complete":
		return runComplete(ctx, station, args)
	case "delete":
		return runDelete(ctx, station, args)
	case "clear":
		return runClear(ctx, station)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runList(ctx context.Context, station *downloadstation.Station) error {
	list, err := station.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tSIZE\tSPEED\tETA\tTITLE")
	for i := range list.Tasks {
		task := &list.Tasks[i]

		eta := ""
		if seconds, ok := task.ETASeconds(); ok {
			eta = downloadstation.FormatETA(seconds)
		}

		fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%s\t%s\t%s\n",
			task.ID,
			task.Status,
			task.Progress(),
			task.SizeString(),
			task.SpeedString(),
			eta,
			task.Title,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d task(s)\n", list.Total)
	return nil
}

func runGet(ctx context.Context, station *downloadstation.Station, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("get: at least one task id is required")
	}

	tasks, err := station.Get(ctx, ids...)
	if err != nil {
		return err
	}

	for i := range tasks {
		task := &tasks[i]
		fmt.Printf("%s  %s\n", task.ID, task.Title)
		fmt.Printf("  status: %s  size: %s  progress: %.0f%%\n",
			task.Status, task.SizeString(), task.Progress())
		if task.StatusExtra != nil && task.StatusExtra.ErrorDetail != "" {
			fmt.Printf("  error: %s\n", task.StatusExtra.ErrorDetail)
		}
		if task.Additional == nil {
			continue
		}
		if detail := task.Additional.Detail; detail != nil {
			fmt.Printf("  destination: %s\n", detail.Destination)
			fmt.Printf("  created: %s\n", detail.Created().Format(time.RFC3339))
			if detail.URI != "" {
				fmt.Printf("  uri: %s\n", detail.URI)
			}
		}
		if tr := task.Additional.Transfer; tr != nil {
			fmt.Printf("  downloaded: %s  uploaded: %s  ratio: %.2f\n",
				downloadstation.FormatBytes(tr.SizeDownloaded),
				downloadstation.FormatBytes(tr.SizeUploaded),
				task.Ratio())
		}
		for _, file := range task.Additional.File {
			fmt.Printf("  file: %s (%s)\n", file.Filename, downloadstation.FormatBytes(file.Size))
		}
	}
	return nil
}

func runAdd(ctx context.Context, station *downloadstation.Station, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	dest := fs.String("dest", "downloads", "destination share folder")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("add: exactly one URI is required")
	}

	created, err := station.Create(ctx, fs.Arg(0), *dest)
	if err != nil {
		return err
	}
	for _, id := range created.TaskID {
		fmt.Println("created", id)
	}
	return nil
}

func runAddFile(ctx context.Context, station *downloadstation.Station, args []string) error {
	fs := flag.NewFlagSet("add-file", flag.ExitOnError)
	dest := fs.String("dest", "downloads", "destination share folder")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("add-file: exactly one torrent file is required")
	}

	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	created, err := station.CreateFromFile(ctx, filepath.Base(path), content, *dest)
	if err != nil {
		return err
	}
	for _, id := range created.TaskID {
		fmt.Println("created", id)
	}
	return nil
}

func runSimple(ctx context.Context, args []string, name string, op func(context.Context, string) error) error {
	if len(args) != 1 {
		return fmt.Errorf("%s: exactly one task id is required", name)
	}
	if err := op(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println(name+"d", args[0])
	return nil
}

func runResume(ctx context.Context, station *downloadstation.Station, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("resume: exactly one task id is required")
	}
	op, err := station.Resume(ctx, args[0])
	if err != nil {
		return err
	}
	reportOperation("resumed", args[0], op)
	return nil
}

func runComplete(ctx context.Context, station *downloadstation.Station, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("complete: exactly one task id is required")
	}
	completed, err := station.Complete(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Println("completing", completed.TaskID)
	return nil
}

func runDelete(ctx context.Context, station *downloadstation.Station, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	force := fs.Bool("force", false, "move finished portions to the destination before removal")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return fmt.Errorf("delete: exactly one task id is required")
	}

	op, err := station.Delete(ctx, fs.Arg(0), *force)
	if err != nil {
		return err
	}
	reportOperation("deleted", fs.Arg(0), op)
	return nil
}

func runClear(ctx context.Context, station *downloadstation.Station) error {
	if err := station.ClearCompleted(ctx); err != nil {
		return err
	}
	fmt.Println("cleared finished tasks")
	return nil
}

func reportOperation(verb, id string, op *downloadstation.TaskOperation) {
	if len(op.FailedTasks) == 0 {
		fmt.Println(verb, id)
		return
	}
	for _, failed := range op.FailedTasks {
		fmt.Printf("failed on %s: error %d\n", failed.ID, failed.Error)
	}
}
