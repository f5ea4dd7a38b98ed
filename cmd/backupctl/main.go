// Command backupctl lists snapshot archives and restores one into the live
// snapshot slot. Run it while the server is stopped; a running redis-backed
// server holds the writer lease and the restore is refused.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"giftcast/internal/core/domain"
	"giftcast/internal/core/ports"
	archive "giftcast/internal/infrastructure/backup"
	"giftcast/internal/infrastructure/repositories"
	"giftcast/pkg/config"
	"giftcast/pkg/logger"
	"giftcast/pkg/optimize"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const usage = `usage: backupctl [-config path] <command> [args]

commands:
  list [-json]           list archives, oldest first
  archive                archive the current live snapshot
  restore <name>         restore the named archive
  restore -at <RFC3339>  restore the newest archive taken at or before the time
`

func main() {
	configPath := flag.String("config", envOr("GIFTCAST_CONFIG", "configs/config.yaml"), "path to the YAML config")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, "console")
	defer zapLogger.Sync()

	if err := run(context.Background(), cfg, zapLogger.Sugar(), flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "backupctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger, args []string) error {
	clock := clockwork.NewRealClock()
	factory, err := repositories.NewRepositoryFactory(ctx, cfg, clock, log)
	if err != nil {
		return err
	}
	defer factory.Close(ctx)

	storage, err := factory.ArchiveStorage()
	if err != nil {
		return err
	}
	backups := archive.NewArchiveService(storage, clock)
	restorer := archive.NewRestoreService(backups, factory.SnapshotStore(), log)

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		asJSON := fs.Bool("json", false, "print the names as a JSON array")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		names, err := restorer.ListArchives(ctx)
		if err != nil {
			return err
		}
		if *asJSON {
			if names == nil {
				names = []string{}
			}
			_, err := optimize.WriteJSON(os.Stdout, names)
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil

	case "archive":
		archiver := archive.NewArchiver(backups, storeSource{factory.SnapshotStore()}, cfg.Archive.RetentionDays, clock, log)
		name, err := archiver.Archive(ctx, "manual")
		if err != nil {
			return err
		}
		fmt.Println(name)
		return nil

	case "restore":
		fs := flag.NewFlagSet("restore", flag.ContinueOnError)
		at := fs.String("at", "", "restore the newest archive at or before this RFC3339 time")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		var name string
		switch {
		case *at != "":
			target, err := time.Parse(time.RFC3339, *at)
			if err != nil {
				return fmt.Errorf("invalid -at time: %w", err)
			}
			if name, err = restorer.FindBackupByTime(ctx, target); err != nil {
				return err
			}
		case fs.NArg() == 1:
			name = fs.Arg(0)
		default:
			return fmt.Errorf("restore needs an archive name or -at")
		}

		snapshot, err := restorer.RestoreArchive(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("restored %s: %d groups, %d wallets, saved at %s\n",
			name, len(snapshot.Groups), len(snapshot.Wallets), snapshot.SavedAt.Format(time.RFC3339))
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// storeSource archives what the snapshot store currently holds.
type storeSource struct {
	store ports.SnapshotStore
}

func (s storeSource) Capture(ctx context.Context) (*domain.Snapshot, error) {
	snapshot, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, fmt.Errorf("no live snapshot to archive")
	}
	return snapshot, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
