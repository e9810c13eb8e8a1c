// Command bfstool lists, extracts, creates, and identifies BZF/BFS archives.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meigma/bfstool"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "bfstool: %v\n", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		return 1
	}
	return 0
}

// app holds the flags shared by every command.
type app struct {
	verbose      bool
	force        bool
	fastIdentify bool
	keysPath     string
	dbPath       string
	revision     revisionFlag

	stderr io.Writer
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	root := &cobra.Command{
		Use:           "bfstool",
		Short:         "Inspect, extract, and build BZF/BFS game archives",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug diagnostics to stderr")
	pf.StringVar(&a.keysPath, "keys", "", "Keys.toml file (default "+bfstool.KeysPath()+")")
	pf.StringVar(&a.dbPath, "database", "", "known-file database YAML (default embedded)")

	root.AddCommand(
		a.newListCmd(),
		a.newTreeCmd(),
		a.newExtractCmd(),
		a.newCreateCmd(),
		a.newIdentifyCmd(),
		a.newDecryptCmd(),
		a.newEncryptCmd(),
		a.newTestFiltersCmd(),
	)
	return root
}

// addReadFlags registers the flags of commands that open an archive.
func (a *app) addReadFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.VarP(&a.revision, "format", "f", "archive format (bzf2001, bzf2002, bfs2004a, bfs2004b, bfs2007); identified when omitted")
	f.BoolVar(&a.force, "force", false, "ignore invalid magic, version, and hash size")
	f.BoolVar(&a.fastIdentify, "fast-identify", false, "trust a CRC32 in the file name when identifying")
}

func (a *app) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.New(slog.DiscardHandler)
}

func (a *app) keyRing() (bfstool.KeyRing, error) {
	if a.keysPath != "" {
		return bfstool.LoadKeysFile(a.keysPath)
	}
	return bfstool.LoadKeys()
}

func (a *app) database() (*bfstool.Database, error) {
	if a.dbPath == "" {
		return bfstool.DefaultDatabase()
	}
	f, err := os.Open(a.dbPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	db, err := bfstool.LoadDatabase(f)
	if err != nil {
		return nil, err
	}
	a.log().Debug("loaded known-file database", "path", a.dbPath, "records", db.Len())
	return db, nil
}

// open maps and parses the archive at path with the shared read flags.
func (a *app) open(path string) (*bfstool.ArchiveFile, error) {
	keys, err := a.keyRing()
	if err != nil {
		return nil, err
	}
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	opts := []bfstool.Option{
		bfstool.WithKeys(keys),
		bfstool.WithForce(a.force),
		bfstool.WithDatabase(db),
		bfstool.WithFastIdentify(a.fastIdentify),
		bfstool.WithLogger(a.log()),
	}
	if a.revision.set {
		opts = append(opts, bfstool.WithRevision(a.revision.rev))
	}
	return bfstool.OpenFile(path, opts...)
}

// errorHint suggests a next step for errors a user can act on.
func errorHint(err error) string {
	switch {
	case errors.Is(err, bfstool.ErrMissingKey):
		return "Add the key to " + bfstool.KeysPath() + " or pass --keys"
	case errors.Is(err, bfstool.ErrUnsupportedRevision):
		return "Pass the archive format with --format"
	case errors.Is(err, bfstool.ErrMalformedHeader):
		return "Check --format, or pass --force to skip magic and version checks"
	default:
		return ""
	}
}
