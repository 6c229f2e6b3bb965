// Package timelinecmder provides the timeline command, the interactive
// day-bar view of a year of memories.
package timelinecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/sheeehy/lena/pkg/backend"
	"github.com/sheeehy/lena/pkg/cliui"
	"github.com/sheeehy/lena/pkg/config"
	"github.com/sheeehy/lena/pkg/dotdir"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/logger"
	"github.com/sheeehy/lena/pkg/memory"
	"github.com/sheeehy/lena/pkg/storage"
	"github.com/sheeehy/lena/pkg/storage/remote"
	"github.com/sheeehy/lena/pkg/wizard"
)

const logFileName = "lena.log"

type timelineCommander struct {
	storage      string
	sqlitePath   string
	postgresDSN  string
	apiTarget    string
	blobProvider string
	blobPath     string
	birthDate    string
	kafkaBrokers string
	kafkaTopic   string
	animatedBars uint
	year         int

	debug bool

	cfg    *config.Config
	logger *slog.Logger
}

const timelineLongDesc string = `Open the timeline: one bar per day of the year, taller for days with
more memories.

Move along the days with h/l or the mouse, press enter or click to open a
day and read its memories, switch years with [ and ], and press a to add a
memory. The position is remembered for the next run.

Logs are written to lena.log in the .lena directory.`

const timelineShortDesc string = "Browse your memories by day"

var timelineFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagAPITarget,
	config.FlagBlobProvider,
	config.FlagBlobPath,
	config.FlagBirthDate,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagAnimatedBars,
}

func NewTimelineCmd() *cobra.Command {
	cmder := &timelineCommander{}

	cmd := &cobra.Command{
		Use:     "timeline",
		Aliases: []string{"tl"},
		Short:   timelineShortDesc,
		Long:    timelineLongDesc,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveCommand(cmd, timelineFlags...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runCommand(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagBlobProvider, &cmder.blobProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagBlobPath, &cmder.blobPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagBirthDate, &cmder.birthDate)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	config.AddUintFlag(cmd, config.Flags, config.FlagAnimatedBars, &cmder.animatedBars)
	cmd.Flags().IntVarP(&cmder.year, "year", "y", 0, "Year to open (default: the last year viewed)")

	return cmd
}

// Run opens the timeline with the configuration resolved for cmd. The root
// command uses it when invoked without a subcommand.
func Run(cmd *cobra.Command) error {
	cfg, err := config.ResolveCommand(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cmder := &timelineCommander{cfg: cfg}
	return cmder.runCommand(cmd)
}

func (c *timelineCommander) runCommand(cmd *cobra.Command) error {
	c.debug, _ = cmd.Flags().GetBool("debug")
	configDir, _ := cmd.Flags().GetString("config-dir")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return c.run(ctx, configDir)
}

func (c *timelineCommander) run(ctx context.Context, configDir string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dm := dotdir.NewManager()
	logPath, err := dm.Path(configDir, logFileName)
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithWriter(logFile))

	birth, err := c.cfg.Profile.Birth()
	if err != nil {
		return err
	}

	b, err := backend.Open(ctx, c.cfg, configDir, c.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	store := memory.New(b.Driver, memory.Options{
		StartYear: c.cfg.Profile.FirstYear(birth),
		Logger:    c.logger,
	})
	err = cliui.Step(os.Stderr, "Loading memories", func() error {
		return store.Load(ctx)
	})
	if err != nil {
		return err
	}
	unsubscribe := store.Subscribe(b.Bus)
	defer unsubscribe()

	w := wizard.New(wizard.Config{
		Store:     store,
		Persister: b.Driver,
		Uploader:  b.Uploader,
		Publisher: b.Publisher,
		Origin:    eventstream.OriginTimeline,
		BirthDate: birth,
		Logger:    c.logger,
	})

	var watch <-chan struct{}
	switch d := b.Driver.(type) {
	case *remote.Driver:
		watch, err = d.Watch(ctx)
	default:
		if b.SQLitePath != "" {
			watch, err = storage.Watch(ctx, b.SQLitePath, storage.DefaultWatchDelay)
		}
	}
	if err != nil {
		c.logger.Warn("not watching for changes", "error", err)
		watch = nil
	}

	view, err := dm.LoadViewState(configDir)
	if err != nil {
		c.logger.Warn("ignoring saved view state", "error", err)
		view = nil
	}

	model := newTimelineModel(ctx, modelConfig{
		Store:          store,
		Wizard:         w,
		Stagger:        time.Duration(c.cfg.Timeline.StaggerMillis) * time.Millisecond,
		RevealDuration: time.Duration(c.cfg.Timeline.DurationMillis) * time.Millisecond,
		AnimatedBars:   int(c.cfg.Timeline.AnimatedBars),
		View:           view,
		Year:           c.year,
		Watch:          watch,
		Logger:         c.logger,
	})

	final, err := runTimelineTUI(ctx, model)
	if saveErr := dm.SaveViewState(final.viewState(), configDir); saveErr != nil {
		c.logger.Warn("could not save view state", "error", saveErr)
	}
	return err
}

func runTimelineTUI(ctx context.Context, model timelineModel) (timelineModel, error) {
	program := tea.NewProgram(model, tea.WithContext(ctx))
	final, err := program.Run()
	if m, ok := final.(timelineModel); ok {
		return m, err
	}
	return model, err
}
