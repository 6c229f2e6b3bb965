// Package addcmder provides the add command, which records a memory without
// opening the timeline.
package addcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheeehy/lena/pkg/backend"
	"github.com/sheeehy/lena/pkg/cliui"
	"github.com/sheeehy/lena/pkg/config"
	"github.com/sheeehy/lena/pkg/day"
	"github.com/sheeehy/lena/pkg/eventstream"
	"github.com/sheeehy/lena/pkg/logger"
	"github.com/sheeehy/lena/pkg/memory"
	"github.com/sheeehy/lena/pkg/wizard"
)

type addCommander struct {
	date        string
	title       string
	description string
	location    string
	image       string

	storage      string
	sqlitePath   string
	postgresDSN  string
	apiTarget    string
	blobProvider string
	blobPath     string
	birthDate    string
	kafkaBrokers string
	kafkaTopic   string

	debug bool
	out   io.Writer

	cfg    *config.Config
	logger *slog.Logger
}

const addLongDesc string = `Add a memory to the timeline.

The memory goes through the same checks as the timeline's add wizard: the
date must be a real day between your birth date and today, the day must have
room for another memory, and a title and description are required.

Dates use the DD MM YYYY form and default to today.

Examples:
  lena add --title "First day" --description "Moved into the new flat."
  lena add --date "14 02 2021" --title "Lisbon" --description "Pastéis." --location Lisbon --image ./tram.jpg`

const addShortDesc string = "Add a memory"

var addFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagAPITarget,
	config.FlagBlobProvider,
	config.FlagBlobPath,
	config.FlagBirthDate,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

func NewAddCmd() *cobra.Command {
	cmder := &addCommander{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: addShortDesc,
		Long:  addLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveCommand(cmd, addFlags...)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			configDir, _ := cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, configDir)
		},
	}

	cmd.Flags().StringVar(&cmder.date, "date", "", "Memory date as DD MM YYYY (default: today)")
	cmd.Flags().StringVarP(&cmder.title, "title", "t", "", "Memory title")
	cmd.Flags().StringVar(&cmder.description, "description", "", "Memory description")
	cmd.Flags().StringVar(&cmder.location, "location", "", "Where it happened")
	cmd.Flags().StringVarP(&cmder.image, "image", "i", "", "Path to an image to attach")

	config.AddStringFlag(cmd, config.Flags, config.FlagStorageDriver, &cmder.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagBlobProvider, &cmder.blobProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagBlobPath, &cmder.blobPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagBirthDate, &cmder.birthDate)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)

	return cmd
}

func (c *addCommander) run(ctx context.Context, configDir string) error {
	c.logger = logger.Nop()
	if c.debug {
		c.logger = logger.New(logger.WithDebug(true), logger.WithPretty(true), logger.WithWriter(os.Stderr))
	}

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
	if err := store.Load(ctx); err != nil {
		return err
	}

	w := wizard.New(wizard.Config{
		Store:     store,
		Persister: b.Driver,
		Uploader:  b.Uploader,
		Publisher: b.Publisher,
		Origin:    eventstream.OriginCLI,
		BirthDate: birth,
		Logger:    c.logger,
	})

	saved, err := c.submit(ctx, w)
	if err != nil {
		return err
	}

	c.printSaved(saved)
	return nil
}

// submit fills the wizard from the flags and runs it to completion.
func (c *addCommander) submit(ctx context.Context, w *wizard.Wizard) (day.Memory, error) {
	w.Open()
	if c.date != "" {
		w.SetDate(c.date)
	}
	w.SetTitle(c.title)
	w.SetDescription(c.description)
	w.SetLocation(c.location)
	if c.image != "" {
		if err := w.SelectImage(c.image); err != nil {
			return day.Memory{}, err
		}
	}

	var saved day.Memory
	err := cliui.Step(c.out, "Saving memory", func() error {
		var err error
		saved, err = w.Submit(ctx)
		return err
	})
	if err != nil {
		return day.Memory{}, submitError(w, err)
	}
	return saved, nil
}

// submitError pairs a failed submission with the message shown to the user.
func submitError(w *wizard.Wizard, err error) error {
	var persistErr *wizard.PersistError
	var uploadErr *wizard.UploadError
	note, ok := w.Notification()
	switch {
	case ok && (errors.As(err, &persistErr) || errors.As(err, &uploadErr)):
		return fmt.Errorf("%s: %w", note.Message, err)
	default:
		return fmt.Errorf("%s: %w", w.Step(), err)
	}
}

func (c *addCommander) printSaved(m day.Memory) {
	fmt.Fprintf(c.out, "\n  %s %s\n", cliui.SuccessMark, wizard.MessageSaved)
	fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("date:"), cliui.ValueStyle.Render(m.Date))
	fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("title:"), cliui.ValueStyle.Render(m.Title))
	if desc, err := cliui.RenderMarkdown(m.Description, cliui.TermWidth(os.Stdout)-8); err == nil {
		fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("description:"), strings.TrimSpace(desc))
	}
	if m.Location != "" {
		fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("location:"), cliui.ValueStyle.Render(m.Location))
	}
	if m.Image != "" {
		fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("image:"), cliui.Link(m.Image, m.Image))
	}
	fmt.Fprintf(c.out, "    %s %s\n", cliui.KeyStyle.Render("id:"), cliui.DimStyle.Render(m.ID))
}
