package main

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/greut/dzi/dzi"
	"github.com/greut/dzi/server"
	"github.com/mitchellh/colorstring"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Look for missing tiles in the gallery",
	Long: `Open every image of the gallery the way a viewer does, at the home
view of a container of the given size, and report the tiles that cannot be
loaded. With --all, every tile of every level is checked.

Records with a redirect are skipped.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Float64("width", 1024, "container width")
	checkCmd.Flags().Float64("height", 768, "container height")
	checkCmd.Flags().Bool("all", false, "check every tile of the pyramid")
	checkCmd.Flags().Duration("timeout", 30*time.Second, "time allowed per image")
}

// checker reports on one image at a time.
type checker struct {
	config  *server.Config
	width   float64
	height  float64
	all     bool
	timeout time.Duration
	out     io.Writer
	colors  colorstring.Colorize
}

func runCheck(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	gallery, err := server.NewGallery(config)
	if err != nil {
		return err
	}

	c := &checker{config: config, out: cmd.OutOrStdout(), colors: colorize()}
	c.width, _ = cmd.Flags().GetFloat64("width")
	c.height, _ = cmd.Flags().GetFloat64("height")
	c.all, _ = cmd.Flags().GetBool("all")
	c.timeout, _ = cmd.Flags().GetDuration("timeout")

	broken := 0
	for _, record := range gallery.Records() {
		missing, err := c.check(cmd.Context(), gallery, record)
		switch {
		case err != nil:
			broken++
			fmt.Fprintln(c.out, c.colors.Color(fmt.Sprintf("[red]%s: %v", record.ID, err)))
		case len(missing) > 0:
			broken++
			fmt.Fprintln(c.out, c.colors.Color(fmt.Sprintf("[red]%s: %d missing tiles", record.ID, len(missing))))
			for _, path := range missing {
				fmt.Fprintf(c.out, "  %s\n", path)
			}
		}
	}

	if broken > 0 {
		return fmt.Errorf("%d of %d images are broken", broken, len(gallery.Records()))
	}
	return nil
}

// check returns the missing tiles of a record.
func (c *checker) check(ctx context.Context, gallery *dzi.Gallery, record dzi.Record) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var desc *dzi.Descriptor
	var loader dzi.DiskLoader
	session, redirect, err := gallery.Open(ctx, record.ID, func(ctx context.Context, r dzi.Record) (*dzi.Session, error) {
		payload, err := ioutil.ReadFile(filepath.Join(c.config.Images, filepath.FromSlash(r.Source)))
		if err != nil {
			return nil, err
		}
		desc, err = dzi.Parse(payload)
		if err != nil {
			return nil, err
		}
		loader = dzi.DiskLoader{Root: c.config.Images, BaseName: r.BaseName(), Format: desc.Format}
		return dzi.Open(ctx, desc, r.BaseName(), loader, c.config.Viewer, c.width, c.height), nil
	})
	if err != nil {
		return nil, err
	}
	if redirect != "" {
		fmt.Fprintln(c.out, c.colors.Color(fmt.Sprintf("[dark_gray]%s: redirects to %s", record.ID, redirect)))
		return nil, nil
	}
	defer session.Close()

	var missing []string
	if c.all {
		missing = c.walk(ctx, session, loader)
	} else {
		missing, err = c.home(ctx, session)
		if err != nil {
			return nil, err
		}
	}

	if len(missing) == 0 {
		fmt.Fprintln(c.out, c.colors.Color(fmt.Sprintf("[green]%s: ok[reset] (%dx%d, %d levels)", record.ID, desc.Width, desc.Height, len(session.Levels()))))
	}
	return missing, nil
}

// home loads the tiles of the home view through the session.
func (c *checker) home(ctx context.Context, session *dzi.Session) ([]string, error) {
	if _, err := session.Refresh(); err != nil {
		return nil, err
	}

	var missing []string
	for session.Pending() > 0 {
		select {
		case r := <-session.Results():
			if session.Accept(r) && r.Err != nil {
				missing = append(missing, session.Path(r.TileID))
			}
		case <-ctx.Done():
			return missing, ctx.Err()
		}
	}
	return missing, nil
}

// walk looks for every tile file of the pyramid.
func (c *checker) walk(ctx context.Context, session *dzi.Session, loader dzi.Loader) []string {
	var missing []string
	for _, level := range session.Levels() {
		for row := 0; row < level.Rows; row++ {
			for column := 0; column < level.Columns; column++ {
				id := dzi.TileID{Level: level.Index, Column: column, Row: row}
				if _, err := loader.Load(ctx, id); err != nil {
					missing = append(missing, session.Path(id))
				}
			}
		}
	}
	return missing
}
