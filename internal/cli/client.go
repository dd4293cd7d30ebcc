package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"clipgrab/internal/ui"
)

// Client runs the info and download commands against a server
type Client struct {
	Backend ui.Backend
	Out     io.Writer
	Err     io.Writer
	// Interval between progress stages; zero uses the default
	Interval time.Duration
}

// RunInfo analyses cmd.URL and prints its metadata and download options
func (c *Client) RunInfo(ctx context.Context, cmd *Command) int {
	sess := ui.NewSession(c.Backend, cmd.Platform, cmd.OutDir)
	if err := c.analyze(ctx, sess, cmd.URL); err != nil {
		fmt.Fprintf(c.Err, "Error: %s\n", sess.Message())
		return 1
	}

	c.printInfo(sess)
	c.printOptions(sess.Options())
	return 0
}

// RunDownload analyses cmd.URL, then downloads the selected option
func (c *Client) RunDownload(ctx context.Context, cmd *Command) int {
	sess := ui.NewSession(c.Backend, cmd.Platform, cmd.OutDir)
	if err := c.analyze(ctx, sess, cmd.URL); err != nil {
		fmt.Fprintf(c.Err, "Error: %s\n", sess.Message())
		return 1
	}
	c.printInfo(sess)

	opt, ok := ui.FindOption(sess.Options(), cmd.Option)
	if !ok {
		fmt.Fprintf(c.Err, "Error: unknown option %q\n", cmd.Option)
		c.printOptions(sess.Options())
		return 1
	}

	fmt.Fprintf(c.Out, "Downloading %s...\n", opt.Title)
	result, err := sess.Download(ctx, opt)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %s\n", sess.Message())
		return 1
	}

	fmt.Fprintf(c.Out, "Your %s is ready to download\n", result.Type)
	if result.DownloadURL != "" {
		fmt.Fprintf(c.Out, "  Link: %s\n", result.DownloadURL)
		fmt.Fprintf(c.Out, "  Save as: %s\n", fallback(result.Filename, "download"))
	} else {
		fmt.Fprintf(c.Out, "  Saved: %s (%d bytes)\n", result.Path, result.Size)
	}
	return 0
}

// analyze runs the session analysis while rendering the progress stages
func (c *Client) analyze(ctx context.Context, sess *ui.Session, url string) error {
	pctx, cancel := context.WithCancel(ctx)
	stages := ui.NewProgress(c.Interval).Start(pctx)

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for st := range stages {
			fmt.Fprintf(c.Out, "\r%s", renderStage(st))
		}
	}()

	err := sess.Analyze(ctx, url)
	cancel()
	<-rendered
	fmt.Fprintln(c.Out)

	return err
}

func (c *Client) printInfo(sess *ui.Session) {
	info := sess.Info()
	if info == nil {
		return
	}

	duration, views := "Unknown", "Unknown"
	if info.Duration > 0 {
		duration = ui.FormatDuration(info.Duration)
	}
	if info.Views > 0 {
		views = ui.FormatCount(info.Views)
	}

	fmt.Fprintf(c.Out, "Title:    %s\n", info.Title)
	fmt.Fprintf(c.Out, "Author:   %s\n", info.Author)
	fmt.Fprintf(c.Out, "Duration: %s\n", duration)
	fmt.Fprintf(c.Out, "Views:    %s\n", views)
	if info.Thumbnail != nil {
		fmt.Fprintf(c.Out, "Thumbnail: %s\n", *info.Thumbnail)
	}
	if info.Degraded {
		fmt.Fprintln(c.Out, "(metadata unavailable, showing placeholders)")
	}
}

func (c *Client) printOptions(opts []ui.Option) {
	fmt.Fprintln(c.Out, "Options:")
	for i, o := range opts {
		fmt.Fprintf(c.Out, "  %d. %-12s %s\n", i+1, o.Title, o.Description)
	}
}

// renderStage draws a 20 column bar followed by the percentage and status
func renderStage(st ui.Stage) string {
	filled := st.Percent / 5
	if filled > 20 {
		filled = 20
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(" ", 20-filled)
	return fmt.Sprintf("[%s] %3d%% %-30s", bar, st.Percent, st.Status)
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
