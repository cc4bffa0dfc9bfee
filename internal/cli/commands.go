package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytget/yt-webclient/internal/compress"
	"github.com/ytget/yt-webclient/internal/download"
	"github.com/ytget/yt-webclient/internal/model"
	"github.com/ytget/yt-webclient/internal/platform"
	"github.com/ytget/yt-webclient/internal/session"
	"github.com/ytget/yt-webclient/internal/term"
)

// newInfoCmd prints the details and formats of a video
func newInfoCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <url>",
		Short: "Show video details and available formats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := a.newController(term.New(a.out), nil)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			return shown(ctrl.Submit(cmd.Context(), args[0]))
		},
	}
}

// newGetCmd runs the whole flow for one format and saves the file
func newGetCmd(a *App) *cobra.Command {
	var formatID string

	getCmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Download a video in the chosen format",
		Long:  "Fetch the video details, start a server job for the format, follow it until it finishes and save the file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGet(cmd.Context(), args[0], formatID)
		},
	}

	getCmd.Flags().StringVarP(&formatID, "format", "f", "", "format ID to download (see the info command)")
	_ = getCmd.MarkFlagRequired("format")

	return getCmd
}

type queuedTask struct {
	id  string
	err error
}

func (a *App) runGet(ctx context.Context, rawURL, formatID string) error {
	if err := platform.CreateDirectoryIfNotExists(a.cfg.DownloadDir); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	retriever := download.NewService(a.cfg.DownloadDir, a.cfg.MaxParallel, download.WithLogger(a.log))

	// The controller returns from Wait before it navigates, so the queued
	// task is handed over separately.
	queued := make(chan queuedTask, 1)
	nav := session.NavigatorFunc(func(fileURL string) error {
		task, err := retriever.AddTask(fileURL)
		q := queuedTask{err: err}
		if task != nil {
			q.id = task.ID
		}
		select {
		case queued <- q:
		default:
		}
		return err
	})

	ctrl, err := a.newController(term.New(a.out), nav)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Submit(ctx, rawURL); err != nil {
		return shown(err)
	}
	if err := ctrl.Download(ctx, formatID); err != nil {
		return shown(err)
	}
	if _, _, err := ctrl.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return shown(err)
	}

	var q queuedTask
	select {
	case q = <-queued:
	case <-ctx.Done():
		return ctx.Err()
	}
	if q.err != nil {
		return fmt.Errorf("queue file retrieval: %w", q.err)
	}

	task, err := a.waitRetrieval(ctx, retriever, q.id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved to %s\n", task.OutputPath)

	if a.cfg.Compress {
		return a.compressFile(ctx, task.OutputPath)
	}
	return nil
}

func (a *App) waitRetrieval(ctx context.Context, retriever *download.Service, id string) (*model.DownloadTask, error) {
	done := make(chan struct{})
	go func() {
		retriever.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		_ = retriever.StopTask(id)
		<-done
		return nil, ctx.Err()
	}

	task, ok := retriever.GetTask(id)
	if !ok {
		return nil, fmt.Errorf("retrieval task %s disappeared", id)
	}
	switch {
	case task.Status == model.TaskStatusError:
		return nil, fmt.Errorf("retrieve file: %s", task.LastError)
	case task.Status != model.TaskStatusCompleted:
		return nil, fmt.Errorf("retrieve file: task ended %s", task.Status)
	}
	return task, nil
}

func (a *App) compressFile(ctx context.Context, path string) error {
	comp := compress.NewService(compress.WithLogger(a.log))
	if !comp.Available() {
		a.log.Warn("ffmpeg or ffprobe not found, skipping compression")
		return nil
	}

	task, err := comp.StartCompression(path)
	if errors.Is(err, compress.ErrNotVideo) {
		a.log.WithField("path", path).Info("Not a video, skipping compression")
		return nil
	}
	if err != nil {
		return fmt.Errorf("start compression: %w", err)
	}

	done := make(chan struct{})
	go func() {
		comp.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		_ = comp.StopCompression(task.ID)
		<-done
		return ctx.Err()
	}

	final, ok := comp.GetTask(task.ID)
	if !ok || final.Status != model.TaskStatusCompleted {
		msg := "unknown error"
		if ok && final.LastError != "" {
			msg = final.LastError
		}
		return fmt.Errorf("compress %s: %s", path, msg)
	}
	fmt.Fprintf(a.out, "Compressed to %s\n", final.OutputPath)
	return nil
}
