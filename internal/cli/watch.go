package cli

import (
	"bytes"
	"os"
	"sync"

	"cvstudio/internal/common"
	"cvstudio/internal/cv"
	"cvstudio/internal/derive"
	"cvstudio/internal/errors"
	"cvstudio/internal/livesync"
	"cvstudio/internal/render"
	"cvstudio/internal/watch"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [cv-file]",
	Short: "Re-render a preview every time the CV file is saved",
	Long: `Watch a CV file and keep a PNG preview next to it up to date. Saves are
debounced the same way the browser editor debounces keystrokes, and only the
newest render is written. Runs until interrupted.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: documentArgCompletion,
	RunE:              runWatch,
}

var (
	watchOutput      string
	watchRenderFlags renderFlags
)

func init() {
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", "", "Preview PNG path (default: the CV path with .png)")
	watchRenderFlags.registerDesign(watchCmd)
}

// previewWriter stores each new preview the controller reports
type previewWriter struct {
	mu     sync.Mutex
	path   string
	last   []byte
	output *common.OutputHandler
	logger *errors.Logger
}

func (w *previewWriter) update(status livesync.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for field, msg := range status.FieldErrors {
		w.logger.Warn("Typesetter rejected a field", "field", field, "message", msg)
	}
	if status.Preview == nil {
		w.clear()
		return
	}
	if status.State != livesync.StateIdle || bytes.Equal(status.Preview, w.last) {
		return
	}
	if err := w.output.WriteBinary(status.Preview, w.path); err != nil {
		w.logger.LogError(err, "Failed to write preview", "file", w.path)
		return
	}
	w.last = status.Preview
}

// clear removes a previously written preview once the controller has
// dropped its own, as it does when the document is emptied.
func (w *previewWriter) clear() {
	if w.last == nil {
		return
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		w.logger.LogError(errors.NewIOError(errors.ErrCodeFileNotWritable, "Failed to remove stale preview", err), "Preview left on disk", "file", w.path)
		return
	}
	w.last = nil
	w.logger.Info("Document is empty, preview removed", "file", w.path)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := commandContext(cmd)
	if err != nil {
		return err
	}

	opts, err := watchRenderFlags.resolve(cfg)
	if err != nil {
		return err
	}

	path := args[0]
	doc, err := common.NewFileProcessor(logger).LoadDocument(path)
	if err != nil {
		return err
	}

	target := watchOutput
	if target == "" {
		target = previewPath(path)
	}
	writer := &previewWriter{path: target, output: common.NewOutputHandler(logger), logger: logger}

	syncOpts := livesync.OptionsFromConfig(cfg.Sync)
	syncOpts.OnUpdate = writer.update
	controller := livesync.New(render.NewClient(cfg.Renderer, logger), syncOpts, logger)
	defer func() {
		controller.Close()
		controller.Wait()
	}()

	controller.SetTheme(opts.theme)
	controller.SetDesign(opts.design)
	reload := func(doc cv.Document) {
		logger.Info("CV changed", "file", path, "ats_score", derive.Score(doc).Score)
		controller.SetDocument(doc)
	}
	reload(doc)

	watcher := watch.NewDocumentWatcher(path, 0, reload, func(err error) {
		logger.LogError(err, "CV reload failed, keeping the last valid version", "file", path)
	}, logger)
	if err := watcher.Start(); err != nil {
		return err
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			logger.Warn("Failed to stop watcher", "error", err)
		}
	}()

	logger.Info("Watching CV", "file", path, "preview", target, "theme", opts.theme.String())
	<-cmd.Context().Done()
	logger.Info("Stopping watch", "file", path)
	return nil
}
