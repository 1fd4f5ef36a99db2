package console

import (
	"context"
	"fmt"
	"strings"

	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/apperr"

	"go.uber.org/zap"
)

func (i *Interface) handleCommand(ctx context.Context, input string) error {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "help", "h":
		i.printHelp()
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	case "story":
		if arg == "" {
			return fmt.Errorf("usage: story <text>")
		}

		i.form.Story = arg
		fmt.Fprintln(i.out, "Story set.")
	case "scenes":
		return i.form.SetScenes(arg)
	case "style":
		if arg == "" {
			return fmt.Errorf("usage: style <name>")
		}

		i.form.Style = arg
	case "aspect":
		return i.form.SetAspect(arg)
	case "outputs":
		return i.form.SetOutputs(arg)
	case "image":
		return i.addImage(arg)
	case "images":
		if arg != "clear" {
			return fmt.Errorf("usage: images clear")
		}

		i.form.ClearImages()
		fmt.Fprintf(i.out, "Images cleared. Mode: %s\n", i.form.Mode())
	case "generate":
		return i.generatePrompts(ctx)
	case "prompts":
		i.printPrompts()
	case "run":
		return i.runStoryboard(ctx)
	case "events":
		return i.printEvents(arg)
	case "ping":
		return i.ping(ctx)
	case "testapi":
		return i.testAPI(ctx)
	case "status":
		i.printStatus()
	default:
		return fmt.Errorf("unknown command %q, type help", cmd)
	}

	return nil
}

func (i *Interface) addImage(path string) error {
	if path == "" {
		return fmt.Errorf("usage: image <path>")
	}

	img, err := i.form.AddImage(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(i.out, "Image %d: %s (%s)\n", len(i.form.Images), img.Name, img.MimeType)
	fmt.Fprintf(i.out, "Mode: %s\n", i.form.Mode())

	return nil
}

func (i *Interface) generatePrompts(ctx context.Context) error {
	fmt.Fprintf(i.out, "Generating storyboard: %d scenes, style %s...\n", i.form.Scenes, i.form.Style)

	prompts, err := i.usecase.Prompts.Generate(ctx, i.form.Story, i.form.Scenes, i.form.Style)
	if err != nil {
		return describe(err)
	}

	i.form.Prompts = prompts
	fmt.Fprintf(i.out, "Created %d scene prompts.\n", len(prompts))
	i.printPrompts()

	return nil
}

func (i *Interface) printPrompts() {
	if len(i.form.Prompts) == 0 {
		fmt.Fprintln(i.out, "No prompts yet, use generate.")

		return
	}

	for n, p := range i.form.Prompts {
		fmt.Fprintf(i.out, "Scene %d: %s\n", n+1, p)
	}
}

func (i *Interface) runStoryboard(ctx context.Context) error {
	if len(i.form.Prompts) == 0 {
		return fmt.Errorf("generate the storyboard first")
	}

	req := i.form.Request()

	fmt.Fprintf(i.out, "Starting video generation: %d scenes\n", len(req.Prompts))
	fmt.Fprintf(i.out, "Mode: %s (%d images)\n", req.Mode, len(req.Images))

	res := i.usecase.Storyboard.Run(ctx, req)

	i.logger.Info("Storyboard run finished",
		zap.String("run_id", res.RunID),
		zap.Bool("succeeded", res.Succeeded),
		zap.Int("completed", res.ScenesCompleted))

	switch {
	case res.ErrorMessage == entity.ErrorTransportUnavailable:
		fmt.Fprintln(i.out, "Engine is not reachable or its page is not loaded. Open labs.google in the engine browser and retry.")
	case res.ErrorMessage == entity.ErrorBusy:
		fmt.Fprintln(i.out, "Engine is busy with another storyboard.")
	case res.Succeeded:
		fmt.Fprintf(i.out, "Done: %d/%d scenes completed.\n", res.ScenesCompleted, res.TotalScenes)
	default:
		fmt.Fprintf(i.out, "Failed: no scene completed. %s\n", res.ErrorMessage)
	}

	if len(res.FailedSceneIndices) > 0 {
		scenes := make([]string, 0, len(res.FailedSceneIndices))
		for _, idx := range res.FailedSceneIndices {
			scenes = append(scenes, fmt.Sprint(idx+1))
		}

		fmt.Fprintf(i.out, "Scenes not completed: %s\n", strings.Join(scenes, ", "))
	}

	if res.RunID != "" {
		fmt.Fprintf(i.out, "Run id: %s, use: events %s\n", res.RunID, res.RunID)
	}

	return nil
}

func (i *Interface) printEvents(runID string) error {
	if runID == "" {
		return fmt.Errorf("usage: events <run id>")
	}

	events, ok := i.usecase.Storyboard.Events(runID)
	if !ok {
		return fmt.Errorf("no log for run %s", runID)
	}

	for _, ev := range events {
		fmt.Fprintf(i.out, "[%s] %-7s %-17s %s\n", ev.At.Format("15:04:05"), ev.Level, ev.Phase, ev.Message)
	}

	return nil
}

func (i *Interface) ping(ctx context.Context) error {
	if err := i.usecase.Storyboard.Ping(ctx); err != nil {
		return describe(err)
	}

	fmt.Fprintln(i.out, "Engine ready.")

	return nil
}

func (i *Interface) testAPI(ctx context.Context) error {
	fmt.Fprintln(i.out, "Testing API...")

	reply, err := i.usecase.Prompts.TestConnection(ctx)
	if err != nil {
		return describe(err)
	}

	fmt.Fprintf(i.out, "API OK! %s\n", reply)

	return nil
}

func (i *Interface) printStatus() {
	f := i.form

	fmt.Fprintf(i.out, "Story:   %s\n", f.Story)
	fmt.Fprintf(i.out, "Scenes:  %d\n", f.Scenes)
	fmt.Fprintf(i.out, "Style:   %s\n", f.Style)
	fmt.Fprintf(i.out, "Aspect:  %s\n", f.Aspect)
	fmt.Fprintf(i.out, "Outputs: %d\n", f.Outputs)
	fmt.Fprintf(i.out, "Images:  %d\n", len(f.Images))
	fmt.Fprintf(i.out, "Mode:    %s\n", f.Mode())
	fmt.Fprintf(i.out, "Prompts: %d\n", len(f.Prompts))
}

// describe turns error codes into what a person at the prompt can act on.
func describe(err error) error {
	switch apperr.CodeOf(err) {
	case apperr.CodeMissingCredential:
		return fmt.Errorf("no API key: set AI_API_KEY")
	case apperr.CodeTransportUnavailable:
		return fmt.Errorf("engine not reachable: %w", err)
	case apperr.CodeUpstreamService:
		return fmt.Errorf("prompt generator failed: %w", err)
	default:
		return err
	}
}
