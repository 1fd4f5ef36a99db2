package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"tb-storyboard/internal/config"
	"tb-storyboard/internal/usecase"
	"tb-storyboard/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	config  *config.Config
	logger  *zap.Logger
	usecase *usecase.Service
	in      io.Reader
	out     io.Writer
	form    *Form

	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	stopOnce sync.Once
}

type Params struct {
	fx.In

	Config  *config.Config
	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	return newInterface(params, os.Stdin, os.Stdout)
}

func newInterface(params Params, in io.Reader, out io.Writer) *Interface {
	ctx, cancel := context.WithCancel(context.Background())

	return &Interface{
		config:  params.Config,
		logger:  params.Logger.With(zap.String(logg.Layer, "Console")),
		usecase: params.Usecase,
		in:      in,
		out:     out,
		form:    NewForm(),
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
	}
}

// Start runs the REPL until exit, end of input, or an interrupt.
func (i *Interface) Start() error {
	defer i.cancel()

	i.printBanner()
	i.printHelp()

	signal.Notify(i.sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(i.sigChan)

	go func() {
		select {
		case <-i.sigChan:
			fmt.Fprintln(i.out, "\nInterrupt received, stopping...")
			i.cancel()
		case <-i.ctx.Done():
		}
	}()

	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(i.in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-i.ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(i.out, "\n> ")

		var (
			input string
			ok    bool
		)

		select {
		case <-i.ctx.Done():
			return nil
		case input, ok = <-lines:
		}

		if !ok {
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if err := i.handleCommand(i.ctx, input); err != nil {
			if errors.Is(err, errExit) {
				i.cancel()

				return nil
			}

			i.logger.Debug("Command error", zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}
}

// Stop ends the REPL and cancels any command in flight.
func (i *Interface) Stop() error {
	i.stopOnce.Do(func() {
		i.logger.Info("Stopping console interface...")
		i.cancel()
	})

	return nil
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, `
+-----------------------------------------------------+
|                  TB Storyboard                      |
|  Story -> scene prompts -> extended video timeline  |
+-----------------------------------------------------+`)
}

func (i *Interface) printHelp() {
	fmt.Fprintln(i.out, `
Available commands:
  story <text>     - Set the story or concept
  scenes <n>       - Number of scenes to generate (1-10)
  style <name>     - Visual style, e.g. cinematic, anime, documentary
  aspect <ratio>   - 16:9, 9:16 or 1:1
  outputs <n>      - Outputs per prompt
  image <path>     - Add a reference image (up to 3)
  images clear     - Remove all reference images
  generate         - Turn the story into scene prompts
  prompts          - List the current scene prompts
  run              - Send the storyboard to the engine
  events <run id>  - Show the log of a run
  ping             - Check that the engine and its page are ready
  testapi          - Check the prompt generator credentials
  status           - Show the current form
  help, h          - Show this help message
  exit, quit, q    - Exit the application`)
}
