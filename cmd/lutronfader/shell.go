package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/zberg/go-lutronfader/internal/config"
	"github.com/zberg/go-lutronfader/pkg/lutron"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell holding one persistent hub session",
	Long: `Start an interactive shell. The hub connection opens on the first command,
is probed by the keep-alive ping while idle and closes on its own after the
idle timeout; the next command reconnects.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "lutron> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			fmt.Printf("Error starting shell: %v\n", err)
			os.Exit(1)
		}
		defer rl.Close()

		session := newSession(cfg, rl.Stderr())
		defer session.Close()

		sh := newShell(session, cfg, rl.Stdout())
		sh.printHelp()

		ctx := cmd.Context()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line, err := rl.Readline()
			if err != nil {
				// EOF or interrupt
				if err == readline.ErrInterrupt {
					continue
				}
				fmt.Fprintln(rl.Stdout(), "Exiting...")
				return
			}

			if sh.exec(ctx, line) {
				return
			}
		}
	},
}

// shell interprets one line at a time against a session.
type shell struct {
	session *lutron.Session
	cfg     *config.Config
	out     io.Writer
}

func newShell(session *lutron.Session, cfg *config.Config, out io.Writer) *shell {
	return &shell{session: session, cfg: cfg, out: out}
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		sh.printHelp()
	case "set", "s":
		sh.cmdSet(ctx, args)
	case "query", "q":
		sh.cmdQuery(ctx, args)
	case "on":
		sh.cmdOn(ctx, args)
	case "off":
		sh.cmdOff(ctx, args)
	case "ping-zone":
		sh.cmdPingZone(args)
	case "status":
		sh.cmdStatus()
	case "connect":
		if err := sh.session.Connect(ctx); err != nil {
			fmt.Fprintf(sh.out, "Error connecting: %v\n", err)
			return false
		}
		fmt.Fprintln(sh.out, "Connected.")
	case "disconnect":
		sh.session.Disconnect()
		fmt.Fprintln(sh.out, "Disconnected.")
	case "exit", "quit":
		return true
	default:
		fmt.Fprintf(sh.out, "Unknown command %q. Type 'help' for a list.\n", cmd)
	}
	return false
}

func (sh *shell) printHelp() {
	fmt.Fprintln(sh.out, `Commands:
  set <zone> <0-100> [fade]      Fade a zone (fade: seconds, 30m or 30:00)
  query <zone>                   Show a zone's level
  on <zone> [0-255] [fade]       Turn a light on
  off <zone> [fade]              Turn a light off
  ping-zone [zone]               Show or change the keep-alive zone
  status                         Show connection state
  connect | disconnect           Open or close the hub connection
  help | exit`)
}

func (sh *shell) cmdSet(ctx context.Context, args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(sh.out, "usage: set <zone> <0-100> [fade]")
		return
	}
	zone, ok := sh.zone(args[0])
	if !ok {
		return
	}
	brightness, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintf(sh.out, "Invalid brightness %q\n", args[1])
		return
	}
	fade, ok := sh.fade(args[2:])
	if !ok {
		return
	}

	if err := sh.session.SetLevel(ctx, zone, brightness, fade); err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Zone %d fading to %d%% over %ds.\n", zone, brightness, fade)
}

func (sh *shell) cmdQuery(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(sh.out, "usage: query <zone>")
		return
	}
	zone, ok := sh.zone(args[0])
	if !ok {
		return
	}

	level, err := sh.session.QueryLevel(ctx, zone)
	if err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Zone %d: %.2f%%\n", zone, level)
}

func (sh *shell) cmdOn(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 3 {
		fmt.Fprintln(sh.out, "usage: on <zone> [0-255] [fade]")
		return
	}
	zone, ok := sh.zone(args[0])
	if !ok {
		return
	}
	brightness := lutron.MaxLightBrightness
	if len(args) > 1 {
		b, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(sh.out, "Invalid brightness %q\n", args[1])
			return
		}
		brightness = b
	}
	fade, ok := sh.fade(args[min(2, len(args)):])
	if !ok {
		return
	}

	light := lutron.NewLight(sh.session, args[0], zone)
	if err := light.TurnOn(ctx, brightness, fade); err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "%s on at %d/255.\n", light.Name, light.Brightness())
}

func (sh *shell) cmdOff(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(sh.out, "usage: off <zone> [fade]")
		return
	}
	zone, ok := sh.zone(args[0])
	if !ok {
		return
	}
	fade, ok := sh.fade(args[1:])
	if !ok {
		return
	}

	light := lutron.NewLight(sh.session, args[0], zone)
	if err := light.TurnOff(ctx, fade); err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "%s off.\n", light.Name)
}

func (sh *shell) cmdPingZone(args []string) {
	if len(args) == 0 {
		fmt.Fprintf(sh.out, "Ping zone: %d\n", sh.session.PingZone())
		return
	}
	zone, ok := sh.zone(args[0])
	if !ok {
		return
	}
	if err := sh.session.SetPingZone(zone); err != nil {
		fmt.Fprintf(sh.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(sh.out, "Ping zone: %d\n", zone)
}

func (sh *shell) cmdStatus() {
	state := "disconnected"
	if sh.session.IsConnected() {
		state = "connected"
	}
	fmt.Fprintf(sh.out, "Hub %s: %s, ping zone %d\n", sh.session.Addr(), state, sh.session.PingZone())
}

func (sh *shell) zone(arg string) (int, bool) {
	zone, err := sh.cfg.ResolveZone(arg)
	if err != nil {
		fmt.Fprintf(sh.out, "Invalid zone %q: %v\n", arg, err)
		return 0, false
	}
	return zone, true
}

// fade parses an optional trailing fade argument.
func (sh *shell) fade(args []string) (int, bool) {
	if len(args) == 0 {
		return 0, true
	}
	secs, err := parseFade(args[0])
	if err != nil {
		fmt.Fprintf(sh.out, "Invalid fade: %v\n", err)
		return 0, false
	}
	return secs, true
}
