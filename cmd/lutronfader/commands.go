package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zberg/go-lutronfader/internal/config"
	"github.com/zberg/go-lutronfader/pkg/lutron"
)

var (
	configPath     string
	hostFlag       string
	portFlag       int
	usernameFlag   string
	passwordFlag   string
	passwordPrompt bool
	pingZoneFlag   int
	verbose        bool
	logFormat      string
)

// defaultLongFade is the long-fade duration when none is given: 30 minutes.
const defaultLongFade = 1800

var (
	fadeFlag       = newFadeValue(0)
	durationFlag   = newFadeValue(defaultLongFade)
	transitionFlag = newFadeValue(0)
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file (env LUTRON_CONFIG)")
	pf.StringVar(&hostFlag, "host", "", "Hub address (env LUTRON_HOST)")
	pf.IntVar(&portFlag, "port", lutron.DefaultPort, "Hub telnet port (env LUTRON_PORT)")
	pf.StringVar(&usernameFlag, "username", lutron.DefaultUsername, "Telnet username (env LUTRON_USERNAME)")
	pf.StringVar(&passwordFlag, "password", lutron.DefaultPassword, "Telnet password (env LUTRON_PASSWORD)")
	pf.BoolVar(&passwordPrompt, "password-prompt", false, "Read the telnet password from the terminal")
	pf.IntVar(&pingZoneFlag, "ping-zone", 0, "Zone queried by the keep-alive ping (default: first known zone)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&logFormat, "log-format", "text", "Log format (text, json)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fadeCmd)
	rootCmd.AddCommand(longFadeCmd)
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(shellCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Connect, log in and disconnect to verify the hub settings",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		session := newSession(cfg, os.Stderr)
		defer session.Close()

		fmt.Printf("Testing connection to %s...\n", session.Addr())
		if err := session.Connect(cmd.Context()); err != nil {
			fmt.Printf("Error connecting: %v\n", err)
			os.Exit(1)
		}
		session.Disconnect()
		fmt.Println("Connection OK.")
	},
}

var fadeCmd = &cobra.Command{
	Use:   "fade [zone] [brightness]",
	Short: "Fade a zone to a brightness (0-100)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runFade(cmd, args, fadeFlag.Seconds())
	},
}

var longFadeCmd = &cobra.Command{
	Use:   "long-fade [zone] [brightness]",
	Short: "Fade a zone to a brightness over a long duration (default 30 minutes)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runFade(cmd, args, durationFlag.Seconds())
	},
}

func runFade(cmd *cobra.Command, args []string, fade int) {
	cfg := loadConfig(cmd)
	zone := resolveZone(cfg, args[0])

	brightness, err := strconv.Atoi(args[1])
	if err != nil || brightness < 0 || brightness > lutron.MaxBrightness {
		fmt.Printf("Invalid brightness '%s': must be 0-100\n", args[1])
		os.Exit(1)
	}

	session := newSession(cfg, os.Stderr)
	defer session.Close()

	if err := session.SetLevel(cmd.Context(), zone, brightness, fade); err != nil {
		fmt.Printf("Error fading zone %d: %v\n", zone, err)
		os.Exit(1)
	}
	fmt.Printf("Zone %d fading to %d%% over %ds.\n", zone, brightness, fade)
}

var onCmd = &cobra.Command{
	Use:   "on [zone]",
	Short: "Turn a light on (brightness 0-255)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		brightness, _ := cmd.Flags().GetInt("brightness")

		session := newSession(cfg, os.Stderr)
		defer session.Close()

		light := lutron.NewLight(session, args[0], resolveZone(cfg, args[0]))
		if err := light.TurnOn(cmd.Context(), brightness, transitionFlag.Seconds()); err != nil {
			fmt.Printf("Error turning on %s: %v\n", light.Name, err)
			os.Exit(1)
		}
		fmt.Printf("%s on at %d/255.\n", light.Name, light.Brightness())
	},
}

var offCmd = &cobra.Command{
	Use:   "off [zone]",
	Short: "Turn a light off",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)

		session := newSession(cfg, os.Stderr)
		defer session.Close()

		light := lutron.NewLight(session, args[0], resolveZone(cfg, args[0]))
		if err := light.TurnOff(cmd.Context(), transitionFlag.Seconds()); err != nil {
			fmt.Printf("Error turning off %s: %v\n", light.Name, err)
			os.Exit(1)
		}
		fmt.Printf("%s off.\n", light.Name)
	},
}

var queryCmd = &cobra.Command{
	Use:   "query [zone]",
	Short: "Show the current level of a zone",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		zone := resolveZone(cfg, args[0])

		session := newSession(cfg, os.Stderr)
		defer session.Close()

		level, err := session.QueryLevel(cmd.Context(), zone)
		if err != nil {
			fmt.Printf("Error querying zone %d: %v\n", zone, err)
			os.Exit(1)
		}
		fmt.Printf("Zone %d: %.2f%%\n", zone, level)
	},
}

var zonesCmd = &cobra.Command{
	Use:   "zones",
	Short: "List configured zone names",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		query, _ := cmd.Flags().GetBool("query")

		zones := cfg.NamedZones()
		if len(zones) == 0 {
			fmt.Println("No zones configured.")
			return
		}

		var session *lutron.Session
		if query {
			session = newSession(cfg, os.Stderr)
			defer session.Close()
		}

		for _, z := range zones {
			if session == nil {
				fmt.Printf("Zone %d: %s\n", z.Zone, z.Name)
				continue
			}
			level, ok := session.QueryLightLevel(cmd.Context(), z.Zone)
			if !ok {
				fmt.Printf("Zone %d: %s (level unknown)\n", z.Zone, z.Name)
				continue
			}
			fmt.Printf("Zone %d: %s %.2f%%\n", z.Zone, z.Name, level)
		}
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover Lutron hubs on the network",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Discovering hubs...")
		results, err := lutron.Discover(cmd.Context())
		if err != nil {
			fmt.Printf("Error discovering: %v\n", err)
			return
		}

		if len(results) == 0 {
			fmt.Println("No hubs found.")
			return
		}

		for _, res := range results {
			name := res.Name
			if name == "" {
				name = "-"
			}
			fmt.Printf("Found hub at: %s:%d  name=%s  via=%s\n", res.IP, res.Port, name, res.Source)
		}
	},
}

func init() {
	fadeCmd.Flags().Var(fadeFlag, "fade", "Fade time (seconds, 30m, or 30:00)")
	longFadeCmd.Flags().Var(durationFlag, "duration", "Fade duration (seconds, 30m, or 30:00)")

	onCmd.Flags().Int("brightness", lutron.MaxLightBrightness, "Brightness (0-255)")
	onCmd.Flags().Var(transitionFlag, "transition", "Transition time (seconds, 30m, or 30:00)")
	offCmd.Flags().Var(transitionFlag, "transition", "Transition time (seconds, 30m, or 30:00)")

	zonesCmd.Flags().Bool("query", false, "Query the current level of every zone")
}

// loadConfig merges file, environment and flags, exiting on invalid input.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = hostFlag
	}
	if flags.Changed("port") {
		cfg.Port = portFlag
	}
	if flags.Changed("username") {
		cfg.Username = usernameFlag
	}
	if flags.Changed("password") {
		cfg.Password = passwordFlag
	}
	if flags.Changed("ping-zone") {
		cfg.PingZone = pingZoneFlag
	}

	if passwordPrompt {
		pw, err := readPassword(os.Stdin, os.Stderr)
		if err != nil {
			fmt.Printf("Error reading password: %v\n", err)
			os.Exit(1)
		}
		cfg.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		fmt.Println("Set --host, LUTRON_HOST, or host in the config file.")
		os.Exit(1)
	}
	return cfg
}

// readPassword reads a password without echo when in is a terminal.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--password-prompt needs a terminal on stdin")
	}
	fmt.Fprint(prompt, "Hub password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pw)), nil
}

func resolveZone(cfg *config.Config, arg string) int {
	zone, err := cfg.ResolveZone(arg)
	if err != nil {
		fmt.Printf("Invalid zone '%s': %v\n", arg, err)
		os.Exit(1)
	}
	return zone
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newSession(cfg *config.Config, logOut io.Writer) *lutron.Session {
	opts := append(cfg.SessionOptions(), lutron.WithLogger(newLogger(logOut)))
	session, err := lutron.NewSession(cfg.Host, opts...)
	if err != nil {
		fmt.Printf("Error creating session for %s: %v\n", cfg.Host, err)
		os.Exit(1)
	}
	return session
}
