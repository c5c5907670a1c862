package agentcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/neuroplastio/neio-remote/internal/configsvc"
	"github.com/neuroplastio/neio-remote/internal/keyboard"
	"github.com/neuroplastio/neio-remote/internal/netinfo"
	"github.com/neuroplastio/neio-remote/pkg/agent"
)

const (
	EnvDevice = "NEIO_REMOTE_DEVICE"
	EnvHost   = "NEIO_REMOTE_HOST"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "neio-remote"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type agentProvider func() *agent.Agent

func NewRootCmd(configDir string) *cobra.Command {
	cfg := agent.Config{
		ConfigDir: configDir,
		Device:    agent.DeviceUHID,
	}
	rootCmd := &cobra.Command{
		Use:          "neio-remote",
		Short:        "Neuroplast.io Remote",
		Long:         `Neuroplast.io Remote turns a phone or tablet into a macro keyboard for this machine.`,
		SilenceUsage: true,
	}
	var a *agent.Agent
	agentProvider := func() *agent.Agent {
		return a
	}
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "config directory")
	flags.StringVar(&cfg.DataDir, "data-dir", "", "data directory (default <config-dir>/data)")
	flags.StringVar(&cfg.DeckConfig, "deck-config", "", "deck config file (default <config-dir>/deck.yml)")
	flags.StringVar(&cfg.Device, "device", cfg.Device, "key output device: uhid or log")
	flags.StringVar(&cfg.Host, "host", "", "listen host (default all interfaces)")
	flags.StringVar(&cfg.WebDir, "web-dir", "", "serve the web client from this directory instead of the built-in one")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		resolved, err := resolveConfig(cfg, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		a, err = agent.NewAgent(resolved)
		return err
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.Close()
	}
	rootCmd.AddCommand(NewRun(agentProvider))
	rootCmd.AddCommand(NewConfig(agentProvider))
	rootCmd.AddCommand(NewURL(agentProvider))
	rootCmd.AddCommand(NewQR(agentProvider))
	rootCmd.AddCommand(NewAddress(agentProvider))
	rootCmd.AddCommand(NewKeys())
	rootCmd.AddCommand(NewClients(agentProvider))
	return rootCmd
}

// resolveConfig fills in paths derived from the config dir and applies
// environment overrides to options not given as flags. Variables from the
// process environment win over the optional .env file in the config dir.
func resolveConfig(cfg agent.Config, changed func(flag string) bool) (agent.Config, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(cfg.ConfigDir, "data")
	}
	if cfg.DeckConfig == "" {
		cfg.DeckConfig = filepath.Join(cfg.ConfigDir, "deck.yml")
	}
	env, err := godotenv.Read(filepath.Join(cfg.ConfigDir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read .env: %w", err)
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return env[key]
	}
	if v := lookup(EnvDevice); v != "" && !changed("device") {
		cfg.Device = v
	}
	if v := lookup(EnvHost); v != "" && !changed("host") {
		cfg.Host = v
	}
	return cfg, nil
}

func NewRun(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the remote server",
		Long:  `Run the dispatch server, the config watcher and the key output device until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return agent().Run(cmd.Context())
		},
	}
}

func NewConfig(agent agentProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the deck configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the deck configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := agent().Config()
			if err != nil {
				return err
			}
			data, err := configsvc.Encode(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-pin <pin>",
		Short: "Set the PIN; an empty PIN disables authentication",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := agent().Config()
			if err != nil {
				return err
			}
			cfg.PIN = args[0]
			return agent().SaveConfig(cmd.Context(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-port <port>",
		Short: "Set the listen port; takes effect on the next run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.ParseUint(args[0], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[0], err)
			}
			cfg, err := agent().Config()
			if err != nil {
				return err
			}
			cfg.Port = uint16(port)
			return agent().SaveConfig(cmd.Context(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the deck configuration with a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configsvc.ReadFile(args[0])
			if err != nil {
				return err
			}
			return agent().SaveConfig(cmd.Context(), cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the deck configuration path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), agent().ConfigPath())
			return nil
		},
	})
	return cmd
}

func NewURL(agent agentProvider) *cobra.Command {
	var withPIN bool
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the URL remote clients connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := agent().ServerURL(withPIN)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withPIN, "with-pin", false, "embed the PIN in the URL")
	return cmd
}

func NewQR(agent agentProvider) *cobra.Command {
	var (
		out  string
		size int
	)
	cmd := &cobra.Command{
		Use:   "qr",
		Short: "Render the login URL as a QR code",
		Long:  `Render the URL with the PIN embedded as a PNG QR code. Without --out the image is printed as a data URL.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			png, err := agent().QRCode(size)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), netinfo.DataURL(png))
				return nil
			}
			if err := os.WriteFile(out, png, 0644); err != nil {
				return fmt.Errorf("failed to write qr code: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the PNG image to this file")
	cmd.Flags().IntVar(&size, "size", netinfo.DefaultQRSize, "image size in pixels")
	return cmd
}

func NewAddress(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the local network address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := agent().LocalAddress()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

func NewKeys() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the key names shortcuts may use",
		Long:  `List the symbolic key names accepted in shortcut actions. Any single printable character is accepted as well.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(keyboard.Vocabulary(), "\n"))
			return nil
		},
	}
}

func NewClients(agent agentProvider) *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List remote clients seen by the server",
		Long:  `List remote clients seen by the server. The client registry cannot be read while the server is running.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if forget {
				return agent().ForgetClients()
			}
			clients, err := agent().Clients()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "HOST\tLAST SEEN\tFIRST SEEN\tSTREAMS\tUSER AGENT")
			for _, c := range clients {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", c.Host, c.LastSeenAt.Format(time.DateTime), c.FirstSeenAt.Format(time.DateTime), c.Streams, c.UserAgent)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&forget, "forget", false, "remove all recorded clients")
	return cmd
}
