package agent

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/neuroplastio/neio-remote/internal/clientsvc"
	"github.com/neuroplastio/neio-remote/internal/configsvc"
	"github.com/neuroplastio/neio-remote/internal/deck"
	"github.com/neuroplastio/neio-remote/internal/dispatch"
	"github.com/neuroplastio/neio-remote/internal/keyboard"
	"github.com/neuroplastio/neio-remote/internal/keyboard/uhidkbd"
	"github.com/neuroplastio/neio-remote/internal/netinfo"
	"github.com/neuroplastio/neio-remote/internal/notify"
)

var ErrNoLocalAddress = errors.New("no local network address")

type Agent struct {
	config Config
	log    *zap.Logger

	bus       *notify.Bus
	configSvc *configsvc.Service

	dbOnce  sync.Once
	db      *badger.DB
	dbErr   error
	clients *clientsvc.Service
}

func NewAgent(config Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}
	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000000000")
	loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return newAgent(config, logger), nil
}

func newAgent(config Config, logger *zap.Logger) *Agent {
	eventBus := notify.NewBus(logger.Named("bus"))
	return &Agent{
		config:    config,
		log:       logger,
		bus:       eventBus,
		configSvc: configsvc.New(logger.Named("config"), config.DeckConfig, eventBus.CreatePublisher()),
	}
}

// clientRegistry opens the badger database on first use. Only one process can
// hold it, so commands that do not need it never open it.
func (a *Agent) clientRegistry() (*clientsvc.Service, error) {
	a.dbOnce.Do(func() {
		a.db, a.dbErr = clientsvc.OpenDB(filepath.Join(a.config.DataDir, "db"), a.log)
		if a.dbErr == nil {
			a.clients = clientsvc.New(a.db, a.log.Named("clients"), time.Now)
		}
	})
	return a.clients, a.dbErr
}

func (a *Agent) Close() error {
	_ = a.log.Sync()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Agent) openDevice(ctx context.Context) (keyboard.Device, func() error, error) {
	switch a.config.Device {
	case DeviceUHID:
		kbd, err := uhidkbd.Open(ctx, a.log.Named("uhid"))
		if err != nil {
			return nil, nil, err
		}
		return kbd, kbd.Close, nil
	default:
		return keyboard.NewLogDevice(a.log.Named("device")), func() error { return nil }, nil
	}
}

// Run starts the agent and blocks until the context is cancelled.
// Startup fails if the deck configuration cannot be loaded, the device cannot
// be opened or the port cannot be bound. Later configuration errors are
// reported per request and the server keeps running.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.configSvc.Load()
	if err != nil {
		return fmt.Errorf("failed to load deck config: %w", err)
	}
	clients, err := a.clientRegistry()
	if err != nil {
		return err
	}
	dev, closeDevice, err := a.openDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to open %s device: %w", a.config.Device, err)
	}
	defer func() {
		if err := closeDevice(); err != nil {
			a.log.Warn("failed to close device", zap.Error(err))
		}
	}()

	serverOpts := []dispatch.Option{dispatch.WithClientTracker(clients)}
	if a.config.WebDir != "" {
		assets, err := webAssets(a.config.WebDir)
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, dispatch.WithAssets(assets))
		a.log.Info("Serving web client from disk", zap.String("dir", a.config.WebDir))
	}

	synth := keyboard.NewSynthesizer(a.log.Named("keyboard"), dev)
	server := dispatch.New(a.log.Named("dispatch"), a.configSvc, synth, a.bus, serverOpts...)
	addr := net.JoinHostPort(a.config.Host, strconv.Itoa(int(cfg.Port)))

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.bus.Start(groupCtx)
	})
	group.Go(func() error {
		return a.configSvc.Start(groupCtx)
	})
	group.Go(func() error {
		return server.Start(groupCtx, addr)
	})
	a.log.Info("Remote ready", zap.String("url", a.serverURL(cfg, false)), zap.String("device", a.config.Device))

	err = group.Wait()
	if err != nil {
		return fmt.Errorf("agent failed: %w", err)
	}
	return nil
}

func webAssets(dir string) (fs.FS, error) {
	assets := os.DirFS(dir)
	if _, err := fs.Stat(assets, "index.html"); err != nil {
		return nil, fmt.Errorf("failed to use web dir %s: %w", dir, err)
	}
	return assets, nil
}

func (a *Agent) Config() (deck.Config, error) {
	return a.configSvc.Load()
}

// SaveConfig validates and persists cfg. A running agent picks the change up
// through its file watcher and notifies connected clients.
func (a *Agent) SaveConfig(ctx context.Context, cfg deck.Config) error {
	return a.configSvc.Save(ctx, cfg)
}

func (a *Agent) ConfigPath() string {
	return a.configSvc.Path()
}

// LocalAddress returns the LAN address remote clients should connect to.
func (a *Agent) LocalAddress() (string, error) {
	ip, ok := netinfo.LocalAddress()
	if !ok {
		return "", ErrNoLocalAddress
	}
	return ip.String(), nil
}

func (a *Agent) serverURL(cfg deck.Config, withPIN bool) string {
	ip, _ := netinfo.LocalAddress()
	url := netinfo.ServerURL(ip, cfg.Port)
	if withPIN {
		url = netinfo.WithPIN(url, cfg.PIN)
	}
	return url
}

func (a *Agent) ServerURL(withPIN bool) (string, error) {
	cfg, err := a.Config()
	if err != nil {
		return "", err
	}
	return a.serverURL(cfg, withPIN), nil
}

// QRCode renders the server URL, PIN included, as a PNG image.
func (a *Agent) QRCode(size int) ([]byte, error) {
	url, err := a.ServerURL(true)
	if err != nil {
		return nil, err
	}
	return netinfo.RenderQR(url, size)
}

// Clients lists the remote clients that have authenticated or connected.
func (a *Agent) Clients() ([]clientsvc.Client, error) {
	clients, err := a.clientRegistry()
	if err != nil {
		return nil, err
	}
	return clients.List()
}

func (a *Agent) ForgetClients() error {
	clients, err := a.clientRegistry()
	if err != nil {
		return err
	}
	return clients.Forget()
}
