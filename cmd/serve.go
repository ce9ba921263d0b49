package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rfbwld/rfbwld/internal/admin"
	"github.com/rfbwld/rfbwld/internal/config"
	"github.com/rfbwld/rfbwld/internal/logger"
	"github.com/rfbwld/rfbwld/internal/session"
	"github.com/rfbwld/rfbwld/internal/ui"
)

var (
	flagRFBPort       int
	flagListen        string
	flagLayout        string
	flagVariant       string
	flagRateLimit     float64
	flagPreferDmabuf  bool
	flagOverlayCursor bool
	flagDRMNode       string
	flagNoTUI         bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RFB server for the current Wayland session",
	Long: `serve connects to the running Wayland compositor, binds the screencopy,
export-dmabuf, virtual-keyboard and virtual-pointer protocols, and starts an
RFB 3.8 listener that mirrors the session to a single VNC viewer.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagRFBPort, "rfb-port", 0, "RFB listener port")
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "RFB listener bind address")
	serveCmd.Flags().StringVar(&flagLayout, "layout", "", "xkb keyboard layout")
	serveCmd.Flags().StringVar(&flagVariant, "variant", "", "xkb keyboard layout variant")
	serveCmd.Flags().Float64Var(&flagRateLimit, "rate-limit", 0, "capture rate limit in Hz (stored in the config; capture paces at a fixed 20 Hz)")
	serveCmd.Flags().BoolVar(&flagPreferDmabuf, "prefer-dmabuf", true, "prefer DMA-BUF export capture over SHM screencopy")
	serveCmd.Flags().BoolVar(&flagOverlayCursor, "overlay-cursor", true, "ask the compositor to composite the cursor into captured frames")
	serveCmd.Flags().StringVar(&flagDRMNode, "drm-node", "", "DRM render node used for the GPU renderer's EGL context")
	serveCmd.Flags().BoolVar(&flagNoTUI, "no-tui", false, "disable the local status display and log plainly to stderr")

	viper.BindPFlag("rfb.rfb_port", serveCmd.Flags().Lookup("rfb-port"))
	viper.BindPFlag("rfb.listen_address", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("keyboard.layout", serveCmd.Flags().Lookup("layout"))
	viper.BindPFlag("keyboard.variant", serveCmd.Flags().Lookup("variant"))
	viper.BindPFlag("capture.rate_limit_hz", serveCmd.Flags().Lookup("rate-limit"))
	viper.BindPFlag("capture.prefer_dmabuf", serveCmd.Flags().Lookup("prefer-dmabuf"))
	viper.BindPFlag("capture.overlay_cursor", serveCmd.Flags().Lookup("overlay-cursor"))
	viper.BindPFlag("render.drm_render_node", serveCmd.Flags().Lookup("drm-node"))
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := ensureConfig(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.Get()

	if cfg.RFB.SharedSecret == "" {
		logger.Warn("rfb.shared_secret is empty; the RFB listener will accept VNC Authentication with an empty password")
	}

	sessionCfg := session.Config{
		Layout:               cfg.Keyboard.Layout,
		Variant:              cfg.Keyboard.Variant,
		RateLimitHz:          cfg.Capture.RateLimitHz,
		SmootherTimeConstant: cfg.Capture.SmootherTimeConstant,
		PreferDmabuf:         cfg.Capture.PreferDmabuf,
		OverlayCursor:        cfg.Capture.OverlayCursor,
		OutputName:           cfg.Capture.OutputName,
		RenderNode:           cfg.Render.DRMRenderNode,
		ListenAddr:           cfg.RFB.Addr(),
		Secret:               cfg.RFB.SharedSecret,
		DesktopName:          cfg.RFB.DesktopName,
	}

	// NewCore creates the renderer's EGL context on the calling goroutine
	// and Run must stay on that same OS thread for the process's life
	// (spec.md §4.5/§5), so lock it before doing anything else here.
	runtime.LockOSThread()

	core, err := session.NewCore(sessionCfg)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	logger.Infof("serving RFB on %s (desktop %q)", cfg.RFB.Addr(), cfg.RFB.DesktopName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var adminSrv *admin.Server
	if cfg.Admin.Enabled {
		hostKeyPath := config.ExpandPath(cfg.Admin.HostKeyPath)
		authKeysPath := config.ExpandPath(cfg.Admin.AuthorizedKeysPath)
		if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0700); err != nil {
			logger.Warnf("admin: creating host key directory: %v", err)
		}
		adminSrv = admin.NewServer(cfg.Admin.Port, hostKeyPath, authKeysPath, core.Stats)
		if err := adminSrv.Start(ctx); err != nil {
			logger.Warnf("admin: failed to start console: %v", err)
			adminSrv = nil
		} else {
			logger.Infof("admin console listening on :%d (authorized_keys: %s)", cfg.Admin.Port, authKeysPath)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	var tuiProgram *tea.Program
	if !flagNoTUI {
		tuiProgram = tea.NewProgram(ui.NewStatusModel(core.Stats))
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				logger.Warnf("status display exited: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			tuiProgram.Quit()
		}()
	}

	runErr := core.Run(ctx)
	if tuiProgram != nil {
		tuiProgram.Quit()
	}
	if adminSrv != nil {
		adminSrv.Stop()
	}
	return runErr
}

// ensureConfig writes the default config to disk on first run, matching
// the teacher's ensureServerConfig.
func ensureConfig() error {
	if err := config.Init(); err != nil {
		return err
	}
	configPath := config.GetConfigPath()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Infof("no config file found, creating default config at %s", configPath)
		if err := config.Save(); err != nil {
			return err
		}
	}
	return nil
}
