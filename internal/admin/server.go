package admin

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	gossh "golang.org/x/crypto/ssh"

	"github.com/rfbwld/rfbwld/internal/logger"
)

// Server is a read-only SSH status console. Unlike the teacher's
// multi-host mouse-sharing SSH server, there is no peer-trust model to
// approve here: any key listed in authorizedKeysPath is accepted, exactly
// like a normal sshd AuthorizedKeysFile.
type Server struct {
	port               int
	hostKeyPath        string
	authorizedKeysPath string
	stats              StatsFunc

	sshServer *ssh.Server

	mu       sync.Mutex
	sessions map[string]ssh.Session

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewServer builds an admin console bound to port, using hostKeyPath as
// the server's persistent host key (created by wish on first run if
// absent) and authorizedKeysPath as a standard OpenSSH authorized_keys
// file. stats is polled once per redraw tick.
func NewServer(port int, hostKeyPath, authorizedKeysPath string, stats StatsFunc) *Server {
	return &Server{
		port:               port,
		hostKeyPath:        hostKeyPath,
		authorizedKeysPath: authorizedKeysPath,
		stats:              stats,
		sessions:           make(map[string]ssh.Session),
		stop:               make(chan struct{}),
	}
}

// Start begins listening for SSH connections. ListenAndServe runs on its
// own goroutine and Start returns without waiting for the listener to be
// up; errors from ListenAndServe are logged asynchronously, matching the
// teacher's SSHServer.Start shape.
func (s *Server) Start(ctx context.Context) error {
	server, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf(":%d", s.port)),
		wish.WithHostKeyPath(s.hostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyAuth),
		wish.WithMiddleware(
			s.loggingMiddleware(),
			activeterm.Middleware(),
			s.statusHandler(),
		),
	)
	if err != nil {
		return fmt.Errorf("admin: failed to create SSH server: %w", err)
	}
	s.sshServer = server

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		logger.Infof("admin console listening on port %d", s.port)
		if err := server.ListenAndServe(); err != nil && err != ssh.ErrServerClosed {
			logger.Errorf("admin console error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop shuts down the admin console and closes any open sessions.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)

		if s.sshServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.sshServer.Shutdown(ctx)
		}

		s.mu.Lock()
		for _, sess := range s.sessions {
			_ = sess.Close()
		}
		s.sessions = make(map[string]ssh.Session)
		s.mu.Unlock()

		s.wg.Wait()
	})
}

// publicKeyAuth accepts any key present in authorizedKeysPath, the same
// file format sshd's AuthorizedKeysFile reads.
func (s *Server) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	data, err := os.ReadFile(s.authorizedKeysPath)
	if err != nil {
		logger.Errorf("admin: reading authorized keys %s: %v", s.authorizedKeysPath, err)
		return false
	}

	for len(data) > 0 {
		allowed, _, _, rest, err := gossh.ParseAuthorizedKey(data)
		if err != nil {
			break
		}
		if ssh.KeysEqual(key, allowed) {
			return true
		}
		data = rest
	}

	logger.Infof("admin: rejecting unauthorized key from %s", ctx.RemoteAddr())
	return false
}

func (s *Server) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			logger.Debugf("admin session started: user=%s addr=%s", sess.User(), sess.RemoteAddr())
			h(sess)
			logger.Debugf("admin session ended: addr=%s", sess.RemoteAddr())
		}
	}
}

// statusHandler renders Stats directly to the session's output on a
// fixed tick, matching the teacher's sessionHandler's direct
// fmt.Fprintf(sess, ...) style rather than driving a full bubbletea
// program over the SSH pty (the pack never wires wish/bubbletea; the
// teacher's bubbletea models render locally, not over SSH).
func (s *Server) statusHandler() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			id := sess.Context().SessionID()

			s.mu.Lock()
			s.sessions[id] = sess
			s.mu.Unlock()
			defer func() {
				s.mu.Lock()
				delete(s.sessions, id)
				s.mu.Unlock()
			}()

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()

			fmt.Fprint(sess, "\x1b[2J\x1b[H")
			for {
				select {
				case <-sess.Context().Done():
					return
				case <-s.stop:
					return
				case <-ticker.C:
					fmt.Fprint(sess, "\x1b[H")
					fmt.Fprint(sess, render(s.stats()))
				}
			}
		}
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	idleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func render(st Stats) string {
	viewer := idleStyle.Render("no viewer connected")
	if st.ViewerActive {
		viewer = goodStyle.Render(st.ViewerAddr)
	}

	return fmt.Sprintf(
		"%s\n\n%s %s\n%s %dx%d\n%s %.1f\n%s %d\n%s %s\n%s %s\n",
		titleStyle.Render("rfbwld — session status"),
		labelStyle.Render("backend:"), st.Backend,
		labelStyle.Render("output:"), st.OutputWidth, st.OutputHeight,
		labelStyle.Render("fps:"), st.FPS,
		labelStyle.Render("last damage rects:"), st.LastDamage,
		labelStyle.Render("viewer:"), viewer,
		labelStyle.Render("uptime:"), st.Uptime.Round(time.Second),
	)
}
