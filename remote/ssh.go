package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"gorm.io/gorm"
)

// SSHExecutor implements Executor over per-host SSH connections. Clients are
// dialed lazily and kept for reuse, a broken one is dropped and redialed on
// the next call
type SSHExecutor struct {
	DB *gorm.DB

	conf *ssh.ClientConfig

	mu      sync.Mutex
	clients map[uint]*ssh.Client
}

type hostRow struct {
	ID      uint
	Address string
	SSHPort int
	Active  bool
}

func NewSSHExecutor(db *gorm.DB) (*SSHExecutor, error) {
	keyPath := viper.GetString("ssh.key_path")

	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read ssh key, %w", err)
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh key, %w", err)
	}

	return &SSHExecutor{
		DB: db,
		conf: &ssh.ClientConfig{
			User: viper.GetString("ssh.user"),
			Auth: []ssh.AuthMethod{
				ssh.PublicKeys(signer),
			},
			// Hosts are provisioned by us, host key pinning lives in the
			// provisioning tooling
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         viper.GetDuration("ssh.connect_timeout"),
		},
		clients: make(map[uint]*ssh.Client),
	}, nil
}

func (e *SSHExecutor) client(hostID uint) (*ssh.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[hostID]; ok {
		return c, nil
	}

	var host hostRow
	err := e.DB.
		Table("hosts").
		Where("id = ? AND active = ?", hostID, true).
		First(&host).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("host %d is unknown or inactive", hostID)
		}
		return nil, fmt.Errorf("failed to look up host %d, %w", hostID, err)
	}

	addr := host.Address + ":" + strconv.Itoa(host.SSHPort)

	c, err := ssh.Dial("tcp", addr, e.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to dial host %d (%s), %w", hostID, addr, err)
	}

	e.clients[hostID] = c
	return c, nil
}

func (e *SSHExecutor) drop(hostID uint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.clients[hostID]; ok {
		c.Close()
		delete(e.clients, hostID)
	}
}

func (e *SSHExecutor) session(hostID uint) (*ssh.Session, error) {
	c, err := e.client(hostID)
	if err != nil {
		return nil, err
	}

	sess, err := c.NewSession()
	if err != nil {
		// Stale connection, redial once
		e.drop(hostID)

		c, err = e.client(hostID)
		if err != nil {
			return nil, err
		}

		sess, err = c.NewSession()
		if err != nil {
			return nil, fmt.Errorf("failed to open session on host %d, %w", hostID, err)
		}
	}

	return sess, nil
}

func (e *SSHExecutor) Run(ctx context.Context, hostID uint, command string) (*Result, error) {
	sess, err := e.session(hostID)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	zap.L().Debug("Running remote command",
		zap.Uint("hostID", hostID),
		zap.String("cmd", command),
	)

	done := make(chan error, 1)
	go func() {
		done <- sess.Run(command)
	}()

	select {
	case <-ctx.Done():
		sess.Close()
		<-done
		return nil, ctx.Err()
	case err = <-done:
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("channel failure on host %d, %w", hostID, err)
		}
		// Non-zero exit is part of the contract, callers read the markers
	}

	return &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}, nil
}

// Stream starts the command and returns its stdout pipe without buffering,
// so large files can be pulled over the channel at a fixed memory cost
func (e *SSHExecutor) Stream(ctx context.Context, hostID uint, command string) (io.ReadCloser, error) {
	sess, err := e.session(hostID)
	if err != nil {
		return nil, err
	}

	pipe, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to open stdout pipe on host %d, %w", hostID, err)
	}

	zap.L().Debug("Streaming remote command",
		zap.Uint("hostID", hostID),
		zap.String("cmd", command),
	)

	if err := sess.Start(command); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to start command on host %d, %w", hostID, err)
	}

	stop := context.AfterFunc(ctx, func() { sess.Close() })

	return &sshStream{Reader: pipe, sess: sess, stop: stop}, nil
}

type sshStream struct {
	io.Reader
	sess *ssh.Session
	stop func() bool
}

func (s *sshStream) Close() error {
	s.stop()
	return s.sess.Close()
}

func (e *SSHExecutor) Stat(ctx context.Context, hostID uint, path string) (*Stat, error) {
	q := Quote(path)
	cmd := fmt.Sprintf(
		`if [ -e %s ]; then echo "%s $(stat -c%%s %s 2>/dev/null || echo 0)"; else echo %s; fi`,
		q, MarkerExists, q, MarkerNotExists,
	)

	res, err := e.Run(ctx, hostID, cmd)
	if err != nil {
		return nil, err
	}

	out := strings.TrimSpace(res.Stdout)
	if out == MarkerNotExists {
		return &Stat{}, nil
	}

	if after, ok := strings.CutPrefix(out, MarkerExists); ok {
		size, err := strconv.ParseInt(strings.TrimSpace(after), 10, 64)
		if err != nil {
			return &Stat{Exists: true}, nil
		}
		return &Stat{Exists: true, Size: size}, nil
	}

	return nil, fmt.Errorf("unexpected stat output from host %d: %q", hostID, out)
}
