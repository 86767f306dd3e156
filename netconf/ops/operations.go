// Package ops provides the operations invoked by interactive callers: connecting to a
// device, listing its capabilities and retrieving its running configuration.
package ops

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/common/codec"
	"github.com/damianoneill/ncclient/netconf/filter"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// DefaultPort is the port assigned to netconf over ssh.
const DefaultPort = 830

var (
	// ErrNotConnected is reported by operations invoked without an established session.
	ErrNotConnected = errors.Wrap(common.ErrTransportClosed, "netconf: not connected")
	// ErrAlreadyConnected is reported by Connect if a session is already established.
	ErrAlreadyConnected = errors.New("netconf: already connected")
)

//go:generate mockgen -destination=../mocks/mock_operations.go -package=mocks github.com/damianoneill/ncclient/netconf/ops Operations

// Operations defines the caller-facing operations on a single netconf device.
type Operations interface {
	// Connect establishes a session with the device at host:port, authenticating with
	// username and password.
	Connect(ctx context.Context, host string, port int, username, password string) error

	// Disconnect closes the session, if any. It is safe to call more than once.
	Disconnect() error

	// ListCapabilities delivers the capabilities advertised by the device, in the order
	// advertised. No request is sent.
	ListCapabilities() ([]string, error)

	// GetRunningConfig retrieves the whole running configuration.
	GetRunningConfig() (*codec.Document, error)

	// GetRunningConfigFiltered retrieves the part of the running configuration selected by
	// the named filter.
	GetRunningConfigFiltered(filterName string) (*codec.Document, error)

	// FilterNames delivers the names of the registered filters, in registration order.
	FilterNames() []string
}

// SessionFactory establishes a client session with target.
type SessionFactory func(ctx context.Context, sshcfg *ssh.ClientConfig, target string, cfg *client.Config) (client.Session, error)

// Option configures an Operations instance.
type Option func(*opsImpl)

// WithSessionFactory replaces the factory used by Connect.
func WithSessionFactory(f SessionFactory) Option {
	return func(o *opsImpl) {
		o.factory = f
	}
}

// WithHostKeyCallback defines how the device host key is verified. By default any key is
// accepted.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(o *opsImpl) {
		o.hostKeyCallback = cb
	}
}

// WithDialTimeout bounds the time taken to establish the tcp connection.
func WithDialTimeout(d time.Duration) Option {
	return func(o *opsImpl) {
		o.dialTimeout = d
	}
}

type opsImpl struct {
	cfg             *client.Config
	factory         SessionFactory
	hostKeyCallback ssh.HostKeyCallback
	dialTimeout     time.Duration

	mu sync.Mutex
	s  client.Session
}

// New delivers Operations that establish sessions with the client configuration cfg.
// Named filters are resolved using cfg.Filters, which defaults to a new default registry.
func New(cfg *client.Config, opts ...Option) Operations {
	resolved := &client.Config{}
	if cfg != nil {
		*resolved = *cfg
	}
	if resolved.Filters == nil {
		resolved.Filters = filter.NewDefaultRegistry()
	}

	o := &opsImpl{
		cfg:             resolved,
		factory:         client.NewRPCSessionWithConfig,
		hostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec
		dialTimeout:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *opsImpl) Connect(ctx context.Context, host string, port int, username, password string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s != nil && !o.s.State().Terminal() {
		return ErrAlreadyConnected
	}

	sshcfg := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: o.hostKeyCallback,
		Timeout:         o.dialTimeout,
	}
	if port == 0 {
		port = DefaultPort
	}

	s, err := o.factory(ctx, sshcfg, net.JoinHostPort(host, strconv.Itoa(port)), o.cfg)
	if err != nil {
		return err
	}
	o.s = s
	return nil
}

func (o *opsImpl) Disconnect() error {
	o.mu.Lock()
	s := o.s
	o.s = nil
	o.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

func (o *opsImpl) ListCapabilities() ([]string, error) {
	s, err := o.session()
	if err != nil {
		return nil, err
	}
	return s.ServerCapabilities(), nil
}

func (o *opsImpl) GetRunningConfig() (*codec.Document, error) {
	s, err := o.session()
	if err != nil {
		return nil, err
	}
	return s.GetConfig(common.RunningCfg)
}

func (o *opsImpl) GetRunningConfigFiltered(filterName string) (*codec.Document, error) {
	// Unknown names are rejected even without a session.
	if _, err := o.cfg.Filters.Build(filterName); err != nil {
		return nil, err
	}
	s, err := o.session()
	if err != nil {
		return nil, err
	}
	return s.GetConfigFiltered(common.RunningCfg, filterName)
}

func (o *opsImpl) FilterNames() []string {
	return o.cfg.Filters.Names()
}

// session delivers the current session, provided it is usable.
func (o *opsImpl) session() (client.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.s == nil {
		return nil, ErrNotConnected
	}
	if o.s.State().Terminal() {
		if err := o.s.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotConnected
	}
	return o.s, nil
}
