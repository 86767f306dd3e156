package client

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// The Secure Transport layer provides a communication path between
// the client and server.  NETCONF can be layered over any
// transport protocol that provides a set of basic requirements.

//go:generate mockery --name=Transport --output=../mocks

// Transport interface defines what characteristics make up a NETCONF transport
// layer object.
type Transport interface {
	io.ReadWriteCloser
}

// Targeted is implemented by transports that know the address of their peer.
type Targeted interface {
	Target() string
}

// Dialer establishes the ssh connection that carries a transport.
type Dialer interface {
	Dial(ctx context.Context) (*ssh.Client, error)
}

type sshDialer struct {
	target string
	cfg    *ssh.ClientConfig
}

// NewDialer delivers a Dialer that connects to target over tcp using the ssh client configuration.
func NewDialer(target string, cfg *ssh.ClientConfig) Dialer {
	return &sshDialer{target: target, cfg: cfg}
}

// Dial connects to the target, honouring ctx for the tcp connection and the ssh handshake.
func (d *sshDialer) Dial(ctx context.Context) (client *ssh.Client, err error) {
	trace := ContextClientTrace(ctx)
	trace.DialStart(d.cfg, d.target)
	defer func(begin time.Time) {
		trace.DialDone(d.cfg, d.target, err, time.Since(begin))
	}(time.Now())

	var conn net.Conn
	if conn, err = (&net.Dialer{Timeout: d.cfg.Timeout}).DialContext(ctx, "tcp", d.target); err != nil {
		return nil, errors.Wrapf(err, "dial %s failed", d.target)
	}

	// Abort the handshake if ctx ends first.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	c, chans, reqs, err := ssh.NewClientConn(conn, d.target, d.cfg)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "ssh handshake with %s failed", d.target)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type tImpl struct {
	target      string
	reader      io.Reader
	writeCloser io.WriteCloser
	sshSession  *ssh.Session
	sshClient   *ssh.Client
	trace       *ClientTrace
	closeOnce   sync.Once
	closeErr    error
}

// NewSSHTransport creates a new SSH transport, connecting to the target using the dialer
// and requesting the netconf subsystem.
func NewSSHTransport(ctx context.Context, dialer Dialer, target string) (rt Transport, err error) {
	impl := &tImpl{target: target, trace: ContextClientTrace(ctx)}

	impl.trace.ConnectStart(target)
	defer func(begin time.Time) {
		impl.trace.ConnectDone(target, err, time.Since(begin))
	}(time.Now())

	defer func() {
		if err != nil {
			if impl.sshSession != nil {
				_ = impl.sshSession.Close()
			}
			if impl.sshClient != nil {
				_ = impl.sshClient.Close()
			}
		}
	}()

	if impl.sshClient, err = dialer.Dial(ctx); err != nil {
		return nil, err
	}

	if impl.sshSession, err = impl.sshClient.NewSession(); err != nil {
		return nil, errors.Wrap(err, "new ssh session failed")
	}

	if err = impl.sshSession.RequestSubsystem("netconf"); err != nil {
		return nil, errors.Wrap(err, "netconf subsystem request failed")
	}

	if impl.reader, err = impl.sshSession.StdoutPipe(); err != nil {
		return nil, errors.Wrap(err, "stdout pipe failed")
	}

	if impl.writeCloser, err = impl.sshSession.StdinPipe(); err != nil {
		return nil, errors.Wrap(err, "stdin pipe failed")
	}

	impl.reader = &traceReader{r: impl.reader, trace: impl.trace}
	impl.writeCloser = &traceWriter{w: impl.writeCloser, trace: impl.trace}

	return impl, nil
}

func (t *tImpl) Target() string {
	return t.target
}

func (t *tImpl) Read(p []byte) (n int, err error) {
	return t.reader.Read(p)
}

func (t *tImpl) Write(p []byte) (n int, err error) {
	return t.writeCloser.Write(p)
}

// Close closes all session resources in the following order:
//
//  1. stdin pipe
//  2. SSH session
//  3. SSH client
//
// Errors are returned with priority matching the same order. Subsequent calls return
// the result of the first.
func (t *tImpl) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.close()
		t.trace.ConnectionClosed(t.target, t.closeErr)
	})
	return t.closeErr
}

func (t *tImpl) close() (err error) {
	var (
		writeCloseErr      error
		sshSessionCloseErr error
	)

	if t.writeCloser != nil {
		writeCloseErr = t.writeCloser.Close()
	}

	if t.sshSession != nil {
		sshSessionCloseErr = t.sshSession.Close()
		if sshSessionCloseErr == io.EOF {
			// Already closed by the peer.
			sshSessionCloseErr = nil
		}
	}

	if t.sshClient != nil {
		err = t.sshClient.Close()
	}

	if writeCloseErr != nil && writeCloseErr != io.EOF {
		return writeCloseErr
	}
	if sshSessionCloseErr != nil {
		return sshSessionCloseErr
	}
	return err
}

type traceReader struct {
	r     io.Reader
	trace *ClientTrace
}

func (tr *traceReader) Read(p []byte) (c int, err error) {
	tr.trace.ReadStart(p)
	defer func(begin time.Time) {
		tr.trace.ReadDone(p, c, err, time.Since(begin))
	}(time.Now())

	c, err = tr.r.Read(p)
	return
}

type traceWriter struct {
	w     io.WriteCloser
	trace *ClientTrace
}

func (tw *traceWriter) Write(p []byte) (c int, err error) {
	tw.trace.WriteStart(p)
	defer func(begin time.Time) {
		tw.trace.WriteDone(p, c, err, time.Since(begin))
	}(time.Now())

	c, err = tw.w.Write(p)
	return
}

func (tw *traceWriter) Close() (err error) {
	return tw.w.Close()
}
