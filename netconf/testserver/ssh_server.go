package testserver

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"sync"

	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// SSHServer represents a test SSH Server
type SSHServer struct {
	listener net.Listener
}

// Handler is the interface that is implemented to handle an SSH channel.
type Handler interface {
	// Handle handles i/o to/from an SSH channel, returning when the session is over.
	Handle(ch io.ReadWriteCloser)
}

// HandlerFactory is a function that will deliver a Handler for a new connection.
type HandlerFactory func() Handler

// NewSSHServer delivers a new test SSH Server, that echoes each line it receives prefixed by "GOT:".
// The server implements password authentication with the given credentials.
func NewSSHServer(t assert.TestingT, uname, password string) *SSHServer {
	return NewSSHServerHandler(t, uname, password, func() Handler { return echoHandler{} })
}

// NewSSHServerHandler delivers a new test SSH Server, with a custom channel handler.
// The server implements password authentication with the given credentials.
func NewSSHServerHandler(t assert.TestingT, uname, password string, factory HandlerFactory) *SSHServer {
	listener, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err, "Listen failed")

	go acceptConnections(listener, newSSHServerConfig(t, uname, password), factory)

	return &SSHServer{listener: listener}
}

// Port delivers the tcp port number on which the server is listening.
func (ts *SSHServer) Port() int {
	return ts.listener.Addr().(*net.TCPAddr).Port
}

// Close closes any resources used by the server.
func (ts *SSHServer) Close() {
	_ = ts.listener.Close()
}

func acceptConnections(listener net.Listener, config *ssh.ServerConfig, factory HandlerFactory) {
	for {
		nConn, err := listener.Accept()
		if err != nil {
			return
		}
		go serveConnection(nConn, config, factory)
	}
}

func serveConnection(nConn net.Conn, config *ssh.ServerConfig, factory HandlerFactory) {
	_, chch, reqch, err := ssh.NewServerConn(nConn, config)
	if err != nil {
		_ = nConn.Close()
		return
	}

	go ssh.DiscardRequests(reqch)

	// Service the incoming Channel channel.
	for newChannel := range chch {
		dataChan, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}

		// Handle the "subsystem" request.
		go func(in <-chan *ssh.Request) {
			for req := range in {
				_ = req.Reply(req.Type == "subsystem", nil)
			}
		}(requests)

		go func() {
			defer dataChan.Close()
			factory().Handle(dataChan)
		}()
	}
}

type echoHandler struct{}

func (echoHandler) Handle(ch io.ReadWriteCloser) {
	chReader := bufio.NewReader(ch)
	chWriter := bufio.NewWriter(ch)
	for {
		input, err := chReader.ReadString('\n')
		if err != nil {
			return
		}
		if _, err = chWriter.WriteString(fmt.Sprintf("GOT:%s", input)); err != nil {
			return
		}
		_ = chWriter.Flush()
	}
}

func newSSHServerConfig(t assert.TestingT, uname, password string) *ssh.ServerConfig {
	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == uname && string(pass) == password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
	}

	hostKey, err := sharedHostKey()
	assert.NoError(t, err, "Failed to generate host key")
	config.AddHostKey(hostKey)
	return config
}

var (
	hostKeyOnce sync.Once
	hostKey     ssh.Signer
	hostKeyErr  error
)

// sharedHostKey generates one host key for all servers of the test binary.
func sharedHostKey() (ssh.Signer, error) {
	hostKeyOnce.Do(func() {
		hostKey, hostKeyErr = generateHostKey()
	})
	return hostKey, hostKeyErr
}

func generateHostKey() (hostkey ssh.Signer, err error) {
	reader := rand.Reader
	bitSize := 2048
	var key *rsa.PrivateKey
	if key, err = rsa.GenerateKey(reader, bitSize); err == nil {
		privateBytes := encodePrivateKeyToPEM(key)
		if hostkey, err = ssh.ParsePrivateKey(privateBytes); err == nil {
			return
		}
	}
	return
}

func encodePrivateKeyToPEM(privateKey *rsa.PrivateKey) []byte {
	// Get ASN.1 DER format
	privDER := x509.MarshalPKCS1PrivateKey(privateKey)

	// pem.Block
	privBlock := pem.Block{
		Type:    "RSA PRIVATE KEY",
		Headers: nil,
		Bytes:   privDER,
	}

	// Private key in PEM format
	return pem.EncodeToMemory(&privBlock)
}
