package client

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// NewRPCSession dials target with the ssh configuration and establishes a netconf session
// using DefaultConfig.
func NewRPCSession(ctx context.Context, sshcfg *ssh.ClientConfig, target string) (Session, error) {
	return NewRPCSessionWithConfig(ctx, sshcfg, target, nil)
}

// NewRPCSessionWithConfig dials target with the ssh configuration, opens the netconf
// subsystem and completes the hello exchange using cfg. Unset values of cfg take their
// DefaultConfig values. The transport is closed if the session cannot be established.
func NewRPCSessionWithConfig(ctx context.Context, sshcfg *ssh.ClientConfig, target string, cfg *Config) (Session, error) {
	t, err := NewSSHTransport(ctx, NewDialer(target, sshcfg), target)
	if err != nil {
		return nil, err
	}

	s, err := NewSession(ctx, t, cfg)
	if err != nil {
		_ = t.Close()
		return nil, errors.WithMessagef(err, "target %s", target)
	}
	return s, nil
}
