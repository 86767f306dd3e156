package testserver_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/damianoneill/ncclient/netconf/client"
	"github.com/damianoneill/ncclient/netconf/common"
	"github.com/damianoneill/ncclient/netconf/testserver"

	assert "github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

const req = `<get-config>
   <source><running/></source>
   <filter type="subtree">
       <interfaces xmlns="urn:ietf:params:xml:ns:yang:ietf-interfaces">
       </interfaces>
   </filter>
</get-config>`

func TestMultipleTestServersWithoutChunkedEncoding(t *testing.T) {
	var svrCount = 10
	var reqCount = 100

	ts := createServers(t, svrCount, []string{common.CapBase10})
	defer closeServers(ts)

	ss := createSessions(t, ts)

	wg := &sync.WaitGroup{}
	for i := 0; i < len(ss); i++ {
		assert.False(t, ss[i].ChunkedFraming())
		wg.Add(1)
		go exSession(t, ss[i], wg, reqCount)
	}

	wg.Wait()

	for i := 0; i < len(ts); i++ {
		// The requests, plus close-session.
		assert.Equal(t, reqCount+1, ts[i].LastHandler().ReqCount())
	}
}

func TestMultipleTestServersWithChunkedEncoding(t *testing.T) {
	var svrCount = 10
	var reqCount = 100

	ts := createServers(t, svrCount, []string{common.CapBase10, common.CapBase11})
	defer closeServers(ts)

	ss := createSessions(t, ts)

	wg := &sync.WaitGroup{}
	for i := 0; i < len(ss); i++ {
		assert.True(t, ss[i].ChunkedFraming())
		wg.Add(1)
		go exSession(t, ss[i], wg, reqCount)
	}

	wg.Wait()

	for i := 0; i < len(ts); i++ {
		assert.Equal(t, reqCount+1, ts[i].LastHandler().ReqCount())
	}
}

func TestMultipleSessions(t *testing.T) {
	ts := testserver.NewTestNetconfServer(t)
	defer ts.Close()

	ncs := newNCClientSession(t, ts)
	assert.Nil(t, ts.SessionHandler(ncs.ID()).LastReq(), "No requests should have been executed")

	reply, err := ncs.Execute(common.Request(`<get><response/></get>`))
	assert.NoError(t, err, "Not expecting exec to fail")
	assert.NotNil(t, reply, "Reply should be non-nil")

	ncs.Close()

	ncs = newNCClientSession(t, ts)
	defer ncs.Close()
	assert.Equal(t, uint64(2), ncs.ID(), "Sessions should be allocated distinct ids")

	reply, err = ncs.Execute(common.Request(`<get><response/></get>`))
	assert.NoError(t, err, "Not expecting exec to fail")
	assert.NotNil(t, reply, "Reply should be non-nil")
}

func TestInMemorySession(t *testing.T) {
	ts := testserver.NewInMemoryNetconfServer(t).
		WithCapabilities([]string{common.CapBase10, common.CapBase11, common.CapXpath})
	defer ts.Close()

	s, err := client.NewSession(context.Background(), ts.Connect(), nil)
	assert.NoError(t, err, "Expecting new session to succeed")
	defer s.Close()

	h := ts.LastHandler()
	h.WaitStart()
	assert.Equal(t, s.ClientCapabilities(), h.ClientHello().Capabilities)
	assert.Contains(t, s.ServerCapabilities(), common.CapXpath)

	reply, err := s.Execute(common.Request(req))
	assert.NoError(t, err)
	assert.Contains(t, reply.Data, "ietf-interfaces")
	assert.Equal(t, "get-config", h.LastReq().Request.XMLName.Local)
	assert.Equal(t, reply.MessageID, h.LastReq().MessageID)
}

func TestSendMessage(t *testing.T) {
	ts := testserver.NewInMemoryNetconfServer(t)
	defer ts.Close()

	unmatched := make(chan string, 1)
	ctx := client.WithClientTrace(context.Background(), &client.ClientTrace{
		UnmatchedReply: func(instance, target, messageID string) { unmatched <- messageID },
	})
	s, err := client.NewSession(ctx, ts.Connect(), nil)
	assert.NoError(t, err)
	defer s.Close()

	ts.LastHandler().SendMessage(fmt.Sprintf(`<rpc-reply xmlns=%q message-id="99"><ok/></rpc-reply>`, common.NetconfNS))
	assert.Equal(t, "99", <-unmatched)
}

func exSession(t *testing.T, s client.Session, wg *sync.WaitGroup, reqCount int) {
	defer wg.Done()
	defer s.Close()
	for e := 0; e < reqCount; e++ {
		reply, _ := s.Execute(common.Request(req))
		assert.NotNil(t, reply, "Execute failed unexpectedly")
	}
}

func createServers(t *testing.T, count int, caps []string) []*testserver.TestNCServer {
	ts := make([]*testserver.TestNCServer, count)
	for i := 0; i < count; i++ {
		ts[i] = testserver.NewTestNetconfServer(t).WithCapabilities(caps)
	}
	return ts
}

func closeServers(ts []*testserver.TestNCServer) {
	for i := 0; i < len(ts); i++ {
		ts[i].Close()
	}
}

func createSessions(t *testing.T, ts []*testserver.TestNCServer) []client.Session {
	ss := make([]client.Session, len(ts))
	for i := 0; i < len(ts); i++ {
		ss[i] = newNCClientSession(t, ts[i])
	}
	return ss
}

func newNCClientSession(t *testing.T, ts *testserver.TestNCServer) client.Session {
	s, err := client.NewRPCSession(context.Background(), sshConfig(), fmt.Sprintf("localhost:%d", ts.Port()))
	assert.NoError(t, err, "Expecting new session to succeed")
	return s
}

func sshConfig() *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User:            testserver.TestUserName,
		Auth:            []ssh.AuthMethod{ssh.Password(testserver.TestPassword)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint: gosec
	}
}
