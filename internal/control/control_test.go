package control

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	status     StatusInfo
	reloadErr  error
	stopErr    error
	reloadHits int
	stopHits   int
}

func (f *fakeHandler) Status() StatusInfo { return f.status }
func (f *fakeHandler) Reload() error      { f.reloadHits++; return f.reloadErr }
func (f *fakeHandler) Stop() error        { f.stopHits++; return f.stopErr }

func newTestServer(t *testing.T, h Handler) (*Server, string) {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "ctl.sock")
	s := NewServer(sock, h, nil)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Stop() })
	return s, sock
}

func TestStatusRoundTrips(t *testing.T) {
	h := &fakeHandler{status: StatusInfo{Uptime: time.Minute, SessionCount: 3, Profiles: []string{"default"}}}
	_, sock := newTestServer(t, h)

	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Status()
	require.NoError(t, err)
	assert.Equal(t, h.status, got)
}

func TestReloadInvokesHandler(t *testing.T) {
	h := &fakeHandler{}
	_, sock := newTestServer(t, h)

	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Reload())
	assert.Equal(t, 1, h.reloadHits)
}

func TestReloadPropagatesHandlerError(t *testing.T) {
	h := &fakeHandler{reloadErr: assertErr("bad config")}
	_, sock := newTestServer(t, h)

	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorContains(t, c.Reload(), "bad config")
}

func TestStopInvokesHandler(t *testing.T) {
	h := &fakeHandler{}
	_, sock := newTestServer(t, h)

	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Stop())
	assert.Equal(t, 1, h.stopHits)
}

func TestMultipleCommandsOverSameConnection(t *testing.T) {
	h := &fakeHandler{status: StatusInfo{SessionCount: 1}}
	_, sock := newTestServer(t, h)

	c, err := Dial(sock)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Status()
	require.NoError(t, err)
	require.NoError(t, c.Reload())
	assert.Equal(t, 1, h.reloadHits)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
