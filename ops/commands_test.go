package ops

import (
	"bufio"
	"bytes"
	"context"
	"image/color"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/db/kvdb/impls/memory"
	"github.com/zeptools/certgw/issuer"
	"github.com/zeptools/certgw/store/storetest"
	"github.com/zeptools/certgw/uds"
)

var eventStart = time.Date(2024, 8, 17, 9, 0, 0, 0, time.UTC)

func newIssuer(t *testing.T) (*issuer.Issuer, int64) {
	t.Helper()
	st, client := storetest.Open(t)
	sd := storetest.Seeder{T: t, Client: client}
	public := t.TempDir()
	eventID := sd.Event("Tech Summit", "tech-summit", eventStart)
	sd.Participant(eventID, "Budi Santoso", true, eventStart)
	sd.Participant(eventID, "Sari Dewi", true, eventStart.Add(time.Minute))

	full := filepath.Join(public, "certificates", "templates", "one.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, imaging.Save(imaging.New(842, 595, color.White), full))
	sd.Template(eventID, 1, "/certificates/templates/one.png", `[{"key":"name","x":421,"y":260}]`)

	iss, err := issuer.New(issuer.Conf{
		PublicRoot:  public,
		DownloadKey: []byte("0123456789abcdef0123456789abcdef"),
	}, st, memory.New(nil))
	require.NoError(t, err)
	return iss, eventID
}

func run(t *testing.T, cmds map[string]uds.CmdHnd, name string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	err := cmds[name].Fn(context.Background(), args, &buf)
	return buf.String(), err
}

func TestCommands(t *testing.T) {
	iss, eventID := newIssuer(t)
	cmds := Commands(iss)
	id := itoa(eventID)

	out, err := run(t, cmds, "stats", id)
	require.NoError(t, err)
	assert.Contains(t, out, "without certificates  2")
	assert.Contains(t, out, "can generate          true")

	out, err = run(t, cmds, "progress", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "idle"`)

	out, err = run(t, cmds, "history", id)
	require.NoError(t, err)
	assert.Equal(t, "no bulk runs\n", out)

	out, err = run(t, cmds, "bulk", id)
	require.NoError(t, err)
	assert.Contains(t, out, "2 total, 2 issued, 0 failed")

	out, err = run(t, cmds, "progress", id)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "done"`)

	out, err = run(t, cmds, "history", id)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	_, err = run(t, cmds, "bulk", id)
	assert.ErrorIs(t, err, issuer.ErrNothingToGenerate)
	_, err = run(t, cmds, "stats")
	assert.ErrorIs(t, err, errEventIDRequired)
	_, err = run(t, cmds, "stats", "x")
	assert.Error(t, err)
}

func TestOverUnixSocket(t *testing.T) {
	iss, eventID := newIssuer(t)
	sock := filepath.Join(t.TempDir(), "certgw.sock")
	s := uds.NewService(context.Background(), sock, Commands(iss))
	require.NoError(t, s.Start())
	defer func() {
		s.Stop()
		<-s.Done()
	}()

	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = io.WriteString(conn, "help\n")
	require.NoError(t, err)
	r := bufio.NewReader(conn)
	var help strings.Builder
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		help.WriteString(line)
		if strings.HasPrefix(line, "quit") {
			break
		}
	}
	assert.Contains(t, help.String(), "bulk <eventID>")
	assert.Contains(t, help.String(), "stats <eventID>")

	_, err = io.WriteString(conn, "stats "+itoa(eventID)+"\n")
	require.NoError(t, err)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Contains(t, string(rest), "participants")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
