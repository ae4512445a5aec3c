package conf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/db/kvdb/impls/memory"
	"github.com/zeptools/certgw/store"
)

const coreJSON = `{
  "app_name": "certgw-test",
  "listen": "127.0.0.1:0",
  "base_url": "https://certs.example.org",
  "shutdown_timeout": "3s",
  "uds_socket": "${CERTGW_TEST_DIR}/certgw.sock",
  "issuer": {"download_key": "${CERTGW_TEST_DOWNLOAD_KEY}", "progress_ttl": "12h", "locale": "en"},
  "throttle": {"groups": {"render": {"burst": 2, "increment": 1, "period": "1s"}}},
  "cron": [{"id": "nightly", "event_ids": [1, 2], "minutes": [0], "hours": [1]}]
}`

func writeAppRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"),
		[]byte("CERTGW_TEST_DOWNLOAD_KEY=0123456789abcdef0123456789abcdef\nCERTGW_TEST_DIR="+root+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", ".core.json"), []byte(coreJSON), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "config", ".sql-databases.json"),
		[]byte(`{"main": {"type": "sqlite", "db": ":memory:"}}`), 0o600))
	return root
}

func TestBaseInit(t *testing.T) {
	root := writeAppRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c Core
	require.NoError(t, c.BaseInit(root, ctx, cancel))
	assert.Equal(t, "certgw-test", c.AppName)
	assert.Equal(t, 3*time.Second, c.ShutdownTimeout)
	assert.Equal(t, filepath.Join(root, "public"), c.PublicRoot)
	assert.Equal(t, filepath.Join(root, "certgw.sock"), c.UDSSocket)
	assert.Equal(t, "main", c.SQLDBName)
	require.Len(t, c.Cron, 1)
	assert.Equal(t, []int64{1, 2}, c.Cron[0].EventIDs)
	assert.Equal(t, []int{1}, c.Cron[0].Hours)

	ic, err := c.IssuerConf()
	require.NoError(t, err)
	assert.Len(t, ic.DownloadKey, 32)
	assert.Equal(t, 12*time.Hour, ic.ProgressTTL)
	assert.Equal(t, "https://certs.example.org", ic.BaseURL)
}

func TestPrepareDatabases(t *testing.T) {
	root := writeAppRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var c Core
	require.NoError(t, c.BaseInit(root, ctx, cancel))
	defer c.ResourceCleanUp()

	require.NoError(t, c.PrepareSQLDatabases())
	client, err := c.MainSQLClient()
	require.NoError(t, err)
	require.NoError(t, store.New(client).Migrate(ctx))

	require.NoError(t, c.PrepareKVDatabase())
	assert.Equal(t, memory.KVType, c.KVDBConf.Type)
}

func TestServices(t *testing.T) {
	root := writeAppRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	var c Core
	require.NoError(t, c.BaseInit(root, ctx, cancel))

	require.NoError(t, c.PrepareThrottleBucketStore())
	now := time.Now()
	assert.True(t, c.ThrottleBucketStore.Allow(ThrottleRender, "ip", now))
	assert.True(t, c.ThrottleBucketStore.Allow(ThrottleRender, "ip", now))
	assert.False(t, c.ThrottleBucketStore.Allow(ThrottleRender, "ip", now))
	assert.True(t, c.ThrottleBucketStore.Allow(ThrottleDownload, "ip", now))

	c.PrepareJobScheduler()
	var ran []int64
	require.NoError(t, c.ScheduleBulkJobs(func(_ context.Context, eventID int64) error {
		ran = append(ran, eventID)
		return nil
	}))
	require.Len(t, c.JobScheduler.GetCronJobs(), 1)
	job := c.JobScheduler.GetCronJobs()[0]
	assert.True(t, job.Matches(time.Date(2024, 8, 20, 1, 0, 0, 0, time.UTC)))
	require.NoError(t, job.Task(ctx))
	assert.Equal(t, []int64{1, 2}, ran)

	require.NoError(t, c.StartServices())
	cancel()
	assert.NoError(t, c.WaitServicesDone())
}
