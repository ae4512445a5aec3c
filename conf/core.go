// Package conf loads the gateway configuration and owns the long-lived resources and services
package conf

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/joho/godotenv"
	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/db/kvdb"
	"github.com/zeptools/certgw/db/kvdb/impls/memory"
	"github.com/zeptools/certgw/db/kvdb/impls/redis"
	"github.com/zeptools/certgw/db/sqldb"
	"github.com/zeptools/certgw/db/sqldb/impls/mysql"
	"github.com/zeptools/certgw/db/sqldb/impls/pgsql"
	"github.com/zeptools/certgw/db/sqldb/impls/sqlite"
	"github.com/zeptools/certgw/issuer"
	"github.com/zeptools/certgw/schedjobs"
	"github.com/zeptools/certgw/storages/keystores"
	"github.com/zeptools/certgw/svc"
	"github.com/zeptools/certgw/throttle"
	"github.com/zeptools/certgw/uds"
	"github.com/zeptools/certgw/web"
)

// throttle bucket groups
const (
	ThrottleRender   = "render"
	ThrottleDownload = "download"
)

type ThrottleConf struct {
	CleanupCycle     time.Duration                   `json:"cleanup_cycle,format:units"`
	CleanupOlderThan time.Duration                   `json:"cleanup_older_than,format:units"`
	Groups           map[string]*throttle.BucketConf `json:"groups"`
}

// CronConf schedules bulk issuance for events
type CronConf struct {
	ID       string  `json:"id"`
	EventIDs []int64 `json:"event_ids"`
	schedjobs.CronSpec
}

type IssuerConf struct {
	Locale      certificate.Locale `json:"locale"`
	PreviewDPI  float64            `json:"preview_dpi"`
	DownloadKey string             `json:"download_key"` // 32 bytes, raw or base64
	HistoryLen  int64              `json:"history_len"`
	ProgressTTL time.Duration      `json:"progress_ttl,format:units"`
	MaxUpload   int64              `json:"max_upload"`
}

// Core - common config
type Core struct {
	AppName         string             `json:"app_name"`
	Listen          string             `json:"listen"`   // HTTP Server Listen IP:PORT Address
	BaseURL         string             `json:"base_url"` // public origin. used in download links
	Debug           bool               `json:"debug"`
	PublicRoot      string             `json:"public_root"` // certificates and template images. relative to AppRoot
	ShutdownTimeout time.Duration      `json:"shutdown_timeout,format:units"`
	SQLDBName       string             `json:"sql_db"` // key in .sql-databases.json used by the store
	UDSSocket       string             `json:"uds_socket"`
	AdminIssuer     string             `json:"admin_issuer"` // expected "iss" of operator tokens
	AdminKeys       keystores.Conf     `json:"admin_keys"`
	Issuer          IssuerConf         `json:"issuer"`
	Throttle        ThrottleConf       `json:"throttle"`
	Cron            []CronConf         `json:"cron"`
	AppRoot         string             `json:"-"` // Filled from compiled paths
	RootCtx         context.Context    `json:"-"` // Global Context with RootCancel
	RootCancel      context.CancelFunc `json:"-"` // CancelFunc for RootCtx
	ActionLocks     *sync.Map          `json:"-"` // map[string]struct{}

	UDSService          *uds.Service                  `json:"-"` // PrepareUDSService
	JobScheduler        *schedjobs.Scheduler          `json:"-"` // PrepareJobScheduler
	WebService          *web.Service                  `json:"-"` // PrepareWebService
	ThrottleBucketStore *throttle.BucketStore[string] `json:"-"` // PrepareThrottleBucketStore
	KVDBConf            kvdb.Conf                     `json:"-"` // loadKVDBConf
	BackendKVDBClient   kvdb.Client                   `json:"-"` // PrepareKVDatabase
	SQLDBConfs          map[string]*sqldb.Conf        `json:"-"` // loadSQLDBConfs
	BackendSQLDBClients map[string]sqldb.Client       `json:"-"` // PrepareSQLDatabases

	services []svc.Service // Services to Manage
	done     chan error
}

// readConfig loads config/<name> with ${VAR} references expanded from the environment
func (c *Core) readConfig(name string, dst any) error {
	confBytes, err := os.ReadFile(filepath.Join(c.AppRoot, "config", name))
	if err != nil {
		return err
	}
	if err = json.Unmarshal([]byte(os.ExpandEnv(string(confBytes))), dst); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// BaseInit - 1st step for initialization
// 1. set AppRoot and load AppRoot/.env if present
// 2. load config/.core.json file
// 3. prepare base fields
// 4. Start ShutdownSignalListener
func (c *Core) BaseInit(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc) error {
	c.AppRoot = appRoot
	if err := godotenv.Load(filepath.Join(appRoot, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf(".env: %w", err)
	}
	if err := c.readConfig(".core.json", c); err != nil {
		return err
	}
	c.RootCtx = rootCtx
	c.RootCancel = rootCancel
	c.applyDefaults()
	c.ActionLocks = &sync.Map{}
	c.startShutdownSignalListener()
	return nil
}

func (c *Core) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "certgw"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	if c.SQLDBName == "" {
		c.SQLDBName = "main"
	}
	if c.PublicRoot == "" {
		c.PublicRoot = "public"
	}
	if !filepath.IsAbs(c.PublicRoot) {
		c.PublicRoot = filepath.Join(c.AppRoot, c.PublicRoot)
	}
	if c.Throttle.CleanupCycle <= 0 {
		c.Throttle.CleanupCycle = time.Minute
	}
	if c.Throttle.CleanupOlderThan <= 0 {
		c.Throttle.CleanupOlderThan = 10 * time.Minute
	}
}

func (c *Core) AddService(s svc.Service) {
	log.Printf("[INFO][CORE] adding service: %s", s.Name())
	c.services = append(c.services, s)
	log.Printf("[INFO][CORE] total services: %d", len(c.services))
}

func (c *Core) StartServices() error {
	c.done = make(chan error, len(c.services))
	for _, s := range c.services {
		err := s.Start()
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		go func(s svc.Service) {
			err := <-s.Done()
			c.done <- err
		}(s) // pass the loop var to the param. otherwise, they are captured inside goroutine lazily
	}
	return nil
}

// WaitServicesDone blocks until every service stopped. The first error stops the rest
func (c *Core) WaitServicesDone() error {
	var first error
	for range c.services {
		if err := <-c.done; err != nil && first == nil {
			first = err
			c.RootCancel()
		}
	}
	return first
}

func (c *Core) StopServices() {
	for _, s := range c.services {
		s.Stop()
	}
}

var once sync.Once

func (c *Core) startShutdownSignalListener() {
	once.Do(func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigs
			log.Printf("[INFO][CORE] got signal [%s]. shutting down app [%s] ...", sig, c.AppName)
			c.RootCancel() // broadcast to all child services via Context.Done()
		}()
	})
	log.Printf("[INFO][CORE] shutdown signal listener started")
}

func (c *Core) PrepareJobScheduler() {
	c.JobScheduler = schedjobs.NewScheduler(c.RootCtx)
	c.JobScheduler.OnFinished = func(jobID string, err error) {
		if err != nil {
			log.Printf("[WARN][SCHEDULER] job %s: %v", jobID, err)
			return
		}
		log.Printf("[INFO][SCHEDULER] job %s finished", jobID)
	}
	c.AddService(c.JobScheduler)
}

func (c *Core) PrepareUDSService(cmdMap map[string]uds.CmdHnd) {
	c.UDSService = uds.NewService(c.RootCtx, c.UDSSocket, cmdMap)
	c.AddService(c.UDSService)
}

func (c *Core) PrepareWebService(router http.Handler) {
	c.WebService = web.NewService(c.RootCtx, c.Listen, router, c.ShutdownTimeout)
	c.AddService(c.WebService)
}

// PrepareThrottleBucketStore registers the render and download groups, configured or default,
// plus any other configured group
func (c *Core) PrepareThrottleBucketStore() error {
	c.ThrottleBucketStore = throttle.NewBucketStore[string](c.RootCtx, c.Throttle.CleanupCycle, c.Throttle.CleanupOlderThan)
	defaults := map[string]*throttle.BucketConf{
		ThrottleRender:   {Burst: 10, Increment: 1, Period: 2 * time.Second},
		ThrottleDownload: {Burst: 30, Increment: 1, Period: time.Second},
	}
	groups := maps.Clone(c.Throttle.Groups)
	if groups == nil {
		groups = defaults
	}
	for name, bc := range defaults {
		if _, ok := groups[name]; !ok {
			groups[name] = bc
		}
	}
	for name, bc := range groups {
		if err := c.ThrottleBucketStore.SetBucketGroup(name, bc); err != nil {
			return err
		}
	}
	c.AddService(c.ThrottleBucketStore)
	return nil
}

// ScheduleBulkJobs registers one cron job per configured entry running bulk for each event
func (c *Core) ScheduleBulkJobs(bulk func(ctx context.Context, eventID int64) error) error {
	for _, cc := range c.Cron {
		eventIDs := cc.EventIDs
		job, err := schedjobs.NewCronJob(cc.ID, cc.CronSpec, func(ctx context.Context) error {
			var errs []error
			for _, id := range eventIDs {
				if err := bulk(ctx, id); err != nil {
					errs = append(errs, fmt.Errorf("event %d: %w", id, err))
				}
			}
			return errors.Join(errs...)
		})
		if err != nil {
			return err
		}
		c.JobScheduler.AddCronJob(job)
	}
	return nil
}

func (c *Core) loadKVDBConf() error {
	return c.readConfig(".kv-databases.json", &c.KVDBConf)
}

// PrepareKVDatabase builds the KV client. Without a config file an in-process store is used
func (c *Core) PrepareKVDatabase() error {
	err := c.loadKVDBConf()
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN][KVDB] no .kv-databases.json. using in-process memory store")
		c.KVDBConf = kvdb.Conf{Type: memory.KVType}
	} else if err != nil {
		return err
	}
	redis.Register()
	memory.Register()
	client, err := kvdb.New(c.KVDBConf.Type, &c.KVDBConf)
	if err != nil {
		return err
	}
	if err = client.Init(); err != nil {
		return err
	}
	c.BackendKVDBClient = client
	return nil
}

func (c *Core) loadSQLDBConfs() error {
	c.SQLDBConfs = make(map[string]*sqldb.Conf)
	return c.readConfig(".sql-databases.json", &c.SQLDBConfs)
}

// PrepareSQLDatabases builds and inits every configured SQL client.
// Statements of every registered group are loaded by each client on Init.
func (c *Core) PrepareSQLDatabases() error {
	if err := c.loadSQLDBConfs(); err != nil {
		return err
	}
	// Registering Supported Implementations
	pgsql.Register()
	mysql.Register()
	sqlite.Register()

	c.BackendSQLDBClients = make(map[string]sqldb.Client)
	for dbName, sqlDBConf := range c.SQLDBConfs {
		dbClient, err := sqldb.New(sqlDBConf.Type, sqlDBConf)
		if err != nil {
			return fmt.Errorf("sql db %q: %w", dbName, err)
		}
		if err = dbClient.Init(); err != nil {
			return fmt.Errorf("sql db %q: %w", dbName, err)
		}
		c.BackendSQLDBClients[dbName] = dbClient
	}
	return nil
}

// MainSQLClient is the client named by sql_db
func (c *Core) MainSQLClient() (sqldb.Client, error) {
	client, ok := c.BackendSQLDBClients[c.SQLDBName]
	if !ok {
		return nil, fmt.Errorf("sql db %q not configured", c.SQLDBName)
	}
	return client, nil
}

func decodeKey(s string) ([]byte, error) {
	if len(s) == 32 {
		return []byte(s), nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil && len(b) == 32 {
			return b, nil
		}
	}
	return nil, errors.New("download_key must be 32 bytes, raw or base64")
}

// IssuerConf maps the config to issuer.Conf
func (c *Core) IssuerConf() (issuer.Conf, error) {
	key, err := decodeKey(c.Issuer.DownloadKey)
	if err != nil {
		return issuer.Conf{}, err
	}
	return issuer.Conf{
		AppName:     c.AppName,
		PublicRoot:  c.PublicRoot,
		BaseURL:     c.BaseURL,
		Locale:      c.Issuer.Locale,
		PreviewDPI:  c.Issuer.PreviewDPI,
		DownloadKey: key,
		HistoryLen:  c.Issuer.HistoryLen,
		ProgressTTL: c.Issuer.ProgressTTL,
		MaxUpload:   c.Issuer.MaxUpload,
	}, nil
}

func (c *Core) ResourceCleanUp() {
	log.Println("[INFO][CORE] App Resource Cleaning Up...")
	if c.BackendKVDBClient != nil {
		kvdb.CloseClient(c.KVDBConf.Type, c.BackendKVDBClient)
	}
	for name, sqlDBClient := range c.BackendSQLDBClients {
		sqldb.CloseClient(name, sqlDBClient)
	}
	log.Println("[INFO][CORE] App Resource Cleanup Complete")
}
