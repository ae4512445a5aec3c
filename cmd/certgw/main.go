// Command certgw serves the certificate API.
//
//	certgw [-root DIR] serve      run the HTTP, socket, scheduler and throttle services
//	certgw [-root DIR] migrate    create the schema in the configured database
//	certgw [-root DIR] keygen     create an operator signing key pair
//	certgw [-root DIR] token -kid KID [-sub NAME] [-ttl 24h]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/zeptools/certgw/conf"
	"github.com/zeptools/certgw/issuer"
	"github.com/zeptools/certgw/ops"
	"github.com/zeptools/certgw/routing"
	"github.com/zeptools/certgw/sec"
	"github.com/zeptools/certgw/store"
	"github.com/zeptools/certgw/throttle"
	"github.com/zeptools/certgw/web/api"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: certgw [-root DIR] serve|migrate|keygen|token [flags]")
	flag.PrintDefaults()
}

func main() {
	exe, _ := os.Executable()
	root := flag.String("root", filepath.Dir(exe), "app root holding config/ and .env")
	flag.Usage = usage
	flag.Parse()

	cmd := "serve"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}
	var err error
	switch cmd {
	case "serve":
		err = serve(*root)
	case "migrate":
		err = migrate(*root)
	case "keygen":
		err = keygen(*root)
	case "token":
		err = token(*root, flag.Args()[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[ERROR][CORE] %s: %v", cmd, err)
	}
}

func initCore(appRoot string) (*conf.Core, error) {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	core := &conf.Core{}
	if err := core.BaseInit(appRoot, rootCtx, rootCancel); err != nil {
		rootCancel()
		return nil, err
	}
	return core, nil
}

func openStore(core *conf.Core) (*store.Store, error) {
	if err := core.PrepareSQLDatabases(); err != nil {
		return nil, err
	}
	client, err := core.MainSQLClient()
	if err != nil {
		return nil, err
	}
	return store.New(client), nil
}

func migrate(appRoot string) error {
	core, err := initCore(appRoot)
	if err != nil {
		return err
	}
	defer core.ResourceCleanUp()
	st, err := openStore(core)
	if err != nil {
		return err
	}
	if err = st.Migrate(core.RootCtx); err != nil {
		return err
	}
	log.Printf("[INFO][SQLDB] schema ready")
	return nil
}

func keygen(appRoot string) error {
	core, err := initCore(appRoot)
	if err != nil {
		return err
	}
	kid, err := core.AdminKeys.NewKeyPair(2048)
	if err != nil {
		return err
	}
	fmt.Println(kid)
	return nil
}

func token(appRoot string, args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	kid := fs.String("kid", "", "key id created by keygen")
	sub := fs.String("sub", "operator", "operator identity")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = fs.Parse(args)
	if *kid == "" {
		return fmt.Errorf("-kid is required")
	}
	core, err := initCore(appRoot)
	if err != nil {
		return err
	}
	priv, err := core.AdminKeys.PrivateKey(*kid)
	if err != nil {
		return err
	}
	signed, err := sec.IssueAdminToken(core.AdminIssuer, *sub, priv, *kid, time.Now(), *ttl)
	if err != nil {
		return err
	}
	fmt.Println(signed)
	return nil
}

func serve(appRoot string) error {
	core, err := initCore(appRoot)
	if err != nil {
		return err
	}
	defer core.ResourceCleanUp()

	st, err := openStore(core)
	if err != nil {
		return err
	}
	if err = core.PrepareKVDatabase(); err != nil {
		return err
	}
	issConf, err := core.IssuerConf()
	if err != nil {
		return err
	}
	iss, err := issuer.New(issConf, st, core.BackendKVDBClient,
		issuer.WithRootContext(core.RootCtx),
		issuer.WithLocks(core.ActionLocks),
	)
	if err != nil {
		return err
	}
	adminKeys, err := core.AdminKeys.PublicKeys()
	if err != nil {
		return fmt.Errorf("admin keys: %w", err)
	}

	if err = core.PrepareThrottleBucketStore(); err != nil {
		return err
	}
	router := routing.NewBaseRouter()
	a := &api.API{
		Issuer:        iss,
		Admin:         sec.AdminAuth{Keys: adminKeys, Issuer: core.AdminIssuer},
		RenderLimit:   throttle.ByClientIP{Store: core.ThrottleBucketStore, GroupID: conf.ThrottleRender},
		DownloadLimit: throttle.ByClientIP{Store: core.ThrottleBucketStore, GroupID: conf.ThrottleDownload},
		MaxUpload:     issConf.MaxUpload,
		PublicRoot:    core.PublicRoot,
		Ready: func(ctx context.Context) error {
			client, err := core.MainSQLClient()
			if err != nil {
				return err
			}
			if err = client.DBHandle().Ping(ctx); err != nil {
				return err
			}
			return core.BackendKVDBClient.Ping(ctx)
		},
	}
	a.Register(router)
	var handler http.Handler = router
	handler = routing.RecoverWrapper.Wrap(handler)
	if core.Debug {
		handler = routing.AccessLogWrapper.Wrap(handler)
	}
	core.PrepareWebService(handler)

	core.PrepareJobScheduler()
	if err = core.ScheduleBulkJobs(func(ctx context.Context, eventID int64) error {
		report, err := iss.BulkGenerate(ctx, eventID)
		if err != nil {
			return err
		}
		log.Printf("[INFO][SCHEDULER] event %d: %d issued, %d failed", eventID, report.SuccessCount, report.FailureCount)
		return nil
	}); err != nil {
		return err
	}
	if core.UDSSocket != "" {
		core.PrepareUDSService(ops.Commands(iss))
	}

	if err = core.StartServices(); err != nil {
		core.RootCancel()
		return err
	}
	log.Printf("[INFO][CORE] %s started", core.AppName)
	err = core.WaitServicesDone()
	log.Printf("[INFO][CORE] %s stopped", core.AppName)
	return err
}
