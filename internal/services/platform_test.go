package services

import (
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"vccadmin/internal/backup"
	"vccadmin/internal/config"
	"vccadmin/internal/fakevcc"
	"vccadmin/internal/logger"
	"vccadmin/internal/vcc"
)

// platform 測試用的模擬平台與已完成網域初始化的客戶端
type platform struct {
	fake    *fakevcc.Server
	client  *vcc.Client
	sidecar *backup.Sidecar
	dir     string
}

func newPlatform(t *testing.T) *platform {
	t.Helper()
	fake := fakevcc.New()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := config.Default().API
	cfg.RESTURL = srv.URL + "/rest"
	cfg.SOAPURL = srv.URL + "/soap"
	cfg.RequestTimeout = 5 * time.Second

	client := vcc.NewClient(cfg,
		vcc.Credentials{Username: fakevcc.DefaultUsername, Password: fakevcc.DefaultPassword},
		vcc.WithLogger(logger.Discard()),
		vcc.WithDomain(vcc.Domain{ID: fakevcc.DefaultDomainID, Name: fakevcc.DefaultDomainName}),
	)

	dir := t.TempDir()
	store := backup.NewStore(filepath.Join(dir, "backups"), filepath.Join(dir, "failures"))

	return &platform{
		fake:    fake,
		client:  client,
		sidecar: backup.NewSidecar(store, logger.Discard(), true),
		dir:     dir,
	}
}

func (p *platform) ivr() *IVRService {
	return NewIVRService(p.client, p.client, p.sidecar, logger.Discard())
}
