package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/secondscreen/internal/client"
	"github.com/alfredjeanlab/secondscreen/internal/config"
	"github.com/alfredjeanlab/secondscreen/internal/model"
	"github.com/alfredjeanlab/secondscreen/internal/server"
	"github.com/alfredjeanlab/secondscreen/internal/snapshot"
)

// freeAddr returns a loopback address that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := lis.Addr().String()
	lis.Close()
	return addr
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		HTTPAddr:      freeAddr(t),
		DataDir:       t.TempDir(),
		SaveDebounce:  time.Hour,
		SweepInterval: time.Hour,
		TaskTTL:       5 * time.Minute,
		SessionTTL:    24 * time.Hour,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

func startServe(t *testing.T, cfg *config.Config) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zerolog.Nop()) }()
	t.Cleanup(cancel)
	return cancel, done
}

func waitServeDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}
}

func TestServe_PersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	cancel, done := startServe(t, cfg)

	c := client.NewHTTPClient("http://" + cfg.HTTPAddr)
	ssClient = c
	ctx := context.Background()
	if _, err := waitHealthy(ctx, 5*time.Second); err != nil {
		t.Fatalf("server never became healthy: %v", err)
	}

	if _, err := c.RegisterSession(ctx, &client.RegisterSessionRequest{Directory: "/w/app"}); err != nil {
		t.Fatal(err)
	}
	busy := model.StatusBusy
	if _, err := c.UpdateSession(ctx, &client.UpdateSessionRequest{Directory: "/w/app/pkg", Status: &busy}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddTask(ctx, "/w/app", "keep me"); err != nil {
		t.Fatal(err)
	}

	// The debounce window is an hour; only the shutdown flush can write.
	cancel()
	waitServeDone(t, done)

	sessions, err := snapshot.NewFile(cfg.SnapshotPath()).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("snapshot holds %d sessions, want 1", len(sessions))
	}
	got := sessions[0]
	if got.Directory != "/w/app" || got.Status != model.StatusBusy || len(got.Tasks) != 1 {
		t.Fatalf("snapshot session = %+v", got)
	}

	// A second run picks the state back up.
	cfg.HTTPAddr = freeAddr(t)
	cancel2, done2 := startServe(t, cfg)
	c2 := client.NewHTTPClient("http://" + cfg.HTTPAddr)
	ssClient = c2
	if _, err := waitHealthy(ctx, 5*time.Second); err != nil {
		t.Fatal(err)
	}
	list, err := c2.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Tasks[0].Text != "keep me" {
		t.Fatalf("restored sessions = %+v", list)
	}
	cancel2()
	waitServeDone(t, done2)
}

func TestServe_StartupSweepRewritesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	old := time.Now().Add(-48 * time.Hour).UTC()
	stale := model.NewSession("/stale", old)
	stale.Status = model.StatusStopped
	fresh := model.NewSession("/fresh", time.Now().UTC())
	if err := snapshot.NewFile(cfg.SnapshotPath()).Save([]model.Session{*stale, *fresh}); err != nil {
		t.Fatal(err)
	}

	cancel, done := startServe(t, cfg)
	ssClient = client.NewHTTPClient("http://" + cfg.HTTPAddr)
	if _, err := waitHealthy(context.Background(), 5*time.Second); err != nil {
		t.Fatal(err)
	}

	// The purge is on disk before any request arrives.
	data, err := os.ReadFile(cfg.SnapshotPath())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "/stale") {
		t.Errorf("stale session still on disk:\n%s", data)
	}
	if !strings.Contains(string(data), "/fresh") {
		t.Errorf("fresh session missing from disk:\n%s", data)
	}

	cancel()
	waitServeDone(t, done)
}

func TestServe_CorruptSnapshotStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.DataDir, config.SnapshotFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	cancel, done := startServe(t, cfg)
	ssClient = client.NewHTTPClient("http://" + cfg.HTTPAddr)
	resp, err := waitHealthy(context.Background(), 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Sessions != 0 {
		t.Errorf("sessions = %d, want 0", resp.Sessions)
	}
	cancel()
	waitServeDone(t, done)
}

func TestServe_ListenError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer lis.Close()

	cfg := testConfig(t)
	cfg.HTTPAddr = lis.Addr().String()
	err = serve(context.Background(), cfg, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), "listening on") {
		t.Fatalf("serve() error = %v, want listen failure", err)
	}
}

func TestServe_GRPCHealth(t *testing.T) {
	cfg := testConfig(t)
	cfg.GRPCAddr = freeAddr(t)
	cancel, done := startServe(t, cfg)

	ssClient = client.NewHTTPClient("http://" + cfg.HTTPAddr)
	ctx := context.Background()
	if _, err := waitHealthy(ctx, 5*time.Second); err != nil {
		t.Fatal(err)
	}

	conn, err := grpc.NewClient(cfg.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()

	checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
	defer checkCancel()
	resp, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{Service: server.HealthService})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.GetStatus())
	}

	cancel()
	waitServeDone(t, done)
}

func TestServe_GRPCListenError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer lis.Close()

	cfg := testConfig(t)
	cfg.GRPCAddr = lis.Addr().String()
	err = serve(context.Background(), cfg, zerolog.Nop())
	if err == nil || !strings.Contains(err.Error(), cfg.GRPCAddr) {
		t.Fatalf("serve() error = %v, want gRPC listen failure", err)
	}
}
