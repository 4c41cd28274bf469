package health

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"omnis/kiosk/internal/audio"
	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/facestore"
)

func startVision(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) *grpc.ClientConn {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	hs.SetServingStatus(face.ServiceName, status)
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func testStore(t *testing.T) facestore.Store {
	t.Helper()
	st, err := facestore.NewSQLiteStore(filepath.Join(t.TempDir(), "faces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCheckAllHealthy(t *testing.T) {
	cfg := config.Load()
	cfg.Answer.APIKey = "k"
	deps := Deps{
		Vision: startVision(t, healthpb.HealthCheckResponse_SERVING),
		Faces:  testStore(t),
		Devices: func() ([]audio.DeviceInfo, error) {
			return []audio.DeviceInfo{{Index: 0, Name: "USB PnP Sound Device"}}, nil
		},
		Models: func(context.Context) error { return nil },
	}
	st := CheckAll(context.Background(), cfg, deps)
	require.True(t, st.OK, st.String())
	require.Len(t, st.Checks, 4)
	assert.Equal(t, "0 enrolled", st.Checks[1].Detail)
	assert.Contains(t, st.String(), "Health: OK")
}

func TestCheckAllReportsFailures(t *testing.T) {
	cfg := config.Load()
	cfg.Answer.APIKey = ""
	deps := Deps{
		Vision:  startVision(t, healthpb.HealthCheckResponse_NOT_SERVING),
		Devices: func() ([]audio.DeviceInfo, error) { return nil, nil },
	}
	st := CheckAll(context.Background(), cfg, deps)
	assert.False(t, st.OK)
	for _, c := range st.Checks {
		assert.False(t, c.OK, c.Name)
		assert.NotEmpty(t, c.Error, c.Name)
	}
	out := st.String()
	assert.True(t, strings.HasPrefix(out, "Health: FAIL"))
	assert.Contains(t, out, "GEMINI_API_KEY not set")
}

func TestCheckAnswerProbeError(t *testing.T) {
	cfg := config.Load()
	cfg.Answer.APIKey = "k"
	res := checkAnswer(context.Background(), cfg, func(context.Context) error { return errors.New("401 unauthorized") })
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "401")
}
