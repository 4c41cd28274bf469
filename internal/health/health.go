package health

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"omnis/kiosk/internal/audio"
	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/facestore"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Detail  string        `json:"detail,omitempty"`
	Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Detail != "" {
			s += fmt.Sprintf(" %s", c.Detail)
		}
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// Deps are the live handles to probe. Nil fields are dialled or skipped.
type Deps struct {
	Vision  *grpc.ClientConn
	Faces   facestore.Store
	Devices func() ([]audio.DeviceInfo, error)
	// Models overrides the answer backend probe, for tests.
	Models func(ctx context.Context) error
}

// CheckAll runs all health checks and returns combined status
func CheckAll(ctx context.Context, cfg config.Config, deps Deps) HealthStatus {
	checks := []CheckResult{
		checkVision(ctx, cfg, deps.Vision),
		checkFaceStore(ctx, deps.Faces),
		checkMicrophone(cfg, deps.Devices),
		checkAnswer(ctx, cfg, deps.Models),
	}

	allOK := true
	for _, c := range checks {
		if !c.OK {
			allOK = false
		}
	}

	return HealthStatus{
		OK:        allOK,
		Checks:    checks,
		CheckedAt: time.Now().UTC(),
	}
}

func checkVision(ctx context.Context, cfg config.Config, conn *grpc.ClientConn) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "vision"}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if conn == nil {
		c, err := grpc.NewClient(cfg.Face.SidecarAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			result.Error = fmt.Sprintf("dial %s: %v", cfg.Face.SidecarAddr, err)
			result.Latency = time.Since(start)
			return result
		}
		defer c.Close()
		conn = c
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: face.ServiceName})
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("health rpc: %v", err)
		return result
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		result.Error = fmt.Sprintf("status %s", resp.GetStatus())
		return result
	}
	result.OK = true
	return result
}

func checkFaceStore(ctx context.Context, st facestore.Store) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "face_store"}
	if st == nil {
		result.Error = "not opened"
		return result
	}
	recs, err := st.LoadAll(ctx)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	result.Detail = fmt.Sprintf("%d enrolled", len(recs))
	return result
}

func checkMicrophone(cfg config.Config, devices func() ([]audio.DeviceInfo, error)) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "microphone"}
	if devices == nil {
		result.Error = "no audio context"
		return result
	}
	list, err := devices()
	if err != nil {
		result.Error = err.Error()
		result.Latency = time.Since(start)
		return result
	}
	dev, err := audio.Probe(list, cfg.Voice.MicDevice)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	result.Detail = fmt.Sprintf("%q", dev.Name)
	return result
}

func checkAnswer(ctx context.Context, cfg config.Config, probe func(context.Context) error) CheckResult {
	start := time.Now()
	result := CheckResult{Name: "answer_backend"}

	if cfg.Answer.APIKey == "" {
		result.Error = "GEMINI_API_KEY not set"
		return result
	}
	if probe == nil {
		probe = func(ctx context.Context) error {
			oc := openai.DefaultConfig(cfg.Answer.APIKey)
			if cfg.Answer.BaseURL != "" {
				oc.BaseURL = cfg.Answer.BaseURL
			}
			_, err := openai.NewClientWithConfig(oc).ListModels(ctx)
			return err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := probe(ctx)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = fmt.Sprintf("list models: %v", err)
		return result
	}
	result.OK = true
	return result
}
