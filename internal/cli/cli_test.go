package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omnis/kiosk/internal/answer"
	"omnis/kiosk/internal/audio"
	"omnis/kiosk/internal/auth"
	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/types"
)

// fakeEncoder finds one face in any image unless its bytes say "none".
type fakeEncoder struct{ calls int }

func (f *fakeEncoder) Encode(ctx context.Context, image []byte) ([]types.Detection, error) {
	f.calls++
	if string(image) == "none" {
		return nil, nil
	}
	return []types.Detection{
		{Region: types.Region{Right: 10, Bottom: 10}, Descriptor: types.Descriptor{0.9}},
		{Region: types.Region{Right: 50, Bottom: 50}, Descriptor: types.Descriptor{float64(len(image)), 0.1}, Crop: []byte("crop")},
	}, nil
}

func testEnv(t *testing.T) (*Env, *fakeEncoder) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Load()
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = filepath.Join(dir, "faces.db")
	cfg.Answer.FAQPath = filepath.Join(dir, "faq.db")
	enc := &fakeEncoder{}
	env := DefaultEnv()
	env.Config = cfg
	env.DialEncoder = func(ctx context.Context, addr string) (face.Encoder, io.Closer, error) {
		return enc, nil, nil
	}
	return env, enc
}

func execute(t *testing.T, env *Env, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(env)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFacesImportListRemove(t *testing.T) {
	env, enc := testEnv(t)
	photos := t.TempDir()
	for name, body := range map[string]string{
		"alice.jpg":     "jpeg-a",
		"bob_smith.png": "png-bob",
		"x.jpg":         "jpeg-x",
		"nobody.jpeg":   "none",
		"readme.txt":    "skip me",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(photos, name), []byte(body), 0o644))
	}

	out, err := execute(t, env, "faces", "import", "--quiet", photos)
	require.NoError(t, err)
	assert.Contains(t, out, "enrolled 2 of 4")
	assert.Contains(t, out, "x.jpg: file name is not a usable name")
	assert.Contains(t, out, "nobody.jpeg: no face found")
	assert.Equal(t, 3, enc.calls)

	out, err = execute(t, env, "faces", "import", "--quiet", photos)
	require.NoError(t, err)
	assert.Contains(t, out, "enrolled 0 of 4")
	assert.Contains(t, out, "Alice already enrolled")

	out, err = execute(t, env, "faces", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "Bob Smith")

	_, err = execute(t, env, "faces", "rm", "Alice")
	require.NoError(t, err)
	out, err = execute(t, env, "faces", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Alice")

	_, err = execute(t, env, "faces", "import", t.TempDir())
	assert.Error(t, err)
}

func TestFAQCommands(t *testing.T) {
	env, _ := testEnv(t)

	out, err := execute(t, env, "faq", "add", "-q", "When does school start?", "-a", "School starts at 8 AM.")
	require.NoError(t, err)
	assert.Contains(t, out, "added ")

	out, err = execute(t, env, "faq", "list", "--json")
	require.NoError(t, err)
	var entries []answer.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "School starts at 8 AM.", entries[0].Answer)

	out, err = execute(t, env, "faq", "ask", "when", "does", "school", "start")
	require.NoError(t, err)
	assert.Contains(t, out, "School starts at 8 AM.")

	out, err = execute(t, env, "faq", "ask", "what is for lunch")
	require.NoError(t, err)
	assert.Contains(t, out, "no local match")

	_, err = execute(t, env, "faq", "rm", entries[0].ID)
	require.NoError(t, err)
	_, err = execute(t, env, "faq", "rm", entries[0].ID)
	assert.ErrorIs(t, err, answer.ErrNotFound)

	_, err = execute(t, env, "faq", "add", "-q", "only a question")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	env, _ := testEnv(t)
	env.Config.Monitor.TokenSecret = ""
	_, err := execute(t, env, "token")
	assert.Error(t, err)

	env.Config.Monitor.TokenSecret = "sekret"
	out, err := execute(t, env, "token", "--subject", "hall-screen", "--ttl", "1m")
	require.NoError(t, err)
	sub, _, err := auth.ValidateMonitorToken("sekret", string(bytes.TrimSpace([]byte(out))), "hall-screen", time.Now(), 0)
	require.NoError(t, err)
	assert.Equal(t, "hall-screen", sub)
}

func TestPrintDevicesMarksChoice(t *testing.T) {
	devices := []audio.DeviceInfo{
		{Index: 0, Name: "Monitor of Built-in Audio", IsDefault: true},
		{Index: 1, Name: "USB PnP Sound Device"},
	}
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, printDevices(cmd, devices, ""))
	assert.Contains(t, out.String(), `selected 1 "USB PnP Sound Device"`)

	out.Reset()
	assert.Error(t, printDevices(cmd, devices, "bluetooth"))
}

func TestNameFromFile(t *testing.T) {
	name, err := nameFromFile("/photos/mary-jane_watson.JPG")
	require.NoError(t, err)
	assert.Equal(t, "Mary Jane Watson", name)

	_, err = nameFromFile("/photos/hello.png")
	assert.Error(t, err)
}
