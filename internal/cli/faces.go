package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"omnis/kiosk/internal/enroll"
	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/facestore"
	"omnis/kiosk/internal/types"
)

func newFacesCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "faces",
		Short: "Manage enrolled faces",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List enrolled faces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.OpenStore(cmd.Context(), env.Config)
			if err != nil {
				return fmt.Errorf("open face store: %w", err)
			}
			defer st.Close()
			recs, err := st.LoadAll(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(recs) == 0 {
				fmt.Fprintln(out, "No faces enrolled.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tDIM\tIMAGE\tENROLLED")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Name, len(r.Descriptor), sizeLabel(len(r.Image)), r.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove an enrolled face",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := env.OpenStore(cmd.Context(), env.Config)
			if err != nil {
				return fmt.Errorf("open face store: %w", err)
			}
			defer st.Close()
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s (restart the kiosk to forget them)\n", args[0])
			return nil
		},
	}

	var quiet bool
	imp := &cobra.Command{
		Use:   "import DIR",
		Short: "Enroll every photo in DIR, named after the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, env, args[0], quiet)
		},
	}
	imp.Flags().BoolVarP(&quiet, "quiet", "q", false, "Hide the progress bar")

	cmd.AddCommand(list, rm, imp)
	return cmd
}

func sizeLabel(n int) string {
	if n == 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

func imageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// nameFromFile maps "mary_jane.jpg" to "Mary Jane".
func nameFromFile(path string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return enroll.ValidateName(base)
}

func largest(dets []types.Detection) (types.Detection, bool) {
	best := -1
	for i, d := range dets {
		if len(d.Descriptor) == 0 {
			continue
		}
		if best < 0 || d.Region.Area() > dets[best].Region.Area() {
			best = i
		}
	}
	if best < 0 {
		return types.Detection{}, false
	}
	return dets[best], true
}

func runImport(cmd *cobra.Command, env *Env, dir string, quiet bool) error {
	ctx := cmd.Context()
	files, err := imageFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .jpg or .png files in %s", dir)
	}

	st, err := env.OpenStore(ctx, env.Config)
	if err != nil {
		return fmt.Errorf("open face store: %w", err)
	}
	defer st.Close()
	enc, closer, err := env.DialEncoder(ctx, env.Config.Face.SidecarAddr)
	if err != nil {
		return fmt.Errorf("vision sidecar: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}

	var bar *progressbar.ProgressBar
	if !quiet {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("enrolling"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
		)
	}

	var saved int
	var skipped []string
	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reason := importOne(ctx, st, enc, path)
		if reason == "" {
			saved++
		} else {
			skipped = append(skipped, fmt.Sprintf("%s: %s", filepath.Base(path), reason))
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "enrolled %d of %d\n", saved, len(files))
	for _, s := range skipped {
		fmt.Fprintf(out, "  skipped %s\n", s)
	}
	return nil
}

// importOne returns an empty string on success, otherwise why the file was skipped.
func importOne(ctx context.Context, st facestore.Store, enc face.Encoder, path string) string {
	name, err := nameFromFile(path)
	if err != nil {
		return "file name is not a usable name"
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return err.Error()
	}
	dets, err := enc.Encode(ctx, img)
	if err != nil {
		return err.Error()
	}
	det, ok := largest(dets)
	if !ok {
		return "no face found"
	}
	stored := det.Crop
	if len(stored) == 0 {
		stored = img
	}
	if _, err := st.Save(ctx, name, det.Descriptor, stored); err != nil {
		if errors.Is(err, facestore.ErrNameExists) {
			return name + " already enrolled"
		}
		return err.Error()
	}
	return ""
}
