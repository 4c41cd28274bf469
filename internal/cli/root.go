// Package cli implements the kioskctl maintenance commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"omnis/kiosk/internal/answer"
	"omnis/kiosk/internal/config"
	"omnis/kiosk/internal/face"
	"omnis/kiosk/internal/facestore"
)

const Version = "0.3.0"

// Env carries the configuration and the constructors commands use. Tests
// swap the constructors for fakes.
type Env struct {
	Config      config.Config
	OpenStore   func(ctx context.Context, cfg config.Config) (facestore.Store, error)
	OpenFAQ     func(cfg config.Config) (*answer.FAQ, error)
	DialEncoder func(ctx context.Context, addr string) (face.Encoder, io.Closer, error)
}

func DefaultEnv() *Env {
	return &Env{
		Config: config.Load(),
		OpenStore: func(ctx context.Context, cfg config.Config) (facestore.Store, error) {
			return facestore.Open(ctx, cfg.Store.Driver, cfg.Store.Path, cfg.Store.DSN)
		},
		OpenFAQ: func(cfg config.Config) (*answer.FAQ, error) {
			return answer.OpenFAQ(cfg.Answer.FAQPath)
		},
		DialEncoder: func(ctx context.Context, addr string) (face.Encoder, io.Closer, error) {
			sc, err := face.Dial(ctx, addr)
			if err != nil {
				return nil, nil, err
			}
			return sc, sc, nil
		},
	}
}

// NewRootCmd builds the command tree around env.
func NewRootCmd(env *Env) *cobra.Command {
	var dbPath, faqPath string
	root := &cobra.Command{
		Use:           "kioskctl",
		Short:         "Maintenance tool for the OMNIS kiosk",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if dbPath != "" {
				env.Config.Store.Path = dbPath
			}
			if faqPath != "" {
				env.Config.Answer.FAQPath = faqPath
			}
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Face store path (default: $FACE_DB or data/omnis.db)")
	root.PersistentFlags().StringVar(&faqPath, "faq", "", "FAQ database path (default: $FAQ_DB)")

	root.AddCommand(newFacesCmd(env), newFAQCmd(env), newMicCmd(env), newHealthCmd(env), newTokenCmd(env))
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(DefaultEnv()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
