package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"omnis/kiosk/internal/audio"
	"omnis/kiosk/internal/auth"
	"omnis/kiosk/internal/health"
)

var errUnhealthy = errors.New("one or more checks failed")

func newMicCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mic",
		Short: "Inspect capture devices",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "probe",
		Short: "List capture devices and show which one the kiosk would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actx, err := audio.NewContext()
			if err != nil {
				return err
			}
			defer actx.Close()
			devices, err := actx.CaptureDevices()
			if err != nil {
				return err
			}
			return printDevices(cmd, devices, env.Config.Voice.MicDevice)
		},
	})
	return cmd
}

func printDevices(cmd *cobra.Command, devices []audio.DeviceInfo, preferred string) error {
	out := cmd.OutOrStdout()
	chosen, perr := audio.Probe(devices, preferred)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tINDEX\tNAME\tDEFAULT")
	for _, d := range devices {
		mark := ""
		if perr == nil && d.Index == chosen.Index {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%t\n", mark, d.Index, d.Name, d.IsDefault)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if perr != nil {
		return perr
	}
	fmt.Fprintf(out, "selected %d %q\n", chosen.Index, chosen.Name)
	return nil
}

func newHealthCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the vision sidecar, face store, microphone and answer backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps := health.Deps{}
			if st, err := env.OpenStore(cmd.Context(), env.Config); err == nil {
				defer st.Close()
				deps.Faces = st
			}
			if actx, err := audio.NewContext(); err == nil {
				defer actx.Close()
				deps.Devices = actx.CaptureDevices
			}
			status := health.CheckAll(cmd.Context(), env.Config, deps)
			fmt.Fprint(cmd.OutOrStdout(), status.String())
			if !status.OK {
				return errUnhealthy
			}
			return nil
		},
	}
}

func newTokenCmd(env *Env) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a monitor token for the event feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := env.Config.Monitor.TokenSecret
			if secret == "" {
				return errors.New("MONITOR_TOKEN_SECRET is not set")
			}
			exp := time.Now().Add(ttl).Unix()
			fmt.Fprintln(cmd.OutOrStdout(), auth.GenerateMonitorToken(secret, subject, exp))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "dashboard", "Who the token is for")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "How long the token is valid")
	return cmd
}
