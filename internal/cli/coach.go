package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dukerupert/pixelquest/internal/server"
)

const pngDataURIPrefix = "data:image/png;base64,"

// NewCoachCommand creates the coach command.
func NewCoachCommand(rootOpts *RootOptions) *cobra.Command {
	var avatarOut string

	cmd := &cobra.Command{
		Use:   "coach",
		Short: "Ask the Pixel Master for advice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				u, err := a.currentUser(ctx)
				if err != nil {
					return err
				}
				rs, err := a.resolutions.ListFor(ctx, u.ID)
				if err != nil {
					return err
				}

				advisor := server.NewAdvisor(rootOpts.cfg, nil, nil, a.logger.With("component", "coach"))
				c := advisor.Consult(ctx, *u, rs)

				if avatarOut != "" && c.Avatar != nil {
					if err := writePortrait(avatarOut, *c.Avatar); err != nil {
						return err
					}
				}

				return a.out.Success(c, func(w io.Writer) {
					fmt.Fprintf(w, "Pixel Master: %s\n", c.Advice)
					if avatarOut != "" && c.Avatar != nil {
						fmt.Fprintf(w, "Portrait saved to %s\n", avatarOut)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&avatarOut, "avatar-out", "", "write the coach portrait PNG to this path")
	return cmd
}

func writePortrait(path, uri string) error {
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, pngDataURIPrefix))
	if err != nil {
		return fmt.Errorf("decode portrait: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
