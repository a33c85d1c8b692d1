/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/fitsthumb/pkg/api"
)

// frameCmd represents the frame command
var frameCmd = &cobra.Command{
	Use:   "frame <frame_id>",
	Short: "Summarize an archive frame",
	Long: `Look up a frame in the archive, download and decode it, and print the
same summary the server returns. The cache is not consulted.

Example:
  fitsthumb frame 12345
  fitsthumb frame 12345 --auth "Token abc123"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return errors.Wrapf(api.ErrInvalidFrameID, "%q", args[0])
		}
		auth, _ := cmd.Flags().GetString("auth")

		server := api.NewServer(api.Dependencies{
			Archive: container.GetArchive(),
			Decoder: container.GetDecoder(),
			Logger:  container.Logger(),
		}, api.ServerConfig{})

		summary, err := server.Summarize(cmd.Context(), uint32(id), auth)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to encode summary")
		}
		cmd.Printf("%s\n", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(frameCmd)
	frameCmd.Flags().String("auth", "", "Authorization header value forwarded to the archive")
}
