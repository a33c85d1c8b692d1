/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/fitsthumb/pkg/fits"
)

// decodeCmd represents the decode command
var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a local FITS file",
	Long: `Decode the first binary table image of a local FITS file and print its
dimensions and pixel statistics.

Example:
  fitsthumb decode frame.fits.fz
  fitsthumb decode --skip-malformed frame.fits.fz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetBool("skip-malformed")
		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, "failed to read file")
		}

		dec := fits.NewDecoder(fits.DecoderConfig{
			SkipMalformed: skip || container.Config().Decode.SkipMalformed,
			MaxPixels:     container.Config().Decode.MaxPixels,
			Logger:        container.Logger().With("file", args[0]),
		})
		img, err := dec.Decode(data)
		if err != nil {
			return errors.Wrapf(err, "failed to decode %s", args[0])
		}

		st := img.Stats()
		cmd.Printf("File:   %s (%d bytes)\n", args[0], len(data))
		cmd.Printf("Size:   %d x %d\n", img.Width, img.Height)
		cmd.Printf("Pixels: %d (%d blank)\n", len(img.Pixels), st.Blank)
		cmd.Printf("Min:    %g\n", st.Min)
		cmd.Printf("Max:    %g\n", st.Max)
		cmd.Printf("Mean:   %g\n", st.Mean)
		if err := img.Validate(); err != nil {
			cmd.Printf("Warning: %v\n", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().Bool("skip-malformed", false, "Skip binary tables that fail to decode and keep scanning")
}
