package commands

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wasteboz/api/internal/session"
	"wasteboz/api/internal/util"
)

func lookupCmd() *cobra.Command {
	var imagePath string
	cmd := &cobra.Command{
		Use:   "lookup [description...]",
		Short: "Print EWC codes for a description or a photo",
		Example: `  wasteboz lookup used engine oil
  wasteboz lookup --image ./skip.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := appCtx.Sessions.Get(cliSession)
			return runLookup(cmd.Context(), ctrl, strings.Join(args, " "), imagePath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "photo of the waste to classify")
	return cmd
}

type submitter interface {
	SubmitText(ctx context.Context, query string) (session.State, bool)
	SubmitImage(ctx context.Context, imageData string) (session.State, bool)
}

var errNothingToLookUp = errors.New("give a description or --image")

func runLookup(ctx context.Context, ctrl submitter, query, imagePath string, out io.Writer) error {
	var s session.State
	switch {
	case imagePath != "":
		b, err := os.ReadFile(imagePath)
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return util.ErrEmptyImage
		}
		s, _ = ctrl.SubmitImage(ctx, util.MakeDataURL(util.PickMIME("", "", b), base64.StdEncoding.EncodeToString(b)))
	case strings.TrimSpace(query) != "":
		s, _ = ctrl.SubmitText(ctx, query)
	default:
		return errNothingToLookUp
	}
	return printState(out, s)
}

// printState writes result cards; a session error becomes the command error.
func printState(out io.Writer, s session.State) error {
	if s.HasError() {
		return errors.New(s.Error)
	}
	if len(s.Results) == 0 {
		_, err := fmt.Fprintln(out, "No EWC codes found.")
		return err
	}
	for i, w := range s.Results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if _, err := fmt.Fprintln(out, w.Display()); err != nil {
			return err
		}
	}
	return nil
}
