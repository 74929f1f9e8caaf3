package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake"
)

type messageFlags struct {
	from     string
	subject  string
	bodyFile string
}

func (f *messageFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "sender address")
	cmd.Flags().StringVar(&f.subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&f.bodyFile, "body", "-", "file holding the message body, or - for stdin")
}

func (f *messageFlags) message(cmd *cobra.Command) (intake.Message, error) {
	var r io.Reader = cmd.InOrStdin()
	if f.bodyFile != "-" {
		file, err := os.Open(f.bodyFile)
		if err != nil {
			return intake.Message{}, err
		}
		defer file.Close()
		r = file
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return intake.Message{}, fmt.Errorf("read body: %w", err)
	}
	return intake.Message{From: f.from, Subject: f.subject, Body: string(body)}, nil
}

func newClassifyCmd() *cobra.Command {
	var flags messageFlags
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the lead source tag for a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := flags.message(cmd)
			if err != nil {
				return err
			}
			c, err := loadClassifier()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), c.Classify(msg.From, msg.Subject, msg.Body))
			return err
		},
	}
	flags.bind(cmd)
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var flags messageFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Classify and extract a message without storing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := flags.message(cmd)
			if err != nil {
				return err
			}
			c, err := loadClassifier()
			if err != nil {
				return err
			}
			p := intake.New(intake.Deps{Classifier: c}, intake.Options{})
			return writeJSON(cmd.OutOrStdout(), p.Preview(msg))
		},
	}
	flags.bind(cmd)
	return cmd
}
