/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/assigna-app/apiserver/config"
	"github.com/assigna-app/apiserver/internal/mail"
	"github.com/assigna-app/apiserver/internal/mq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// mailerCmd represents the mailer command
var mailerCmd = &cobra.Command{
	Use:   "mailer",
	Short: "Runs the mail delivery worker",
	Long: `Runs the worker that consumes queued mail jobs and delivers
them over SMTP. Usage:

	assigna mailer
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()
		log := logrus.New()
		log.SetFormatter(&logrus.JSONFormatter{})

		if cfg.MQ.Backend == "" {
			fmt.Fprintln(os.Stderr, "MQ_BACKEND is required for the mailer")
			os.Exit(1)
		}

		queue, err := mq.NewFromConfig(cmd.Context(), cfg.MQ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect message queue: %v\n", err)
			os.Exit(1)
		}
		defer queue.Close()

		sender := mail.NewSMTPSender(cfg.Mail)
		worker := mail.NewWorker(queue, cfg.MQ.MailJobs, sender, log)
		if err := worker.Run(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "mail worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mailerCmd)
}
