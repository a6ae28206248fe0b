package main

import (
	"io"
	"log"
	"os"

	"arbor/internal/lsp"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	logfile   string
	verbosity int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		if logfile != "" {
			logFile, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				return err
			}
			defer logFile.Close()
			log.SetOutput(logFile)
			log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
			log.Println("Starting arbor LSP server...")
		} else {
			log.SetOutput(io.Discard)
		}
		commonlog.Configure(verbosity, nil) // Logger used by glsp

		server, err := lsp.NewServer()
		if err != nil {
			return err
		}
		return server.RunStdio()
	},
}

func init() {
	serveCmd.Flags().StringVar(&logfile, "logfile", "", "path to log file")
	serveCmd.Flags().IntVar(&verbosity, "verbosity", 1, "protocol log verbosity")
	rootCmd.AddCommand(serveCmd)
}
