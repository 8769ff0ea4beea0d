package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/dispatch"
)

var promptScrapeMode bool

var promptCmd = &cobra.Command{
	Use:   "prompt [text]",
	Short: "Run the assistant on one prompt, or interactively",
	Long:  "With an argument, processes a single prompt and exits. Without one, starts an interactive session that keeps the prospect working set between prompts.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAssistant(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sess := dispatch.NewSession()
		sess.ScrapeMode = promptScrapeMode

		if len(args) == 1 {
			resp := env.dispatcher.Process(ctx, sess, args[0])
			fmt.Println(resp.Text)
			return nil
		}

		fmt.Println("prospect-cli interactive session. Type help for commands, exit to quit.")
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "exit" || line == "quit" {
				break
			}
			if ctx.Err() != nil {
				break
			}

			resp := env.dispatcher.Process(ctx, sess, line)
			fmt.Println(resp.Text)
		}
		return scanner.Err()
	},
}

func init() {
	promptCmd.Flags().BoolVar(&promptScrapeMode, "scrape", false, "treat every prompt as a web-scrape topic (commands still work)")
	rootCmd.AddCommand(promptCmd)
}
