package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/cbroglie/mustache"
	"github.com/neilberkman/qbench/internal/core/browser"
	"github.com/neilberkman/qbench/internal/core/share"
	"github.com/spf13/cobra"
)

var (
	shareCompiler string
	shareStd      string
	shareOptim    string
	shareLib      string
	shareCopy     bool
	shareOpen     bool
	shareTemplate string
	shareDecode   bool
)

var shareCmd = &cobra.Command{
	Use:   "share [file]",
	Short: "Create or decode a share link for a single source file",
	Long: `Encode a source file and its compiler options into a share link.

The code is read from the file, or from stdin when no file is given. With
--decode the argument is a share link or token and its payload is printed.

The --template flag formats the output with a mustache template. Available
fields: {{link}}, {{token}}, {{text}}, {{compiler}}, {{cppVersion}},
{{optim}}, {{lib}}.

Examples:
  qbench share main.cpp --copy
  qbench share main.cpp --template '[benchmark]({{{link}}})'
  qbench share --decode 'https://build-bench.com/#eyJ0ZXh0Ijo...'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShare,
}

func init() {
	rootCmd.AddCommand(shareCmd)
	addOptionFlags(shareCmd, &shareCompiler, &shareStd, &shareOptim, &shareLib)
	shareCmd.Flags().BoolVar(&shareCopy, "copy", false, "Copy the link to the clipboard")
	shareCmd.Flags().BoolVar(&shareOpen, "open", false, "Open the link in a browser")
	shareCmd.Flags().StringVar(&shareTemplate, "template", "", "Mustache template for the output")
	shareCmd.Flags().BoolVar(&shareDecode, "decode", false, "Decode a share link instead of creating one")
}

func runShare(cmd *cobra.Command, args []string) error {
	if shareDecode {
		return runShareDecode(args)
	}

	var code []byte
	var err error
	if len(args) == 1 {
		code, err = os.ReadFile(args[0])
	} else {
		code, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	opts := flagOptions(shareCompiler, shareStd, shareOptim, shareLib)
	if err := opts.Validate(); err != nil {
		return err
	}

	p := share.Payload{
		Text:       string(code),
		Compiler:   opts.Compiler,
		CppVersion: opts.CppVersion,
		Optim:      opts.Optim,
		Lib:        opts.Lib,
	}
	link, err := share.Link(strings.TrimSuffix(cfg.ServiceURL, "/")+"/", p)
	if err != nil {
		return err
	}
	token, err := share.Encode(p)
	if err != nil {
		return err
	}

	out := link
	if shareTemplate != "" {
		out, err = mustache.Render(shareTemplate, map[string]string{
			"link":       link,
			"token":      token,
			"text":       p.Text,
			"compiler":   p.Compiler,
			"cppVersion": p.CppVersion,
			"optim":      p.Optim,
			"lib":        p.Lib,
		})
		if err != nil {
			return fmt.Errorf("invalid template: %w", err)
		}
	}
	fmt.Println(out)

	if shareCopy {
		if err := clipboard.WriteAll(out); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		fmt.Fprintln(os.Stderr, "Copied to clipboard")
	}
	if shareOpen {
		if err := browser.New(cfg.BrowserCommand).Open(link); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
	}
	return nil
}

func runShareDecode(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("--decode needs a share link or token")
	}
	p, ok := share.ParseInput(args[0])
	if !ok {
		return share.ErrDecode
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(p)
}
