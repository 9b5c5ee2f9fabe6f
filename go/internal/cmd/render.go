package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcdev12/countdown/go/internal/countdown/render"
	"github.com/mcdev12/countdown/go/internal/shortcode"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	Block      bool
	WithStyles bool
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{}

	cmd := &cobra.Command{
		Use:   "render [content]",
		Short: "Expand countdown shortcodes into widget markup",
		Long: `Expand every [react_countdown] shortcode in content into widget markup.

Content is read from the argument, or from stdin when no argument is given.
With --block the input is a JSON object of block attributes
(date, showSeconds, className) instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var content string
			if len(args) == 1 {
				content = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read content: %w", err)
				}
				content = string(data)
			}
			return runRender(rootOpts, opts, content, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&opts.Block, "block", false, "treat the input as JSON block attributes")
	cmd.Flags().BoolVar(&opts.WithStyles, "with-styles", false, "prefix the output with the stylesheet link tag")

	return cmd
}

func runRender(rootOpts *RootOptions, opts *RenderOptions, content string, out io.Writer) error {
	loc, err := rootOpts.Config.Location()
	if err != nil {
		return err
	}
	renderer := shortcode.NewRenderer(render.Widget{CompleteText: rootOpts.Config.CompleteText}, loc, nil)

	if opts.WithStyles {
		fmt.Fprintln(out, render.StyleLink)
	}

	if !opts.Block {
		_, err := io.WriteString(out, renderer.Expand(content))
		return err
	}

	var block map[string]any
	if err := json.NewDecoder(strings.NewReader(content)).Decode(&block); err != nil {
		return fmt.Errorf("invalid block attributes: %w", err)
	}
	attrs, err := shortcode.FromBlock(block)
	if err != nil {
		return err
	}

	// The error markup is already written when validation fails
	if err := renderer.Render(out, attrs); err != nil {
		return fmt.Errorf("render block: %w", err)
	}
	return nil
}
