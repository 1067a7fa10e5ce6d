package ui

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/muurk/softap/internal/discovery"
)

// Printer writes UI components to a writer
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintBanner prints the portal startup banner
func (p *Printer) PrintBanner(info BannerInfo) {
	p.Println(RenderBanner(info, p.width))
}

// PrintHeader prints a header box
func (p *Printer) PrintHeader(title, subtitle string, params ...Param) {
	p.Println(NewHeader(title, subtitle, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with a troubleshooting hint
func (p *Printer) PrintError(title string, err error, hint string) {
	p.Println(NewFailureResult(title, err, hint).SetWidth(p.width).Render())
}

// PrintPortals prints discovered portals as a table
func (p *Printer) PrintPortals(portals []*discovery.Portal) {
	if len(portals) == 0 {
		p.Println(HintStyle.Render("No provisioning portals found."))
		return
	}

	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INSTANCE\tURL\tSTATE\tVERSION")
	for _, portal := range portals {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			portal.Instance,
			portal.BaseURL(),
			portal.State,
			portal.GetMetadata("version"),
		)
	}
	_ = tw.Flush()
}
