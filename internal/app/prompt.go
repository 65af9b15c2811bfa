package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/rangeview/internal/recording"
	"github.com/banshee-data/rangeview/internal/serialmux"
)

var (
	ErrNoPorts          = errors.New("no serial ports found")
	ErrInvalidSelection = errors.New("invalid selection")
)

// PrintPorts writes the numbered port list used by --list-ports and the
// interactive prompt.
func PrintPorts(w io.Writer, ports []serialmux.PortInfo) {
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found!")
		return
	}
	fmt.Fprintln(w, "\nAvailable serial ports:")
	for i, p := range ports {
		fmt.Fprintf(w, "  [%d] %s - %s\n", i, p.Path, p.Description)
	}
}

// SelectPort lists the ports and reads a number from in.
func SelectPort(in io.Reader, out io.Writer, lister serialmux.PortLister) (string, error) {
	if lister == nil {
		lister = serialmux.ListPorts
	}
	ports, err := lister()
	if err != nil {
		return "", err
	}
	PrintPorts(out, ports)
	if len(ports) == 0 {
		return "", ErrNoPorts
	}

	fmt.Fprint(out, "\nSelect port number: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 0 || n >= len(ports) {
		return "", ErrInvalidSelection
	}
	return ports[n].Path, nil
}

// PrintSessions writes a table of recorded sessions.
func PrintSessions(w io.Writer, sessions []recording.Session) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No recorded sessions.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tTOOL\tPORT\tSTARTED\tDURATION\tLINES")
	for _, s := range sessions {
		dur := "recording"
		if !s.EndedAt.IsZero() {
			dur = s.EndedAt.Sub(s.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.ID, s.Tool, s.Port, s.StartedAt.Format(time.RFC3339), dur, s.LineCount)
	}
	return tw.Flush()
}
